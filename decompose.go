package decompose

import (
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	dcerrors "github.com/slatecc/decompose/errors"
	"github.com/slatecc/decompose/internal/lower"
	"github.com/slatecc/decompose/ir"
)

// Config configures the decomposition pass.
type Config struct {
	// Logger receives debug traces of restructuring decisions. Nil falls
	// back to the package logger, a nop by default.
	Logger *zap.Logger

	// Matcher marks callees whose calls must be hoisted out of expression
	// position even though a call node is not statement-shaped on its own.
	Matcher FunctionMatcher

	// HoistCalls is a convenience for Matcher: a list of exact callee
	// names to hoist. Ignored when Matcher is set.
	HoistCalls []string

	// Workers bounds concurrent function lowerings in Module. Zero or one
	// means sequential. Functions are independent units with no shared
	// state, so any bound is safe.
	Workers int

	// TempPrefix and LabelPrefix override synthetic temp variable and loop
	// label naming. Defaults are "$tmp" and "$l"; names are unique within
	// a unit, counters reset between units.
	TempPrefix  string
	LabelPrefix string
}

// Function lowers one function in place. On success the body contains no
// statement-shaped construct in expression position, with evaluation order
// and side-effect timing preserved. An error is a broken input invariant:
// the unit is unusable and must not be retried.
func Function(fn *ir.Function, cfg Config) error {
	return newLowerer(cfg).Function(fn)
}

// Field lowers a field initializer. When the initializer needs hoisting it
// is replaced by a call to a synthetic zero-argument function, which is
// returned for insertion into the field's declaration container. A nil
// function means the initializer lowered to a plain expression in place.
func Field(f *ir.Field, cfg Config) (*ir.Function, error) {
	return newLowerer(cfg).ExtractField(f)
}

// Module lowers every function and field initializer of a declaration
// container. Synthetic accessor functions produced by field extraction are
// appended to m.Functions. With cfg.Workers > 1 functions are lowered
// concurrently; each worker gets its own lowering state.
func Module(m *ir.Module, cfg Config) error {
	if m == nil {
		return dcerrors.Malformed(dcerrors.PhaseLower, m, "nil module")
	}

	if cfg.Workers > 1 {
		var g errgroup.Group
		g.SetLimit(cfg.Workers)
		for _, fn := range m.Functions {
			fn := fn
			g.Go(func() error {
				return Function(fn, cfg)
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
	} else {
		for _, fn := range m.Functions {
			if err := Function(fn, cfg); err != nil {
				return err
			}
		}
	}

	for _, f := range m.Fields {
		acc, err := Field(f, cfg)
		if err != nil {
			return err
		}
		if acc != nil {
			m.Functions = append(m.Functions, acc)
		}
	}
	return nil
}

func newLowerer(cfg Config) *lower.Lowerer {
	log := cfg.Logger
	if log == nil {
		log = Logger()
	}
	matcher := cfg.Matcher
	if matcher == nil && len(cfg.HoistCalls) > 0 {
		matcher = NewExactMatcher(cfg.HoistCalls)
	}
	return lower.New(lower.Config{
		Logger:      log,
		Matcher:     matcher,
		TempPrefix:  cfg.TempPrefix,
		LabelPrefix: cfg.LabelPrefix,
	})
}
