package lower

import (
	"fmt"

	"go.uber.org/zap"

	dcerrors "github.com/slatecc/decompose/errors"
	"github.com/slatecc/decompose/ir"
)

// Config configures a Lowerer.
type Config struct {
	Logger      *zap.Logger
	Matcher     CallMatcher
	TempPrefix  string
	LabelPrefix string
}

// Lowerer rewrites one unit (function or field initializer) at a time into
// the restricted form. Temp and label counters reset per unit, so synthetic
// names are unique within a unit but reused across units. A Lowerer is not
// safe for concurrent use; create one per goroutine.
type Lowerer struct {
	log         *zap.Logger
	matcher     CallMatcher
	tempPrefix  string
	labelPrefix string
	path        string
	temps       int
	labels      int
}

// New creates a Lowerer. Zero-value config fields get defaults: a nop
// logger, "$tmp" temp names and "$l" labels.
func New(cfg Config) *Lowerer {
	l := &Lowerer{
		log:         cfg.Logger,
		matcher:     cfg.Matcher,
		tempPrefix:  cfg.TempPrefix,
		labelPrefix: cfg.LabelPrefix,
	}
	if l.log == nil {
		l.log = zap.NewNop()
	}
	if l.tempPrefix == "" {
		l.tempPrefix = "$tmp"
	}
	if l.labelPrefix == "" {
		l.labelPrefix = "$l"
	}
	return l
}

// Function lowers fn in place. On return fn.Body contains no
// statement-shaped construct in expression position. An error means a
// broken input invariant; the unit must be discarded, not retried.
func (l *Lowerer) Function(fn *ir.Function) error {
	if fn == nil || fn.Body == nil {
		return dcerrors.Malformed(dcerrors.PhaseLower, fn, "function has no body")
	}
	l.temps, l.labels = 0, 0
	l.path = fn.Name

	if err := checkJumpTargets(fn); err != nil {
		return err
	}
	stmts, err := l.lowerStmts(fn.Body.Stmts)
	if err != nil {
		return err
	}
	fn.Body.Stmts = stmts
	l.log.Debug("lowered function",
		zap.String("function", fn.Name),
		zap.Int("temps", l.temps),
		zap.Int("labels", l.labels))
	return nil
}

func (l *Lowerer) newTemp(t ir.Type) *ir.Variable {
	v := &ir.Variable{Name: fmt.Sprintf("%s%d", l.tempPrefix, l.temps), Typ: t}
	l.temps++
	return v
}

func (l *Lowerer) newLabel() string {
	s := fmt.Sprintf("%s%d", l.labelPrefix, l.labels)
	l.labels++
	return s
}

// checkJumpTargets verifies that every break/continue references a loop that
// lexically encloses it. A violation signals an upstream invariant break.
func checkJumpTargets(fn *ir.Function) error {
	return checkJumps(fn.Body, nil)
}

func checkJumps(e ir.Expr, enclosing []*ir.Loop) error {
	if e == nil {
		return nil
	}
	switch n := e.(type) {
	case *ir.Loop:
		enclosing = append(enclosing, n)
	case *ir.Break:
		if !containsLoop(enclosing, n.Target) {
			return dcerrors.UnboundJump(dcerrors.PhaseLower, "break", loopName(n.Target))
		}
		return nil
	case *ir.Continue:
		if !containsLoop(enclosing, n.Target) {
			return dcerrors.UnboundJump(dcerrors.PhaseLower, "continue", loopName(n.Target))
		}
		return nil
	}
	for _, c := range ir.Children(e) {
		if err := checkJumps(c, enclosing); err != nil {
			return err
		}
	}
	return nil
}

func containsLoop(loops []*ir.Loop, target *ir.Loop) bool {
	for _, lp := range loops {
		if lp == target {
			return true
		}
	}
	return false
}

// hoistCall reports whether a call must be hoisted into a temp because the
// configured matcher marked its callee. The reserved unreachable marker is
// never hoisted.
func (l *Lowerer) hoistCall(n *ir.Call) bool {
	return l.matcher != nil && n.Callee != ir.UnreachableFunc && l.matcher.Match(n.Callee)
}

func typeName(e ir.Expr) string {
	return fmt.Sprintf("%T", e)
}

func loopName(lp *ir.Loop) string {
	if lp == nil {
		return "<nil>"
	}
	if lp.Label != "" {
		return lp.Label
	}
	return "<unlabeled>"
}
