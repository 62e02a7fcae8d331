package lower

import (
	"go.uber.org/zap"

	dcerrors "github.com/slatecc/decompose/errors"
	"github.com/slatecc/decompose/ir"
)

// initSuffix names the synthetic zero-argument function a hoisting field
// initializer is moved into.
const initSuffix = "$init"

// ExtractField lowers a field initializer. When hoisting is required, the
// initializer moves into a synthetic zero-argument function returning the
// initializer value, the field initializer becomes a call to it, and the
// function is returned for the caller to insert into the declaration
// container. When the lowered initializer reduces to a single plain return,
// no function is synthesized and nil is returned.
func (l *Lowerer) ExtractField(f *ir.Field) (*ir.Function, error) {
	if f == nil {
		return nil, dcerrors.Malformed(dcerrors.PhaseExtract, f, "nil field")
	}
	if f.Init == nil {
		return nil, nil
	}

	fn := &ir.Function{
		Name:   f.Name + initSuffix,
		Result: f.Typ,
		Body:   &ir.Block{Stmts: []ir.Expr{&ir.Return{Value: f.Init}}},
	}
	if err := l.Function(fn); err != nil {
		return nil, dcerrors.New(dcerrors.PhaseExtract, dcerrors.KindMalformed).
			Path(f.Name).
			Detail("initializer did not lower").
			Cause(err).
			Build()
	}

	if len(fn.Body.Stmts) == 1 {
		if ret, ok := fn.Body.Stmts[0].(*ir.Return); ok {
			f.Init = ret.Value
			return nil, nil
		}
	}

	f.Init = &ir.Call{Callee: fn.Name, Typ: f.Typ}
	l.log.Debug("extracted field initializer",
		zap.String("field", f.Name),
		zap.String("function", fn.Name))
	return fn, nil
}
