package lower

import (
	"go.uber.org/zap"

	dcerrors "github.com/slatecc/decompose/errors"
	"github.com/slatecc/decompose/ir"
)

// lowerExpr lowers a node in value position. The result is a Composite; an
// empty prefix means the node remained a plain expression.
func (l *Lowerer) lowerExpr(e ir.Expr) (Composite, error) {
	switch n := e.(type) {
	case *ir.Const, *ir.GetVar:
		return plain(e), nil

	case *ir.GetField:
		if n.Receiver == nil {
			return plain(n), nil
		}
		c, err := l.lowerExpr(n.Receiver)
		if err != nil {
			return Composite{}, err
		}
		n.Receiver = c.Value
		return Composite{Prefix: c.Prefix, Value: n}, nil

	case *ir.Unop:
		c, err := l.lowerExpr(n.X)
		if err != nil {
			return Composite{}, err
		}
		n.X = c.Value
		return Composite{Prefix: c.Prefix, Value: n}, nil

	case *ir.Binop:
		return l.lowerBinop(n)

	case *ir.Call:
		c, err := l.lowerCallOperands(n)
		if err != nil {
			return Composite{}, err
		}
		if l.hoistCall(n) {
			c.Value = l.pin(n, &c.Prefix)
		}
		return c, nil

	case *ir.Vararg:
		list := make([]ir.Expr, len(n.Elems))
		for i, el := range n.Elems {
			list[i] = el.Value
		}
		values, prefix, err := l.lowerList(list)
		if err != nil {
			return Composite{}, err
		}
		for i := range n.Elems {
			n.Elems[i].Value = values[i]
		}
		return Composite{Prefix: prefix, Value: n}, nil

	case *ir.StringConcat:
		values, prefix, err := l.lowerList(n.Args)
		if err != nil {
			return Composite{}, err
		}
		n.Args = values
		return Composite{Prefix: prefix, Value: n}, nil

	case *ir.Cond:
		return l.lowerCondExpr(n)

	case *ir.Try:
		return l.lowerTryExpr(n)

	case *ir.Loop, *ir.SetVar, *ir.SetField, *ir.VarDecl, *ir.Block:
		// Statement-shaped with a unit result: hoist the whole statement,
		// the trailing value is the unit placeholder.
		stmts, err := l.lowerStmt(e)
		if err != nil {
			return Composite{}, err
		}
		return Composite{Prefix: stmts, Value: ir.UnitValue()}, nil

	case *ir.Break, *ir.Continue, *ir.Return, *ir.Throw:
		// Control never falls through a jump, so the trailing value is the
		// reserved unreachable marker; the type system needs a token there,
		// the runtime never sees it.
		stmts, err := l.lowerStmt(e)
		if err != nil {
			return Composite{}, err
		}
		return Composite{Prefix: stmts, Value: ir.Unreachable(ir.Nothing)}, nil

	default:
		return Composite{}, dcerrors.New(dcerrors.PhaseLower, dcerrors.KindUnsupported).
			Path(l.path).
			Node(typeName(e)).
			Detail("no lowering rule for this construct").
			Build()
	}
}

// lowerCallOperands lowers a call's receiver and arguments as one ordered
// list, without touching the call itself.
func (l *Lowerer) lowerCallOperands(n *ir.Call) (Composite, error) {
	list := make([]ir.Expr, 0, len(n.Args)+1)
	if n.Receiver != nil {
		list = append(list, n.Receiver)
	}
	list = append(list, n.Args...)
	values, prefix, err := l.lowerList(list)
	if err != nil {
		return Composite{}, err
	}
	if n.Receiver != nil {
		n.Receiver = values[0]
		values = values[1:]
	}
	n.Args = values
	return Composite{Prefix: prefix, Value: n}, nil
}

// lowerRValue lowers the right-hand side of a binding statement. A matched
// call that is the entire right-hand side already evaluates in statement
// order, so it is not pinned into a temp of its own; this also keeps the
// pass idempotent over its own output.
func (l *Lowerer) lowerRValue(e ir.Expr) (Composite, error) {
	if call, ok := e.(*ir.Call); ok && l.hoistCall(call) {
		return l.lowerCallOperands(call)
	}
	return l.lowerExpr(e)
}

// lowerBinop lowers a binary operator. Short-circuit operators whose right
// operand hoists statements are rebuilt as conditionals first, so the right
// operand still only evaluates when the operator semantics demand it.
func (l *Lowerer) lowerBinop(n *ir.Binop) (Composite, error) {
	if (n.Op == "&&" || n.Op == "||") && l.decomposes(n.R) {
		var c *ir.Cond
		if n.Op == "&&" {
			c = &ir.Cond{Branches: []ir.Branch{{Cond: n.L, Result: n.R}}, Else: ir.False(), Typ: ir.Bool}
		} else {
			c = &ir.Cond{Branches: []ir.Branch{{Cond: n.L, Result: ir.True()}}, Else: n.R, Typ: ir.Bool}
		}
		return l.lowerCondExpr(c)
	}
	values, prefix, err := l.lowerList([]ir.Expr{n.L, n.R})
	if err != nil {
		return Composite{}, err
	}
	n.L, n.R = values[0], values[1]
	return Composite{Prefix: prefix, Value: n}, nil
}

// lowerList lowers an ordered operand list (call receiver+arguments, vararg
// elements, concatenation operands) preserving left-to-right evaluation.
// Entries evaluated before a later hoisted side effect are pinned into temp
// variables; entries after the last hoisting entry stay inline.
func (l *Lowerer) lowerList(items []ir.Expr) ([]ir.Expr, []ir.Expr, error) {
	coms := make([]Composite, len(items))
	remaining := 0
	for i, it := range items {
		c, err := l.lowerExpr(it)
		if err != nil {
			return nil, nil, err
		}
		coms[i] = c
		if !c.Plain() {
			remaining++
		}
	}

	values := make([]ir.Expr, len(items))
	if remaining == 0 {
		for i, c := range coms {
			values[i] = c.Value
		}
		return values, nil, nil
	}

	var prefix []ir.Expr
	pinned := 0
	for i, c := range coms {
		if !c.Plain() {
			prefix = append(prefix, c.Prefix...)
			remaining--
		}
		if remaining > 0 && !isLiteral(c.Value) {
			values[i] = l.pin(c.Value, &prefix)
			pinned++
		} else {
			values[i] = c.Value
		}
	}
	if pinned > 0 {
		l.log.Debug("pinned operands",
			zap.String("unit", l.path),
			zap.Int("pinned", pinned))
	}
	return values, prefix, nil
}

// pin emits a single-assignment temp declaration into the hoisted prefix
// and returns a read of the temp.
func (l *Lowerer) pin(v ir.Expr, prefix *[]ir.Expr) ir.Expr {
	tmp := l.newTemp(v.Type())
	*prefix = append(*prefix, &ir.VarDecl{Var: tmp, Init: v})
	return &ir.GetVar{Var: tmp}
}

// isLiteral reports whether pinning v can be skipped: a literal has no side
// effects and reads no mutable state, so later side effects cannot change
// its value.
func isLiteral(e ir.Expr) bool {
	_, ok := e.(*ir.Const)
	return ok
}

// lowerCondExpr lowers a multi-way conditional in value position. A fully
// plain conditional stays an expression (the emitter renders a ternary
// chain). Otherwise the branch results assign into one temp and the
// now-statement-shaped conditional goes through the statement transformer.
func (l *Lowerer) lowerCondExpr(n *ir.Cond) (Composite, error) {
	if !l.decomposes(n) {
		return plain(n), nil
	}
	tmp := l.newTemp(n.Typ)
	for i := range n.Branches {
		n.Branches[i].Result = &ir.SetVar{Var: tmp, Value: n.Branches[i].Result}
	}
	if n.Else != nil {
		n.Else = &ir.SetVar{Var: tmp, Value: n.Else}
	}
	stmt := &ir.Cond{Branches: n.Branches, Else: n.Else, Typ: ir.Unit}
	stmts, err := l.lowerCondStmt(stmt)
	if err != nil {
		return Composite{}, err
	}
	prefix := make([]ir.Expr, 0, len(stmts)+1)
	prefix = append(prefix, &ir.VarDecl{Var: tmp})
	prefix = append(prefix, stmts...)
	return Composite{Prefix: prefix, Value: &ir.GetVar{Var: tmp}}, nil
}

// lowerTryExpr materializes a try in value position. The target cannot
// yield a value from a try construct, so this happens unconditionally:
// body and catch results assign into one temp typed as the try's result.
func (l *Lowerer) lowerTryExpr(n *ir.Try) (Composite, error) {
	if n.Body == nil {
		return Composite{}, dcerrors.Malformed(dcerrors.PhaseLower, n, "try without body")
	}
	tmp := l.newTemp(n.Typ)
	n.Body = &ir.SetVar{Var: tmp, Value: n.Body}
	for i := range n.Catches {
		n.Catches[i].Body = &ir.SetVar{Var: tmp, Value: n.Catches[i].Body}
	}
	n.Typ = ir.Unit
	stmts, err := l.lowerStmt(n)
	if err != nil {
		return Composite{}, err
	}
	prefix := make([]ir.Expr, 0, len(stmts)+1)
	prefix = append(prefix, &ir.VarDecl{Var: tmp})
	prefix = append(prefix, stmts...)
	return Composite{Prefix: prefix, Value: &ir.GetVar{Var: tmp}}, nil
}
