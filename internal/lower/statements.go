package lower

import (
	"go.uber.org/zap"

	dcerrors "github.com/slatecc/decompose/errors"
	"github.com/slatecc/decompose/ir"
)

// lowerStmts lowers an ordered statement list, splicing every hoisted
// prefix in place.
func (l *Lowerer) lowerStmts(list []ir.Expr) ([]ir.Expr, error) {
	out := make([]ir.Expr, 0, len(list))
	for _, s := range list {
		stmts, err := l.lowerStmt(s)
		if err != nil {
			return nil, err
		}
		out = append(out, stmts...)
	}
	return out, nil
}

// lowerStmt lowers a node known to be in statement position. The returned
// flat list replaces the node in the enclosing statement container.
func (l *Lowerer) lowerStmt(e ir.Expr) ([]ir.Expr, error) {
	switch n := e.(type) {
	case *ir.Block:
		stmts, err := l.lowerStmts(n.Stmts)
		if err != nil {
			return nil, err
		}
		n.Stmts = stmts
		return []ir.Expr{n}, nil

	case *ir.VarDecl:
		if n.Init == nil {
			return []ir.Expr{n}, nil
		}
		c, err := l.lowerRValue(n.Init)
		if err != nil {
			return nil, err
		}
		n.Init = c.Value
		return append(c.Prefix, n), nil

	case *ir.SetVar:
		c, err := l.lowerRValue(n.Value)
		if err != nil {
			return nil, err
		}
		n.Value = c.Value
		return append(c.Prefix, n), nil

	case *ir.SetField:
		if n.Receiver == nil {
			c, err := l.lowerRValue(n.Value)
			if err != nil {
				return nil, err
			}
			n.Value = c.Value
			return append(c.Prefix, n), nil
		}
		// Receiver runs before the value; the list rule pins it when the
		// value hoists side effects.
		values, prefix, err := l.lowerList([]ir.Expr{n.Receiver, n.Value})
		if err != nil {
			return nil, err
		}
		n.Receiver, n.Value = values[0], values[1]
		return append(prefix, n), nil

	case *ir.Return:
		if n.Value == nil {
			return []ir.Expr{n}, nil
		}
		c, err := l.lowerRValue(n.Value)
		if err != nil {
			return nil, err
		}
		n.Value = c.Value
		return append(c.Prefix, n), nil

	case *ir.Throw:
		c, err := l.lowerRValue(n.Value)
		if err != nil {
			return nil, err
		}
		n.Value = c.Value
		return append(c.Prefix, n), nil

	case *ir.Break, *ir.Continue:
		return []ir.Expr{e}, nil

	case *ir.Loop:
		return l.lowerLoop(n)

	case *ir.Cond:
		return l.lowerCondStmt(n)

	case *ir.Try:
		bodyStmts, err := l.lowerStmt(n.Body)
		if err != nil {
			return nil, err
		}
		n.Body = l.blockOf(bodyStmts)
		for i := range n.Catches {
			catchStmts, err := l.lowerStmt(n.Catches[i].Body)
			if err != nil {
				return nil, err
			}
			n.Catches[i].Body = l.blockOf(catchStmts)
		}
		if n.Finally != nil {
			finStmts, err := l.lowerStmt(n.Finally)
			if err != nil {
				return nil, err
			}
			n.Finally = l.blockOf(finStmts)
		}
		return []ir.Expr{n}, nil

	default:
		// Expression used as a statement.
		c, err := l.lowerRValue(e)
		if err != nil {
			return nil, err
		}
		switch c.Value.(type) {
		case *ir.Const, *ir.GetVar:
			// A bare literal or variable read in statement position does
			// nothing; only the hoisted prefix survives.
			return c.Prefix, nil
		}
		return append(c.Prefix, c.Value), nil
	}
}

// lowerLoop lowers both loop kinds. When the condition hoists statements the
// loop is restructured so the hoisted prefix re-runs before every check.
func (l *Lowerer) lowerLoop(n *ir.Loop) ([]ir.Expr, error) {
	if n.Cond == nil || n.Body == nil {
		return nil, dcerrors.Malformed(dcerrors.PhaseLower, n, "loop without condition or body")
	}
	bodyStmts, err := l.lowerStmt(n.Body)
	if err != nil {
		return nil, err
	}
	cond, err := l.lowerExpr(n.Cond)
	if err != nil {
		return nil, err
	}

	if cond.Plain() {
		n.Cond = cond.Value
		n.Body = l.blockOf(bodyStmts)
		return []ir.Expr{n}, nil
	}

	if n.Kind == ir.PreTest {
		// while (sideEffect()) body
		//   => while (true) { prefix; if (!cond) break; body }
		guard := &ir.Cond{Branches: []ir.Branch{{
			Cond:   ir.Not(cond.Value),
			Result: &ir.Block{Stmts: []ir.Expr{&ir.Break{Target: n}}},
		}}}
		stmts := make([]ir.Expr, 0, len(cond.Prefix)+1+len(bodyStmts))
		stmts = append(stmts, cond.Prefix...)
		stmts = append(stmts, guard)
		stmts = append(stmts, bodyStmts...)
		n.Cond = ir.True()
		n.Body = &ir.Block{Stmts: stmts}
		l.log.Debug("restructured pre-test loop",
			zap.String("unit", l.path),
			zap.Int("hoisted", len(cond.Prefix)))
		return []ir.Expr{n}, nil
	}

	// do body while (sideEffect())
	//   => do { do body while (false) [fresh label]; prefix } while (cond)
	// The inner loop runs the original body exactly once per outer
	// iteration. Breaks keep targeting the outer loop (which is still the
	// original loop object); continues must finish the inner pass and fall
	// through to the re-evaluated condition, so they move to the inner loop.
	inner := &ir.Loop{
		Kind:  ir.PostTest,
		Cond:  ir.False(),
		Body:  l.blockOf(bodyStmts),
		Label: l.newLabel(),
	}
	retargetJumps(inner.Body, n, n, inner)
	stmts := make([]ir.Expr, 0, len(cond.Prefix)+1)
	stmts = append(stmts, inner)
	stmts = append(stmts, cond.Prefix...)
	n.Cond = cond.Value
	n.Body = &ir.Block{Stmts: stmts}
	l.log.Debug("restructured post-test loop",
		zap.String("unit", l.path),
		zap.String("inner", inner.Label),
		zap.Int("hoisted", len(cond.Prefix)))
	return []ir.Expr{n}, nil
}

// lowerCondStmt lowers a multi-way conditional in statement position. If no
// branch condition hoists statements the construct is rebuilt in place;
// otherwise the whole thing flattens into a chained binary if/else so each
// branch's hoisted prefix runs only once the branch is reached.
func (l *Lowerer) lowerCondStmt(n *ir.Cond) ([]ir.Expr, error) {
	if len(n.Branches) == 0 {
		return nil, dcerrors.Malformed(dcerrors.PhaseLower, n, "conditional without branches")
	}

	anyCond := false
	for _, br := range n.Branches {
		if l.decomposes(br.Cond) {
			anyCond = true
			break
		}
	}

	if !anyCond {
		for i := range n.Branches {
			cv, err := l.plainCond(n.Branches[i].Cond)
			if err != nil {
				return nil, err
			}
			n.Branches[i].Cond = cv
			resStmts, err := l.lowerStmt(n.Branches[i].Result)
			if err != nil {
				return nil, err
			}
			n.Branches[i].Result = l.blockOf(resStmts)
		}
		if n.Else != nil {
			elseStmts, err := l.lowerStmt(n.Else)
			if err != nil {
				return nil, err
			}
			n.Else = l.blockOf(elseStmts)
		}
		return []ir.Expr{n}, nil
	}

	var next ir.Expr
	if n.Else != nil {
		elseStmts, err := l.lowerStmt(n.Else)
		if err != nil {
			return nil, err
		}
		next = l.blockOf(elseStmts)
	}
	for i := len(n.Branches) - 1; i >= 0; i-- {
		br := n.Branches[i]
		cond, err := l.lowerExpr(br.Cond)
		if err != nil {
			return nil, err
		}
		resStmts, err := l.lowerStmt(br.Result)
		if err != nil {
			return nil, err
		}
		test := &ir.Cond{
			Branches: []ir.Branch{{Cond: cond.Value, Result: l.blockOf(resStmts)}},
			Else:     next,
		}
		chain := make([]ir.Expr, 0, len(cond.Prefix)+1)
		chain = append(chain, cond.Prefix...)
		chain = append(chain, test)
		if i == 0 {
			return chain, nil
		}
		next = &ir.Block{Stmts: chain}
	}
	return nil, dcerrors.Malformed(dcerrors.PhaseLower, n, "unreachable conditional rewrite state")
}

// plainCond lowers a branch condition that analysis reported as
// non-decomposing and enforces that the transformer agreed: a hoisted
// prefix here would be silently dropped by the rebuild-in-place path.
func (l *Lowerer) plainCond(e ir.Expr) (ir.Expr, error) {
	c, err := l.lowerExpr(e)
	if err != nil {
		return nil, err
	}
	if !c.Plain() {
		return nil, dcerrors.New(dcerrors.PhaseLower, dcerrors.KindMalformed).
			Path(l.path).
			Node(typeName(e)).
			Detail("condition hoisted statements after analysis reported it plain").
			Build()
	}
	return c.Value, nil
}

// blockOf wraps a lowered statement list back into a single statement.
func (l *Lowerer) blockOf(stmts []ir.Expr) ir.Expr {
	if len(stmts) == 1 {
		return stmts[0]
	}
	return &ir.Block{Stmts: stmts}
}
