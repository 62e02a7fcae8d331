package ir

import (
	dcerrors "github.com/slatecc/decompose/errors"
)

// VerifyRestricted checks that fn is in the restricted form the downstream
// emitter expects: no statement-shaped construct appears in expression
// position. A conditional may remain in value position as long as all of its
// parts are plain expressions. Returns the first violation found.
func VerifyRestricted(fn *Function) error {
	if fn.Body == nil {
		return dcerrors.Malformed(dcerrors.PhaseVerify, fn, "function has no body")
	}
	return verifyStmt(fn.Body, fn.Name)
}

func verifyStmt(e Expr, path string) error {
	if e == nil {
		return nil
	}
	switch n := e.(type) {
	case *Block:
		for _, s := range n.Stmts {
			if err := verifyStmt(s, path); err != nil {
				return err
			}
		}
	case *Cond:
		for _, br := range n.Branches {
			if err := verifyExpr(br.Cond, path); err != nil {
				return err
			}
			if err := verifyStmt(br.Result, path); err != nil {
				return err
			}
		}
		return verifyStmt(n.Else, path)
	case *Loop:
		if err := verifyExpr(n.Cond, path); err != nil {
			return err
		}
		return verifyStmt(n.Body, path)
	case *Try:
		if err := verifyStmt(n.Body, path); err != nil {
			return err
		}
		for _, c := range n.Catches {
			if err := verifyStmt(c.Body, path); err != nil {
				return err
			}
		}
		return verifyStmt(n.Finally, path)
	case *Return:
		return verifyExpr(n.Value, path)
	case *Throw:
		return verifyExpr(n.Value, path)
	case *VarDecl:
		return verifyExpr(n.Init, path)
	case *SetVar:
		return verifyExpr(n.Value, path)
	case *SetField:
		if err := verifyExpr(n.Receiver, path); err != nil {
			return err
		}
		return verifyExpr(n.Value, path)
	case *Break, *Continue:
		return nil
	default:
		return verifyExpr(e, path)
	}
	return nil
}

func verifyExpr(e Expr, path string) error {
	if e == nil {
		return nil
	}
	if e.StatementShaped() {
		return dcerrors.NotRestricted(e, path)
	}
	for _, c := range Children(e) {
		if err := verifyExpr(c, path); err != nil {
			return err
		}
	}
	return nil
}
