package lower

import "github.com/slatecc/decompose/ir"

// retargetJumps rewrites break/continue jumps whose recorded target is from:
// breaks move to breakTo, continues to continueTo. Applied exactly once, to
// the body of a freshly synthesized wrapper loop. Targets use loop identity,
// so jumps owned by nested loops are untouched even without any shadowing
// bookkeeping.
func retargetJumps(root ir.Expr, from, breakTo, continueTo *ir.Loop) {
	ir.Walk(root, func(e ir.Expr) bool {
		switch n := e.(type) {
		case *ir.Break:
			if n.Target == from {
				n.Target = breakTo
			}
		case *ir.Continue:
			if n.Target == from {
				n.Target = continueTo
			}
		}
		return true
	})
}
