package lower

import "github.com/slatecc/decompose/ir"

// decomposes reports whether lowering e in expression position would hoist
// statements. This mirrors the transformer's shape decisions without
// rewriting anything, so callers can decide between the plain and
// materialized forms up front.
func (l *Lowerer) decomposes(e ir.Expr) bool {
	if e == nil {
		return false
	}
	switch n := e.(type) {
	case *ir.Const, *ir.GetVar:
		return false
	case *ir.Call:
		if l.hoistCall(n) {
			return true
		}
	case *ir.Cond:
		for _, br := range n.Branches {
			if l.decomposes(br.Cond) || l.decomposes(br.Result) {
				return true
			}
		}
		return l.decomposes(n.Else)
	}
	if e.StatementShaped() {
		return true
	}
	for _, c := range ir.Children(e) {
		if l.decomposes(c) {
			return true
		}
	}
	return false
}
