package lower

import "github.com/slatecc/decompose/ir"

// Composite is an ordered hoisted-statement prefix plus a trailing value:
// evaluate Prefix for effect, then Value is the result. A Composite with an
// empty prefix degenerates to a plain expression. Composites only live
// inside the pass; every one is spliced into an enclosing statement list
// before a function's lowering completes.
type Composite struct {
	Prefix []ir.Expr
	Value  ir.Expr
}

// Plain reports whether the composite carries no hoisted statements.
func (c Composite) Plain() bool { return len(c.Prefix) == 0 }

func plain(e ir.Expr) Composite { return Composite{Value: e} }
