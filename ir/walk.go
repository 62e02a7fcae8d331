package ir

// Walk calls fn for e and then for each child, depth first. Returning false
// from fn prunes the subtree below the current node. Nil children are
// skipped.
func Walk(e Expr, fn func(Expr) bool) {
	if e == nil || !fn(e) {
		return
	}
	for _, c := range Children(e) {
		Walk(c, fn)
	}
}

// Children returns the direct child expressions of e in evaluation order.
// Nil slots for absent optional children are filtered out.
func Children(e Expr) []Expr {
	var out []Expr
	add := func(cs ...Expr) {
		for _, c := range cs {
			if c != nil {
				out = append(out, c)
			}
		}
	}
	switch n := e.(type) {
	case *Block:
		add(n.Stmts...)
	case *Cond:
		for _, br := range n.Branches {
			add(br.Cond, br.Result)
		}
		add(n.Else)
	case *Loop:
		if n.Kind == PreTest {
			add(n.Cond, n.Body)
		} else {
			add(n.Body, n.Cond)
		}
	case *Return:
		add(n.Value)
	case *Throw:
		add(n.Value)
	case *VarDecl:
		add(n.Init)
	case *SetVar:
		add(n.Value)
	case *SetField:
		add(n.Receiver, n.Value)
	case *GetField:
		add(n.Receiver)
	case *Call:
		add(n.Receiver)
		add(n.Args...)
	case *Vararg:
		for _, el := range n.Elems {
			add(el.Value)
		}
	case *StringConcat:
		add(n.Args...)
	case *Try:
		add(n.Body)
		for _, c := range n.Catches {
			add(c.Body)
		}
		add(n.Finally)
	case *Unop:
		add(n.X)
	case *Binop:
		add(n.L, n.R)
	}
	return out
}
