package ir

import (
	"fmt"
	"strings"
)

// Print renders an expression tree as a deterministic s-expression string.
// Loops are numbered in encounter order so jump targets stay readable even
// when a loop carries no label. The output is meant for tests and debugging,
// not for the downstream emitter.
func Print(e Expr) string {
	p := &printer{loops: map[*Loop]int{}}
	var b strings.Builder
	p.print(&b, e)
	return b.String()
}

// PrintFunction renders a whole function.
func PrintFunction(fn *Function) string {
	p := &printer{loops: map[*Loop]int{}}
	var b strings.Builder
	b.WriteString("(func ")
	b.WriteString(fn.Name)
	for _, prm := range fn.Params {
		b.WriteString(" ")
		b.WriteString(prm.Name)
	}
	b.WriteString(" ")
	p.print(&b, fn.Body)
	b.WriteString(")")
	return b.String()
}

type printer struct {
	loops map[*Loop]int
}

func (p *printer) loopID(l *Loop) string {
	id, ok := p.loops[l]
	if !ok {
		id = len(p.loops)
		p.loops[l] = id
	}
	if l.Label != "" {
		return fmt.Sprintf("#%d:%s", id, l.Label)
	}
	return fmt.Sprintf("#%d", id)
}

func (p *printer) print(b *strings.Builder, e Expr) {
	if e == nil {
		b.WriteString("nil")
		return
	}
	switch n := e.(type) {
	case *Block:
		p.list(b, "block", n.Stmts...)
	case *Cond:
		b.WriteString("(cond")
		for _, br := range n.Branches {
			b.WriteString(" (")
			p.print(b, br.Cond)
			b.WriteString(" -> ")
			p.print(b, br.Result)
			b.WriteString(")")
		}
		if n.Else != nil {
			b.WriteString(" (else ")
			p.print(b, n.Else)
			b.WriteString(")")
		}
		b.WriteString(")")
	case *Loop:
		kind := "while"
		if n.Kind == PostTest {
			kind = "dowhile"
		}
		fmt.Fprintf(b, "(%s %s ", kind, p.loopID(n))
		p.print(b, n.Cond)
		b.WriteString(" ")
		p.print(b, n.Body)
		b.WriteString(")")
	case *Break:
		fmt.Fprintf(b, "(break %s)", p.loopID(n.Target))
	case *Continue:
		fmt.Fprintf(b, "(continue %s)", p.loopID(n.Target))
	case *Return:
		p.list(b, "return", n.Value)
	case *Throw:
		p.list(b, "throw", n.Value)
	case *VarDecl:
		if n.Init == nil {
			fmt.Fprintf(b, "(var %s)", n.Var.Name)
		} else {
			fmt.Fprintf(b, "(var %s ", n.Var.Name)
			p.print(b, n.Init)
			b.WriteString(")")
		}
	case *SetVar:
		fmt.Fprintf(b, "(set %s ", n.Var.Name)
		p.print(b, n.Value)
		b.WriteString(")")
	case *GetVar:
		b.WriteString(n.Var.Name)
	case *SetField:
		fmt.Fprintf(b, "(setfield %s ", n.Field)
		p.print(b, n.Receiver)
		b.WriteString(" ")
		p.print(b, n.Value)
		b.WriteString(")")
	case *GetField:
		fmt.Fprintf(b, "(field %s ", n.Field)
		p.print(b, n.Receiver)
		b.WriteString(")")
	case *Call:
		b.WriteString("(call ")
		b.WriteString(n.Callee)
		if n.Receiver != nil {
			b.WriteString(" @")
			p.print(b, n.Receiver)
		}
		for _, a := range n.Args {
			b.WriteString(" ")
			p.print(b, a)
		}
		b.WriteString(")")
	case *Vararg:
		b.WriteString("(vararg")
		for _, el := range n.Elems {
			b.WriteString(" ")
			if el.Spread {
				b.WriteString("*")
			}
			p.print(b, el.Value)
		}
		b.WriteString(")")
	case *StringConcat:
		p.list(b, "concat", n.Args...)
	case *Try:
		b.WriteString("(try ")
		p.print(b, n.Body)
		for _, c := range n.Catches {
			fmt.Fprintf(b, " (catch %s ", c.Param.Name)
			p.print(b, c.Body)
			b.WriteString(")")
		}
		if n.Finally != nil {
			b.WriteString(" (finally ")
			p.print(b, n.Finally)
			b.WriteString(")")
		}
		b.WriteString(")")
	case *Const:
		if n.Typ == Unit {
			b.WriteString("unit")
		} else {
			fmt.Fprintf(b, "%v", n.Value)
		}
	case *Unop:
		fmt.Fprintf(b, "(%s ", n.Op)
		p.print(b, n.X)
		b.WriteString(")")
	case *Binop:
		fmt.Fprintf(b, "(%s ", n.Op)
		p.print(b, n.L)
		b.WriteString(" ")
		p.print(b, n.R)
		b.WriteString(")")
	default:
		fmt.Fprintf(b, "(unknown %T)", e)
	}
}

func (p *printer) list(b *strings.Builder, head string, parts ...Expr) {
	b.WriteString("(")
	b.WriteString(head)
	for _, part := range parts {
		if part == nil {
			continue
		}
		b.WriteString(" ")
		p.print(b, part)
	}
	b.WriteString(")")
}
