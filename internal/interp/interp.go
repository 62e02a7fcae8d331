// Package interp is a reference interpreter for the tree IR. It exists for
// tests: lowering must preserve observable behavior, so tests execute the
// original and the lowered tree and compare effect logs and results.
package interp

import (
	"fmt"
	"strings"

	"github.com/slatecc/decompose/ir"
)

// maxIterations bounds loop execution so a mislowered loop fails a test
// instead of hanging it.
const maxIterations = 1 << 20

// HostFunc is a side-effecting function provided by a test.
type HostFunc func(args []any) (any, error)

// Thrown is returned by Run when an exception escapes the function.
type Thrown struct {
	Value any
}

func (t *Thrown) Error() string {
	return fmt.Sprintf("uncaught exception: %v", t.Value)
}

// Evaluator executes IR trees. Every call appends its callee name and
// argument values to Log, which is the observable effect order tests
// compare.
type Evaluator struct {
	Log    []string
	Fields map[string]any

	hosts map[string]HostFunc
	funcs map[string]*ir.Function
	vars  map[*ir.Variable]any
}

// New creates an empty evaluator.
func New() *Evaluator {
	return &Evaluator{
		Fields: make(map[string]any),
		hosts:  make(map[string]HostFunc),
		funcs:  make(map[string]*ir.Function),
		vars:   make(map[*ir.Variable]any),
	}
}

// Host registers a host function.
func (ev *Evaluator) Host(name string, fn HostFunc) {
	ev.hosts[name] = fn
}

// Define registers an IR function so calls to it resolve.
func (ev *Evaluator) Define(fn *ir.Function) {
	ev.funcs[fn.Name] = fn
}

// Run evaluates fn with the given arguments. An exception escaping the
// function surfaces as *Thrown.
func (ev *Evaluator) Run(fn *ir.Function, args ...any) (any, error) {
	if len(args) != len(fn.Params) {
		return nil, fmt.Errorf("%s expects %d arguments, got %d", fn.Name, len(fn.Params), len(args))
	}
	for i, p := range fn.Params {
		ev.vars[p] = args[i]
	}
	_, sig, err := ev.eval(fn.Body)
	if err != nil {
		return nil, err
	}
	if sig != nil {
		switch sig.kind {
		case sigReturn:
			return sig.value, nil
		case sigThrow:
			return nil, &Thrown{Value: sig.value}
		default:
			return nil, fmt.Errorf("jump escaped function %s", fn.Name)
		}
	}
	return nil, nil
}

type signalKind int

const (
	sigBreak signalKind = iota
	sigContinue
	sigReturn
	sigThrow
)

type signal struct {
	loop  *ir.Loop
	value any
	kind  signalKind
}

func (ev *Evaluator) eval(e ir.Expr) (any, *signal, error) {
	if e == nil {
		return nil, nil, nil
	}
	switch n := e.(type) {
	case *ir.Const:
		return n.Value, nil, nil

	case *ir.GetVar:
		return ev.vars[n.Var], nil, nil

	case *ir.VarDecl:
		if n.Init == nil {
			ev.vars[n.Var] = nil
			return nil, nil, nil
		}
		v, sig, err := ev.eval(n.Init)
		if sig != nil || err != nil {
			return nil, sig, err
		}
		ev.vars[n.Var] = v
		return nil, nil, nil

	case *ir.SetVar:
		v, sig, err := ev.eval(n.Value)
		if sig != nil || err != nil {
			return nil, sig, err
		}
		ev.vars[n.Var] = v
		return nil, nil, nil

	case *ir.GetField:
		if _, sig, err := ev.eval(n.Receiver); sig != nil || err != nil {
			return nil, sig, err
		}
		return ev.Fields[n.Field], nil, nil

	case *ir.SetField:
		if _, sig, err := ev.eval(n.Receiver); sig != nil || err != nil {
			return nil, sig, err
		}
		v, sig, err := ev.eval(n.Value)
		if sig != nil || err != nil {
			return nil, sig, err
		}
		ev.Fields[n.Field] = v
		return nil, nil, nil

	case *ir.Block:
		for _, s := range n.Stmts {
			if _, sig, err := ev.eval(s); sig != nil || err != nil {
				return nil, sig, err
			}
		}
		return nil, nil, nil

	case *ir.Cond:
		for _, br := range n.Branches {
			cv, sig, err := ev.eval(br.Cond)
			if sig != nil || err != nil {
				return nil, sig, err
			}
			if truthy(cv) {
				return ev.eval(br.Result)
			}
		}
		if n.Else != nil {
			return ev.eval(n.Else)
		}
		return nil, nil, nil

	case *ir.Loop:
		return ev.evalLoop(n)

	case *ir.Break:
		return nil, &signal{kind: sigBreak, loop: n.Target}, nil

	case *ir.Continue:
		return nil, &signal{kind: sigContinue, loop: n.Target}, nil

	case *ir.Return:
		var v any
		if n.Value != nil {
			rv, sig, err := ev.eval(n.Value)
			if sig != nil || err != nil {
				return nil, sig, err
			}
			v = rv
		}
		return nil, &signal{kind: sigReturn, value: v}, nil

	case *ir.Throw:
		v, sig, err := ev.eval(n.Value)
		if sig != nil || err != nil {
			return nil, sig, err
		}
		return nil, &signal{kind: sigThrow, value: v}, nil

	case *ir.Try:
		return ev.evalTry(n)

	case *ir.Call:
		return ev.evalCall(n)

	case *ir.Vararg:
		var out []any
		for _, el := range n.Elems {
			v, sig, err := ev.eval(el.Value)
			if sig != nil || err != nil {
				return nil, sig, err
			}
			if el.Spread {
				vs, ok := v.([]any)
				if !ok {
					return nil, nil, fmt.Errorf("spread of non-list value %v", v)
				}
				out = append(out, vs...)
			} else {
				out = append(out, v)
			}
		}
		return out, nil, nil

	case *ir.StringConcat:
		var b strings.Builder
		for _, a := range n.Args {
			v, sig, err := ev.eval(a)
			if sig != nil || err != nil {
				return nil, sig, err
			}
			fmt.Fprintf(&b, "%v", v)
		}
		return b.String(), nil, nil

	case *ir.Unop:
		v, sig, err := ev.eval(n.X)
		if sig != nil || err != nil {
			return nil, sig, err
		}
		return unop(n.Op, v)

	case *ir.Binop:
		return ev.evalBinop(n)

	default:
		return nil, nil, fmt.Errorf("interp: unknown node %T", e)
	}
}

func (ev *Evaluator) evalLoop(n *ir.Loop) (any, *signal, error) {
	for iter := 0; ; iter++ {
		if iter >= maxIterations {
			return nil, nil, fmt.Errorf("loop exceeded %d iterations", maxIterations)
		}
		if n.Kind == ir.PreTest {
			out, sig, err := ev.loopCond(n)
			if sig != nil || err != nil {
				return nil, sig, err
			}
			switch out {
			case condExit:
				return nil, nil, nil
			case condRetry:
				continue
			}
		}
		_, sig, err := ev.eval(n.Body)
		if err != nil {
			return nil, nil, err
		}
		if sig != nil {
			switch sig.kind {
			case sigBreak:
				if sig.loop == n {
					return nil, nil, nil
				}
				return nil, sig, nil
			case sigContinue:
				if sig.loop != n {
					return nil, sig, nil
				}
				// Fall through to the condition check.
			default:
				return nil, sig, nil
			}
		}
		if n.Kind == ir.PostTest {
			out, sig, err := ev.loopCond(n)
			if sig != nil || err != nil {
				return nil, sig, err
			}
			if out == condExit {
				return nil, nil, nil
			}
			// condRetry starts the next iteration like any continue.
		}
	}
}

type condOutcome int

const (
	condProceed condOutcome = iota // condition true, keep looping
	condExit                       // condition false, or break targeting this loop
	condRetry                      // continue targeting this loop
)

// loopCond evaluates a loop condition. Jumps targeting the loop itself may
// legally originate inside its own condition; they are handled here the same
// way body jumps are, matching what the lowered form does once the condition
// is hoisted into the body.
func (ev *Evaluator) loopCond(n *ir.Loop) (condOutcome, *signal, error) {
	cv, sig, err := ev.eval(n.Cond)
	if err != nil {
		return condExit, nil, err
	}
	if sig != nil {
		switch sig.kind {
		case sigBreak:
			if sig.loop == n {
				return condExit, nil, nil
			}
		case sigContinue:
			if sig.loop == n {
				return condRetry, nil, nil
			}
		}
		return condExit, sig, nil
	}
	if truthy(cv) {
		return condProceed, nil, nil
	}
	return condExit, nil, nil
}

func (ev *Evaluator) evalTry(n *ir.Try) (any, *signal, error) {
	v, sig, err := ev.eval(n.Body)
	if err != nil {
		return nil, nil, err
	}
	if sig != nil && sig.kind == sigThrow && len(n.Catches) > 0 {
		// Catch clauses are untyped; the first one handles the exception.
		c := n.Catches[0]
		ev.vars[c.Param] = sig.value
		v, sig, err = ev.eval(c.Body)
		if err != nil {
			return nil, nil, err
		}
	}
	if n.Finally != nil {
		_, fsig, ferr := ev.eval(n.Finally)
		if ferr != nil {
			return nil, nil, ferr
		}
		if fsig != nil {
			sig = fsig
		}
	}
	return v, sig, nil
}

func (ev *Evaluator) evalCall(n *ir.Call) (any, *signal, error) {
	if _, sig, err := ev.eval(n.Receiver); sig != nil || err != nil {
		return nil, sig, err
	}
	args := make([]any, 0, len(n.Args))
	for _, a := range n.Args {
		v, sig, err := ev.eval(a)
		if sig != nil || err != nil {
			return nil, sig, err
		}
		args = append(args, v)
	}

	if n.Callee == ir.UnreachableFunc {
		return nil, nil, fmt.Errorf("unreachable marker executed")
	}

	ev.Log = append(ev.Log, callRecord(n.Callee, args))

	if h, ok := ev.hosts[n.Callee]; ok {
		v, err := h(args)
		return v, nil, err
	}
	if fn, ok := ev.funcs[n.Callee]; ok {
		if len(args) != len(fn.Params) {
			return nil, nil, fmt.Errorf("%s expects %d arguments, got %d", fn.Name, len(fn.Params), len(args))
		}
		for i, p := range fn.Params {
			ev.vars[p] = args[i]
		}
		_, sig, err := ev.eval(fn.Body)
		if err != nil {
			return nil, nil, err
		}
		if sig != nil {
			switch sig.kind {
			case sigReturn:
				return sig.value, nil, nil
			case sigThrow:
				return nil, sig, nil
			default:
				return nil, nil, fmt.Errorf("jump escaped function %s", fn.Name)
			}
		}
		return nil, nil, nil
	}
	return nil, nil, fmt.Errorf("undefined function %q", n.Callee)
}

func (ev *Evaluator) evalBinop(n *ir.Binop) (any, *signal, error) {
	if n.Op == "&&" || n.Op == "||" {
		lv, sig, err := ev.eval(n.L)
		if sig != nil || err != nil {
			return nil, sig, err
		}
		if n.Op == "&&" && !truthy(lv) {
			return false, nil, nil
		}
		if n.Op == "||" && truthy(lv) {
			return true, nil, nil
		}
		rv, sig, err := ev.eval(n.R)
		if sig != nil || err != nil {
			return nil, sig, err
		}
		return truthy(rv), nil, nil
	}

	lv, sig, err := ev.eval(n.L)
	if sig != nil || err != nil {
		return nil, sig, err
	}
	rv, sig, err := ev.eval(n.R)
	if sig != nil || err != nil {
		return nil, sig, err
	}
	v, err := binop(n.Op, lv, rv)
	return v, nil, err
}

func truthy(v any) bool {
	b, ok := v.(bool)
	return ok && b
}

func unop(op string, v any) (any, *signal, error) {
	switch op {
	case "!":
		return !truthy(v), nil, nil
	case "-":
		if i, ok := asInt(v); ok {
			return -i, nil, nil
		}
		if f, ok := v.(float64); ok {
			return -f, nil, nil
		}
	}
	return nil, nil, fmt.Errorf("unary %q not defined for %T", op, v)
}

func binop(op string, l, r any) (any, error) {
	li, lok := asInt(l)
	ri, rok := asInt(r)
	if lok && rok {
		switch op {
		case "+":
			return li + ri, nil
		case "-":
			return li - ri, nil
		case "*":
			return li * ri, nil
		case "/":
			if ri == 0 {
				return nil, fmt.Errorf("division by zero")
			}
			return li / ri, nil
		case "%":
			if ri == 0 {
				return nil, fmt.Errorf("division by zero")
			}
			return li % ri, nil
		case "<":
			return li < ri, nil
		case ">":
			return li > ri, nil
		case "<=":
			return li <= ri, nil
		case ">=":
			return li >= ri, nil
		case "==":
			return li == ri, nil
		case "!=":
			return li != ri, nil
		}
	}
	switch op {
	case "==":
		return l == r, nil
	case "!=":
		return l != r, nil
	}
	return nil, fmt.Errorf("binary %q not defined for %T and %T", op, l, r)
}

func asInt(v any) (int64, bool) {
	switch i := v.(type) {
	case int:
		return int64(i), true
	case int64:
		return i, true
	}
	return 0, false
}

func callRecord(callee string, args []any) string {
	var b strings.Builder
	b.WriteString(callee)
	b.WriteString("(")
	for i, a := range args {
		if i > 0 {
			b.WriteString(",")
		}
		fmt.Fprintf(&b, "%v", a)
	}
	b.WriteString(")")
	return b.String()
}
