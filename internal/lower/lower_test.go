package lower

import (
	"errors"
	"reflect"
	"testing"

	dcerrors "github.com/slatecc/decompose/errors"
	"github.com/slatecc/decompose/internal/interp"
	"github.com/slatecc/decompose/ir"
)

type calleeSet map[string]bool

func (m calleeSet) Match(callee string) bool { return m[callee] }

func newTestLowerer(hoist ...string) *Lowerer {
	m := calleeSet{}
	for _, h := range hoist {
		m[h] = true
	}
	return New(Config{Matcher: m})
}

func intc(v int64) *ir.Const {
	return &ir.Const{Value: v, Typ: ir.Int}
}

func call(callee string, args ...ir.Expr) *ir.Call {
	return &ir.Call{Callee: callee, Args: args, Typ: ir.Int}
}

// equivCase lowers a fresh copy of the tree and checks that the lowered
// function produces the same result, effect log and field state as the
// original.
type equivCase struct {
	name  string
	hoist []string
	build func() *ir.Function
	defs  func() []*ir.Function
	setup func(ev *interp.Evaluator)
	args  []any
}

func runEquiv(t *testing.T, c equivCase) {
	t.Helper()
	t.Run(c.name, func(t *testing.T) { runEquivCase(t, c) })
}

func runEquivCase(t *testing.T, c equivCase) {
	t.Helper()

	newEvaluator := func() *interp.Evaluator {
		ev := interp.New()
		if c.setup != nil {
			c.setup(ev)
		}
		if c.defs != nil {
			for _, fn := range c.defs() {
				ev.Define(fn)
			}
		}
		return ev
	}

	orig := c.build()
	evA := newEvaluator()
	wantVal, wantErr := evA.Run(orig, c.args...)

	lowered := c.build()
	if err := newTestLowerer(c.hoist...).Function(lowered); err != nil {
		t.Fatalf("lowering failed: %v", err)
	}
	if err := ir.VerifyRestricted(lowered); err != nil {
		t.Fatalf("lowered function not in restricted form: %v\n%s", err, ir.PrintFunction(lowered))
	}
	evB := newEvaluator()
	gotVal, gotErr := evB.Run(lowered, c.args...)

	if (wantErr == nil) != (gotErr == nil) {
		t.Fatalf("error mismatch: original %v, lowered %v", wantErr, gotErr)
	}
	if wantErr != nil && wantErr.Error() != gotErr.Error() {
		t.Fatalf("error mismatch: original %v, lowered %v", wantErr, gotErr)
	}
	if !reflect.DeepEqual(wantVal, gotVal) {
		t.Errorf("result mismatch: original %v, lowered %v\n%s", wantVal, gotVal, ir.PrintFunction(lowered))
	}
	if !reflect.DeepEqual(evA.Log, evB.Log) {
		t.Errorf("effect order changed:\noriginal %v\nlowered  %v\n%s", evA.Log, evB.Log, ir.PrintFunction(lowered))
	}
	if !reflect.DeepEqual(evA.Fields, evB.Fields) {
		t.Errorf("field state diverged: original %v, lowered %v", evA.Fields, evB.Fields)
	}
}

// condValueFn builds: val x = if (p) f() else g(); return x
func condValueFn() *ir.Function {
	p := &ir.Variable{Name: "p", Typ: ir.Bool}
	x := &ir.Variable{Name: "x", Typ: ir.Int}
	return &ir.Function{
		Name:   "pick",
		Params: []*ir.Variable{p},
		Result: ir.Int,
		Body: &ir.Block{Stmts: []ir.Expr{
			&ir.VarDecl{Var: x, Init: &ir.Cond{
				Branches: []ir.Branch{{Cond: &ir.GetVar{Var: p}, Result: call("f")}},
				Else:     call("g"),
				Typ:      ir.Int,
			}},
			&ir.Return{Value: &ir.GetVar{Var: x}},
		}},
	}
}

func TestConditionalExpressionMaterialized(t *testing.T) {
	setup := func(ev *interp.Evaluator) {
		ev.Host("f", func(args []any) (any, error) { return int64(10), nil })
		ev.Host("g", func(args []any) (any, error) { return int64(20), nil })
	}
	for _, p := range []bool{true, false} {
		runEquiv(t, equivCase{
			name:  "cond value",
			hoist: []string{"f", "g"},
			build: condValueFn,
			setup: setup,
			args:  []any{p},
		})
	}
}

func TestConditionalExpressionShape(t *testing.T) {
	fn := condValueFn()
	if err := newTestLowerer("f", "g").Function(fn); err != nil {
		t.Fatalf("lowering failed: %v", err)
	}

	// val x = if ... becomes: var tmp; if (p) tmp = f() else tmp = g(); val x = tmp
	stmts := fn.Body.Stmts
	if len(stmts) != 4 {
		t.Fatalf("got %d statements, want 4:\n%s", len(stmts), ir.PrintFunction(fn))
	}
	tmp, ok := stmts[0].(*ir.VarDecl)
	if !ok || tmp.Init != nil {
		t.Fatalf("statement 0 should declare the result temp: %s", ir.Print(stmts[0]))
	}
	if _, ok := stmts[1].(*ir.Cond); !ok {
		t.Fatalf("statement 1 should be the materialized conditional: %s", ir.Print(stmts[1]))
	}
	x, ok := stmts[2].(*ir.VarDecl)
	if !ok {
		t.Fatalf("statement 2 should declare x: %s", ir.Print(stmts[2]))
	}
	read, ok := x.Init.(*ir.GetVar)
	if !ok || read.Var != tmp.Var {
		t.Errorf("x should read the result temp: %s", ir.Print(stmts[2]))
	}
}

func TestPlainCondStaysExpression(t *testing.T) {
	p := &ir.Variable{Name: "p", Typ: ir.Bool}
	a := &ir.Variable{Name: "a", Typ: ir.Int}
	b := &ir.Variable{Name: "b", Typ: ir.Int}
	fn := &ir.Function{
		Name:   "max0",
		Params: []*ir.Variable{p, a, b},
		Result: ir.Int,
		Body: &ir.Block{Stmts: []ir.Expr{
			&ir.Return{Value: &ir.Cond{
				Branches: []ir.Branch{{Cond: &ir.GetVar{Var: p}, Result: &ir.GetVar{Var: a}}},
				Else:     &ir.GetVar{Var: b},
				Typ:      ir.Int,
			}},
		}},
	}

	before := ir.PrintFunction(fn)
	if err := newTestLowerer().Function(fn); err != nil {
		t.Fatalf("lowering failed: %v", err)
	}
	if got := ir.PrintFunction(fn); got != before {
		t.Errorf("fully plain ternary must not be rewritten:\nbefore %s\nafter  %s", before, got)
	}
}

func TestOperandOrderPinning(t *testing.T) {
	// outer(a(), field x, b()) where only b hoists: a's result and the
	// field read happen before b's side effect, so both get pinned.
	build := func() *ir.Function {
		return &ir.Function{
			Name:   "combine",
			Result: ir.Int,
			Body: &ir.Block{Stmts: []ir.Expr{
				&ir.Return{Value: call("outer",
					call("a"),
					&ir.GetField{Field: "x", Typ: ir.Int},
					call("b"),
				)},
			}},
		}
	}
	setup := func(ev *interp.Evaluator) {
		ev.Fields["x"] = int64(5)
		ev.Host("a", func(args []any) (any, error) { return int64(10), nil })
		ev.Host("b", func(args []any) (any, error) {
			ev.Fields["x"] = int64(99)
			return int64(1), nil
		})
		ev.Host("outer", func(args []any) (any, error) {
			var sum int64
			for _, a := range args {
				sum += a.(int64)
			}
			return sum, nil
		})
	}
	runEquiv(t, equivCase{
		name:  "pinning",
		hoist: []string{"b"},
		build: build,
		setup: setup,
	})

	fn := build()
	if err := newTestLowerer("b").Function(fn); err != nil {
		t.Fatalf("lowering failed: %v", err)
	}
	stmts := fn.Body.Stmts
	if len(stmts) != 4 {
		t.Fatalf("got %d statements, want 4 (three pins, one return):\n%s", len(stmts), ir.PrintFunction(fn))
	}
	for i, callee := range []string{"a", "", "b"} {
		decl, ok := stmts[i].(*ir.VarDecl)
		if !ok {
			t.Fatalf("statement %d should be a temp declaration: %s", i, ir.Print(stmts[i]))
		}
		if callee == "" {
			if _, ok := decl.Init.(*ir.GetField); !ok {
				t.Errorf("statement %d should pin the field read: %s", i, ir.Print(stmts[i]))
			}
			continue
		}
		c, ok := decl.Init.(*ir.Call)
		if !ok || c.Callee != callee {
			t.Errorf("statement %d should pin %s(): %s", i, callee, ir.Print(stmts[i]))
		}
	}
}

func TestLiteralOperandNotPinned(t *testing.T) {
	fn := &ir.Function{
		Name: "report",
		Body: &ir.Block{Stmts: []ir.Expr{
			call("emit", &ir.StringConcat{Args: []ir.Expr{
				&ir.Const{Value: "v=", Typ: ir.String},
				call("f"),
			}}),
		}},
	}
	if err := newTestLowerer("f", "emit").Function(fn); err != nil {
		t.Fatalf("lowering failed: %v", err)
	}

	var concat *ir.StringConcat
	ir.Walk(fn.Body, func(e ir.Expr) bool {
		if c, ok := e.(*ir.StringConcat); ok {
			concat = c
		}
		return true
	})
	if concat == nil {
		t.Fatalf("concat disappeared:\n%s", ir.PrintFunction(fn))
	}
	if _, ok := concat.Args[0].(*ir.Const); !ok {
		t.Errorf("literal operand should stay inline: %s", ir.Print(concat))
	}
}

func TestPreTestLoopRestructure(t *testing.T) {
	build := func() *ir.Function {
		count := &ir.Variable{Name: "count", Typ: ir.Int}
		return &ir.Function{
			Name:   "drain",
			Result: ir.Int,
			Body: &ir.Block{Stmts: []ir.Expr{
				&ir.VarDecl{Var: count, Init: intc(0)},
				&ir.Loop{
					Kind: ir.PreTest,
					Cond: &ir.Binop{Op: "!=", L: call("next"), R: intc(0), Typ: ir.Bool},
					Body: &ir.SetVar{Var: count, Value: &ir.Binop{Op: "+", L: &ir.GetVar{Var: count}, R: intc(1), Typ: ir.Int}},
				},
				&ir.Return{Value: &ir.GetVar{Var: count}},
			}},
		}
	}
	setup := func(ev *interp.Evaluator) {
		vals := []int64{3, 2, 1, 0}
		i := 0
		ev.Host("next", func(args []any) (any, error) {
			v := vals[i]
			i++
			return v, nil
		})
	}
	runEquiv(t, equivCase{
		name:  "pre-test loop",
		hoist: []string{"next"},
		build: build,
		setup: setup,
	})

	fn := build()
	if err := newTestLowerer("next").Function(fn); err != nil {
		t.Fatalf("lowering failed: %v", err)
	}
	loop, ok := fn.Body.Stmts[1].(*ir.Loop)
	if !ok {
		t.Fatalf("loop replaced by %s", ir.Print(fn.Body.Stmts[1]))
	}
	cond, ok := loop.Cond.(*ir.Const)
	if !ok || cond.Value != true {
		t.Errorf("restructured loop condition should be the literal true: %s", ir.Print(loop.Cond))
	}
	body, ok := loop.Body.(*ir.Block)
	if !ok || len(body.Stmts) < 2 {
		t.Fatalf("restructured loop body too small:\n%s", ir.Print(loop))
	}
	guard, ok := body.Stmts[1].(*ir.Cond)
	if !ok {
		t.Fatalf("expected exit guard after hoisted prefix: %s", ir.Print(body.Stmts[1]))
	}
	foundBreak := false
	ir.Walk(guard, func(e ir.Expr) bool {
		if br, ok := e.(*ir.Break); ok && br.Target == loop {
			foundBreak = true
		}
		return true
	})
	if !foundBreak {
		t.Errorf("exit guard should break the original loop: %s", ir.Print(guard))
	}
}

// postTestFn builds a do/while with a hoisting condition, a continue and a
// break, so retargeting is exercised along with the restructure.
func postTestFn() *ir.Function {
	i := &ir.Variable{Name: "i", Typ: ir.Int}
	loop := &ir.Loop{Kind: ir.PostTest, Cond: call("more")}
	loop.Body = &ir.Block{Stmts: []ir.Expr{
		&ir.SetVar{Var: i, Value: &ir.Binop{Op: "+", L: &ir.GetVar{Var: i}, R: intc(1), Typ: ir.Int}},
		&ir.Cond{Branches: []ir.Branch{{
			Cond:   &ir.Binop{Op: "==", L: &ir.GetVar{Var: i}, R: intc(3), Typ: ir.Bool},
			Result: &ir.Continue{Target: loop},
		}}},
		&ir.Cond{Branches: []ir.Branch{{
			Cond:   &ir.Binop{Op: ">=", L: &ir.GetVar{Var: i}, R: intc(10), Typ: ir.Bool},
			Result: &ir.Break{Target: loop},
		}}},
		call("emit", &ir.GetVar{Var: i}),
	}}
	return &ir.Function{
		Name:   "pump",
		Result: ir.Int,
		Body: &ir.Block{Stmts: []ir.Expr{
			&ir.VarDecl{Var: i, Init: intc(0)},
			loop,
			&ir.Return{Value: &ir.GetVar{Var: i}},
		}},
	}
}

func TestPostTestLoopRestructure(t *testing.T) {
	for _, iterations := range []int{1, 5} {
		setup := func(ev *interp.Evaluator) {
			calls := 0
			ev.Host("more", func(args []any) (any, error) {
				calls++
				return calls < iterations, nil
			})
			ev.Host("emit", func(args []any) (any, error) { return nil, nil })
		}
		runEquiv(t, equivCase{
			name:  "post-test loop",
			hoist: []string{"more"},
			build: postTestFn,
			setup: setup,
		})
	}
}

func TestPostTestRetargeting(t *testing.T) {
	fn := postTestFn()
	if err := newTestLowerer("more").Function(fn); err != nil {
		t.Fatalf("lowering failed: %v", err)
	}

	outer, ok := fn.Body.Stmts[1].(*ir.Loop)
	if !ok {
		t.Fatalf("outer loop replaced by %s", ir.Print(fn.Body.Stmts[1]))
	}
	body, ok := outer.Body.(*ir.Block)
	if !ok {
		t.Fatalf("outer body is %s", ir.Print(outer.Body))
	}
	inner, ok := body.Stmts[0].(*ir.Loop)
	if !ok {
		t.Fatalf("first outer statement should be the single-pass inner loop: %s", ir.Print(body.Stmts[0]))
	}
	if inner.Kind != ir.PostTest {
		t.Errorf("inner loop kind = %v, want post-test", inner.Kind)
	}
	if c, ok := inner.Cond.(*ir.Const); !ok || c.Value != false {
		t.Errorf("inner loop condition should be the literal false: %s", ir.Print(inner.Cond))
	}
	if inner.Label == "" {
		t.Error("inner loop should carry a synthetic label")
	}

	ir.Walk(inner.Body, func(e ir.Expr) bool {
		switch n := e.(type) {
		case *ir.Break:
			if n.Target != outer {
				t.Errorf("break should still exit the original loop")
			}
		case *ir.Continue:
			if n.Target != inner {
				t.Errorf("continue should finish the inner pass so the condition re-runs")
			}
		}
		return true
	})
}

func TestConditionalChain(t *testing.T) {
	// if (p) emit(1) else if (check() > 0) emit(2) else emit(3)
	build := func() *ir.Function {
		p := &ir.Variable{Name: "p", Typ: ir.Bool}
		return &ir.Function{
			Name:   "route",
			Params: []*ir.Variable{p},
			Body: &ir.Block{Stmts: []ir.Expr{
				&ir.Cond{Branches: []ir.Branch{
					{Cond: &ir.GetVar{Var: p}, Result: call("emit", intc(1))},
					{Cond: &ir.Binop{Op: ">", L: call("check"), R: intc(0), Typ: ir.Bool}, Result: call("emit", intc(2))},
				}, Else: call("emit", intc(3))},
			}},
		}
	}
	cases := []struct {
		p     bool
		check int64
	}{
		{p: true, check: 5},
		{p: false, check: 5},
		{p: false, check: -1},
	}
	for _, c := range cases {
		setup := func(ev *interp.Evaluator) {
			ev.Host("check", func(args []any) (any, error) { return c.check, nil })
			ev.Host("emit", func(args []any) (any, error) { return nil, nil })
		}
		runEquiv(t, equivCase{
			name:  "cond chain",
			hoist: []string{"check"},
			build: build,
			setup: setup,
			args:  []any{c.p},
		})
	}
}

func TestConditionalChainLaziness(t *testing.T) {
	// When the first branch is taken, the second branch's hoisted
	// condition must not run.
	p := &ir.Variable{Name: "p", Typ: ir.Bool}
	fn := &ir.Function{
		Name:   "route",
		Params: []*ir.Variable{p},
		Body: &ir.Block{Stmts: []ir.Expr{
			&ir.Cond{Branches: []ir.Branch{
				{Cond: &ir.GetVar{Var: p}, Result: call("emit", intc(1))},
				{Cond: &ir.Binop{Op: ">", L: call("check"), R: intc(0), Typ: ir.Bool}, Result: call("emit", intc(2))},
			}},
		}},
	}
	if err := newTestLowerer("check").Function(fn); err != nil {
		t.Fatalf("lowering failed: %v", err)
	}

	ev := interp.New()
	ev.Host("check", func(args []any) (any, error) { return int64(1), nil })
	ev.Host("emit", func(args []any) (any, error) { return nil, nil })
	if _, err := ev.Run(fn, true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(ev.Log, []string{"emit(1)"}) {
		t.Errorf("later branch condition evaluated eagerly: log %v", ev.Log)
	}
}

func TestTryExpression(t *testing.T) {
	build := func() *ir.Function {
		x := &ir.Variable{Name: "x", Typ: ir.Int}
		e := &ir.Variable{Name: "e", Typ: ir.Any}
		return &ir.Function{
			Name:   "shield",
			Result: ir.Int,
			Body: &ir.Block{Stmts: []ir.Expr{
				&ir.VarDecl{Var: x, Init: &ir.Try{
					Body:    call("risky"),
					Catches: []ir.Catch{{Param: e, Body: &ir.GetVar{Var: e}}},
					Typ:     ir.Int,
				}},
				&ir.Return{Value: &ir.GetVar{Var: x}},
			}},
		}
	}
	defs := func() []*ir.Function {
		// risky: if (field fail) throw 3 else return 7
		return []*ir.Function{{
			Name:   "risky",
			Result: ir.Int,
			Body: &ir.Block{Stmts: []ir.Expr{
				&ir.Cond{Branches: []ir.Branch{{
					Cond:   &ir.GetField{Field: "fail", Typ: ir.Bool},
					Result: &ir.Throw{Value: intc(3)},
				}}},
				&ir.Return{Value: intc(7)},
			}},
		}}
	}
	for _, fail := range []bool{false, true} {
		setup := func(ev *interp.Evaluator) {
			ev.Fields["fail"] = fail
		}
		runEquiv(t, equivCase{
			name:  "try value",
			hoist: []string{"risky"},
			build: build,
			defs:  defs,
			setup: setup,
		})
	}
}

func TestTryExpressionShape(t *testing.T) {
	x := &ir.Variable{Name: "x", Typ: ir.Int}
	e := &ir.Variable{Name: "e", Typ: ir.Any}
	fn := &ir.Function{
		Name:   "shield",
		Result: ir.Int,
		Body: &ir.Block{Stmts: []ir.Expr{
			&ir.VarDecl{Var: x, Init: &ir.Try{
				Body:    intc(7),
				Catches: []ir.Catch{{Param: e, Body: intc(0)}},
				Typ:     ir.Int,
			}},
			&ir.Return{Value: &ir.GetVar{Var: x}},
		}},
	}
	// Even with no hoisting inside, a try in value position always
	// materializes.
	if err := newTestLowerer().Function(fn); err != nil {
		t.Fatalf("lowering failed: %v", err)
	}
	stmts := fn.Body.Stmts
	if len(stmts) != 4 {
		t.Fatalf("got %d statements, want 4:\n%s", len(stmts), ir.PrintFunction(fn))
	}
	try, ok := stmts[1].(*ir.Try)
	if !ok {
		t.Fatalf("statement 1 should be the try: %s", ir.Print(stmts[1]))
	}
	if _, ok := try.Body.(*ir.SetVar); !ok {
		t.Errorf("try body should assign the result temp: %s", ir.Print(try.Body))
	}
	if try.Typ != ir.Unit {
		t.Errorf("materialized try type = %v, want unit", try.Typ)
	}
}

func TestShortCircuitLowering(t *testing.T) {
	build := func() *ir.Function {
		p := &ir.Variable{Name: "p", Typ: ir.Bool}
		return &ir.Function{
			Name:   "gate",
			Params: []*ir.Variable{p},
			Result: ir.Bool,
			Body: &ir.Block{Stmts: []ir.Expr{
				&ir.Return{Value: &ir.Binop{
					Op:  "&&",
					L:   &ir.GetVar{Var: p},
					R:   &ir.Binop{Op: ">", L: call("check"), R: intc(0), Typ: ir.Bool},
					Typ: ir.Bool,
				}},
			}},
		}
	}
	for _, p := range []bool{true, false} {
		setup := func(ev *interp.Evaluator) {
			ev.Host("check", func(args []any) (any, error) { return int64(4), nil })
		}
		runEquiv(t, equivCase{
			name:  "short circuit",
			hoist: []string{"check"},
			build: build,
			setup: setup,
			args:  []any{p},
		})
	}
}

func TestNoMatcherLeavesCallsInline(t *testing.T) {
	fn := &ir.Function{
		Name:   "compose",
		Result: ir.Int,
		Body: &ir.Block{Stmts: []ir.Expr{
			&ir.Return{Value: call("g", call("f", intc(1)))},
		}},
	}
	before := ir.PrintFunction(fn)
	if err := newTestLowerer().Function(fn); err != nil {
		t.Fatalf("lowering failed: %v", err)
	}
	if got := ir.PrintFunction(fn); got != before {
		t.Errorf("nested plain calls must survive unchanged:\nbefore %s\nafter  %s", before, got)
	}
}

func TestMatchedCallAsWholeRValue(t *testing.T) {
	// val x = f() already evaluates in statement order; no extra temp.
	x := &ir.Variable{Name: "x", Typ: ir.Int}
	fn := &ir.Function{
		Name: "bind",
		Body: &ir.Block{Stmts: []ir.Expr{
			&ir.VarDecl{Var: x, Init: call("f")},
		}},
	}
	if err := newTestLowerer("f").Function(fn); err != nil {
		t.Fatalf("lowering failed: %v", err)
	}
	if len(fn.Body.Stmts) != 1 {
		t.Fatalf("got %d statements, want 1:\n%s", len(fn.Body.Stmts), ir.PrintFunction(fn))
	}
	decl := fn.Body.Stmts[0].(*ir.VarDecl)
	if _, ok := decl.Init.(*ir.Call); !ok {
		t.Errorf("initializer call should stay in place: %s", ir.Print(decl))
	}
}

func TestIdempotent(t *testing.T) {
	builders := map[string]func() *ir.Function{
		"cond value": condValueFn,
		"post-test":  postTestFn,
	}
	for name, build := range builders {
		t.Run(name, func(t *testing.T) {
			fn := build()
			hoist := []string{"f", "g", "more", "emit", "check", "next"}
			if err := newTestLowerer(hoist...).Function(fn); err != nil {
				t.Fatalf("first lowering failed: %v", err)
			}
			once := ir.PrintFunction(fn)
			if err := newTestLowerer(hoist...).Function(fn); err != nil {
				t.Fatalf("second lowering failed: %v", err)
			}
			if twice := ir.PrintFunction(fn); twice != once {
				t.Errorf("lowering is not idempotent:\nonce  %s\ntwice %s", once, twice)
			}
		})
	}
}

func TestBareValueStatementDropped(t *testing.T) {
	x := &ir.Variable{Name: "x", Typ: ir.Int}
	fn := &ir.Function{
		Name:   "quiet",
		Params: []*ir.Variable{x},
		Body: &ir.Block{Stmts: []ir.Expr{
			&ir.GetVar{Var: x},
			intc(5),
			call("emit"),
		}},
	}
	if err := newTestLowerer().Function(fn); err != nil {
		t.Fatalf("lowering failed: %v", err)
	}
	if len(fn.Body.Stmts) != 1 {
		t.Fatalf("effect-free value statements should be dropped:\n%s", ir.PrintFunction(fn))
	}
	if c, ok := fn.Body.Stmts[0].(*ir.Call); !ok || c.Callee != "emit" {
		t.Errorf("the call statement must survive: %s", ir.Print(fn.Body.Stmts[0]))
	}
}

func TestVarargPinning(t *testing.T) {
	// [a(), b()..., c()] where only b hoists: a is pinned before b's side
	// effect, c stays inline, and the spread marker survives.
	build := func() *ir.Function {
		return &ir.Function{
			Name:   "gather",
			Result: ir.Any,
			Body: &ir.Block{Stmts: []ir.Expr{
				&ir.Return{Value: &ir.Vararg{Elems: []ir.VarargElem{
					{Value: call("a")},
					{Value: call("b"), Spread: true},
					{Value: call("c")},
				}, Typ: ir.Any}},
			}},
		}
	}
	setup := func(ev *interp.Evaluator) {
		ev.Host("a", func(args []any) (any, error) { return int64(1), nil })
		ev.Host("b", func(args []any) (any, error) { return []any{int64(2), int64(3)}, nil })
		ev.Host("c", func(args []any) (any, error) { return int64(4), nil })
	}
	runEquiv(t, equivCase{
		name:  "vararg",
		hoist: []string{"b"},
		build: build,
		setup: setup,
	})

	fn := build()
	if err := newTestLowerer("b").Function(fn); err != nil {
		t.Fatalf("lowering failed: %v", err)
	}
	stmts := fn.Body.Stmts
	if len(stmts) != 3 {
		t.Fatalf("got %d statements, want 3 (two temps, one return):\n%s", len(stmts), ir.PrintFunction(fn))
	}
	for i, callee := range []string{"a", "b"} {
		decl, ok := stmts[i].(*ir.VarDecl)
		if !ok {
			t.Fatalf("statement %d should be a temp declaration: %s", i, ir.Print(stmts[i]))
		}
		c, ok := decl.Init.(*ir.Call)
		if !ok || c.Callee != callee {
			t.Errorf("statement %d should hold %s(): %s", i, callee, ir.Print(stmts[i]))
		}
	}
	ret, ok := stmts[2].(*ir.Return)
	if !ok {
		t.Fatalf("statement 2 should be the return: %s", ir.Print(stmts[2]))
	}
	va, ok := ret.Value.(*ir.Vararg)
	if !ok {
		t.Fatalf("return value should still be a vararg: %s", ir.Print(ret.Value))
	}
	if _, ok := va.Elems[0].Value.(*ir.GetVar); !ok {
		t.Errorf("element 0 should read its temp: %s", ir.Print(va.Elems[0].Value))
	}
	if _, ok := va.Elems[1].Value.(*ir.GetVar); !ok || !va.Elems[1].Spread {
		t.Errorf("element 1 should read its temp and keep the spread marker: %s", ir.Print(ret.Value))
	}
	if c, ok := va.Elems[2].Value.(*ir.Call); !ok || c.Callee != "c" {
		t.Errorf("element 2 follows the last hoisting element and stays inline: %s", ir.Print(va.Elems[2].Value))
	}
}

func TestJumpInLoopCondition(t *testing.T) {
	// Jumps targeting the loop may originate inside its own condition;
	// hoisting moves them into the body, which must not change behavior.
	buildBreak := func() *ir.Function {
		i := &ir.Variable{Name: "i", Typ: ir.Int}
		loop := &ir.Loop{Kind: ir.PreTest}
		loop.Cond = &ir.Cond{
			Branches: []ir.Branch{{
				Cond:   &ir.Binop{Op: ">=", L: &ir.GetVar{Var: i}, R: intc(3), Typ: ir.Bool},
				Result: &ir.Break{Target: loop},
			}},
			Else: ir.True(),
			Typ:  ir.Bool,
		}
		loop.Body = &ir.SetVar{Var: i, Value: &ir.Binop{Op: "+", L: &ir.GetVar{Var: i}, R: intc(1), Typ: ir.Int}}
		return &ir.Function{
			Name:   "countUp",
			Result: ir.Int,
			Body: &ir.Block{Stmts: []ir.Expr{
				&ir.VarDecl{Var: i, Init: intc(0)},
				loop,
				&ir.Return{Value: &ir.GetVar{Var: i}},
			}},
		}
	}
	buildContinue := func() *ir.Function {
		i := &ir.Variable{Name: "i", Typ: ir.Int}
		loop := &ir.Loop{Kind: ir.PreTest}
		loop.Cond = &ir.Cond{
			Branches: []ir.Branch{{
				Cond: &ir.Binop{Op: "==", L: &ir.GetVar{Var: i}, R: intc(1), Typ: ir.Bool},
				Result: &ir.Block{Stmts: []ir.Expr{
					&ir.SetVar{Var: i, Value: intc(5)},
					&ir.Continue{Target: loop},
				}},
			}},
			Else: &ir.Binop{Op: "<", L: &ir.GetVar{Var: i}, R: intc(8), Typ: ir.Bool},
			Typ:  ir.Bool,
		}
		loop.Body = &ir.SetVar{Var: i, Value: &ir.Binop{Op: "+", L: &ir.GetVar{Var: i}, R: intc(1), Typ: ir.Int}}
		return &ir.Function{
			Name:   "skipAhead",
			Result: ir.Int,
			Body: &ir.Block{Stmts: []ir.Expr{
				&ir.VarDecl{Var: i, Init: intc(0)},
				loop,
				&ir.Return{Value: &ir.GetVar{Var: i}},
			}},
		}
	}

	runEquiv(t, equivCase{name: "break in condition", build: buildBreak})
	runEquiv(t, equivCase{name: "continue in condition", build: buildContinue})
}

func TestPlainCondGuard(t *testing.T) {
	l := newTestLowerer("f")

	x := &ir.Variable{Name: "x", Typ: ir.Int}
	plainTest := &ir.Binop{Op: ">", L: &ir.GetVar{Var: x}, R: intc(0), Typ: ir.Bool}
	cv, err := l.plainCond(plainTest)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cv != plainTest {
		t.Errorf("plain condition should pass through unchanged: %s", ir.Print(cv))
	}

	_, err = l.plainCond(call("f"))
	want := &dcerrors.Error{Phase: dcerrors.PhaseLower, Kind: dcerrors.KindMalformed}
	if !errors.Is(err, want) {
		t.Errorf("a condition that hoists statements must be rejected, got %v", err)
	}
}

func TestUnboundJump(t *testing.T) {
	stray := &ir.Loop{Kind: ir.PreTest, Cond: ir.True(), Body: &ir.Block{}}
	fn := &ir.Function{
		Name: "escape",
		Body: &ir.Block{Stmts: []ir.Expr{
			&ir.Break{Target: stray},
		}},
	}
	err := newTestLowerer().Function(fn)
	want := &dcerrors.Error{Phase: dcerrors.PhaseLower, Kind: dcerrors.KindUnboundJump}
	if !errors.Is(err, want) {
		t.Errorf("error = %v, want unbound_jump", err)
	}
}

type bogusNode struct{}

func (bogusNode) Type() ir.Type         { return ir.Unit }
func (bogusNode) StatementShaped() bool { return false }

func TestUnsupportedNode(t *testing.T) {
	fn := &ir.Function{
		Name: "odd",
		Body: &ir.Block{Stmts: []ir.Expr{bogusNode{}}},
	}
	err := newTestLowerer().Function(fn)
	want := &dcerrors.Error{Phase: dcerrors.PhaseLower, Kind: dcerrors.KindUnsupported}
	if !errors.Is(err, want) {
		t.Errorf("error = %v, want unsupported", err)
	}
}

func TestMalformedInputs(t *testing.T) {
	tests := []struct {
		name string
		fn   *ir.Function
	}{
		{"nil function", nil},
		{"no body", &ir.Function{Name: "empty"}},
		{
			"loop without condition",
			&ir.Function{Name: "l", Body: &ir.Block{Stmts: []ir.Expr{
				&ir.Loop{Kind: ir.PreTest, Body: &ir.Block{}},
			}}},
		},
		{
			"conditional without branches",
			&ir.Function{Name: "c", Body: &ir.Block{Stmts: []ir.Expr{
				&ir.Cond{},
			}}},
		},
	}

	want := &dcerrors.Error{Phase: dcerrors.PhaseLower, Kind: dcerrors.KindMalformed}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := newTestLowerer().Function(tt.fn)
			if !errors.Is(err, want) {
				t.Errorf("error = %v, want malformed", err)
			}
		})
	}
}

func TestTempPrefixOverride(t *testing.T) {
	l := New(Config{Matcher: calleeSet{"f": true}, TempPrefix: "$t", LabelPrefix: "$lbl"})
	fn := condValueFn()
	if err := l.Function(fn); err != nil {
		t.Fatalf("lowering failed: %v", err)
	}
	decl := fn.Body.Stmts[0].(*ir.VarDecl)
	if decl.Var.Name != "$t0" {
		t.Errorf("temp name = %q, want $t0", decl.Var.Name)
	}
}

func TestTempCountersResetPerUnit(t *testing.T) {
	l := newTestLowerer("f", "g")
	first := condValueFn()
	if err := l.Function(first); err != nil {
		t.Fatalf("lowering failed: %v", err)
	}
	second := condValueFn()
	if err := l.Function(second); err != nil {
		t.Fatalf("lowering failed: %v", err)
	}
	a := first.Body.Stmts[0].(*ir.VarDecl).Var.Name
	b := second.Body.Stmts[0].(*ir.VarDecl).Var.Name
	if a != b {
		t.Errorf("temp numbering should restart per unit: %q vs %q", a, b)
	}
}
