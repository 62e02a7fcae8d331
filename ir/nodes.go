package ir

// Expr is implemented by every IR node.
//
// In the unrestricted input form produced by frontends, statement-shaped
// constructs are expressions too and may sit in value position. After the
// decompose pass, StatementShaped nodes occur only in statement lists.
type Expr interface {
	// Type returns the static value type of the node.
	Type() Type
	// StatementShaped reports whether the restricted target can express
	// this node only in statement position.
	StatementShaped() bool
}

// Variable is a local binding, shared by its declaration and every
// read/write of it. Nodes reference variables by pointer identity.
type Variable struct {
	Name string
	Typ  Type
}

// Function is one unit of work for the pass.
type Function struct {
	Name   string
	Params []*Variable
	Body   *Block
	Result Type
}

// Field is a declaration with an optional initializer expression.
type Field struct {
	Name string
	Typ  Type
	Init Expr
}

// Module is a declaration container. It is the collaborator that accepts
// synthetic functions produced by field-initializer extraction.
type Module struct {
	Functions []*Function
	Fields    []*Field
}

// Block is an ordered statement list.
type Block struct {
	Stmts []Expr
}

func (n *Block) Type() Type            { return Unit }
func (n *Block) StatementShaped() bool { return true }

// Branch is one (condition, result) arm of a Cond.
type Branch struct {
	Cond   Expr
	Result Expr
}

// Cond is a multi-way conditional: ordered branches, first true condition
// wins, optional else. A Cond whose parts are all plain expressions is legal
// in value position (the emitter renders it as a ternary chain).
type Cond struct {
	Branches []Branch
	Else     Expr
	Typ      Type
}

func (n *Cond) Type() Type            { return n.Typ }
func (n *Cond) StatementShaped() bool { return false }

// LoopKind selects when the loop condition is checked.
type LoopKind int

const (
	// PreTest checks the condition before each iteration (while).
	PreTest LoopKind = iota
	// PostTest runs the body first and continues while the condition
	// holds (do/while).
	PostTest
)

// Loop is a pre-test or post-test loop. Jumps reference the loop they target
// by pointer; Label exists for the emitter and is only assigned when the
// pass synthesizes a wrapper loop.
type Loop struct {
	Kind  LoopKind
	Cond  Expr
	Body  Expr
	Label string
}

func (n *Loop) Type() Type            { return Unit }
func (n *Loop) StatementShaped() bool { return true }

// Break exits the target loop.
type Break struct {
	Target *Loop
}

func (n *Break) Type() Type            { return Nothing }
func (n *Break) StatementShaped() bool { return true }

// Continue finishes the current iteration of the target loop.
type Continue struct {
	Target *Loop
}

func (n *Continue) Type() Type            { return Nothing }
func (n *Continue) StatementShaped() bool { return true }

// Return exits the enclosing function. Value may be nil for unit returns.
type Return struct {
	Value Expr
}

func (n *Return) Type() Type            { return Nothing }
func (n *Return) StatementShaped() bool { return true }

// Throw raises Value as an exception.
type Throw struct {
	Value Expr
}

func (n *Throw) Type() Type            { return Nothing }
func (n *Throw) StatementShaped() bool { return true }

// VarDecl declares Var, optionally with an initializer.
type VarDecl struct {
	Var  *Variable
	Init Expr
}

func (n *VarDecl) Type() Type            { return Unit }
func (n *VarDecl) StatementShaped() bool { return true }

// SetVar writes Value into an already declared variable.
type SetVar struct {
	Var   *Variable
	Value Expr
}

func (n *SetVar) Type() Type            { return Unit }
func (n *SetVar) StatementShaped() bool { return true }

// GetVar reads a variable.
type GetVar struct {
	Var *Variable
}

func (n *GetVar) Type() Type            { return n.Var.Typ }
func (n *GetVar) StatementShaped() bool { return false }

// SetField writes Value into a field. Receiver may be nil for static fields.
// The receiver is evaluated before the value.
type SetField struct {
	Receiver Expr
	Field    string
	Value    Expr
}

func (n *SetField) Type() Type            { return Unit }
func (n *SetField) StatementShaped() bool { return true }

// GetField reads a field. Receiver may be nil for static fields.
type GetField struct {
	Receiver Expr
	Field    string
	Typ      Type
}

func (n *GetField) Type() Type            { return n.Typ }
func (n *GetField) StatementShaped() bool { return false }

// Call invokes Callee with the ordered argument list. Receiver, when
// present, is evaluated before the arguments.
type Call struct {
	Callee   string
	Receiver Expr
	Args     []Expr
	Typ      Type
}

func (n *Call) Type() Type            { return n.Typ }
func (n *Call) StatementShaped() bool { return false }

// VarargElem is one element of a Vararg, optionally spread.
type VarargElem struct {
	Value  Expr
	Spread bool
}

// Vararg is an ordered element list packed into a variadic argument.
type Vararg struct {
	Elems []VarargElem
	Typ   Type
}

func (n *Vararg) Type() Type            { return n.Typ }
func (n *Vararg) StatementShaped() bool { return false }

// StringConcat concatenates the string form of its ordered arguments.
type StringConcat struct {
	Args []Expr
}

func (n *StringConcat) Type() Type            { return String }
func (n *StringConcat) StatementShaped() bool { return false }

// Catch is one catch clause of a Try.
type Catch struct {
	Param *Variable
	Body  Expr
}

// Try evaluates Body, dispatching a raised exception to the first catch
// clause. Finally, when present, always runs.
type Try struct {
	Body    Expr
	Catches []Catch
	Finally Expr
	Typ     Type
}

func (n *Try) Type() Type            { return n.Typ }
func (n *Try) StatementShaped() bool { return true }

// Const is a literal. Value holds a bool, int64, float64 or string matching
// Typ; a Unit const carries nil.
type Const struct {
	Value any
	Typ   Type
}

func (n *Const) Type() Type            { return n.Typ }
func (n *Const) StatementShaped() bool { return false }

// Unop applies a unary operator ("!", "-").
type Unop struct {
	Op  string
	X   Expr
	Typ Type
}

func (n *Unop) Type() Type            { return n.Typ }
func (n *Unop) StatementShaped() bool { return false }

// Binop applies a binary operator. "&&" and "||" short-circuit.
type Binop struct {
	Op   string
	L, R Expr
	Typ  Type
}

func (n *Binop) Type() Type            { return n.Typ }
func (n *Binop) StatementShaped() bool { return false }

// UnreachableFunc is the reserved marker function used as the value token
// after a diverging jump in value position. It never executes.
const UnreachableFunc = "$unreachable"

// Unreachable builds a call to the reserved unreachable marker.
func Unreachable(t Type) *Call {
	return &Call{Callee: UnreachableFunc, Typ: t}
}

// UnitValue builds the unit placeholder value.
func UnitValue() *Const {
	return &Const{Typ: Unit}
}

// True builds the boolean literal true.
func True() *Const {
	return &Const{Value: true, Typ: Bool}
}

// False builds the boolean literal false.
func False() *Const {
	return &Const{Value: false, Typ: Bool}
}

// Not negates a boolean expression, unwrapping a direct double negation.
func Not(e Expr) Expr {
	if u, ok := e.(*Unop); ok && u.Op == "!" {
		return u.X
	}
	return &Unop{Op: "!", X: e, Typ: Bool}
}
