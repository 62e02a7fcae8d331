package ir

// Type is the static value type carried by every expression node.
type Type int

const (
	// Unit is the type of constructs evaluated only for effect.
	Unit Type = iota
	Bool
	Int
	Float
	String
	// Any is used where the frontend erased the precise type.
	Any
	// Nothing is the type of diverging constructs (jumps, throw); control
	// never falls through them, so no value of this type exists.
	Nothing
)

var typeNames = map[Type]string{
	Unit:    "unit",
	Bool:    "bool",
	Int:     "int",
	Float:   "float",
	String:  "string",
	Any:     "any",
	Nothing: "nothing",
}

func (t Type) String() string {
	if s, ok := typeNames[t]; ok {
		return s
	}
	return "invalid"
}
