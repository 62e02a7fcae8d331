package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in the pass the error occurred
type Phase string

const (
	PhaseLower    Phase = "lower"    // statement/expression transformation
	PhaseRetarget Phase = "retarget" // jump retargeting
	PhaseExtract  Phase = "extract"  // field-initializer extraction
	PhaseVerify   Phase = "verify"   // restricted-form verification
)

// Kind categorizes the error
type Kind string

const (
	KindUnsupported   Kind = "unsupported"    // no rule for a node shape
	KindUnboundJump   Kind = "unbound_jump"   // jump target not lexically enclosing
	KindMalformed     Kind = "malformed"      // structurally invalid input tree
	KindMissingMember Kind = "missing_member" // required declaration data absent
	KindNotRestricted Kind = "not_restricted" // statement construct in value position
)

// Error is the structured error type used throughout the library
type Error struct {
	Cause  error
	Phase  Phase
	Kind   Kind
	Node   string
	Detail string
	Path   []string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.Node != "" {
		b.WriteString(": node ")
		b.WriteString(e.Node)
	}

	if e.Detail != "" {
		if e.Node != "" {
			b.WriteString(" - ")
		} else {
			b.WriteString(": ")
		}
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Path sets the declaration path (function, field)
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// Node sets the offending node description
func (b *Builder) Node(node string) *Builder {
	b.err.Node = node
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// Unsupported creates a no-rule-for-this-construct error
func Unsupported(phase Phase, node any) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		Node:   fmt.Sprintf("%T", node),
		Detail: "no lowering rule for this construct",
	}
}

// UnboundJump creates an error for a jump whose target does not lexically
// enclose it
func UnboundJump(phase Phase, jump, target string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnboundJump,
		Detail: fmt.Sprintf("%s references loop %q which does not enclose it", jump, target),
	}
}

// Malformed creates a structurally-invalid-input error
func Malformed(phase Phase, node any, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindMalformed,
		Node:   fmt.Sprintf("%T", node),
		Detail: detail,
	}
}

// MissingMember creates an error for required declaration data that is absent
func MissingMember(phase Phase, path []string, member string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindMissingMember,
		Path:   path,
		Detail: fmt.Sprintf("required member %q not found", member),
	}
}

// NotRestricted creates an error for a statement-shaped construct found in
// value position
func NotRestricted(node any, path ...string) *Error {
	return &Error{
		Phase:  PhaseVerify,
		Kind:   KindNotRestricted,
		Node:   fmt.Sprintf("%T", node),
		Path:   path,
		Detail: "statement-shaped construct in expression position",
	}
}
