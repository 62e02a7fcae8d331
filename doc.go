// Package decompose eliminates control-flow constructs from expression
// position in a tree-shaped IR.
//
// Frontends for expression-oriented source languages produce trees in which
// loops, multi-way conditionals, try/catch, assignments and jumps may appear
// anywhere a value is expected: as a call argument, inside a string
// concatenation, as the right-hand side of a field write. Targets whose
// control flow is restricted to statement position cannot express that
// directly. This pass rewrites every such occurrence into an equivalent
// statement sequence computing the same value with the same observable
// evaluation order and side effects.
//
// # How It Works
//
// Two cooperating tree transformers walk each function body:
//
//  1. The statement-context transformer visits nodes already in statement
//     position. Loops and conditionals whose conditions hoist side effects
//     are restructured so the side effects become statements preceding a
//     plain test.
//  2. The expression-context transformer visits nodes in value position.
//     Statement-shaped constructs become a hoisted statement prefix plus a
//     trailing value; argument lists are rewritten left to right, pinning
//     earlier values into single-assignment temps whenever a later argument
//     hoists side effects.
//
// A small third transformer retargets break/continue jumps when a loop is
// wrapped inside a synthetic helper loop.
//
// # Usage
//
// Lower a single function in place:
//
//	err := decompose.Function(fn, decompose.Config{})
//
// Calls are not statement-shaped on their own. When a later pipeline stage
// expands certain callees into statements (inlining, suspension points),
// mark them so their calls are hoisted out of expression position too:
//
//	err := decompose.Function(fn, decompose.Config{
//	    HoistCalls: []string{"log", "await"},
//	})
//
// Lower a whole declaration container, four functions at a time:
//
//	err := decompose.Module(mod, decompose.Config{Workers: 4})
//
// Field initializers that need hoisting produce a synthetic zero-argument
// function:
//
//	accessor, err := decompose.Field(field, decompose.Config{})
//	if accessor != nil {
//	    mod.Functions = append(mod.Functions, accessor)
//	}
//
// # Guarantees
//
// For well-formed, type-resolved input the pass is total and deterministic:
//
//   - No statement-shaped construct remains in expression position
//     (checkable with ir.VerifyRestricted).
//   - Left-to-right evaluation order and side-effect timing are preserved
//     exactly.
//   - Re-running the pass on lowered output is a no-op.
//
// Errors signal broken input invariants (a jump referencing a loop that does
// not enclose it, an unknown node shape) and abort the whole unit; there is
// no partial output.
package decompose
