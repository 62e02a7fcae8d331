// Package lower implements the expression decomposition pass.
//
// Two cooperating transformers walk a function body: the statement-context
// transformer handles nodes already in statement position, and the
// expression-context transformer handles nodes in value position. The
// expression transformer returns a Composite (hoisted statement prefix plus
// trailing value); wherever a statement list is rebuilt, Composites are
// spliced in place, so none survive into the output tree.
package lower
