// Package ir defines the tree intermediate representation consumed and
// produced by the decomposition pass.
//
// The IR is expression-oriented: loops, conditionals, try/catch, assignments
// and jumps are expressions like everything else, so the frontend may place
// them anywhere a value is expected. The decompose pass rewrites a tree into
// the restricted form, where statement-shaped constructs appear only inside
// statement lists. VerifyRestricted checks that property.
package ir
