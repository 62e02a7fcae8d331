// Package errors provides structured error types for the decompose library.
//
// Errors are categorized by Phase (which stage of the pass failed) and Kind
// (error category). Every condition reported here is a broken input
// invariant: the pass assumes well-formed, type-resolved trees and treats a
// violation as fatal for the whole unit, never as retryable.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseLower, errors.KindUnsupported).
//		Node("*mylang.Splice").
//		Detail("no lowering rule for this construct").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.Unsupported(errors.PhaseLower, node)
//	err := errors.UnboundJump(errors.PhaseLower, "break", "loop$2")
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
