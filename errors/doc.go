// Package errors provides structured error types for the evemu binding.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type carries the native entry point or operation, the file path
// involved, the native status value and the cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseNative, errors.KindNativeFailure).
//		Op("evemu_extract").
//		Path("/dev/input/event3").
//		Value(-13).
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.Unbound("read")
//	err := errors.NativeStatus("evemu_read", path, ret)
//
// Usage errors (a precondition violated by the caller) are detected before any
// native call is made and can be recognized with IsUsage or errors.Is against
// ErrUnbound.
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
