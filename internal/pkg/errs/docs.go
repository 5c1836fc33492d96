// Package errs provides standardized error types for the ordering service.
// It implements a consistent pattern for error creation, formatting, and unwrapping
// that is used throughout the application.
//
// The package includes several error types for common error scenarios:
//   - ValueIsRequiredError: For when a required value is missing
//   - ValueIsInvalidError: For when a value is invalid
//   - ObjectNotFoundError: For when an object cannot be found
//   - InvalidTransitionError: For a state machine edge that does not exist
//   - ConflictError: For a rejected transition or a lost optimistic-concurrency race
//   - TransientError / UnavailableError: For infrastructure blips and exceeded time budgets
//   - DeliveryFailedError: For an outbox entry that exhausted its retry budget
//
// Each error type follows a consistent pattern:
//   - A sentinel error variable (e.g., ErrValueIsRequired)
//   - A struct type with fields for error details
//   - Constructor functions with and without cause
//   - Error() method for formatting the error message
//   - Unwrap() method for error wrapping/unwrapping support
//
// IsRejected and IsRetryable split every error into "won't succeed on retry
// without a change" and "try again", which is what callers at the command
// boundary and the inbound consumer act on.
package errs
