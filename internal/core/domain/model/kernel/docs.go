// Package kernel provides the shared primitives of the ordering domain model.
//
// The package includes:
//   - UUID: a validated, immutable identifier used for orders, buyers and events
//
// A zero UUID is never valid; every identifier must come from NewUUID,
// NewTimeOrderedUUID, UUIDFromString or UUIDFromBytes.
package kernel
