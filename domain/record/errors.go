package record

import "errors"

// Domain errors for substrate operations.
var (
	// ErrNotFound is returned by point lookups when no record exists
	// under the requested key.
	ErrNotFound = errors.New("record not found")

	// ErrSchemaReduced is returned when an operation needs a table the
	// minimal schema does not carry.
	ErrSchemaReduced = errors.New("operation unavailable under minimal schema")

	// ErrClosed is returned when the substrate has been closed.
	ErrClosed = errors.New("store is closed")
)
