package bridge

import "errors"

// Addressing and validation errors. Unknown addresses are always
// recoverable: they surface to the caller and never panic the process.
var (
	// ErrUnsupportedEndpoint indicates the endpoint does not exist.
	ErrUnsupportedEndpoint = errors.New("bridge: unsupported endpoint")

	// ErrUnsupportedCluster indicates the cluster doesn't exist on the endpoint.
	ErrUnsupportedCluster = errors.New("bridge: unsupported cluster")

	// ErrUnsupportedAttribute indicates the attribute doesn't exist on the cluster.
	ErrUnsupportedAttribute = errors.New("bridge: unsupported attribute")

	// ErrUnsupportedCommand indicates the command doesn't exist on the cluster.
	ErrUnsupportedCommand = errors.New("bridge: unsupported command")

	// ErrUnsupportedWrite indicates the attribute doesn't support writes.
	ErrUnsupportedWrite = errors.New("bridge: unsupported write")

	// ErrConstraintError indicates a write violates a declared value constraint.
	// The resource state is unchanged.
	ErrConstraintError = errors.New("bridge: constraint error")

	// ErrInvalidArgument indicates malformed command fields.
	ErrInvalidArgument = errors.New("bridge: invalid argument")

	// ErrNotFound indicates the referenced entry does not exist.
	ErrNotFound = errors.New("bridge: not found")

	// ErrResourceExhausted indicates a capacity limit was reached.
	ErrResourceExhausted = errors.New("bridge: resource exhausted")
)
