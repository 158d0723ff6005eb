package driver

import (
	"errors"
	"fmt"
)

// Sentinel errors shared by all driver implementations.
var (
	// ErrTokenRequired is returned when a driver is constructed
	// without an access token.
	ErrTokenRequired = errors.New("token is required")

	// ErrRepoRequired is returned when neither an explicit repository
	// URI nor a CI environment fallback yields a usable repository.
	ErrRepoRequired = errors.New("repository is required")

	// ErrUnknownKind is returned by the factory for unrecognized
	// driver kinds.
	ErrUnknownKind = errors.New("unknown driver")

	// ErrNotFound is returned when a resolution-required lookup
	// (such as unregistering a runner by name) matches nothing.
	ErrNotFound = errors.New("not found")
)

// UnsupportedError reports a capability a platform does not implement.
// Variants fail with it explicitly rather than silently degrading.
type UnsupportedError struct {
	Kind       Kind
	Capability string
}

func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("%s does not support %s", e.Kind, e.Capability)
}

// Unsupported builds an [UnsupportedError] for the given capability.
func Unsupported(kind Kind, capability string) error {
	return &UnsupportedError{Kind: kind, Capability: capability}
}

// IsUnsupported reports whether err is an unsupported-capability error.
func IsUnsupported(err error) bool {
	var ue *UnsupportedError
	return errors.As(err, &ue)
}
