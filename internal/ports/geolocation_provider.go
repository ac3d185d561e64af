package ports

import (
	"context"
	"errors"
	"fmt"
	"vendor-map-service/internal/domain"
)

// Failure classes reported by a GeolocationProvider.
var (
	ErrPermissionDenied = errors.New("permission denied")
	ErrTimeout          = errors.New("timeout")
	ErrUnavailable      = errors.New("position unavailable")
)

// GeolocationError carries the failure class (one of the sentinels above)
// and the underlying cause, if any.
type GeolocationError struct {
	Kind error
	Err  error
}

func (e *GeolocationError) Error() string {
	if e.Err == nil {
		return "geolocation: " + e.Kind.Error()
	}
	return fmt.Sprintf("geolocation: %v: %v", e.Kind, e.Err)
}

// Is matches the failure class, so errors.Is(err, ErrTimeout) works.
func (e *GeolocationError) Is(target error) bool { return e.Kind == target }

func (e *GeolocationError) Unwrap() error { return e.Err }

// Contract for resolving the user's current position.
type GeolocationProvider interface {
	// Return the current coordinate or a *GeolocationError.
	CurrentCoordinate(ctx context.Context) (domain.Coordinates, error)
}

// GeolocationFunc adapts a function to GeolocationProvider.
type GeolocationFunc func(ctx context.Context) (domain.Coordinates, error)

func (f GeolocationFunc) CurrentCoordinate(ctx context.Context) (domain.Coordinates, error) {
	return f(ctx)
}

// AsGeolocationError maps err onto a *GeolocationError. Errors that are
// already classified pass through; context deadlines become ErrTimeout and
// anything else becomes ErrUnavailable.
func AsGeolocationError(err error) error {
	if err == nil {
		return nil
	}

	var ge *GeolocationError
	if errors.As(err, &ge) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &GeolocationError{Kind: ErrTimeout, Err: err}
	}
	return &GeolocationError{Kind: ErrUnavailable, Err: err}
}
