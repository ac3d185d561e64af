package ports

import (
	"context"
	"vendor-map-service/internal/domain"
)

// Boundary to page navigation in the host environment.
type Navigator interface {
	// Transfer control to the details page of the given vendor.
	GoToVendorDetails(ctx context.Context, v domain.VendorDetails) error
}
