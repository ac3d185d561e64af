package ports

import (
	"context"
	"vendor-map-service/internal/domain"
)

// Opaque handles issued by a MapView.
type (
	ViewportHandle string
	MarkerHandle   string
)

// Marker appearance.
type IconStyle int

const (
	IconVendor IconStyle = iota
	IconOrigin
)

func (s IconStyle) String() string {
	if s == IconOrigin {
		return "origin"
	}
	return "vendor"
}

// Boundary to the rendering surface (tiles, popups and pointer events).
// Callbacks are invoked without any MapView lock held.
type MapView interface {
	CreateViewport(center domain.Coordinates, zoom int) ViewportHandle
	DestroyViewport(vp ViewportHandle)
	SetBounds(vp ViewportHandle, sw, ne domain.Coordinates)
	OnDrag(vp ViewportHandle, fn func())
	PanInsideBounds(vp ViewportHandle, sw, ne domain.Coordinates)
	AddMarker(vp ViewportHandle, at domain.Coordinates, icon IconStyle) MarkerHandle
	RemoveMarker(vp ViewportHandle, m MarkerHandle)
	BindPopup(m MarkerHandle, html string)
	OnClick(m MarkerHandle, fn func(ctx context.Context))
}
