package dto

type SelectRequest struct {
	Category string   `json:"category"`
	RangeKm  *float64 `json:"range_km"`
	Lat      *float64 `json:"lat"`
	Lon      *float64 `json:"lon"`
}

type PointRequest struct {
	Lat *float64 `json:"lat"`
	Lon *float64 `json:"lon"`
}

type CoordinateResponse struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type VendorResponse struct {
	Marker     string             `json:"marker"`
	Name       string             `json:"name"`
	Category   string             `json:"category"`
	Address    string             `json:"address"`
	Coordinate CoordinateResponse `json:"coordinate"`
	DistanceKm float64            `json:"distance_km"`
}

type SessionResponse struct {
	Active       bool                `json:"active"`
	Pending      bool                `json:"pending"`
	Category     string              `json:"category,omitempty"`
	RangeKm      float64             `json:"range_km,omitempty"`
	Origin       *CoordinateResponse `json:"origin,omitempty"`
	Viewport     string              `json:"viewport,omitempty"`
	OriginMarker string              `json:"origin_marker,omitempty"`
	Vendors      []VendorResponse    `json:"vendors"`
}

type DragResponse struct {
	Viewport string             `json:"viewport"`
	Center   CoordinateResponse `json:"center"`
}

type NavigationResponse struct {
	Location string `json:"location"`
}
