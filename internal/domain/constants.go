package domain

// Fixed values shared with the map page and the vendor details page.
const (
	EarthRadiusKm  = 6371.0
	DefaultZoom    = 10
	VendorCount    = 25
	DefaultRangeKm = 5.0

	OriginPopup = "Your Location"
)

// Category buttons offered by the map page.
var DefaultCategories = []string{"Fruits", "Snacks", "Veggies"}

// Serviceable region shown by the map (country-level box).
var ServiceRegion = NewBoundingRegion(
	Coordinates{Lat: 6.75, Lon: 68.16},
	Coordinates{Lat: 35.5, Lon: 97.4},
)
