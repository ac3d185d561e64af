package dto

type CategoriesResponse struct {
	Categories     []string `json:"categories"`
	DefaultRangeKm float64  `json:"default_range_km"`
}

type MessageResponse struct {
	Message string `json:"message"`
}
