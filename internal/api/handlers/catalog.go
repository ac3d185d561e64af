package handlers

import (
	"net/http"
	"vendor-map-service/internal/api/dto"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

const bargainMessage = "Request for bargain sent to all vendors."

// CatalogHandler serves the category buttons and the bargain request
// button of the map page.
type CatalogHandler struct {
	Categories     []string
	DefaultRangeKm float64
	Logger         log.Logger
}

func (h *CatalogHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, h.Logger, http.StatusOK, dto.CategoriesResponse{
		Categories:     h.Categories,
		DefaultRangeKm: h.DefaultRangeKm,
	})
}

// Bargain only acknowledges the request; nothing is sent or stored.
func (h *CatalogHandler) Bargain(w http.ResponseWriter, r *http.Request) {
	level.Info(h.Logger).Log("msg", "bargain requested")
	writeJSON(w, r, h.Logger, http.StatusOK, dto.MessageResponse{Message: bargainMessage})
}
