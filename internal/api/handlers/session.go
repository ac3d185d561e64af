package handlers

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"strings"
	"time"
	"vendor-map-service/internal/adapters/geolocation"
	"vendor-map-service/internal/adapters/mapview"
	"vendor-map-service/internal/adapters/navigation"
	"vendor-map-service/internal/api/dto"
	"vendor-map-service/internal/domain"
	"vendor-map-service/internal/ports"
	"vendor-map-service/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/paulmach/orb/geojson"
)

// Radius around a tapped point in which a marker counts as hit.
const hitToleranceKm = 0.1

// SessionHandler exposes the map session and the user-facing side of the
// map view (clicks, drags) over HTTP.
type SessionHandler struct {
	Session        *services.MapSession
	View           *mapview.MemoryView
	Provider       ports.GeolocationProvider
	Categories     []string
	DefaultRangeKm float64
	// LocateTimeout bounds the geolocation lookup of a selection; zero
	// leaves it to the request context.
	LocateTimeout time.Duration
	Logger        log.Logger
}

// Select switches the view to the requested category and range.
// A lat/lon pair in the body (the browser's position) takes precedence
// over the server-side provider.
func (h *SessionHandler) Select(w http.ResponseWriter, r *http.Request) {
	var req dto.SelectRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.Logger, http.StatusBadRequest, err.Error())
		return
	}

	category := strings.TrimSpace(req.Category)
	if category == "" {
		writeError(w, r, h.Logger, http.StatusBadRequest, "category is required")
		return
	}
	if !slices.Contains(h.Categories, category) {
		writeError(w, r, h.Logger, http.StatusBadRequest, "unknown category")
		return
	}

	rangeKm := h.DefaultRangeKm
	if req.RangeKm != nil {
		rangeKm = *req.RangeKm
	}

	provider := h.Provider
	if req.Lat != nil || req.Lon != nil {
		if req.Lat == nil || req.Lon == nil {
			writeError(w, r, h.Logger, http.StatusBadRequest, "lat and lon must be given together")
			return
		}
		c := domain.Coordinates{Lat: *req.Lat, Lon: *req.Lon}
		if err := c.Validate(); err != nil {
			writeError(w, r, h.Logger, http.StatusBadRequest, err.Error())
			return
		}
		provider = geolocation.NewStaticProvider(c)
	}

	ctx := r.Context()
	if h.LocateTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.LocateTimeout)
		defer cancel()
	}

	if err := h.Session.SelectCategory(ctx, category, rangeKm, provider); err != nil {
		status, msg := selectErrorStatus(err)
		level.Warn(h.Logger).Log("msg", "select category failed", "category", category, "err", err)
		writeError(w, r, h.Logger, status, msg)
		return
	}

	writeJSON(w, r, h.Logger, http.StatusOK, snapshotResponse(h.Session.Snapshot()))
}

func selectErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, services.ErrInvalidArgument):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, ports.ErrPermissionDenied):
		return http.StatusForbidden, "location permission denied"
	case errors.Is(err, ports.ErrTimeout):
		return http.StatusGatewayTimeout, "location request timed out"
	case errors.Is(err, ports.ErrUnavailable):
		return http.StatusServiceUnavailable, "location unavailable"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, h.Logger, http.StatusOK, snapshotResponse(h.Session.Snapshot()))
}

func (h *SessionHandler) Clear(w http.ResponseWriter, r *http.Request) {
	h.Session.Clear()
	writeJSON(w, r, h.Logger, http.StatusOK, snapshotResponse(h.Session.Snapshot()))
}

// Markers renders everything currently drawn on the viewport as GeoJSON.
func (h *SessionHandler) Markers(w http.ResponseWriter, r *http.Request) {
	snap := h.Session.Snapshot()

	fc := geojson.NewFeatureCollection()
	if info, ok := h.View.Viewport(snap.Viewport); ok {
		vendors := make(map[ports.MarkerHandle]domain.VendorRecord, len(snap.Vendors))
		for _, pv := range snap.Vendors {
			vendors[pv.Marker] = pv.Vendor
		}

		fc = info.FeatureCollection(func(m mapview.MarkerInfo) map[string]any {
			v, ok := vendors[m.ID]
			if !ok {
				return nil
			}
			return map[string]any{
				"name":        v.Name,
				"category":    v.Category,
				"address":     v.Address,
				"distance_km": snap.Origin.DistanceKm(v.Coordinate),
			}
		})
	}

	b, err := fc.MarshalJSON()
	if err != nil {
		level.Error(h.Logger).Log("msg", "encode geojson", "err", err)
		writeError(w, r, h.Logger, http.StatusInternalServerError, "internal server error")
		return
	}

	w.Header().Set("Content-Type", "application/geo+json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b)
}

// Click fires the marker's click listeners and redirects to the page the
// session navigated to.
func (h *SessionHandler) Click(w http.ResponseWriter, r *http.Request) {
	h.click(w, r, ports.MarkerHandle(chi.URLParam(r, "id")))
}

// Hit clicks the marker closest to the given point.
func (h *SessionHandler) Hit(w http.ResponseWriter, r *http.Request) {
	at, ok := h.decodePoint(w, r)
	if !ok {
		return
	}

	snap := h.Session.Snapshot()
	m, found := h.View.MarkerAt(snap.Viewport, at, hitToleranceKm)
	if !found {
		writeError(w, r, h.Logger, http.StatusNotFound, "no marker at point")
		return
	}
	h.click(w, r, m)
}

func (h *SessionHandler) click(w http.ResponseWriter, r *http.Request, m ports.MarkerHandle) {
	ctx, redirect := navigation.WithRedirect(r.Context())
	if err := h.View.Click(ctx, m); err != nil {
		if errors.Is(err, mapview.ErrUnknownMarker) {
			writeError(w, r, h.Logger, http.StatusNotFound, "marker not found")
			return
		}
		level.Error(h.Logger).Log("msg", "click marker", "marker", m, "err", err)
		writeError(w, r, h.Logger, http.StatusInternalServerError, "internal server error")
		return
	}

	target, ok := redirect.Target()
	if !ok {
		writeError(w, r, h.Logger, http.StatusNotFound, "marker has no vendor")
		return
	}

	w.Header().Set("Location", target)
	writeJSON(w, r, h.Logger, http.StatusSeeOther, dto.NavigationResponse{Location: target})
}

// Drag moves the viewport as a pointer drag would; the response carries
// the center after it was pulled back inside the service region.
func (h *SessionHandler) Drag(w http.ResponseWriter, r *http.Request) {
	to, ok := h.decodePoint(w, r)
	if !ok {
		return
	}

	snap := h.Session.Snapshot()
	center, err := h.View.Drag(snap.Viewport, to)
	if err != nil {
		writeError(w, r, h.Logger, http.StatusConflict, "no active viewport")
		return
	}

	writeJSON(w, r, h.Logger, http.StatusOK, dto.DragResponse{
		Viewport: string(snap.Viewport),
		Center:   coordinateResponse(center),
	})
}

func (h *SessionHandler) decodePoint(w http.ResponseWriter, r *http.Request) (domain.Coordinates, bool) {
	var req dto.PointRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.Logger, http.StatusBadRequest, err.Error())
		return domain.Coordinates{}, false
	}
	if req.Lat == nil || req.Lon == nil {
		writeError(w, r, h.Logger, http.StatusBadRequest, "lat and lon are required")
		return domain.Coordinates{}, false
	}

	c := domain.Coordinates{Lat: *req.Lat, Lon: *req.Lon}
	if err := c.Validate(); err != nil {
		writeError(w, r, h.Logger, http.StatusBadRequest, err.Error())
		return domain.Coordinates{}, false
	}
	return c, true
}

func coordinateResponse(c domain.Coordinates) dto.CoordinateResponse {
	return dto.CoordinateResponse{Lat: c.Lat, Lon: c.Lon}
}

func snapshotResponse(s services.SessionSnapshot) dto.SessionResponse {
	res := dto.SessionResponse{
		Active:       s.Active,
		Pending:      s.Pending,
		Category:     s.Category,
		RangeKm:      s.RangeKm,
		Viewport:     string(s.Viewport),
		OriginMarker: string(s.OriginMarker),
		Vendors:      make([]dto.VendorResponse, 0, len(s.Vendors)),
	}
	if s.Viewport != "" {
		o := coordinateResponse(s.Origin)
		res.Origin = &o
	}

	for _, pv := range s.Vendors {
		res.Vendors = append(res.Vendors, dto.VendorResponse{
			Marker:     string(pv.Marker),
			Name:       pv.Vendor.Name,
			Category:   pv.Vendor.Category,
			Address:    pv.Vendor.Address,
			Coordinate: coordinateResponse(pv.Vendor.Coordinate),
			DistanceKm: s.Origin.DistanceKm(pv.Vendor.Coordinate),
		})
	}
	return res
}
