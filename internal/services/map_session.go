package services

import (
	"context"
	"errors"
	"fmt"
	"html"
	"math"
	"strings"
	"sync"
	"vendor-map-service/internal/domain"
	"vendor-map-service/internal/platform/obs"
	"vendor-map-service/internal/ports"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

var ErrInvalidArgument = errors.New("invalid argument")

// selection identifies a SelectCategory call that has been issued but has
// not completed yet.
type selection struct {
	token    uint64
	category string
	rangeKm  float64
}

// sessionState is the live view. It is replaced wholesale on every
// successful selection.
type sessionState struct {
	origin       domain.Coordinates
	category     string
	rangeKm      float64
	viewport     ports.ViewportHandle
	originMarker ports.MarkerHandle
	vendors      []domain.VendorRecord
	markers      []ports.MarkerHandle
	byMarker     map[ports.MarkerHandle]int
	active       bool
}

// PlacedVendor is a vendor together with the marker showing it.
type PlacedVendor struct {
	Marker ports.MarkerHandle
	Vendor domain.VendorRecord
}

// SessionSnapshot is a read-only copy of the session state.
type SessionSnapshot struct {
	Active       bool
	Pending      bool
	Category     string
	RangeKm      float64
	Origin       domain.Coordinates
	Viewport     ports.ViewportHandle
	OriginMarker ports.MarkerHandle
	Vendors      []PlacedVendor
}

// MapSession owns the single interactive view: its viewport, the origin
// marker and one marker per sampled vendor.
//
// Selections may overlap while a geolocation lookup is pending. Each call
// takes a token when issued and its result is applied only if no later
// call has been issued since, so the most recent selection always wins.
// Rebuild, teardown and marker removal call the MapView with mu held. The
// drag callback calls the view without mu, and marker click callbacks take
// mu, so the view must never run callbacks from inside one of its own
// methods.
type MapSession struct {
	view      ports.MapView
	navigator ports.Navigator
	sampler   VendorSampler
	region    domain.BoundingRegion
	logger    log.Logger

	mu       sync.Mutex
	issued   uint64
	inFlight *selection
	state    sessionState
}

func NewMapSession(
	view ports.MapView,
	navigator ports.Navigator,
	sampler VendorSampler,
	logger log.Logger,
) *MapSession {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &MapSession{
		view:      view,
		navigator: navigator,
		sampler:   sampler,
		region:    domain.ServiceRegion,
		logger:    log.With(logger, "component", "map_session"),
	}
}

// SelectCategory shows vendors of category within rangeKm of the
// position reported by provider.
//
// Re-selecting the category and range that are already shown, or already
// being loaded, does nothing. A geolocation failure is returned and leaves
// the current view untouched. A result overtaken by a later selection is
// dropped and nil is returned.
func (s *MapSession) SelectCategory(
	ctx context.Context,
	category string,
	rangeKm float64,
	provider ports.GeolocationProvider,
) (err error) {
	defer obs.Time(ctx, s.logger, "session.SelectCategory")(&err)

	if strings.TrimSpace(category) == "" {
		return fmt.Errorf("select category: %w: category must be non-empty", ErrInvalidArgument)
	}
	if !(rangeKm > 0) || math.IsInf(rangeKm, 0) {
		return fmt.Errorf("select category: %w: range must be a positive number, got %v", ErrInvalidArgument, rangeKm)
	}
	if provider == nil {
		return errors.New("select category: geolocation provider must be non-nil")
	}

	s.mu.Lock()
	if s.alreadySelected(category, rangeKm) {
		s.mu.Unlock()
		level.Debug(s.logger).Log("msg", "selection unchanged", "category", category, "range_km", rangeKm)
		return nil
	}
	s.issued++
	token := s.issued
	s.inFlight = &selection{token: token, category: category, rangeKm: rangeKm}
	s.mu.Unlock()

	origin, err := locate(ctx, provider)
	if err == nil {
		if verr := origin.Validate(); verr != nil {
			err = &ports.GeolocationError{Kind: ports.ErrUnavailable, Err: verr}
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if token != s.issued {
		level.Debug(s.logger).Log("msg", "dropping stale selection", "category", category, "token", token, "latest", s.issued)
		return nil
	}
	s.inFlight = nil

	if err != nil {
		return fmt.Errorf("select category %q: %w", category, ports.AsGeolocationError(err))
	}

	s.rebuild(origin, category, rangeKm)

	level.Info(s.logger).Log(
		"msg", "view rebuilt",
		"category", category,
		"range_km", rangeKm,
		"origin", origin,
		"vendors", len(s.state.vendors),
	)
	return nil
}

// locate asks provider for the current coordinate but stops waiting once
// ctx is done, so a provider ignoring its context cannot keep a selection
// pending forever.
func locate(ctx context.Context, provider ports.GeolocationProvider) (domain.Coordinates, error) {
	type fix struct {
		coord domain.Coordinates
		err   error
	}

	ch := make(chan fix, 1)
	go func() {
		c, err := provider.CurrentCoordinate(ctx)
		ch <- fix{c, err}
	}()

	select {
	case f := <-ch:
		return f.coord, f.err
	case <-ctx.Done():
		return domain.Coordinates{}, ctx.Err()
	}
}

// Clear removes every vendor marker and leaves the viewport and origin
// marker in place. Clearing an inactive session does nothing.
func (s *MapSession) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.state.active {
		return
	}

	s.removeVendorMarkers()
	s.state.active = false

	level.Info(s.logger).Log("msg", "markers cleared", "category", s.state.category)
}

// Snapshot returns a copy of the current state.
func (s *MapSession) Snapshot() SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := SessionSnapshot{
		Active:       s.state.active,
		Pending:      s.inFlight != nil,
		Category:     s.state.category,
		RangeKm:      s.state.rangeKm,
		Origin:       s.state.origin,
		Viewport:     s.state.viewport,
		OriginMarker: s.state.originMarker,
		Vendors:      make([]PlacedVendor, 0, len(s.state.vendors)),
	}
	for i, v := range s.state.vendors {
		snap.Vendors = append(snap.Vendors, PlacedVendor{Marker: s.state.markers[i], Vendor: v})
	}
	return snap
}

func (s *MapSession) alreadySelected(category string, rangeKm float64) bool {
	if s.inFlight != nil {
		return s.inFlight.category == category && s.inFlight.rangeKm == rangeKm
	}
	return s.state.active && s.state.category == category && s.state.rangeKm == rangeKm
}

// rebuild replaces the view. The previous generation is fully removed
// before the first new marker is added. Caller holds mu.
func (s *MapSession) rebuild(origin domain.Coordinates, category string, rangeKm float64) {
	s.teardown()

	sw, ne := s.region.SW, s.region.NE

	vp := s.view.CreateViewport(origin, domain.DefaultZoom)
	s.view.SetBounds(vp, sw, ne)
	s.view.OnDrag(vp, func() { s.view.PanInsideBounds(vp, sw, ne) })

	originMarker := s.view.AddMarker(vp, origin, ports.IconOrigin)
	s.view.BindPopup(originMarker, domain.OriginPopup)

	vendors := s.sampler.SampleVendors(origin, category, domain.VendorCount, rangeKm)

	markers := make([]ports.MarkerHandle, 0, len(vendors))
	byMarker := make(map[ports.MarkerHandle]int, len(vendors))
	for i, v := range vendors {
		m := s.view.AddMarker(vp, v.Coordinate, ports.IconVendor)
		s.view.BindPopup(m, vendorPopup(v))
		s.view.OnClick(m, func(ctx context.Context) { s.openVendor(ctx, m) })

		markers = append(markers, m)
		byMarker[m] = i
	}

	s.state = sessionState{
		origin:       origin,
		category:     category,
		rangeKm:      rangeKm,
		viewport:     vp,
		originMarker: originMarker,
		vendors:      vendors,
		markers:      markers,
		byMarker:     byMarker,
		active:       true,
	}
}

// teardown releases every marker and the viewport. Caller holds mu.
func (s *MapSession) teardown() {
	if s.state.viewport == "" {
		return
	}

	s.removeVendorMarkers()
	if s.state.originMarker != "" {
		s.view.RemoveMarker(s.state.viewport, s.state.originMarker)
	}
	s.view.DestroyViewport(s.state.viewport)

	s.state = sessionState{}
}

func (s *MapSession) removeVendorMarkers() {
	for _, m := range s.state.markers {
		s.view.RemoveMarker(s.state.viewport, m)
	}
	s.state.markers = nil
	s.state.vendors = nil
	s.state.byMarker = nil
}

// openVendor resolves the clicked marker to its vendor and navigates to the
// vendor's details page. Clicks on retired markers are ignored.
func (s *MapSession) openVendor(ctx context.Context, m ports.MarkerHandle) {
	s.mu.Lock()
	idx, ok := s.state.byMarker[m]
	var v domain.VendorRecord
	if ok {
		v = s.state.vendors[idx]
	}
	s.mu.Unlock()

	if !ok {
		level.Debug(s.logger).Log("msg", "click on retired marker", "marker", m)
		return
	}

	if err := s.navigator.GoToVendorDetails(ctx, v.Details()); err != nil {
		level.Error(s.logger).Log("msg", "navigate to vendor details", "vendor", v.Name, "err", err)
	}
}

func vendorPopup(v domain.VendorRecord) string {
	return fmt.Sprintf(
		"<b>%s</b><br>%s<br>%s",
		html.EscapeString(v.Name),
		html.EscapeString(v.Category),
		html.EscapeString(v.Address),
	)
}
