package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"
	"time"
	"vendor-map-service/internal/adapters/geolocation"
	"vendor-map-service/internal/adapters/mapview"
	"vendor-map-service/internal/adapters/navigation"
	"vendor-map-service/internal/domain"
	"vendor-map-service/internal/ports"
)

var delhi = domain.Coordinates{Lat: 28.6, Lon: 77.2}

type sessionFixture struct {
	view    *mapview.MemoryView
	nav     *navigation.LinkNavigator
	session *MapSession
}

func newSessionFixture() *sessionFixture {
	view := mapview.NewMemoryView(nil)
	nav := navigation.NewLinkNavigator("vendor-details.html", nil)
	return &sessionFixture{
		view:    view,
		nav:     nav,
		session: NewMapSession(view, nav, newTestSampler(11), nil),
	}
}

func (f *sessionFixture) mustSelect(t *testing.T, category string, rangeKm float64, p ports.GeolocationProvider) SessionSnapshot {
	t.Helper()
	if err := f.session.SelectCategory(context.Background(), category, rangeKm, p); err != nil {
		t.Fatalf("select %s: unexpected error: %v", category, err)
	}
	return f.session.Snapshot()
}

// click delivers a click and returns the navigation target, if any.
func (f *sessionFixture) click(t *testing.T, m ports.MarkerHandle) (string, error) {
	t.Helper()
	ctx, r := navigation.WithRedirect(context.Background())
	if err := f.view.Click(ctx, m); err != nil {
		return "", err
	}
	target, _ := r.Target()
	return target, nil
}

func TestSelectCategoryBuildsView(t *testing.T) {
	f := newSessionFixture()

	snap := f.mustSelect(t, "Veggies", 5, geolocation.NewScriptedProvider(delhi))

	if !snap.Active || snap.Category != "Veggies" || snap.RangeKm != 5 || snap.Origin != delhi {
		t.Fatalf("snapshot = %+v", snap)
	}
	if len(snap.Vendors) != domain.VendorCount {
		t.Fatalf("vendors = %d, want %d", len(snap.Vendors), domain.VendorCount)
	}

	info, ok := f.view.Viewport(snap.Viewport)
	if !ok {
		t.Fatalf("viewport %q not rendered", snap.Viewport)
	}
	if info.Center != delhi || info.Zoom != domain.DefaultZoom {
		t.Fatalf("viewport center=%v zoom=%d", info.Center, info.Zoom)
	}
	if info.Bounds == nil || info.Bounds.SW != domain.ServiceRegion.SW || info.Bounds.NE != domain.ServiceRegion.NE {
		t.Fatalf("viewport bounds = %+v", info.Bounds)
	}
	if len(info.Markers) != domain.VendorCount+1 {
		t.Fatalf("rendered markers = %d, want %d", len(info.Markers), domain.VendorCount+1)
	}

	origin := info.Markers[0]
	if origin.ID != snap.OriginMarker || origin.Icon != ports.IconOrigin || origin.Popup != domain.OriginPopup {
		t.Fatalf("origin marker = %+v", origin)
	}
	if target, err := f.click(t, origin.ID); err != nil || target != "" {
		t.Fatalf("origin click navigated to %q (err %v)", target, err)
	}

	for i, pv := range snap.Vendors {
		if d := delhi.DistanceKm(pv.Vendor.Coordinate); d > 5*1.01 {
			t.Fatalf("vendor %d is %.3f km away", i+1, d)
		}

		target, err := f.click(t, pv.Marker)
		if err != nil {
			t.Fatalf("click vendor %d: %v", i+1, err)
		}
		want := fmt.Sprintf(
			"vendor-details.html?name=Veggies%%20Vendor%%20%d&category=Veggies&address=Address%%20%d%%2C%%20City",
			i+1, i+1,
		)
		if target != want {
			t.Fatalf("vendor %d navigated to %q, want %q", i+1, target, want)
		}
	}

	if s := f.view.Stats(); s.Viewports != 1 || s.DragHandlers != 1 || s.ClickHandlers != domain.VendorCount {
		t.Fatalf("view stats = %+v", s)
	}
}

func TestSelectCategoryIsIdempotent(t *testing.T) {
	f := newSessionFixture()
	p := geolocation.NewScriptedProvider(delhi)

	first := f.mustSelect(t, "Fruits", 5, p)
	second := f.mustSelect(t, "Fruits", 5, p)

	if p.Calls() != 1 {
		t.Fatalf("geolocation calls = %d, want 1", p.Calls())
	}
	if first.Viewport != second.Viewport || first.Vendors[0].Marker != second.Vendors[0].Marker {
		t.Fatalf("view was rebuilt on re-selection")
	}
}

func TestSelectCategoryRebuildsWithoutLeaks(t *testing.T) {
	f := newSessionFixture()
	p := geolocation.NewScriptedProvider(delhi)

	fruits := f.mustSelect(t, "Fruits", 5, p)

	steps := []struct {
		category string
		rangeKm  float64
	}{
		{"Snacks", 5},
		{"Snacks", 10},
		{"Fruits", 10},
	}

	prev := fruits
	for _, st := range steps {
		snap := f.mustSelect(t, st.category, st.rangeKm, p)

		if snap.Viewport == prev.Viewport {
			t.Fatalf("%s/%v: viewport reused", st.category, st.rangeKm)
		}
		if _, ok := f.view.Viewport(prev.Viewport); ok {
			t.Fatalf("%s/%v: previous viewport still rendered", st.category, st.rangeKm)
		}
		if _, err := f.click(t, prev.Vendors[0].Marker); !errors.Is(err, mapview.ErrUnknownMarker) {
			t.Fatalf("%s/%v: old marker click err = %v, want %v", st.category, st.rangeKm, err, mapview.ErrUnknownMarker)
		}

		s := f.view.Stats()
		want := mapview.Stats{
			Viewports:     1,
			Markers:       domain.VendorCount + 1,
			DragHandlers:  1,
			ClickHandlers: domain.VendorCount,
		}
		if s != want {
			t.Fatalf("%s/%v: view stats = %+v, want %+v", st.category, st.rangeKm, s, want)
		}

		for _, pv := range snap.Vendors {
			if pv.Vendor.Category != st.category {
				t.Fatalf("%s/%v: vendor %q has category %q", st.category, st.rangeKm, pv.Vendor.Name, pv.Vendor.Category)
			}
		}
		prev = snap
	}

	if p.Calls() != 1+len(steps) {
		t.Fatalf("geolocation calls = %d, want %d", p.Calls(), 1+len(steps))
	}
}

func TestClear(t *testing.T) {
	f := newSessionFixture()
	p := geolocation.NewScriptedProvider(delhi)

	// Clearing an empty session is a no-op.
	f.session.Clear()

	before := f.mustSelect(t, "Snacks", 5, p)

	f.session.Clear()
	snap := f.session.Snapshot()

	if snap.Active || len(snap.Vendors) != 0 {
		t.Fatalf("after clear: active=%v vendors=%d", snap.Active, len(snap.Vendors))
	}

	info, ok := f.view.Viewport(before.Viewport)
	if !ok {
		t.Fatalf("clear destroyed the viewport")
	}
	if len(info.Markers) != 1 || info.Markers[0].ID != before.OriginMarker {
		t.Fatalf("after clear rendered markers = %+v, want only the origin marker", info.Markers)
	}

	f.session.Clear()
	if s := f.view.Stats(); s.Markers != 1 || s.ClickHandlers != 0 {
		t.Fatalf("second clear changed the view: %+v", s)
	}

	// Re-selecting the cleared category brings the markers back.
	again := f.mustSelect(t, "Snacks", 5, p)
	if !again.Active || len(again.Vendors) != domain.VendorCount {
		t.Fatalf("reselect after clear: active=%v vendors=%d", again.Active, len(again.Vendors))
	}
	if p.Calls() != 2 {
		t.Fatalf("geolocation calls = %d, want 2", p.Calls())
	}
}

func TestSelectCategoryGeolocationFailureKeepsState(t *testing.T) {
	kinds := []error{ports.ErrPermissionDenied, ports.ErrTimeout, ports.ErrUnavailable}

	for _, kind := range kinds {
		t.Run(kind.Error(), func(t *testing.T) {
			f := newSessionFixture()

			err := f.session.SelectCategory(context.Background(), "Fruits", 5, geolocation.NewFailingProvider(kind))
			if !errors.Is(err, kind) {
				t.Fatalf("err = %v, want kind %v", err, kind)
			}
			if s := f.view.Stats(); s != (mapview.Stats{}) {
				t.Fatalf("failed first selection touched the view: %+v", s)
			}

			before := f.mustSelect(t, "Fruits", 5, geolocation.NewScriptedProvider(delhi))

			err = f.session.SelectCategory(context.Background(), "Snacks", 5, geolocation.NewFailingProvider(kind))
			if !errors.Is(err, kind) {
				t.Fatalf("err = %v, want kind %v", err, kind)
			}

			after := f.session.Snapshot()
			if after.Category != "Fruits" || after.Viewport != before.Viewport || len(after.Vendors) != domain.VendorCount {
				t.Fatalf("state changed after failure: %+v", after)
			}
			if after.Pending {
				t.Fatalf("failed selection left pending")
			}
		})
	}
}

func TestSelectCategoryRejectsInvalidOrigin(t *testing.T) {
	f := newSessionFixture()
	p := geolocation.NewScriptedProvider(domain.Coordinates{Lat: math.NaN(), Lon: 77.2})

	err := f.session.SelectCategory(context.Background(), "Fruits", 5, p)
	if !errors.Is(err, ports.ErrUnavailable) {
		t.Fatalf("err = %v, want kind %v", err, ports.ErrUnavailable)
	}
	if f.session.Snapshot().Active {
		t.Fatalf("session active after invalid origin")
	}
}

func TestSelectCategoryInvalidArguments(t *testing.T) {
	tests := []struct {
		name     string
		category string
		rangeKm  float64
	}{
		{"empty category", "", 5},
		{"blank category", "   ", 5},
		{"zero range", "Fruits", 0},
		{"negative range", "Fruits", -5},
		{"NaN range", "Fruits", math.NaN()},
		{"infinite range", "Fruits", math.Inf(1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newSessionFixture()
			p := geolocation.NewScriptedProvider(delhi)

			err := f.session.SelectCategory(context.Background(), tt.category, tt.rangeKm, p)
			if !errors.Is(err, ErrInvalidArgument) {
				t.Fatalf("err = %v, want %v", err, ErrInvalidArgument)
			}
			if p.Calls() != 0 {
				t.Fatalf("geolocation called %d times", p.Calls())
			}
		})
	}
}

func TestSelectCategoryDropsStaleResult(t *testing.T) {
	f := newSessionFixture()

	fruitsLoc := geolocation.NewScriptedProvider(domain.Coordinates{Lat: 19.07, Lon: 72.88}).Held()
	snacksLoc := geolocation.NewScriptedProvider(delhi)

	done := make(chan error, 1)
	go func() {
		done <- f.session.SelectCategory(context.Background(), "Fruits", 5, fruitsLoc)
	}()
	<-fruitsLoc.Called()

	if !f.session.Snapshot().Pending {
		t.Fatalf("fruits selection not pending")
	}

	snap := f.mustSelect(t, "Snacks", 5, snacksLoc)
	if snap.Category != "Snacks" {
		t.Fatalf("category = %q, want Snacks", snap.Category)
	}

	fruitsLoc.Release()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("stale selection returned error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("stale selection did not complete")
	}

	final := f.session.Snapshot()
	if final.Category != "Snacks" || final.Origin != delhi || final.Viewport != snap.Viewport {
		t.Fatalf("final state = %+v, want the Snacks view", final)
	}
	for _, pv := range final.Vendors {
		if !strings.HasPrefix(pv.Vendor.Name, "Snacks Vendor ") {
			t.Fatalf("unexpected vendor %q", pv.Vendor.Name)
		}
	}
	if s := f.view.Stats(); s.Viewports != 1 || s.Markers != domain.VendorCount+1 {
		t.Fatalf("view stats = %+v", s)
	}
}

func TestSelectCategoryDropsStaleFailure(t *testing.T) {
	f := newSessionFixture()

	failing := geolocation.NewFailingProvider(ports.ErrTimeout).Held()

	done := make(chan error, 1)
	go func() {
		done <- f.session.SelectCategory(context.Background(), "Fruits", 5, failing)
	}()
	<-failing.Called()

	f.mustSelect(t, "Veggies", 5, geolocation.NewScriptedProvider(delhi))

	failing.Release()
	if err := <-done; err != nil {
		t.Fatalf("stale failure reported: %v", err)
	}
	if snap := f.session.Snapshot(); snap.Category != "Veggies" || !snap.Active {
		t.Fatalf("snapshot = %+v", snap)
	}
}

func TestSelectCategoryPendingSameSelection(t *testing.T) {
	f := newSessionFixture()
	p := geolocation.NewScriptedProvider(delhi).Held()

	done := make(chan error, 1)
	go func() {
		done <- f.session.SelectCategory(context.Background(), "Fruits", 5, p)
	}()
	<-p.Called()

	if err := f.session.SelectCategory(context.Background(), "Fruits", 5, p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Calls() != 1 {
		t.Fatalf("geolocation calls = %d, want 1", p.Calls())
	}

	p.Release()
	if err := <-done; err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap := f.session.Snapshot(); snap.Category != "Fruits" || len(snap.Vendors) != domain.VendorCount {
		t.Fatalf("snapshot = %+v", snap)
	}
}

func TestSessionDragStaysInsideRegion(t *testing.T) {
	f := newSessionFixture()
	snap := f.mustSelect(t, "Fruits", 5, geolocation.NewScriptedProvider(delhi))

	got, err := f.view.Drag(snap.Viewport, domain.Coordinates{Lat: 50, Lon: 120})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := (domain.Coordinates{Lat: 35.5, Lon: 97.4}); got != want {
		t.Fatalf("center after drag = %v, want %v", got, want)
	}
}

func TestSelectCategoryStopsWaitingOnHungProvider(t *testing.T) {
	f := newSessionFixture()

	hang := make(chan struct{})
	defer close(hang)
	hung := ports.GeolocationFunc(func(context.Context) (domain.Coordinates, error) {
		<-hang
		return delhi, nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := f.session.SelectCategory(ctx, "Fruits", 5, hung)
	if !errors.Is(err, ports.ErrTimeout) {
		t.Fatalf("err = %v, want kind %v", err, ports.ErrTimeout)
	}
	if snap := f.session.Snapshot(); snap.Pending || snap.Active {
		t.Fatalf("snapshot after timeout = %+v", snap)
	}

	p := geolocation.NewScriptedProvider(delhi)
	snap := f.mustSelect(t, "Fruits", 5, p)
	if p.Calls() != 1 || !snap.Active || snap.Category != "Fruits" {
		t.Fatalf("reselect after timeout: calls=%d snapshot=%+v", p.Calls(), snap)
	}
}
