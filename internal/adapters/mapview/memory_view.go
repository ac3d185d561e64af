package mapview

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"vendor-map-service/internal/domain"
	"vendor-map-service/internal/ports"

	"github.com/dhconnelly/rtreego"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/google/uuid"
)

// Half-width (degrees) of the box indexed for each marker.
const markerExtent = 1e-7

var (
	ErrUnknownViewport = errors.New("unknown viewport")
	ErrUnknownMarker   = errors.New("unknown marker")
)

type viewport struct {
	id      ports.ViewportHandle
	center  domain.Coordinates
	zoom    int
	bounds  *domain.BoundingRegion
	onDrag  []func()
	markers []*marker
	index   *rtreego.Rtree
}

type marker struct {
	id      ports.MarkerHandle
	vp      *viewport
	at      domain.Coordinates
	icon    ports.IconStyle
	popup   string
	onClick []func(ctx context.Context)
	rect    rtreego.Rect
	indexed bool
}

func (m *marker) Bounds() rtreego.Rect { return m.rect }

// ViewportInfo describes a viewport as currently rendered.
type ViewportInfo struct {
	ID          ports.ViewportHandle
	Center      domain.Coordinates
	Zoom        int
	Bounds      *domain.BoundingRegion
	DragHandler int
	Markers     []MarkerInfo
}

// MarkerInfo describes a rendered marker.
type MarkerInfo struct {
	ID           ports.MarkerHandle
	At           domain.Coordinates
	Icon         ports.IconStyle
	Popup        string
	ClickHandler int
}

// Stats counts live objects across all viewports.
type Stats struct {
	Viewports     int
	Markers       int
	DragHandlers  int
	ClickHandlers int
}

// MemoryView is a MapView that keeps the rendered scene in memory and
// exposes the user-facing side (drag, click, hit testing) as methods.
// It is safe for concurrent use; callbacks run without its lock held.
type MemoryView struct {
	mu        sync.Mutex
	viewports map[ports.ViewportHandle]*viewport
	markers   map[ports.MarkerHandle]*marker
	logger    log.Logger
}

var _ ports.MapView = (*MemoryView)(nil)

func NewMemoryView(logger log.Logger) *MemoryView {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &MemoryView{
		viewports: make(map[ports.ViewportHandle]*viewport),
		markers:   make(map[ports.MarkerHandle]*marker),
		logger:    log.With(logger, "component", "map_view"),
	}
}

func (v *MemoryView) CreateViewport(center domain.Coordinates, zoom int) ports.ViewportHandle {
	v.mu.Lock()
	defer v.mu.Unlock()

	vp := &viewport{
		id:     ports.ViewportHandle(uuid.NewString()),
		center: center,
		zoom:   zoom,
		index:  rtreego.NewTree(2, 2, 16),
	}
	v.viewports[vp.id] = vp

	level.Debug(v.logger).Log("msg", "viewport created", "viewport", vp.id, "center", center, "zoom", zoom)
	return vp.id
}

// DestroyViewport removes the viewport together with its remaining
// markers and listeners.
func (v *MemoryView) DestroyViewport(id ports.ViewportHandle) {
	v.mu.Lock()
	defer v.mu.Unlock()

	vp, ok := v.viewports[id]
	if !ok {
		return
	}
	for _, m := range vp.markers {
		delete(v.markers, m.id)
	}
	vp.markers = nil
	vp.onDrag = nil
	delete(v.viewports, id)

	level.Debug(v.logger).Log("msg", "viewport destroyed", "viewport", id)
}

func (v *MemoryView) SetBounds(id ports.ViewportHandle, sw, ne domain.Coordinates) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if vp, ok := v.viewports[id]; ok {
		r := domain.NewBoundingRegion(sw, ne)
		vp.bounds = &r
	}
}

func (v *MemoryView) OnDrag(id ports.ViewportHandle, fn func()) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if vp, ok := v.viewports[id]; ok {
		vp.onDrag = append(vp.onDrag, fn)
	}
}

// PanInsideBounds moves the center to the nearest point inside [sw, ne].
func (v *MemoryView) PanInsideBounds(id ports.ViewportHandle, sw, ne domain.Coordinates) {
	v.mu.Lock()
	defer v.mu.Unlock()

	vp, ok := v.viewports[id]
	if !ok {
		return
	}
	clamped := domain.NewBoundingRegion(sw, ne).Clamp(vp.center)
	if clamped != vp.center {
		level.Debug(v.logger).Log("msg", "pan inside bounds", "viewport", id, "from", vp.center, "to", clamped)
		vp.center = clamped
	}
}

func (v *MemoryView) AddMarker(id ports.ViewportHandle, at domain.Coordinates, icon ports.IconStyle) ports.MarkerHandle {
	v.mu.Lock()
	defer v.mu.Unlock()

	m := &marker{
		id:   ports.MarkerHandle(uuid.NewString()),
		at:   at,
		icon: icon,
	}

	vp, ok := v.viewports[id]
	if !ok {
		// Markers added to a missing viewport are never rendered.
		return m.id
	}
	m.vp = vp
	vp.markers = append(vp.markers, m)
	v.markers[m.id] = m

	if finite(at) {
		rect, err := rtreego.NewRect(
			rtreego.Point{at.Lon - markerExtent, at.Lat - markerExtent},
			[]float64{2 * markerExtent, 2 * markerExtent},
		)
		if err == nil {
			m.rect = rect
			vp.index.Insert(m)
			m.indexed = true
		}
	}

	return m.id
}

func (v *MemoryView) RemoveMarker(id ports.ViewportHandle, mid ports.MarkerHandle) {
	v.mu.Lock()
	defer v.mu.Unlock()

	m, ok := v.markers[mid]
	if !ok || m.vp == nil || m.vp.id != id {
		return
	}
	vp := m.vp

	if m.indexed {
		vp.index.Delete(m)
	}
	for i, other := range vp.markers {
		if other == m {
			vp.markers = append(vp.markers[:i], vp.markers[i+1:]...)
			break
		}
	}
	m.onClick = nil
	delete(v.markers, mid)
}

func (v *MemoryView) BindPopup(mid ports.MarkerHandle, html string) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if m, ok := v.markers[mid]; ok {
		m.popup = html
	}
}

func (v *MemoryView) OnClick(mid ports.MarkerHandle, fn func(ctx context.Context)) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if m, ok := v.markers[mid]; ok {
		m.onClick = append(m.onClick, fn)
	}
}

// Drag moves the viewport center to the given point as a user drag would
// and then notifies drag listeners. It returns the center after the
// listeners ran.
func (v *MemoryView) Drag(id ports.ViewportHandle, to domain.Coordinates) (domain.Coordinates, error) {
	v.mu.Lock()
	vp, ok := v.viewports[id]
	if !ok {
		v.mu.Unlock()
		return domain.Coordinates{}, fmt.Errorf("drag %s: %w", id, ErrUnknownViewport)
	}
	vp.center = to
	handlers := append([]func(){}, vp.onDrag...)
	v.mu.Unlock()

	for _, fn := range handlers {
		fn()
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	return vp.center, nil
}

// Click delivers a click to the marker's listeners.
func (v *MemoryView) Click(ctx context.Context, mid ports.MarkerHandle) error {
	v.mu.Lock()
	m, ok := v.markers[mid]
	if !ok {
		v.mu.Unlock()
		return fmt.Errorf("click %s: %w", mid, ErrUnknownMarker)
	}
	handlers := append([]func(context.Context){}, m.onClick...)
	v.mu.Unlock()

	for _, fn := range handlers {
		fn(ctx)
	}
	return nil
}

// MarkerAt returns the vendor marker of the viewport closest to at by
// great-circle distance, provided it lies within toleranceKm. Candidates
// come from a box spanning toleranceKm in each direction; the origin marker
// is never returned.
func (v *MemoryView) MarkerAt(id ports.ViewportHandle, at domain.Coordinates, toleranceKm float64) (ports.MarkerHandle, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()

	vp, ok := v.viewports[id]
	if !ok || !finite(at) || !(toleranceKm > 0) {
		return "", false
	}

	box, err := searchBox(at, toleranceKm)
	if err != nil {
		return "", false
	}

	var (
		best     *marker
		bestDist float64
	)
	for _, item := range vp.index.SearchIntersect(box) {
		m := item.(*marker)
		if m.icon != ports.IconVendor {
			continue
		}
		d := at.DistanceKm(m.at)
		if d > toleranceKm {
			continue
		}
		if best == nil || d < bestDist {
			best, bestDist = m, d
		}
	}

	if best == nil {
		return "", false
	}
	return best.id, true
}

// searchBox returns the degree box covering every point within km of c.
// The longitude half-width is the widest point of the small circle; near
// the poles the box spans every longitude.
func searchBox(c domain.Coordinates, km float64) (rtreego.Rect, error) {
	delta := km / domain.EarthRadiusKm
	dLat := delta * 180 / math.Pi

	dLon := 180.0
	if ratio := math.Sin(delta) / math.Cos(c.Lat*math.Pi/180); ratio >= 0 && ratio < 1 {
		dLon = math.Asin(ratio) * 180 / math.Pi
	}

	return rtreego.NewRect(
		rtreego.Point{c.Lon - dLon, c.Lat - dLat},
		[]float64{2 * dLon, 2 * dLat},
	)
}

// Viewport describes a live viewport and its markers in insertion order.
func (v *MemoryView) Viewport(id ports.ViewportHandle) (ViewportInfo, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()

	vp, ok := v.viewports[id]
	if !ok {
		return ViewportInfo{}, false
	}

	info := ViewportInfo{
		ID:          vp.id,
		Center:      vp.center,
		Zoom:        vp.zoom,
		Bounds:      vp.bounds,
		DragHandler: len(vp.onDrag),
		Markers:     make([]MarkerInfo, 0, len(vp.markers)),
	}
	for _, m := range vp.markers {
		info.Markers = append(info.Markers, MarkerInfo{
			ID:           m.id,
			At:           m.at,
			Icon:         m.icon,
			Popup:        m.popup,
			ClickHandler: len(m.onClick),
		})
	}
	return info, true
}

func (v *MemoryView) Stats() Stats {
	v.mu.Lock()
	defer v.mu.Unlock()

	var s Stats
	s.Viewports = len(v.viewports)
	s.Markers = len(v.markers)
	for _, vp := range v.viewports {
		s.DragHandlers += len(vp.onDrag)
	}
	for _, m := range v.markers {
		s.ClickHandlers += len(m.onClick)
	}
	return s
}

func finite(c domain.Coordinates) bool {
	return !math.IsNaN(c.Lat) && !math.IsInf(c.Lat, 0) && !math.IsNaN(c.Lon) && !math.IsInf(c.Lon, 0)
}
