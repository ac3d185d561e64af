package geolocation

import (
	"context"
	"sync"
	"sync/atomic"
	"vendor-map-service/internal/domain"
	"vendor-map-service/internal/ports"
)

// ScriptedProvider returns a fixed answer and can be held pending until
// Release is called. It is meant for tests exercising async completion.
type ScriptedProvider struct {
	coord domain.Coordinates
	err   error

	gate   chan struct{}
	called chan struct{}
	once   sync.Once
	calls  atomic.Int64
}

func NewScriptedProvider(c domain.Coordinates) *ScriptedProvider {
	return &ScriptedProvider{coord: c, called: make(chan struct{})}
}

// NewFailingProvider returns a provider failing with the given kind
// (ports.ErrPermissionDenied, ports.ErrTimeout or ports.ErrUnavailable).
func NewFailingProvider(kind error) *ScriptedProvider {
	return &ScriptedProvider{
		err:    &ports.GeolocationError{Kind: kind},
		called: make(chan struct{}),
	}
}

// Held makes every lookup block until Release.
func (p *ScriptedProvider) Held() *ScriptedProvider {
	p.gate = make(chan struct{})
	return p
}

func (p *ScriptedProvider) Release() { close(p.gate) }

// Called is closed once the first lookup has started.
func (p *ScriptedProvider) Called() <-chan struct{} { return p.called }

func (p *ScriptedProvider) Calls() int { return int(p.calls.Load()) }

func (p *ScriptedProvider) CurrentCoordinate(ctx context.Context) (domain.Coordinates, error) {
	p.calls.Add(1)
	p.once.Do(func() { close(p.called) })

	if p.gate != nil {
		select {
		case <-p.gate:
		case <-ctx.Done():
			return domain.Coordinates{}, ports.AsGeolocationError(ctx.Err())
		}
	}

	return p.coord, p.err
}
