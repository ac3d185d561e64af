package geolocation

import (
	"context"
	"errors"
	"sync"
	"time"
	"vendor-map-service/internal/domain"
	"vendor-map-service/internal/ports"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

// CachedProvider remembers the last successful fix of the wrapped provider
// for ttl. Failures are never cached, so a denied or timed out lookup is
// retried on the next call.
type CachedProvider struct {
	next   ports.GeolocationProvider
	ttl    time.Duration
	now    func() time.Time
	logger log.Logger

	mu      sync.Mutex
	coord   domain.Coordinates
	fetched time.Time
	ok      bool
}

var _ ports.GeolocationProvider = (*CachedProvider)(nil)

func NewCachedProvider(next ports.GeolocationProvider, ttl time.Duration, logger log.Logger) (*CachedProvider, error) {
	if next == nil {
		return nil, errors.New("cached provider: next provider must be non-nil")
	}
	if ttl <= 0 {
		return nil, errors.New("cached provider: ttl must be positive")
	}
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &CachedProvider{
		next:   next,
		ttl:    ttl,
		now:    time.Now,
		logger: log.With(logger, "component", "geolocation_cache"),
	}, nil
}

func (p *CachedProvider) CurrentCoordinate(ctx context.Context) (domain.Coordinates, error) {
	p.mu.Lock()
	if p.ok && p.now().Sub(p.fetched) < p.ttl {
		c := p.coord
		p.mu.Unlock()
		level.Debug(p.logger).Log("msg", "cache hit", "coord", c)
		return c, nil
	}
	p.mu.Unlock()

	c, err := p.next.CurrentCoordinate(ctx)
	if err != nil {
		return domain.Coordinates{}, err
	}

	p.mu.Lock()
	p.coord, p.fetched, p.ok = c, p.now(), true
	p.mu.Unlock()

	return c, nil
}

// Invalidate drops the cached fix.
func (p *CachedProvider) Invalidate() {
	p.mu.Lock()
	p.ok = false
	p.mu.Unlock()
}
