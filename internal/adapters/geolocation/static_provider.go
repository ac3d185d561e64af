package geolocation

import (
	"context"
	"vendor-map-service/internal/domain"
)

// StaticProvider always reports the same coordinate. It backs the
// configured fallback origin and positions reported by the browser.
type StaticProvider struct {
	Coord domain.Coordinates
}

func NewStaticProvider(c domain.Coordinates) *StaticProvider {
	return &StaticProvider{Coord: c}
}

func (p *StaticProvider) CurrentCoordinate(ctx context.Context) (domain.Coordinates, error) {
	if err := ctx.Err(); err != nil {
		return domain.Coordinates{}, err
	}
	return p.Coord, nil
}
