package services

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sync"
	"time"
	"vendor-map-service/internal/domain"
)

// Latitude bound used for the longitude scale factor. cos(±90°) is zero,
// so origins at the poles would otherwise produce infinite longitudes.
const maxScaleLatitude = 89.9

// VendorSampler produces vendor records around an origin.
type VendorSampler interface {
	SampleVendors(origin domain.Coordinates, category string, count int, radiusKm float64) []domain.VendorRecord
}

// GeoSampler synthesizes vendor locations scattered around an origin.
// It is safe for concurrent use.
type GeoSampler struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewGeoSampler returns a sampler drawing from src. A nil src uses a
// PCG source seeded from the clock.
func NewGeoSampler(src rand.Source) *GeoSampler {
	if src == nil {
		seed := uint64(time.Now().UnixNano())
		src = rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)
	}
	return &GeoSampler{rnd: rand.New(src)}
}

// SampleVendors returns count vendors placed at a random bearing and a
// random distance in [0, radiusKm) from origin.
//
// The distance is drawn uniformly, not as sqrt(uniform), so vendors
// cluster towards the origin rather than covering the disc evenly.
// Non-finite input propagates into the coordinates unchecked.
func (g *GeoSampler) SampleVendors(
	origin domain.Coordinates,
	category string,
	count int,
	radiusKm float64,
) []domain.VendorRecord {
	if count <= 0 {
		return []domain.VendorRecord{}
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	vendors := make([]domain.VendorRecord, 0, count)
	for i := 0; i < count; i++ {
		r := g.rnd.Float64() * radiusKm
		theta := g.rnd.Float64() * 2 * math.Pi

		vendors = append(vendors, domain.VendorRecord{
			Name:       fmt.Sprintf("%s Vendor %d", category, i+1),
			Category:   category,
			Coordinate: OffsetKm(origin, math.Cos(theta)*r, math.Sin(theta)*r),
			Address:    fmt.Sprintf("Address %d, City", i+1),
		})
	}

	return vendors
}

// OffsetKm moves origin by dLatKm northwards and dLonKm eastwards on a
// spherical Earth, using the origin's latitude for longitude compression.
func OffsetKm(origin domain.Coordinates, dLatKm, dLonKm float64) domain.Coordinates {
	const degPerRad = 180 / math.Pi

	scaleLat := math.Max(-maxScaleLatitude, math.Min(maxScaleLatitude, origin.Lat))

	return domain.Coordinates{
		Lat: origin.Lat + (dLatKm/domain.EarthRadiusKm)*degPerRad,
		Lon: origin.Lon + (dLonKm/(domain.EarthRadiusKm*math.Cos(scaleLat*math.Pi/180)))*degPerRad,
	}
}
