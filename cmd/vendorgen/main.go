package main

import (
	"flag"
	"os"
	"vendor-map-service/internal/domain"
	"vendor-map-service/internal/platform/obs"
	"vendor-map-service/internal/services"

	"github.com/go-kit/log/level"
	"github.com/paulmach/orb/geojson"
)

// vendorgen prints a sampled vendor set as a GeoJSON FeatureCollection,
// handy for eyeballing the placement in any GeoJSON viewer.
func main() {
	var (
		lat      = flag.Float64("lat", 28.6, "origin latitude")
		lon      = flag.Float64("lon", 77.2, "origin longitude")
		category = flag.String("category", "Fruits", "vendor category")
		rangeKm  = flag.Float64("range", domain.DefaultRangeKm, "radius in km")
		count    = flag.Int("count", domain.VendorCount, "number of vendors")
	)
	flag.Parse()

	logger := obs.NewLogger(os.Stderr, "info")

	origin := domain.Coordinates{Lat: *lat, Lon: *lon}
	if err := origin.Validate(); err != nil {
		level.Error(logger).Log("during", "flags", "err", err)
		os.Exit(2)
	}

	vendors := services.NewGeoSampler(nil).SampleVendors(origin, *category, *count, *rangeKm)

	fc := geojson.NewFeatureCollection()

	o := geojson.NewFeature(origin.Point())
	o.Properties["name"] = domain.OriginPopup
	fc.Append(o)

	for _, v := range vendors {
		f := geojson.NewFeature(v.Coordinate.Point())
		f.Properties["name"] = v.Name
		f.Properties["category"] = v.Category
		f.Properties["address"] = v.Address
		f.Properties["distance_km"] = origin.DistanceKm(v.Coordinate)
		fc.Append(f)
	}

	b, err := fc.MarshalJSON()
	if err != nil {
		level.Error(logger).Log("during", "encode", "err", err)
		os.Exit(1)
	}
	if _, err := os.Stdout.Write(append(b, '\n')); err != nil {
		level.Error(logger).Log("during", "write", "err", err)
		os.Exit(1)
	}
	level.Info(logger).Log("msg", "sampled vendors", "count", len(vendors), "origin", origin, "range_km", *rangeKm)
}
