package mapview

import (
	"github.com/paulmach/orb/geojson"
)

// FeatureCollection renders the viewport's markers as GeoJSON points.
// extra, when non-nil, supplies additional properties per marker.
func (info ViewportInfo) FeatureCollection(extra func(MarkerInfo) map[string]any) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, m := range info.Markers {
		f := geojson.NewFeature(m.At.Point())
		f.ID = string(m.ID)
		f.Properties["icon"] = m.Icon.String()
		f.Properties["popup"] = m.Popup
		if extra != nil {
			for k, v := range extra(m) {
				f.Properties[k] = v
			}
		}
		fc.Append(f)
	}
	return fc
}
