package export

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"

	"github.com/opendata-madrid/places-cli/internal/collector"
)

// WriteGeoJSON writes rows carrying coordinates as a FeatureCollection of
// points, remaining columns as feature properties. Rows without numeric
// latitud/longitud, typically lenient fallbacks, are skipped.
func WriteGeoJSON(path string, table collector.Table) error {
	fc := geojson.FeatureCollection{Features: []*geojson.Feature{}}

	skipped := 0
	for _, row := range table {
		lat, okLat := asFloat(row["latitud"])
		lon, okLon := asFloat(row["longitud"])
		if !okLat || !okLon {
			skipped++
			continue
		}

		props := make(map[string]any, len(row))
		for k, v := range row {
			if k == "latitud" || k == "longitud" {
				continue
			}
			props[k] = v
		}

		feature := &geojson.Feature{
			// GeoJSON positions are [lon, lat].
			Geometry:   geom.NewPointFlat(geom.XY, []float64{lon, lat}),
			Properties: props,
		}
		if id, ok := row["fsq_id"].(string); ok {
			feature.ID = id
		}
		fc.Features = append(fc.Features, feature)
	}

	if skipped > 0 {
		zap.L().Debug("geojson export skipped rows without coordinates",
			zap.Int("rows", skipped))
	}

	data, err := json.MarshalIndent(&fc, "", "  ")
	if err != nil {
		return eris.Wrap(err, "export: encode geojson")
	}

	return eris.Wrap(os.WriteFile(path, data, 0o644), "export: write geojson")
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
