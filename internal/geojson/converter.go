// Package geojson flattens the pipeline's typed Feature/FeatureCollection
// model into standard GeoJSON at the persistence boundary. Every stage
// before this one works with typed Go structs; the property bag only
// exists here.
package geojson

import (
	"encoding/json"
	"fmt"

	"github.com/paulmach/orb/geojson"

	"github.com/mapwright/extractpipe/internal/types"
)

// ToGeoJSON converts a FeatureCollection to a single GeoJSON
// FeatureCollection, flattening each typed properties struct into a
// property bag and tagging every feature with its kind and map ID.
func ToGeoJSON(fc types.FeatureCollection) *geojson.FeatureCollection {
	out := geojson.NewFeatureCollection()
	for _, f := range fc.All() {
		if f.Geometry == nil {
			continue
		}
		out.Append(toGeoJSONFeature(f))
	}
	return out
}

// mapElementType maps a Feature's internal Kind to the persisted property
// bag's vocabulary: zones and shapes keep their name, but a resolved
// place is persisted as "point", matching the GeoJSON geometry it
// carries.
func mapElementType(kind types.FeatureKind) string {
	if kind == types.FeatureKindPlace {
		return "point"
	}
	return string(kind)
}

// featureName picks the one human-readable label required of every
// persisted feature, regardless of kind.
func featureName(f types.Feature) string {
	switch f.Kind {
	case types.FeatureKindZone:
		if f.Zone != nil {
			return f.Zone.ColorName
		}
	case types.FeatureKindShape:
		if f.Shape != nil {
			return f.ID
		}
	case types.FeatureKindPlace:
		if f.Place != nil {
			return f.Place.MatchName
		}
	}
	return f.ID
}

func toGeoJSONFeature(f types.Feature) *geojson.Feature {
	gf := geojson.NewFeature(f.Geometry)
	gf.ID = f.ID
	gf.Properties = map[string]interface{}{
		"map_id":           f.MapID,
		"kind":             string(f.Kind),
		"map_element_type": mapElementType(f.Kind),
		"name":             featureName(f),
		"start_date":       f.StartDate,
		"end_date":         f.EndDate,
		"is_pixel_space":   f.IsPixelSpace,
		"is_georeferenced": f.CRS != "",
	}
	if f.CRS != "" {
		gf.Properties["crs"] = f.CRS
	}

	switch f.Kind {
	case types.FeatureKindZone:
		if f.Zone != nil {
			gf.Properties["color_name"] = f.Zone.ColorName
			gf.Properties["color_rgb"] = [3]uint8{f.Zone.R, f.Zone.G, f.Zone.B8}
			gf.Properties["color_hex"] = rgbHex(f.Zone.R, f.Zone.G, f.Zone.B8)
			gf.Properties["lab_l"] = f.Zone.L
			gf.Properties["lab_a"] = f.Zone.A
			gf.Properties["lab_b"] = f.Zone.B
		}
	case types.FeatureKindShape:
		if f.Shape != nil {
			gf.Properties["area"] = f.Shape.Area
			gf.Properties["perimeter"] = f.Shape.Perimeter
			gf.Properties["aspect_ratio"] = f.Shape.AspectRatio
			gf.Properties["extent"] = f.Shape.Extent
			gf.Properties["solidity"] = f.Shape.Solidity
			gf.Properties["vertex_count"] = f.Shape.VertexCount
			gf.Properties["dominant_color"] = f.Shape.DominantColor
			gf.Properties["color_rgb"] = f.Shape.DominantColor
			gf.Properties["color_hex"] = rgbHex(f.Shape.DominantColor[0], f.Shape.DominantColor[1], f.Shape.DominantColor[2])
		}
	case types.FeatureKindPlace:
		if f.Place != nil {
			gf.Properties["token"] = f.Place.Token
			gf.Properties["match_name"] = f.Place.MatchName
			gf.Properties["match_id"] = f.Place.MatchID
			gf.Properties["confidence"] = f.Place.Confidence
			gf.Properties["found"] = f.Place.Found
		}
	}

	if f.Coastline != nil {
		gf.Properties["coastline_snapped"] = f.Coastline.Snapped
		gf.Properties["points_snapped"] = f.Coastline.PointsSnapped
		gf.Properties["coastline_points_detected"] = f.Coastline.CoastlinePointsDetected
		gf.Properties["snap_distance_km"] = f.Coastline.SnapDistanceKM
	}

	return gf
}

func rgbHex(r, g, b uint8) string {
	return fmt.Sprintf("#%02x%02x%02x", r, g, b)
}

// ToGeoJSONBytes renders fc as indented GeoJSON bytes.
func ToGeoJSONBytes(fc types.FeatureCollection) ([]byte, error) {
	data, err := json.MarshalIndent(ToGeoJSON(fc), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal geojson: %w", err)
	}
	return data, nil
}

// ToGeoJSONFeatureBytes renders a single Feature as GeoJSON bytes, for
// persistence sinks that store one feature at a time.
func ToGeoJSONFeatureBytes(f types.Feature) ([]byte, error) {
	data, err := json.Marshal(toGeoJSONFeature(f))
	if err != nil {
		return nil, fmt.Errorf("marshal geojson feature %s: %w", f.ID, err)
	}
	return data, nil
}
