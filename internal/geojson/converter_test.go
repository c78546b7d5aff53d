package geojson

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mapwright/extractpipe/internal/types"
)

func TestToGeoJSON_FlattensZoneAndShape(t *testing.T) {
	fc := types.FeatureCollection{
		Zones: []types.Feature{{
			ID:    "zone-1",
			MapID: "map-1",
			Kind:  types.FeatureKindZone,
			Geometry: orb.Polygon{{
				{9.73, 52.37}, {9.74, 52.37}, {9.74, 52.38}, {9.73, 52.37},
			}},
			Zone: &types.ZoneProperties{ColorName: "cornflowerblue", L: 50, A: -10, B: 20},
			CRS:  "EPSG:4326",
		}},
		Shapes: []types.Feature{{
			ID:       "shape-1",
			MapID:    "map-1",
			Kind:     types.FeatureKindShape,
			Geometry: orb.Polygon{{{0, 0}, {1, 0}, {1, 1}, {0, 0}}},
			Shape:    &types.ShapeProperties{Area: 0.5, VertexCount: 3},
		}},
	}

	geo := ToGeoJSON(fc)
	require.Len(t, geo.Features, 2)

	zoneFeature := geo.Features[0]
	assert.Equal(t, "zone", zoneFeature.Properties["kind"])
	assert.Equal(t, "zone", zoneFeature.Properties["map_element_type"])
	assert.Equal(t, "cornflowerblue", zoneFeature.Properties["color_name"])
	assert.Equal(t, "cornflowerblue", zoneFeature.Properties["name"])
	assert.Equal(t, "EPSG:4326", zoneFeature.Properties["crs"])
	assert.Equal(t, true, zoneFeature.Properties["is_georeferenced"])
	assert.Equal(t, "Polygon", zoneFeature.Geometry.GeoJSONType())

	shapeFeature := geo.Features[1]
	assert.Equal(t, "shape", shapeFeature.Properties["kind"])
	assert.Equal(t, "shape", shapeFeature.Properties["map_element_type"])
	assert.Equal(t, 0.5, shapeFeature.Properties["area"])
	assert.Equal(t, false, shapeFeature.Properties["is_georeferenced"])
}

func TestToGeoJSON_SkipsNilGeometry(t *testing.T) {
	fc := types.FeatureCollection{
		Shapes: []types.Feature{{ID: "no-geom", Kind: types.FeatureKindShape}},
	}
	geo := ToGeoJSON(fc)
	assert.Empty(t, geo.Features)
}

func TestToGeoJSON_EmptyCollectionYieldsNoFeatures(t *testing.T) {
	geo := ToGeoJSON(types.FeatureCollection{})
	assert.Empty(t, geo.Features)
}

func TestToGeoJSON_IncludesCoastlineProperties(t *testing.T) {
	fc := types.FeatureCollection{
		Zones: []types.Feature{{
			ID:       "zone-2",
			Kind:     types.FeatureKindZone,
			Geometry: orb.LineString{{0, 0}, {1, 1}},
			Coastline: &types.CoastlineProperties{
				Snapped: true, PointsSnapped: 3, CoastlinePointsDetected: 5, SnapDistanceKM: 10,
			},
		}},
	}
	geo := ToGeoJSON(fc)
	require.Len(t, geo.Features, 1)
	assert.Equal(t, true, geo.Features[0].Properties["coastline_snapped"])
	assert.Equal(t, 3, geo.Features[0].Properties["points_snapped"])
}

func TestToGeoJSON_IncludesPlaceProperties(t *testing.T) {
	fc := types.FeatureCollection{
		Places: []types.Feature{{
			ID:       "place-1",
			Kind:     types.FeatureKindPlace,
			Geometry: orb.Point{9.73, 52.37},
			Place:    &types.PlaceProperties{Token: "Hannover", MatchName: "Hannover", Confidence: 0.9, Found: true},
		}},
	}
	geo := ToGeoJSON(fc)
	require.Len(t, geo.Features, 1)
	assert.Equal(t, "Hannover", geo.Features[0].Properties["match_name"])
	assert.Equal(t, "point", geo.Features[0].Properties["map_element_type"])
	assert.Equal(t, "Hannover", geo.Features[0].Properties["name"])
	assert.Equal(t, true, geo.Features[0].Properties["found"])
}

func TestToGeoJSON_SetsRequiredPropertyKeysOnEveryFeature(t *testing.T) {
	fc := types.FeatureCollection{
		Zones: []types.Feature{{
			ID:        "zone-3",
			Kind:      types.FeatureKindZone,
			Geometry:  orb.Point{0, 0},
			Zone:      &types.ZoneProperties{ColorName: "seagreen"},
			StartDate: "1842",
			EndDate:   "1845",
		}},
	}
	geo := ToGeoJSON(fc)
	require.Len(t, geo.Features, 1)
	props := geo.Features[0].Properties
	for _, key := range []string{"map_element_type", "name", "start_date", "end_date", "is_georeferenced"} {
		_, ok := props[key]
		assert.True(t, ok, "missing required property key %q", key)
	}
	assert.Equal(t, "1842", props["start_date"])
	assert.Equal(t, "1845", props["end_date"])
}

func TestToGeoJSONBytes_ProducesValidJSON(t *testing.T) {
	fc := types.FeatureCollection{
		Shapes: []types.Feature{{
			ID:       "shape-1",
			Kind:     types.FeatureKindShape,
			Geometry: orb.Polygon{{{0, 0}, {1, 0}, {1, 1}, {0, 0}}},
			Shape:    &types.ShapeProperties{Area: 1},
		}},
	}
	data, err := ToGeoJSONBytes(fc)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"type": "FeatureCollection"`)
}
