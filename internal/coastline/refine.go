package coastline

import (
	"github.com/paulmach/orb"

	"github.com/mapwright/extractpipe/internal/geomrepair"
	"github.com/mapwright/extractpipe/internal/types"
)

// Refine selectively snaps every Zone and Shape feature's boundary in
// fc onto the reference coastline in idx, gated by proximity to one of
// siftPoints so inland borders are left untouched. Features whose
// geometry is not Polygon/MultiPolygon/LineString, or that have no
// vertices near a marker, pass through unmodified.
func Refine(fc types.FeatureCollection, idx *Index, siftPoints []orb.Point, cfg types.CoastlineConfig) types.FeatureCollection {
	if !cfg.Enabled || len(siftPoints) == 0 {
		return fc
	}

	maxSnapKM := cfg.MaxSnapDistanceKM
	if maxSnapKM <= 0 {
		maxSnapKM = 10.0
	}
	siftProximityKM := cfg.SiftProximityKM
	if siftProximityKM <= 0 {
		siftProximityKM = 25.0
	}

	fc.Zones = refineFeatures(fc.Zones, idx, siftPoints, maxSnapKM, siftProximityKM)
	fc.Shapes = refineFeatures(fc.Shapes, idx, siftPoints, maxSnapKM, siftProximityKM)
	return fc
}

func refineFeatures(features []types.Feature, idx *Index, siftPoints []orb.Point, maxSnapKM, siftProximityKM float64) []types.Feature {
	out := make([]types.Feature, len(features))
	for i, f := range features {
		out[i] = refineFeature(f, idx, siftPoints, maxSnapKM, siftProximityKM)
	}
	return out
}

func refineFeature(f types.Feature, idx *Index, siftPoints []orb.Point, maxSnapKM, siftProximityKM float64) types.Feature {
	switch geom := f.Geometry.(type) {
	case orb.LineString:
		result := snapRingSelective(geom, idx, siftPoints, maxSnapKM, siftProximityKM)
		if result.PointsSnapped == 0 {
			return f
		}
		f.Geometry = orb.LineString(result.Points)
		f.Coastline = snapProperties(result, maxSnapKM)
		return f

	case orb.Polygon:
		snapped, props, ok := refinePolygon(geom, idx, siftPoints, maxSnapKM, siftProximityKM)
		if !ok {
			return f
		}
		f.Geometry = snapped
		f.Coastline = props
		return f

	case orb.MultiPolygon:
		var totalSnapped, totalCoastal int
		polygons := make([]orb.Polygon, 0, len(geom))
		for _, poly := range geom {
			snapped, props, ok := refinePolygon(poly, idx, siftPoints, maxSnapKM, siftProximityKM)
			if !ok {
				polygons = append(polygons, poly)
				continue
			}
			polygons = append(polygons, snapped...)
			totalSnapped += props.PointsSnapped
			totalCoastal += props.CoastlinePointsDetected
		}
		if totalSnapped == 0 {
			return f
		}
		f.Geometry = orb.MultiPolygon(polygons)
		f.Coastline = &types.CoastlineProperties{
			Snapped:                 true,
			PointsSnapped:           totalSnapped,
			CoastlinePointsDetected: totalCoastal,
			SnapDistanceKM:          maxSnapKM,
		}
		return f

	default:
		return f
	}
}

// refinePolygon snaps only the exterior ring, preserving interior
// rings (holes) untouched exactly as the original selective-snapping
// pass does — an inland hole should never move because its containing
// exterior happens to border a coastline.
func refinePolygon(poly orb.Polygon, idx *Index, siftPoints []orb.Point, maxSnapKM, siftProximityKM float64) (orb.Polygon, *types.CoastlineProperties, bool) {
	if len(poly) == 0 {
		return nil, nil, false
	}
	result := snapRingSelective(poly[0], idx, siftPoints, maxSnapKM, siftProximityKM)
	if result.PointsSnapped == 0 {
		return nil, nil, false
	}

	exterior := closeRing(orb.Ring(result.Points))
	repaired := geomrepair.RepairRing(exterior)
	if len(repaired) == 0 {
		return nil, nil, false
	}

	out := make(orb.Polygon, 0, 1+len(poly)-1)
	out = append(out, repaired[0])
	out = append(out, poly[1:]...) // interior rings (holes) untouched

	return out, &types.CoastlineProperties{
		Snapped:                 true,
		PointsSnapped:           result.PointsSnapped,
		CoastlinePointsDetected: result.CoastlinePoints,
		SnapDistanceKM:          maxSnapKM,
	}, true
}

func snapProperties(r snapResult, maxSnapKM float64) *types.CoastlineProperties {
	return &types.CoastlineProperties{
		Snapped:                 true,
		PointsSnapped:           r.PointsSnapped,
		CoastlinePointsDetected: r.CoastlinePoints,
		SnapDistanceKM:          maxSnapKM,
	}
}

func closeRing(ring orb.Ring) orb.Ring {
	if len(ring) == 0 {
		return ring
	}
	if !ring[0].Equal(ring[len(ring)-1]) {
		ring = append(ring, ring[0])
	}
	return ring
}
