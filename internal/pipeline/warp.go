package pipeline

import (
	"fmt"

	"github.com/paulmach/orb"

	"github.com/mapwright/extractpipe/internal/georef"
	"github.com/mapwright/extractpipe/internal/types"
)

// warpGeometry applies t to every coordinate of g, first through the
// fitted pixel->mercator transform and then mercator->lon/lat, without
// mutating g.
func warpGeometry(g orb.Geometry, t types.Transform) (orb.Geometry, error) {
	switch geom := g.(type) {
	case orb.Point:
		return warpPoint(geom, t), nil
	case orb.MultiPoint:
		out := make(orb.MultiPoint, len(geom))
		for i, p := range geom {
			out[i] = warpPoint(p, t)
		}
		return out, nil
	case orb.LineString:
		return warpLineString(geom, t), nil
	case orb.MultiLineString:
		out := make(orb.MultiLineString, len(geom))
		for i, ls := range geom {
			out[i] = warpLineString(ls, t)
		}
		return out, nil
	case orb.Polygon:
		return warpPolygon(geom, t), nil
	case orb.MultiPolygon:
		out := make(orb.MultiPolygon, len(geom))
		for i, poly := range geom {
			out[i] = warpPolygon(poly, t)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("warp geometry: unsupported geometry type %T", g)
	}
}

func warpPoint(p orb.Point, t types.Transform) orb.Point {
	mx, my := t.Apply(p[0], p[1])
	lon, lat := georef.MercatorToLonLat(mx, my)
	return orb.Point{lon, lat}
}

func warpLineString(ls orb.LineString, t types.Transform) orb.LineString {
	out := make(orb.LineString, len(ls))
	for i, p := range ls {
		out[i] = warpPoint(p, t)
	}
	return out
}

func warpRing(ring orb.Ring, t types.Transform) orb.Ring {
	out := make(orb.Ring, len(ring))
	for i, p := range ring {
		out[i] = warpPoint(p, t)
	}
	return out
}

func warpPolygon(poly orb.Polygon, t types.Transform) orb.Polygon {
	out := make(orb.Polygon, len(poly))
	for i, ring := range poly {
		out[i] = warpRing(ring, t)
	}
	return out
}

// warpFeature returns a copy of f with its geometry warped from pixel
// space to lon/lat, tagged with the WGS84 CRS.
func warpFeature(f types.Feature, t types.Transform) (types.Feature, error) {
	geom, err := warpGeometry(f.Geometry, t)
	if err != nil {
		return f, fmt.Errorf("warp feature %s: %w", f.ID, err)
	}
	f.Geometry = geom
	f.IsPixelSpace = false
	f.CRS = "EPSG:4326"
	return f, nil
}
