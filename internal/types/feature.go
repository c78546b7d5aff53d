package types

import "github.com/paulmach/orb"

// FeatureKind distinguishes the three families of extracted feature.
type FeatureKind string

const (
	FeatureKindZone  FeatureKind = "zone"
	FeatureKindShape FeatureKind = "shape"
	FeatureKindPlace FeatureKind = "place"
)

// ZoneProperties carries a ColorLayer's identity into a Feature.
type ZoneProperties struct {
	ColorName string
	L, A, B   float64
	R, G, B8  uint8
}

// ShapeProperties carries a Shape's descriptors into a Feature.
type ShapeProperties struct {
	Area          float64
	Perimeter     float64
	AspectRatio   float64
	Extent        float64
	Solidity      float64
	VertexCount   int
	DominantColor [3]uint8
}

// PlaceProperties carries a PlacePoint's resolution into a Feature.
type PlaceProperties struct {
	Token      string
	MatchName  string
	MatchID    string
	Confidence float64
	Found      bool
}

// CoastlineProperties records what the Coastline Snapper did to a
// feature's boundary, if anything. Present only on features the
// snapper actually touched.
type CoastlineProperties struct {
	Snapped                 bool
	PointsSnapped           int
	CoastlinePointsDetected int
	SnapDistanceKM          float64
}

// Feature is the tagged union emitted by every extraction stage.
// Exactly one of the Zone/Shape/Place fields is non-nil, matching Kind.
// Properties stay as typed Go structs through the pipeline; they are
// flattened into a GeoJSON property bag only at the persistence
// boundary (internal/geojson).
type Feature struct {
	ID           string
	MapID        string
	Kind         FeatureKind
	Geometry     orb.Geometry
	Zone         *ZoneProperties
	Shape        *ShapeProperties
	Place        *PlaceProperties
	Coastline    *CoastlineProperties
	IsPixelSpace bool
	CRS          string // "EPSG:4326" once georeferenced, "" in pixel space
	StartDate    string // historical period the source map depicts, if known
	EndDate      string
}

// FeatureCollection groups features by kind, preserving the
// deterministic emission order each stage produces.
type FeatureCollection struct {
	Zones  []Feature
	Shapes []Feature
	Places []Feature
}

// Count returns the total number of features across all kinds.
func (fc FeatureCollection) Count() int {
	return len(fc.Zones) + len(fc.Shapes) + len(fc.Places)
}

// FeatureCounts returns a map of feature counts by kind, for progress
// reporting and logging.
func (fc FeatureCollection) FeatureCounts() map[string]int {
	return map[string]int{
		"zones":  len(fc.Zones),
		"shapes": len(fc.Shapes),
		"places": len(fc.Places),
		"total":  fc.Count(),
	}
}

// All returns every feature in deterministic order: zones, then shapes,
// then places, each in the order the producing stage emitted them.
func (fc FeatureCollection) All() []Feature {
	out := make([]Feature, 0, fc.Count())
	out = append(out, fc.Zones...)
	out = append(out, fc.Shapes...)
	out = append(out, fc.Places...)
	return out
}
