package types

import "github.com/paulmach/orb"

// ControlPoint pairs a pixel-space coordinate with a known geographic
// position, supplied by the caller alongside the source image.
type ControlPoint struct {
	PixelX, PixelY float64
	Lon, Lat       float64
}

// PlacePoint is a gazetteer-resolved token position: the raw OCR token,
// its normalized form, and the matched gazetteer entry's real-world
// location. Location is already WGS84 lon/lat from the gazetteer record,
// not the OCR token's pixel position, so it needs no georeferencing warp.
type PlacePoint struct {
	Token      string
	Normalized string
	Location   orb.Point // WGS84 lon/lat of the matched gazetteer entry
	MatchName  string    // canonical gazetteer name, or the original token on a miss
	MatchID    string    // normalized gazetteer lookup key of the match, empty if unmatched
	Confidence float64   // 0..1, token/match agreement
	NGramSize  int       // 1 for single tokens, >1 for n-gram matches
	Found      bool      // false if no gazetteer entry matched the token
}
