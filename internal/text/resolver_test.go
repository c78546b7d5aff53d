package text

import (
	"context"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mapwright/extractpipe/internal/gazetteer"
	"github.com/mapwright/extractpipe/internal/types"
)

func TestNormalize_FoldsAccentsAndCase(t *testing.T) {
	assert.Equal(t, "koln", Normalize("Köln"))
	assert.Equal(t, "munchen", Normalize("MÜNCHEN"))
}

func TestSplitWords_Basic(t *testing.T) {
	words := SplitWords("New York, 1842.")
	assert.Equal(t, []string{"New", "York"}, words)
}

func TestValidateLanguages_RejectsUnknown(t *testing.T) {
	require.NoError(t, ValidateLanguages([]string{"en", "de"}))
	require.Error(t, ValidateLanguages([]string{"xx"}))
}

func TestResolve_SingleTokenMatch(t *testing.T) {
	gaz := gazetteer.NewMemoryStore(map[string][]gazetteer.Entry{
		"hannover": {{Name: "Hannover", Lon: 9.73, Lat: 52.37}},
	})
	tokens := []Token{{Text: "Hannover", X: 10, Y: 20, Confidence: 0.9}}

	points, err := Resolve(context.Background(), tokens, gaz, types.TextConfig{Languages: []string{"de"}})
	require.NoError(t, err)
	require.Len(t, points, 1)
	assert.Equal(t, "Hannover", points[0].MatchName)
}

func TestResolve_NGramMatch(t *testing.T) {
	gaz := gazetteer.NewMemoryStore(map[string][]gazetteer.Entry{
		"new york": {{Name: "New York", Lon: -74.0, Lat: 40.7}},
	})
	tokens := []Token{
		{Text: "New", X: 0, Y: 0, Confidence: 0.9},
		{Text: "York", X: 5, Y: 0, Confidence: 0.9},
	}
	points, err := Resolve(context.Background(), tokens, gaz, types.TextConfig{
		Languages: []string{"en"}, EnableNGrams: true, MaxNGramTokens: 2,
	})
	require.NoError(t, err)
	require.Len(t, points, 1)
	assert.Equal(t, 2, points[0].NGramSize)
}

func TestResolve_BelowMinScoreEmitsMiss(t *testing.T) {
	gaz := gazetteer.NewMemoryStore(map[string][]gazetteer.Entry{
		"hannover": {{Name: "Hannover", Lon: 9.73, Lat: 52.37}},
	})
	tokens := []Token{{Text: "Hannover", X: 10, Y: 20, Confidence: 0.1}}

	points, err := Resolve(context.Background(), tokens, gaz, types.TextConfig{
		Languages: []string{"de"}, MinMatchScore: 0.5,
	})
	require.NoError(t, err)
	require.Len(t, points, 1)
	assert.False(t, points[0].Found)
	assert.Equal(t, "Hannover", points[0].MatchName)
	assert.Equal(t, orb.Point{0, 0}, points[0].Location)
}

func TestResolve_UnmatchedTokenEmitsMiss(t *testing.T) {
	gaz := gazetteer.NewMemoryStore(map[string][]gazetteer.Entry{})
	tokens := []Token{{Text: "Nowhereville", X: 0, Y: 0, Confidence: 0.9}}

	points, err := Resolve(context.Background(), tokens, gaz, types.TextConfig{Languages: []string{"en"}})
	require.NoError(t, err)
	require.Len(t, points, 1)
	assert.False(t, points[0].Found)
	assert.Equal(t, "Nowhereville", points[0].MatchName)
}

func TestResolve_NGramMissDoesNotEmit(t *testing.T) {
	gaz := gazetteer.NewMemoryStore(map[string][]gazetteer.Entry{
		"hannover": {{Name: "Hannover", Lon: 9.73, Lat: 52.37}},
	})
	tokens := []Token{
		{Text: "New", X: 0, Y: 0, Confidence: 0.9},
		{Text: "Hannover", X: 5, Y: 0, Confidence: 0.9},
	}
	points, err := Resolve(context.Background(), tokens, gaz, types.TextConfig{
		Languages: []string{"en"}, EnableNGrams: true, MaxNGramTokens: 2,
	})
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.False(t, points[0].Found)
	assert.True(t, points[1].Found)
}

func TestResolve_DisambiguatesByPopulationThenName(t *testing.T) {
	gaz := gazetteer.NewMemoryStore(map[string][]gazetteer.Entry{
		"springfield": {
			{Name: "Springfield B", Lon: 1, Lat: 1, Population: 500},
			{Name: "Springfield A", Lon: 2, Lat: 2, Population: 900},
			{Name: "Springfield C", Lon: 3, Lat: 3, Population: 900},
		},
	})
	tokens := []Token{{Text: "Springfield", X: 0, Y: 0, Confidence: 0.9}}

	points, err := Resolve(context.Background(), tokens, gaz, types.TextConfig{Languages: []string{"en"}})
	require.NoError(t, err)
	require.Len(t, points, 1)
	assert.True(t, points[0].Found)
	assert.Equal(t, "Springfield A", points[0].MatchName)
}
