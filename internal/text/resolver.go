// Package text implements the Text/Place Resolver stage: normalizing
// OCR tokens and resolving them against a gazetteer, with an optional
// n-gram phase for multi-word place names.
package text

import (
	"context"
	"regexp"
	"strings"

	"github.com/paulmach/orb"

	"github.com/mapwright/extractpipe/internal/gazetteer"
	"github.com/mapwright/extractpipe/internal/stageerr"
	"github.com/mapwright/extractpipe/internal/types"
)

const stageName = "text"

var wordPattern = regexp.MustCompile(`[\p{L}\p{M}'-]+`)

// SplitWords breaks raw OCR text into word-boundary tokens, the same
// boundary rule (Unicode letters, combining marks, apostrophes and
// hyphens) used across the pipeline's tokenization.
func SplitWords(s string) []string {
	return wordPattern.FindAllString(s, -1)
}

// Resolve normalizes each OCR token, looks it up in the gazetteer, and
// (if enabled) scans n-gram windows for multi-word matches. It returns
// one PlacePoint per n-gram hit (longest windows first, left to right
// within a window size), followed by one PlacePoint, hit or miss, for
// every token not covered by such a hit, in OCR emission order.
func Resolve(ctx context.Context, tokens []Token, gaz gazetteer.Gazetteer, cfg types.TextConfig) ([]types.PlacePoint, error) {
	if err := ValidateLanguages(cfg.Languages); err != nil {
		return nil, stageerr.New(stageName, stageerr.KindInvalidConfig, "invalid language config", err)
	}
	if gaz == nil {
		return nil, stageerr.New(stageName, stageerr.KindGazetteerUnavailable, "no gazetteer configured", nil)
	}

	consumed := make([]bool, len(tokens))
	var points []types.PlacePoint

	if cfg.EnableNGrams {
		maxN := cfg.MaxNGramTokens
		if maxN < 2 {
			maxN = 2
		}
		for n := maxN; n >= 2; n-- {
			for i := 0; i+n <= len(tokens); i++ {
				if anyConsumed(consumed, i, i+n) {
					continue
				}
				joined := joinTokens(tokens[i : i+n])
				pt, err := lookupOne(ctx, joined, tokens[i:i+n], gaz, n, cfg.MinMatchScore)
				if err != nil {
					return nil, stageerr.New(stageName, stageerr.KindGazetteerUnavailable, "gazetteer lookup", err)
				}
				// Only a real hit suppresses the tokens inside the window;
				// a miss here must not emit, or every unmatched window
				// would duplicate the single-token pass below.
				if pt.Found {
					points = append(points, pt)
					markConsumed(consumed, i, i+n)
				}
			}
		}
	}

	for i, tok := range tokens {
		if consumed[i] {
			continue
		}
		pt, err := lookupOne(ctx, tok.Text, tokens[i:i+1], gaz, 1, cfg.MinMatchScore)
		if err != nil {
			return nil, stageerr.New(stageName, stageerr.KindGazetteerUnavailable, "gazetteer lookup", err)
		}
		points = append(points, pt)
	}

	return points, nil
}

func anyConsumed(consumed []bool, start, end int) bool {
	for i := start; i < end; i++ {
		if consumed[i] {
			return true
		}
	}
	return false
}

func markConsumed(consumed []bool, start, end int) {
	for i := start; i < end; i++ {
		consumed[i] = true
	}
}

func joinTokens(toks []Token) string {
	parts := make([]string, len(toks))
	for i, t := range toks {
		parts[i] = t.Text
	}
	return strings.Join(parts, " ")
}

// lookupOne always returns a PlacePoint: a hit carries the disambiguated
// gazetteer location with Found=true, a miss carries lon=lat=0, the
// original token as MatchName, and Found=false.
func lookupOne(ctx context.Context, raw string, toks []Token, gaz gazetteer.Gazetteer, ngram int, minScore float64) (types.PlacePoint, error) {
	miss := types.PlacePoint{
		Token:      raw,
		Normalized: Normalize(raw),
		Location:   orb.Point{0, 0},
		MatchName:  raw,
		NGramSize:  ngram,
		Found:      false,
	}
	if miss.Normalized == "" {
		return miss, nil
	}

	matches, err := gaz.Lookup(ctx, miss.Normalized)
	if err != nil {
		return types.PlacePoint{}, err
	}
	if len(matches) == 0 {
		return miss, nil
	}

	meanConf := meanConfidence(toks)
	if meanConf < minScore {
		return miss, nil
	}

	best := pickBest(matches)

	return types.PlacePoint{
		Token:      raw,
		Normalized: miss.Normalized,
		Location:   orb.Point{best.Lon, best.Lat},
		MatchName:  best.Name,
		MatchID:    miss.Normalized,
		Confidence: meanConf,
		NGramSize:  ngram,
		Found:      true,
	}, nil
}

// pickBest disambiguates multiple gazetteer candidates for the same
// normalized name: largest population wins, ties broken by
// lexicographically smallest canonical name.
func pickBest(matches []gazetteer.Entry) gazetteer.Entry {
	best := matches[0]
	for _, m := range matches[1:] {
		if m.Population > best.Population {
			best = m
		} else if m.Population == best.Population && m.Name < best.Name {
			best = m
		}
	}
	return best
}

func meanConfidence(toks []Token) float64 {
	if len(toks) == 0 {
		return 0
	}
	sum := 0.0
	for _, t := range toks {
		sum += t.Confidence
	}
	return sum / float64(len(toks))
}
