package text

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"unicode"
)

// foldTransformer strips NFKD-decomposed combining marks after
// compatibility decomposition, the "ASCII-fold" step that lets
// "Köln" and "Koln" normalize to the same gazetteer key.
var foldTransformer = transform.Chain(
	norm.NFKD,
	runes.Remove(runes.In(unicode.Mn)),
	norm.NFC,
)

// Normalize applies NFKD decomposition, diacritic stripping, and
// casefolding to a raw OCR token or gazetteer name, producing the
// canonical key both sides of a lookup are compared under.
func Normalize(s string) string {
	folded, _, err := transform.String(foldTransformer, s)
	if err != nil {
		folded = s
	}
	folded = strings.TrimSpace(folded)
	return cases.Fold().String(folded)
}
