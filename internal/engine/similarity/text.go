package similarity

import (
	"math"

	"github.com/motorintel/comparables/internal/engine/keywords"
)

// textCosine computes the cosine similarity between term-frequency vectors of
// two texts after tokenization and stop-word removal.  Either text being
// empty (or reduced to nothing by the stop list) yields 0.
func textCosine(a, b string, stop map[string]struct{}) float64 {
	ta := termFrequencies(a, stop)
	tb := termFrequencies(b, stop)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}

	// Iterate the smaller map for the dot product.
	if len(tb) < len(ta) {
		ta, tb = tb, ta
	}
	var dot float64
	for term, fa := range ta {
		if fb, ok := tb[term]; ok {
			dot += float64(fa) * float64(fb)
		}
	}
	if dot == 0 {
		return 0
	}

	norm := magnitude(ta) * magnitude(tb)
	if norm == 0 {
		return 0
	}
	return clamp01(dot / norm)
}

func termFrequencies(text string, stop map[string]struct{}) map[string]int {
	tokens := keywords.Tokenize(text, 2)
	if len(tokens) == 0 {
		return nil
	}
	tf := make(map[string]int, len(tokens))
	for _, tok := range tokens {
		if _, isStop := stop[tok]; isStop {
			continue
		}
		tf[tok]++
	}
	return tf
}

func magnitude(tf map[string]int) float64 {
	var sum float64
	for _, f := range tf {
		sum += float64(f) * float64(f)
	}
	return math.Sqrt(sum)
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
