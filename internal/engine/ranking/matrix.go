package ranking

import "github.com/motorintel/comparables/internal/domain/listing"

// Matrix criteria names, also the JSON keys of each row's score map.
const (
	CriterionPrice   = "price"
	CriterionYear    = "year"
	CriterionMileage = "mileage"
)

// missingCriterionScore is assigned when a listing lacks the attribute.
const missingCriterionScore = 0.5

// MatrixRow holds one listing's normalized criterion scores in [0,1].
type MatrixRow struct {
	ListingID string             `json:"listing_id"`
	IsBase    bool               `json:"is_base"`
	Scores    map[string]float64 `json:"scores"`
}

// Matrix is the side-by-side criterion comparison across a ranked set.
// Scores are min-max normalized over the listings that carry the attribute,
// so they are only meaningful within one matrix, never across requests.
type Matrix struct {
	Criteria []string    `json:"criteria"`
	Rows     []MatrixRow `json:"rows"`
}

// BuildMatrix normalizes price, year and mileage across the given entries.
// Price and mileage are inverted (lower is better); year is not (newer is
// better).  Listings missing an attribute score the neutral 0.5, and a
// criterion where every listing carries the same value scores 1.0 for all.
func BuildMatrix(entries []Entry) Matrix {
	m := Matrix{
		Criteria: []string{CriterionPrice, CriterionYear, CriterionMileage},
		Rows:     make([]MatrixRow, len(entries)),
	}

	price := normalizeCriterion(entries, true, func(l *listing.Listing) (float64, bool) {
		p, ok := l.PriceValue()
		return float64(p), ok
	})
	year := normalizeCriterion(entries, false, func(l *listing.Listing) (float64, bool) {
		if l.Year == nil {
			return 0, false
		}
		return float64(*l.Year), true
	})
	mileage := normalizeCriterion(entries, true, func(l *listing.Listing) (float64, bool) {
		if l.Mileage == nil {
			return 0, false
		}
		return float64(*l.Mileage), true
	})

	for i, e := range entries {
		m.Rows[i] = MatrixRow{
			ListingID: e.Listing.ID,
			IsBase:    e.IsBase,
			Scores: map[string]float64{
				CriterionPrice:   price[i],
				CriterionYear:    year[i],
				CriterionMileage: mileage[i],
			},
		}
	}
	return m
}

func normalizeCriterion(entries []Entry, invert bool, value func(*listing.Listing) (float64, bool)) []float64 {
	var minV, maxV float64
	seen := false
	for i := range entries {
		v, ok := value(&entries[i].Listing)
		if !ok {
			continue
		}
		if !seen {
			minV, maxV = v, v
			seen = true
			continue
		}
		if v < minV {
			minV = v
		}
		if v > maxV {
			maxV = v
		}
	}

	scores := make([]float64, len(entries))
	for i := range entries {
		v, ok := value(&entries[i].Listing)
		switch {
		case !ok:
			scores[i] = missingCriterionScore
		case minV == maxV:
			scores[i] = 1.0
		default:
			norm := (v - minV) / (maxV - minV)
			if invert {
				norm = 1 - norm
			}
			scores[i] = norm
		}
	}
	return scores
}

// Action is the high-level advice derived from the base listing's rank.
type Action string

const (
	// ActionKeepChoice: the base listing ranked first.
	ActionKeepChoice Action = "keep_choice"

	// ActionConsiderAlternatives: the base is near the top but beaten.
	ActionConsiderAlternatives Action = "consider_alternatives"

	// ActionReconsider: the base ranked outside the top three.
	ActionReconsider Action = "reconsider"
)

// RecommendationConfidence labels how much evidence backs the advice.
type RecommendationConfidence string

const (
	ConfidenceHigh   RecommendationConfidence = "high"
	ConfidenceMedium RecommendationConfidence = "medium"
	ConfidenceLow    RecommendationConfidence = "low"
)

// Recommendation is the actionable summary of a ranking.
type Recommendation struct {
	Action     Action                   `json:"action"`
	Confidence RecommendationConfidence `json:"confidence"`
}

// Recommend maps the base listing's rank and the number of comparables it was
// ranked against to advice.  Rank 1 keeps the choice; top three suggests
// looking at the alternatives; anything lower suggests reconsidering.
func Recommend(baseRank, comparableCount int) Recommendation {
	rec := Recommendation{}
	switch {
	case baseRank == 1:
		rec.Action = ActionKeepChoice
	case baseRank <= 3:
		rec.Action = ActionConsiderAlternatives
	default:
		rec.Action = ActionReconsider
	}

	switch {
	case comparableCount >= 3:
		rec.Confidence = ConfidenceHigh
	case comparableCount == 2:
		rec.Confidence = ConfidenceMedium
	default:
		rec.Confidence = ConfidenceLow
	}
	return rec
}
