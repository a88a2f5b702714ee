// Package ranking composes similarity, anomaly and secondary quality signals
// into a single deterministic ordering across a comparable set.  The base
// listing ranks alongside its alternatives, which is what lets callers answer
// "is my choice actually the best value".
package ranking

import (
	"sort"
	"time"

	"github.com/motorintel/comparables/internal/domain/listing"
)

// neutralGemScore substitutes for candidates without a computed gem score.
const neutralGemScore = 50

// Config carries the composite-score weighting.  The constants reproduce the
// tuned contract values; they are not derived from first principles.
type Config struct {
	// PriceWeight scales the normalized price-attractiveness term (0-100).
	PriceWeight float64 `mapstructure:"price_weight"`

	// GemWeight scales the anomaly/gem score term (0-100).
	GemWeight float64 `mapstructure:"gem_weight"`

	// SimilarityBonusMax is the maximum bonus granted to non-base entries
	// for being close to the base: bonus = similarity * max.
	SimilarityBonusMax float64 `mapstructure:"similarity_bonus_max"`

	// AgePenaltyPerYear and AgePenaltyMax shape the age penalty:
	// min(AgePenaltyMax, AgePenaltyPerYear * age_in_years).
	AgePenaltyPerYear float64 `mapstructure:"age_penalty_per_year"`
	AgePenaltyMax     float64 `mapstructure:"age_penalty_max"`
}

// DefaultConfig returns the tuned composite weighting.
func DefaultConfig() Config {
	return Config{
		PriceWeight:        0.3,
		GemWeight:          0.4,
		SimilarityBonusMax: 30,
		AgePenaltyPerYear:  2,
		AgePenaltyMax:      30,
	}
}

// Entry is one listing entering the ranking.
type Entry struct {
	Listing listing.Listing

	// Similarity to the base listing in [0,1].  The base itself carries 1.
	Similarity float64

	// GemScore is the 0-100 anomaly/gem score; nil means not computed and
	// substitutes the neutral 50.
	GemScore *int

	// IsBase marks the base listing's own entry.
	IsBase bool
}

// RankedItem is one row of the resulting order.
type RankedItem struct {
	Rank           int     `json:"rank"`
	ListingID      string  `json:"listing_id"`
	Title          string  `json:"title,omitempty"`
	Price          *int64  `json:"price,omitempty"`
	CompositeScore float64 `json:"composite_score"`
	GemScore       int     `json:"gem_score"`
	Similarity     float64 `json:"similarity"`
	IsBase         bool    `json:"is_base"`
}

// Ranking is the deterministic total order over a comparable set.
type Ranking struct {
	Items []RankedItem `json:"items"`

	// BaseRank is the 1-based position of the base listing.
	BaseRank int `json:"base_rank"`

	// InsufficientData is set when the base had no comparables at all and
	// the ranking degenerates to the single base entry.
	InsufficientData bool `json:"insufficient_data"`
}

// Ranker computes composite value orderings.  Safe for concurrent use; the
// reference time is injected so repeated runs over one snapshot are
// byte-identical.
type Ranker struct {
	cfg Config
}

// NewRanker constructs a Ranker, applying defaults to unset fields.
func NewRanker(cfg Config) *Ranker {
	def := DefaultConfig()
	if cfg.PriceWeight <= 0 {
		cfg.PriceWeight = def.PriceWeight
	}
	if cfg.GemWeight <= 0 {
		cfg.GemWeight = def.GemWeight
	}
	if cfg.SimilarityBonusMax <= 0 {
		cfg.SimilarityBonusMax = def.SimilarityBonusMax
	}
	if cfg.AgePenaltyPerYear <= 0 {
		cfg.AgePenaltyPerYear = def.AgePenaltyPerYear
	}
	if cfg.AgePenaltyMax <= 0 {
		cfg.AgePenaltyMax = def.AgePenaltyMax
	}
	return &Ranker{cfg: cfg}
}

// Rank orders entries by descending composite score.  Ties keep the original
// input order: the sort is explicitly stable, and input order (base first,
// then candidates by descending similarity) is the documented tie-break rule
// rather than an accident of the sort algorithm.
//
// An input containing only the base entry yields a single-row ranking with
// InsufficientData set.
func (r *Ranker) Rank(entries []Entry, now time.Time) Ranking {
	if len(entries) == 0 {
		return Ranking{InsufficientData: true}
	}

	priceScore := normalizedPriceScores(entries)

	items := make([]RankedItem, len(entries))
	for i, e := range entries {
		gem := neutralGemScore
		if e.GemScore != nil {
			gem = *e.GemScore
		}

		composite := priceScore[i]*r.cfg.PriceWeight + float64(gem)*r.cfg.GemWeight
		if !e.IsBase {
			composite += e.Similarity * r.cfg.SimilarityBonusMax
		}
		if age := e.Listing.AgeYears(now); age >= 0 {
			penalty := r.cfg.AgePenaltyPerYear * float64(age)
			if penalty > r.cfg.AgePenaltyMax {
				penalty = r.cfg.AgePenaltyMax
			}
			composite -= penalty
		}
		if composite < 0 {
			composite = 0
		}

		items[i] = RankedItem{
			ListingID:      e.Listing.ID,
			Title:          e.Listing.Title,
			Price:          e.Listing.Price,
			CompositeScore: composite,
			GemScore:       gem,
			Similarity:     e.Similarity,
			IsBase:         e.IsBase,
		}
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].CompositeScore > items[j].CompositeScore
	})

	out := Ranking{Items: items, InsufficientData: len(entries) == 1}
	for i := range items {
		items[i].Rank = i + 1
		if items[i].IsBase {
			out.BaseRank = i + 1
		}
	}
	return out
}

// normalizedPriceScores min-max normalizes prices across the full set being
// ranked and inverts them so the cheapest listing scores 100.  Unknown prices
// take the neutral 50; a set with a single distinct price scores 100 for all.
func normalizedPriceScores(entries []Entry) []float64 {
	var minP, maxP float64
	first := true
	for _, e := range entries {
		p, ok := e.Listing.PriceValue()
		if !ok {
			continue
		}
		fp := float64(p)
		if first {
			minP, maxP = fp, fp
			first = false
			continue
		}
		if fp < minP {
			minP = fp
		}
		if fp > maxP {
			maxP = fp
		}
	}

	scores := make([]float64, len(entries))
	for i, e := range entries {
		p, ok := e.Listing.PriceValue()
		switch {
		case !ok || first:
			scores[i] = 50
		case maxP == minP:
			scores[i] = 100
		default:
			scores[i] = (1 - (float64(p)-minP)/(maxP-minP)) * 100
		}
	}
	return scores
}
