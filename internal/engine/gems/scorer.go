// Package gems scores how likely a listing is an overlooked bargain.  The
// composite blends the price-anomaly score with textual heuristics (seller
// motivation, presentation quality, under-advertised equipment), seasonal
// timing and profit potential.  All heuristics draw their phrase tables from
// the shared lexicon, and the clock is an explicit argument so scoring stays
// reproducible.
package gems

import (
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/motorintel/comparables/internal/domain/listing"
	"github.com/motorintel/comparables/internal/engine/keywords"
)

// Level is the coarse gem classification derived from the composite score.
type Level string

const (
	LevelExceptional   Level = "exceptional"
	LevelHighPotential Level = "high_potential"
	LevelGoodDeal      Level = "good_deal"
	LevelModerate      Level = "moderate"
	LevelNotGem        Level = "not_gem"
)

// Weights blends the six sub-scores into the composite.
type Weights struct {
	PriceAnomaly     float64 `mapstructure:"price_anomaly"`
	SellerMotivation float64 `mapstructure:"seller_motivation"`
	Presentation     float64 `mapstructure:"presentation"`
	HiddenValue      float64 `mapstructure:"hidden_value"`
	MarketTiming     float64 `mapstructure:"market_timing"`
	ProfitPotential  float64 `mapstructure:"profit_potential"`
}

// DefaultWeights returns the tuned sub-score blend.
func DefaultWeights() Weights {
	return Weights{
		PriceAnomaly:     0.25,
		SellerMotivation: 0.20,
		Presentation:     0.15,
		HiddenValue:      0.15,
		MarketTiming:     0.10,
		ProfitPotential:  0.15,
	}
}

// Input carries everything one gem evaluation needs.  AnomalyScore and
// DeviationPct come from the anomaly detector; a caller without them passes
// the neutral 50 and 0.
type Input struct {
	Listing *listing.Listing

	// AnomalyScore is the 0-100 market-position score of the listing.
	AnomalyScore int

	// DeviationPct is how far below the comparable mean the listing is
	// priced, in percent.
	DeviationPct float64

	// PriceReduced is set when the source observed a price drop on this
	// listing since first seen.
	PriceReduced bool
}

// Subscores breaks the composite down for explainability.
type Subscores struct {
	PriceAnomaly     int `json:"price_anomaly"`
	SellerMotivation int `json:"seller_motivation"`
	Presentation     int `json:"presentation"`
	HiddenValue      int `json:"hidden_value"`
	MarketTiming     int `json:"market_timing"`
	ProfitPotential  int `json:"profit_potential"`
}

// Report is the outcome of one gem evaluation.
type Report struct {
	Composite int       `json:"composite"`
	Level     Level     `json:"level"`
	Subscores Subscores `json:"subscores"`
}

// Scorer computes gem reports.  Safe for concurrent use.
type Scorer struct {
	weights Weights
	store   *keywords.Store
}

// NewScorer constructs a Scorer over the given lexicon store.  A zero Weights
// value takes the defaults.
func NewScorer(weights Weights, store *keywords.Store) *Scorer {
	if weights == (Weights{}) {
		weights = DefaultWeights()
	}
	return &Scorer{weights: weights, store: store}
}

// Score evaluates the listing at the given reference time.  Every sub-score
// is clamped to [0,100] before weighting, so a pathological listing cannot
// push the composite outside the scale.
func (s *Scorer) Score(in Input, now time.Time) Report {
	lex := s.store.Current()

	sub := Subscores{
		PriceAnomaly:     clamp100(in.AnomalyScore),
		SellerMotivation: s.sellerMotivation(in, lex),
		Presentation:     s.presentation(in.Listing, lex),
		HiddenValue:      s.hiddenValue(in.Listing, lex),
		MarketTiming:     marketTiming(now),
		ProfitPotential:  profitPotential(in.DeviationPct),
	}

	composite := float64(sub.PriceAnomaly)*s.weights.PriceAnomaly +
		float64(sub.SellerMotivation)*s.weights.SellerMotivation +
		float64(sub.Presentation)*s.weights.Presentation +
		float64(sub.HiddenValue)*s.weights.HiddenValue +
		float64(sub.MarketTiming)*s.weights.MarketTiming +
		float64(sub.ProfitPotential)*s.weights.ProfitPotential

	total := clamp100(int(math.Round(composite)))
	return Report{
		Composite: total,
		Level:     LevelFromScore(total),
		Subscores: sub,
	}
}

// LevelFromScore maps a composite gem score to its classification.
func LevelFromScore(score int) Level {
	switch {
	case score >= 80:
		return LevelExceptional
	case score >= 65:
		return LevelHighPotential
	case score >= 50:
		return LevelGoodDeal
	case score >= 35:
		return LevelModerate
	default:
		return LevelNotGem
	}
}

// sellerMotivation accumulates pressure signals: motivated-seller phrases,
// urgency wording, an observed price drop and the seller being a private
// individual (less anchored pricing).
func (s *Scorer) sellerMotivation(in Input, lex *keywords.Lexicon) int {
	text := strings.ToLower(in.Listing.Text())
	score := 0

	for _, phrase := range lex.MotivatedSeller {
		if phrase != "" && strings.Contains(text, phrase) {
			score += 15
		}
	}
	for _, pattern := range lex.TimePressure {
		re, err := regexp.Compile(pattern)
		if err != nil {
			continue
		}
		if re.MatchString(text) {
			score += 10
		}
	}
	if in.PriceReduced {
		score += 20
	}
	if in.Listing.SellerType == listing.SellerIndividual {
		score += 10
	}
	return clamp100(score)
}

// presentation starts from a perfect 100 and deducts for each signal of a
// low-effort advert.  Poorly presented listings attract fewer buyers, which
// is exactly what makes them gem candidates.
func (s *Scorer) presentation(l *listing.Listing, lex *keywords.Lexicon) int {
	text := strings.ToLower(l.Text())
	score := 100

	for _, phrase := range lex.PoorPresentation {
		if phrase != "" && strings.Contains(text, phrase) {
			score -= 15
		}
	}

	title := strings.TrimSpace(l.Title)
	if len([]rune(title)) < 20 {
		score -= 10
	}
	if isShouting(title) {
		score -= 10
	}
	if len([]rune(strings.TrimSpace(l.Description))) < 50 {
		score -= 20
	}
	if strings.Count(l.Text(), "!") > 3 {
		score -= 15
	}

	switch {
	case l.ImageCount == 0:
		score -= 20
	case l.ImageCount < 3:
		score -= 10
	}

	if score < 0 {
		score = 0
	}
	return score
}

// hiddenValue rewards equipment mentioned in the description but absent from
// the title: value the seller has but is not advertising.  Options already in
// the title still count, at a reduced rate.
func (s *Scorer) hiddenValue(l *listing.Listing, lex *keywords.Lexicon) int {
	title := strings.ToLower(l.Title)
	desc := strings.ToLower(l.Description)
	full := title + " " + desc

	score := 0.0
	for option, value := range lex.ValuableOptions {
		switch {
		case strings.Contains(title, option):
			score += float64(value) * 0.3
		case strings.Contains(desc, option):
			score += float64(value) * 0.7
		}
	}

	for brand, features := range lex.BrandFeatures {
		if !strings.Contains(full, brand) {
			continue
		}
		for _, feature := range features {
			if strings.Contains(desc, feature) && !strings.Contains(title, feature) {
				score += 10
			}
		}
	}
	return clamp100(int(math.Round(score)))
}

// marketTiming reflects buyer-side seasonality: demand for used vehicles dips
// in late autumn and winter, which favors whoever is buying, and peaks over
// the summer holiday season.
func marketTiming(now time.Time) int {
	switch now.Month() {
	case time.November, time.December, time.January, time.February:
		return 65
	case time.June, time.July, time.August:
		return 40
	default:
		return 50
	}
}

// profitPotential bands the below-mean price deviation into a resale-margin
// estimate.
func profitPotential(deviationPct float64) int {
	switch {
	case deviationPct > 50:
		return 100
	case deviationPct > 30:
		return 90
	case deviationPct > 20:
		return 80
	case deviationPct > 15:
		return 70
	case deviationPct > 10:
		return 60
	default:
		return clamp100(int(math.Max(0, 30+deviationPct*2)))
	}
}

func clamp100(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func isShouting(s string) bool {
	letters := 0
	upper := 0
	for _, r := range s {
		if !isLetter(r) {
			continue
		}
		letters++
		if r >= 'A' && r <= 'Z' {
			upper++
		}
	}
	return letters >= 5 && upper == letters
}

func isLetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= 'À' && r <= 'ÿ')
}
