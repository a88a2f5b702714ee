// Package anomaly classifies a listing's market position by comparing its
// price against the price distribution of its comparable set.  The detector
// is a pure function of its inputs; too small a priced sample yields a
// neutral result flagged insufficient, never an error.
package anomaly

import (
	"math"

	"github.com/motorintel/comparables/internal/domain/listing"
)

// Position is the coarse market-position label derived from the anomaly score.
type Position string

const (
	PositionExtremelyUndervalued Position = "extremely_undervalued"
	PositionUndervalued          Position = "undervalued"
	PositionFairValue            Position = "fair_value"
	PositionOverpriced           Position = "overpriced"
)

// Score bands.  Deviation is the percentage the listing sits below the
// comparable mean; positive deviation means potentially undervalued.  The
// bands are empirically tuned contract constants.
const (
	neutralScore = 50

	// overpricedFloor is the lowest score assigned however far above the
	// comparable mean a listing is priced.
	overpricedFloor = 20
)

// Config carries the detector tunables.
type Config struct {
	// MinSamples is the minimum number of priced comparables required
	// before a non-neutral anomaly score is produced.
	MinSamples int `mapstructure:"min_samples"`
}

// DefaultConfig returns the contract minimum of 3 priced comparables.
func DefaultConfig() Config {
	return Config{MinSamples: 3}
}

// Result is the outcome of one anomaly detection.
type Result struct {
	// Score is the 0-100 anomaly magnitude; higher means more of a bargain.
	Score int `json:"score"`

	// Position is the label derived from Score.
	Position Position `json:"position"`

	// DeviationPct is how far below the comparable mean the listing is
	// priced, in percent.  Zero when insufficient data.
	DeviationPct float64 `json:"deviation_pct"`

	// MeanPrice is the mean price of the priced comparables, in minor units.
	MeanPrice float64 `json:"mean_price"`

	// SampleSize is the number of priced comparables used.
	SampleSize int `json:"sample_size"`

	// InsufficientData is set when the priced sample was below the
	// configured minimum (or the listing itself has no price).  The
	// confidence estimator consumes this flag.
	InsufficientData bool `json:"insufficient_data"`
}

// Detector computes anomaly results.  Safe for concurrent use.
type Detector struct {
	cfg Config
}

// NewDetector constructs a Detector, applying defaults to unset fields.
func NewDetector(cfg Config) *Detector {
	if cfg.MinSamples <= 0 {
		cfg.MinSamples = DefaultConfig().MinSamples
	}
	return &Detector{cfg: cfg}
}

// Detect compares the listing price with the prices of its comparables.
// With fewer than MinSamples priced comparables, or no price on the listing
// itself, the result is the neutral score 50 / fair_value with
// InsufficientData set.
func (d *Detector) Detect(l *listing.Listing, comparables []listing.Listing) Result {
	prices := knownPrices(comparables)
	basePrice, hasPrice := l.PriceValue()

	if !hasPrice || len(prices) < d.cfg.MinSamples {
		return Result{
			Score:            neutralScore,
			Position:         PositionFairValue,
			SampleSize:       len(prices),
			InsufficientData: true,
		}
	}

	mean := meanOf(prices)
	deviation := (mean - float64(basePrice)) / mean * 100

	score := ScoreFromDeviation(deviation)
	return Result{
		Score:        score,
		Position:     PositionFromScore(score),
		DeviationPct: deviation,
		MeanPrice:    mean,
		SampleSize:   len(prices),
	}
}

// ScoreFromDeviation maps a below-mean percentage to the 0-100 anomaly
// score.  First matching band wins; overpricing decays linearly to the floor.
func ScoreFromDeviation(deviationPct float64) int {
	switch {
	case deviationPct > 30:
		return 95
	case deviationPct > 20:
		return 85
	case deviationPct > 10:
		return 70
	case deviationPct > 0:
		return 60
	default:
		return int(math.Max(overpricedFloor, neutralScore+deviationPct*2))
	}
}

// PositionFromScore maps an anomaly score to its market-position label.
func PositionFromScore(score int) Position {
	switch {
	case score > 80:
		return PositionExtremelyUndervalued
	case score > 65:
		return PositionUndervalued
	case score > 35:
		return PositionFairValue
	default:
		return PositionOverpriced
	}
}

func knownPrices(ls []listing.Listing) []float64 {
	prices := make([]float64, 0, len(ls))
	for i := range ls {
		if p, ok := ls[i].PriceValue(); ok {
			prices = append(prices, float64(p))
		}
	}
	return prices
}

func meanOf(vals []float64) float64 {
	var sum float64
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}
