// Package similarity computes normalized, weighted similarity between a base
// listing and a candidate, with a per-factor breakdown.  Every factor and the
// aggregate are in [0,1]; missing inputs degrade to a neutral 0.5 rather than
// an error, and score(A,B) == score(B,A) for every factor.
package similarity

import (
	"math"

	"github.com/motorintel/comparables/pkg/errors"
)

// weightTolerance is the allowed floating-point slack when checking that
// factor weights sum to 1.
const weightTolerance = 1e-9

// Weights carries the per-factor weighting of the aggregate similarity score.
// The configured weights must always sum to 1.
type Weights struct {
	Price      float64 `mapstructure:"price" json:"price"`
	Year       float64 `mapstructure:"year" json:"year"`
	Mileage    float64 `mapstructure:"mileage" json:"mileage"`
	Text       float64 `mapstructure:"text" json:"text"`
	Condition  float64 `mapstructure:"condition" json:"condition"`
	SellerType float64 `mapstructure:"seller_type" json:"seller_type"`
	Location   float64 `mapstructure:"location" json:"location"`
}

// DefaultWeights returns the tuned default factor weighting.  The exact
// values are empirically chosen contract constants; treat them as tunables,
// not provably optimal.
func DefaultWeights() Weights {
	return Weights{
		Price:      0.25,
		Year:       0.20,
		Mileage:    0.20,
		Text:       0.15,
		Condition:  0.10,
		SellerType: 0.05,
		Location:   0.05,
	}
}

// Sum returns the total of all factor weights.
func (w Weights) Sum() float64 {
	return w.Price + w.Year + w.Mileage + w.Text + w.Condition + w.SellerType + w.Location
}

// Validate checks that every weight is non-negative and the total is 1.
func (w Weights) Validate() error {
	for _, v := range []float64{w.Price, w.Year, w.Mileage, w.Text, w.Condition, w.SellerType, w.Location} {
		if v < 0 {
			return errors.InvalidParam("similarity weights must be non-negative")
		}
	}
	if math.Abs(w.Sum()-1.0) > weightTolerance {
		return errors.InvalidParam("similarity weights must sum to 1.0").
			WithDetail("configured weights are applied to every aggregate score")
	}
	return nil
}

// Breakdown is the per-factor similarity result between two listings.
// Each factor and Aggregate lie in [0,1].
type Breakdown struct {
	Price      float64 `json:"price"`
	Year       float64 `json:"year"`
	Mileage    float64 `json:"mileage"`
	Text       float64 `json:"text"`
	Condition  float64 `json:"condition"`
	SellerType float64 `json:"seller_type"`
	Location   float64 `json:"location"`
	Aggregate  float64 `json:"aggregate"`
}
