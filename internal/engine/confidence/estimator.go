// Package confidence derives a [0.1, 1.0] confidence value for engine
// outputs from the comparable sample size and the spread of the compared
// values.  There is always minimal residual confidence; the estimator never
// returns 0 and never exceeds 1.
package confidence

import "math"

const (
	// MinConfidence is the floor of every estimate.  Degraded valuations
	// that bypass the estimator report it directly.
	MinConfidence = 0.1

	maxConfidence  = 1.0
	baseConfidence = 0.5
)

// Config carries the estimator tunables.
type Config struct {
	// LargeSample is the sample size above which the full +0.2 bonus
	// applies.  Valuation paths with tightly capped candidate sets lower
	// this to their cap.
	LargeSample int `mapstructure:"large_sample"`
}

// DefaultConfig returns the default large-sample threshold of 100.
func DefaultConfig() Config {
	return Config{LargeSample: 100}
}

// Input aggregates the evidence feeding one estimate.
type Input struct {
	// SampleSize is the number of comparables behind the score.
	SampleSize int

	// CoV is the coefficient of variation of the compared values, in
	// percent (standard deviation over mean times 100).  Negative means
	// unknown and contributes nothing.
	CoV float64

	// TrendStrength, when non-nil, is a 0-100 measure of how established
	// the underlying trend is.
	TrendStrength *float64
}

// Estimator computes confidence values.  Safe for concurrent use.
type Estimator struct {
	cfg Config
}

// NewEstimator constructs an Estimator, applying defaults to unset fields.
func NewEstimator(cfg Config) *Estimator {
	if cfg.LargeSample <= 0 {
		cfg.LargeSample = DefaultConfig().LargeSample
	}
	return &Estimator{cfg: cfg}
}

// Estimate starts from a neutral 0.5 and applies the sample-size bonus,
// the variance penalty and the optional trend-strength term, clamping the
// result into [0.1, 1.0].  It is monotonically non-decreasing in SampleSize
// for fixed variance.
func (e *Estimator) Estimate(in Input) float64 {
	c := baseConfidence

	switch {
	case in.SampleSize > e.cfg.LargeSample:
		c += 0.2
	case in.SampleSize > 50:
		c += 0.15
	case in.SampleSize > 20:
		c += 0.1
	case in.SampleSize < 10:
		c -= 0.2
	}

	if in.CoV >= 0 {
		if in.CoV > 50 {
			c -= 0.15
		} else if in.CoV < 20 {
			c += 0.1
		}
	}

	if in.TrendStrength != nil {
		if *in.TrendStrength > 70 {
			c += 0.15
		} else if *in.TrendStrength < 30 {
			c -= 0.1
		}
	}

	return math.Min(maxConfidence, math.Max(MinConfidence, c))
}

// CoV computes the coefficient of variation of values in percent.  Fewer
// than two values, or a zero mean, yields -1 ("unknown").
func CoV(values []float64) float64 {
	if len(values) < 2 {
		return -1
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))
	if mean == 0 {
		return -1
	}

	var sq float64
	for _, v := range values {
		d := v - mean
		sq += d * d
	}
	std := math.Sqrt(sq / float64(len(values)))
	return math.Abs(std/mean) * 100
}
