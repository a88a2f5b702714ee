package similarity

import (
	"math"

	"github.com/motorintel/comparables/internal/domain/listing"
	"github.com/motorintel/comparables/internal/engine/keywords"
)

// neutral is the factor value substituted when the inputs required to compute
// a factor are absent on either side.
const neutral = 0.5

// conditionFlagSpan is the signal-count difference at which the condition
// factor bottoms out.
const conditionFlagSpan = 5.0

// Scorer computes SimilarityBreakdowns.  It is stateless apart from its
// configured weights and the lexicon store backing stop-word filtering, so a
// single instance is safe for concurrent use across workers.
type Scorer struct {
	weights Weights
	lexicon *keywords.Store
}

// NewScorer constructs a Scorer.  Weights must validate; callers holding
// config-sourced weights should have rejected bad sums at load time.
func NewScorer(weights Weights, lexicon *keywords.Store) (*Scorer, error) {
	if err := weights.Validate(); err != nil {
		return nil, err
	}
	return &Scorer{weights: weights, lexicon: lexicon}, nil
}

// Weights returns the configured factor weighting.
func (s *Scorer) Weights() Weights { return s.weights }

// Score computes the per-factor and aggregate similarity between base and
// candidate.  Condition signals may be nil on either side; every absent input
// degrades its factor to the neutral 0.5.  The computation is symmetric:
// Score(a, b, sa, sb) == Score(b, a, sb, sa).
func (s *Scorer) Score(base, candidate *listing.Listing, baseSignals, candidateSignals *listing.ConditionSignals) Breakdown {
	stop := stopSetOf(s.lexicon)

	b := Breakdown{
		Price:      priceFactor(base, candidate),
		Year:       yearFactor(base, candidate),
		Mileage:    mileageFactor(base, candidate),
		Text:       textCosine(base.Text(), candidate.Text(), stop),
		Condition:  conditionFactor(baseSignals, candidateSignals),
		SellerType: sellerFactor(base, candidate),
		Location:   locationFactor(base, candidate),
	}

	agg := b.Price*s.weights.Price +
		b.Year*s.weights.Year +
		b.Mileage*s.weights.Mileage +
		b.Text*s.weights.Text +
		b.Condition*s.weights.Condition +
		b.SellerType*s.weights.SellerType +
		b.Location*s.weights.Location
	b.Aggregate = clamp01(agg)

	return b
}

// priceFactor: 1 - |Pb - Pc| / max(Pb, Pc) when both prices are known.
func priceFactor(a, b *listing.Listing) float64 {
	pa, okA := a.PriceValue()
	pb, okB := b.PriceValue()
	if !okA || !okB {
		return neutral
	}
	maxP := math.Max(float64(pa), float64(pb))
	if maxP == 0 {
		return 1.0
	}
	return clamp01(1 - math.Abs(float64(pa)-float64(pb))/maxP)
}

// yearFactor: 1 - |Yb - Yc| / 10, floored at 0.  Ten model years apart means
// no similarity.
func yearFactor(a, b *listing.Listing) float64 {
	if a.Year == nil || b.Year == nil {
		return neutral
	}
	diff := math.Abs(float64(*a.Year - *b.Year))
	return clamp01(1 - diff/10)
}

// mileageFactor: 1 - |Ma - Mb| / max(Ma, Mb); two odometers both at exactly
// zero are identical, not undefined.
func mileageFactor(a, b *listing.Listing) float64 {
	if a.Mileage == nil || b.Mileage == nil {
		return neutral
	}
	ma, mb := float64(*a.Mileage), float64(*b.Mileage)
	maxM := math.Max(ma, mb)
	if maxM == 0 {
		return 1.0
	}
	return clamp01(1 - math.Abs(ma-mb)/maxM)
}

// conditionFactor averages a red-flag-count term with a positive-signal-count
// term, each bottoming out at a difference of conditionFlagSpan.
func conditionFactor(a, b *listing.ConditionSignals) float64 {
	if a == nil || b == nil {
		return neutral
	}
	flagSim := 1 - math.Min(1, math.Abs(float64(a.RedFlags-b.RedFlags))/conditionFlagSpan)
	posSim := 1 - math.Min(1, math.Abs(float64(a.PositiveSignals-b.PositiveSignals))/conditionFlagSpan)
	return clamp01((flagSim + posSim) / 2)
}

func sellerFactor(a, b *listing.Listing) float64 {
	if a.SellerType == "" || b.SellerType == "" {
		return neutral
	}
	if a.SellerType == b.SellerType {
		return 1.0
	}
	return 0.3
}

func locationFactor(a, b *listing.Listing) float64 {
	if a.Location == "" || b.Location == "" {
		return neutral
	}
	if a.Location == b.Location {
		return 1.0
	}
	return 0.2
}

func stopSetOf(store *keywords.Store) map[string]struct{} {
	if store == nil {
		return nil
	}
	lex := store.Current()
	if lex == nil {
		return nil
	}
	set := make(map[string]struct{}, len(lex.StopWords))
	for _, w := range lex.StopWords {
		set[w] = struct{}{}
	}
	return set
}
