// Package retrieval produces the bounded candidate set of plausibly
// comparable listings for a given base listing.  It is a read-only
// composition of the corpus port and the keyword extractor; an empty corpus
// or zero matches is a normal outcome, never an error.
package retrieval

import (
	"context"

	"github.com/motorintel/comparables/internal/domain/listing"
	"github.com/motorintel/comparables/internal/engine/keywords"
	"github.com/motorintel/comparables/internal/infrastructure/monitoring/logging"
)

// Config carries the retrieval filter tunables.
type Config struct {
	// PriceBand is the relative width of the price window around a known
	// base price; 0.30 means plus or minus 30 percent.
	PriceBand float64 `mapstructure:"price_band"`

	// YearSpan is the model-year window around a known base year.
	YearSpan int `mapstructure:"year_span"`

	// TopKeywords is how many extracted base keywords feed the containment
	// filter.
	TopKeywords int `mapstructure:"top_keywords"`

	// DefaultLimit applies when a caller passes a non-positive limit.
	DefaultLimit int `mapstructure:"default_limit"`

	// MinSimilarity is the scored-similarity admission threshold for the
	// comparable set.  Candidates pass the structural filters here first;
	// the scorer then measures them, and anything below the threshold stays
	// out of the set.  Zero takes the default; a negative value admits
	// every candidate.
	MinSimilarity float64 `mapstructure:"min_similarity"`
}

// DefaultConfig returns the contract filter constants: price within 30
// percent, model year within 3, top-3 keywords, admission above 0.4.
func DefaultConfig() Config {
	return Config{
		PriceBand:     0.30,
		YearSpan:      3,
		TopKeywords:   3,
		DefaultLimit:  10,
		MinSimilarity: 0.4,
	}
}

// Retriever finds comparable candidates for a base listing.
type Retriever struct {
	cfg       Config
	extractor *keywords.Extractor
	logger    logging.Logger
}

// NewRetriever constructs a Retriever.
func NewRetriever(cfg Config, extractor *keywords.Extractor, logger logging.Logger) *Retriever {
	if cfg.PriceBand <= 0 {
		cfg.PriceBand = DefaultConfig().PriceBand
	}
	if cfg.YearSpan <= 0 {
		cfg.YearSpan = DefaultConfig().YearSpan
	}
	if cfg.TopKeywords <= 0 {
		cfg.TopKeywords = DefaultConfig().TopKeywords
	}
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = DefaultConfig().DefaultLimit
	}
	if cfg.MinSimilarity == 0 {
		cfg.MinSimilarity = DefaultConfig().MinSimilarity
	}
	return &Retriever{cfg: cfg, extractor: extractor, logger: logger.Named("retrieval")}
}

// EffectiveLimit resolves a caller-supplied limit to the one Find would
// apply, so callers can key caches on the real value.
func (r *Retriever) EffectiveLimit(limit int) int {
	if limit <= 0 {
		return r.cfg.DefaultLimit
	}
	return limit
}

// MinSimilarity returns the admission threshold for scored candidates.
func (r *Retriever) MinSimilarity() float64 {
	return r.cfg.MinSimilarity
}

// Find returns at most limit candidates comparable to base, most recently
// seen first, excluding base itself and inactive listings.  Each filter only
// applies when the base datum backing it is known; sparse base listings relax
// toward an unfiltered recency query rather than matching nothing.
//
// The only error surfaced is a corpus fault, which the caller must treat as
// the hard CorpusUnavailable condition.
func (r *Retriever) Find(ctx context.Context, base *listing.Listing, corpus listing.Corpus, limit int) ([]listing.Listing, error) {
	if limit <= 0 {
		limit = r.cfg.DefaultLimit
	}

	filter := listing.QueryFilter{
		ActiveOnly: true,
		ExcludeID:  base.ID,
		Limit:      limit,
	}

	if price, ok := base.PriceValue(); ok {
		lo := int64(float64(price) * (1 - r.cfg.PriceBand))
		hi := int64(float64(price) * (1 + r.cfg.PriceBand))
		filter.PriceMin = &lo
		filter.PriceMax = &hi
	}
	if base.Year != nil {
		lo := *base.Year - r.cfg.YearSpan
		hi := *base.Year + r.cfg.YearSpan
		filter.YearMin = &lo
		filter.YearMax = &hi
	}
	if base.FuelType != "" {
		filter.FuelType = base.FuelType
	}
	if kw := r.extractor.Top(base.Text(), r.cfg.TopKeywords); len(kw) > 0 {
		filter.Keywords = kw
	}

	candidates, err := corpus.Query(ctx, filter)
	if err != nil {
		return nil, err
	}

	// The base listing must never appear among its own candidates, whatever
	// the corpus implementation returned.
	out := candidates[:0]
	for _, c := range candidates {
		if c.ID == base.ID || !c.Active {
			continue
		}
		out = append(out, c)
	}
	if len(out) > limit {
		out = out[:limit]
	}

	r.logger.Debug("candidate retrieval complete",
		logging.String("base_id", base.ID),
		logging.Int("candidates", len(out)))
	return out, nil
}
