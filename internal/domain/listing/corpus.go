package listing

import "context"

// QueryFilter is the bounded filter set supported by every corpus
// implementation: numeric ranges, categorical equality, keyword containment
// and the active-only flag.  Nil range bounds mean "unconstrained".
type QueryFilter struct {
	PriceMin *int64
	PriceMax *int64
	YearMin  *int
	YearMax  *int

	// FuelType, when non-empty, requires exact categorical equality.
	FuelType string

	// Keywords, when non-empty, requires the listing text to contain at
	// least one of the tokens (case-insensitive substring containment).
	Keywords []string

	// ActiveOnly excludes listings whose activity flag is false.
	ActiveOnly bool

	// ExcludeID removes one listing (typically the base) from the result.
	ExcludeID string

	// Limit bounds the result size; implementations order by most recently
	// seen first before applying it.  Zero means implementation default.
	Limit int
}

// Corpus is the read-only view over the set of known listings.  It is owned
// by an external collaborator; the engine performs no writes and no retries
// through it.  Implementations must surface their own faults as
// CodeCorpusUnavailable errors, the single hard-failure condition of the
// engine.
type Corpus interface {
	// Query returns listings matching the filter, most recently seen first,
	// at most filter.Limit of them.  Zero matches is not an error.
	Query(ctx context.Context, filter QueryFilter) ([]Listing, error)

	// Get returns the listing with the given ID, or a CodeNotFound error.
	Get(ctx context.Context, id string) (*Listing, error)

	// Version identifies the corpus snapshot the reads are served from.
	// Callers key any caching of derived results on (listing ID, version)
	// so results never outlive the data they were computed from.
	Version(ctx context.Context) (string, error)
}

// SignalSource is the optional text-condition-signal port.  Implementations
// return (nil, nil) when no signals exist for a listing; the similarity
// scorer then falls back to the neutral condition factor.
type SignalSource interface {
	Signals(ctx context.Context, listingID string) (*ConditionSignals, error)
}
