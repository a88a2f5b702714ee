package valuation

import (
	"time"

	"github.com/motorintel/comparables/internal/domain/listing"
	"github.com/motorintel/comparables/internal/engine/anomaly"
	"github.com/motorintel/comparables/internal/engine/gems"
	"github.com/motorintel/comparables/internal/engine/ranking"
	"github.com/motorintel/comparables/internal/engine/similarity"
)

// EvaluateInput contains input for a single-listing evaluation.
type EvaluateInput struct {
	ListingID string

	// Limit caps the comparable set; non-positive takes the retriever default.
	Limit int
}

// CompareInput contains input for a full comparison report.
type CompareInput struct {
	ListingID string
	Limit     int
}

// BatchInput contains input for a batch evaluation.
type BatchInput struct {
	ListingIDs []string
	Limit      int
}

// ComparableScore is one retrieved comparable with its similarity breakdown
// and gem score relative to the shared comparable-set statistics.
type ComparableScore struct {
	Listing    listing.Listing      `json:"listing"`
	Similarity similarity.Breakdown `json:"similarity"`
	GemScore   int                  `json:"gem_score"`
}

// ValuationResult is the full evaluation of one listing against its
// comparable set.  Results are immutable once generated: the corpus version
// they were computed from is part of the result and of its cache identity.
type ValuationResult struct {
	ListingID     string            `json:"listing_id"`
	CorpusVersion string            `json:"corpus_version"`
	GeneratedAt   time.Time         `json:"generated_at"`
	Base          listing.Listing   `json:"base"`
	Comparables   []ComparableScore `json:"comparables"`
	Anomaly       anomaly.Result    `json:"anomaly"`
	Gem           gems.Report       `json:"gem"`
	Confidence    float64           `json:"confidence"`

	// NotEvaluable marks a listing whose structural fields and text are all
	// empty.  The result carries neutral scores at floor confidence; it is
	// an answer, not a failure.
	NotEvaluable bool `json:"not_evaluable,omitempty"`
}

// ComparisonReport ranks the base listing against its comparables and turns
// the ordering into actionable advice.
type ComparisonReport struct {
	ReportID       string                 `json:"report_id"`
	ListingID      string                 `json:"listing_id"`
	CorpusVersion  string                 `json:"corpus_version"`
	GeneratedAt    time.Time              `json:"generated_at"`
	Ranking        ranking.Ranking        `json:"ranking"`
	Matrix         ranking.Matrix         `json:"matrix"`
	Recommendation ranking.Recommendation `json:"recommendation"`
	Confidence     float64                `json:"confidence"`
}

// BatchItem is one entry of a batch evaluation outcome.  Exactly one of
// Result and Error is set.
type BatchItem struct {
	ListingID string           `json:"listing_id"`
	Result    *ValuationResult `json:"result,omitempty"`
	Error     string           `json:"error,omitempty"`
	ErrorCode string           `json:"error_code,omitempty"`
}

// BatchResult aggregates a batch evaluation.  Items preserve the input order;
// per-listing failures are recorded in place and never abort the batch.
type BatchResult struct {
	CorpusVersion string      `json:"corpus_version"`
	Items         []BatchItem `json:"items"`
	Succeeded     int         `json:"succeeded"`
	Failed        int         `json:"failed"`
}
