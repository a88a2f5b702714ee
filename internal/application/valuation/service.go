// Package valuation provides the application-level service composing
// retrieval, similarity, anomaly detection, gem scoring and ranking into the
// engine's three operations: evaluate one listing, compare it against its
// comparables, and evaluate a batch.  This package serves as the interface
// between HTTP handlers and the scoring engine.
package valuation

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/motorintel/comparables/internal/domain/listing"
	"github.com/motorintel/comparables/internal/engine/anomaly"
	"github.com/motorintel/comparables/internal/engine/confidence"
	"github.com/motorintel/comparables/internal/engine/gems"
	"github.com/motorintel/comparables/internal/engine/ranking"
	"github.com/motorintel/comparables/internal/engine/retrieval"
	"github.com/motorintel/comparables/internal/engine/similarity"
	"github.com/motorintel/comparables/internal/infrastructure/monitoring/logging"
	"github.com/motorintel/comparables/pkg/errors"
)

// Service defines the interface for valuation application operations.
type Service interface {
	Evaluate(ctx context.Context, input *EvaluateInput) (*ValuationResult, error)
	Compare(ctx context.Context, input *CompareInput) (*ComparisonReport, error)
	EvaluateBatch(ctx context.Context, input *BatchInput) (*BatchResult, error)
}

// Metrics is the optional instrumentation hook for the service.  A nil
// Metrics in Deps disables instrumentation without conditional call sites.
type Metrics interface {
	ObserveEvaluation(duration time.Duration, comparables int, cacheHit bool)
	ObservePosition(position string)
}

type nopMetrics struct{}

func (nopMetrics) ObserveEvaluation(time.Duration, int, bool) {}
func (nopMetrics) ObservePosition(string)                     {}

// Deps aggregates the collaborators of the valuation service.  Corpus,
// Retriever, Scorer, Detector, Estimator, Gems and Ranker are required;
// Signals, Cache and Metrics are optional.
type Deps struct {
	Corpus    listing.Corpus
	Signals   listing.SignalSource
	Retriever *retrieval.Retriever
	Scorer    *similarity.Scorer
	Detector  *anomaly.Detector
	Estimator *confidence.Estimator
	Gems      *gems.Scorer
	Ranker    *ranking.Ranker

	Cache    Cache
	CacheTTL time.Duration

	Logger  logging.Logger
	Metrics Metrics

	// Now overrides the clock, for reproducible tests.
	Now func() time.Time

	// BatchConcurrency bounds parallel evaluations in EvaluateBatch.
	BatchConcurrency int

	// BatchTimeout bounds the total wall time of one batch.  Zero disables
	// the deadline.
	BatchTimeout time.Duration
}

// serviceImpl implements the Service interface.
type serviceImpl struct {
	deps   Deps
	logger logging.Logger
	sf     singleflight.Group
}

// NewService constructs the valuation service.
func NewService(deps Deps) (Service, error) {
	switch {
	case deps.Corpus == nil:
		return nil, errors.InvalidParam("valuation service requires a corpus")
	case deps.Retriever == nil:
		return nil, errors.InvalidParam("valuation service requires a retriever")
	case deps.Scorer == nil:
		return nil, errors.InvalidParam("valuation service requires a similarity scorer")
	case deps.Detector == nil:
		return nil, errors.InvalidParam("valuation service requires an anomaly detector")
	case deps.Estimator == nil:
		return nil, errors.InvalidParam("valuation service requires a confidence estimator")
	case deps.Gems == nil:
		return nil, errors.InvalidParam("valuation service requires a gem scorer")
	case deps.Ranker == nil:
		return nil, errors.InvalidParam("valuation service requires a ranker")
	}
	if deps.Logger == nil {
		deps.Logger = logging.NewNopLogger()
	}
	if deps.Metrics == nil {
		deps.Metrics = nopMetrics{}
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.BatchConcurrency <= 0 {
		deps.BatchConcurrency = 8
	}
	return &serviceImpl{deps: deps, logger: deps.Logger.Named("valuation")}, nil
}

// Evaluate scores one listing against its retrieved comparable set.  Results
// are cached per (listing ID, corpus version, effective limit); concurrent
// requests for the same key share a single computation.
func (s *serviceImpl) Evaluate(ctx context.Context, input *EvaluateInput) (*ValuationResult, error) {
	if input == nil || input.ListingID == "" {
		return nil, errors.InvalidParam("listing id is required")
	}

	start := s.deps.Now()
	version, err := s.deps.Corpus.Version(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeCorpusUnavailable, "failed to resolve corpus version")
	}

	result, hit, err := s.evaluateCached(ctx, input.ListingID, input.Limit, version)
	if err != nil {
		return nil, err
	}

	s.deps.Metrics.ObserveEvaluation(s.deps.Now().Sub(start), len(result.Comparables), hit)
	if !hit {
		s.deps.Metrics.ObservePosition(string(result.Anomaly.Position))
	}
	return result, nil
}

// Compare evaluates the listing and turns the evaluation into a ranked
// comparison report with a criterion matrix and a recommendation.
func (s *serviceImpl) Compare(ctx context.Context, input *CompareInput) (*ComparisonReport, error) {
	if input == nil || input.ListingID == "" {
		return nil, errors.InvalidParam("listing id is required")
	}

	res, err := s.Evaluate(ctx, &EvaluateInput{ListingID: input.ListingID, Limit: input.Limit})
	if err != nil {
		return nil, err
	}

	baseGem := res.Gem.Composite
	entries := make([]ranking.Entry, 0, 1+len(res.Comparables))
	entries = append(entries, ranking.Entry{
		Listing:    res.Base,
		Similarity: 1.0,
		GemScore:   &baseGem,
		IsBase:     true,
	})
	for i := range res.Comparables {
		c := res.Comparables[i]
		gem := c.GemScore
		entries = append(entries, ranking.Entry{
			Listing:    c.Listing,
			Similarity: c.Similarity.Aggregate,
			GemScore:   &gem,
		})
	}

	rk := s.deps.Ranker.Rank(entries, s.deps.Now())
	report := &ComparisonReport{
		ReportID:       uuid.NewString(),
		ListingID:      res.ListingID,
		CorpusVersion:  res.CorpusVersion,
		GeneratedAt:    s.deps.Now().UTC(),
		Ranking:        rk,
		Matrix:         ranking.BuildMatrix(entries),
		Recommendation: ranking.Recommend(rk.BaseRank, len(res.Comparables)),
		Confidence:     res.Confidence,
	}

	s.logger.Info("comparison report generated",
		logging.String("listing_id", res.ListingID),
		logging.String("report_id", report.ReportID),
		logging.Int("base_rank", rk.BaseRank),
		logging.String("action", string(report.Recommendation.Action)))
	return report, nil
}

// evaluate performs the uncached evaluation pipeline at a pinned corpus
// version.
func (s *serviceImpl) evaluate(ctx context.Context, id string, limit int, version string) (*ValuationResult, error) {
	base, err := s.deps.Corpus.Get(ctx, id)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, err
		}
		return nil, errors.Wrap(err, errors.CodeCorpusUnavailable, "failed to load base listing")
	}
	if !base.Evaluable() {
		s.logger.Warn("listing not evaluable, returning neutral result", logging.String("listing_id", id))
		return s.notEvaluableResult(base, version), nil
	}

	candidates, err := s.deps.Retriever.Find(ctx, base, s.deps.Corpus, limit)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeCorpusUnavailable, "comparable retrieval failed")
	}

	baseSignals := s.signalsFor(ctx, base.ID)
	now := s.deps.Now()

	// Score every candidate and admit only those above the similarity
	// threshold; the anomaly statistics are computed over the admitted set.
	minSim := s.deps.Retriever.MinSimilarity()
	comparables := make([]ComparableScore, 0, len(candidates))
	admitted := make([]listing.Listing, 0, len(candidates))
	prices := make([]float64, 0, len(candidates))
	for i := range candidates {
		cand := candidates[i]
		bd := s.deps.Scorer.Score(base, &cand, baseSignals, s.signalsFor(ctx, cand.ID))
		if bd.Aggregate < minSim {
			continue
		}
		comparables = append(comparables, ComparableScore{Listing: cand, Similarity: bd})
		admitted = append(admitted, cand)
		if p, ok := cand.PriceValue(); ok {
			prices = append(prices, float64(p))
		}
	}

	anomalyRes := s.deps.Detector.Detect(base, admitted)
	gemRep := s.deps.Gems.Score(gems.Input{
		Listing:      base,
		AnomalyScore: anomalyRes.Score,
		DeviationPct: anomalyRes.DeviationPct,
	}, now)

	for i := range comparables {
		comparables[i].GemScore = s.candidateGemScore(&comparables[i].Listing, anomalyRes, now)
	}

	// Comparables are reported by descending similarity; retrieval recency
	// only breaks ties.
	sort.SliceStable(comparables, func(i, j int) bool {
		return comparables[i].Similarity.Aggregate > comparables[j].Similarity.Aggregate
	})

	conf := s.deps.Estimator.Estimate(confidence.Input{
		SampleSize: anomalyRes.SampleSize,
		CoV:        confidence.CoV(prices),
	})

	result := &ValuationResult{
		ListingID:     id,
		CorpusVersion: version,
		GeneratedAt:   now.UTC(),
		Base:          *base,
		Comparables:   comparables,
		Anomaly:       anomalyRes,
		Gem:           gemRep,
		Confidence:    conf,
	}

	s.logger.Debug("evaluation complete",
		logging.String("listing_id", id),
		logging.String("corpus_version", version),
		logging.Int("comparables", len(comparables)),
		logging.Int("anomaly_score", anomalyRes.Score),
		logging.Float64("confidence", conf))
	return result, nil
}

// candidateGemScore scores a comparable against the same price statistics the
// base was measured against, so candidate gem scores in one result are
// mutually comparable.  Without enough priced data every candidate takes the
// neutral composite of its own text heuristics.
func (s *serviceImpl) candidateGemScore(cand *listing.Listing, anomalyRes anomaly.Result, now time.Time) int {
	score := 50
	deviation := 0.0
	if !anomalyRes.InsufficientData && anomalyRes.MeanPrice > 0 {
		if p, ok := cand.PriceValue(); ok {
			deviation = (anomalyRes.MeanPrice - float64(p)) / anomalyRes.MeanPrice * 100
			score = anomaly.ScoreFromDeviation(deviation)
		}
	}
	rep := s.deps.Gems.Score(gems.Input{
		Listing:      cand,
		AnomalyScore: score,
		DeviationPct: deviation,
	}, now)
	return rep.Composite
}

// signalsFor loads condition signals when a signal source is wired; absence
// of a source or of signals degrades the condition factor to neutral.
func (s *serviceImpl) signalsFor(ctx context.Context, id string) *listing.ConditionSignals {
	if s.deps.Signals == nil {
		return nil
	}
	sig, err := s.deps.Signals.Signals(ctx, id)
	if err != nil {
		s.logger.Warn("signal lookup failed, degrading condition factor",
			logging.String("listing_id", id), logging.Err(err))
		return nil
	}
	return sig
}

// notEvaluableResult answers for a listing that carries no scorable data:
// neutral market position, no gem claim, floor confidence, and the explicit
// marker callers branch on.
func (s *serviceImpl) notEvaluableResult(base *listing.Listing, version string) *ValuationResult {
	return &ValuationResult{
		ListingID:     base.ID,
		CorpusVersion: version,
		GeneratedAt:   s.deps.Now().UTC(),
		Base:          *base,
		Anomaly:       s.deps.Detector.Detect(base, nil),
		Gem:           gems.Report{Level: gems.LevelNotGem},
		Confidence:    confidence.MinConfidence,
		NotEvaluable:  true,
	}
}

// cacheKey identifies one evaluation outcome.  The limit participates
// because it caps the comparable set and therefore changes the result.
func cacheKey(listingID, version string, limit int) string {
	return fmt.Sprintf("eval:%s:%s:%d", listingID, version, limit)
}

func (s *serviceImpl) cacheGet(ctx context.Context, key string) *ValuationResult {
	if s.deps.Cache == nil {
		return nil
	}
	var result ValuationResult
	hit, err := s.deps.Cache.Get(ctx, key, &result)
	if err != nil {
		s.logger.Warn("cache read failed, recomputing", logging.String("key", key), logging.Err(err))
		return nil
	}
	if !hit {
		return nil
	}
	return &result
}

func (s *serviceImpl) cacheSet(ctx context.Context, key string, result *ValuationResult) {
	if s.deps.Cache == nil {
		return
	}
	if err := s.deps.Cache.Set(ctx, key, result, s.deps.CacheTTL); err != nil {
		s.logger.Warn("cache write failed", logging.String("key", key), logging.Err(err))
	}
}
