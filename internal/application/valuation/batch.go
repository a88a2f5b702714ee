package valuation

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/motorintel/comparables/internal/infrastructure/monitoring/logging"
	"github.com/motorintel/comparables/pkg/errors"
)

// EvaluateBatch evaluates many listings concurrently against one pinned
// corpus version.  Items preserve input order; a per-listing failure is
// recorded on its item and never aborts the rest.  Only resolving the corpus
// version, or the batch deadline expiring, fails the whole call.
func (s *serviceImpl) EvaluateBatch(ctx context.Context, input *BatchInput) (*BatchResult, error) {
	if input == nil || len(input.ListingIDs) == 0 {
		return nil, errors.InvalidParam("at least one listing id is required")
	}

	if s.deps.BatchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.deps.BatchTimeout)
		defer cancel()
	}

	version, err := s.deps.Corpus.Version(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeCorpusUnavailable, "failed to resolve corpus version")
	}

	items := make([]BatchItem, len(input.ListingIDs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.deps.BatchConcurrency)
	for i, id := range input.ListingIDs {
		i, id := i, id
		items[i].ListingID = id
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				items[i].Error = err.Error()
				items[i].ErrorCode = errors.CodeInternal.String()
				return nil
			}

			result, _, err := s.evaluateCached(gctx, id, input.Limit, version)
			if err != nil {
				items[i].Error = err.Error()
				items[i].ErrorCode = errors.GetCode(err).String()
				return nil
			}
			items[i].Result = result
			return nil
		})
	}
	// Workers never return errors; Wait only observes context cancellation.
	_ = g.Wait()

	out := &BatchResult{CorpusVersion: version, Items: items}
	for i := range items {
		if items[i].Result != nil {
			out.Succeeded++
		} else {
			out.Failed++
		}
	}

	s.logger.Info("batch evaluation complete",
		logging.String("corpus_version", version),
		logging.Int("requested", len(items)),
		logging.Int("succeeded", out.Succeeded),
		logging.Int("failed", out.Failed))
	return out, nil
}

// evaluateCached is the cache-aware single evaluation at a pinned version,
// shared by Evaluate and EvaluateBatch.  The returned flag reports a cache
// hit.
func (s *serviceImpl) evaluateCached(ctx context.Context, id string, limit int, version string) (*ValuationResult, bool, error) {
	if id == "" {
		return nil, false, errors.InvalidParam("listing id is required")
	}

	// Non-positive limits resolve to the retriever default before keying,
	// so explicit-default and unset callers share one cache entry.
	limit = s.deps.Retriever.EffectiveLimit(limit)

	key := cacheKey(id, version, limit)
	if cached := s.cacheGet(ctx, key); cached != nil {
		return cached, true, nil
	}

	v, err, _ := s.sf.Do(key, func() (interface{}, error) {
		return s.evaluate(ctx, id, limit, version)
	})
	if err != nil {
		return nil, false, err
	}
	result := v.(*ValuationResult)
	s.cacheSet(ctx, key, result)
	return result, false, nil
}
