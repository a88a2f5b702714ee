package valuation

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/motorintel/comparables/internal/domain/listing"
	"github.com/motorintel/comparables/internal/engine/anomaly"
	"github.com/motorintel/comparables/internal/engine/confidence"
	"github.com/motorintel/comparables/internal/engine/gems"
	"github.com/motorintel/comparables/internal/engine/keywords"
	"github.com/motorintel/comparables/internal/engine/ranking"
	"github.com/motorintel/comparables/internal/engine/retrieval"
	"github.com/motorintel/comparables/internal/engine/similarity"
	"github.com/motorintel/comparables/internal/infrastructure/corpus"
	"github.com/motorintel/comparables/internal/infrastructure/monitoring/logging"
	"github.com/motorintel/comparables/pkg/errors"
)

var fixedNow = time.Date(2026, time.June, 15, 10, 0, 0, 0, time.UTC)

func int64Ptr(v int64) *int64 { return &v }
func intPtr(v int) *int       { return &v }

func fixtureListing(id string, price int64, title string) listing.Listing {
	return listing.Listing{
		ID:       id,
		Title:    title,
		Price:    int64Ptr(price),
		Year:     intPtr(2018),
		Mileage:  intPtr(90000),
		FuelType: "diesel",
		Active:   true,
	}
}

// fixtureCorpus returns a snapshot with the base listing and three priced
// comparables inside every retrieval filter window.
func fixtureCorpus() *corpus.Snapshot {
	return corpus.NewSnapshot([]listing.Listing{
		fixtureListing("base", 8000, "Renault Clio IV 1.5 dCi"),
		fixtureListing("comp-1", 9500, "Renault Clio 1.5 dCi 90"),
		fixtureListing("comp-2", 10000, "Renault Clio IV diesel"),
		fixtureListing("comp-3", 10400, "Clio IV dCi toutes options"),
	}, "v1")
}

// fakeCache is an in-memory JSON Cache with injectable faults.
type fakeCache struct {
	mu      sync.Mutex
	data    map[string][]byte
	sets    int
	gets    int
	failing bool
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: make(map[string][]byte)}
}

func (c *fakeCache) Get(_ context.Context, key string, dest any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	if c.failing {
		return false, errors.New(errors.CodeCacheUnavailable, "cache down")
	}
	raw, ok := c.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dest)
}

func (c *fakeCache) Set(_ context.Context, key string, value any, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sets++
	if c.failing {
		return errors.New(errors.CodeCacheUnavailable, "cache down")
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.data[key] = raw
	return nil
}

// countingCorpus counts pipeline reads going past the cache.
type countingCorpus struct {
	listing.Corpus
	queries atomic.Int64
}

func (c *countingCorpus) Query(ctx context.Context, f listing.QueryFilter) ([]listing.Listing, error) {
	c.queries.Add(1)
	return c.Corpus.Query(ctx, f)
}

func newTestService(t *testing.T, c listing.Corpus, cache Cache) Service {
	t.Helper()
	return newTestServiceCfg(t, c, cache, retrieval.DefaultConfig())
}

func newTestServiceCfg(t *testing.T, c listing.Corpus, cache Cache, cfg retrieval.Config) Service {
	t.Helper()
	store := keywords.NewStaticStore(&keywords.Lexicon{})
	scorer, err := similarity.NewScorer(similarity.DefaultWeights(), store)
	require.NoError(t, err)

	svc, err := NewService(Deps{
		Corpus:    c,
		Retriever: retrieval.NewRetriever(cfg, keywords.NewExtractor(store), logging.NewNopLogger()),
		Scorer:    scorer,
		Detector:  anomaly.NewDetector(anomaly.DefaultConfig()),
		Estimator: confidence.NewEstimator(confidence.DefaultConfig()),
		Gems:      gems.NewScorer(gems.DefaultWeights(), store),
		Ranker:    ranking.NewRanker(ranking.DefaultConfig()),
		Cache:     cache,
		CacheTTL:  time.Minute,
		Logger:    logging.NewNopLogger(),
		Now:       func() time.Time { return fixedNow },
	})
	require.NoError(t, err)
	return svc
}

func TestEvaluate_FullPipeline(t *testing.T) {
	svc := newTestService(t, fixtureCorpus(), nil)

	res, err := svc.Evaluate(context.Background(), &EvaluateInput{ListingID: "base"})
	require.NoError(t, err)

	assert.Equal(t, "base", res.ListingID)
	assert.Equal(t, "v1", res.CorpusVersion)
	assert.Equal(t, fixedNow.UTC(), res.GeneratedAt)
	require.Len(t, res.Comparables, 3)

	// Base at 8000 against a mean of 9966.67 sits 19.7 percent below it.
	assert.Equal(t, 70, res.Anomaly.Score)
	assert.Equal(t, anomaly.PositionUndervalued, res.Anomaly.Position)
	assert.Equal(t, 3, res.Anomaly.SampleSize)
	assert.False(t, res.Anomaly.InsufficientData)

	// Three comparables with tight price spread: 0.5 - 0.2 + 0.1 = 0.4.
	assert.InDelta(t, 0.4, res.Confidence, 1e-9)

	for _, c := range res.Comparables {
		assert.GreaterOrEqual(t, c.Similarity.Aggregate, 0.0)
		assert.LessOrEqual(t, c.Similarity.Aggregate, 1.0)
		assert.GreaterOrEqual(t, c.GemScore, 0)
		assert.LessOrEqual(t, c.GemScore, 100)
	}
}

// An empty comparable set is a degraded result, never an error.
func TestEvaluate_NoComparables(t *testing.T) {
	c := corpus.NewSnapshot([]listing.Listing{
		fixtureListing("base", 8000, "Renault Clio IV 1.5 dCi"),
	}, "v1")
	svc := newTestService(t, c, nil)

	res, err := svc.Evaluate(context.Background(), &EvaluateInput{ListingID: "base"})
	require.NoError(t, err)

	assert.Empty(t, res.Comparables)
	assert.True(t, res.Anomaly.InsufficientData)
	assert.Equal(t, 50, res.Anomaly.Score)
	assert.Equal(t, anomaly.PositionFairValue, res.Anomaly.Position)
	assert.InDelta(t, 0.3, res.Confidence, 1e-9)
}

// Two priced comparables stay below the anomaly minimum: neutral score with
// visibly low confidence.
func TestEvaluate_BelowMinimumSample(t *testing.T) {
	c := corpus.NewSnapshot([]listing.Listing{
		fixtureListing("base", 8000, "Renault Clio IV 1.5 dCi"),
		fixtureListing("comp-1", 9500, "Renault Clio 1.5 dCi 90"),
		fixtureListing("comp-2", 10000, "Renault Clio IV diesel"),
	}, "v1")
	svc := newTestService(t, c, nil)

	res, err := svc.Evaluate(context.Background(), &EvaluateInput{ListingID: "base"})
	require.NoError(t, err)

	require.Len(t, res.Comparables, 2)
	assert.Equal(t, 50, res.Anomaly.Score)
	assert.Equal(t, anomaly.PositionFairValue, res.Anomaly.Position)
	assert.True(t, res.Anomaly.InsufficientData)
	assert.LessOrEqual(t, res.Confidence, 0.4)
}

func TestEvaluate_UnknownListing(t *testing.T) {
	svc := newTestService(t, fixtureCorpus(), nil)

	_, err := svc.Evaluate(context.Background(), &EvaluateInput{ListingID: "ghost"})
	assert.True(t, errors.IsNotFound(err))
}

// A listing with no scorable data gets a flagged neutral result, not an
// error: the caller can still render it, at floor confidence.
func TestEvaluate_NotEvaluable(t *testing.T) {
	c := corpus.NewSnapshot([]listing.Listing{
		{ID: "hollow", Active: true},
	}, "v1")
	svc := newTestService(t, c, nil)

	res, err := svc.Evaluate(context.Background(), &EvaluateInput{ListingID: "hollow"})
	require.NoError(t, err)

	assert.True(t, res.NotEvaluable)
	assert.Empty(t, res.Comparables)
	assert.True(t, res.Anomaly.InsufficientData)
	assert.Equal(t, 50, res.Anomaly.Score)
	assert.Equal(t, anomaly.PositionFairValue, res.Anomaly.Position)
	assert.Equal(t, gems.LevelNotGem, res.Gem.Level)
	assert.InDelta(t, confidence.MinConfidence, res.Confidence, 1e-9)
	assert.Equal(t, "v1", res.CorpusVersion)
}

// Comparables come back ordered by descending similarity even when retrieval
// recency puts a weak match first.
func TestEvaluate_ComparablesSortedBySimilarity(t *testing.T) {
	// comp-0 retrieves first (snapshot order is recency then ID) but shares
	// little with the base: far price, off year, a third of the mileage, one
	// common title token.
	far := listing.Listing{
		ID:       "comp-0",
		Title:    "Clio break toit panoramique",
		Price:    int64Ptr(10400),
		Year:     intPtr(2021),
		Mileage:  intPtr(30000),
		FuelType: "diesel",
		Active:   true,
	}
	c := corpus.NewSnapshot([]listing.Listing{
		fixtureListing("base", 8000, "Renault Clio IV 1.5 dCi"),
		far,
		fixtureListing("comp-1", 9500, "Renault Clio 1.5 dCi 90"),
		fixtureListing("comp-2", 10000, "Renault Clio IV diesel"),
	}, "v1")
	svc := newTestService(t, c, nil)

	res, err := svc.Evaluate(context.Background(), &EvaluateInput{ListingID: "base"})
	require.NoError(t, err)
	require.Len(t, res.Comparables, 3)

	ids := make([]string, 0, len(res.Comparables))
	for i, cs := range res.Comparables {
		ids = append(ids, cs.Listing.ID)
		if i > 0 {
			assert.LessOrEqual(t, cs.Similarity.Aggregate,
				res.Comparables[i-1].Similarity.Aggregate)
		}
	}
	assert.Equal(t, []string{"comp-1", "comp-2", "comp-0"}, ids)
}

// Candidates scoring below the admission threshold stay out of the
// comparable set and out of the anomaly statistics.
func TestEvaluate_MinSimilarityCutoff(t *testing.T) {
	far := listing.Listing{
		ID:       "comp-0",
		Title:    "Clio break toit panoramique",
		Price:    int64Ptr(10400),
		Year:     intPtr(2021),
		Mileage:  intPtr(30000),
		FuelType: "diesel",
		Active:   true,
	}
	c := corpus.NewSnapshot([]listing.Listing{
		fixtureListing("base", 8000, "Renault Clio IV 1.5 dCi"),
		far,
		fixtureListing("comp-1", 9500, "Renault Clio 1.5 dCi 90"),
		fixtureListing("comp-2", 10000, "Renault Clio IV diesel"),
	}, "v1")

	cfg := retrieval.DefaultConfig()
	cfg.MinSimilarity = 0.75
	svc := newTestServiceCfg(t, c, nil, cfg)

	res, err := svc.Evaluate(context.Background(), &EvaluateInput{ListingID: "base"})
	require.NoError(t, err)

	require.Len(t, res.Comparables, 2)
	for _, cs := range res.Comparables {
		assert.NotEqual(t, "comp-0", cs.Listing.ID)
		assert.GreaterOrEqual(t, cs.Similarity.Aggregate, 0.75)
	}
	assert.Equal(t, 2, res.Anomaly.SampleSize)
}

// Different limits are different results and must not share a cache entry;
// an unset limit shares the default-limit entry.
func TestEvaluate_CacheKeyedByLimit(t *testing.T) {
	cache := newFakeCache()
	svc := newTestService(t, fixtureCorpus(), cache)

	narrow, err := svc.Evaluate(context.Background(), &EvaluateInput{ListingID: "base", Limit: 1})
	require.NoError(t, err)
	assert.Len(t, narrow.Comparables, 1)
	assert.Equal(t, 1, cache.sets)

	wide, err := svc.Evaluate(context.Background(), &EvaluateInput{ListingID: "base", Limit: 10})
	require.NoError(t, err)
	assert.Len(t, wide.Comparables, 3, "wider limit must not reuse the narrow entry")
	assert.Equal(t, 2, cache.sets)

	unset, err := svc.Evaluate(context.Background(), &EvaluateInput{ListingID: "base"})
	require.NoError(t, err)
	assert.Len(t, unset.Comparables, 3)
	assert.Equal(t, 2, cache.sets, "unset limit resolves to the default entry")
}

func TestEvaluate_EmptyInput(t *testing.T) {
	svc := newTestService(t, fixtureCorpus(), nil)

	_, err := svc.Evaluate(context.Background(), nil)
	assert.True(t, errors.IsCode(err, errors.CodeInvalidParam))

	_, err = svc.Evaluate(context.Background(), &EvaluateInput{})
	assert.True(t, errors.IsCode(err, errors.CodeInvalidParam))
}

func TestEvaluate_CacheReadThrough(t *testing.T) {
	cache := newFakeCache()
	counting := &countingCorpus{Corpus: fixtureCorpus()}
	svc := newTestService(t, counting, cache)

	first, err := svc.Evaluate(context.Background(), &EvaluateInput{ListingID: "base"})
	require.NoError(t, err)
	assert.Equal(t, 1, cache.sets)
	assert.Equal(t, int64(1), counting.queries.Load())

	second, err := svc.Evaluate(context.Background(), &EvaluateInput{ListingID: "base"})
	require.NoError(t, err)
	assert.Equal(t, 1, cache.sets, "hit must not rewrite the cache")
	assert.Equal(t, int64(1), counting.queries.Load(), "hit must not re-query the corpus")

	assert.Equal(t, first.Anomaly, second.Anomaly)
	assert.Equal(t, first.CorpusVersion, second.CorpusVersion)
	assert.InDelta(t, first.Confidence, second.Confidence, 1e-9)
}

// A failing cache degrades to recomputation, never to a request failure.
func TestEvaluate_CacheFaultIsSoft(t *testing.T) {
	cache := newFakeCache()
	cache.failing = true
	svc := newTestService(t, fixtureCorpus(), cache)

	res, err := svc.Evaluate(context.Background(), &EvaluateInput{ListingID: "base"})
	require.NoError(t, err)
	assert.Len(t, res.Comparables, 3)
}

// Mutating the corpus bumps the version, which keys fresh results.
func TestEvaluate_VersionedAgainstMutableCorpus(t *testing.T) {
	state := corpus.NewState()
	state.Upsert(fixtureListing("base", 8000, "Renault Clio IV 1.5 dCi"))
	state.Upsert(fixtureListing("comp-1", 9500, "Renault Clio 1.5 dCi 90"))
	svc := newTestService(t, state, newFakeCache())

	first, err := svc.Evaluate(context.Background(), &EvaluateInput{ListingID: "base"})
	require.NoError(t, err)

	state.Upsert(fixtureListing("comp-2", 10000, "Renault Clio IV diesel"))
	second, err := svc.Evaluate(context.Background(), &EvaluateInput{ListingID: "base"})
	require.NoError(t, err)

	assert.NotEqual(t, first.CorpusVersion, second.CorpusVersion)
	assert.Greater(t, len(second.Comparables), len(first.Comparables))
}

func TestCompare_Report(t *testing.T) {
	svc := newTestService(t, fixtureCorpus(), nil)

	rep, err := svc.Compare(context.Background(), &CompareInput{ListingID: "base"})
	require.NoError(t, err)

	assert.NotEmpty(t, rep.ReportID)
	assert.Equal(t, "base", rep.ListingID)
	assert.Equal(t, "v1", rep.CorpusVersion)

	require.Len(t, rep.Ranking.Items, 4)
	assert.Equal(t, 4, len(rep.Matrix.Rows))
	assert.GreaterOrEqual(t, rep.Ranking.BaseRank, 1)
	assert.Contains(t, []ranking.Action{
		ranking.ActionKeepChoice,
		ranking.ActionConsiderAlternatives,
		ranking.ActionReconsider,
	}, rep.Recommendation.Action)
	assert.Equal(t, ranking.ConfidenceHigh, rep.Recommendation.Confidence)

	// Exactly one base row in the ranking.
	baseRows := 0
	for _, it := range rep.Ranking.Items {
		if it.IsBase {
			baseRows++
			assert.Equal(t, rep.Ranking.BaseRank, it.Rank)
		}
	}
	assert.Equal(t, 1, baseRows)
}

func TestCompare_NoComparables(t *testing.T) {
	c := corpus.NewSnapshot([]listing.Listing{
		fixtureListing("base", 8000, "Renault Clio IV 1.5 dCi"),
	}, "v1")
	svc := newTestService(t, c, nil)

	rep, err := svc.Compare(context.Background(), &CompareInput{ListingID: "base"})
	require.NoError(t, err)

	require.Len(t, rep.Ranking.Items, 1)
	assert.True(t, rep.Ranking.InsufficientData)
	assert.Equal(t, 1, rep.Ranking.BaseRank)
	assert.Equal(t, ranking.ActionKeepChoice, rep.Recommendation.Action)
	assert.Equal(t, ranking.ConfidenceLow, rep.Recommendation.Confidence)
	assert.InDelta(t, 0.3, rep.Confidence, 1e-9)
}

func TestNewService_RequiredDeps(t *testing.T) {
	_, err := NewService(Deps{})
	assert.True(t, errors.IsCode(err, errors.CodeInvalidParam))
}
