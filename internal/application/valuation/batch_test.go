package valuation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/motorintel/comparables/internal/domain/listing"
	"github.com/motorintel/comparables/internal/infrastructure/corpus"
	"github.com/motorintel/comparables/pkg/errors"
)

func TestEvaluateBatch_MixedOutcomes(t *testing.T) {
	c := corpus.NewSnapshot([]listing.Listing{
		fixtureListing("base", 8000, "Renault Clio IV 1.5 dCi"),
		fixtureListing("comp-1", 9500, "Renault Clio 1.5 dCi 90"),
		fixtureListing("comp-2", 10000, "Renault Clio IV diesel"),
		fixtureListing("comp-3", 10400, "Clio IV dCi toutes options"),
		{ID: "hollow", Active: true},
	}, "v1")
	svc := newTestService(t, c, nil)

	res, err := svc.EvaluateBatch(context.Background(), &BatchInput{
		ListingIDs: []string{"base", "ghost", "hollow", "comp-1"},
	})
	require.NoError(t, err)

	assert.Equal(t, "v1", res.CorpusVersion)
	assert.Equal(t, 3, res.Succeeded)
	assert.Equal(t, 1, res.Failed)
	require.Len(t, res.Items, 4)

	// Input order is preserved.
	assert.Equal(t, "base", res.Items[0].ListingID)
	require.NotNil(t, res.Items[0].Result)
	assert.Equal(t, "v1", res.Items[0].Result.CorpusVersion)

	assert.Equal(t, "ghost", res.Items[1].ListingID)
	assert.Nil(t, res.Items[1].Result)
	assert.Equal(t, errors.CodeNotFound.String(), res.Items[1].ErrorCode)

	// A hollow listing still produces a result, flagged rather than failed.
	assert.Equal(t, "hollow", res.Items[2].ListingID)
	require.NotNil(t, res.Items[2].Result)
	assert.True(t, res.Items[2].Result.NotEvaluable)
	assert.Empty(t, res.Items[2].ErrorCode)

	assert.Equal(t, "comp-1", res.Items[3].ListingID)
	require.NotNil(t, res.Items[3].Result)
}

func TestEvaluateBatch_SharesCacheAcrossItems(t *testing.T) {
	cache := newFakeCache()
	counting := &countingCorpus{Corpus: fixtureCorpus()}
	svc := newTestService(t, counting, cache)

	_, err := svc.Evaluate(context.Background(), &EvaluateInput{ListingID: "base"})
	require.NoError(t, err)
	queriesAfterWarm := counting.queries.Load()

	res, err := svc.EvaluateBatch(context.Background(), &BatchInput{
		ListingIDs: []string{"base", "base"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Succeeded)
	assert.Equal(t, queriesAfterWarm, counting.queries.Load(),
		"warm entries must be served from cache")
}

func TestEvaluateBatch_EmptyInput(t *testing.T) {
	svc := newTestService(t, fixtureCorpus(), nil)

	_, err := svc.EvaluateBatch(context.Background(), &BatchInput{})
	assert.True(t, errors.IsCode(err, errors.CodeInvalidParam))

	_, err = svc.EvaluateBatch(context.Background(), nil)
	assert.True(t, errors.IsCode(err, errors.CodeInvalidParam))
}

func TestEvaluateBatch_CancelledContext(t *testing.T) {
	svc := newTestService(t, fixtureCorpus(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := svc.EvaluateBatch(ctx, &BatchInput{ListingIDs: []string{"base", "comp-1"}})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Succeeded)
	assert.Equal(t, 2, res.Failed)
}
