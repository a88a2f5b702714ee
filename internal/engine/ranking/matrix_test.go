package ranking

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/motorintel/comparables/internal/domain/listing"
)

func TestBuildMatrix_Normalization(t *testing.T) {
	mileage := func(v int) *int { return &v }
	entries := []Entry{
		{Listing: listing.Listing{ID: "cheap-old", Price: int64Ptr(8000), Year: intPtr(2015), Mileage: mileage(50000)}, IsBase: true},
		{Listing: listing.Listing{ID: "mid", Price: int64Ptr(10000), Year: intPtr(2020), Mileage: mileage(50000)}},
		{Listing: listing.Listing{ID: "dear-noyear", Price: int64Ptr(12000), Mileage: mileage(50000)}},
	}

	m := BuildMatrix(entries)
	require.Len(t, m.Rows, 3)
	assert.Equal(t, []string{CriterionPrice, CriterionYear, CriterionMileage}, m.Criteria)

	byID := map[string]MatrixRow{}
	for _, row := range m.Rows {
		byID[row.ListingID] = row
	}

	// Price is inverted: the cheapest listing scores 1.
	assert.InDelta(t, 1.0, byID["cheap-old"].Scores[CriterionPrice], 1e-9)
	assert.InDelta(t, 0.5, byID["mid"].Scores[CriterionPrice], 1e-9)
	assert.InDelta(t, 0.0, byID["dear-noyear"].Scores[CriterionPrice], 1e-9)

	// Year is not inverted: newer scores higher, unknown is neutral.
	assert.InDelta(t, 0.0, byID["cheap-old"].Scores[CriterionYear], 1e-9)
	assert.InDelta(t, 1.0, byID["mid"].Scores[CriterionYear], 1e-9)
	assert.InDelta(t, 0.5, byID["dear-noyear"].Scores[CriterionYear], 1e-9)

	// Identical mileage across the set scores 1 for everyone.
	for id, row := range byID {
		assert.InDelta(t, 1.0, row.Scores[CriterionMileage], 1e-9, "listing %s", id)
	}

	assert.True(t, byID["cheap-old"].IsBase)
	assert.False(t, byID["mid"].IsBase)
}

func TestBuildMatrix_AllMissingAttribute(t *testing.T) {
	entries := []Entry{
		{Listing: listing.Listing{ID: "a", Price: int64Ptr(8000)}},
		{Listing: listing.Listing{ID: "b", Price: int64Ptr(9000)}},
	}

	m := BuildMatrix(entries)
	for _, row := range m.Rows {
		assert.InDelta(t, 0.5, row.Scores[CriterionMileage], 1e-9)
		assert.InDelta(t, 0.5, row.Scores[CriterionYear], 1e-9)
	}
}

func TestRecommend(t *testing.T) {
	tests := []struct {
		baseRank, comparables int
		wantAction            Action
		wantConfidence        RecommendationConfidence
	}{
		{1, 5, ActionKeepChoice, ConfidenceHigh},
		{2, 3, ActionConsiderAlternatives, ConfidenceHigh},
		{3, 2, ActionConsiderAlternatives, ConfidenceMedium},
		{4, 1, ActionReconsider, ConfidenceLow},
		{7, 0, ActionReconsider, ConfidenceLow},
	}
	for _, tt := range tests {
		got := Recommend(tt.baseRank, tt.comparables)
		assert.Equal(t, tt.wantAction, got.Action, "rank %d", tt.baseRank)
		assert.Equal(t, tt.wantConfidence, got.Confidence, "comparables %d", tt.comparables)
	}
}
