package ranking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/motorintel/comparables/internal/domain/listing"
)

var refTime = time.Date(2026, time.August, 29, 12, 0, 0, 0, time.UTC)

func int64Ptr(v int64) *int64 { return &v }
func intPtr(v int) *int       { return &v }

func entry(id string, price int64, year int, gem *int, similarity float64, isBase bool) Entry {
	return Entry{
		Listing:    listing.Listing{ID: id, Price: int64Ptr(price), Year: intPtr(year), Active: true},
		Similarity: similarity,
		GemScore:   gem,
		IsBase:     isBase,
	}
}

func TestRank_CompositeOrdering(t *testing.T) {
	r := NewRanker(DefaultConfig())
	entries := []Entry{
		entry("base", 10000, 2020, nil, 1.0, true),
		entry("cand-a", 8000, 2021, intPtr(85), 0.9, false),
		entry("cand-b", 12000, 2015, intPtr(40), 0.7, false),
	}

	got := r.Rank(entries, refTime)

	require.Len(t, got.Items, 3)
	assert.False(t, got.InsufficientData)

	// cand-a: price 100*0.3 + gem 85*0.4 + sim 0.9*30 - age 10 = 81.
	assert.Equal(t, "cand-a", got.Items[0].ListingID)
	assert.Equal(t, 1, got.Items[0].Rank)
	assert.InDelta(t, 81.0, got.Items[0].CompositeScore, 1e-9)

	// base: price 50*0.3 + gem 50*0.4 - age 12 = 23.  No similarity bonus.
	assert.Equal(t, "base", got.Items[1].ListingID)
	assert.True(t, got.Items[1].IsBase)
	assert.InDelta(t, 23.0, got.Items[1].CompositeScore, 1e-9)
	assert.Equal(t, 2, got.BaseRank)

	// cand-b: price 0*0.3 + gem 40*0.4 + sim 0.7*30 - age 22 = 15.
	assert.Equal(t, "cand-b", got.Items[2].ListingID)
	assert.InDelta(t, 15.0, got.Items[2].CompositeScore, 1e-9)
}

// Equal composite scores keep their input order.
func TestRank_TiesPreserveInputOrder(t *testing.T) {
	r := NewRanker(DefaultConfig())
	twin := func(id string) Entry {
		return Entry{
			Listing:    listing.Listing{ID: id, Price: int64Ptr(9000), Active: true},
			Similarity: 0.8,
			GemScore:   intPtr(60),
		}
	}
	entries := []Entry{
		entry("base", 9000, 2024, nil, 1.0, true),
		twin("first-in"),
		twin("second-in"),
		twin("third-in"),
	}

	// The twins (30 + 24 + 24 = 78) outrank the base (30 + 20 - 4 = 46)
	// and tie with each other, so input order decides among them.
	got := r.Rank(entries, refTime)
	require.Len(t, got.Items, 4)
	assert.Equal(t, "first-in", got.Items[0].ListingID)
	assert.Equal(t, "second-in", got.Items[1].ListingID)
	assert.Equal(t, "third-in", got.Items[2].ListingID)
	assert.Equal(t, 4, got.BaseRank)
}

func TestRank_CompositeFlooredAtZero(t *testing.T) {
	r := NewRanker(DefaultConfig())
	entries := []Entry{
		entry("base", 5000, 2024, nil, 1.0, true),
		// Most expensive, worthless gem score, very old: every term drags
		// the composite below zero.
		entry("dud", 20000, 1990, intPtr(0), 0.1, false),
	}

	got := r.Rank(entries, refTime)
	require.Len(t, got.Items, 2)
	assert.Equal(t, "dud", got.Items[1].ListingID)
	assert.Equal(t, 0.0, got.Items[1].CompositeScore)
}

func TestRank_AgePenaltyCapped(t *testing.T) {
	r := NewRanker(DefaultConfig())
	ancient := entry("ancient", 10000, 1980, intPtr(100), 1.0, true)
	veryAncient := entry("very-ancient", 10000, 1960, intPtr(100), 1.0, true)

	a := r.Rank([]Entry{ancient}, refTime)
	b := r.Rank([]Entry{veryAncient}, refTime)
	assert.Equal(t, a.Items[0].CompositeScore, b.Items[0].CompositeScore)
}

func TestRank_UnknownPriceScoresNeutral(t *testing.T) {
	r := NewRanker(DefaultConfig())
	unpriced := Entry{
		Listing:    listing.Listing{ID: "unpriced", Year: intPtr(2024), Active: true},
		Similarity: 0.8,
		GemScore:   intPtr(50),
	}
	entries := []Entry{
		entry("base", 8000, 2024, nil, 1.0, true),
		entry("dear", 12000, 2024, nil, 0.8, false),
		unpriced,
	}

	got := r.Rank(entries, refTime)
	for _, it := range got.Items {
		if it.ListingID == "unpriced" {
			// 50*0.3 + 50*0.4 + 0.8*30 - 2 = 57.
			assert.InDelta(t, 57.0, it.CompositeScore, 1e-9)
		}
	}
}

func TestRank_BaseAloneIsInsufficient(t *testing.T) {
	r := NewRanker(DefaultConfig())
	got := r.Rank([]Entry{entry("base", 10000, 2024, nil, 1.0, true)}, refTime)

	require.Len(t, got.Items, 1)
	assert.True(t, got.InsufficientData)
	assert.Equal(t, 1, got.BaseRank)
	assert.Equal(t, 1, got.Items[0].Rank)
}

func TestRank_EmptyInput(t *testing.T) {
	r := NewRanker(DefaultConfig())
	got := r.Rank(nil, refTime)
	assert.Empty(t, got.Items)
	assert.True(t, got.InsufficientData)
	assert.Zero(t, got.BaseRank)
}

// The same input and reference time always produce the same order.
func TestRank_Deterministic(t *testing.T) {
	r := NewRanker(DefaultConfig())
	entries := []Entry{
		entry("base", 10000, 2020, nil, 1.0, true),
		entry("c1", 9500, 2019, intPtr(70), 0.85, false),
		entry("c2", 9500, 2019, intPtr(70), 0.85, false),
		entry("c3", 11000, 2022, intPtr(55), 0.8, false),
	}

	first := r.Rank(entries, refTime)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, r.Rank(entries, refTime))
	}
}

func TestNewRanker_DefaultsApplied(t *testing.T) {
	r := NewRanker(Config{})
	assert.Equal(t, DefaultConfig(), r.cfg)
}
