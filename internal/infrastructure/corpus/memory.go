// Package corpus provides the in-memory corpus implementations: an immutable
// Snapshot served to the engine, and a mutable State fed by the listing
// ingest stream that hands out versioned copy-on-read snapshots.  The
// postgres repository in internal/infrastructure/database/postgres implements
// the same port against durable storage.
package corpus

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/motorintel/comparables/internal/domain/listing"
	"github.com/motorintel/comparables/pkg/errors"
)

// Snapshot is an immutable, versioned view over a set of listings.  All
// engine computations against one Snapshot are deterministic; the version
// participates in result-cache keys so cached valuations never outlive the
// data they were computed from.
type Snapshot struct {
	version  string
	byID     map[string]*listing.Listing
	ordered  []listing.Listing // most recently seen first
}

// NewSnapshot builds a Snapshot from listings.  The input slice is copied;
// later mutation of the caller's slice does not affect the snapshot.
func NewSnapshot(listings []listing.Listing, version string) *Snapshot {
	ordered := make([]listing.Listing, len(listings))
	copy(ordered, listings)

	// Most recently seen first; ID breaks ties so ordering is total.
	sort.SliceStable(ordered, func(i, j int) bool {
		if !ordered[i].LastSeen.Equal(ordered[j].LastSeen) {
			return ordered[i].LastSeen.After(ordered[j].LastSeen)
		}
		return ordered[i].ID < ordered[j].ID
	})

	byID := make(map[string]*listing.Listing, len(ordered))
	for i := range ordered {
		byID[ordered[i].ID] = &ordered[i]
	}
	return &Snapshot{version: version, byID: byID, ordered: ordered}
}

// Query returns listings matching the filter, most recently seen first.
func (s *Snapshot) Query(_ context.Context, filter listing.QueryFilter) ([]listing.Listing, error) {
	var out []listing.Listing
	for _, l := range s.ordered {
		if !matches(&l, filter) {
			continue
		}
		out = append(out, l)
		if filter.Limit > 0 && len(out) >= filter.Limit {
			break
		}
	}
	return out, nil
}

// Get returns the listing with the given ID or a CodeNotFound error.
func (s *Snapshot) Get(_ context.Context, id string) (*listing.Listing, error) {
	l, ok := s.byID[id]
	if !ok {
		return nil, errors.NotFound("listing not found").WithDetail(id)
	}
	clone := *l
	return &clone, nil
}

// Version returns the snapshot identifier.
func (s *Snapshot) Version(_ context.Context) (string, error) {
	return s.version, nil
}

// Len returns the number of listings in the snapshot.
func (s *Snapshot) Len() int { return len(s.ordered) }

func matches(l *listing.Listing, f listing.QueryFilter) bool {
	if f.ActiveOnly && !l.Active {
		return false
	}
	if f.ExcludeID != "" && l.ID == f.ExcludeID {
		return false
	}
	if f.PriceMin != nil || f.PriceMax != nil {
		price, ok := l.PriceValue()
		if !ok {
			return false
		}
		if f.PriceMin != nil && price < *f.PriceMin {
			return false
		}
		if f.PriceMax != nil && price > *f.PriceMax {
			return false
		}
	}
	if f.YearMin != nil || f.YearMax != nil {
		if l.Year == nil {
			return false
		}
		if f.YearMin != nil && *l.Year < *f.YearMin {
			return false
		}
		if f.YearMax != nil && *l.Year > *f.YearMax {
			return false
		}
	}
	if f.FuelType != "" && l.FuelType != f.FuelType {
		return false
	}
	if len(f.Keywords) > 0 && !containsAny(l.Text(), f.Keywords) {
		return false
	}
	return true
}

func containsAny(text string, keywords []string) bool {
	lower := strings.ToLower(text)
	for _, kw := range keywords {
		if kw != "" && strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

// ─────────────────────────────────────────────────────────────────────────────
// State — mutable corpus fed by the ingest stream
// ─────────────────────────────────────────────────────────────────────────────

// State is the mutable listing store behind the ingest consumer.  Reads go
// through versioned snapshots: every mutation bumps the generation counter,
// and Snapshot() materializes the current contents.  State itself also
// implements the corpus port by delegating to the instantaneous snapshot,
// which keeps single-call determinism while long-running batch evaluations
// pin an explicit Snapshot.
type State struct {
	mu         sync.RWMutex
	listings   map[string]listing.Listing
	generation uint64
}

// NewState returns an empty mutable corpus.
func NewState() *State {
	return &State{listings: make(map[string]listing.Listing)}
}

// Upsert inserts or replaces a listing.  The listing ID is immutable: an
// upsert with an existing ID re-observes that listing.
func (s *State) Upsert(l listing.Listing) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listings[l.ID] = l
	s.generation++
}

// Deactivate clears the activity flag of a listing if present.
func (s *State) Deactivate(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.listings[id]
	if !ok {
		return
	}
	l.Active = false
	s.listings[id] = l
	s.generation++
}

// Snapshot materializes an immutable snapshot of the current contents.
func (s *State) Snapshot() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := make([]listing.Listing, 0, len(s.listings))
	for _, l := range s.listings {
		all = append(all, l)
	}
	return NewSnapshot(all, fmt.Sprintf("gen-%d", s.generation))
}

// Len returns the number of listings currently held.
func (s *State) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.listings)
}

// Query implements the corpus port against the instantaneous snapshot.
func (s *State) Query(ctx context.Context, filter listing.QueryFilter) ([]listing.Listing, error) {
	return s.Snapshot().Query(ctx, filter)
}

// Get implements the corpus port against the instantaneous snapshot.
func (s *State) Get(ctx context.Context, id string) (*listing.Listing, error) {
	return s.Snapshot().Get(ctx, id)
}

// Version implements the corpus port.
func (s *State) Version(ctx context.Context) (string, error) {
	return s.Snapshot().Version(ctx)
}

// StaticSignals is a SignalSource backed by a fixed map, used by tests and
// the CLI fixture path.  Listings without an entry yield (nil, nil).
type StaticSignals map[string]listing.ConditionSignals

// Signals implements listing.SignalSource.
func (m StaticSignals) Signals(_ context.Context, listingID string) (*listing.ConditionSignals, error) {
	sig, ok := m[listingID]
	if !ok {
		return nil, nil
	}
	clone := sig
	return &clone, nil
}
