// Package keywords turns listing free text into salient tokens.  The stop-word
// list, brand lexicon and the heuristic phrase tables consumed by the gem
// scorer are externally supplied data (configs/lexicon.yaml), not hard-coded
// literals, so they can be tuned and tested independently of scoring logic.
package keywords

import (
	"context"
	"os"
	"sync"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/motorintel/comparables/internal/infrastructure/monitoring/logging"
	"github.com/motorintel/comparables/pkg/errors"
)

// Lexicon aggregates every tuning table the text heuristics draw from.
// All entries are matched case-insensitively against lower-cased text.
type Lexicon struct {
	// StopWords are function words and generic marketing filler removed
	// before keyword extraction ("excellent", "occasion", ...).
	StopWords []string `yaml:"stop_words"`

	// Brands are make/model tokens promoted to the front of extracted
	// keyword lists.  Matching is by substring so "renaultclio" still hits.
	Brands []string `yaml:"brands"`

	// MotivatedSeller are phrases signalling a seller under pressure.
	MotivatedSeller []string `yaml:"motivated_seller"`

	// PoorPresentation are phrases typical of low-effort listings.
	PoorPresentation []string `yaml:"poor_presentation"`

	// TimePressure are regular expressions matching urgency wording.
	TimePressure []string `yaml:"time_pressure"`

	// ValuableOptions maps equipment keywords to their point value for the
	// hidden-value heuristic.
	ValuableOptions map[string]int `yaml:"valuable_options"`

	// BrandFeatures maps a brand trigger to trim-level features whose
	// presence outside the title indicates under-advertised value.
	BrandFeatures map[string][]string `yaml:"brand_features"`
}

// stopSet returns the stop words as a set for O(1) lookups.
func (l *Lexicon) stopSet() map[string]struct{} {
	set := make(map[string]struct{}, len(l.StopWords))
	for _, w := range l.StopWords {
		set[w] = struct{}{}
	}
	return set
}

// ─────────────────────────────────────────────────────────────────────────────
// Store — hot-reloadable lexicon holder
// ─────────────────────────────────────────────────────────────────────────────

// Store holds the currently active Lexicon and can watch its source file for
// changes.  Readers call Current(); swaps are atomic under the mutex so a
// reload never exposes a half-parsed table.
type Store struct {
	mu      sync.RWMutex
	current *Lexicon
	path    string
	logger  logging.Logger
}

// NewStore loads the lexicon file at path and returns a Store serving it.
func NewStore(path string, logger logging.Logger) (*Store, error) {
	lex, err := loadFile(path)
	if err != nil {
		return nil, err
	}
	return &Store{current: lex, path: path, logger: logger.Named("lexicon")}, nil
}

// NewStaticStore wraps a fixed Lexicon, for tests and embedded defaults.
func NewStaticStore(lex *Lexicon) *Store {
	return &Store{current: lex, logger: logging.NewNopLogger()}
}

func loadFile(path string) (*Lexicon, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInvalidParam, "failed to read lexicon file").WithDetail(path)
	}
	var lex Lexicon
	if err := yaml.Unmarshal(raw, &lex); err != nil {
		return nil, errors.Wrap(err, errors.CodeSerialization, "failed to parse lexicon file").WithDetail(path)
	}
	return &lex, nil
}

// Current returns the active Lexicon.  The returned value must be treated as
// read-only.
func (s *Store) Current() *Lexicon {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Reload re-reads the source file and swaps in the new tables.  A file that
// fails to read or parse leaves the previous lexicon in place.
func (s *Store) Reload() error {
	if s.path == "" {
		return nil
	}
	lex, err := loadFile(s.path)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.current = lex
	s.mu.Unlock()
	return nil
}

// Watch monitors the lexicon file until ctx is cancelled, reloading on every
// write event.  Parse failures keep the previous tables and are logged, so a
// bad edit cannot take scoring down.
func (s *Store) Watch(ctx context.Context) error {
	if s.path == "" {
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, errors.CodeInternal, "failed to create lexicon watcher")
	}
	if err := watcher.Add(s.path); err != nil {
		watcher.Close()
		return errors.Wrap(err, errors.CodeInternal, "failed to watch lexicon file").WithDetail(s.path)
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				if err := s.Reload(); err != nil {
					s.logger.Warn("lexicon reload failed, keeping previous tables",
						logging.String("path", s.path), logging.Err(err))
					continue
				}
				s.logger.Info("lexicon reloaded", logging.String("path", s.path))
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				s.logger.Warn("lexicon watcher error", logging.Err(err))
			}
		}
	}()
	return nil
}
