package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/motorintel/comparables/internal/application/valuation"
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
)

// options are the persistent flags shared by every subcommand.
type options struct {
	fixturePath string
	lexiconPath string
	limit       int
	verbose     bool
}

// fixture is the on-disk corpus shape: the listings, optional condition
// signals keyed by listing ID, and a version tag for the result headers.
type fixture struct {
	Version  string                              `json:"version"`
	Listings []listing.Listing                   `json:"listings"`
	Signals  map[string]listing.ConditionSignals `json:"signals,omitempty"`
}

// buildService assembles the engine with default tunables over the fixture
// corpus.
func buildService(opts *options) (valuation.Service, error) {
	if opts.fixturePath == "" {
		return nil, fmt.Errorf("--fixture is required")
	}
	raw, err := os.ReadFile(opts.fixturePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture: %w", err)
	}
	var fix fixture
	if err := json.Unmarshal(raw, &fix); err != nil {
		return nil, fmt.Errorf("failed to parse fixture %s: %w", opts.fixturePath, err)
	}
	version := fix.Version
	if version == "" {
		version = "fixture"
	}

	logger := logging.NewNopLogger()
	if opts.verbose {
		logger, err = logging.NewLogger(logging.Config{
			Level:       "debug",
			Format:      "text",
			OutputPaths: []string{"stderr"},
		})
		if err != nil {
			return nil, err
		}
	}

	lexicon, err := loadLexicon(opts.lexiconPath, logger)
	if err != nil {
		return nil, err
	}

	scorer, err := similarity.NewScorer(similarity.DefaultWeights(), lexicon)
	if err != nil {
		return nil, err
	}

	return valuation.NewService(valuation.Deps{
		Corpus:    corpus.NewSnapshot(fix.Listings, version),
		Signals:   corpus.StaticSignals(fix.Signals),
		Retriever: retrieval.NewRetriever(retrieval.DefaultConfig(), keywords.NewExtractor(lexicon), logger),
		Scorer:    scorer,
		Detector:  anomaly.NewDetector(anomaly.DefaultConfig()),
		Estimator: confidence.NewEstimator(confidence.DefaultConfig()),
		Gems:      gems.NewScorer(gems.DefaultWeights(), lexicon),
		Ranker:    ranking.NewRanker(ranking.DefaultConfig()),
		Logger:    logger,
	})
}

// loadLexicon loads the phrase tables from path, or serves empty tables when
// none is given.  Empty tables degrade the text heuristics to neutral scores;
// structural scoring is unaffected.
func loadLexicon(path string, logger logging.Logger) (*keywords.Store, error) {
	if path == "" {
		return keywords.NewStaticStore(&keywords.Lexicon{}), nil
	}
	return keywords.NewStore(path, logger)
}

func printJSON(cmd *cobra.Command, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}

func newEvaluateCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "evaluate <listing-id>",
		Short: "Score one listing against its comparable set",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := buildService(opts)
			if err != nil {
				return err
			}
			result, err := svc.Evaluate(cmd.Context(), &valuation.EvaluateInput{
				ListingID: args[0],
				Limit:     opts.limit,
			})
			if err != nil {
				return err
			}
			return printJSON(cmd, result)
		},
	}
}

func newCompareCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "compare <listing-id>",
		Short: "Rank one listing against its comparables with a recommendation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := buildService(opts)
			if err != nil {
				return err
			}
			report, err := svc.Compare(cmd.Context(), &valuation.CompareInput{
				ListingID: args[0],
				Limit:     opts.limit,
			})
			if err != nil {
				return err
			}
			return printJSON(cmd, report)
		},
	}
}

func newBatchCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "batch <listing-id>...",
		Short: "Evaluate several listings against one corpus version",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := buildService(opts)
			if err != nil {
				return err
			}
			result, err := svc.EvaluateBatch(cmd.Context(), &valuation.BatchInput{
				ListingIDs: args,
				Limit:      opts.limit,
			})
			if err != nil {
				return err
			}
			return printJSON(cmd, result)
		},
	}
}
