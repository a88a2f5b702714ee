// The comparctl binary runs the valuation engine against a JSON corpus
// fixture, without any server or external store.  It exists for tuning the
// scoring tables and for inspecting what the engine would say about a
// captured set of listings:
//
//	comparctl evaluate base-1 --fixture corpus.json
//	comparctl compare base-1 --fixture corpus.json --limit 10
//	comparctl batch base-1 base-2 --fixture corpus.json
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "comparctl",
		Short:         "Evaluate vehicle listings against a corpus fixture",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.fixturePath, "fixture", "", "path to the JSON corpus fixture (required)")
	root.PersistentFlags().StringVar(&opts.lexiconPath, "lexicon", "", "path to the lexicon YAML (default: built-in empty tables)")
	root.PersistentFlags().IntVar(&opts.limit, "limit", 0, "comparable-set cap (default: engine default)")
	root.PersistentFlags().BoolVar(&opts.verbose, "verbose", false, "log engine internals to stderr")

	root.AddCommand(newEvaluateCmd(opts), newCompareCmd(opts), newBatchCmd(opts))
	return root
}
