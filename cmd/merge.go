package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/seaworthie/casket/internal/fault"
	"github.com/seaworthie/casket/internal/ledger"
	"github.com/seaworthie/casket/internal/merge"
)

var mergeCmd = &cobra.Command{
	Use:   "merge",
	Short: "Merge collector bundles into one deduplicated pack",
	Long: `Merges every bundle under the input root into a single pack:
blobs deduplicated across bundles by sha256, one combined FILES.csv,
per-bundle and per-node summary tables, a pack manifest, and seals.

  --in     Directory containing bundle subdirectories (required)
  --out    Pack root to create (required)`,
	RunE: runMerge,
}

func init() {
	mergeCmd.Flags().String("in", "", "input root containing bundles")
	mergeCmd.Flags().String("out", "", "pack root to create")

	rootCmd.AddCommand(mergeCmd)
}

func runMerge(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	in, _ := cmd.Flags().GetString("in")
	out, _ := cmd.Flags().GetString("out")
	if in == "" || out == "" {
		return fault.New(fault.InvalidInput, "merge needs --in and --out")
	}

	e, err := newEnv(ctx)
	if err != nil {
		return err
	}
	defer e.close()

	started := time.Now()
	res, err := merge.Run(merge.Options{InputRoot: in, OutputRoot: out})

	target := out
	entries, blobs := 0, 0
	if res != nil {
		entries, blobs = res.Entries, res.UniqueBlobs
	}
	e.record(ctx, "merge", "", target, entries, blobs, err, started)
	if err != nil {
		return err
	}

	_ = e.ledger.Append(ledger.Event{
		Kind:   ledger.KindMergeDone,
		Target: res.PackDir,
		Files:  res.Entries,
		Blobs:  res.UniqueBlobs,
	})
	e.printer.MergeDone(res.PackDir, res.Bundles, res.Entries, res.UniqueBlobs)
	return nil
}
