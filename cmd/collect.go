package cmd

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/seaworthie/casket/internal/collect"
	"github.com/seaworthie/casket/internal/fault"
	"github.com/seaworthie/casket/internal/ledger"
	"github.com/seaworthie/casket/internal/profile"
)

var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Collect a source tree into a content-addressed evidence bundle",
	Long: `Collects every matching file under a source tree into a fresh bundle:
a BLOBS/ store keyed by sha256, an INDEX/FILES.csv of observations, a
manifest, a run receipt, and seals.

  --node      Node identifier tagging every index row (required without --profile)
  --source    Source tree to collect (required without --profile)
  --out       Output root (default from config: output_root)
  --include   Filename glob, repeatable (default: everything)
  --profile   TOML profile declaring multiple nodes to collect in one sweep`,
	RunE: runCollect,
}

func init() {
	collectCmd.Flags().String("node", "", "node identifier for this source")
	collectCmd.Flags().String("source", "", "source tree to collect")
	collectCmd.Flags().String("out", "", "output root for bundles")
	collectCmd.Flags().StringSlice("include", nil, "filename glob to include (repeatable)")
	collectCmd.Flags().String("profile", "", "TOML collection profile")

	rootCmd.AddCommand(collectCmd)
}

func runCollect(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	e, err := newEnv(ctx)
	if err != nil {
		return err
	}
	defer e.close()

	out, _ := cmd.Flags().GetString("out")
	if profilePath, _ := cmd.Flags().GetString("profile"); profilePath != "" {
		return collectProfile(ctx, e, profilePath, out)
	}

	node, _ := cmd.Flags().GetString("node")
	source, _ := cmd.Flags().GetString("source")
	include, _ := cmd.Flags().GetStringSlice("include")
	if node == "" || source == "" {
		return fault.New(fault.InvalidInput, "collect needs --node and --source (or --profile)")
	}
	if out == "" {
		out = e.cfg.OutputRoot
	}

	return collectOne(ctx, e, collect.Options{
		Node:       node,
		SourceRoot: source,
		OutputRoot: out,
		Include:    include,
	})
}

// collectProfile runs one collection per node declared in the profile.
// Fail-fast: the first failing node aborts the sweep, consistent with the
// all-or-nothing contract of a single collect.
func collectProfile(ctx context.Context, e *env, path, outOverride string) error {
	p, err := profile.Load(path)
	if err != nil {
		return fault.Wrap(fault.InvalidInput, err)
	}
	out := outOverride
	if out == "" {
		out = p.Output
	}
	if out == "" {
		out = e.cfg.OutputRoot
	}

	for _, n := range p.Nodes {
		opts := collect.Options{
			Node:       n.ID,
			SourceRoot: n.Source,
			OutputRoot: out,
			Include:    n.Include,
		}
		if err := collectOne(ctx, e, opts); err != nil {
			return err
		}
	}
	return nil
}

func collectOne(ctx context.Context, e *env, opts collect.Options) error {
	started := time.Now()
	res, err := collect.Run(opts)

	target := ""
	files, blobs := 0, 0
	if res != nil {
		target, files, blobs = res.BundleDir, res.FilesIncluded, res.UniqueBlobs
	}
	e.record(ctx, "collect", opts.Node, target, files, blobs, err, started)
	if err != nil {
		return err
	}

	_ = e.ledger.Append(ledger.Event{
		Kind:   ledger.KindCollectDone,
		Node:   opts.Node,
		Target: res.BundleDir,
		Files:  res.FilesIncluded,
		Blobs:  res.UniqueBlobs,
	})
	e.printer.CollectDone(res.BundleDir, res.FilesIncluded, res.UniqueBlobs)
	return nil
}
