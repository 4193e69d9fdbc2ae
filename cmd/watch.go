package cmd

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/seaworthie/casket/internal/collect"
	"github.com/seaworthie/casket/internal/fault"
	"github.com/seaworthie/casket/internal/watch"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch a source tree and collect a bundle whenever it settles",
	Long: `Watches the source tree and runs a fresh collection each time the tree
goes quiet after a burst of changes. This is the scheduling layer around
the collector; each collection is the same batch operation as
'casket collect'. Stop with Ctrl-C.

  --node      Node identifier (required)
  --source    Source tree to watch (required)
  --out       Output root (default from config: output_root)
  --include   Filename glob, repeatable (default: everything)`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().String("node", "", "node identifier for this source")
	watchCmd.Flags().String("source", "", "source tree to watch")
	watchCmd.Flags().String("out", "", "output root for bundles")
	watchCmd.Flags().StringSlice("include", nil, "filename glob to include (repeatable)")

	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	node, _ := cmd.Flags().GetString("node")
	source, _ := cmd.Flags().GetString("source")
	out, _ := cmd.Flags().GetString("out")
	include, _ := cmd.Flags().GetStringSlice("include")
	if node == "" || source == "" {
		return fault.New(fault.InvalidInput, "watch needs --node and --source")
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	e, err := newEnv(ctx)
	if err != nil {
		return err
	}
	defer e.close()
	if out == "" {
		out = e.cfg.OutputRoot
	}

	w, err := watch.New(source)
	if err != nil {
		return fault.Wrap(fault.IOFailure, err)
	}
	if err := w.Start(); err != nil {
		return fault.Wrap(fault.IOFailure, err)
	}
	defer w.Stop()

	e.printer.Infof("watching %s (node %s)", source, node)
	for {
		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-w.Changes:
			if !ok {
				return nil
			}
			e.printer.WatchEvent(source)
			err := collectOne(ctx, e, collect.Options{
				Node:       node,
				SourceRoot: source,
				OutputRoot: out,
				Include:    include,
			})
			if err != nil {
				// A failed collection ends the watch: repeating a failing
				// run unattended would pile up partial bundles.
				return err
			}
		}
	}
}
