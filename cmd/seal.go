package cmd

import (
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/seaworthie/casket/internal/fault"
	"github.com/seaworthie/casket/internal/ledger"
	"github.com/seaworthie/casket/internal/seal"
)

var sealCmd = &cobra.Command{
	Use:   "seal <path-or-glob>...",
	Short: "Write a detached integrity seal for one or more files",
	Long: `Writes <target>.sha256.txt next to each target, recording the content
hash, byte length, timestamp, and best-effort git state. Arguments may be
plain paths or glob patterns; matches are deduplicated and sealed in
sorted order.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSeal,
}

func init() {
	rootCmd.AddCommand(sealCmd)
}

func runSeal(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	e, err := newEnv(ctx)
	if err != nil {
		return err
	}
	defer e.close()

	targets, err := expandTargets(args)
	if err != nil {
		return err
	}

	for _, target := range targets {
		started := time.Now()
		rel := relFromCwd(target)
		out, err := seal.File(target, rel)
		e.record(ctx, "seal", "", target, 1, 0, err, started)
		if err != nil {
			return fault.Wrap(fault.IOFailure, err)
		}
		_ = e.ledger.Append(ledger.Event{Kind: ledger.KindSealCreated, Target: out})
		e.printer.SealDone(out)
	}
	return nil
}

// expandTargets resolves arguments that may be paths or glob patterns into a
// sorted, deduplicated list of regular files. An argument matching nothing
// is an InvalidInput fault: silently sealing nothing would defeat the point.
func expandTargets(args []string) ([]string, error) {
	seen := make(map[string]bool)
	for _, arg := range args {
		matches, err := filepath.Glob(arg)
		if err != nil {
			return nil, fault.New(fault.InvalidInput, "bad pattern %q", arg)
		}
		if len(matches) == 0 {
			return nil, fault.New(fault.InvalidInput, "no file matches %q", arg)
		}
		for _, m := range matches {
			if info, err := os.Stat(m); err == nil && info.Mode().IsRegular() {
				seen[m] = true
			}
		}
	}
	if len(seen) == 0 {
		return nil, fault.New(fault.InvalidInput, "no regular files to seal")
	}

	targets := make([]string, 0, len(seen))
	for t := range seen {
		targets = append(targets, t)
	}
	sort.Strings(targets)
	return targets, nil
}

// relFromCwd records the target path relative to the working directory, the
// path a reader of the seal will use to find the target.
func relFromCwd(target string) string {
	abs, err := filepath.Abs(target)
	if err != nil {
		return filepath.ToSlash(target)
	}
	cwd, err := os.Getwd()
	if err != nil {
		return filepath.ToSlash(target)
	}
	rel, err := filepath.Rel(cwd, abs)
	if err != nil {
		return filepath.ToSlash(target)
	}
	return filepath.ToSlash(rel)
}
