package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/seaworthie/casket/internal/fault"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recent runs recorded in the catalog",
	Long: `Lists the most recent collect, merge, verify, and seal runs from the
SQLite run catalog. Requires catalog_path to be set in the config.

  --limit   Maximum number of runs to show (default 20)`,
	RunE: runRuns,
}

func init() {
	runsCmd.Flags().Int("limit", 20, "maximum number of runs to show")

	rootCmd.AddCommand(runsCmd)
}

func runRuns(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	limit, _ := cmd.Flags().GetInt("limit")

	e, err := newEnv(ctx)
	if err != nil {
		return err
	}
	defer e.close()

	if e.catalog == nil {
		return fault.New(fault.InvalidInput, "no run catalog: set catalog_path in .casket.yaml or CASKET_CATALOG_PATH")
	}

	runs, err := e.catalog.Recent(ctx, limit)
	if err != nil {
		return fault.Wrap(fault.IOFailure, err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "WHEN\tKIND\tNODE\tOUTCOME\tFILES\tBLOBS\tTARGET")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\t%s\n",
			r.StartedAt.UTC().Format("2006-01-02 15:04:05"),
			r.Kind, r.Node, r.Outcome, r.Files, r.Blobs, r.Target)
	}
	return w.Flush()
}
