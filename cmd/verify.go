package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/seaworthie/casket/internal/fault"
	"github.com/seaworthie/casket/internal/ledger"
	"github.com/seaworthie/casket/internal/verify"
)

var verifyCmd = &cobra.Command{
	Use:   "verify <tree-root>",
	Short: "Verify a bundle or pack against its manifest",
	Long: `Recomputes the sha256 of every file the tree's manifest references and
fails on any missing file, hash mismatch, malformed manifest line, or
unsafe path. Fail-fast by default.

  --keep-going   Collect every violation into one report instead of
                 aborting on the first; still exits non-zero if any
                 violation was found`,
	Args: cobra.ExactArgs(1),
	RunE: runVerify,
}

func init() {
	verifyCmd.Flags().Bool("keep-going", false, "report all violations instead of stopping at the first")

	rootCmd.AddCommand(verifyCmd)
}

func runVerify(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	keepGoing, _ := cmd.Flags().GetBool("keep-going")
	root := args[0]

	e, err := newEnv(ctx)
	if err != nil {
		return err
	}
	defer e.close()

	started := time.Now()
	report, err := verify.Run(verify.Options{Root: root, KeepGoing: keepGoing})

	files := 0
	if report != nil {
		files = report.FilesVerified
	}
	e.record(ctx, "verify", "", root, files, 0, err, started)

	if report != nil {
		e.printer.VerifyReport(report)
	}
	if err != nil {
		_ = e.ledger.Append(ledger.Event{
			Kind:   ledger.KindVerifyFail,
			Target: root,
			Files:  files,
			Error:  string(fault.KindOf(err)),
		})
		return err
	}

	_ = e.ledger.Append(ledger.Event{
		Kind:   ledger.KindVerifyPass,
		Target: root,
		Files:  report.FilesVerified,
	})
	return nil
}
