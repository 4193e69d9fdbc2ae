package cmd

import (
	"context"
	"time"

	"github.com/seaworthie/casket/internal/catalog"
	"github.com/seaworthie/casket/internal/config"
	"github.com/seaworthie/casket/internal/fault"
	"github.com/seaworthie/casket/internal/ledger"
	"github.com/seaworthie/casket/internal/ui"
)

// env bundles the per-invocation collaborators: config, printer, and the
// optional ledger and catalog. Ledger and catalog are informational: when
// they cannot be opened the command warns and proceeds, because an evidence
// operation must not fail for the sake of its own bookkeeping.
type env struct {
	cfg     config.Config
	printer *ui.Printer
	ledger  *ledger.Ledger
	catalog *catalog.Catalog
}

func newEnv(ctx context.Context) (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	e := &env{cfg: cfg, printer: ui.New(cfg.Verbose)}

	if cfg.LedgerPath != "" {
		l, err := ledger.Open(cfg.LedgerPath)
		if err != nil {
			e.printer.Warn("ledger unavailable: " + err.Error())
		} else {
			e.ledger = l
		}
	}
	if cfg.CatalogPath != "" {
		c, err := catalog.Open(ctx, cfg.CatalogPath)
		if err != nil {
			e.printer.Warn("catalog unavailable: " + err.Error())
		} else {
			e.catalog = c
		}
	}
	return e, nil
}

func (e *env) close() {
	_ = e.ledger.Close()
	_ = e.catalog.Close()
}

// record writes one run to the catalog, best-effort.
func (e *env) record(ctx context.Context, kind, node, target string, files, blobs int, runErr error, started time.Time) {
	outcome := "ok"
	detail := ""
	if runErr != nil {
		outcome = string(fault.KindOf(runErr))
		if outcome == "" {
			outcome = "error"
		}
		detail = runErr.Error()
	}
	err := e.catalog.Record(ctx, catalog.Run{
		Kind:      kind,
		Node:      node,
		Target:    target,
		Files:     files,
		Blobs:     blobs,
		Outcome:   outcome,
		Detail:    detail,
		StartedAt: started,
		Duration:  time.Since(started),
	})
	if err != nil {
		e.printer.Warn(err.Error())
	}
}
