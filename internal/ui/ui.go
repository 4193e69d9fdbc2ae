// Package ui renders casket's human-facing status output on stderr. All
// machine-facing results (paths, exit codes, ledger events) live elsewhere;
// nothing here is part of the external contract.
package ui

import (
	"fmt"
	"os"

	"github.com/seaworthie/casket/internal/verify"
)

// ANSI color codes.
const (
	reset  = "\033[0m"
	bold   = "\033[1m"
	dim    = "\033[2m"
	yellow = "\033[33m"
	green  = "\033[32m"
	red    = "\033[31m"
	cyan   = "\033[36m"
)

type Printer struct {
	Verbose bool
}

func New(verbose bool) *Printer {
	return &Printer{Verbose: verbose}
}

func (p *Printer) Infof(format string, args ...any) {
	if !p.Verbose {
		return
	}
	fmt.Fprintf(os.Stderr, dim+format+reset+"\n", args...)
}

func (p *Printer) CollectDone(bundleDir string, files, blobs int) {
	fmt.Fprintf(os.Stderr, green+"✓ collected"+reset+" %d file(s), %d unique blob(s) "+dim+"-> %s"+reset+"\n", files, blobs, bundleDir)
}

func (p *Printer) MergeDone(packDir string, bundles, entries, blobs int) {
	fmt.Fprintf(os.Stderr, green+"✓ merged"+reset+" %d bundle(s): %d entries, %d unique blob(s) "+dim+"-> %s"+reset+"\n", bundles, entries, blobs, packDir)
}

func (p *Printer) SealDone(sealPath string) {
	fmt.Fprintf(os.Stderr, green+"✓ sealed"+reset+" "+dim+"%s"+reset+"\n", sealPath)
}

func (p *Printer) Warn(msg string) {
	fmt.Fprintf(os.Stderr, yellow+"! %s"+reset+"\n", msg)
}

func (p *Printer) Error(err error) {
	fmt.Fprintf(os.Stderr, red+bold+"✗ %v"+reset+"\n", err)
}

// VerifyReport prints the outcome of a verification run, including advisory
// warnings and, in keep-going mode, every accumulated violation.
func (p *Printer) VerifyReport(r *verify.Report) {
	for _, w := range r.Warnings {
		p.Warn(w)
	}
	for _, v := range r.Violations {
		fmt.Fprintf(os.Stderr, red+"✗ %s"+reset+dim+" (%s)"+reset+"\n", v.Detail, v.Kind)
	}
	if len(r.Violations) == 0 {
		fmt.Fprintf(os.Stderr, green+"✓ verified"+reset+" %d file(s) "+dim+"under %s"+reset+"\n", r.FilesVerified, r.Root)
	} else {
		fmt.Fprintf(os.Stderr, red+bold+"✗ %d violation(s)"+reset+dim+" under %s"+reset+"\n", len(r.Violations), r.Root)
	}
}

// WatchEvent announces one watch-triggered collection.
func (p *Printer) WatchEvent(source string) {
	fmt.Fprintf(os.Stderr, cyan+"▶ change detected"+reset+dim+" in %s, collecting..."+reset+"\n", source)
}
