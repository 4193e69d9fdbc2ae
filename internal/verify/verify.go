// Package verify implements manifest verification for any tree produced by
// the collector or the merger. Every path listed in the manifest is safety-
// checked before it is resolved on disk, then re-hashed and compared against
// the recorded sha256.
package verify

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/seaworthie/casket/internal/digest"
	"github.com/seaworthie/casket/internal/fault"
	"github.com/seaworthie/casket/internal/index"
	"github.com/seaworthie/casket/internal/manifest"
	"github.com/seaworthie/casket/internal/store"
)

// Options configures one verification run.
type Options struct {
	Root string

	// KeepGoing collects every violation instead of aborting on the first.
	// The run still fails if any violation was found.
	KeepGoing bool
}

// Violation is one integrity failure found during a keep-going run.
type Violation struct {
	Kind    fault.Kind
	RelPath string
	Detail  string
}

// Report summarizes a verification run.
type Report struct {
	Root          string
	ManifestPath  string
	FilesVerified int
	Warnings      []string // advisory only, never affect the outcome
	Violations    []Violation
}

// Run verifies the tree at opts.Root. It performs reads only. In the
// default fail-fast mode the first violation aborts the run; with KeepGoing
// all violations are accumulated into the report and an error for the first
// one is still returned so the caller fails.
func Run(opts Options) (*Report, error) {
	report := &Report{Root: opts.Root}

	manifestPath, err := locateManifest(opts.Root)
	if err != nil {
		return nil, err
	}
	report.ManifestPath = manifestPath

	// Conventional substructure is advisory: a tree without a blob store is
	// unusual but the manifest alone decides integrity.
	if _, err := os.Stat(filepath.Join(opts.Root, store.DirName)); err != nil {
		report.Warnings = append(report.Warnings, "no "+store.DirName+"/ directory")
	}
	if _, err := os.Stat(filepath.Join(opts.Root, index.DirName)); err != nil {
		report.Warnings = append(report.Warnings, "no "+index.DirName+"/ directory")
	}

	lines, err := manifest.Parse(manifestPath)
	if err != nil {
		// Parse-level violations reject the whole run even in keep-going
		// mode: a malformed manifest cannot be partially trusted.
		return nil, err
	}

	for _, line := range lines {
		if err := check(opts.Root, line); err != nil {
			if !opts.KeepGoing {
				return nil, err
			}
			report.Violations = append(report.Violations, Violation{
				Kind:    fault.KindOf(err),
				RelPath: line.RelPath,
				Detail:  err.Error(),
			})
			continue
		}
		report.FilesVerified++
	}

	if len(report.Violations) > 0 {
		first := report.Violations[0]
		return report, fault.New(first.Kind, "%d violation(s), first: %s", len(report.Violations), first.Detail)
	}
	return report, nil
}

// check validates one manifest line. The path safety check runs on the
// string alone and must pass before any filesystem access at that path.
func check(root string, line manifest.Line) error {
	if err := manifest.CheckPath(line.RelPath); err != nil {
		return err
	}

	path := filepath.Join(root, filepath.FromSlash(line.RelPath))
	info, err := os.Stat(path)
	if err != nil {
		return fault.New(fault.MissingFile, "%s: listed in manifest but absent", line.RelPath)
	}
	if !info.Mode().IsRegular() {
		return fault.New(fault.MissingFile, "%s: not a regular file", line.RelPath)
	}

	actual, _, err := digest.File(path)
	if err != nil {
		return fault.Wrap(fault.IOFailure, err)
	}
	if actual != line.SHA256 {
		return fault.New(fault.HashMismatch, "%s: expected %s, actual %s", line.RelPath, line.SHA256, actual)
	}
	return nil
}

// locateManifest finds the manifest for a tree: at the root for packs, under
// INDEX/ for bundles.
func locateManifest(root string) (string, error) {
	if info, err := os.Stat(root); err != nil || !info.IsDir() {
		return "", fault.New(fault.InvalidInput, "%s is not a directory", root)
	}
	candidates := []string{
		filepath.Join(root, manifest.FileName),
		filepath.Join(root, index.DirName, manifest.FileName),
	}
	for _, c := range candidates {
		if info, err := os.Stat(c); err == nil && info.Mode().IsRegular() {
			return c, nil
		}
	}
	return "", fault.New(fault.MissingManifest, "no %s at %s", manifest.FileName, root)
}

// Describe renders a one-line summary for logs and receipts.
func (r *Report) Describe() string {
	return fmt.Sprintf("%d file(s) verified under %s", r.FilesVerified, r.Root)
}
