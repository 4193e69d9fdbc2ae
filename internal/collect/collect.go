// Package collect implements the evidence collector: one synchronous pass
// over a source tree that produces a self-contained, immutable bundle with a
// content-addressed blob store, a deterministic index, a manifest, a run
// receipt, and seals.
package collect

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/seaworthie/casket/internal/digest"
	"github.com/seaworthie/casket/internal/fault"
	"github.com/seaworthie/casket/internal/index"
	"github.com/seaworthie/casket/internal/manifest"
	"github.com/seaworthie/casket/internal/receipt"
	"github.com/seaworthie/casket/internal/seal"
	"github.com/seaworthie/casket/internal/store"
)

// timestampLayout names bundle directories: UTC, second precision, safe on
// every filesystem. Two runs for one node in the same second would collide;
// Run refuses to overwrite and fails instead.
const timestampLayout = "20060102T150405Z"

// Options configures one collection run.
type Options struct {
	Node       string
	SourceRoot string
	OutputRoot string
	Include    []string // filename globs; empty means ["*"]

	// Timestamp overrides the bundle timestamp. Zero means time.Now().
	Timestamp time.Time
}

// Result summarizes a completed run.
type Result struct {
	BundleDir     string // path of the created bundle directory
	FilesIncluded int
	UniqueBlobs   int
}

// Run executes one collection. It writes only under opts.OutputRoot and
// never touches the source tree. Any failure is fatal and may leave a
// partial bundle behind; cleanup is the caller's responsibility.
func Run(opts Options) (*Result, error) {
	if opts.Node == "" || strings.ContainsAny(opts.Node, "/\\ \t") {
		return nil, fault.New(fault.InvalidInput, "invalid node id %q", opts.Node)
	}
	info, err := os.Stat(opts.SourceRoot)
	if err != nil || !info.IsDir() {
		return nil, fault.New(fault.InvalidInput, "source root %s is not a directory", opts.SourceRoot)
	}
	// Discovery yields absolute paths, so relpaths must be computed against
	// an absolute root.
	sourceRoot, err := filepath.Abs(opts.SourceRoot)
	if err != nil {
		return nil, fault.Wrap(fault.IOFailure, err)
	}

	patterns := opts.Include
	if len(patterns) == 0 {
		patterns = []string{"*"}
	}

	files, err := discover(sourceRoot, patterns)
	if err != nil {
		return nil, err
	}

	ts := opts.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	ts = ts.UTC()

	bundleDir := filepath.Join(opts.OutputRoot, opts.Node+"-"+ts.Format(timestampLayout))
	if _, err := os.Stat(bundleDir); err == nil {
		// Same node, same second. Never overwrite an existing bundle.
		return nil, fault.New(fault.InvalidInput, "bundle %s already exists", bundleDir)
	}
	indexDir := filepath.Join(bundleDir, index.DirName)
	if err := os.MkdirAll(indexDir, 0o755); err != nil {
		return nil, fault.Wrap(fault.IOFailure, err)
	}

	blobs, err := store.Open(filepath.Join(bundleDir, store.DirName))
	if err != nil {
		return nil, fault.Wrap(fault.IOFailure, err)
	}

	entries := make([]index.Entry, 0, len(files))
	seen := make(map[string]bool)
	for _, path := range files {
		rel, err := filepath.Rel(sourceRoot, path)
		if err != nil {
			return nil, fault.Wrap(fault.IOFailure, err)
		}
		sum, size, err := digest.File(path)
		if err != nil {
			return nil, fault.Wrap(fault.IOFailure, err)
		}
		if !seen[sum] {
			if err := blobs.Put(sum, path); err != nil {
				return nil, fault.Wrap(fault.IOFailure, err)
			}
			seen[sum] = true
		}
		entries = append(entries, index.Entry{
			Node:    opts.Node,
			RelPath: filepath.ToSlash(rel),
			Bytes:   size,
			SHA256:  sum,
		})
	}
	index.SortEntries(entries)

	indexPath := filepath.Join(indexDir, index.FileName)
	if err := index.WriteBundle(indexPath, entries); err != nil {
		return nil, fault.Wrap(fault.IOFailure, err)
	}

	receiptPath := filepath.Join(indexDir, receipt.FileName)
	err = receipt.Write(receiptPath, receipt.Receipt{
		Schema:          receipt.Schema,
		Node:            opts.Node,
		TimestampUTC:    ts.Format("2006-01-02T15:04:05Z"),
		Root:            opts.SourceRoot,
		OutRoot:         opts.OutputRoot,
		BundleDir:       filepath.Base(bundleDir),
		IncludePatterns: patterns,
		FilesIncluded:   len(entries),
		UniqueBlobs:     len(seen),
	})
	if err != nil {
		return nil, fault.Wrap(fault.IOFailure, err)
	}

	lines, err := manifest.Build(bundleDir)
	if err != nil {
		return nil, err
	}
	manifestPath := filepath.Join(indexDir, manifest.FileName)
	if err := manifest.Write(manifestPath, lines); err != nil {
		return nil, err
	}

	// Seals come last: they attest the finished index, manifest, and
	// receipt, and are not themselves covered by the manifest.
	for _, target := range []string{indexPath, manifestPath, receiptPath} {
		rel, _ := filepath.Rel(bundleDir, target)
		if _, err := seal.File(target, filepath.ToSlash(rel)); err != nil {
			return nil, fault.Wrap(fault.IOFailure, err)
		}
	}

	return &Result{
		BundleDir:     bundleDir,
		FilesIncluded: len(entries),
		UniqueBlobs:   len(seen),
	}, nil
}

// discover enumerates regular files under root whose base name matches any
// pattern, deduplicated by absolute path and sorted for determinism.
func discover(root string, patterns []string) ([]string, error) {
	seen := make(map[string]bool)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		base := filepath.Base(path)
		for _, pat := range patterns {
			ok, err := filepath.Match(pat, base)
			if err != nil {
				return fault.New(fault.InvalidInput, "bad include pattern %q", pat)
			}
			if ok {
				abs, err := filepath.Abs(path)
				if err != nil {
					return err
				}
				seen[abs] = true
				break
			}
		}
		return nil
	})
	if err != nil {
		if fault.KindOf(err) != "" {
			return nil, err
		}
		return nil, fault.Wrap(fault.IOFailure, err)
	}

	files := make([]string, 0, len(seen))
	for path := range seen {
		files = append(files, path)
	}
	sort.Strings(files)
	return files, nil
}
