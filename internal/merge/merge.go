// Package merge implements the evidence merger: it folds N collector
// bundles into one pack, deduplicating blobs across bundles by content
// hash and regenerating the index, summary tables, manifest, and seals for
// the combined tree.
package merge

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/seaworthie/casket/internal/fault"
	"github.com/seaworthie/casket/internal/index"
	"github.com/seaworthie/casket/internal/manifest"
	"github.com/seaworthie/casket/internal/receipt"
	"github.com/seaworthie/casket/internal/seal"
	"github.com/seaworthie/casket/internal/store"
)

// ReadmeName is the generated pack overview document.
const ReadmeName = "README_PACK.md"

// BundlesTableName and NodesTableName are the pack summary tables.
const (
	BundlesTableName = "BUNDLES.csv"
	NodesTableName   = "NODES.csv"
)

// Options configures one merge run.
type Options struct {
	InputRoot  string // directory containing bundle subdirectories
	OutputRoot string // pack root, created if absent
}

// Result summarizes a completed merge.
type Result struct {
	PackDir     string
	Bundles     int
	Entries     int
	UniqueBlobs int
}

// bundleRef is one validated input bundle.
type bundleRef struct {
	dir  string // path under the input root
	name string // directory base name
	node string // from the receipt, or the directory name prefix
}

// Run executes one merge. The input bundles are read-only; all writes land
// under opts.OutputRoot. Any failure is fatal and may leave a partial pack
// behind; cleanup is the caller's responsibility.
func Run(opts Options) (*Result, error) {
	bundles, err := loadBundles(opts.InputRoot)
	if err != nil {
		return nil, err
	}

	entries, err := readIndexes(bundles)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(opts.OutputRoot, 0o755); err != nil {
		return nil, fault.Wrap(fault.IOFailure, err)
	}
	packStore, err := store.Open(filepath.Join(opts.OutputRoot, store.DirName))
	if err != nil {
		return nil, fault.Wrap(fault.IOFailure, err)
	}

	unique, err := copyBlobs(packStore, bundles, entries)
	if err != nil {
		return nil, err
	}

	index.SortEntries(entries)
	if err := index.WritePack(filepath.Join(opts.OutputRoot, index.FileName), entries); err != nil {
		return nil, fault.Wrap(fault.IOFailure, err)
	}

	indexDir := filepath.Join(opts.OutputRoot, index.DirName)
	if err := os.MkdirAll(indexDir, 0o755); err != nil {
		return nil, fault.Wrap(fault.IOFailure, err)
	}
	if err := writeBundlesTable(filepath.Join(indexDir, BundlesTableName), bundles); err != nil {
		return nil, err
	}
	if err := writeNodesTable(filepath.Join(indexDir, NodesTableName), entries); err != nil {
		return nil, err
	}
	if err := writeReadme(filepath.Join(opts.OutputRoot, ReadmeName), bundles, entries, unique); err != nil {
		return nil, fault.Wrap(fault.IOFailure, err)
	}

	lines, err := manifest.Build(opts.OutputRoot)
	if err != nil {
		return nil, err
	}
	manifestPath := filepath.Join(opts.OutputRoot, manifest.FileName)
	if err := manifest.Write(manifestPath, lines); err != nil {
		return nil, err
	}

	sealTargets := []string{
		filepath.Join(opts.OutputRoot, index.FileName),
		filepath.Join(opts.OutputRoot, ReadmeName),
		manifestPath,
		filepath.Join(indexDir, BundlesTableName),
		filepath.Join(indexDir, NodesTableName),
	}
	for _, target := range sealTargets {
		rel, _ := filepath.Rel(opts.OutputRoot, target)
		if _, err := seal.File(target, filepath.ToSlash(rel)); err != nil {
			return nil, fault.Wrap(fault.IOFailure, err)
		}
	}

	return &Result{
		PackDir:     opts.OutputRoot,
		Bundles:     len(bundles),
		Entries:     len(entries),
		UniqueBlobs: unique,
	}, nil
}

// loadBundles validates the input root and returns its bundles in sorted
// directory order. Every subdirectory is treated as a bundle and must carry
// a blob store and an index.
func loadBundles(inputRoot string) ([]bundleRef, error) {
	info, err := os.Stat(inputRoot)
	if err != nil || !info.IsDir() {
		return nil, fault.New(fault.InvalidInput, "input root %s is not a directory", inputRoot)
	}
	dirents, err := os.ReadDir(inputRoot)
	if err != nil {
		return nil, fault.Wrap(fault.IOFailure, err)
	}

	var bundles []bundleRef
	for _, d := range dirents {
		if !d.IsDir() {
			continue
		}
		dir := filepath.Join(inputRoot, d.Name())
		if _, err := os.Stat(filepath.Join(dir, store.DirName)); err != nil {
			return nil, fault.New(fault.MissingBundleComponent, "bundle %s: no %s directory", d.Name(), store.DirName)
		}
		if _, err := os.Stat(filepath.Join(dir, index.DirName, index.FileName)); err != nil {
			return nil, fault.New(fault.MissingBundleComponent, "bundle %s: no %s/%s", d.Name(), index.DirName, index.FileName)
		}
		bundles = append(bundles, bundleRef{
			dir:  dir,
			name: d.Name(),
			node: bundleNode(dir, d.Name()),
		})
	}
	if len(bundles) == 0 {
		return nil, fault.New(fault.NoBundlesFound, "no bundles under %s", inputRoot)
	}
	sort.Slice(bundles, func(i, j int) bool { return bundles[i].name < bundles[j].name })
	return bundles, nil
}

// bundleNode resolves a bundle's node identifier. The receipt is
// authoritative; the directory-name prefix is a fallback for bundles written
// before receipts carried the node.
func bundleNode(dir, name string) string {
	if r, err := receipt.Read(filepath.Join(dir, index.DirName, receipt.FileName)); err == nil && r.Node != "" {
		return r.Node
	}
	node, _, _ := strings.Cut(name, "-")
	return node
}

// readIndexes concatenates every bundle's index rows, tagged with their
// source bundle name. Hash format violations surface as MalformedIndex from
// the index reader.
func readIndexes(bundles []bundleRef) ([]index.Entry, error) {
	var all []index.Entry
	for _, b := range bundles {
		rows, err := index.ReadBundle(filepath.Join(b.dir, index.DirName, index.FileName))
		if err != nil {
			return nil, err
		}
		for _, row := range rows {
			row.Bundle = b.name
			all = append(all, row)
		}
	}
	return all, nil
}

// copyBlobs copies each distinct referenced blob into the pack store,
// processing hashes in sorted order. For each hash the first bundle (in
// sorted bundle order) that holds the blob supplies it; content addressing
// makes every candidate copy byte-identical. A hash with no blob in any
// bundle is a MissingBlob fault.
func copyBlobs(packStore *store.Store, bundles []bundleRef, entries []index.Entry) (int, error) {
	hashes := make(map[string]bool)
	for _, e := range entries {
		hashes[e.SHA256] = true
	}
	sorted := make([]string, 0, len(hashes))
	for h := range hashes {
		sorted = append(sorted, h)
	}
	sort.Strings(sorted)

	for _, h := range sorted {
		src := ""
		for _, b := range bundles {
			candidate := filepath.Join(b.dir, store.DirName, h)
			if info, err := os.Stat(candidate); err == nil && info.Mode().IsRegular() {
				src = candidate
				break
			}
		}
		if src == "" {
			return 0, fault.New(fault.MissingBlob, "blob %s not found in any bundle store", h)
		}
		if err := packStore.Put(h, src); err != nil {
			return 0, fault.Wrap(fault.IOFailure, err)
		}
	}
	return len(sorted), nil
}

func writeBundlesTable(path string, bundles []bundleRef) error {
	records := make([][]string, 0, len(bundles))
	for _, b := range bundles {
		records = append(records, []string{
			b.name,
			b.node,
			b.name + "/" + index.DirName + "/" + index.FileName,
			b.name + "/" + index.DirName + "/" + manifest.FileName,
		})
	}
	return writeCSV(path, []string{"bundle_dir", "node", "files_csv_path", "manifest_path"}, records)
}

func writeNodesTable(path string, entries []index.Entry) error {
	type tally struct {
		entries int
		blobs   map[string]bool
	}
	byNode := make(map[string]*tally)
	for _, e := range entries {
		t := byNode[e.Node]
		if t == nil {
			t = &tally{blobs: make(map[string]bool)}
			byNode[e.Node] = t
		}
		t.entries++
		t.blobs[e.SHA256] = true
	}

	nodes := make([]string, 0, len(byNode))
	for n := range byNode {
		nodes = append(nodes, n)
	}
	sort.Strings(nodes)

	records := make([][]string, 0, len(nodes))
	for _, n := range nodes {
		t := byNode[n]
		records = append(records, []string{n, strconv.Itoa(t.entries), strconv.Itoa(len(t.blobs))})
	}
	return writeCSV(path, []string{"node", "entries", "unique_blobs"}, records)
}

// writeReadme generates the human-readable pack overview. The document is a
// pure function of the inputs, with no wall-clock timestamp, so re-merging
// unchanged bundles reproduces it byte for byte and the pack manifest stays
// stable.
func writeReadme(path string, bundles []bundleRef, entries []index.Entry, unique int) error {
	var b strings.Builder
	b.WriteString("# Evidence Pack\n\n")
	fmt.Fprintf(&b, "Merged from %d bundle(s): %d index entries, %d unique blobs.\n\n", len(bundles), len(entries), unique)
	b.WriteString("| Bundle | Node |\n|---|---|\n")
	for _, bd := range bundles {
		fmt.Fprintf(&b, "| %s | %s |\n", bd.name, bd.node)
	}
	b.WriteString("\nLayout:\n\n")
	b.WriteString("- `" + store.DirName + "/` - content-addressed blobs, one file per sha256\n")
	b.WriteString("- `" + index.FileName + "` - combined index (bundle,node,source_relpath,bytes,sha256)\n")
	b.WriteString("- `" + index.DirName + "/" + BundlesTableName + "`, `" + index.DirName + "/" + NodesTableName + "` - summary tables\n")
	b.WriteString("- `" + manifest.FileName + "` - integrity manifest over the whole pack\n")
	b.WriteString("\nVerify with `casket verify <pack-root>`.\n")
	return os.WriteFile(path, []byte(b.String()), 0o644)
}

func writeCSV(path string, header []string, records [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return fault.Wrap(fault.IOFailure, err)
	}
	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		f.Close()
		return fault.Wrap(fault.IOFailure, err)
	}
	if err := w.WriteAll(records); err != nil {
		f.Close()
		return fault.Wrap(fault.IOFailure, err)
	}
	if err := f.Close(); err != nil {
		return fault.Wrap(fault.IOFailure, err)
	}
	return nil
}
