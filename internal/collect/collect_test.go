package collect

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/seaworthie/casket/internal/digest"
	"github.com/seaworthie/casket/internal/fault"
	"github.com/seaworthie/casket/internal/index"
	"github.com/seaworthie/casket/internal/manifest"
	"github.com/seaworthie/casket/internal/receipt"
	"github.com/seaworthie/casket/internal/seal"
	"github.com/seaworthie/casket/internal/store"
	"github.com/seaworthie/casket/internal/verify"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", rel, err)
		}
	}
}

func TestRunDedupsIdenticalContent(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	source := filepath.Join(dir, "src")
	writeTree(t, source, map[string]string{
		"a.txt":     "hello",
		"sub/b.txt": "hello",
	})

	res, err := Run(Options{Node: "alpha", SourceRoot: source, OutputRoot: filepath.Join(dir, "out")})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.FilesIncluded != 2 {
		t.Errorf("FilesIncluded = %d, want 2", res.FilesIncluded)
	}
	if res.UniqueBlobs != 1 {
		t.Errorf("UniqueBlobs = %d, want 1", res.UniqueBlobs)
	}

	// Exactly one blob, keyed by the hash of "hello".
	helloSum := digest.Bytes([]byte("hello"))
	blobs, err := os.ReadDir(filepath.Join(res.BundleDir, store.DirName))
	if err != nil {
		t.Fatalf("read store: %v", err)
	}
	if len(blobs) != 1 || blobs[0].Name() != helloSum {
		t.Errorf("store = %v, want exactly [%s]", blobs, helloSum)
	}

	// Two index rows, both pointing at that hash.
	entries, err := index.ReadBundle(filepath.Join(res.BundleDir, index.DirName, index.FileName))
	if err != nil {
		t.Fatalf("read index: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("index rows = %d, want 2", len(entries))
	}
	for _, e := range entries {
		if e.SHA256 != helloSum {
			t.Errorf("row %s hash = %s, want %s", e.RelPath, e.SHA256, helloSum)
		}
		if e.Node != "alpha" {
			t.Errorf("row node = %q, want alpha", e.Node)
		}
	}

	// The fresh bundle verifies clean.
	report, err := verify.Run(verify.Options{Root: res.BundleDir})
	if err != nil {
		t.Fatalf("verify fresh bundle: %v", err)
	}
	if report.FilesVerified == 0 {
		t.Error("verify reported zero files")
	}
}

func TestRunDeterministicIndex(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	source := filepath.Join(dir, "src")
	writeTree(t, source, map[string]string{
		"z.log":      "zulu",
		"a/one.txt":  "one",
		"a/two.txt":  "two",
		"b/three.md": "three",
	})

	run := func(out string, ts time.Time) string {
		res, err := Run(Options{Node: "n1", SourceRoot: source, OutputRoot: out, Timestamp: ts})
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		return res.BundleDir
	}
	b1 := run(filepath.Join(dir, "out1"), time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))
	b2 := run(filepath.Join(dir, "out2"), time.Date(2026, 3, 2, 11, 30, 0, 0, time.UTC))

	read := func(b string) string {
		data, err := os.ReadFile(filepath.Join(b, index.DirName, index.FileName))
		if err != nil {
			t.Fatalf("read index: %v", err)
		}
		return string(data)
	}
	if read(b1) != read(b2) {
		t.Error("index bytes differ between runs over unchanged input")
	}

	// Manifests agree on everything except the receipt line, whose content
	// embeds the run timestamp.
	filterReceipt := func(b string) string {
		lines, err := manifest.Parse(filepath.Join(b, index.DirName, manifest.FileName))
		if err != nil {
			t.Fatalf("parse manifest: %v", err)
		}
		var kept []string
		for _, l := range lines {
			if l.RelPath == index.DirName+"/"+receipt.FileName {
				continue
			}
			kept = append(kept, l.String())
		}
		return strings.Join(kept, "\n")
	}
	if filterReceipt(b1) != filterReceipt(b2) {
		t.Error("manifest lines (receipt aside) differ between runs")
	}
}

func TestRunIncludePatterns(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	source := filepath.Join(dir, "src")
	writeTree(t, source, map[string]string{
		"keep.md":     "md",
		"keep.txt":    "txt",
		"skip.bin":    "bin",
		"sub/also.md": "md2",
	})

	res, err := Run(Options{
		Node:       "alpha",
		SourceRoot: source,
		OutputRoot: filepath.Join(dir, "out"),
		Include:    []string{"*.md", "*.txt"},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.FilesIncluded != 3 {
		t.Errorf("FilesIncluded = %d, want 3", res.FilesIncluded)
	}

	entries, err := index.ReadBundle(filepath.Join(res.BundleDir, index.DirName, index.FileName))
	if err != nil {
		t.Fatalf("read index: %v", err)
	}
	for _, e := range entries {
		if strings.HasSuffix(e.RelPath, ".bin") {
			t.Errorf("excluded file collected: %s", e.RelPath)
		}
	}
}

func TestRunInvalidInputs(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	source := filepath.Join(dir, "src")
	writeTree(t, source, map[string]string{"a": "a"})

	tests := []struct {
		name string
		opts Options
	}{
		{"missing source", Options{Node: "n", SourceRoot: filepath.Join(dir, "nope"), OutputRoot: dir}},
		{"source is a file", Options{Node: "n", SourceRoot: filepath.Join(source, "a"), OutputRoot: dir}},
		{"empty node", Options{Node: "", SourceRoot: source, OutputRoot: dir}},
		{"node with separator", Options{Node: "a/b", SourceRoot: source, OutputRoot: dir}},
		{"bad glob", Options{Node: "n", SourceRoot: source, OutputRoot: dir, Include: []string{"["}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Run(tt.opts)
			if fault.KindOf(err) != fault.InvalidInput {
				t.Errorf("kind = %q, want %q (err: %v)", fault.KindOf(err), fault.InvalidInput, err)
			}
		})
	}
}

func TestRunRefusesExistingBundleDir(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	source := filepath.Join(dir, "src")
	writeTree(t, source, map[string]string{"a": "a"})

	ts := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	opts := Options{Node: "n", SourceRoot: source, OutputRoot: filepath.Join(dir, "out"), Timestamp: ts}

	if _, err := Run(opts); err != nil {
		t.Fatalf("first Run: %v", err)
	}
	// Same node, same second: must refuse rather than overwrite.
	_, err := Run(opts)
	if fault.KindOf(err) != fault.InvalidInput {
		t.Errorf("second Run kind = %q, want %q", fault.KindOf(err), fault.InvalidInput)
	}
}

func TestRunWritesReceiptAndSeals(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	source := filepath.Join(dir, "src")
	writeTree(t, source, map[string]string{"a.txt": "alpha"})

	res, err := Run(Options{Node: "edge7", SourceRoot: source, OutputRoot: filepath.Join(dir, "out")})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	r, err := receipt.Read(filepath.Join(res.BundleDir, index.DirName, receipt.FileName))
	if err != nil {
		t.Fatalf("read receipt: %v", err)
	}
	if r.Node != "edge7" {
		t.Errorf("receipt node = %q, want edge7", r.Node)
	}
	if r.FilesIncluded != 1 || r.UniqueBlobs != 1 {
		t.Errorf("receipt counts = %d/%d, want 1/1", r.FilesIncluded, r.UniqueBlobs)
	}
	if r.Schema != receipt.Schema {
		t.Errorf("receipt schema = %q", r.Schema)
	}

	for _, name := range []string{index.FileName, manifest.FileName, receipt.FileName} {
		target := filepath.Join(res.BundleDir, index.DirName, name)
		rec, err := seal.Parse(target + seal.Suffix)
		if err != nil {
			t.Fatalf("parse seal for %s: %v", name, err)
		}
		sum, size, err := digest.File(target)
		if err != nil {
			t.Fatalf("hash %s: %v", name, err)
		}
		if rec.SHA256 != sum || rec.Bytes != size {
			t.Errorf("seal for %s does not match target (%s/%d vs %s/%d)", name, rec.SHA256, rec.Bytes, sum, size)
		}
	}
}
