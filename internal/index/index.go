// Package index reads and writes the FILES.csv tables that record which
// logical files a collection run observed. Rows are independent
// observations: the same (node, path) may legitimately appear more than once
// across runs, and duplicates are never merged away. Serialization is
// deterministic: callers sort rows before writing and an unchanged input
// tree reproduces byte-identical CSV.
package index

import (
	"encoding/csv"
	"fmt"
	"os"
	"sort"
	"strconv"

	"github.com/seaworthie/casket/internal/digest"
	"github.com/seaworthie/casket/internal/fault"
)

// DirName is the metadata directory inside a bundle.
const DirName = "INDEX"

// FileName is the index file name inside a bundle's INDEX directory and at a
// pack root.
const FileName = "FILES.csv"

// bundleHeader is the column set of a per-run index.
var bundleHeader = []string{"node", "source_relpath", "bytes", "sha256"}

// packHeader is the column set of a merged pack index.
var packHeader = []string{"bundle", "node", "source_relpath", "bytes", "sha256"}

// Entry is one logical file observation.
type Entry struct {
	Bundle  string // empty in a per-run index; source bundle dir in a pack
	Node    string
	RelPath string // forward-slash relative path under the source root
	Bytes   int64
	SHA256  string
}

// SortEntries orders rows by the pack sort key (bundle, node, relpath,
// hash), which is also correct for per-run rows where Bundle is empty.
func SortEntries(entries []Entry) {
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.Bundle != b.Bundle {
			return a.Bundle < b.Bundle
		}
		if a.Node != b.Node {
			return a.Node < b.Node
		}
		if a.RelPath != b.RelPath {
			return a.RelPath < b.RelPath
		}
		return a.SHA256 < b.SHA256
	})
}

// WriteBundle writes a per-run index (node,source_relpath,bytes,sha256).
func WriteBundle(path string, entries []Entry) error {
	records := make([][]string, 0, len(entries))
	for _, e := range entries {
		records = append(records, []string{e.Node, e.RelPath, strconv.FormatInt(e.Bytes, 10), e.SHA256})
	}
	return writeCSV(path, bundleHeader, records)
}

// WritePack writes a merged index (bundle,node,source_relpath,bytes,sha256).
func WritePack(path string, entries []Entry) error {
	records := make([][]string, 0, len(entries))
	for _, e := range entries {
		records = append(records, []string{e.Bundle, e.Node, e.RelPath, strconv.FormatInt(e.Bytes, 10), e.SHA256})
	}
	return writeCSV(path, packHeader, records)
}

// ReadBundle parses a per-run index. Every row is validated: four columns, a
// numeric byte count, and a well-formed sha256 hash. Any violation is a
// MalformedIndex fault naming the row.
func ReadBundle(path string) ([]Entry, error) {
	records, err := readCSV(path)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fault.New(fault.MalformedIndex, "%s: empty index, missing header", path)
	}
	if !sameHeader(records[0], bundleHeader) {
		return nil, fault.New(fault.MalformedIndex, "%s: unexpected header %v", path, records[0])
	}

	entries := make([]Entry, 0, len(records)-1)
	for i, rec := range records[1:] {
		if len(rec) != len(bundleHeader) {
			return nil, fault.New(fault.MalformedIndex, "%s: row %d has %d columns, want %d", path, i+2, len(rec), len(bundleHeader))
		}
		size, err := strconv.ParseInt(rec[2], 10, 64)
		if err != nil {
			return nil, fault.New(fault.MalformedIndex, "%s: row %d: bad byte count %q", path, i+2, rec[2])
		}
		if !digest.IsHex(rec[3]) {
			return nil, fault.New(fault.MalformedIndex, "%s: row %d: bad sha256 %q", path, i+2, rec[3])
		}
		entries = append(entries, Entry{Node: rec[0], RelPath: rec[1], Bytes: size, SHA256: rec[3]})
	}
	return entries, nil
}

func sameHeader(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range want {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

func writeCSV(path string, header []string, records [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := w.WriteAll(records); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1 // row shape is validated by the caller
	records, err := r.ReadAll()
	if err != nil {
		return nil, fault.New(fault.MalformedIndex, "%s: %v", path, err)
	}
	return records, nil
}
