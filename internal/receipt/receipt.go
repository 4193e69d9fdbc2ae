// Package receipt handles RUN_RECEIPT.json, the per-run metadata record
// written into every bundle. The receipt carries the node identifier as
// explicit metadata, so the merger does not have to trust the bundle
// directory naming convention.
package receipt

import (
	"encoding/json"
	"fmt"
	"os"
)

// FileName is the receipt file name inside a bundle's INDEX directory.
const FileName = "RUN_RECEIPT.json"

// Schema identifies the receipt format version.
const Schema = "casket/run-receipt/v1"

// Receipt records the metadata of one collection run. Informational, not
// security-critical.
type Receipt struct {
	Schema          string   `json:"schema"`
	Node            string   `json:"node"`
	TimestampUTC    string   `json:"timestamp_utc"`
	Root            string   `json:"root"`
	OutRoot         string   `json:"out_root"`
	BundleDir       string   `json:"bundle_dir"`
	IncludePatterns []string `json:"include_patterns"`
	FilesIncluded   int      `json:"files_included"`
	UniqueBlobs     int      `json:"unique_blobs"`
}

// Write serializes r to path as indented JSON with a trailing newline.
func Write(path string, r Receipt) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal receipt: %w", err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// Read loads a receipt from path.
func Read(path string) (Receipt, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Receipt{}, fmt.Errorf("read %s: %w", path, err)
	}
	var r Receipt
	if err := json.Unmarshal(data, &r); err != nil {
		return Receipt{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return r, nil
}
