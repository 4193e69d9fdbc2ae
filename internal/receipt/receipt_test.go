package receipt

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestWriteReadRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), FileName)
	want := Receipt{
		Schema:          Schema,
		Node:            "alpha",
		TimestampUTC:    "2026-06-01T12:00:00Z",
		Root:            "/srv/evidence",
		OutRoot:         "out",
		BundleDir:       "alpha-20260601T120000Z",
		IncludePatterns: []string{"*"},
		FilesIncluded:   7,
		UniqueBlobs:     5,
	}
	if err := Write(path, want); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}

	// Stable field names are part of the format.
	data, _ := os.ReadFile(path)
	for _, field := range []string{"schema", "node", "timestamp_utc", "bundle_dir", "files_included", "unique_blobs"} {
		if !strings.Contains(string(data), `"`+field+`"`) {
			t.Errorf("serialized receipt missing %q field", field)
		}
	}
}

func TestReadRejectsGarbage(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), FileName)
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Read(path); err == nil {
		t.Error("Read of invalid JSON succeeded")
	}
}
