package profile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func writeProfile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nodes.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write profile: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	t.Parallel()

	path := writeProfile(t, `
output = "evidence/bundles"

[[node]]
id = "workstation"
source = "/srv/evidence/workstation"
include = ["*.md", "*.json"]

[[node]]
id = "homelab"
source = "/srv/evidence/homelab"
`)

	p, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := &Profile{
		Output: "evidence/bundles",
		Nodes: []Node{
			{ID: "workstation", Source: "/srv/evidence/workstation", Include: []string{"*.md", "*.json"}},
			{ID: "homelab", Source: "/srv/evidence/homelab"},
		},
	}
	if diff := cmp.Diff(want, p); diff != "" {
		t.Errorf("profile mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
	}{
		{"no nodes", `output = "x"`},
		{"missing id", "[[node]]\nsource = \"/a\"\n"},
		{"missing source", "[[node]]\nid = \"a\"\n"},
		{"separator in id", "[[node]]\nid = \"a/b\"\nsource = \"/a\"\n"},
		{"duplicate id", "[[node]]\nid = \"a\"\nsource = \"/a\"\n\n[[node]]\nid = \"a\"\nsource = \"/b\"\n"},
		{"bad toml", "id = [unclosed\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if _, err := Load(writeProfile(t, tt.content)); err == nil {
				t.Error("Load succeeded, want error")
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	if _, err := Load(filepath.Join(t.TempDir(), "absent.toml")); err == nil {
		t.Error("Load of missing file succeeded")
	}
}
