// Package profile parses TOML collection profiles: declarative files
// listing the nodes a collection sweep should cover, each with its source
// root and include patterns. A profile lets a scheduler run one casket
// invocation instead of one per node.
package profile

import (
	"fmt"
	"os"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

// Node declares one collection target.
type Node struct {
	ID      string   `toml:"id"`
	Source  string   `toml:"source"`
	Include []string `toml:"include"` // filename globs; empty means everything
}

// Profile is a parsed collection profile.
type Profile struct {
	// Output is the default output root for all nodes. A CLI flag
	// overrides it.
	Output string `toml:"output"`
	Nodes  []Node `toml:"node"`
}

// Load reads and validates a profile file.
func Load(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading profile %s: %w", path, err)
	}

	var p Profile
	if err := toml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parsing profile %s: %w", path, err)
	}
	if err := p.validate(); err != nil {
		return nil, fmt.Errorf("profile %s: %w", path, err)
	}
	return &p, nil
}

func (p *Profile) validate() error {
	if len(p.Nodes) == 0 {
		return fmt.Errorf("no [[node]] entries")
	}
	seen := make(map[string]bool)
	for i, n := range p.Nodes {
		if n.ID == "" {
			return fmt.Errorf("node %d: missing id", i+1)
		}
		if strings.ContainsAny(n.ID, "/\\ \t") {
			return fmt.Errorf("node %q: id must not contain separators or spaces", n.ID)
		}
		if n.Source == "" {
			return fmt.Errorf("node %q: missing source", n.ID)
		}
		if seen[n.ID] {
			return fmt.Errorf("node %q: duplicate id", n.ID)
		}
		seen[n.ID] = true
	}
	return nil
}
