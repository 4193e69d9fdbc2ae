// Package manifest builds, writes, and parses MANIFEST_SHA256.txt files:
// the ordered list of (sha256, relative path) assertions covering every file
// in a bundle or pack except the manifest itself.
//
// Manifest paths from disk are untrusted input. CheckPath is the security
// boundary against traversal from a tampered manifest and must pass before
// any filesystem access resolves a listed path.
package manifest

import (
	"bufio"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/seaworthie/casket/internal/digest"
	"github.com/seaworthie/casket/internal/fault"
)

// FileName is the manifest file name at a pack root or inside a bundle's
// INDEX directory.
const FileName = "MANIFEST_SHA256.txt"

// sep separates the hash and path fields on a manifest line. Two spaces,
// matching the sha256sum convention.
const sep = "  "

// Line is one (hash, path) assertion.
type Line struct {
	SHA256  string
	RelPath string
}

// String renders the line in its serialized form, without a newline.
func (l Line) String() string {
	return l.SHA256 + sep + l.RelPath
}

// Build walks root, hashes every regular file, and returns the manifest
// lines sorted lexicographically by their serialized form. Paths listed in
// skip (relative, forward-slash) are excluded; the manifest file itself is
// always excluded.
func Build(root string, skip ...string) ([]Line, error) {
	skipSet := make(map[string]bool, len(skip)+1)
	for _, s := range skip {
		skipSet[s] = true
	}

	var lines []Line
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if skipSet[rel] || filepath.Base(rel) == FileName {
			return nil
		}
		sum, _, err := digest.File(path)
		if err != nil {
			return err
		}
		lines = append(lines, Line{SHA256: sum, RelPath: rel})
		return nil
	})
	if err != nil {
		return nil, fault.Wrap(fault.IOFailure, err)
	}

	sort.Slice(lines, func(i, j int) bool {
		return lines[i].String() < lines[j].String()
	})
	return lines, nil
}

// Write serializes lines to path, one per line with a trailing newline.
func Write(path string, lines []Line) error {
	var b strings.Builder
	for _, l := range lines {
		b.WriteString(l.String())
		b.WriteByte('\n')
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fault.Wrap(fault.IOFailure, err)
	}
	return nil
}

// Parse reads a manifest file. Each non-empty line must split into exactly
// (hash, path) on the two-space separator with a well-formed sha256;
// anything else fails the whole parse with MalformedManifestLine.
func Parse(path string) ([]Line, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fault.New(fault.MissingManifest, "no %s at %s", FileName, filepath.Dir(path))
		}
		return nil, fault.Wrap(fault.IOFailure, err)
	}
	defer f.Close()

	var lines []Line
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		text := scanner.Text()
		if strings.TrimSpace(text) == "" {
			continue
		}
		hash, rel, ok := strings.Cut(text, sep)
		if !ok || hash == "" || rel == "" || strings.Contains(rel, sep) {
			return nil, fault.New(fault.MalformedManifestLine, "%s:%d: want \"<hash>  <path>\", got %q", path, lineNo, text)
		}
		if !digest.IsHex(hash) {
			return nil, fault.New(fault.MalformedManifestLine, "%s:%d: bad sha256 %q", path, lineNo, hash)
		}
		lines = append(lines, Line{SHA256: hash, RelPath: rel})
	}
	if err := scanner.Err(); err != nil {
		return nil, fault.Wrap(fault.IOFailure, err)
	}
	return lines, nil
}

// CheckPath rejects manifest paths that could escape the tree root. It runs
// on the string alone, before any disk access. Rejected: empty paths,
// absolute paths, Windows drive-rooted paths, backslashes, and any "." or
// ".." segment.
func CheckPath(rel string) error {
	if rel == "" {
		return fault.New(fault.UnsafePath, "empty path")
	}
	if strings.HasPrefix(rel, "/") {
		return fault.New(fault.UnsafePath, "absolute path %q", rel)
	}
	if strings.Contains(rel, "\\") {
		return fault.New(fault.UnsafePath, "backslash in path %q", rel)
	}
	if len(rel) >= 2 && rel[1] == ':' &&
		((rel[0] >= 'a' && rel[0] <= 'z') || (rel[0] >= 'A' && rel[0] <= 'Z')) {
		return fault.New(fault.UnsafePath, "drive-rooted path %q", rel)
	}
	for _, seg := range strings.Split(rel, "/") {
		if seg == ".." {
			return fault.New(fault.UnsafePath, "traversal segment in %q", rel)
		}
		if seg == "." {
			return fault.New(fault.UnsafePath, "dot segment in %q", rel)
		}
	}
	return nil
}
