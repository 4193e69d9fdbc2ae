// Package store implements the content-addressed blob directory shared by
// bundles and packs. Every blob lives at <dir>/<sha256-hex> and is written
// at most once; identical content observed again is a no-op. Blobs are never
// mutated after the initial write, only copied between stores.
package store

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/seaworthie/casket/internal/digest"
)

// DirName is the conventional store directory name inside a bundle or pack.
const DirName = "BLOBS"

// Store is a content-addressed blob directory.
type Store struct {
	dir string
}

// Open returns a Store rooted at dir, creating the directory if needed.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create store %s: %w", dir, err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the store's root directory.
func (s *Store) Dir() string { return s.dir }

// Path returns the on-disk path for a blob hash. It does not check
// existence.
func (s *Store) Path(hash string) string {
	return filepath.Join(s.dir, hash)
}

// Has reports whether the blob for hash is present.
func (s *Store) Has(hash string) bool {
	info, err := os.Stat(s.Path(hash))
	return err == nil && info.Mode().IsRegular()
}

// Put copies the file at src into the store under hash. If the blob already
// exists the call is a no-op: the first writer wins and content addressing
// guarantees the bytes are identical.
func (s *Store) Put(hash, src string) error {
	if !digest.IsHex(hash) {
		return fmt.Errorf("invalid blob hash %q", hash)
	}
	if s.Has(hash) {
		return nil
	}
	return copyFile(src, s.Path(hash))
}

// copyFile copies src to dst with a plain synchronous read/write. Partial
// failures leave whatever was written; callers treat any error as fatal for
// the whole run.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copy %s -> %s: %w", src, dst, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("close %s: %w", dst, err)
	}
	return nil
}
