// Package digest provides the SHA-256 hashing primitives used by every part
// of the evidence pipeline. All hashes are lowercase hex. Hashing streams
// through a fixed-size buffer so memory stays bounded regardless of file
// size.
package digest

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

// HexLen is the length of a hex-encoded SHA-256 digest.
const HexLen = 64

// File returns the SHA-256 hex digest and byte length of the file at path.
func File(path string) (string, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return "", 0, fmt.Errorf("hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), n, nil
}

// Bytes returns the SHA-256 hex digest of b.
func Bytes(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// IsHex reports whether s is a well-formed lowercase hex SHA-256 digest.
func IsHex(s string) bool {
	if len(s) != HexLen {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
