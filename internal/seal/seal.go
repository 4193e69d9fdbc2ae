// Package seal writes detached integrity attestations: for a target file,
// a sibling <target>.sha256.txt recording the content hash, byte length,
// timestamp, and best-effort git provenance. Seals are independent of the
// manifest mechanism and survive being copied around with their target.
package seal

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/seaworthie/casket/internal/digest"
)

// Suffix is appended to the target file name to form the seal file name.
const Suffix = ".sha256.txt"

// Record is the parsed content of one seal file.
type Record struct {
	SHA256       string
	RelPath      string
	Bytes        int64
	TimestampUTC string
	GitState     string // "clean", "dirty", or empty when not in a repo
	GitHead      string // HEAD commit, empty when not in a repo
}

// format renders the seal file body. Field order matches the established
// seal format: hash line, bytes, timestamp, then git lines when present.
func (r Record) format() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s  %s\n", r.SHA256, r.RelPath)
	fmt.Fprintf(&b, "bytes: %d\n", r.Bytes)
	fmt.Fprintf(&b, "timestamp_utc: %s\n", r.TimestampUTC)
	if r.GitState != "" {
		fmt.Fprintf(&b, "git_state: %s\n", r.GitState)
	}
	if r.GitHead != "" {
		fmt.Fprintf(&b, "git_head: %s\n", r.GitHead)
	}
	return b.String()
}

// File seals target, writing <target>.sha256.txt next to it. rel is the
// path recorded on the hash line; pass the path the reader should use to
// locate the target from wherever the seal will be read. Returns the seal
// file path.
func File(target, rel string) (string, error) {
	rec, err := Compute(target, rel)
	if err != nil {
		return "", err
	}
	out := target + Suffix
	if err := os.WriteFile(out, []byte(rec.format()), 0o644); err != nil {
		return "", fmt.Errorf("write seal %s: %w", out, err)
	}
	return out, nil
}

// Compute builds the seal record for target without writing it.
func Compute(target, rel string) (Record, error) {
	sum, size, err := digest.File(target)
	if err != nil {
		return Record{}, err
	}
	rec := Record{
		SHA256:       sum,
		RelPath:      strings.ReplaceAll(rel, "\\", "/"),
		Bytes:        size,
		TimestampUTC: time.Now().UTC().Format("2006-01-02T15:04:05Z"),
	}
	if g := probeGit(target); g != nil {
		rec.GitState = g.state
		rec.GitHead = g.head
	}
	return rec, nil
}

// Parse reads a seal file back into a Record. Unknown keys are ignored so
// the format can grow.
func Parse(path string) (Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Record{}, fmt.Errorf("read seal %s: %w", path, err)
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) == 0 {
		return Record{}, fmt.Errorf("seal %s: empty", path)
	}

	var rec Record
	hash, rel, ok := strings.Cut(lines[0], "  ")
	if !ok || !digest.IsHex(hash) {
		return Record{}, fmt.Errorf("seal %s: bad hash line %q", path, lines[0])
	}
	rec.SHA256, rec.RelPath = hash, rel

	for _, line := range lines[1:] {
		key, val, ok := strings.Cut(line, ": ")
		if !ok {
			continue
		}
		switch key {
		case "bytes":
			n, err := strconv.ParseInt(val, 10, 64)
			if err != nil {
				return Record{}, fmt.Errorf("seal %s: bad bytes %q", path, val)
			}
			rec.Bytes = n
		case "timestamp_utc":
			rec.TimestampUTC = val
		case "git_state":
			rec.GitState = val
		case "git_head":
			rec.GitHead = val
		}
	}
	return rec, nil
}
