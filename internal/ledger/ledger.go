// Package ledger provides the append-only JSONL evidence ledger. Every
// collect, merge, verify, and seal invocation appends one structured event,
// making runs auditable after the fact. The ledger is informational: it
// never changes the outcome or exit status of an operation.
package ledger

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Event kinds recorded in the ledger.
const (
	KindCollectDone = "collect_done"
	KindMergeDone   = "merge_done"
	KindVerifyPass  = "verify_pass"
	KindVerifyFail  = "verify_fail"
	KindSealCreated = "seal_created"
)

// Event is a single ledger record.
type Event struct {
	Timestamp time.Time `json:"ts"`
	Kind      string    `json:"kind"`
	Node      string    `json:"node,omitempty"`
	Target    string    `json:"target,omitempty"` // bundle dir, pack dir, verified root, or sealed file
	Files     int       `json:"files,omitempty"`
	Blobs     int       `json:"blobs,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// Ledger appends JSONL events to a file. It is safe for concurrent use.
// A nil *Ledger is a valid no-op ledger.
type Ledger struct {
	file *os.File
	enc  *json.Encoder
	mu   sync.Mutex
}

// Open creates or appends to the ledger file at path, creating parent
// directories as needed.
func Open(path string) (*Ledger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ledger: create dir for %s: %w", path, err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("ledger: open %s: %w", path, err)
	}
	return &Ledger{file: f, enc: json.NewEncoder(f)}, nil
}

// Append writes one event. A zero Timestamp is filled with the current UTC
// time. Calling Append on a nil Ledger is a no-op.
func (l *Ledger) Append(evt Event) error {
	if l == nil {
		return nil
	}
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.enc.Encode(evt); err != nil {
		return fmt.Errorf("ledger: encode event: %w", err)
	}
	return nil
}

// Close closes the underlying file. Calling Close on a nil Ledger is a
// no-op.
func (l *Ledger) Close() error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.file.Close(); err != nil {
		return fmt.Errorf("ledger: close: %w", err)
	}
	return nil
}
