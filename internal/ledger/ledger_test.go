package ledger

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestAppendWritesJSONL(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "evidence", "ledger.jsonl")
	l, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	events := []Event{
		{Kind: KindCollectDone, Node: "alpha", Target: "out/alpha-20260101T000000Z", Files: 3, Blobs: 2},
		{Kind: KindVerifyPass, Target: "out/alpha-20260101T000000Z", Files: 5},
	}
	for _, e := range events {
		if err := l.Append(e); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open ledger: %v", err)
	}
	defer f.Close()

	var got []Event
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var e Event
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			t.Fatalf("line is not valid JSON: %v", err)
		}
		got = append(got, e)
	}
	if len(got) != 2 {
		t.Fatalf("ledger has %d events, want 2", len(got))
	}
	if got[0].Kind != KindCollectDone || got[0].Node != "alpha" {
		t.Errorf("first event = %+v", got[0])
	}
	if got[0].Timestamp.IsZero() {
		t.Error("event timestamp was not filled")
	}
}

func TestAppendIsAppendOnly(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "ledger.jsonl")

	for i := 0; i < 2; i++ {
		l, err := Open(path)
		if err != nil {
			t.Fatalf("Open #%d: %v", i, err)
		}
		if err := l.Append(Event{Kind: KindSealCreated, Target: "x"}); err != nil {
			t.Fatalf("Append #%d: %v", i, err)
		}
		l.Close()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if lines := len(splitLines(data)); lines != 2 {
		t.Errorf("reopening truncated the ledger: %d lines, want 2", lines)
	}
}

func splitLines(data []byte) [][]byte {
	var lines [][]byte
	start := 0
	for i, b := range data {
		if b == '\n' {
			lines = append(lines, data[start:i])
			start = i + 1
		}
	}
	return lines
}

func TestNilLedgerIsNoOp(t *testing.T) {
	t.Parallel()

	var l *Ledger
	if err := l.Append(Event{Kind: KindMergeDone}); err != nil {
		t.Errorf("nil Append: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Errorf("nil Close: %v", err)
	}
}
