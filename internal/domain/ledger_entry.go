package domain

import (
	"sort"
	"time"
)

// LedgerEntry records that a source file has been ingested.
type LedgerEntry struct {
	Filename    string    `json:"filename"`
	ProcessedAt time.Time `json:"processed_at"`
}

// LedgerSnapshot is the set of filenames already ingested, read once at the start of a run.
type LedgerSnapshot struct {
	names map[string]struct{}
}

// NewLedgerSnapshot builds a snapshot from the given filenames.
func NewLedgerSnapshot(filenames ...string) LedgerSnapshot {
	names := make(map[string]struct{}, len(filenames))
	for _, name := range filenames {
		names[name] = struct{}{}
	}
	return LedgerSnapshot{names: names}
}

// Contains reports whether filename was already ingested when the snapshot was taken.
func (s LedgerSnapshot) Contains(filename string) bool {
	_, ok := s.names[filename]
	return ok
}

// Len returns the number of filenames in the snapshot.
func (s LedgerSnapshot) Len() int {
	return len(s.names)
}

// Filenames returns the snapshot contents sorted lexicographically.
func (s LedgerSnapshot) Filenames() []string {
	out := make([]string, 0, len(s.names))
	for name := range s.names {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
