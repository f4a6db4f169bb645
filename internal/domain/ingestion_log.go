package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// FileStatus is the outcome of one file within an ingestion run.
type FileStatus string

const (
	FileStatusProcessed FileStatus = "processed"
	FileStatusSkipped   FileStatus = "skipped"
	FileStatusFailed    FileStatus = "failed"
)

// FileOutcome captures what happened to a single source file.
type FileOutcome struct {
	File   string     `json:"file"`
	Status FileStatus `json:"status"`
	Rows   int        `json:"rows,omitempty"`
	Table  string     `json:"table,omitempty"`
	Reason string     `json:"reason,omitempty"`
}

// String renders the outcome as a human readable log line.
func (o FileOutcome) String() string {
	switch o.Status {
	case FileStatusProcessed:
		return fmt.Sprintf("PROCESSED: %s: %d rows appended to %s", o.File, o.Rows, o.Table)
	case FileStatusSkipped:
		return fmt.Sprintf("SKIPPED: %s: already processed", o.File)
	default:
		return fmt.Sprintf("FAILED: %s: %s", o.File, o.Reason)
	}
}

// IngestionLog is the ordered result of one ingestion run, one entry per local file.
type IngestionLog struct {
	RunID     uuid.UUID     `json:"run_id"`
	StartedAt time.Time     `json:"started_at"`
	Entries   []FileOutcome `json:"entries"`
}

// NewIngestionLog starts an empty log for a new run.
func NewIngestionLog(startedAt time.Time) IngestionLog {
	return IngestionLog{
		RunID:     uuid.New(),
		StartedAt: startedAt,
		Entries:   []FileOutcome{},
	}
}

// Lines renders every entry in order.
func (l IngestionLog) Lines() []string {
	lines := make([]string, len(l.Entries))
	for i, entry := range l.Entries {
		lines[i] = entry.String()
	}
	return lines
}

// Count returns how many entries have the given status.
func (l IngestionLog) Count(status FileStatus) int {
	n := 0
	for _, entry := range l.Entries {
		if entry.Status == status {
			n++
		}
	}
	return n
}
