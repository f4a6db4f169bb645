package repository

import (
	"context"
	"time"

	"github.com/rpattn/salesingest/internal/domain"
)

// LedgerRepository records which source files have already been ingested.
type LedgerRepository interface {
	EnsureSchema(ctx context.Context) error
	SeenFilenames(ctx context.Context) (domain.LedgerSnapshot, error)
	MarkSeen(ctx context.Context, filename string, processedAt time.Time) error
	List(ctx context.Context) ([]domain.LedgerEntry, error)
}

// TableSink appends in-memory tables to named warehouse tables.
type TableSink interface {
	AppendTable(ctx context.Context, table domain.Table, tableName string) (int64, error)
}
