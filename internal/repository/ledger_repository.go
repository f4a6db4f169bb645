package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rpattn/salesingest/internal/domain"
)

const (
	ledgerTable = "historico_arquivos"

	createLedgerTableSQL = `CREATE TABLE IF NOT EXISTS historico_arquivos (
	nome_arquivo TEXT PRIMARY KEY,
	horario_processamento TIMESTAMP NOT NULL
)`
)

type ledgerRepository struct {
	db *sql.DB
}

// NewLedgerRepository wires a ledger backed by an embedded DuckDB database.
func NewLedgerRepository(db *sql.DB) LedgerRepository {
	return &ledgerRepository{db: db}
}

func (r *ledgerRepository) EnsureSchema(ctx context.Context) error {
	if r.db == nil {
		return fmt.Errorf("%w: ledger repository not initialized", domain.ErrLedgerUnavailable)
	}
	if _, err := r.db.ExecContext(ctx, createLedgerTableSQL); err != nil {
		return fmt.Errorf("%w: failed to create %s: %v", domain.ErrLedgerUnavailable, ledgerTable, err)
	}
	return nil
}

func (r *ledgerRepository) SeenFilenames(ctx context.Context) (domain.LedgerSnapshot, error) {
	if r.db == nil {
		return domain.LedgerSnapshot{}, fmt.Errorf("%w: ledger repository not initialized", domain.ErrLedgerUnavailable)
	}

	rows, err := r.db.QueryContext(ctx, `SELECT nome_arquivo FROM historico_arquivos`)
	if err != nil {
		return domain.LedgerSnapshot{}, fmt.Errorf("%w: failed to read ledger: %v", domain.ErrLedgerUnavailable, err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return domain.LedgerSnapshot{}, fmt.Errorf("%w: failed to scan ledger row: %v", domain.ErrLedgerUnavailable, err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return domain.LedgerSnapshot{}, fmt.Errorf("%w: failed to iterate ledger: %v", domain.ErrLedgerUnavailable, err)
	}

	return domain.NewLedgerSnapshot(names...), nil
}

func (r *ledgerRepository) MarkSeen(ctx context.Context, filename string, processedAt time.Time) error {
	if r.db == nil {
		return fmt.Errorf("%w: ledger repository not initialized", domain.ErrLedgerUnavailable)
	}

	_, err := r.db.ExecContext(
		ctx,
		`INSERT INTO historico_arquivos (nome_arquivo, horario_processamento) VALUES (?, ?)`,
		filename,
		processedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to record %s in ledger: %w", filename, err)
	}
	return nil
}

func (r *ledgerRepository) List(ctx context.Context) ([]domain.LedgerEntry, error) {
	if r.db == nil {
		return nil, fmt.Errorf("%w: ledger repository not initialized", domain.ErrLedgerUnavailable)
	}

	rows, err := r.db.QueryContext(
		ctx,
		`SELECT nome_arquivo, horario_processamento FROM historico_arquivos ORDER BY nome_arquivo`,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list ledger: %v", domain.ErrLedgerUnavailable, err)
	}
	defer rows.Close()

	entries := []domain.LedgerEntry{}
	for rows.Next() {
		var entry domain.LedgerEntry
		if err := rows.Scan(&entry.Filename, &entry.ProcessedAt); err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate ledger entries: %w", err)
	}

	return entries, nil
}
