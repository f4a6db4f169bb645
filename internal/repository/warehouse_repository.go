package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/rpattn/salesingest/internal/db"
	"github.com/rpattn/salesingest/internal/domain"
)

type warehouseRepository struct {
	warehouse *db.Warehouse
}

// NewWarehouseRepository wires a TableSink backed by the Postgres warehouse.
func NewWarehouseRepository(warehouse *db.Warehouse) TableSink {
	return &warehouseRepository{warehouse: warehouse}
}

// AppendTable appends every row of table to tableName, creating the table from the
// inferred column types when it does not exist yet.
func (r *warehouseRepository) AppendTable(ctx context.Context, table domain.Table, tableName string) (int64, error) {
	if r.warehouse == nil {
		return 0, fmt.Errorf("%w: warehouse repository not initialized", domain.ErrSinkUnavailable)
	}
	if strings.TrimSpace(tableName) == "" {
		return 0, errors.New("table name is required")
	}
	if len(table.Columns) == 0 {
		return 0, errors.New("table has no columns")
	}

	conn, err := r.warehouse.Conn(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrSinkUnavailable, err)
	}
	if err := conn.Pool.Ping(ctx); err != nil {
		return 0, fmt.Errorf("%w: failed to ping database: %v", domain.ErrSinkUnavailable, err)
	}

	var copied int64
	err = conn.WithTx(ctx, func(tx pgx.Tx) error {
		existing, err := loadTableColumns(ctx, tx, tableName)
		if err != nil {
			return err
		}

		if len(existing) == 0 {
			if _, err := tx.Exec(ctx, createTableSQL(tableName, table.Columns)); err != nil {
				return fmt.Errorf("failed to create table %s: %w", tableName, err)
			}
		} else if err := checkCompatible(tableName, existing, table.Columns); err != nil {
			return err
		}

		if len(table.Rows) == 0 {
			return nil
		}

		copied, err = tx.CopyFrom(ctx, pgx.Identifier{tableName}, table.ColumnNames(), pgx.CopyFromRows(table.Rows))
		if err != nil {
			return fmt.Errorf("failed to copy rows into %s: %w", tableName, err)
		}
		return nil
	})
	if err != nil {
		return 0, classifyTxError(err)
	}

	return copied, nil
}

// classifyTxError reports a transaction that could not start as an unavailable sink.
func classifyTxError(err error) error {
	if errors.Is(err, db.ErrBeginTx) && !errors.Is(err, domain.ErrSinkUnavailable) {
		return fmt.Errorf("%w: %w", domain.ErrSinkUnavailable, err)
	}
	return err
}

func loadTableColumns(ctx context.Context, tx pgx.Tx, tableName string) (map[string]string, error) {
	rows, err := tx.Query(
		ctx,
		`SELECT column_name, data_type
		 FROM information_schema.columns
		 WHERE table_schema = current_schema()
		   AND table_name = $1
		 ORDER BY ordinal_position`,
		tableName,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to inspect table %s: %w", tableName, err)
	}
	defer rows.Close()

	columns := make(map[string]string)
	for rows.Next() {
		var name, dataType string
		if err := rows.Scan(&name, &dataType); err != nil {
			return nil, fmt.Errorf("failed to scan column of %s: %w", tableName, err)
		}
		columns[name] = dataType
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate columns of %s: %w", tableName, err)
	}

	return columns, nil
}

func createTableSQL(tableName string, columns []domain.Column) string {
	defs := make([]string, len(columns))
	for i, col := range columns {
		defs[i] = fmt.Sprintf("%s %s", pgx.Identifier{col.Name}.Sanitize(), postgresType(col.Type))
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", pgx.Identifier{tableName}.Sanitize(), strings.Join(defs, ", "))
}

func postgresType(t domain.ColumnType) string {
	switch t {
	case domain.ColumnTypeBigint:
		return "BIGINT"
	case domain.ColumnTypeDouble:
		return "DOUBLE PRECISION"
	case domain.ColumnTypeBoolean:
		return "BOOLEAN"
	case domain.ColumnTypeTimestamp:
		return "TIMESTAMPTZ"
	default:
		return "TEXT"
	}
}

// compatibleDataTypes lists the information_schema data_type values each inferred
// column type may be written into.
var compatibleDataTypes = map[domain.ColumnType][]string{
	domain.ColumnTypeBigint:    {"bigint", "integer", "smallint", "numeric", "double precision", "real"},
	domain.ColumnTypeDouble:    {"double precision", "real", "numeric"},
	domain.ColumnTypeBoolean:   {"boolean"},
	domain.ColumnTypeText:      {"text", "character varying", "character"},
	domain.ColumnTypeTimestamp: {"timestamp with time zone", "timestamp without time zone"},
}

func checkCompatible(tableName string, existing map[string]string, incoming []domain.Column) error {
	var problems []string
	for _, col := range incoming {
		dataType, ok := existing[col.Name]
		if !ok {
			problems = append(problems, fmt.Sprintf("column %s does not exist", col.Name))
			continue
		}
		if !containsString(compatibleDataTypes[col.Type], dataType) {
			problems = append(problems, fmt.Sprintf("column %s is %s, incoming %s", col.Name, dataType, col.Type))
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s: %s", domain.ErrSchemaMismatch, tableName, strings.Join(problems, "; "))
	}
	return nil
}

func containsString(values []string, target string) bool {
	for _, value := range values {
		if value == target {
			return true
		}
	}
	return false
}
