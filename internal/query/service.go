package query

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/rpattn/salesingest/internal/db"
	"github.com/rpattn/salesingest/internal/domain"
)

// ErrEmptyStatement is returned when no SQL was submitted.
var ErrEmptyStatement = errors.New("statement is empty")

// Conn is the subset of a pgx pool the query box needs.
type Conn interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Connector hands out a connection on demand.
type Connector func(ctx context.Context) (Conn, error)

// WarehouseConnector adapts a lazily connected warehouse.
func WarehouseConnector(w *db.Warehouse) Connector {
	return func(ctx context.Context) (Conn, error) {
		conn, err := w.Conn(ctx)
		if err != nil {
			return nil, err
		}
		return conn.Pool, nil
	}
}

// Service runs ad-hoc statements against the warehouse. Statements are passed through
// verbatim and backend errors are returned unchanged.
type Service struct {
	connect Connector
}

// NewService creates a query service.
func NewService(connect Connector) *Service {
	return &Service{connect: connect}
}

// ResultSet is the materialized result of a statement.
type ResultSet struct {
	Columns      []string `json:"columns"`
	Rows         [][]any  `json:"rows"`
	Command      string   `json:"command"`
	RowsAffected int64    `json:"rows_affected"`
}

// Execute runs statement and collects every returned row.
func (s *Service) Execute(ctx context.Context, statement string) (ResultSet, error) {
	if strings.TrimSpace(statement) == "" {
		return ResultSet{}, ErrEmptyStatement
	}

	conn, err := s.connect(ctx)
	if err != nil {
		return ResultSet{}, fmt.Errorf("%w: %v", domain.ErrSinkUnavailable, err)
	}

	rows, err := conn.Query(ctx, statement)
	if err != nil {
		return ResultSet{}, err
	}
	defer rows.Close()

	result := ResultSet{Columns: []string{}, Rows: [][]any{}}
	for _, field := range rows.FieldDescriptions() {
		result.Columns = append(result.Columns, field.Name)
	}

	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return ResultSet{}, err
		}
		for i, value := range values {
			values[i] = normalizeValue(value)
		}
		result.Rows = append(result.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return ResultSet{}, err
	}

	tag := rows.CommandTag()
	result.Command = tag.String()
	result.RowsAffected = tag.RowsAffected()
	return result, nil
}

// normalizeValue turns pgx driver values into JSON and spreadsheet friendly ones.
func normalizeValue(value any) any {
	switch v := value.(type) {
	case pgtype.Numeric:
		f, err := v.Float64Value()
		if err != nil || !f.Valid {
			return nil
		}
		return finiteOrString(f.Float64)
	case [16]byte:
		return uuid.UUID(v).String()
	case []byte:
		return string(v)
	case float64:
		return finiteOrString(v)
	case float32:
		return finiteOrString(float64(v))
	default:
		return v
	}
}

// finiteOrString keeps finite floats and spells NaN and the infinities out, since JSON
// has no literal for them.
func finiteOrString(v float64) any {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return strconv.FormatFloat(v, 'g', -1, 64)
	}
	return v
}
