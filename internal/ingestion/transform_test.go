package ingestion

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/rpattn/salesingest/internal/domain"
)

func salesTable(rows ...[]any) domain.Table {
	return domain.Table{
		Columns: []domain.Column{
			{Name: "product", Type: domain.ColumnTypeText},
			{Name: "quantity", Type: domain.ColumnTypeBigint},
			{Name: "unit_price", Type: domain.ColumnTypeDouble},
		},
		Rows: rows,
	}
}

func TestDeriveRevenueAppendsTotalSale(t *testing.T) {
	input := salesTable(
		[]any{"pen", int64(3), 10.5},
		[]any{"ink", int64(2), 0.1},
	)

	got, err := DeriveRevenue(input, DefaultRevenueColumns())
	if err != nil {
		t.Fatalf("derive returned error: %v", err)
	}

	want := domain.Table{
		Columns: []domain.Column{
			{Name: "product", Type: domain.ColumnTypeText},
			{Name: "quantity", Type: domain.ColumnTypeDouble},
			{Name: "unit_price", Type: domain.ColumnTypeDouble},
			{Name: "total_sale", Type: domain.ColumnTypeDouble},
		},
		Rows: [][]any{
			{"pen", 3.0, 10.5, 31.5},
			{"ink", 2.0, 0.1, 0.2},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("unexpected table (-want +got):\n%s", diff)
	}

	if len(input.Columns) != 3 || len(input.Rows[0]) != 3 {
		t.Fatalf("input table was modified: %+v", input)
	}
	if input.Columns[1].Type != domain.ColumnTypeBigint || input.Rows[0][1] != int64(3) {
		t.Fatalf("input quantity column was modified: %+v", input)
	}
}

func TestDeriveRevenueSchemaDoesNotDependOnPriceValues(t *testing.T) {
	whole, err := parseCSV([]byte("quantity,unit_price\n2,5\n"))
	if err != nil {
		t.Fatalf("parse returned error: %v", err)
	}
	cents, err := parseCSV([]byte("quantity,unit_price\n1,10.5\n"))
	if err != nil {
		t.Fatalf("parse returned error: %v", err)
	}
	if whole.Columns[1].Type == cents.Columns[1].Type {
		t.Fatalf("fixtures should infer different unit_price types")
	}

	first, err := DeriveRevenue(whole, DefaultRevenueColumns())
	if err != nil {
		t.Fatalf("derive returned error: %v", err)
	}
	second, err := DeriveRevenue(cents, DefaultRevenueColumns())
	if err != nil {
		t.Fatalf("derive returned error: %v", err)
	}

	if diff := cmp.Diff(first.Columns, second.Columns); diff != "" {
		t.Fatalf("derived schemas differ (-first +second):\n%s", diff)
	}
	if diff := cmp.Diff([]any{2.0, 5.0, 10.0}, first.Rows[0]); diff != "" {
		t.Fatalf("unexpected first row (-want +got):\n%s", diff)
	}
}

func TestDeriveRevenueKeepsNulls(t *testing.T) {
	input := salesTable(
		[]any{"pen", nil, 10.5},
		[]any{"ink", int64(2), nil},
	)

	got, err := DeriveRevenue(input, DefaultRevenueColumns())
	if err != nil {
		t.Fatalf("derive returned error: %v", err)
	}
	for i, row := range got.Rows {
		if row[3] != nil {
			t.Fatalf("row %d: expected nil total, got %v", i, row[3])
		}
	}
}

func TestDeriveRevenueParsesNumericText(t *testing.T) {
	input := domain.Table{
		Columns: []domain.Column{
			{Name: "quantity", Type: domain.ColumnTypeText},
			{Name: "unit_price", Type: domain.ColumnTypeText},
		},
		Rows: [][]any{{" 4 ", "1.25"}},
	}

	got, err := DeriveRevenue(input, DefaultRevenueColumns())
	if err != nil {
		t.Fatalf("derive returned error: %v", err)
	}
	if got.Rows[0][2] != 5.0 {
		t.Fatalf("expected 5, got %v", got.Rows[0][2])
	}
}

func TestDeriveRevenueErrors(t *testing.T) {
	tests := []struct {
		name  string
		table domain.Table
		cols  RevenueColumns
		want  error
	}{
		{
			name:  "missing quantity",
			table: salesTable([]any{"pen", int64(1), 1.0}),
			cols:  RevenueColumns{Quantity: "qty", UnitPrice: "unit_price"},
			want:  domain.ErrMissingColumn,
		},
		{
			name:  "missing unit price",
			table: salesTable([]any{"pen", int64(1), 1.0}),
			cols:  RevenueColumns{Quantity: "quantity", UnitPrice: "price"},
			want:  domain.ErrMissingColumn,
		},
		{
			name: "non numeric quantity",
			table: domain.Table{
				Columns: []domain.Column{
					{Name: "quantity", Type: domain.ColumnTypeText},
					{Name: "unit_price", Type: domain.ColumnTypeDouble},
				},
				Rows: [][]any{{"three", 1.0}},
			},
			cols: DefaultRevenueColumns(),
			want: domain.ErrInvalidValue,
		},
		{
			name: "boolean price",
			table: domain.Table{
				Columns: []domain.Column{
					{Name: "quantity", Type: domain.ColumnTypeBigint},
					{Name: "unit_price", Type: domain.ColumnTypeBoolean},
				},
				Rows: [][]any{{int64(1), true}},
			},
			cols: DefaultRevenueColumns(),
			want: domain.ErrInvalidValue,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DeriveRevenue(tt.table, tt.cols)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestDeriveRevenueRejectsExistingTotal(t *testing.T) {
	input := domain.Table{
		Columns: []domain.Column{
			{Name: "quantity", Type: domain.ColumnTypeBigint},
			{Name: "unit_price", Type: domain.ColumnTypeDouble},
			{Name: "total_sale", Type: domain.ColumnTypeDouble},
		},
		Rows: [][]any{{int64(1), 1.0, 1.0}},
	}
	if _, err := DeriveRevenue(input, DefaultRevenueColumns()); err == nil {
		t.Fatalf("expected error for existing total_sale column")
	}
}
