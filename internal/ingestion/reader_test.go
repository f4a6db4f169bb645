package ingestion

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/types"
	"github.com/xitongsys/parquet-go/writer"

	"github.com/rpattn/salesingest/internal/domain"
)

func TestParseCSVInfersColumnTypes(t *testing.T) {
	data := "\xEF\xBB\xBFproduct, quantity,unit_price,promo,note\n" +
		"pen,3,10.5,true,\n" +
		"\n" +
		"ink,0,2,false,\n" +
		"cap,1\n"

	table, err := parseCSV([]byte(data))
	if err != nil {
		t.Fatalf("parse returned error: %v", err)
	}

	wantColumns := []domain.Column{
		{Name: "product", Type: domain.ColumnTypeText},
		{Name: "quantity", Type: domain.ColumnTypeBigint},
		{Name: "unit_price", Type: domain.ColumnTypeDouble},
		{Name: "promo", Type: domain.ColumnTypeBoolean},
		{Name: "note", Type: domain.ColumnTypeText},
	}
	if diff := cmp.Diff(wantColumns, table.Columns); diff != "" {
		t.Fatalf("unexpected columns (-want +got):\n%s", diff)
	}

	wantRows := [][]any{
		{"pen", int64(3), 10.5, true, nil},
		{"ink", int64(0), 2.0, false, nil},
		{"cap", int64(1), nil, nil, nil},
	}
	if diff := cmp.Diff(wantRows, table.Rows); diff != "" {
		t.Fatalf("unexpected rows (-want +got):\n%s", diff)
	}
}

func TestSanitizeHeadersNamesBlankAndDuplicateColumns(t *testing.T) {
	got := sanitizeHeaders([]string{" quantity ", "", "quantity", "unit price"})
	want := []string{"quantity", "column_2", "quantity_2", "unit price"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("unexpected headers (-want +got):\n%s", diff)
	}
}

func TestParseCSVRejectsEmptyFile(t *testing.T) {
	if _, err := parseCSV([]byte("\n\n")); err == nil {
		t.Fatalf("expected error for empty csv")
	}
}

func TestParseJSONArrayKeepsKeyOrder(t *testing.T) {
	data := `[
		{"unit_price": 10.5, "quantity": 3, "meta": {"channel": "web"}},
		{"quantity": 2, "unit_price": 4, "region": "north"}
	]`

	table, err := parseJSON([]byte(data))
	if err != nil {
		t.Fatalf("parse returned error: %v", err)
	}

	wantColumns := []domain.Column{
		{Name: "unit_price", Type: domain.ColumnTypeDouble},
		{Name: "quantity", Type: domain.ColumnTypeBigint},
		{Name: "meta", Type: domain.ColumnTypeText},
		{Name: "region", Type: domain.ColumnTypeText},
	}
	if diff := cmp.Diff(wantColumns, table.Columns); diff != "" {
		t.Fatalf("unexpected columns (-want +got):\n%s", diff)
	}

	wantRows := [][]any{
		{10.5, int64(3), `{"channel":"web"}`, nil},
		{4.0, int64(2), nil, "north"},
	}
	if diff := cmp.Diff(wantRows, table.Rows); diff != "" {
		t.Fatalf("unexpected rows (-want +got):\n%s", diff)
	}
}

func TestParseJSONLines(t *testing.T) {
	data := "{\"quantity\": 1, \"unit_price\": 2}\n{\"quantity\": 3, \"unit_price\": 4}\n"

	table, err := parseJSON([]byte(data))
	if err != nil {
		t.Fatalf("parse returned error: %v", err)
	}
	if len(table.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(table.Rows))
	}
	if diff := cmp.Diff([]string{"quantity", "unit_price"}, table.ColumnNames()); diff != "" {
		t.Fatalf("unexpected columns (-want +got):\n%s", diff)
	}
}

func TestParseJSONRejectsMalformedInput(t *testing.T) {
	tests := map[string]string{
		"scalar":       `42`,
		"truncated":    `[{"quantity": 1`,
		"array values": `[[1, 2]]`,
		"empty array":  `[]`,
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := parseJSON([]byte(data)); err == nil {
				t.Fatalf("expected error for %s", data)
			}
		})
	}
}

type parquetSale struct {
	Product   string  `parquet:"name=product, type=BYTE_ARRAY, convertedtype=UTF8"`
	Quantity  int32   `parquet:"name=quantity, type=INT32"`
	UnitPrice float64 `parquet:"name=unit_price, type=DOUBLE"`
}

type parquetTypedSale struct {
	Quantity  *int64 `parquet:"name=quantity, type=INT64, repetitiontype=OPTIONAL"`
	UnitPrice string `parquet:"name=unit_price, type=FIXED_LEN_BYTE_ARRAY, convertedtype=DECIMAL, scale=2, precision=10, length=12"`
	Discount  int64  `parquet:"name=discount, type=INT64, convertedtype=DECIMAL, scale=2, precision=18"`
	SoldOn    int32  `parquet:"name=sold_on, type=INT32, convertedtype=DATE"`
	SoldAt    string `parquet:"name=sold_at, type=INT96"`
}

func writeParquetFile(t *testing.T, path string, schema any, rows ...any) {
	t.Helper()

	fw, err := local.NewLocalFileWriter(path)
	if err != nil {
		t.Fatalf("failed to create parquet file: %v", err)
	}
	pw, err := writer.NewParquetWriter(fw, schema, 1)
	if err != nil {
		t.Fatalf("failed to create parquet writer: %v", err)
	}
	for _, row := range rows {
		if err := pw.Write(row); err != nil {
			t.Fatalf("failed to write parquet row: %v", err)
		}
	}
	if err := pw.WriteStop(); err != nil {
		t.Fatalf("failed to finish parquet file: %v", err)
	}
	if err := fw.Close(); err != nil {
		t.Fatalf("failed to close parquet file: %v", err)
	}
}

func TestReadTableParquet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sales.parquet")
	writeParquetFile(t, path, new(parquetSale),
		parquetSale{Product: "pen", Quantity: 3, UnitPrice: 10.5},
		parquetSale{Product: "ink", Quantity: 2, UnitPrice: 4},
	)

	table, err := ReadTable(path, domain.FileFormatParquet)
	if err != nil {
		t.Fatalf("read returned error: %v", err)
	}

	wantColumns := []domain.Column{
		{Name: "product", Type: domain.ColumnTypeText},
		{Name: "quantity", Type: domain.ColumnTypeBigint},
		{Name: "unit_price", Type: domain.ColumnTypeDouble},
	}
	if diff := cmp.Diff(wantColumns, table.Columns); diff != "" {
		t.Fatalf("unexpected columns (-want +got):\n%s", diff)
	}
	wantRows := [][]any{
		{"pen", int64(3), 10.5},
		{"ink", int64(2), 4.0},
	}
	if diff := cmp.Diff(wantRows, table.Rows); diff != "" {
		t.Fatalf("unexpected rows (-want +got):\n%s", diff)
	}

	derived, err := DeriveRevenue(table, DefaultRevenueColumns())
	if err != nil {
		t.Fatalf("derive returned error: %v", err)
	}
	if diff := cmp.Diff([]any{31.5, 8.0}, columnValues(t, derived, TotalSaleColumn)); diff != "" {
		t.Fatalf("unexpected totals (-want +got):\n%s", diff)
	}
}

func TestReadTableParquetOptionalAndLogicalTypes(t *testing.T) {
	soldOn := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	soldAt := time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)
	quantity := int64(3)

	path := filepath.Join(t.TempDir(), "typed.parquet")
	writeParquetFile(t, path, new(parquetTypedSale),
		parquetTypedSale{
			Quantity:  &quantity,
			UnitPrice: types.StrIntToBinary("1050", "BigEndian", 12, true),
			Discount:  25,
			SoldOn:    int32(soldOn.Unix() / secondsPerDay),
			SoldAt:    types.TimeToINT96(soldAt),
		},
		parquetTypedSale{
			Quantity:  nil,
			UnitPrice: types.StrIntToBinary("-125", "BigEndian", 12, true),
			Discount:  0,
			SoldOn:    int32(soldOn.Unix() / secondsPerDay),
			SoldAt:    types.TimeToINT96(soldAt),
		},
	)

	table, err := ReadTable(path, domain.FileFormatParquet)
	if err != nil {
		t.Fatalf("read returned error: %v", err)
	}

	wantColumns := []domain.Column{
		{Name: "quantity", Type: domain.ColumnTypeBigint},
		{Name: "unit_price", Type: domain.ColumnTypeDouble},
		{Name: "discount", Type: domain.ColumnTypeDouble},
		{Name: "sold_on", Type: domain.ColumnTypeTimestamp},
		{Name: "sold_at", Type: domain.ColumnTypeTimestamp},
	}
	if diff := cmp.Diff(wantColumns, table.Columns); diff != "" {
		t.Fatalf("unexpected columns (-want +got):\n%s", diff)
	}
	wantRows := [][]any{
		{int64(3), 10.5, 0.25, soldOn, soldAt},
		{nil, -1.25, 0.0, soldOn, soldAt},
	}
	if diff := cmp.Diff(wantRows, table.Rows); diff != "" {
		t.Fatalf("unexpected rows (-want +got):\n%s", diff)
	}

	derived, err := DeriveRevenue(table, DefaultRevenueColumns())
	if err != nil {
		t.Fatalf("derive returned error: %v", err)
	}
	if diff := cmp.Diff([]any{31.5, nil}, columnValues(t, derived, TotalSaleColumn)); diff != "" {
		t.Fatalf("unexpected totals (-want +got):\n%s", diff)
	}
}

func TestDecimalFromBytes(t *testing.T) {
	tests := []struct {
		raw   []byte
		scale int32
		want  string
	}{
		{[]byte{0x04, 0x1a}, 2, "10.5"},
		{[]byte{0x00, 0x00, 0x04, 0x1a}, 2, "10.5"},
		{[]byte{0xff, 0x83}, 2, "-1.25"},
		{[]byte{0x07}, 0, "7"},
	}
	for _, tt := range tests {
		if got := decimalFromBytes(tt.raw, tt.scale).String(); got != tt.want {
			t.Fatalf("decimalFromBytes(%x, %d) = %s, want %s", tt.raw, tt.scale, got, tt.want)
		}
	}
}

func TestReadTableUnsupportedFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(path, []byte("hello"), 0o644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}
	if _, err := ReadTable(path, domain.FileFormatUnsupported); !errors.Is(err, domain.ErrUnsupportedFormat) {
		t.Fatalf("expected unsupported format, got %v", err)
	}
}
