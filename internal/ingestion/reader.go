package ingestion

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"math/big"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/reader"
	"github.com/xitongsys/parquet-go/types"

	"github.com/rpattn/salesingest/internal/domain"
)

var byteOrderMark = []byte{0xEF, 0xBB, 0xBF}

// ReadTable loads the file at path into memory according to format.
func ReadTable(path string, format domain.FileFormat) (domain.Table, error) {
	switch format {
	case domain.FileFormatCSV:
		payload, err := os.ReadFile(path)
		if err != nil {
			return domain.Table{}, fmt.Errorf("failed to read %s: %w", path, err)
		}
		return parseCSV(payload)
	case domain.FileFormatJSON:
		payload, err := os.ReadFile(path)
		if err != nil {
			return domain.Table{}, fmt.Errorf("failed to read %s: %w", path, err)
		}
		return parseJSON(payload)
	case domain.FileFormatParquet:
		return readParquet(path)
	default:
		return domain.Table{}, domain.ErrUnsupportedFormat
	}
}

func parseCSV(payload []byte) (domain.Table, error) {
	reader := bufio.NewReader(bytes.NewReader(payload))
	if prefix, err := reader.Peek(len(byteOrderMark)); err == nil && bytes.Equal(prefix, byteOrderMark) {
		_, _ = reader.Discard(len(byteOrderMark))
	}

	csvReader := csv.NewReader(reader)
	csvReader.TrimLeadingSpace = true
	csvReader.FieldsPerRecord = -1

	records, err := csvReader.ReadAll()
	if err != nil {
		return domain.Table{}, fmt.Errorf("failed to read csv: %w", err)
	}

	headers, rows, err := normalizeRecords(records)
	if err != nil {
		return domain.Table{}, err
	}

	table := domain.Table{
		Columns: make([]domain.Column, len(headers)),
		Rows:    make([][]any, len(rows)),
	}
	for i := range rows {
		table.Rows[i] = make([]any, len(headers))
	}

	for col, header := range headers {
		colType := profileColumn(col, rows)
		table.Columns[col] = domain.Column{Name: header, Type: colType}
		for i, row := range rows {
			table.Rows[i][col] = coerceCell(colType, strings.TrimSpace(row[col]))
		}
	}

	return table, nil
}

// normalizeRecords takes the first non-empty record as the header and pads or trims
// every data row to the header width.
func normalizeRecords(records [][]string) ([]string, [][]string, error) {
	if len(records) == 0 {
		return nil, nil, errors.New("no rows found in file")
	}

	var headerRow []string
	var dataRows [][]string
	for _, row := range records {
		if len(cleanRow(row)) == 0 {
			continue
		}
		if headerRow == nil {
			headerRow = row
			continue
		}
		dataRows = append(dataRows, row)
	}
	if headerRow == nil {
		return nil, nil, errors.New("header row could not be detected")
	}

	headers := sanitizeHeaders(headerRow)
	for i := range dataRows {
		dataRows[i] = padRow(dataRows[i], len(headers))
	}

	return headers, dataRows, nil
}

func cleanRow(row []string) []string {
	var cleaned []string
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			cleaned = append(cleaned, cell)
		}
	}
	return cleaned
}

// sanitizeHeaders trims header cells, names blank ones and de-duplicates repeats.
// Names are otherwise kept verbatim so required columns match exactly.
func sanitizeHeaders(raw []string) []string {
	headers := make([]string, len(raw))
	seen := make(map[string]int)

	for idx, value := range raw {
		name := strings.TrimSpace(value)
		if name == "" {
			name = fmt.Sprintf("column_%d", idx+1)
		}

		base := name
		count := seen[base]
		if count > 0 {
			name = fmt.Sprintf("%s_%d", base, count+1)
		}
		seen[base] = count + 1

		headers[idx] = name
	}

	return headers
}

func padRow(row []string, length int) []string {
	if len(row) >= length {
		return row[:length]
	}
	padded := make([]string, length)
	copy(padded, row)
	return padded
}

// profileColumn picks the narrowest type every non-empty cell fits. Integers are tested
// before booleans so 0/1 quantity columns stay numeric.
func profileColumn(col int, rows [][]string) domain.ColumnType {
	isInt := true
	isFloat := true
	isBool := true
	hasValue := false

	for _, row := range rows {
		value := strings.TrimSpace(row[col])
		if value == "" {
			continue
		}
		hasValue = true

		if !looksLikeInt(value) {
			isInt = false
		}
		if !looksLikeFloat(value) {
			isFloat = false
		}
		if !looksLikeBool(value) {
			isBool = false
		}
	}

	switch {
	case !hasValue:
		return domain.ColumnTypeText
	case isInt:
		return domain.ColumnTypeBigint
	case isFloat:
		return domain.ColumnTypeDouble
	case isBool:
		return domain.ColumnTypeBoolean
	default:
		return domain.ColumnTypeText
	}
}

func looksLikeInt(value string) bool {
	_, err := strconv.ParseInt(value, 10, 64)
	return err == nil
}

func looksLikeFloat(value string) bool {
	f, err := strconv.ParseFloat(value, 64)
	return err == nil && !math.IsNaN(f) && !math.IsInf(f, 0)
}

func looksLikeBool(value string) bool {
	switch strings.ToLower(value) {
	case "true", "false":
		return true
	}
	return false
}

func coerceCell(colType domain.ColumnType, raw string) any {
	if raw == "" {
		return nil
	}
	switch colType {
	case domain.ColumnTypeBigint:
		i, _ := strconv.ParseInt(raw, 10, 64)
		return i
	case domain.ColumnTypeDouble:
		f, _ := strconv.ParseFloat(raw, 64)
		return f
	case domain.ColumnTypeBoolean:
		return strings.EqualFold(raw, "true")
	default:
		return raw
	}
}

// parseJSON accepts either an array of objects or newline-delimited objects. Column
// order follows the first appearance of each key.
func parseJSON(payload []byte) (domain.Table, error) {
	payload = bytes.TrimPrefix(payload, byteOrderMark)
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()

	var (
		order   []string
		known   = make(map[string]bool)
		records []map[string]any
	)
	collect := func() error {
		record, keys, err := readJSONObject(dec)
		if err != nil {
			return err
		}
		for _, key := range keys {
			if !known[key] {
				known[key] = true
				order = append(order, key)
			}
		}
		records = append(records, record)
		return nil
	}

	tok, err := dec.Token()
	if err != nil {
		return domain.Table{}, fmt.Errorf("failed to read json: %w", err)
	}
	switch tok {
	case json.Delim('['):
		for dec.More() {
			if err := expectDelim(dec, '{'); err != nil {
				return domain.Table{}, err
			}
			if err := collect(); err != nil {
				return domain.Table{}, err
			}
		}
		if err := expectDelim(dec, ']'); err != nil {
			return domain.Table{}, err
		}
	case json.Delim('{'):
		if err := collect(); err != nil {
			return domain.Table{}, err
		}
		for {
			err := expectDelim(dec, '{')
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				return domain.Table{}, err
			}
			if err := collect(); err != nil {
				return domain.Table{}, err
			}
		}
	default:
		return domain.Table{}, fmt.Errorf("failed to read json: expected an array of objects, got %v", tok)
	}

	if len(order) == 0 {
		return domain.Table{}, errors.New("no columns found in json")
	}

	columns := make([][]any, len(order))
	for col, key := range order {
		columns[col] = make([]any, len(records))
		for i, record := range records {
			columns[col][i] = record[key]
		}
	}
	return buildTable(order, columns), nil
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return err
		}
		return fmt.Errorf("failed to read json: %w", err)
	}
	if tok != want {
		return fmt.Errorf("failed to read json: expected %v, got %v", want, tok)
	}
	return nil
}

// readJSONObject reads the members of an object whose opening brace was consumed.
func readJSONObject(dec *json.Decoder) (map[string]any, []string, error) {
	record := make(map[string]any)
	var keys []string
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read json: %w", err)
		}
		key, ok := tok.(string)
		if !ok {
			return nil, nil, fmt.Errorf("failed to read json: expected object key, got %v", tok)
		}
		var value any
		if err := dec.Decode(&value); err != nil {
			return nil, nil, fmt.Errorf("failed to read json value for %s: %w", key, err)
		}
		if _, dup := record[key]; !dup {
			keys = append(keys, key)
		}
		record[key] = normalizeJSONValue(value)
	}
	if err := expectDelim(dec, '}'); err != nil {
		return nil, nil, err
	}
	return record, keys, nil
}

func normalizeJSONValue(value any) any {
	switch v := value.(type) {
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return i
		}
		if f, err := v.Float64(); err == nil {
			return f
		}
		return v.String()
	case map[string]any, []any:
		encoded, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(encoded)
	default:
		return v
	}
}

func readParquet(path string) (domain.Table, error) {
	fr, err := local.NewLocalFileReader(path)
	if err != nil {
		return domain.Table{}, fmt.Errorf("failed to open parquet %s: %w", path, err)
	}
	defer fr.Close()

	pr, err := reader.NewParquetColumnReader(fr, 1)
	if err != nil {
		return domain.Table{}, fmt.Errorf("failed to read parquet footer: %w", err)
	}
	defer pr.ReadStop()

	elements := pr.Footer.GetSchema()
	if len(elements) < 2 {
		return domain.Table{}, errors.New("parquet file has no columns")
	}

	numRows := pr.GetNumRows()
	names := make([]string, 0, len(elements)-1)
	columns := make([][]any, 0, len(elements)-1)
	for idx, element := range elements[1:] {
		// The column reader renames schema elements to Go identifiers; the
		// schema handler keeps the names written in the file.
		name := pr.SchemaHandler.GetExName(idx + 1)
		if element.GetNumChildren() > 0 {
			return domain.Table{}, fmt.Errorf("nested parquet column %s is not supported", name)
		}

		values, _, _, err := pr.ReadColumnByIndex(int64(idx), numRows)
		if err != nil {
			return domain.Table{}, fmt.Errorf("failed to read parquet column %s: %w", name, err)
		}
		if int64(len(values)) != numRows {
			return domain.Table{}, fmt.Errorf("parquet column %s has %d values for %d rows", name, len(values), numRows)
		}

		normalized := make([]any, len(values))
		for i, value := range values {
			normalized[i], err = normalizeParquetValue(element, value)
			if err != nil {
				return domain.Table{}, fmt.Errorf("parquet column %s row %d: %w", name, i+1, err)
			}
		}
		names = append(names, name)
		columns = append(columns, normalized)
	}

	return buildTable(names, columns), nil
}

// normalizeParquetValue maps a physical parquet value to int64, float64, bool, string
// or time.Time, applying DECIMAL, DATE and TIMESTAMP annotations.
func normalizeParquetValue(element *parquet.SchemaElement, value any) (any, error) {
	if value == nil {
		return nil, nil
	}

	scale, isDecimal := parquetDecimalScale(element)
	converted := parquet.ConvertedType(-1)
	if element.IsSetConvertedType() {
		converted = element.GetConvertedType()
	}

	switch v := value.(type) {
	case int32:
		switch {
		case isDecimal:
			return decimal.New(int64(v), -scale).InexactFloat64(), nil
		case converted == parquet.ConvertedType_DATE:
			return time.Unix(int64(v)*secondsPerDay, 0).UTC(), nil
		}
		return int64(v), nil
	case int64:
		switch {
		case isDecimal:
			return decimal.New(v, -scale).InexactFloat64(), nil
		case converted == parquet.ConvertedType_TIMESTAMP_MILLIS:
			return time.UnixMilli(v).UTC(), nil
		case converted == parquet.ConvertedType_TIMESTAMP_MICROS:
			return time.UnixMicro(v).UTC(), nil
		}
		return v, nil
	case float32:
		return float64(v), nil
	case float64, bool:
		return v, nil
	case string:
		// BYTE_ARRAY, FIXED_LEN_BYTE_ARRAY and INT96 values all arrive as strings.
		switch {
		case element.GetType() == parquet.Type_INT96:
			if len(v) != 12 {
				return nil, fmt.Errorf("int96 value has %d bytes", len(v))
			}
			return types.INT96ToTime(v), nil
		case isDecimal:
			return decimalFromBytes([]byte(v), scale).InexactFloat64(), nil
		}
		return v, nil
	case []byte:
		return string(v), nil
	default:
		return fmt.Sprint(v), nil
	}
}

const secondsPerDay = 24 * 60 * 60

func parquetDecimalScale(element *parquet.SchemaElement) (int32, bool) {
	if element.IsSetConvertedType() && element.GetConvertedType() == parquet.ConvertedType_DECIMAL {
		return element.GetScale(), true
	}
	if element.IsSetLogicalType() && element.GetLogicalType().IsSetDECIMAL() {
		return element.GetLogicalType().GetDECIMAL().GetScale(), true
	}
	return 0, false
}

// decimalFromBytes decodes a big-endian two's complement unscaled value.
func decimalFromBytes(raw []byte, scale int32) decimal.Decimal {
	unscaled := new(big.Int).SetBytes(raw)
	if len(raw) > 0 && raw[0]&0x80 != 0 {
		unscaled.Sub(unscaled, new(big.Int).Lsh(big.NewInt(1), uint(len(raw)*8)))
	}
	return decimal.NewFromBigInt(unscaled, -scale)
}

// buildTable infers one type per column from already typed values and converts cells
// that do not fit the chosen type.
func buildTable(names []string, columns [][]any) domain.Table {
	rowCount := 0
	if len(columns) > 0 {
		rowCount = len(columns[0])
	}

	table := domain.Table{
		Columns: make([]domain.Column, len(names)),
		Rows:    make([][]any, rowCount),
	}
	for i := range table.Rows {
		table.Rows[i] = make([]any, len(names))
	}

	for col, name := range names {
		colType := inferValueType(columns[col])
		table.Columns[col] = domain.Column{Name: name, Type: colType}
		for i, value := range columns[col] {
			table.Rows[i][col] = convertValue(colType, value)
		}
	}
	return table
}

func inferValueType(values []any) domain.ColumnType {
	var ints, floats, bools, times, others int
	for _, value := range values {
		switch value.(type) {
		case nil:
		case int64:
			ints++
		case float64:
			floats++
		case bool:
			bools++
		case time.Time:
			times++
		default:
			others++
		}
	}

	switch {
	case others > 0:
		return domain.ColumnTypeText
	case times > 0 && ints+floats+bools > 0:
		return domain.ColumnTypeText
	case times > 0:
		return domain.ColumnTypeTimestamp
	case bools > 0 && ints+floats > 0:
		return domain.ColumnTypeText
	case bools > 0:
		return domain.ColumnTypeBoolean
	case floats > 0:
		return domain.ColumnTypeDouble
	case ints > 0:
		return domain.ColumnTypeBigint
	default:
		return domain.ColumnTypeText
	}
}

func convertValue(colType domain.ColumnType, value any) any {
	if value == nil {
		return nil
	}
	switch colType {
	case domain.ColumnTypeDouble:
		if i, ok := value.(int64); ok {
			return float64(i)
		}
		return value
	case domain.ColumnTypeText:
		switch v := value.(type) {
		case string:
			return v
		case time.Time:
			return v.UTC().Format(time.RFC3339Nano)
		}
		return fmt.Sprint(value)
	default:
		return value
	}
}
