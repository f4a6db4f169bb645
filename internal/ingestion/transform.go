package ingestion

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/rpattn/salesingest/internal/domain"
)

// TotalSaleColumn is the derived column appended by DeriveRevenue.
const TotalSaleColumn = "total_sale"

// RevenueColumns names the source columns multiplied into total_sale.
type RevenueColumns struct {
	Quantity  string
	UnitPrice string
}

// DefaultRevenueColumns returns the column names used when none are configured.
func DefaultRevenueColumns() RevenueColumns {
	return RevenueColumns{Quantity: "quantity", UnitPrice: "unit_price"}
}

// DeriveRevenue returns a copy of table with total_sale = quantity * unit_price appended.
// The quantity and unit price columns are promoted to double so every file yields the
// same sink schema whatever its first values look like. A NULL in either input yields
// a NULL total.
func DeriveRevenue(table domain.Table, cols RevenueColumns) (domain.Table, error) {
	qtyIdx := table.ColumnIndex(cols.Quantity)
	if qtyIdx < 0 {
		return domain.Table{}, fmt.Errorf("%w: %s", domain.ErrMissingColumn, cols.Quantity)
	}
	priceIdx := table.ColumnIndex(cols.UnitPrice)
	if priceIdx < 0 {
		return domain.Table{}, fmt.Errorf("%w: %s", domain.ErrMissingColumn, cols.UnitPrice)
	}
	if table.ColumnIndex(TotalSaleColumn) >= 0 {
		return domain.Table{}, fmt.Errorf("source already has a %s column", TotalSaleColumn)
	}

	promoted := domain.Table{
		Columns: make([]domain.Column, len(table.Columns)),
		Rows:    make([][]any, len(table.Rows)),
	}
	copy(promoted.Columns, table.Columns)
	promoted.Columns[qtyIdx].Type = domain.ColumnTypeDouble
	promoted.Columns[priceIdx].Type = domain.ColumnTypeDouble

	totals := make([]any, len(table.Rows))
	for i, row := range table.Rows {
		out := make([]any, len(row))
		copy(out, row)
		promoted.Rows[i] = out

		qty, qtyOK, err := toDecimal(row[qtyIdx])
		if err != nil {
			return domain.Table{}, fmt.Errorf("%w: row %d column %s: %v", domain.ErrInvalidValue, i+1, cols.Quantity, err)
		}
		price, priceOK, err := toDecimal(row[priceIdx])
		if err != nil {
			return domain.Table{}, fmt.Errorf("%w: row %d column %s: %v", domain.ErrInvalidValue, i+1, cols.UnitPrice, err)
		}

		out[qtyIdx], out[priceIdx] = nil, nil
		if qtyOK {
			out[qtyIdx] = qty.InexactFloat64()
		}
		if priceOK {
			out[priceIdx] = price.InexactFloat64()
		}
		if qtyOK && priceOK {
			totals[i] = qty.Mul(price).InexactFloat64()
		}
	}

	return promoted.WithColumn(domain.Column{Name: TotalSaleColumn, Type: domain.ColumnTypeDouble}, totals)
}

// toDecimal converts a cell to a decimal. ok is false for NULL cells.
func toDecimal(value any) (decimal.Decimal, bool, error) {
	switch v := value.(type) {
	case nil:
		return decimal.Decimal{}, false, nil
	case int64:
		return decimal.NewFromInt(v), true, nil
	case float64:
		return decimal.NewFromFloat(v), true, nil
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(v))
		if err != nil {
			return decimal.Decimal{}, false, fmt.Errorf("%q is not numeric", v)
		}
		return d, true, nil
	default:
		return decimal.Decimal{}, false, fmt.Errorf("%v is not numeric", v)
	}
}
