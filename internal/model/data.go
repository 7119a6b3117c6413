package model

import (
	"strconv"
	"time"
)

// Column names shared by the cleaner, aggregator and writer
const (
	ColSegment         = "segment"
	ColCountry         = "country"
	ColUnitsSold       = "units_sold"
	ColGrossSales      = "gross_sales"
	ColDate            = "date"
	ColSaleYear        = "sale_year"
	ColSaleMonth       = "sale_month"
	ColTotalUnitsSold  = "total_units_sold"
	ColTotalGrossSales = "total_gross_sales"
)

// CoreColumns must always be part of the projection
var CoreColumns = []string{ColSegment, ColCountry, ColUnitsSold, ColGrossSales, ColDate}

// RawTable is the concatenation of every loaded extract. Missing cells are "".
type RawTable struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// ColumnIndex returns the position of name in Columns, or -1
func (t *RawTable) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// CleanRecord is one validated sales row
type CleanRecord struct {
	Segment    string            `json:"segment"`
	Country    string            `json:"country"`
	UnitsSold  float64           `json:"units_sold"`
	GrossSales float64           `json:"gross_sales"`
	Date       time.Time         `json:"date"`
	SaleYear   int               `json:"sale_year"`
	SaleMonth  int               `json:"sale_month"`
	Extra      map[string]string `json:"extra,omitempty"`
}

// Dimension returns the value of a groupable column. Calendar parts are ints,
// everything else is a string.
func (r CleanRecord) Dimension(name string) (any, bool) {
	switch name {
	case ColSegment:
		return r.Segment, true
	case ColCountry:
		return r.Country, true
	case ColSaleYear:
		return r.SaleYear, true
	case ColSaleMonth:
		return r.SaleMonth, true
	case ColDate:
		return r.Date.Format(time.DateOnly), true
	}
	v, ok := r.Extra[name]
	return v, ok
}

// CleanReport counts what the cleaner kept and dropped
type CleanReport struct {
	InputRows      int `json:"input_rows"`
	DroppedMissing int `json:"dropped_missing"`
	DroppedBadDate int `json:"dropped_bad_date"`
	OutputRows     int `json:"output_rows"`
}

// CleanSet is the cleaner's output
type CleanSet struct {
	Columns []string      `json:"columns"`
	Records []CleanRecord `json:"records"`
	Report  CleanReport   `json:"report"`
}

// Table renders the clean set back into raw form, in projection order.
// Cleaning the result again yields the same records.
func (s *CleanSet) Table() *RawTable {
	t := &RawTable{Columns: append([]string(nil), s.Columns...)}
	for _, rec := range s.Records {
		row := make([]string, len(s.Columns))
		for i, col := range s.Columns {
			switch col {
			case ColSegment:
				row[i] = rec.Segment
			case ColCountry:
				row[i] = rec.Country
			case ColUnitsSold:
				row[i] = strconv.FormatFloat(rec.UnitsSold, 'f', -1, 64)
			case ColGrossSales:
				row[i] = strconv.FormatFloat(rec.GrossSales, 'f', -1, 64)
			case ColDate:
				row[i] = rec.Date.Format(time.DateOnly)
			default:
				row[i] = rec.Extra[col]
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// AggregateRecord is one group. Key is aligned with AggregateSet.GroupBy.
type AggregateRecord struct {
	Key             []any   `json:"key"`
	TotalUnitsSold  float64 `json:"total_units_sold"`
	TotalGrossSales float64 `json:"total_gross_sales"`
}

// AggregateSet is the aggregator's output
type AggregateSet struct {
	GroupBy []string          `json:"group_by"`
	Records []AggregateRecord `json:"records"`
}
