// Package columnar serializes aggregate sets with Apache Arrow.
package columnar

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/apache/arrow/go/v12/arrow"
	"github.com/apache/arrow/go/v12/arrow/array"
	arrowcsv "github.com/apache/arrow/go/v12/arrow/csv"
	"github.com/apache/arrow/go/v12/arrow/memory"
	"github.com/apache/arrow/go/v12/parquet"
	"github.com/apache/arrow/go/v12/parquet/compress"
	"github.com/apache/arrow/go/v12/parquet/pqarrow"

	"go-cloud-etl/internal/model"
)

// Supported output formats
const (
	FormatParquet = "parquet"
	FormatCSV     = "csv"
)

// Formats lists every format Encode accepts
var Formats = []string{FormatParquet, FormatCSV}

// Schema returns the arrow schema for an aggregate grouped by groupBy.
// Calendar parts are int64, other keys utf8, totals float64.
func Schema(groupBy []string) *arrow.Schema {
	fields := make([]arrow.Field, 0, len(groupBy)+2)
	for _, name := range groupBy {
		fields = append(fields, arrow.Field{Name: name, Type: keyType(name)})
	}
	fields = append(fields,
		arrow.Field{Name: model.ColTotalUnitsSold, Type: arrow.PrimitiveTypes.Float64},
		arrow.Field{Name: model.ColTotalGrossSales, Type: arrow.PrimitiveTypes.Float64},
	)
	return arrow.NewSchema(fields, nil)
}

func keyType(name string) arrow.DataType {
	switch name {
	case model.ColSaleYear, model.ColSaleMonth:
		return arrow.PrimitiveTypes.Int64
	default:
		return arrow.BinaryTypes.String
	}
}

// Record builds one arrow record holding the whole aggregate. The caller
// must Release it.
func Record(mem memory.Allocator, set *model.AggregateSet) (arrow.Record, error) {
	schema := Schema(set.GroupBy)
	b := array.NewRecordBuilder(mem, schema)
	defer b.Release()

	n := len(set.GroupBy)
	for row, rec := range set.Records {
		if len(rec.Key) != n {
			return nil, fmt.Errorf("row %d: key has %d values, want %d", row, len(rec.Key), n)
		}
		for i, v := range rec.Key {
			switch fb := b.Field(i).(type) {
			case *array.Int64Builder:
				iv, ok := v.(int)
				if !ok {
					return nil, fmt.Errorf("row %d: %s is %T, want int", row, set.GroupBy[i], v)
				}
				fb.Append(int64(iv))
			case *array.StringBuilder:
				fb.Append(fmt.Sprint(v))
			}
		}
		b.Field(n).(*array.Float64Builder).Append(rec.TotalUnitsSold)
		b.Field(n + 1).(*array.Float64Builder).Append(rec.TotalGrossSales)
	}
	return b.NewRecord(), nil
}

// Encode serializes set in the named format
func Encode(set *model.AggregateSet, format string) ([]byte, error) {
	mem := memory.NewGoAllocator()
	rec, err := Record(mem, set)
	if err != nil {
		return nil, err
	}
	defer rec.Release()

	var buf bytes.Buffer
	switch strings.ToLower(format) {
	case FormatParquet:
		tbl := array.NewTableFromRecords(rec.Schema(), []arrow.Record{rec})
		defer tbl.Release()
		props := parquet.NewWriterProperties(
			parquet.WithCompression(compress.Codecs.Snappy),
			parquet.WithAllocator(mem),
		)
		chunk := tbl.NumRows()
		if chunk == 0 {
			chunk = 1
		}
		if err := pqarrow.WriteTable(tbl, &buf, chunk, props, pqarrow.DefaultWriterProps()); err != nil {
			return nil, fmt.Errorf("write parquet: %w", err)
		}
	case FormatCSV:
		w := arrowcsv.NewWriter(&buf, rec.Schema(), arrowcsv.WithHeader(true))
		if err := w.Write(rec); err != nil {
			return nil, fmt.Errorf("write csv: %w", err)
		}
		if err := w.Flush(); err != nil {
			return nil, fmt.Errorf("flush csv: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported output format %q", format)
	}
	return buf.Bytes(), nil
}
