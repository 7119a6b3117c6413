package pipeline

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/apache/arrow/go/v12/parquet/file"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-cloud-etl/internal/etlerr"
	"go-cloud-etl/internal/model"
	"go-cloud-etl/internal/storage/memstore"
)

var exportClock = func() time.Time { return time.Date(2014, 7, 1, 9, 30, 5, 0, time.UTC) }

func sampleAggregate() *model.AggregateSet {
	return &model.AggregateSet{
		GroupBy: DefaultGroupBy,
		Records: []model.AggregateRecord{
			{Key: []any{"Government", "Canada", 2014, 3}, TotalUnitsSold: 5, TotalGrossSales: 50},
			{Key: []any{"Midmarket", "France", 2014, 4}, TotalUnitsSold: 1, TotalGrossSales: 2},
		},
	}
}

func TestWriterWriteParquet(t *testing.T) {
	store := memstore.New("ingest")
	w := &Writer{Store: store, Directory: "/curated/", Prefix: "financial_demo", Format: "parquet", Now: exportClock}

	path, err := w.Write(context.Background(), sampleAggregate())
	require.NoError(t, err)
	assert.Equal(t, "curated/financial_demo_20140701_093005.parquet", path)

	obj, ok := store.Get(memstore.OutputContainer, path)
	require.True(t, ok)
	reader, err := file.NewParquetReader(bytes.NewReader(obj.Data))
	require.NoError(t, err)
	defer reader.Close()
	assert.EqualValues(t, 2, reader.NumRows())
	assert.Equal(t, 6, reader.MetaData().Schema.NumColumns())
}

func TestWriterPartitionedCSV(t *testing.T) {
	store := memstore.New("ingest")
	w := &Writer{Store: store, Prefix: "sales", Format: "CSV", Partitioned: true, Now: exportClock}

	path, err := w.Write(context.Background(), sampleAggregate())
	require.NoError(t, err)
	assert.Equal(t, "year=2014/month=07/day=01/sales_20140701_093005.csv", path)

	obj, ok := store.Get(memstore.OutputContainer, path)
	require.True(t, ok)
	assert.Contains(t, string(obj.Data), "total_units_sold")
	assert.Contains(t, string(obj.Data), "Government")
}

func TestWriterOverwrites(t *testing.T) {
	store := memstore.New("ingest")
	w := &Writer{Store: store, Prefix: "p", Format: "csv", Now: exportClock}

	_, err := w.Write(context.Background(), sampleAggregate())
	require.NoError(t, err)
	_, err = w.Write(context.Background(), &model.AggregateSet{GroupBy: DefaultGroupBy})
	require.NoError(t, err)
	assert.Equal(t, 2, store.CountOps("write"))
}

func TestWriterFailures(t *testing.T) {
	store := memstore.New("ingest")
	store.Fail["write"] = ""
	w := &Writer{Store: store, Prefix: "p", Format: "parquet", Now: exportClock}

	_, err := w.Write(context.Background(), sampleAggregate())
	assert.ErrorIs(t, err, etlerr.ErrWrite)
	assert.Contains(t, err.Error(), "path=p_20140701_093005.parquet")

	w.Format = "xlsx"
	_, err = w.Write(context.Background(), sampleAggregate())
	assert.Equal(t, etlerr.KindWrite, etlerr.KindOf(err))
}
