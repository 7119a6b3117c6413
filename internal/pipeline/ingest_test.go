package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-cloud-etl/internal/etlerr"
	"go-cloud-etl/internal/model"
	"go-cloud-etl/internal/storage/memstore"
)

func TestParseCSV(t *testing.T) {
	data := []byte("\xef\xbb\xbfSegment,Country,Units Sold\nGovernment,Canada,1618.5\nMidmarket,France\n")

	table, err := ParseCSV(data, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"Segment", "Country", "Units Sold"}, table.Columns)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, []string{"Government", "Canada", "1618.5"}, table.Rows[0])
	assert.Equal(t, []string{"Midmarket", "France", ""}, table.Rows[1])
}

func TestParseCSVDelimiterAndQuotes(t *testing.T) {
	data := []byte("segment;country;gross\n\"Channel; Partners\";Germany;\"$1,200.00\"\n")

	table, err := ParseCSV(data, ';')
	require.NoError(t, err)
	require.Len(t, table.Rows, 1)
	assert.Equal(t, "Channel; Partners", table.Rows[0][0])
	assert.Equal(t, "$1,200.00", table.Rows[0][2])
}

func TestParseCSVErrors(t *testing.T) {
	_, err := ParseCSV(nil, 0)
	assert.EqualError(t, err, "no columns to parse from file")

	_, err = ParseCSV([]byte("a,b\n1,2,3\n"), 0)
	assert.ErrorContains(t, err, "expected 2 fields, saw 3")
}

func TestParseCSVDuplicateHeaders(t *testing.T) {
	table, err := ParseCSV([]byte("a,b,a,a\n1,2,3,4\n"), 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "a.1", "a.2"}, table.Columns)
}

func TestConcatAlignsColumns(t *testing.T) {
	first := &model.RawTable{Columns: []string{"a", "b"}, Rows: [][]string{{"1", "2"}}}
	second := &model.RawTable{Columns: []string{"b", "c"}, Rows: [][]string{{"3", "4"}}}

	out := Concat(first, nil, second)
	assert.Equal(t, []string{"a", "b", "c"}, out.Columns)
	assert.Equal(t, [][]string{{"1", "2", ""}, {"", "3", "4"}}, out.Rows)
}

func TestLoaderLoad(t *testing.T) {
	created := time.Date(2014, 7, 1, 8, 0, 0, 0, time.UTC)
	store := memstore.New("ingest")
	store.Put("ingest", "b.csv", []byte("x,y\n3,4\n"), created)
	store.Put("ingest", "a.csv", []byte("x,y\n1,2\n"), created)

	loader := &Loader{Store: store, Workers: 4}
	table, err := loader.Load(context.Background(), []model.SourceObject{{Name: "b.csv"}, {Name: "a.csv"}})
	require.NoError(t, err)

	assert.Equal(t, []string{"x", "y"}, table.Columns)
	assert.Equal(t, [][]string{{"3", "4"}, {"1", "2"}}, table.Rows, "rows follow selection order")
}

func TestLoaderLoadFailsWholeBatch(t *testing.T) {
	store := memstore.New("ingest")
	store.Put("ingest", "a.csv", []byte("x\n1\n"), time.Now())
	store.Put("ingest", "b.csv", []byte("x\n2\n"), time.Now())
	store.Fail["read"] = "b.csv"

	loader := &Loader{Store: store}
	table, err := loader.Load(context.Background(), []model.SourceObject{{Name: "a.csv"}, {Name: "b.csv"}})
	require.Error(t, err)
	assert.Nil(t, table)
	assert.ErrorIs(t, err, etlerr.ErrSourceRead)
	assert.Contains(t, err.Error(), "object=b.csv")
}

func TestLoaderLoadUnparseable(t *testing.T) {
	store := memstore.New("ingest")
	store.Put("ingest", "empty.csv", nil, time.Now())

	loader := &Loader{Store: store}
	_, err := loader.Load(context.Background(), []model.SourceObject{{Name: "empty.csv"}})
	assert.Equal(t, etlerr.KindSourceRead, etlerr.KindOf(err))
}
