package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-cloud-etl/internal/etlerr"
	"go-cloud-etl/internal/model"
)

func record(segment, country string, units, gross float64, date string) model.CleanRecord {
	d, _ := time.Parse(time.DateOnly, date)
	return model.CleanRecord{
		Segment:    segment,
		Country:    country,
		UnitsSold:  units,
		GrossSales: gross,
		Date:       d,
		SaleYear:   d.Year(),
		SaleMonth:  int(d.Month()),
	}
}

func TestAggregate(t *testing.T) {
	set := &model.CleanSet{Records: []model.CleanRecord{
		record("Government", "Canada", 10, 100, "2014-04-02"),
		record("Government", "Canada", 5, 50, "2014-03-01"),
		record("Midmarket", "France", 1, 2, "2014-03-15"),
		record("Government", "Canada", 20, 200, "2014-04-20"),
		record("Government", "Canada", 1, 1, "2013-12-31"),
	}}

	agg, err := Aggregate(set, nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultGroupBy, agg.GroupBy)
	assert.Equal(t, []model.AggregateRecord{
		{Key: []any{"Government", "Canada", 2013, 12}, TotalUnitsSold: 1, TotalGrossSales: 1},
		{Key: []any{"Government", "Canada", 2014, 3}, TotalUnitsSold: 5, TotalGrossSales: 50},
		{Key: []any{"Midmarket", "France", 2014, 3}, TotalUnitsSold: 1, TotalGrossSales: 2},
		{Key: []any{"Government", "Canada", 2014, 4}, TotalUnitsSold: 30, TotalGrossSales: 300},
	}, agg.Records)
}

func TestAggregatePreservesTotals(t *testing.T) {
	var records []model.CleanRecord
	var units, gross float64
	for i := 0; i < 40; i++ {
		r := record([]string{"A", "B", "C"}[i%3], []string{"X", "Y"}[i%2], float64(i), float64(i)*1.5,
			time.Date(2014, time.Month(i%12+1), 1, 0, 0, 0, 0, time.UTC).Format(time.DateOnly))
		units += r.UnitsSold
		gross += r.GrossSales
		records = append(records, r)
	}

	agg, err := Aggregate(&model.CleanSet{Records: records}, nil)
	require.NoError(t, err)

	var gotUnits, gotGross float64
	seen := map[string]bool{}
	for _, r := range agg.Records {
		id := groupID(r.Key)
		assert.False(t, seen[id], "duplicate group %v", r.Key)
		seen[id] = true
		gotUnits += r.TotalUnitsSold
		gotGross += r.TotalGrossSales
	}
	assert.InDelta(t, units, gotUnits, 1e-9)
	assert.InDelta(t, gross, gotGross, 1e-9)
}

func TestAggregateEmpty(t *testing.T) {
	agg, err := Aggregate(&model.CleanSet{}, nil)
	require.NoError(t, err)
	assert.Empty(t, agg.Records)
	assert.Equal(t, DefaultGroupBy, agg.GroupBy)
}

func TestAggregateUnknownDimension(t *testing.T) {
	set := &model.CleanSet{Records: []model.CleanRecord{record("A", "X", 1, 1, "2014-01-01")}}

	_, err := Aggregate(set, []string{model.ColSegment, "product"})
	assert.ErrorIs(t, err, etlerr.ErrMissingColumn)
}

func TestAggregateCustomKey(t *testing.T) {
	set := &model.CleanSet{Records: []model.CleanRecord{
		record("A", "X", 1, 10, "2014-01-01"),
		record("B", "X", 2, 20, "2014-02-01"),
	}}

	agg, err := Aggregate(set, []string{model.ColCountry})
	require.NoError(t, err)
	require.Len(t, agg.Records, 1)
	assert.Equal(t, []any{"X"}, agg.Records[0].Key)
	assert.Equal(t, 30.0, agg.Records[0].TotalGrossSales)
}

func TestGroupIDIsUnambiguous(t *testing.T) {
	assert.NotEqual(t, groupID([]any{"a|b", "c"}), groupID([]any{"a", "b|c"}))
}
