package pipeline

import (
	"fmt"
	"sort"
	"strings"

	"go-cloud-etl/internal/etlerr"
	"go-cloud-etl/internal/model"
)

// DefaultGroupBy is the grouping key of the sales aggregate
var DefaultGroupBy = []string{model.ColSegment, model.ColCountry, model.ColSaleYear, model.ColSaleMonth}

// Aggregate sums units sold and gross sales per distinct group key. Records
// are stably sorted by (sale_year, sale_month) first and groups are emitted
// in order of first appearance, so the output is ordered by year and month
// with ties in input order.
func Aggregate(set *model.CleanSet, groupBy []string) (*model.AggregateSet, error) {
	if len(groupBy) == 0 {
		groupBy = DefaultGroupBy
	}
	out := &model.AggregateSet{GroupBy: append([]string(nil), groupBy...)}
	if set == nil || len(set.Records) == 0 {
		return out, nil
	}

	probe := set.Records[0]
	var unknown []string
	for _, col := range groupBy {
		if _, ok := probe.Dimension(col); !ok {
			unknown = append(unknown, col)
		}
	}
	if len(unknown) > 0 {
		return nil, etlerr.New(etlerr.KindMissingColumn, "cannot group by %s", strings.Join(unknown, ", "))
	}

	records := append([]model.CleanRecord(nil), set.Records...)
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].SaleYear != records[j].SaleYear {
			return records[i].SaleYear < records[j].SaleYear
		}
		return records[i].SaleMonth < records[j].SaleMonth
	})

	groups := map[string]int{}
	for _, rec := range records {
		key := make([]any, len(groupBy))
		for i, col := range groupBy {
			key[i], _ = rec.Dimension(col)
		}
		id := groupID(key)
		idx, ok := groups[id]
		if !ok {
			idx = len(out.Records)
			groups[id] = idx
			out.Records = append(out.Records, model.AggregateRecord{Key: key})
		}
		out.Records[idx].TotalUnitsSold += rec.UnitsSold
		out.Records[idx].TotalGrossSales += rec.GrossSales
	}
	return out, nil
}

// groupID renders a key unambiguously: each part is length-prefixed
func groupID(key []any) string {
	var b strings.Builder
	for _, v := range key {
		s := fmt.Sprint(v)
		fmt.Fprintf(&b, "%d:%s|", len(s), s)
	}
	return b.String()
}
