package pipeline

import (
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"go-cloud-etl/internal/etlerr"
	"go-cloud-etl/internal/model"
)

// DefaultDateLayouts are tried in order when parsing the date column
var DefaultDateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"1/2/2006",
	"1/2/2006 15:04",
	"1/2/06",
	"2006/01/02",
	"2-Jan-2006",
	"2-Jan-06",
	"Jan 2, 2006",
	"January 2, 2006",
	"20060102",
}

// DefaultColumns is the projection the cleaner keeps
var DefaultColumns = append([]string(nil), model.CoreColumns...)

var currencyStripper = strings.NewReplacer("$", "", "€", "", "£", "", "¥", "", ",", "")

// Cleaner turns the raw concatenated table into typed sales records
type Cleaner struct {
	Columns     []string
	DateLayouts []string
	Logger      *slog.Logger
}

// NormalizeColumnName trims, lowercases, replaces spaces with underscores
// and removes parentheses
func NormalizeColumnName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	name = strings.ReplaceAll(name, " ", "_")
	name = strings.ReplaceAll(name, "(", "")
	return strings.ReplaceAll(name, ")", "")
}

// Clean applies the cleaning steps in order: normalize headers, project,
// drop incomplete rows, trim, coerce numerics, parse dates, derive calendar
// parts. A non-numeric amount fails the table even on a row whose date does
// not parse; rows with unparseable dates are otherwise dropped, not failed.
func (c *Cleaner) Clean(raw *model.RawTable) (*model.CleanSet, error) {
	columns := c.Columns
	if len(columns) == 0 {
		columns = DefaultColumns
	}
	layouts := c.DateLayouts
	if len(layouts) == 0 {
		layouts = DefaultDateLayouts
	}
	logger := c.Logger
	if logger == nil {
		logger = slog.Default()
	}

	// normalize: several raw columns may collapse onto one name
	sources := map[string][]int{}
	for i, name := range raw.Columns {
		n := NormalizeColumnName(name)
		sources[n] = append(sources[n], i)
	}

	// project
	var missing []string
	for _, col := range columns {
		if _, ok := sources[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, etlerr.New(etlerr.KindMissingColumn, "columns not found after normalization: %s",
			strings.Join(missing, ", ")).With("available", strings.Join(raw.Columns, "|"))
	}

	set := &model.CleanSet{
		Columns: append([]string(nil), columns...),
		Report:  model.CleanReport{InputRows: len(raw.Rows)},
	}

	for rowNum, row := range raw.Rows {
		values := make(map[string]string, len(columns))
		complete := true
		for _, col := range columns {
			v := coalesce(row, sources[col])
			// whitespace-only cells are missing here, not kept as ""
			if IsMissing(v) {
				complete = false
				break
			}
			values[col] = strings.TrimSpace(v)
		}
		if !complete {
			set.Report.DroppedMissing++
			continue
		}

		gross, err := ParseAmount(values[model.ColGrossSales])
		if err != nil {
			return nil, numericError(model.ColGrossSales, rowNum, values[model.ColGrossSales], err)
		}
		units, err := ParseAmount(values[model.ColUnitsSold])
		if err != nil {
			return nil, numericError(model.ColUnitsSold, rowNum, values[model.ColUnitsSold], err)
		}

		date, ok := ParseDate(values[model.ColDate], layouts)
		if !ok {
			set.Report.DroppedBadDate++
			continue
		}

		rec := model.CleanRecord{
			Segment:    values[model.ColSegment],
			Country:    values[model.ColCountry],
			UnitsSold:  units,
			GrossSales: gross,
			Date:       date,
			SaleYear:   date.Year(),
			SaleMonth:  int(date.Month()),
		}
		for _, col := range columns {
			if isCoreColumn(col) {
				continue
			}
			if rec.Extra == nil {
				rec.Extra = map[string]string{}
			}
			rec.Extra[col] = values[col]
		}
		set.Records = append(set.Records, rec)
	}
	set.Report.OutputRows = len(set.Records)

	logger.Info("table cleaned",
		slog.Int("input_rows", set.Report.InputRows),
		slog.Int("dropped_missing", set.Report.DroppedMissing),
		slog.Int("dropped_bad_date", set.Report.DroppedBadDate),
		slog.Int("output_rows", set.Report.OutputRows))
	return set, nil
}

func coalesce(row []string, idx []int) string {
	for _, i := range idx {
		if i < len(row) && !IsMissing(row[i]) {
			return row[i]
		}
	}
	return ""
}

func isCoreColumn(col string) bool {
	for _, c := range model.CoreColumns {
		if c == col {
			return true
		}
	}
	return false
}

func numericError(col string, row int, value string, cause error) error {
	return etlerr.Wrap(cause, etlerr.KindNumericCoercion, "%s is not numeric", col).
		With("row", row).
		With("value", value)
}

// ParseDate tries each layout in order and returns the date part of the
// first match
func ParseDate(v string, layouts []string) (time.Time, bool) {
	v = strings.TrimSpace(v)
	for _, layout := range layouts {
		if t, err := time.Parse(layout, v); err == nil {
			y, m, d := t.Date()
			return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), true
		}
	}
	return time.Time{}, false
}

// ParseAmount strips currency symbols and thousands separators and parses
// the remainder as a finite float
func ParseAmount(v string) (float64, error) {
	s := strings.TrimSpace(currencyStripper.Replace(v))
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%q is not a finite number", s)
	}
	return f, nil
}
