package pipeline

import (
	"strings"
	"time"

	"go-cloud-etl/internal/etlerr"
	"go-cloud-etl/internal/model"
	"go-cloud-etl/pkg/utils"
)

// ParseReferenceDate parses a reference date with a Go or strftime layout
func ParseReferenceDate(referenceDate, layout string) (time.Time, error) {
	goLayout := utils.GoLayout(layout)
	ref, err := time.Parse(goLayout, strings.TrimSpace(referenceDate))
	if err != nil {
		return time.Time{}, etlerr.Wrap(err, etlerr.KindInvalidDateFormat,
			"reference date %q does not match %q", referenceDate, layout)
	}
	return ref, nil
}

// WindowStart is the first calendar day (UTC) a source object may have been
// created on to be selected: the reference date minus one day.
func WindowStart(ref time.Time) time.Time {
	y, m, d := ref.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1)
}

// SelectSources keeps the objects created on or after the day before the
// reference date, preserving listing order. Creation times are compared by
// their UTC calendar date.
func SelectSources(objects []model.SourceObject, referenceDate, layout string) ([]model.SourceObject, error) {
	ref, err := ParseReferenceDate(referenceDate, layout)
	if err != nil {
		return nil, err
	}
	start := WindowStart(ref)

	selected := make([]model.SourceObject, 0, len(objects))
	for _, obj := range objects {
		y, m, d := obj.CreatedAt.UTC().Date()
		if !time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Before(start) {
			selected = append(selected, obj)
		}
	}
	return selected, nil
}
