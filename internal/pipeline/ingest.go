package pipeline

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"go-cloud-etl/internal/etlerr"
	"go-cloud-etl/internal/model"
	"go-cloud-etl/internal/storage"
)

// ------------------- Ingestion -------------------

// Loader reads the selected extracts and concatenates them
type Loader struct {
	Store     storage.ObjectStore
	Delimiter rune
	Workers   int
	Logger    *slog.Logger
}

// Load fetches and parses every object, then concatenates the tables in
// selection order. Any unreadable object fails the whole load.
func (l *Loader) Load(ctx context.Context, objects []model.SourceObject) (*model.RawTable, error) {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	workers := l.Workers
	if workers < 1 {
		workers = 1
	}

	tables := make([]*model.RawTable, len(objects))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, obj := range objects {
		g.Go(func() error {
			data, err := l.Store.Read(gctx, obj.Name)
			if err != nil {
				return etlerr.Wrap(err, etlerr.KindSourceRead, "read object").With("object", obj.Name)
			}
			t, err := ParseCSV(data, l.Delimiter)
			if err != nil {
				return etlerr.Wrap(err, etlerr.KindSourceRead, "parse object").With("object", obj.Name)
			}
			logger.DebugContext(ctx, "object loaded",
				slog.String("object", obj.Name),
				slog.Int("rows", len(t.Rows)),
				slog.Int("columns", len(t.Columns)))
			tables[i] = t
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return Concat(tables...), nil
}

// ParseCSV parses delimited text with a header row. Short rows are padded
// with missing values; rows longer than the header are an error. Duplicate
// header names get ".1", ".2" suffixes.
func ParseCSV(data []byte, delimiter rune) (*model.RawTable, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	r := csv.NewReader(bytes.NewReader(data))
	if delimiter != 0 {
		r.Comma = delimiter
	}
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("no columns to parse from file")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	t := &model.RawTable{Columns: dedupeHeader(header)}
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("CSV read error: %w", err)
		}
		if len(record) > len(header) {
			line, _ := r.FieldPos(0)
			return nil, fmt.Errorf("line %d: expected %d fields, saw %d", line, len(header), len(record))
		}
		if len(record) == 1 && record[0] == "" && len(header) > 1 {
			continue
		}
		row := make([]string, len(header))
		copy(row, record)
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

func dedupeHeader(header []string) []string {
	seen := make(map[string]int, len(header))
	out := make([]string, len(header))
	for i, h := range header {
		name := h
		if n, ok := seen[h]; ok {
			for {
				n++
				name = fmt.Sprintf("%s.%d", h, n)
				if _, taken := seen[name]; !taken {
					break
				}
			}
			seen[h] = n
		}
		seen[name] = 0
		out[i] = name
	}
	return out
}

// Concat stacks tables, aligning columns by name. The result's columns are
// the union of inputs in first-seen order; cells a table lacks are "".
func Concat(tables ...*model.RawTable) *model.RawTable {
	out := &model.RawTable{}
	index := map[string]int{}
	for _, t := range tables {
		if t == nil {
			continue
		}
		for _, c := range t.Columns {
			if _, ok := index[c]; !ok {
				index[c] = len(out.Columns)
				out.Columns = append(out.Columns, c)
			}
		}
	}
	for _, t := range tables {
		if t == nil {
			continue
		}
		pos := make([]int, len(t.Columns))
		for i, c := range t.Columns {
			pos[i] = index[c]
		}
		for _, row := range t.Rows {
			aligned := make([]string, len(out.Columns))
			for i, v := range row {
				aligned[pos[i]] = v
			}
			out.Rows = append(out.Rows, aligned)
		}
	}
	return out
}

// IsMissing reports whether a raw cell counts as a missing value
func IsMissing(v string) bool {
	return strings.TrimSpace(v) == ""
}
