package pipeline

import (
	"context"
	"log/slog"
	"time"

	"go-cloud-etl/internal/columnar"
	"go-cloud-etl/internal/etlerr"
	"go-cloud-etl/internal/model"
	"go-cloud-etl/internal/storage"
	"go-cloud-etl/pkg/utils"
)

// Writer commits the aggregate to the output store
type Writer struct {
	Store       storage.OutputStore
	Directory   string
	Prefix      string
	Format      string
	Partitioned bool
	Now         func() time.Time
	Logger      *slog.Logger
}

// Write encodes set and writes it as {dir}/{prefix}_{YYYYMMDD_HHMMSS}.{format},
// overwriting any object with that name. It returns the written path.
func (w *Writer) Write(ctx context.Context, set *model.AggregateSet) (string, error) {
	now := time.Now
	if w.Now != nil {
		now = w.Now
	}
	logger := w.Logger
	if logger == nil {
		logger = slog.Default()
	}

	om := utils.NewOutputManager(w.Directory, w.Prefix, w.Format, w.Partitioned)
	path := om.FilePath(now().UTC())

	data, err := columnar.Encode(set, om.Format)
	if err != nil {
		return "", etlerr.Wrap(err, etlerr.KindWrite, "encode aggregate").With("path", path)
	}
	if err := w.Store.Write(ctx, path, data, true); err != nil {
		return "", etlerr.Wrap(err, etlerr.KindWrite, "write aggregate").With("path", path)
	}

	logger.InfoContext(ctx, "aggregate written",
		slog.String("path", path),
		slog.Int("rows", len(set.Records)),
		slog.Int("bytes", len(data)))
	return path, nil
}
