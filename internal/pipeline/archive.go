package pipeline

import (
	"context"
	"log/slog"
	"path"
	"sync"

	"golang.org/x/sync/errgroup"

	"go-cloud-etl/internal/etlerr"
	"go-cloud-etl/internal/model"
	"go-cloud-etl/internal/storage"
)

// Archiver moves processed source objects into the archive container
type Archiver struct {
	Store     storage.ObjectStore
	Container string
	Tier      model.StorageTier
	Workers   int
	Logger    *slog.Logger
}

// Archive copies each object to the archive container with the configured
// tier, then deletes the original with its snapshots. An object is never
// deleted before its copy succeeded. Objects archived before a failure stay
// archived; the returned transitions list them either way.
func (a *Archiver) Archive(ctx context.Context, objects []model.SourceObject) ([]model.ArchiveTransition, error) {
	logger := a.Logger
	if logger == nil {
		logger = slog.Default()
	}
	tier := a.Tier
	if tier == "" {
		tier = model.TierCool
	}
	workers := a.Workers
	if workers < 1 {
		workers = 1
	}

	var (
		mu   sync.Mutex
		done = make([]*model.ArchiveTransition, len(objects))
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, obj := range objects {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if err := a.Store.Copy(gctx, obj.Name, a.Container, tier); err != nil {
				return etlerr.Wrap(err, etlerr.KindArchive, "copy to archive").With("object", obj.Name)
			}
			if err := a.Store.Delete(gctx, obj.Name, true); err != nil {
				return etlerr.Wrap(err, etlerr.KindArchive, "delete source").With("object", obj.Name)
			}
			logger.InfoContext(ctx, "object archived",
				slog.String("object", obj.Name),
				slog.String("container", a.Container),
				slog.String("tier", string(tier)))

			mu.Lock()
			done[i] = &model.ArchiveTransition{
				Source:      obj.Name,
				Destination: path.Join(a.Container, obj.Name),
				Tier:        tier,
			}
			mu.Unlock()
			return nil
		})
	}
	err := g.Wait()

	transitions := make([]model.ArchiveTransition, 0, len(objects))
	for _, t := range done {
		if t != nil {
			transitions = append(transitions, *t)
		}
	}
	return transitions, err
}

