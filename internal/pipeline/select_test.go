package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-cloud-etl/internal/etlerr"
	"go-cloud-etl/internal/model"
)

func obj(name string, created time.Time) model.SourceObject {
	return model.SourceObject{Name: name, CreatedAt: created}
}

func TestSelectSourcesWindow(t *testing.T) {
	listing := []model.SourceObject{
		obj("old.csv", time.Date(2014, 6, 29, 23, 59, 59, 0, time.UTC)),
		obj("edge.csv", time.Date(2014, 6, 30, 0, 0, 0, 0, time.UTC)),
		obj("late-edge.csv", time.Date(2014, 6, 30, 23, 0, 0, 0, time.UTC)),
		obj("same.csv", time.Date(2014, 7, 1, 8, 0, 0, 0, time.UTC)),
		obj("future.csv", time.Date(2015, 1, 1, 0, 0, 0, 0, time.UTC)),
	}

	got, err := SelectSources(listing, "2014-07-01", "%Y-%m-%d")
	require.NoError(t, err)

	names := make([]string, len(got))
	for i, o := range got {
		names[i] = o.Name
	}
	assert.Equal(t, []string{"edge.csv", "late-edge.csv", "same.csv", "future.csv"}, names)
}

func TestSelectSourcesComparesUTCDate(t *testing.T) {
	est := time.FixedZone("EST", -5*3600)
	// 2014-06-29 21:00 EST is 2014-06-30 02:00 UTC
	listing := []model.SourceObject{obj("tz.csv", time.Date(2014, 6, 29, 21, 0, 0, 0, est))}

	got, err := SelectSources(listing, "2014-07-01", "2006-01-02")
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestSelectSourcesExactComplement(t *testing.T) {
	base := time.Date(2014, 6, 20, 12, 0, 0, 0, time.UTC)
	var listing []model.SourceObject
	for i := 0; i < 20; i++ {
		listing = append(listing, obj("f", base.AddDate(0, 0, i)))
	}
	got, err := SelectSources(listing, "2014-07-01", "%Y-%m-%d")
	require.NoError(t, err)

	start := time.Date(2014, 6, 30, 0, 0, 0, 0, time.UTC)
	want := 0
	for _, o := range listing {
		if !o.CreatedAt.Before(start) {
			want++
		}
	}
	assert.Len(t, got, want)
	for _, o := range got {
		assert.False(t, o.CreatedAt.Before(start))
	}
}

func TestSelectSourcesEmptyListing(t *testing.T) {
	got, err := SelectSources(nil, "2014-07-01", "%Y-%m-%d")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSelectSourcesInvalidDate(t *testing.T) {
	_, err := SelectSources(nil, "07/01/2014", "%Y-%m-%d")
	require.Error(t, err)
	assert.ErrorIs(t, err, etlerr.ErrInvalidDateFormat)
}
