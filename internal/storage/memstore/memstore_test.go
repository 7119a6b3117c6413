package memstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-cloud-etl/internal/model"
	"go-cloud-etl/internal/storage"
)

func TestStoreObjectLifecycle(t *testing.T) {
	ctx := context.Background()
	created := time.Date(2014, 6, 30, 10, 0, 0, 0, time.UTC)
	s := New("ingest")
	s.Put("ingest", "sales/b.csv", []byte("b"), created)
	s.Put("ingest", "sales/a.csv", []byte("a"), created)
	s.Put("ingest", "other.csv", []byte("o"), created)

	objs, err := s.List(ctx, "sales/")
	require.NoError(t, err)
	require.Len(t, objs, 2)
	assert.Equal(t, "sales/a.csv", objs[0].Name)
	assert.Equal(t, created, objs[0].CreatedAt)
	assert.Equal(t, int64(1), objs[0].Size)

	data, err := s.Read(ctx, "sales/a.csv")
	require.NoError(t, err)
	assert.Equal(t, []byte("a"), data)

	require.NoError(t, s.Copy(ctx, "sales/a.csv", "archive", model.TierCool))
	copied, ok := s.Get("archive", "sales/a.csv")
	require.True(t, ok)
	assert.Equal(t, model.TierCool, copied.Tier)

	require.NoError(t, s.Delete(ctx, "sales/a.csv", true))
	assert.Equal(t, []string{"other.csv", "sales/b.csv"}, s.Names("ingest"))
	assert.Equal(t, 1, s.CountOps("copy"))
}

func TestStoreMissingObject(t *testing.T) {
	ctx := context.Background()
	s := New("ingest")

	_, err := s.Read(ctx, "nope.csv")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.ErrorIs(t, s.Copy(ctx, "nope.csv", "archive", model.TierCool), storage.ErrNotFound)
	assert.ErrorIs(t, s.Delete(ctx, "nope.csv", true), storage.ErrNotFound)
}

func TestStoreDeleteSnapshots(t *testing.T) {
	ctx := context.Background()
	s := New("ingest")
	s.Put("ingest", "a.csv", []byte("a"), time.Now())
	obj, _ := s.Get("ingest", "a.csv")
	obj.Snapshots = 2

	assert.Error(t, s.Delete(ctx, "a.csv", false))
	require.NoError(t, s.Delete(ctx, "a.csv", true))
	assert.Empty(t, s.Names("ingest"))
}

func TestStoreWriteOverwrite(t *testing.T) {
	ctx := context.Background()
	s := New("ingest")

	require.NoError(t, s.Write(ctx, "curated/out.parquet", []byte("v1"), false))
	assert.Error(t, s.Write(ctx, "curated/out.parquet", []byte("v2"), false))
	require.NoError(t, s.Write(ctx, "curated/out.parquet", []byte("v3"), true))

	obj, ok := s.Get(OutputContainer, "curated/out.parquet")
	require.True(t, ok)
	assert.Equal(t, []byte("v3"), obj.Data)
}

func TestStoreInjectedFailure(t *testing.T) {
	ctx := context.Background()
	s := New("ingest")
	s.Put("ingest", "a.csv", []byte("a"), time.Now())
	s.Put("ingest", "b.csv", []byte("b"), time.Now())
	s.Fail["read"] = "b.csv"

	_, err := s.Read(ctx, "a.csv")
	require.NoError(t, err)
	_, err = s.Read(ctx, "b.csv")
	assert.Error(t, err)

	s.Fail["list"] = ""
	_, err = s.List(ctx, "")
	assert.Error(t, err)
}

func TestStoreHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := New("ingest")

	_, err := s.List(ctx, "")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, s.Ops())
}
