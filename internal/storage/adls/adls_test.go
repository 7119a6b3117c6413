package adls

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azdatalake/file"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFile struct {
	path      string
	created   *file.CreateOptions
	appended  []byte
	flushedAt int64
	failOn    string
}

func (f *fakeFile) Create(_ context.Context, o *file.CreateOptions) (file.CreateResponse, error) {
	if f.failOn == "create" {
		return file.CreateResponse{}, errors.New("boom")
	}
	f.created = o
	return file.CreateResponse{}, nil
}

func (f *fakeFile) AppendData(_ context.Context, offset int64, body io.ReadSeekCloser, _ *file.AppendDataOptions) (file.AppendDataResponse, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return file.AppendDataResponse{}, err
	}
	f.appended = append(f.appended, data...)
	return file.AppendDataResponse{}, nil
}

func (f *fakeFile) FlushData(_ context.Context, offset int64, _ *file.FlushDataOptions) (file.FlushDataResponse, error) {
	f.flushedAt = offset
	return file.FlushDataResponse{}, nil
}

func newFakeStore(ff *fakeFile) *Store {
	return &Store{
		fileSystem: "lake",
		newFile: func(p string) fileClient {
			ff.path = p
			return ff
		},
	}
}

func TestWriteCreatesAppendsFlushes(t *testing.T) {
	ff := &fakeFile{}
	s := newFakeStore(ff)

	require.NoError(t, s.Write(context.Background(), "/processed//financial_demo_20140701_120000.parquet", []byte("PAR1"), true))
	assert.Equal(t, "processed/financial_demo_20140701_120000.parquet", ff.path)
	assert.Equal(t, []byte("PAR1"), ff.appended)
	assert.Equal(t, int64(4), ff.flushedAt)
	require.NotNil(t, ff.created)
	assert.Nil(t, ff.created.AccessConditions)
}

func TestWriteWithoutOverwriteSetsCondition(t *testing.T) {
	ff := &fakeFile{}
	s := newFakeStore(ff)

	require.NoError(t, s.Write(context.Background(), "a.csv", nil, false))
	require.NotNil(t, ff.created.AccessConditions)
	assert.Nil(t, ff.appended)
	assert.Equal(t, int64(0), ff.flushedAt)
}

func TestWriteCreateFailure(t *testing.T) {
	s := newFakeStore(&fakeFile{failOn: "create"})
	err := s.Write(context.Background(), "a.csv", []byte("x"), true)
	assert.ErrorContains(t, err, "create lake/a.csv")
}

func TestAccountURL(t *testing.T) {
	assert.Equal(t, "https://lake.dfs.core.windows.net/", AccountURL("lake"))
}
