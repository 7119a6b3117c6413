// Package adls implements storage.OutputStore on Azure Data Lake Storage Gen2.
package adls

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/streaming"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azdatalake/file"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azdatalake/filesystem"

	"go-cloud-etl/internal/storage"
)

// fileClient is the subset of *file.Client used for uploads
type fileClient interface {
	Create(ctx context.Context, options *file.CreateOptions) (file.CreateResponse, error)
	AppendData(ctx context.Context, offset int64, body io.ReadSeekCloser, options *file.AppendDataOptions) (file.AppendDataResponse, error)
	FlushData(ctx context.Context, offset int64, options *file.FlushDataOptions) (file.FlushDataResponse, error)
}

// Store writes files into one ADLS file system
type Store struct {
	fileSystem string
	newFile    func(path string) fileClient
}

var _ storage.OutputStore = (*Store)(nil)

// New wraps a file system client
func New(fs *filesystem.Client, fileSystem string) *Store {
	return &Store{
		fileSystem: fileSystem,
		newFile:    func(p string) fileClient { return fs.NewFileClient(p) },
	}
}

// AccountURL builds the dfs endpoint for an account name
func AccountURL(account string) string {
	return fmt.Sprintf("https://%s.dfs.core.windows.net/", account)
}

// Write creates the file (replacing it when overwrite is set), appends the
// payload and flushes it. Readers only see the file after the flush.
func (s *Store) Write(ctx context.Context, p string, data []byte, overwrite bool) error {
	p = strings.TrimPrefix(path.Clean("/"+p), "/")
	fc := s.newFile(p)

	opts := &file.CreateOptions{}
	if !overwrite {
		opts.AccessConditions = &file.AccessConditions{
			ModifiedAccessConditions: &file.ModifiedAccessConditions{IfNoneMatch: to.Ptr(azcore.ETagAny)},
		}
	}
	if _, err := fc.Create(ctx, opts); err != nil {
		return fmt.Errorf("create %s/%s: %w", s.fileSystem, p, err)
	}
	if len(data) > 0 {
		body := streaming.NopCloser(bytes.NewReader(data))
		if _, err := fc.AppendData(ctx, 0, body, nil); err != nil {
			return fmt.Errorf("append %s/%s: %w", s.fileSystem, p, err)
		}
	}
	if _, err := fc.FlushData(ctx, int64(len(data)), nil); err != nil {
		return fmt.Errorf("flush %s/%s: %w", s.fileSystem, p, err)
	}
	return nil
}
