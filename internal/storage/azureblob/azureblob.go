// Package azureblob implements storage.ObjectStore on Azure Blob Storage.
package azureblob

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"

	"go-cloud-etl/internal/model"
	"go-cloud-etl/internal/storage"
)

// DefaultPollInterval is how often a pending server-side copy is checked
const DefaultPollInterval = 2 * time.Second

// Store is bound to one source container of a storage account
type Store struct {
	client       *azblob.Client
	container    string
	pollInterval time.Duration
	logger       *slog.Logger
}

var _ storage.ObjectStore = (*Store)(nil)

// Option configures a Store
type Option func(*Store)

// WithPollInterval overrides DefaultPollInterval
func WithPollInterval(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.pollInterval = d
		}
	}
}

// WithLogger sets the logger used for copy progress
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// New wraps an authenticated client
func New(client *azblob.Client, container string, opts ...Option) *Store {
	s := &Store{
		client:       client,
		container:    container,
		pollInterval: DefaultPollInterval,
		logger:       slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// AccountURL builds the blob endpoint for an account name
func AccountURL(account string) string {
	return fmt.Sprintf("https://%s.blob.core.windows.net/", account)
}

// List implements storage.ObjectStore
func (s *Store) List(ctx context.Context, prefix string) ([]model.SourceObject, error) {
	opts := &azblob.ListBlobsFlatOptions{}
	if prefix != "" {
		opts.Prefix = to.Ptr(prefix)
	}
	pager := s.client.NewListBlobsFlatPager(s.container, opts)

	var out []model.SourceObject
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list blobs in %s: %w", s.container, err)
		}
		for _, item := range page.Segment.BlobItems {
			if item == nil || item.Name == nil {
				continue
			}
			obj := model.SourceObject{Name: *item.Name}
			if p := item.Properties; p != nil {
				if p.CreationTime != nil {
					obj.CreatedAt = p.CreationTime.UTC()
				}
				if p.ContentLength != nil {
					obj.Size = *p.ContentLength
				}
			}
			out = append(out, obj)
		}
	}
	return out, nil
}

// Read implements storage.ObjectStore
func (s *Store) Read(ctx context.Context, name string) ([]byte, error) {
	resp, err := s.client.DownloadStream(ctx, s.container, name, nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound) {
			return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, name)
		}
		return nil, fmt.Errorf("download %s/%s: %w", s.container, name, err)
	}
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

// Copy starts a server-side copy into destContainer with the requested
// access tier and blocks until the copy leaves the pending state.
func (s *Store) Copy(ctx context.Context, name, destContainer string, tier model.StorageTier) error {
	svc := s.client.ServiceClient()
	srcURL := svc.NewContainerClient(s.container).NewBlobClient(name).URL()
	dest := svc.NewContainerClient(destContainer).NewBlobClient(name)

	resp, err := dest.StartCopyFromURL(ctx, srcURL, &blob.StartCopyFromURLOptions{
		Tier: to.Ptr(AccessTier(tier)),
	})
	if err != nil {
		return fmt.Errorf("start copy %s -> %s: %w", srcURL, destContainer, err)
	}

	status := resp.CopyStatus
	var desc *string
	for status != nil && *status == blob.CopyStatusTypePending {
		s.logger.Debug("copy pending", slog.String("blob", name), slog.String("dest", destContainer))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.pollInterval):
		}
		props, err := dest.GetProperties(ctx, nil)
		if err != nil {
			return fmt.Errorf("poll copy of %s: %w", name, err)
		}
		status, desc = props.CopyStatus, props.CopyStatusDescription
	}
	return copyOutcome(name, status, desc)
}

// copyOutcome accepts only a successful copy; the source is deleted after it
func copyOutcome(name string, status *blob.CopyStatusType, desc *string) error {
	if status == nil {
		return fmt.Errorf("copy of %s returned no status", name)
	}
	if *status == blob.CopyStatusTypeSuccess {
		return nil
	}
	reason := ""
	if desc != nil {
		reason = *desc
	}
	return fmt.Errorf("copy of %s ended %s: %s", name, *status, reason)
}

// Delete implements storage.ObjectStore
func (s *Store) Delete(ctx context.Context, name string, includeSnapshots bool) error {
	opts := &azblob.DeleteBlobOptions{}
	if includeSnapshots {
		opts.DeleteSnapshots = to.Ptr(blob.DeleteSnapshotsOptionTypeInclude)
	}
	if _, err := s.client.DeleteBlob(ctx, s.container, name, opts); err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound) {
			return fmt.Errorf("%w: %s", storage.ErrNotFound, name)
		}
		return fmt.Errorf("delete %s/%s: %w", s.container, name, err)
	}
	return nil
}

// AccessTier maps a storage tier onto the blob access tier names
func AccessTier(tier model.StorageTier) blob.AccessTier {
	switch strings.ToLower(string(tier)) {
	case "hot":
		return blob.AccessTierHot
	case "cold":
		return blob.AccessTierCold
	case "archive":
		return blob.AccessTierArchive
	default:
		return blob.AccessTierCool
	}
}
