// Package s3store implements storage.ObjectStore on Amazon S3. S3 keeps no
// creation time, so LastModified stands in for it; object versions play the
// role of snapshots.
package s3store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"

	"go-cloud-etl/internal/model"
	"go-cloud-etl/internal/storage"
)

// Store is bound to one source bucket
type Store struct {
	client s3iface.S3API
	bucket string
}

var _ storage.ObjectStore = (*Store)(nil)

// New wraps an S3 client
func New(client s3iface.S3API, bucket string) *Store {
	return &Store{client: client, bucket: bucket}
}

// List implements storage.ObjectStore
func (s *Store) List(ctx context.Context, prefix string) ([]model.SourceObject, error) {
	input := &s3.ListObjectsV2Input{Bucket: aws.String(s.bucket)}
	if prefix != "" {
		input.Prefix = aws.String(prefix)
	}
	var out []model.SourceObject
	err := s.client.ListObjectsV2PagesWithContext(ctx, input, func(page *s3.ListObjectsV2Output, last bool) bool {
		for _, obj := range page.Contents {
			if strings.HasSuffix(aws.StringValue(obj.Key), "/") {
				continue
			}
			out = append(out, model.SourceObject{
				Name:      aws.StringValue(obj.Key),
				CreatedAt: aws.TimeValue(obj.LastModified).UTC(),
				Size:      aws.Int64Value(obj.Size),
			})
		}
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("list s3://%s/%s: %w", s.bucket, prefix, err)
	}
	return out, nil
}

// Read implements storage.ObjectStore
func (s *Store) Read(ctx context.Context, name string) ([]byte, error) {
	resp, err := s.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(name),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, name)
		}
		return nil, fmt.Errorf("get s3://%s/%s: %w", s.bucket, name, err)
	}
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

// Copy copies the object into destContainer (a bucket) with the storage
// class matching tier. CopyObject is synchronous.
func (s *Store) Copy(ctx context.Context, name, destContainer string, tier model.StorageTier) error {
	_, err := s.client.CopyObjectWithContext(ctx, &s3.CopyObjectInput{
		Bucket:       aws.String(destContainer),
		Key:          aws.String(name),
		CopySource:   aws.String(url.PathEscape(s.bucket + "/" + name)),
		StorageClass: aws.String(StorageClass(tier)),
	})
	if err != nil {
		if isNotFound(err) {
			return fmt.Errorf("%w: %s", storage.ErrNotFound, name)
		}
		return fmt.Errorf("copy s3://%s/%s to %s: %w", s.bucket, name, destContainer, err)
	}
	return nil
}

// Delete removes the object. With includeSnapshots every version of the key
// is removed, otherwise only the current one.
func (s *Store) Delete(ctx context.Context, name string, includeSnapshots bool) error {
	if !includeSnapshots {
		_, err := s.client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(name),
		})
		if err != nil {
			return fmt.Errorf("delete s3://%s/%s: %w", s.bucket, name, err)
		}
		return nil
	}

	var versions []*string
	err := s.client.ListObjectVersionsPagesWithContext(ctx, &s3.ListObjectVersionsInput{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(name),
	}, func(page *s3.ListObjectVersionsOutput, last bool) bool {
		for _, v := range page.Versions {
			if aws.StringValue(v.Key) == name {
				versions = append(versions, v.VersionId)
			}
		}
		for _, m := range page.DeleteMarkers {
			if aws.StringValue(m.Key) == name {
				versions = append(versions, m.VersionId)
			}
		}
		return true
	})
	if err != nil {
		return fmt.Errorf("list versions of s3://%s/%s: %w", s.bucket, name, err)
	}
	if len(versions) == 0 {
		// unversioned bucket
		versions = append(versions, nil)
	}
	for _, v := range versions {
		_, err := s.client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
			Bucket:    aws.String(s.bucket),
			Key:       aws.String(name),
			VersionId: v,
		})
		if err != nil {
			return fmt.Errorf("delete s3://%s/%s@%s: %w", s.bucket, name, aws.StringValue(v), err)
		}
	}
	return nil
}

// StorageClass maps a storage tier onto an S3 storage class
func StorageClass(tier model.StorageTier) string {
	switch strings.ToLower(string(tier)) {
	case "hot":
		return s3.StorageClassStandard
	case "cold":
		return s3.StorageClassGlacierIr
	case "archive":
		return s3.StorageClassDeepArchive
	default:
		return s3.StorageClassStandardIa
	}
}

func isNotFound(err error) bool {
	var aerr awserr.Error
	if errors.As(err, &aerr) {
		switch aerr.Code() {
		case s3.ErrCodeNoSuchKey, "NotFound":
			return true
		}
	}
	return false
}
