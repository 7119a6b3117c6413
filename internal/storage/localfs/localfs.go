// Package localfs backs the source, archive and output stores with local
// directories. Each container is a directory under Root.
package localfs

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go-cloud-etl/internal/model"
	"go-cloud-etl/internal/storage"
)

var ErrPathInvalid = errors.New("localfs: path escapes root")

// Store is a directory-backed ObjectStore and OutputStore
type Store struct {
	root      string
	container string
}

var (
	_ storage.ObjectStore = (*Store)(nil)
	_ storage.OutputStore = (*Store)(nil)
)

// New returns a store rooted at root. container is the directory the
// ObjectStore methods operate on; Write resolves paths against root.
func New(root, container string) (*Store, error) {
	if strings.TrimSpace(root) == "" {
		return nil, os.ErrInvalid
	}
	return &Store{root: root, container: container}, nil
}

func (s *Store) resolve(container, name string) (string, error) {
	rel := filepath.Clean(filepath.FromSlash(name))
	if rel == "." || rel == "" || filepath.IsAbs(rel) ||
		rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", ErrPathInvalid
	}
	return filepath.Join(s.root, container, rel), nil
}

// List walks the container directory. Creation time is the file's mtime.
func (s *Store) List(ctx context.Context, prefix string) ([]model.SourceObject, error) {
	dir := filepath.Join(s.root, s.container)
	var out []model.SourceObject
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".tmp-") {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		name := filepath.ToSlash(rel)
		if !strings.HasPrefix(name, prefix) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		out = append(out, model.SourceObject{Name: name, CreatedAt: info.ModTime().UTC(), Size: info.Size()})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("localfs: list %s: %w", dir, err)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Read implements storage.ObjectStore
func (s *Store) Read(ctx context.Context, name string) ([]byte, error) {
	path, err := s.resolve(s.container, name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path) // #nosec G304 - path is confined to root
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, name)
	}
	return data, err
}

// Copy duplicates the file into destContainer. Local directories have no
// access tiers, so tier is ignored.
func (s *Store) Copy(ctx context.Context, name, destContainer string, tier model.StorageTier) error {
	data, err := s.Read(ctx, name)
	if err != nil {
		return err
	}
	dest, err := s.resolve(destContainer, name)
	if err != nil {
		return err
	}
	return writeAtomic(dest, data)
}

// Delete removes the file. Snapshots do not exist on a local filesystem.
func (s *Store) Delete(ctx context.Context, name string, includeSnapshots bool) error {
	path, err := s.resolve(s.container, name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", storage.ErrNotFound, name)
		}
		return err
	}
	return nil
}

// Write implements storage.OutputStore
func (s *Store) Write(ctx context.Context, path string, data []byte, overwrite bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dest, err := s.resolve("", path)
	if err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(dest); err == nil {
			return fmt.Errorf("localfs: %s already exists", path)
		}
	}
	return writeAtomic(dest, data)
}

// writeAtomic writes to a temp file in the target directory and renames it
// over dest.
func writeAtomic(dest string, data []byte) error {
	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	return nil
}
