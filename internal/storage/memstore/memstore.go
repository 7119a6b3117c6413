// Package memstore is an in-memory ObjectStore and OutputStore.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go-cloud-etl/internal/model"
	"go-cloud-etl/internal/storage"
)

// Object is a stored blob
type Object struct {
	Data      []byte
	CreatedAt time.Time
	Tier      model.StorageTier
	Snapshots int
}

// Op is one recorded store call
type Op struct {
	Kind string
	Name string
}

// Store holds containers of objects. The zero value is not usable; use New.
type Store struct {
	mu         sync.RWMutex
	container  string
	containers map[string]map[string]*Object
	ops        []Op

	// Fail makes the named operation ("list", "read", "copy", "delete",
	// "write") fail for the given object name.
	Fail map[string]string
}

var (
	_ storage.ObjectStore = (*Store)(nil)
	_ storage.OutputStore = (*Store)(nil)
)

// New returns a store bound to container for List/Read/Copy/Delete
func New(container string) *Store {
	return &Store{
		container:  container,
		containers: map[string]map[string]*Object{container: {}},
		Fail:       map[string]string{},
	}
}

// Put stores an object in container
func (s *Store) Put(container, name string, data []byte, created time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.ensure(container)
	c[name] = &Object{Data: append([]byte(nil), data...), CreatedAt: created, Tier: model.TierHot}
}

// Get returns an object from container
func (s *Store) Get(container, name string) (*Object, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.containers[container][name]
	return obj, ok
}

// Names lists object names in container, sorted
func (s *Store) Names(container string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.containers[container]))
	for n := range s.containers[container] {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Ops returns the calls made so far
func (s *Store) Ops() []Op {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Op(nil), s.ops...)
}

// CountOps counts recorded calls of one kind
func (s *Store) CountOps(kind string) int {
	n := 0
	for _, op := range s.Ops() {
		if op.Kind == kind {
			n++
		}
	}
	return n
}

func (s *Store) ensure(container string) map[string]*Object {
	c, ok := s.containers[container]
	if !ok {
		c = map[string]*Object{}
		s.containers[container] = c
	}
	return c
}

func (s *Store) record(ctx context.Context, kind, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.ops = append(s.ops, Op{Kind: kind, Name: name})
	if target, ok := s.Fail[kind]; ok && (target == "" || target == name) {
		return fmt.Errorf("memstore: injected %s failure for %q", kind, name)
	}
	return nil
}

// List implements storage.ObjectStore
func (s *Store) List(ctx context.Context, prefix string) ([]model.SourceObject, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record(ctx, "list", prefix); err != nil {
		return nil, err
	}
	var out []model.SourceObject
	for name, obj := range s.containers[s.container] {
		if strings.HasPrefix(name, prefix) {
			out = append(out, model.SourceObject{Name: name, CreatedAt: obj.CreatedAt, Size: int64(len(obj.Data))})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Read implements storage.ObjectStore
func (s *Store) Read(ctx context.Context, name string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record(ctx, "read", name); err != nil {
		return nil, err
	}
	obj, ok := s.containers[s.container][name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, name)
	}
	return append([]byte(nil), obj.Data...), nil
}

// Copy implements storage.ObjectStore
func (s *Store) Copy(ctx context.Context, name, destContainer string, tier model.StorageTier) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record(ctx, "copy", name); err != nil {
		return err
	}
	obj, ok := s.containers[s.container][name]
	if !ok {
		return fmt.Errorf("%w: %s", storage.ErrNotFound, name)
	}
	s.ensure(destContainer)[name] = &Object{
		Data:      append([]byte(nil), obj.Data...),
		CreatedAt: obj.CreatedAt,
		Tier:      tier,
	}
	return nil
}

// Delete implements storage.ObjectStore
func (s *Store) Delete(ctx context.Context, name string, includeSnapshots bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record(ctx, "delete", name); err != nil {
		return err
	}
	obj, ok := s.containers[s.container][name]
	if !ok {
		return fmt.Errorf("%w: %s", storage.ErrNotFound, name)
	}
	if obj.Snapshots > 0 && !includeSnapshots {
		return fmt.Errorf("memstore: %s has %d snapshots", name, obj.Snapshots)
	}
	delete(s.containers[s.container], name)
	return nil
}

// Write implements storage.OutputStore. Paths are stored in the "output"
// container keyed by full path.
func (s *Store) Write(ctx context.Context, path string, data []byte, overwrite bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record(ctx, "write", path); err != nil {
		return err
	}
	c := s.ensure(OutputContainer)
	if _, exists := c[path]; exists && !overwrite {
		return fmt.Errorf("memstore: %s already exists", path)
	}
	c[path] = &Object{Data: append([]byte(nil), data...), CreatedAt: time.Now().UTC()}
	return nil
}

// OutputContainer holds everything written through Write
const OutputContainer = "output"
