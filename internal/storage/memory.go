package storage

import (
	"context"
	"fmt"
	"maps"
	"sort"
	"sync"
)

// MemorySink keeps objects in process memory. Used for dry runs and tests.
type MemorySink struct {
	objects   map[string]*Object
	container string
	mu        sync.RWMutex
	puts      int
}

// NewMemorySink creates an empty in-memory sink.
func NewMemorySink(container string) *MemorySink {
	return &MemorySink{
		objects:   make(map[string]*Object),
		container: container,
	}
}

// Put stores a copy of data, replacing any existing object.
func (s *MemorySink) Put(ctx context.Context, objectPath string, data []byte, contentType string, metadata map[string]string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if objectPath == "" {
		return ErrEmptyPath
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.objects[objectPath] = &Object{
		Data:        append([]byte(nil), data...),
		ContentType: contentType,
		Metadata:    maps.Clone(metadata),
	}
	s.puts++

	return nil
}

// Get returns a copy of the stored object.
func (s *MemorySink) Get(ctx context.Context, objectPath string) (*Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	obj, ok := s.objects[objectPath]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, objectPath)
	}

	return &Object{
		Data:        append([]byte(nil), obj.Data...),
		ContentType: obj.ContentType,
		Metadata:    maps.Clone(obj.Metadata),
	}, nil
}

// Paths lists stored object paths in sorted order.
func (s *MemorySink) Paths() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	paths := make([]string, 0, len(s.objects))
	for p := range s.objects {
		paths = append(paths, p)
	}

	sort.Strings(paths)

	return paths
}

// Puts returns how many writes the sink has accepted.
func (s *MemorySink) Puts() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.puts
}

// Location identifies the sink.
func (s *MemorySink) Location() string {
	return "mem://" + s.container
}

// Close is a no-op.
func (s *MemorySink) Close() error {
	return nil
}
