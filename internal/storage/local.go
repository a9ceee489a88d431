package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

const sidecarSuffix = ".meta.json"

// LocalSink stores objects as files under BaseDir/<container>.
type LocalSink struct {
	BaseDir string
	desc    *Descriptor
}

type sidecar struct {
	Metadata    map[string]string `json:"metadata,omitempty"`
	ContentType string            `json:"contentType,omitempty"`
}

// NewLocalSink creates the container directory if needed.
func NewLocalSink(d *Descriptor) (*LocalSink, error) {
	base := filepath.Join(d.Dir, d.Bucket)
	if err := os.MkdirAll(base, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory %s: %w", base, err)
	}

	return &LocalSink{BaseDir: base, desc: d}, nil
}

// Put writes data through a temp file and rename so readers never see a
// partial artifact. Attributes go to a sidecar file next to it.
func (s *LocalSink) Put(ctx context.Context, objectPath string, data []byte, contentType string, metadata map[string]string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	target, err := s.resolve(objectPath)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", objectPath, err)
	}

	if err := writeAtomic(target, data); err != nil {
		return err
	}

	meta, err := json.Marshal(sidecar{Metadata: metadata, ContentType: contentType})
	if err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}

	return writeAtomic(target+sidecarSuffix, meta)
}

// Get reads an object and its sidecar.
func (s *LocalSink) Get(ctx context.Context, objectPath string) (*Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	target, err := s.resolve(objectPath)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(target)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, objectPath)
		}

		return nil, fmt.Errorf("failed to read %s: %w", objectPath, err)
	}

	obj := &Object{Data: data}

	if raw, err := os.ReadFile(target + sidecarSuffix); err == nil {
		var sc sidecar
		if err := json.Unmarshal(raw, &sc); err != nil {
			return nil, fmt.Errorf("failed to decode metadata for %s: %w", objectPath, err)
		}

		obj.Metadata = sc.Metadata
		obj.ContentType = sc.ContentType
	}

	return obj, nil
}

// Location returns the directory objects are written to.
func (s *LocalSink) Location() string {
	return "file://" + filepath.ToSlash(s.BaseDir)
}

// Close is a no-op.
func (s *LocalSink) Close() error {
	return nil
}

// resolve maps an object path into BaseDir, refusing paths that escape it.
func (s *LocalSink) resolve(objectPath string) (string, error) {
	if objectPath == "" {
		return "", ErrEmptyPath
	}

	target := filepath.Join(s.BaseDir, filepath.FromSlash(s.desc.Key(objectPath)))

	rel, err := filepath.Rel(s.BaseDir, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q escapes the storage directory", ErrInvalidDescriptor, objectPath)
	}

	return target, nil
}

func writeAtomic(target string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(target), ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}

	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)

		return fmt.Errorf("failed to write %s: %w", target, err)
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close %s: %w", target, err)
	}

	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace %s: %w", target, err)
	}

	return nil
}
