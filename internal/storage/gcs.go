package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// GCSSink writes objects to a Google Cloud Storage bucket.
type GCSSink struct {
	client *gcs.Client
	desc   *Descriptor
}

// NewGCSSink creates a client with application default credentials. An
// endpoint in the descriptor points the client at an emulator without auth.
func NewGCSSink(ctx context.Context, d *Descriptor) (*GCSSink, error) {
	var opts []option.ClientOption
	if d.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(d.Endpoint), option.WithoutAuthentication())
	}

	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create gcs client: %w", err)
	}

	return &GCSSink{client: client, desc: d}, nil
}

// Put uploads data, replacing any existing object.
func (s *GCSSink) Put(ctx context.Context, objectPath string, data []byte, contentType string, metadata map[string]string) error {
	if objectPath == "" {
		return ErrEmptyPath
	}

	w := s.client.Bucket(s.desc.Bucket).Object(s.desc.Key(objectPath)).NewWriter(ctx)
	w.ContentType = contentType
	w.Metadata = metadata

	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("failed to write gcs object: %w", err)
	}

	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to finalize gcs object: %w", err)
	}

	return nil
}

// Get downloads an object with its attributes.
func (s *GCSSink) Get(ctx context.Context, objectPath string) (*Object, error) {
	obj := s.client.Bucket(s.desc.Bucket).Object(s.desc.Key(objectPath))

	attrs, err := obj.Attrs(ctx)
	if err != nil {
		if errors.Is(err, gcs.ErrObjectNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, objectPath)
		}

		return nil, fmt.Errorf("failed to stat gcs object: %w", err)
	}

	r, err := obj.NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open gcs object: %w", err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read gcs object: %w", err)
	}

	return &Object{Data: data, ContentType: attrs.ContentType, Metadata: attrs.Metadata}, nil
}

// Location returns the bucket URL.
func (s *GCSSink) Location() string {
	return "gs://" + s.desc.Bucket + "/" + s.desc.Prefix
}

// Close releases the client.
func (s *GCSSink) Close() error {
	return s.client.Close()
}
