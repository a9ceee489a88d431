package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioSink writes objects to MinIO or any S3 compatible store.
type MinioSink struct {
	client *minio.Client
	desc   *Descriptor

	mu      sync.Mutex
	ensured bool
}

// NewMinioSink creates a client from static credentials. No request is made
// until the first Put.
func NewMinioSink(d *Descriptor) (*MinioSink, error) {
	client, err := minio.New(d.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(d.AccessKey, d.SecretKey, ""),
		Secure: d.Secure,
		Region: d.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	return &MinioSink{client: client, desc: d}, nil
}

// EnsureBucket creates the bucket when it does not exist yet.
func (s *MinioSink) EnsureBucket(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ensured {
		return nil
	}

	exists, err := s.client.BucketExists(ctx, s.desc.Bucket)
	if err != nil {
		return classifyMinioError(err)
	}

	if !exists {
		err = s.client.MakeBucket(ctx, s.desc.Bucket, minio.MakeBucketOptions{Region: s.desc.Region})
		if err != nil {
			return classifyMinioError(err)
		}
	}

	s.ensured = true

	return nil
}

// Put uploads data, replacing any existing object.
func (s *MinioSink) Put(ctx context.Context, objectPath string, data []byte, contentType string, metadata map[string]string) error {
	if objectPath == "" {
		return ErrEmptyPath
	}

	if err := s.EnsureBucket(ctx); err != nil {
		return err
	}

	_, err := s.client.PutObject(ctx, s.desc.Bucket, s.desc.Key(objectPath),
		bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{
			ContentType:  contentType,
			UserMetadata: metadata,
		})
	if err != nil {
		return classifyMinioError(err)
	}

	return nil
}

// Get downloads an object with its attributes.
func (s *MinioSink) Get(ctx context.Context, objectPath string) (*Object, error) {
	obj, err := s.client.GetObject(ctx, s.desc.Bucket, s.desc.Key(objectPath), minio.GetObjectOptions{})
	if err != nil {
		return nil, classifyMinioError(err)
	}
	defer obj.Close()

	info, err := obj.Stat()
	if err != nil {
		return nil, classifyMinioError(err)
	}

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, classifyMinioError(err)
	}

	return &Object{Data: data, ContentType: info.ContentType, Metadata: info.UserMetadata}, nil
}

// Location returns the bucket URL without credentials.
func (s *MinioSink) Location() string {
	return "s3://" + s.desc.Endpoint + "/" + s.desc.Bucket + "/" + s.desc.Prefix
}

// Close is a no-op; the minio client holds no resources that need releasing.
func (s *MinioSink) Close() error {
	return nil
}

// classifyMinioError maps missing objects onto ErrNotFound and labels the rest.
func classifyMinioError(err error) error {
	resp := minio.ToErrorResponse(err)

	switch resp.Code {
	case "NoSuchKey", "NoSuchBucket":
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	case "AccessDenied", "InvalidAccessKeyId", "SignatureDoesNotMatch":
		return fmt.Errorf("s3 permission denied: %w", err)
	}

	if strings.Contains(strings.ToLower(err.Error()), "connection refused") {
		return fmt.Errorf("s3 endpoint unreachable: %w", err)
	}

	return fmt.Errorf("s3 request failed: %w", err)
}
