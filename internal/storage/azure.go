package storage

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
)

// AzureSink writes block blobs to an Azure Blob Storage or Data Lake container.
type AzureSink struct {
	client *azblob.Client
	desc   *Descriptor

	mu      sync.Mutex
	ensured bool
}

// NewAzureSink creates a client from the connection string. No request is
// made until the first Put.
func NewAzureSink(d *Descriptor) (*AzureSink, error) {
	client, err := azblob.NewClientFromConnectionString(d.Connection, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create azure blob client: %w", err)
	}

	return &AzureSink{client: client, desc: d}, nil
}

// EnsureContainer creates the container when it does not exist yet. A
// credential scoped to blobs may not create containers; the upload then
// reports whether the container is usable.
func (s *AzureSink) EnsureContainer(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ensured {
		return nil
	}

	_, err := s.client.CreateContainer(ctx, s.desc.Bucket, nil)
	if err != nil && !bloberror.HasCode(err,
		bloberror.ContainerAlreadyExists,
		bloberror.AuthorizationFailure,
		bloberror.AuthorizationPermissionMismatch) {
		return classifyAzureError(err)
	}

	s.ensured = true

	return nil
}

// Put uploads data as a block blob, replacing any existing blob.
func (s *AzureSink) Put(ctx context.Context, objectPath string, data []byte, contentType string, metadata map[string]string) error {
	if objectPath == "" {
		return ErrEmptyPath
	}

	if err := s.EnsureContainer(ctx); err != nil {
		return err
	}

	_, err := s.client.UploadBuffer(ctx, s.desc.Bucket, s.desc.Key(objectPath), data, &azblob.UploadBufferOptions{
		HTTPHeaders: &blob.HTTPHeaders{BlobContentType: to.Ptr(contentType)},
		Metadata:    toAzureMetadata(metadata),
	})
	if err != nil {
		return classifyAzureError(err)
	}

	return nil
}

// Get downloads a blob with its attributes.
func (s *AzureSink) Get(ctx context.Context, objectPath string) (*Object, error) {
	resp, err := s.client.DownloadStream(ctx, s.desc.Bucket, s.desc.Key(objectPath), nil)
	if err != nil {
		return nil, classifyAzureError(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read azure blob: %w", err)
	}

	obj := &Object{Data: data, Metadata: fromAzureMetadata(resp.Metadata)}
	if resp.ContentType != nil {
		obj.ContentType = *resp.ContentType
	}

	return obj, nil
}

// Location returns the container URL without credentials.
func (s *AzureSink) Location() string {
	return "azblob://" + s.desc.Account + "/" + s.desc.Bucket + "/" + s.desc.Prefix
}

// Close is a no-op; the azure client holds no resources that need releasing.
func (s *AzureSink) Close() error {
	return nil
}

// Azure metadata names must be C# identifiers, so "capture-date" is stored
// as "capture_date". The service may return names in a different case.
func toAzureMetadata(metadata map[string]string) map[string]*string {
	if len(metadata) == 0 {
		return nil
	}

	out := make(map[string]*string, len(metadata))
	for k, v := range metadata {
		out[strings.ReplaceAll(k, "-", "_")] = to.Ptr(v)
	}

	return out
}

func fromAzureMetadata(metadata map[string]*string) map[string]string {
	out := make(map[string]string, len(metadata))

	for k, v := range metadata {
		if v == nil {
			continue
		}

		out[strings.ReplaceAll(strings.ToLower(k), "_", "-")] = *v
	}

	return out
}

// classifyAzureError maps missing blobs onto ErrNotFound and labels the rest.
func classifyAzureError(err error) error {
	switch {
	case bloberror.HasCode(err, bloberror.BlobNotFound, bloberror.ContainerNotFound):
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	case bloberror.HasCode(err,
		bloberror.AuthenticationFailed,
		bloberror.AuthorizationFailure,
		bloberror.AuthorizationPermissionMismatch):
		return fmt.Errorf("azure permission denied: %w", err)
	}

	if strings.Contains(strings.ToLower(err.Error()), "connection refused") {
		return fmt.Errorf("azure endpoint unreachable: %w", err)
	}

	return fmt.Errorf("azure request failed: %w", err)
}
