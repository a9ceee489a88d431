// Package storage provides the blob sinks artifacts are published to.
package storage

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strconv"
	"strings"
)

// Supported descriptor schemes.
const (
	SchemeGCS    = "gs"
	SchemeS3     = "s3"
	SchemeFile   = "file"
	SchemeMemory = "mem"
	SchemeAzure  = "azblob"
)

// Storage errors.
var (
	ErrNotFound          = errors.New("object not found")
	ErrInvalidDescriptor = errors.New("invalid storage connection descriptor")
	ErrUnsupportedScheme = errors.New("unsupported storage scheme")
	ErrEmptyPath         = errors.New("object path is required")
)

// Object is a stored blob together with its attributes.
type Object struct {
	Metadata    map[string]string
	ContentType string
	Data        []byte
}

// Sink stores blobs by path. Put always replaces an existing object.
type Sink interface {
	Put(ctx context.Context, path string, data []byte, contentType string, metadata map[string]string) error
	Get(ctx context.Context, path string) (*Object, error)
	Location() string
	Close() error
}

// Descriptor is a parsed storage connection string.
type Descriptor struct {
	Scheme    string
	Bucket    string
	Prefix    string
	Endpoint  string
	AccessKey string
	SecretKey string
	Region    string
	Dir       string
	Secure    bool

	// Connection is the raw Azure connection string; Account is its AccountName.
	Connection string
	Account    string
}

// ParseDescriptor parses a connection string of the form
//
//	gs://bucket[/prefix][?endpoint=url]
//	s3://ACCESS_KEY:SECRET_KEY@host[:port]/bucket[/prefix][?secure=false&region=r]
//	file:///abs/dir
//	mem://
//	DefaultEndpointsProtocol=https;AccountName=...;AccountKey=...;EndpointSuffix=...
//
// The last form is an Azure storage connection string. container is used when
// the descriptor names no bucket.
func ParseDescriptor(raw, container string) (*Descriptor, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidDescriptor)
	}

	if isConnectionString(raw) {
		return parseAzureConnection(raw, container)
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDescriptor, err)
	}

	d := &Descriptor{Scheme: strings.ToLower(u.Scheme), Bucket: container}
	query := u.Query()

	switch d.Scheme {
	case SchemeGCS:
		if u.Host != "" {
			d.Bucket = u.Host
		}

		d.Prefix = cleanPrefix(u.Path)
		d.Endpoint = query.Get("endpoint")

	case SchemeS3:
		if u.Host == "" {
			return nil, fmt.Errorf("%w: s3 descriptor needs a host", ErrInvalidDescriptor)
		}

		if u.User == nil {
			return nil, fmt.Errorf("%w: s3 descriptor needs credentials", ErrInvalidDescriptor)
		}

		d.Endpoint = u.Host
		d.AccessKey = u.User.Username()
		d.SecretKey, _ = u.User.Password()

		if d.AccessKey == "" || d.SecretKey == "" {
			return nil, fmt.Errorf("%w: s3 descriptor needs access and secret key", ErrInvalidDescriptor)
		}

		bucket, prefix, _ := strings.Cut(strings.Trim(u.Path, "/"), "/")
		if bucket != "" {
			d.Bucket = bucket
		}

		d.Prefix = cleanPrefix(prefix)
		d.Region = query.Get("region")
		d.Secure = true

		if s := query.Get("secure"); s != "" {
			secure, err := strconv.ParseBool(s)
			if err != nil {
				return nil, fmt.Errorf("%w: secure=%q", ErrInvalidDescriptor, s)
			}

			d.Secure = secure
		}

	case SchemeFile:
		d.Dir = u.Host + u.Path
		if d.Dir == "" {
			return nil, fmt.Errorf("%w: file descriptor needs a directory", ErrInvalidDescriptor)
		}

	case SchemeMemory:

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
	}

	if d.Bucket == "" {
		return nil, fmt.Errorf("%w: no bucket or container", ErrInvalidDescriptor)
	}

	return d, nil
}

// Key joins the descriptor prefix with an object path.
func (d *Descriptor) Key(objectPath string) string {
	if d.Prefix == "" {
		return objectPath
	}

	return path.Join(d.Prefix, objectPath)
}

// Open parses the descriptor and connects the matching sink.
func Open(ctx context.Context, raw, container string) (Sink, error) {
	d, err := ParseDescriptor(raw, container)
	if err != nil {
		return nil, err
	}

	switch d.Scheme {
	case SchemeGCS:
		return NewGCSSink(ctx, d)
	case SchemeS3:
		return NewMinioSink(d)
	case SchemeFile:
		return NewLocalSink(d)
	case SchemeAzure:
		return NewAzureSink(d)
	default:
		return NewMemorySink(d.Bucket), nil
	}
}

// isConnectionString reports whether raw looks like key=value;key=value
// rather than a URL. Values such as BlobEndpoint may themselves be URLs.
func isConnectionString(raw string) bool {
	first, _, found := strings.Cut(raw, ";")
	if !found {
		return false
	}

	key, _, ok := strings.Cut(first, "=")

	return ok && key != "" && !strings.ContainsAny(key, ":/?")
}

func parseAzureConnection(raw, container string) (*Descriptor, error) {
	fields := make(map[string]string)

	for _, part := range strings.Split(raw, ";") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok || key == "" {
			continue
		}

		fields[strings.ToLower(key)] = value
	}

	d := &Descriptor{
		Scheme:     SchemeAzure,
		Bucket:     container,
		Connection: raw,
		Account:    fields["accountname"],
	}

	switch {
	case d.Account != "" && fields["accountkey"] != "":
	case fields["blobendpoint"] != "" && fields["sharedaccesssignature"] != "":
	default:
		return nil, fmt.Errorf("%w: azure connection string needs AccountName and AccountKey, or BlobEndpoint and SharedAccessSignature", ErrInvalidDescriptor)
	}

	if d.Bucket == "" {
		return nil, fmt.Errorf("%w: no bucket or container", ErrInvalidDescriptor)
	}

	return d, nil
}

func cleanPrefix(p string) string {
	return strings.Trim(p, "/")
}
