// Package metadata stamps published artifacts with a content hash and run details
// and verifies them afterwards.
package metadata

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Metadata keys as stored on the blob.
const (
	KeyHash        = "sha256"
	KeyPartition   = "partition"
	KeyCaptureDate = "capture-date"
	KeyRunID       = "run-id"
	KeyRows        = "rows"
	KeyGeneratedAt = "generated-at"
)

// Metadata verification errors.
var (
	ErrNoMetadata   = errors.New("no metadata found")
	ErrNoHashFound  = errors.New("no hash found in metadata")
	ErrHashMismatch = errors.New("hash mismatch")
)

// Metadata describes one published artifact.
type Metadata struct {
	GeneratedAt time.Time
	Partition   string
	CaptureDate string
	RunID       string
	Hash        string
	Rows        int
}

// CalculateHash computes the SHA-256 hash of the artifact bytes.
func CalculateHash(data []byte) string {
	hash := sha256.Sum256(data)

	return hex.EncodeToString(hash[:])
}

// Sign fills in the hash and timestamp for data.
func Sign(data []byte, meta Metadata) Metadata {
	meta.Hash = CalculateHash(data)

	if meta.GeneratedAt.IsZero() {
		meta.GeneratedAt = time.Now().UTC()
	}

	return meta
}

// ToMap flattens the metadata into blob user metadata. Empty fields are omitted.
func (m Metadata) ToMap() map[string]string {
	out := map[string]string{
		KeyHash: m.Hash,
		KeyRows: strconv.Itoa(m.Rows),
	}

	if m.Partition != "" {
		out[KeyPartition] = m.Partition
	}

	if m.CaptureDate != "" {
		out[KeyCaptureDate] = m.CaptureDate
	}

	if m.RunID != "" {
		out[KeyRunID] = m.RunID
	}

	if !m.GeneratedAt.IsZero() {
		out[KeyGeneratedAt] = m.GeneratedAt.UTC().Format(time.RFC3339)
	}

	return out
}

// FromMap reads metadata back from a blob. Keys match case-insensitively
// because some stores canonicalize header names.
func FromMap(values map[string]string) (*Metadata, error) {
	if len(values) == 0 {
		return nil, ErrNoMetadata
	}

	meta := &Metadata{}

	for key, val := range values {
		val = strings.TrimSpace(val)

		switch strings.ToLower(key) {
		case KeyHash:
			meta.Hash = val
		case KeyPartition:
			meta.Partition = val
		case KeyCaptureDate:
			meta.CaptureDate = val
		case KeyRunID:
			meta.RunID = val
		case KeyRows:
			if n, err := strconv.Atoi(val); err == nil {
				meta.Rows = n
			}
		case KeyGeneratedAt:
			if t, err := time.Parse(time.RFC3339, val); err == nil {
				meta.GeneratedAt = t
			}
		}
	}

	return meta, nil
}

// Verify checks that data matches the hash recorded in its metadata.
func Verify(data []byte, values map[string]string) (bool, error) {
	meta, err := FromMap(values)
	if err != nil {
		return false, err
	}

	if meta.Hash == "" {
		return false, ErrNoHashFound
	}

	calculated := CalculateHash(data)
	if calculated != meta.Hash {
		return false, fmt.Errorf("%w: expected %s, got %s", ErrHashMismatch, meta.Hash, calculated)
	}

	return true, nil
}
