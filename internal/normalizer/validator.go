package normalizer

import (
	"errors"
	"fmt"
	"strings"

	"ytrends/internal/models"
)

// Validation errors.
var (
	ErrRankGap             = errors.New("ranks are not contiguous from 1")
	ErrMixedPartition      = errors.New("row belongs to another partition")
	ErrMixedCaptureDate    = errors.New("row carries another capture date")
	ErrUnsafeCharacter     = errors.New("field contains newline or double quote")
	ErrQuotaExceeded       = errors.New("partition result exceeds quota")
	ErrMissingPartitionKey = errors.New("missing partition key")
)

// Validator checks that rows are safe to serialize as one partition.
type Validator struct {
	quota int
}

// NewValidator creates a validator. A quota <= 0 disables the length check.
func NewValidator(quota int) *Validator {
	return &Validator{quota: quota}
}

// Validate checks rank contiguity, partition and date consistency and text safety.
func (v *Validator) Validate(partitionKey, captureDate string, rows []models.OutputRow) error {
	if partitionKey == "" {
		return ErrMissingPartitionKey
	}

	if v.quota > 0 && len(rows) > v.quota {
		return fmt.Errorf("%w: %d > %d", ErrQuotaExceeded, len(rows), v.quota)
	}

	for i, row := range rows {
		if row.Rank != i+1 {
			return fmt.Errorf("%w at index %d: rank %d", ErrRankGap, i, row.Rank)
		}

		if row.CountryCode != partitionKey {
			return fmt.Errorf("%w at index %d: %s", ErrMixedPartition, i, row.CountryCode)
		}

		if row.TrendingDate != captureDate {
			return fmt.Errorf("%w at index %d: %s", ErrMixedCaptureDate, i, row.TrendingDate)
		}

		for name, value := range map[string]string{
			"title":         row.Title,
			"channel_title": row.ChannelTitle,
			"description":   row.Description,
			"tags":          row.Tags,
		} {
			if strings.ContainsAny(value, "\n\"") {
				return fmt.Errorf("%w at index %d: %s", ErrUnsafeCharacter, i, name)
			}
		}
	}

	return nil
}
