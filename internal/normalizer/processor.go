// Package normalizer turns raw ranked items into sanitized, rank-stamped rows.
package normalizer

import (
	"fmt"

	"ytrends/internal/models"
)

// Processor handles data processing and transformation.
type Processor struct {
	validator   *Validator
	transformer *Transformer
}

// NewProcessor creates a new processor instance for the given quota.
func NewProcessor(quota int) *Processor {
	return &Processor{
		validator:   NewValidator(quota),
		transformer: NewTransformer(),
	}
}

// Process transforms the items of one partition and validates the result.
func (p *Processor) Process(partitionKey string, items []models.RankedItem, captureDate string) ([]models.OutputRow, error) {
	rows := p.transformer.Transform(partitionKey, items, captureDate)

	if err := p.validator.Validate(partitionKey, captureDate, rows); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	return rows, nil
}
