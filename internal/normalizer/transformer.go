package normalizer

import (
	"strconv"
	"strings"

	"ytrends/internal/models"
)

// Transformer maps raw ranked items onto output rows.
type Transformer struct{}

// NewTransformer creates a new transformer instance.
func NewTransformer() *Transformer {
	return &Transformer{}
}

// Transform builds one row per item. Rank is the 1-based arrival position;
// no item is skipped and malformed fields fall back to their defaults.
func (t *Transformer) Transform(partitionKey string, items []models.RankedItem, captureDate string) []models.OutputRow {
	rows := make([]models.OutputRow, 0, len(items))

	for i, item := range items {
		tags, _ := item.Tags()

		rows = append(rows, models.OutputRow{
			VideoID:      item.ID,
			Title:        SanitizeText(item.Title()),
			ChannelTitle: SanitizeText(item.ChannelTitle()),
			ChannelID:    item.ChannelID(),
			PublishedAt:  item.PublishedAt(),
			Description:  SanitizeText(item.Description()),
			Tags:         SanitizeTagList(tags),
			CategoryID:   parseCategory(item.CategoryID()),
			Duration:     item.Duration(),
			ViewCount:    item.ViewCount(),
			LikeCount:    item.LikeCount(),
			CommentCount: item.CommentCount(),
			TrendingDate: captureDate,
			Rank:         i + 1,
			CountryCode:  partitionKey,
		})
	}

	return rows
}

// parseCategory returns the numeric category code, 0 when absent or malformed.
func parseCategory(raw string) int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}

	val, err := strconv.Atoi(raw)
	if err != nil || val < 0 {
		return 0
	}

	return val
}
