package normalizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ytrends/internal/models"
)

const testDate = "2026-10-18"

func fullItem(id string) models.RankedItem {
	return models.RankedItem{
		ID: id,
		Snippet: &models.Snippet{
			Title:        "Big \"news\"\ntoday",
			ChannelID:    "UC123",
			ChannelTitle: "  Channel  One ",
			PublishedAt:  "2026-10-17T08:00:00Z",
			Description:  "line one\nline two",
			CategoryID:   "24",
			Tags:         []string{"music", "live show"},
		},
		Statistics: &models.Statistics{ViewCount: 1000, LikeCount: 50, CommentCount: 7},
		ContentDetails: &models.ContentDetails{
			Duration: "PT4M13S",
		},
	}
}

func TestTransformer_Transform(t *testing.T) {
	tr := NewTransformer()

	rows := tr.Transform("US", []models.RankedItem{fullItem("vid1")}, testDate)
	require.Len(t, rows, 1)

	want := models.OutputRow{
		VideoID:      "vid1",
		Title:        "Big news today",
		ChannelTitle: "Channel One",
		ChannelID:    "UC123",
		PublishedAt:  "2026-10-17T08:00:00Z",
		Description:  "line one line two",
		Tags:         "music | live show",
		CategoryID:   24,
		Duration:     "PT4M13S",
		ViewCount:    1000,
		LikeCount:    50,
		CommentCount: 7,
		TrendingDate: testDate,
		Rank:         1,
		CountryCode:  "US",
	}
	assert.Equal(t, want, rows[0])
	assert.Len(t, rows[0].Record(), len(models.Header))
}

func TestTransformer_RanksFollowInputOrder(t *testing.T) {
	tr := NewTransformer()

	items := []models.RankedItem{
		{ID: "e"}, {ID: "d"}, fullItem("c"), {ID: "b"}, {ID: "a"},
	}

	rows := tr.Transform("JP", items, testDate)
	require.Len(t, rows, 5)

	for i, row := range rows {
		assert.Equal(t, i+1, row.Rank)
		assert.Equal(t, items[i].ID, row.VideoID)
	}
}

func TestTransformer_MissingGroupsDefault(t *testing.T) {
	tr := NewTransformer()

	items := []models.RankedItem{
		{ID: "bare"},
		{ID: "snippet-only", Snippet: &models.Snippet{Title: "t", CategoryID: "abc"}},
		{ID: "empty-tags", Snippet: &models.Snippet{Tags: []string{}}},
		{ID: "empty-duration", ContentDetails: &models.ContentDetails{}},
	}

	rows := tr.Transform("DE", items, testDate)
	require.Len(t, rows, 4)

	for _, row := range rows {
		assert.Zero(t, row.ViewCount)
		assert.Zero(t, row.LikeCount)
		assert.Zero(t, row.CommentCount)
		assert.Zero(t, row.CategoryID)
		assert.Equal(t, models.DefaultDuration, row.Duration)
		assert.Equal(t, TagPlaceholder, row.Tags)
	}

	assert.Equal(t, "t", rows[1].Title)
	assert.Equal(t, "", rows[0].Title)
}

func TestTransformer_EmptyInput(t *testing.T) {
	rows := NewTransformer().Transform("FR", nil, testDate)
	assert.NotNil(t, rows)
	assert.Empty(t, rows)
}

func TestParseCategory(t *testing.T) {
	assert.Equal(t, 10, parseCategory("10"))
	assert.Equal(t, 10, parseCategory(" 10 "))
	assert.Equal(t, 0, parseCategory(""))
	assert.Equal(t, 0, parseCategory("music"))
	assert.Equal(t, 0, parseCategory("-3"))
}
