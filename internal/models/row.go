package models

import "strconv"

// Header is the fixed column set of every published artifact.
var Header = []string{
	"VIDEO_ID",
	"TITLE",
	"CHANNEL_TITLE",
	"CHANNEL_ID",
	"PUBLISHED_AT",
	"DESCRIPTION",
	"TAGS",
	"CATEGORY_ID",
	"DURATION",
	"VIEW_COUNT",
	"LIKE_COUNT",
	"COMMENT_COUNT",
	"TRENDING_DATE",
	"TRENDING_DATE_RANK",
	"COUNTRY_CODE",
}

// OutputRow is the flattened, sanitized form of a RankedItem plus run metadata.
type OutputRow struct {
	VideoID      string
	Title        string
	ChannelTitle string
	ChannelID    string
	PublishedAt  string
	Description  string
	Tags         string
	Duration     string
	TrendingDate string
	CountryCode  string
	CategoryID   int
	ViewCount    uint64
	LikeCount    uint64
	CommentCount uint64
	Rank         int
}

// Record returns the row as strings in Header order.
func (r OutputRow) Record() []string {
	return []string{
		r.VideoID,
		r.Title,
		r.ChannelTitle,
		r.ChannelID,
		r.PublishedAt,
		r.Description,
		r.Tags,
		strconv.Itoa(r.CategoryID),
		r.Duration,
		strconv.FormatUint(r.ViewCount, 10),
		strconv.FormatUint(r.LikeCount, 10),
		strconv.FormatUint(r.CommentCount, 10),
		r.TrendingDate,
		strconv.Itoa(r.Rank),
		r.CountryCode,
	}
}
