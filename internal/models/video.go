// Package models defines data structures shared by the fetcher, normalizer and publisher.
package models

// DefaultDuration is reported for videos without content details.
const DefaultDuration = "PT0S"

// RankedItem is one entry of a most-popular chart page as returned by the source.
// Nested groups are optional; a nil group means the source omitted it.
type RankedItem struct {
	Snippet        *Snippet
	Statistics     *Statistics
	ContentDetails *ContentDetails
	ID             string
}

// Snippet holds the descriptive fields of a video.
type Snippet struct {
	Title        string
	ChannelID    string
	ChannelTitle string
	PublishedAt  string
	Description  string
	CategoryID   string
	// Tags is nil when the source did not send a tags field.
	Tags []string
}

// Statistics holds the public counters of a video.
type Statistics struct {
	ViewCount    uint64
	LikeCount    uint64
	CommentCount uint64
}

// ContentDetails holds content attributes of a video.
type ContentDetails struct {
	Duration string
}

// Title returns the snippet title or "".
func (r RankedItem) Title() string {
	if r.Snippet == nil {
		return ""
	}

	return r.Snippet.Title
}

// ChannelTitle returns the snippet channel title or "".
func (r RankedItem) ChannelTitle() string {
	if r.Snippet == nil {
		return ""
	}

	return r.Snippet.ChannelTitle
}

// ChannelID returns the snippet channel id or "".
func (r RankedItem) ChannelID() string {
	if r.Snippet == nil {
		return ""
	}

	return r.Snippet.ChannelID
}

// PublishedAt returns the raw publish timestamp or "".
func (r RankedItem) PublishedAt() string {
	if r.Snippet == nil {
		return ""
	}

	return r.Snippet.PublishedAt
}

// Description returns the snippet description or "".
func (r RankedItem) Description() string {
	if r.Snippet == nil {
		return ""
	}

	return r.Snippet.Description
}

// CategoryID returns the raw category code or "".
func (r RankedItem) CategoryID() string {
	if r.Snippet == nil {
		return ""
	}

	return r.Snippet.CategoryID
}

// Tags returns the tag list. The boolean is false when the field was absent,
// which is distinct from a present but empty list.
func (r RankedItem) Tags() ([]string, bool) {
	if r.Snippet == nil || r.Snippet.Tags == nil {
		return nil, false
	}

	return r.Snippet.Tags, true
}

// ViewCount returns the view counter, 0 when statistics are absent.
func (r RankedItem) ViewCount() uint64 {
	if r.Statistics == nil {
		return 0
	}

	return r.Statistics.ViewCount
}

// LikeCount returns the like counter, 0 when statistics are absent.
func (r RankedItem) LikeCount() uint64 {
	if r.Statistics == nil {
		return 0
	}

	return r.Statistics.LikeCount
}

// CommentCount returns the comment counter, 0 when statistics are absent.
func (r RankedItem) CommentCount() uint64 {
	if r.Statistics == nil {
		return 0
	}

	return r.Statistics.CommentCount
}

// Duration returns the ISO-8601 duration code, DefaultDuration when absent.
func (r RankedItem) Duration() string {
	if r.ContentDetails == nil || r.ContentDetails.Duration == "" {
		return DefaultDuration
	}

	return r.ContentDetails.Duration
}
