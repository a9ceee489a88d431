package normalizer

import (
	"fmt"
	"strings"

	"ytrends/pkg/utils"
)

// TagPlaceholder is written when a video carries no tags.
const TagPlaceholder = "N/A"

// TagDelimiter separates tags inside the TAGS column.
const TagDelimiter = " | "

// unsafeReplacer maps characters that break minimal-quoting CSV onto spaces.
var unsafeReplacer = strings.NewReplacer("\n", " ", `"`, " ")

// SanitizeText converts value to text, replaces newlines and double quotes with
// spaces and collapses whitespace. The result never contains '\n' or '"'.
func SanitizeText(value any) string {
	var s string

	switch v := value.(type) {
	case nil:
		return ""
	case string:
		s = v
	default:
		s = fmt.Sprint(v)
	}

	return utils.NormalizeWhitespace(unsafeReplacer.Replace(s))
}

// SanitizeTagList sanitizes each tag and joins them with TagDelimiter.
// A nil or empty list yields TagPlaceholder.
func SanitizeTagList(tags []string) string {
	if len(tags) == 0 {
		return TagPlaceholder
	}

	cleaned := make([]string, len(tags))
	for i, tag := range tags {
		cleaned[i] = SanitizeText(tag)
	}

	return strings.Join(cleaned, TagDelimiter)
}
