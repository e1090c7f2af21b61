// Package content holds the normalization helpers shared by the widget
// structured-content builders.
package content

import (
	"math"
	"net/url"
	"strings"
	"time"

	"cityquest-mcp-service/pkg/schema"
)

// List caps applied by the builders
const (
	MaxBadges     = 6
	MaxHighlights = 8
)

// Clock supplies the wall-clock time for timestamp fields
type Clock func() time.Time

// SystemClock returns the current time
func SystemClock() time.Time { return time.Now() }

// Timestamp formats the clock's current time as ISO-8601 UTC with milliseconds
func Timestamp(clock Clock) string {
	if clock == nil {
		clock = SystemClock
	}
	return clock().UTC().Format("2006-01-02T15:04:05.000Z")
}

// Trim removes surrounding whitespace
func Trim(s string) string {
	return strings.TrimSpace(s)
}

// TrimOr trims s and returns fallback when nothing is left
func TrimOr(s string, fallback string) string {
	if trimmed := strings.TrimSpace(s); trimmed != "" {
		return trimmed
	}
	return fallback
}

// ClampPercentage clamps a numeric value to [0, 100]. Non-numeric input and
// NaN report false.
func ClampPercentage(value any) (float64, bool) {
	number, ok := schema.ToFloat(value)
	if !ok {
		return 0, false
	}
	return math.Min(100, math.Max(0, number)), true
}

// CapList trims every item, drops empty ones and keeps at most max in order
func CapList(items []string, max int) []string {
	out := make([]string, 0, min(len(items), max))
	for _, item := range items {
		if len(out) == max {
			break
		}
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// EmbedURL derives an embeddable player URL from a shareable video URL.
// YouTube and Vimeo links are rewritten; anything else, including input that
// does not parse, is returned unchanged. Empty input returns nil.
func EmbedURL(raw string) *string {
	if raw == "" {
		return nil
	}

	parsed, err := url.Parse(raw)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return &raw
	}

	// ids stay percent-encoded so the embed URL is as valid as the input
	host := strings.TrimPrefix(strings.ToLower(parsed.Hostname()), "www.")
	path := parsed.EscapedPath()
	var embed string
	switch {
	case strings.HasSuffix(host, "youtube.com"):
		if id := parsed.Query().Get("v"); id != "" {
			embed = "https://www.youtube.com/embed/" + url.PathEscape(id)
		} else if id := lastSegment(path); id != "" {
			embed = "https://www.youtube.com/embed/" + id
		}
	case host == "youtu.be":
		if id := strings.Replace(path, "/", "", 1); id != "" {
			embed = "https://www.youtube.com/embed/" + id
		}
	case strings.HasSuffix(host, "vimeo.com"):
		if id := lastSegment(path); id != "" {
			embed = "https://player.vimeo.com/video/" + id
		}
	}

	if embed == "" {
		return &raw
	}
	return &embed
}

func lastSegment(path string) string {
	segments := strings.Split(path, "/")
	for i := len(segments) - 1; i >= 0; i-- {
		if segments[i] != "" {
			return segments[i]
		}
	}
	return ""
}
