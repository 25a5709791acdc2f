package processing

import (
	"crypto/sha1"
	"encoding/hex"
	"html"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var whitespace = regexp.MustCompile(`\s+`)

// CleanText decodes HTML entities and squeezes whitespace.
func CleanText(input string) string {
	if input == "" {
		return ""
	}
	decoded := html.UnescapeString(input)
	decoded = whitespace.ReplaceAllString(decoded, " ")
	return strings.TrimSpace(decoded)
}

// Lines splits page text into trimmed, non-empty lines.
func Lines(text string) []string {
	if text == "" {
		return nil
	}
	raw := strings.Split(text, "\n")
	out := make([]string, 0, len(raw))
	for _, line := range raw {
		line = strings.TrimSpace(line)
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}

// Truncate returns at most maxRunes runes of s.
func Truncate(s string, maxRunes int) string {
	if maxRunes <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= maxRunes {
		return s
	}
	return string(runes[:maxRunes])
}

// ResolveURL makes href absolute against base. It returns href unchanged if
// either side does not parse.
func ResolveURL(base, href string) string {
	href = strings.TrimSpace(href)
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	b, err := url.Parse(base)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return b.ResolveReference(ref).String()
}

// Slug returns the path of link below listing, e.g. "@alice/discord-bot", or ""
// when link is the listing page itself or unrelated to it.
func Slug(link, listing string) string {
	l, err := url.Parse(link)
	if err != nil {
		return ""
	}
	base, err := url.Parse(listing)
	if err != nil {
		return ""
	}
	if !strings.EqualFold(l.Host, base.Host) {
		return ""
	}

	p := strings.TrimRight(l.Path, "/")
	root := strings.TrimRight(base.Path, "/")
	if p == root || !strings.HasPrefix(p, root+"/") {
		return ""
	}
	return strings.TrimPrefix(p, root+"/")
}

// BuildBountyID hashes the title and value into a deterministic ID.
func BuildBountyID(title string, value float64) string {
	s := sha1.Sum([]byte(title + "|" + strconv.FormatFloat(value, 'f', 2, 64)))
	return hex.EncodeToString(s[:])
}

// ParseTimestamp accepts RFC3339 variants and a plain date-time. It returns
// the zero time when raw cannot be parsed.
func ParseTimestamp(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}
	}

	formats := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
		"2006-01-02",
	}

	for _, f := range formats {
		if ts, err := time.Parse(f, raw); err == nil {
			return ts
		}
	}

	return time.Time{}
}
