// Package video extracts timestamped video references from generated answer
// text. The generator is instructed to cite sources with inline tag triples
// of the form {{timestamp:MM:SS}}{{title:...}}{{url:...}}; this package turns
// those tags into structured references with deep links into the videos.
package video

import (
	"regexp"
	"strconv"
	"strings"
)

// Reference is one citation found in answer text.
type Reference struct {
	// Ordinal is the zero-based position of the reference in the text. It is
	// scoped to a single answer and keys the reference in API responses.
	Ordinal int `json:"-"`
	// Timestamp is the cited position as written in the tag, MM:SS or
	// HH:MM:SS.
	Timestamp string `json:"timestamp"`
	// Seconds is the timestamp converted to a total-seconds offset.
	Seconds int `json:"-"`
	// Title is the source video title as cited.
	Title string `json:"videoTitle"`
	// SourceURL is the video URL as cited.
	SourceURL string `json:"sourceUrl"`
	// DeepLink is SourceURL with the seconds offset appended as a t
	// parameter.
	DeepLink string `json:"derivedDeepLinkUrl"`
	// Description is the text following the tags on the same line, if any.
	Description string `json:"description"`
}

// tagPattern matches one complete tag triple. All three parts are mandatory
// and contiguous; title and url run to the first "}}" pair, so a lone "}"
// may appear inside either value.
var tagPattern = regexp.MustCompile(`\{\{timestamp:((?:\d{1,2}:)?\d{1,2}:\d{2})\}\}\{\{title:((?:[^}]|\}[^}])*)\}\}\{\{url:((?:[^}]|\}[^}])*)\}\}`)

// Extract finds every well-formed tag triple in text, in order of
// appearance. Malformed or partial tags are silently skipped. Extract is a
// pure function of text and returns nil when nothing matches.
func Extract(text string) []Reference {
	matches := tagPattern.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return nil
	}

	refs := make([]Reference, 0, len(matches))
	for _, m := range matches {
		raw := text[m[2]:m[3]]
		seconds, ok := parseTimestamp(raw)
		if !ok {
			continue
		}
		url := text[m[6]:m[7]]

		refs = append(refs, Reference{
			Ordinal:     len(refs),
			Timestamp:   raw,
			Seconds:     seconds,
			Title:       text[m[4]:m[5]],
			SourceURL:   url,
			DeepLink:    deepLink(url, seconds),
			Description: lineRemainder(text, m[1]),
		})
	}
	if len(refs) == 0 {
		return nil
	}
	return refs
}

// parseTimestamp converts "MM:SS" or "HH:MM:SS" to total seconds.
func parseTimestamp(s string) (int, bool) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0, false
	}

	total := 0
	for _, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			return 0, false
		}
		total = total*60 + n
	}
	return total, true
}

// deepLink appends the seconds offset as a t query parameter. The URL is
// taken verbatim from the tag, so the separator choice is the only change:
// "?" for a bare URL, "&" when a query string is already present.
func deepLink(url string, seconds int) string {
	sep := "?"
	if strings.Contains(url, "?") {
		sep = "&"
	}
	return url + sep + "t=" + strconv.Itoa(seconds)
}

// lineRemainder returns the trimmed text between end and the end of its
// line. A second citation starting on the same line is its own reference,
// not part of this one's description.
func lineRemainder(text string, end int) string {
	rest := text[end:]
	if i := strings.IndexByte(rest, '\n'); i >= 0 {
		rest = rest[:i]
	}
	if loc := tagPattern.FindStringIndex(rest); loc != nil {
		rest = rest[:loc[0]]
	}
	return strings.TrimSpace(rest)
}
