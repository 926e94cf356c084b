// Package normalizer turns a raw page extraction into the canonical record
// stored in Notion. Everything here is pure: no I/O and no failure path.
package normalizer

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/ibeckermayer/ugc2notion/internal/types"
)

const (
	// TitleLength is the number of characters of content used as the title
	TitleLength = 15

	// FallbackTitle is used when a post has no caption text left
	FallbackTitle = "Untitled Instagram Post"

	profileURLFormat = "https://instagram.com/%s"
)

// usernamePattern matches the post URL shape host/<username>/p/...
var usernamePattern = regexp.MustCompile(`instagram\.com/([^/]+)/p/`)

// Normalize builds a Record from raw and the URL it was read from.
// PublishedAt is passed through as-is; defaulting happens at publish time.
func Normalize(raw types.RawExtraction, targetURL string) types.Record {
	username := Username(targetURL)
	tags, stripped := SplitHashtags(raw.RawText)
	content := CollapseSpace(stripped)

	return types.Record{
		Title:       Title(content),
		Content:     content,
		Username:    username,
		SourceURL:   targetURL,
		AuthorURL:   AuthorURL(username),
		Tags:        tags,
		PublishedAt: raw.PublishedAt,
		MediaURLs:   raw.MediaURLs,
	}
}

// Username extracts the account name from a post URL, or "" if the URL
// does not look like instagram.com/<username>/p/...
func Username(targetURL string) string {
	m := usernamePattern.FindStringSubmatch(targetURL)
	if len(m) < 2 {
		return ""
	}
	return m[1]
}

// AuthorURL formats the profile URL for username.
// An empty username still yields the bare host URL.
// TODO: drop the author URL entirely for empty usernames once the Notion
// database owners confirm they do not rely on the bare host link.
func AuthorURL(username string) string {
	return fmt.Sprintf(profileURLFormat, username)
}

// Title returns the first TitleLength characters of content,
// or FallbackTitle when content is empty.
func Title(content string) string {
	if content == "" {
		return FallbackTitle
	}
	runes := []rune(content)
	if len(runes) > TitleLength {
		runes = runes[:TitleLength]
	}
	return string(runes)
}

// SplitHashtags scans text left to right and removes every hashtag token.
// A token is a marker (# or ＃) followed by one or more characters that are
// neither markers nor whitespace. Tags come back without the marker, in order
// of first appearance, duplicates dropped. A marker not followed by a valid
// token character is left in the text.
func SplitHashtags(text string) (tags []string, rest string) {
	tags = []string{}
	seen := make(map[string]struct{})

	var b strings.Builder
	runes := []rune(text)
	for i := 0; i < len(runes); {
		if isMarker(runes[i]) {
			j := i + 1
			for j < len(runes) && isTagRune(runes[j]) {
				j++
			}
			if j > i+1 {
				tag := string(runes[i+1 : j])
				if _, ok := seen[tag]; !ok {
					seen[tag] = struct{}{}
					tags = append(tags, tag)
				}
				i = j
				continue
			}
		}
		b.WriteRune(runes[i])
		i++
	}

	return tags, b.String()
}

// CollapseSpace replaces every run of Unicode whitespace with a single
// space and trims both ends.
func CollapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func isMarker(r rune) bool {
	return r == '#' || r == '＃'
}

func isTagRune(r rune) bool {
	return !isMarker(r) && !unicode.IsSpace(r)
}
