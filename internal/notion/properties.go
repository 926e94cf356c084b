package notion

import (
	"strings"
	"time"

	"github.com/jomei/notionapi"

	"github.com/ibeckermayer/ugc2notion/internal/types"
)

// Database property names
const (
	PropTitle    = "Title"
	PropContent  = "Content"
	PropUsername = "Username"
	PropPostedAt = "PostedAt"
	PropPostURL  = "PostURL"
	PropUserURL  = "UserURL"
	PropTags     = "Tags"
)

// DefaultContentLimit is Notion's cap on a single rich text object
const DefaultContentLimit = 2000

func richText(s string) []notionapi.RichText {
	return []notionapi.RichText{{
		Type: notionapi.ObjectTypeText,
		Text: &notionapi.Text{Content: s},
	}}
}

func truncate(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit])
}

// parseTimestamp accepts the datetime attribute formats Instagram emits
func parseTimestamp(s string) (time.Time, bool) {
	for _, layout := range []string{time.RFC3339Nano, time.DateOnly} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// tagOptions turns tags into multi select options. Notion rejects commas in
// option names, so they are dropped.
func tagOptions(tags []string) []notionapi.Option {
	opts := make([]notionapi.Option, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, t := range tags {
		name := strings.ReplaceAll(t, ",", "")
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		opts = append(opts, notionapi.Option{Name: name})
	}
	return opts
}

func (s *Store) linkProperty(u string) notionapi.Property {
	if s.opts.LinkProperties == LinkAsText {
		return notionapi.RichTextProperty{RichText: richText(u)}
	}
	return notionapi.URLProperty{URL: u}
}

// buildProperties maps a record onto the database schema. An unparseable
// timestamp leaves PostedAt unset rather than failing the write.
func (s *Store) buildProperties(rec types.Record) notionapi.Properties {
	content := truncate(rec.Content, s.opts.ContentLimit)

	props := notionapi.Properties{
		PropTitle:    notionapi.TitleProperty{Title: richText(rec.Title)},
		PropContent:  notionapi.RichTextProperty{RichText: richText(content)},
		PropUsername: notionapi.RichTextProperty{RichText: richText(rec.Username)},
		PropPostURL:  s.linkProperty(rec.SourceURL),
		PropUserURL:  s.linkProperty(rec.AuthorURL),
		PropTags:     notionapi.MultiSelectProperty{MultiSelect: tagOptions(rec.Tags)},
	}

	if t, ok := parseTimestamp(rec.PublishedAt); ok {
		start := notionapi.Date(t)
		props[PropPostedAt] = notionapi.DateProperty{Date: &notionapi.DateObject{Start: &start}}
	} else {
		s.log.Warn().Str("published_at", rec.PublishedAt).Msg("Unparseable timestamp, leaving PostedAt empty")
	}

	return props
}

func (s *Store) buildPageRequest(rec types.Record) *notionapi.PageCreateRequest {
	req := &notionapi.PageCreateRequest{
		Parent: notionapi.Parent{
			Type:       notionapi.ParentTypeDatabaseID,
			DatabaseID: notionapi.DatabaseID(s.opts.DatabaseID),
		},
		Properties: s.buildProperties(rec),
	}

	if content := truncate(rec.Content, s.opts.ContentLimit); content != "" {
		req.Children = []notionapi.Block{
			notionapi.ParagraphBlock{
				BasicBlock: notionapi.BasicBlock{
					Object: notionapi.ObjectTypeBlock,
					Type:   notionapi.BlockTypeParagraph,
				},
				Paragraph: notionapi.Paragraph{RichText: richText(content)},
			},
		}
	}

	return req
}

func externalImage(u string) notionapi.Block {
	return notionapi.ImageBlock{
		BasicBlock: notionapi.BasicBlock{
			Object: notionapi.ObjectTypeBlock,
			Type:   notionapi.BlockTypeImage,
		},
		Image: notionapi.Image{
			Type:     notionapi.FileTypeExternal,
			External: &notionapi.FileObject{URL: u},
		},
	}
}
