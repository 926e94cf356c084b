package normalizer_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ibeckermayer/ugc2notion/internal/normalizer"
	"github.com/ibeckermayer/ugc2notion/internal/types"
)

func TestNormalize_EndToEndRecord(t *testing.T) {
	t.Parallel()

	raw := types.RawExtraction{
		MediaURLs:   []string{"u1", "u2"},
		RawText:     "Great day! #sun #fun #sun",
		PublishedAt: "",
	}

	got := normalizer.Normalize(raw, "https://www.instagram.com/bob/p/123/")

	assert.Equal(t, types.Record{
		Title:       "Great day!",
		Content:     "Great day!",
		Username:    "bob",
		SourceURL:   "https://www.instagram.com/bob/p/123/",
		AuthorURL:   "https://instagram.com/bob",
		Tags:        []string{"sun", "fun"},
		PublishedAt: "",
		MediaURLs:   []string{"u1", "u2"},
	}, got)
}

func TestNormalize_TotalOnEmptyInput(t *testing.T) {
	t.Parallel()

	got := normalizer.Normalize(types.RawExtraction{}, "")

	assert.Equal(t, normalizer.FallbackTitle, got.Title)
	assert.Empty(t, got.Content)
	assert.Empty(t, got.Username)
	assert.Equal(t, "https://instagram.com/", got.AuthorURL)
	assert.NotNil(t, got.Tags)
	assert.Empty(t, got.Tags)
}

func TestNormalize_OnlyHashtags(t *testing.T) {
	t.Parallel()

	got := normalizer.Normalize(types.RawExtraction{RawText: "  #a\n#b  ＃c "}, "https://example.com/nope")

	assert.Empty(t, got.Content)
	assert.Equal(t, normalizer.FallbackTitle, got.Title)
	assert.Equal(t, []string{"a", "b", "c"}, got.Tags)
	assert.Empty(t, got.Username)
}

func TestSplitHashtags_OrderAndDedup(t *testing.T) {
	t.Parallel()

	tags, rest := normalizer.SplitHashtags("#a cool #b #a post")

	assert.Equal(t, []string{"a", "b"}, tags)
	assert.Equal(t, "cool post", normalizer.CollapseSpace(rest))
}

func TestSplitHashtags_CaseSensitive(t *testing.T) {
	t.Parallel()

	tags, _ := normalizer.SplitHashtags("#Sun #sun #SUN")
	assert.Equal(t, []string{"Sun", "sun", "SUN"}, tags)
}

func TestSplitHashtags_FullWidthMarkerAndAdjacentTokens(t *testing.T) {
	t.Parallel()

	tags, rest := normalizer.SplitHashtags("カフェ＃東京#cafe#latte です")

	assert.Equal(t, []string{"東京", "cafe", "latte"}, tags)
	assert.Equal(t, "カフェ です", rest)
}

func TestSplitHashtags_LoneMarkerKept(t *testing.T) {
	t.Parallel()

	tags, rest := normalizer.SplitHashtags("number # one")
	assert.Empty(t, tags)
	assert.Equal(t, "number # one", rest)
}

func TestCleanupIsIdempotent(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"Great day! #sun #fun #sun",
		"#a cool #b #a post",
		"multi\nline\tcaption #x ＃y and #z.",
		"no tags at all",
		"",
	}

	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			t.Parallel()

			_, stripped := normalizer.SplitHashtags(in)
			content := normalizer.CollapseSpace(stripped)

			assert.False(t, strings.ContainsAny(content, "#＃"), "content %q still has a marker", content)

			again, _ := normalizer.SplitHashtags(content)
			assert.Empty(t, again)
		})
	}
}

func TestCollapseSpace_UnicodeWhitespace(t *testing.T) {
	t.Parallel()

	// U+3000 ideographic space collapses like ASCII space
	assert.Equal(t, "a b c", normalizer.CollapseSpace("　a  b \n\t c "))
}

func TestTitle(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Hello world thi", normalizer.Title("Hello world this is a long caption"))
	assert.Equal(t, "short", normalizer.Title("short"))
	assert.Equal(t, normalizer.FallbackTitle, normalizer.Title(""))
	// counted in characters, not bytes
	assert.Equal(t, "今日はとても良い天気でしたね。", normalizer.Title("今日はとても良い天気でしたね。明日も"))
}

func TestUsername(t *testing.T) {
	t.Parallel()

	tests := []struct {
		url  string
		want string
	}{
		{"https://instagram.com/alice/p/XYZ/", "alice"},
		{"https://www.instagram.com/bob.smith/p/Cx1/?img_index=1", "bob.smith"},
		{"https://example.com/nope", ""},
		{"https://instagram.com/p/XYZ/", ""},
		{"", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, normalizer.Username(tt.url), tt.url)
	}
}
