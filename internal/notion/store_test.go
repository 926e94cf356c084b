package notion

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jomei/notionapi"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ibeckermayer/ugc2notion/internal/types"
)

// rewrite sends every request to the test server, whatever host it names
type rewrite struct {
	target *url.URL
}

func (rw rewrite) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.URL.Scheme = rw.target.Scheme
	req.URL.Host = rw.target.Host
	return http.DefaultTransport.RoundTrip(req)
}

type captured struct {
	Method      string
	Path        string
	ContentType string
	Auth        string
	Version     string
	Body        []byte
}

type fakeNotion struct {
	mu       sync.Mutex
	requests []captured
	handler  func(w http.ResponseWriter, r *http.Request, body []byte)
}

func (f *fakeNotion) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.requests = append(f.requests, captured{
		Method:      r.Method,
		Path:        r.URL.Path,
		ContentType: r.Header.Get("Content-Type"),
		Auth:        r.Header.Get("Authorization"),
		Version:     r.Header.Get("Notion-Version"),
		Body:        body,
	})
	f.mu.Unlock()
	f.handler(w, r, body)
}

func newTestStore(t *testing.T, opts Options, handler func(w http.ResponseWriter, r *http.Request, body []byte)) (*Store, *fakeNotion) {
	t.Helper()
	fake := &fakeNotion{handler: handler}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	target, err := url.Parse(srv.URL)
	require.NoError(t, err)

	opts.APIKey = "secret_test"
	opts.DatabaseID = "db-123"
	opts.HTTPClient = &http.Client{Transport: rewrite{target: target}}
	return New(opts, zerolog.Nop()), fake
}

func sampleRecord() types.Record {
	return types.Record{
		Title:       "Great day! Beac",
		Content:     "Great day! Beach time",
		Username:    "bob",
		SourceURL:   "https://www.instagram.com/bob/p/123/",
		AuthorURL:   "https://instagram.com/bob",
		Tags:        []string{"sun", "fun"},
		PublishedAt: "2024-05-01T10:00:00.000Z",
		MediaURLs:   []string{"https://cdn/1.jpg"},
	}
}

func TestCreateRecord(t *testing.T) {
	s, fake := newTestStore(t, Options{}, func(w http.ResponseWriter, r *http.Request, _ []byte) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"page","id":"page-abc"}`))
	})

	id, err := s.CreateRecord(context.Background(), sampleRecord())
	require.NoError(t, err)
	assert.Equal(t, "page-abc", id)

	require.Len(t, fake.requests, 1)
	req := fake.requests[0]
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "/v1/pages", req.Path)
	assert.Equal(t, "Bearer secret_test", req.Auth)

	var body map[string]any
	require.NoError(t, json.Unmarshal(req.Body, &body))
	assert.Equal(t, "db-123", body["parent"].(map[string]any)["database_id"])

	props := body["properties"].(map[string]any)
	assert.Equal(t, "https://www.instagram.com/bob/p/123/", props["PostURL"].(map[string]any)["url"])
	assert.Equal(t, "https://instagram.com/bob", props["UserURL"].(map[string]any)["url"])
	tags := props["Tags"].(map[string]any)["multi_select"].([]any)
	require.Len(t, tags, 2)
	assert.Equal(t, "sun", tags[0].(map[string]any)["name"])

	title := props["Title"].(map[string]any)["title"].([]any)
	assert.Equal(t, "Great day! Beac", title[0].(map[string]any)["text"].(map[string]any)["content"])

	children := body["children"].([]any)
	require.Len(t, children, 1)
	assert.Equal(t, "paragraph", children[0].(map[string]any)["type"])
}

func TestCreateRecord_APIError(t *testing.T) {
	s, _ := newTestStore(t, Options{}, func(w http.ResponseWriter, r *http.Request, _ []byte) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"object":"error","status":400,"code":"validation_error","message":"Tags is not a property that exists."}`))
	})

	_, err := s.CreateRecord(context.Background(), sampleRecord())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Tags is not a property")
}

func TestAttachExternalMedia(t *testing.T) {
	s, fake := newTestStore(t, Options{}, func(w http.ResponseWriter, r *http.Request, _ []byte) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"list","results":[]}`))
	})

	require.NoError(t, s.AttachExternalMedia(context.Background(), "page-abc", "https://cdn/1.jpg"))

	require.Len(t, fake.requests, 1)
	req := fake.requests[0]
	assert.Equal(t, http.MethodPatch, req.Method)
	assert.Equal(t, "/v1/blocks/page-abc/children", req.Path)

	var body struct {
		Children []struct {
			Type  string `json:"type"`
			Image struct {
				Type     string `json:"type"`
				External struct {
					URL string `json:"url"`
				} `json:"external"`
			} `json:"image"`
		} `json:"children"`
	}
	require.NoError(t, json.Unmarshal(req.Body, &body))
	require.Len(t, body.Children, 1)
	assert.Equal(t, "image", body.Children[0].Type)
	assert.Equal(t, "external", body.Children[0].Image.Type)
	assert.Equal(t, "https://cdn/1.jpg", body.Children[0].Image.External.URL)
}

func TestUploadMedia(t *testing.T) {
	s, fake := newTestStore(t, Options{}, func(w http.ResponseWriter, r *http.Request, body []byte) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/v1/file_uploads":
			_, _ = w.Write([]byte(`{"object":"file_upload","id":"up-1","status":"pending"}`))
		case r.Method == http.MethodPost && r.URL.Path == "/v1/file_uploads/up-1/send":
			_, _ = w.Write([]byte(`{"object":"file_upload","id":"up-1","status":"uploaded"}`))
		case r.Method == http.MethodPatch && r.URL.Path == "/v1/blocks/page-abc/children":
			_, _ = w.Write([]byte(`{"object":"list","results":[]}`))
		default:
			http.NotFound(w, r)
		}
	})

	media := types.Media{
		URL:         "https://cdn/1.jpg",
		Filename:    "instagram_image_1.jpeg",
		ContentType: "image/jpeg",
		Data:        []byte("jpegbytes"),
	}
	require.NoError(t, s.UploadMedia(context.Background(), "page-abc", media))

	require.Len(t, fake.requests, 3)

	create := fake.requests[0]
	assert.Equal(t, apiVersion, create.Version)
	assert.JSONEq(t, `{"filename":"instagram_image_1.jpeg","content_type":"image/jpeg"}`, string(create.Body))

	send := fake.requests[1]
	assert.True(t, strings.HasPrefix(send.ContentType, "multipart/form-data"))
	assert.Contains(t, string(send.Body), "jpegbytes")
	assert.Contains(t, string(send.Body), `filename="instagram_image_1.jpeg"`)

	attach := fake.requests[2]
	assert.JSONEq(t,
		`{"children":[{"object":"block","type":"image","image":{"type":"file_upload","file_upload":{"id":"up-1"}}}]}`,
		string(attach.Body))
}

func TestUploadMedia_SendFails(t *testing.T) {
	s, fake := newTestStore(t, Options{}, func(w http.ResponseWriter, r *http.Request, _ []byte) {
		w.Header().Set("Content-Type", "application/json")
		if strings.HasSuffix(r.URL.Path, "/send") {
			w.WriteHeader(http.StatusRequestEntityTooLarge)
			_, _ = w.Write([]byte(`{"object":"error","status":413,"code":"validation_error","message":"file too large"}`))
			return
		}
		_, _ = w.Write([]byte(`{"object":"file_upload","id":"up-1","status":"pending"}`))
	})

	err := s.UploadMedia(context.Background(), "page-abc", types.Media{Filename: "a.jpeg", ContentType: "image/jpeg"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "file too large")
	assert.Len(t, fake.requests, 2, "no block is appended after a failed send")
}

func TestBuildProperties(t *testing.T) {
	s := New(Options{ContentLimit: 5, LinkProperties: LinkAsText}, zerolog.Nop())

	rec := sampleRecord()
	rec.Content = "日本語のテキスト"
	rec.Tags = []string{"a,b", "ab", ""}
	props := s.buildProperties(rec)

	content := props[PropContent].(notionapi.RichTextProperty)
	assert.Equal(t, "日本語のテ", content.RichText[0].Text.Content)

	postURL := props[PropPostURL].(notionapi.RichTextProperty)
	assert.Equal(t, rec.SourceURL, postURL.RichText[0].Text.Content)

	tags := props[PropTags].(notionapi.MultiSelectProperty)
	assert.Equal(t, []notionapi.Option{{Name: "ab"}}, tags.MultiSelect)

	date := props[PropPostedAt].(notionapi.DateProperty)
	assert.True(t, time.Time(*date.Date.Start).Equal(time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)))
}

func TestBuildProperties_BadTimestamp(t *testing.T) {
	s := New(Options{}, zerolog.Nop())

	rec := sampleRecord()
	rec.PublishedAt = "yesterday"
	props := s.buildProperties(rec)

	assert.NotContains(t, props, PropPostedAt)
	assert.IsType(t, notionapi.URLProperty{}, props[PropPostURL])
}

func TestBuildPageRequest_NoBodyForEmptyContent(t *testing.T) {
	s := New(Options{DatabaseID: "db"}, zerolog.Nop())

	rec := sampleRecord()
	rec.Content = ""
	req := s.buildPageRequest(rec)

	assert.Empty(t, req.Children)
	assert.Equal(t, notionapi.DatabaseID("db"), req.Parent.DatabaseID)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab", truncate("abc", 2))
	assert.Equal(t, "abc", truncate("abc", 0))
}

func TestParseLinkProperties(t *testing.T) {
	for in, want := range map[string]string{"": LinkAsURL, "url": LinkAsURL, "text": LinkAsText} {
		got, err := ParseLinkProperties(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := ParseLinkProperties("URL")
	assert.ErrorContains(t, err, `"URL"`)
}
