// Package notion stores records as pages in a Notion database.
package notion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/jomei/notionapi"
	"github.com/rs/zerolog"

	"github.com/ibeckermayer/ugc2notion/internal/types"
)

// Link property encodings
const (
	LinkAsURL  = "url"
	LinkAsText = "text"
)

// ParseLinkProperties validates a link property encoding; empty means url
func ParseLinkProperties(s string) (string, error) {
	switch s {
	case LinkAsURL, LinkAsText:
		return s, nil
	case "":
		return LinkAsURL, nil
	default:
		return "", fmt.Errorf("unknown link property encoding %q", s)
	}
}

const (
	defaultBaseURL = "https://api.notion.com"
	apiVersion     = "2022-06-28"
)

// Options configures the store
type Options struct {
	APIKey         string
	DatabaseID     string
	LinkProperties string
	ContentLimit   int
	RequestTimeout time.Duration
	// HTTPClient is shared by the notionapi client and the upload calls
	HTTPClient *http.Client
	// BaseURL overrides the API host for the upload calls
	BaseURL string
}

// Store writes records to a Notion database
type Store struct {
	client *notionapi.Client
	http   *http.Client
	opts   Options
	log    zerolog.Logger
}

// New creates a Notion store
func New(opts Options, log zerolog.Logger) *Store {
	if opts.ContentLimit <= 0 {
		opts.ContentLimit = DefaultContentLimit
	}
	if opts.LinkProperties == "" {
		opts.LinkProperties = LinkAsURL
	}
	if opts.BaseURL == "" {
		opts.BaseURL = defaultBaseURL
	}
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	if opts.HTTPClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		opts.HTTPClient = &http.Client{Timeout: timeout}
	}

	return &Store{
		client: notionapi.NewClient(notionapi.Token(opts.APIKey), notionapi.WithHTTPClient(opts.HTTPClient)),
		http:   opts.HTTPClient,
		opts:   opts,
		log:    log.With().Str("component", "notion").Logger(),
	}
}

// CreateRecord creates a database page for rec and returns its id
func (s *Store) CreateRecord(ctx context.Context, rec types.Record) (string, error) {
	page, err := s.client.Page.Create(ctx, s.buildPageRequest(rec))
	if err != nil {
		return "", fmt.Errorf("failed to create notion page: %w", err)
	}
	return page.ID.String(), nil
}

// AttachExternalMedia appends an image block that links to url
func (s *Store) AttachExternalMedia(ctx context.Context, pageID, url string) error {
	_, err := s.client.Block.AppendChildren(ctx, notionapi.BlockID(pageID), &notionapi.AppendBlockChildrenRequest{
		Children: []notionapi.Block{externalImage(url)},
	})
	if err != nil {
		return fmt.Errorf("failed to append image block: %w", err)
	}
	return nil
}

// UploadMedia uploads the bytes through the file upload API and appends an
// image block that references the upload.
func (s *Store) UploadMedia(ctx context.Context, pageID string, media types.Media) error {
	upload, err := s.createUpload(ctx, media)
	if err != nil {
		return err
	}
	if err := s.sendUpload(ctx, upload.ID, media); err != nil {
		return err
	}

	body := map[string]any{
		"children": []any{map[string]any{
			"object": "block",
			"type":   "image",
			"image": map[string]any{
				"type":        "file_upload",
				"file_upload": map[string]string{"id": upload.ID},
			},
		}},
	}
	if err := s.doJSON(ctx, http.MethodPatch, "/v1/blocks/"+pageID+"/children", body, nil); err != nil {
		return fmt.Errorf("failed to append uploaded image: %w", err)
	}
	return nil
}

type fileUpload struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

func (s *Store) createUpload(ctx context.Context, media types.Media) (fileUpload, error) {
	var out fileUpload
	body := map[string]string{
		"filename":     media.Filename,
		"content_type": media.ContentType,
	}
	if err := s.doJSON(ctx, http.MethodPost, "/v1/file_uploads", body, &out); err != nil {
		return out, fmt.Errorf("failed to create file upload: %w", err)
	}
	if out.ID == "" {
		return out, fmt.Errorf("failed to create file upload: empty id")
	}
	return out, nil
}

func (s *Store) sendUpload(ctx context.Context, id string, media types.Media) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, media.Filename))
	h.Set("Content-Type", media.ContentType)
	part, err := mw.CreatePart(h)
	if err != nil {
		return err
	}
	if _, err := part.Write(media.Data); err != nil {
		return err
	}
	if err := mw.Close(); err != nil {
		return err
	}

	req, err := s.newRequest(ctx, http.MethodPost, "/v1/file_uploads/"+id+"/send", &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var out fileUpload
	if err := s.do(req, &out); err != nil {
		return fmt.Errorf("failed to send file upload: %w", err)
	}
	if out.Status != "" && out.Status != "uploaded" {
		return fmt.Errorf("failed to send file upload: status %q", out.Status)
	}
	return nil
}

func (s *Store) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, s.opts.BaseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+s.opts.APIKey)
	req.Header.Set("Notion-Version", apiVersion)
	return req, nil
}

func (s *Store) doJSON(ctx context.Context, method, path string, in, out any) error {
	data, err := json.Marshal(in)
	if err != nil {
		return err
	}
	req, err := s.newRequest(ctx, method, path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return s.do(req, out)
}

// apiError mirrors the Notion error object
type apiError struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *apiError) Error() string {
	return fmt.Sprintf("notion %d %s: %s", e.Status, e.Code, e.Message)
}

func (s *Store) do(req *http.Request, out any) error {
	resp, err := s.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &apiError{Status: resp.StatusCode}
		if jerr := json.Unmarshal(data, apiErr); jerr != nil || apiErr.Message == "" {
			apiErr.Message = strings.TrimSpace(string(data))
		}
		apiErr.Status = resp.StatusCode
		return apiErr
	}

	if out == nil {
		return nil
	}
	return json.Unmarshal(data, out)
}
