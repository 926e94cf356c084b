package publisher

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/ibeckermayer/ugc2notion/internal/types"
)

// HTTPDownloader fetches media over plain HTTP
type HTTPDownloader struct {
	client    *http.Client
	userAgent string
	maxBytes  int64
	now       func() time.Time
}

// NewHTTPDownloader creates a downloader. maxBytes <= 0 means no limit.
func NewHTTPDownloader(client *http.Client, userAgent string, maxBytes int64) *HTTPDownloader {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &HTTPDownloader{client: client, userAgent: userAgent, maxBytes: maxBytes, now: time.Now}
}

// Download fetches url. The content type comes from the response header,
// or is sniffed from the body when the header is missing.
func (d *HTTPDownloader) Download(ctx context.Context, url string) (types.Media, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return types.Media{}, err
	}
	if d.userAgent != "" {
		req.Header.Set("User-Agent", d.userAgent)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return types.Media{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return types.Media{}, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body := io.Reader(resp.Body)
	if d.maxBytes > 0 {
		body = io.LimitReader(resp.Body, d.maxBytes+1)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return types.Media{}, fmt.Errorf("failed to read body: %w", err)
	}
	if d.maxBytes > 0 && int64(len(data)) > d.maxBytes {
		return types.Media{}, fmt.Errorf("media larger than %d bytes", d.maxBytes)
	}

	contentType := mediaType(resp.Header.Get("Content-Type"))
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = mediaType(http.DetectContentType(data))
	}

	return types.Media{
		URL:         url,
		Filename:    fmt.Sprintf("instagram_image_%d.%s", d.now().UnixNano(), extension(contentType)),
		ContentType: contentType,
		Data:        data,
	}, nil
}

func mediaType(header string) string {
	mt, _, err := mime.ParseMediaType(header)
	if err != nil {
		return ""
	}
	return mt
}

// extension uses the subtype, so image/jpeg becomes "jpeg"
func extension(contentType string) string {
	_, sub, ok := strings.Cut(contentType, "/")
	if !ok || sub == "" {
		return "bin"
	}
	if i := strings.IndexByte(sub, '+'); i > 0 {
		sub = sub[:i]
	}
	return sub
}
