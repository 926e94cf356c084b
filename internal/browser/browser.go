package browser

import (
	"context"
	"fmt"
	"strings"

	"github.com/chromedp/cdproto/network"
)

// Launcher starts isolated browser sessions
type Launcher interface {
	Launch(ctx context.Context) (Session, error)
}

// Session is one running browser. Close must be called exactly once.
type Session interface {
	// PageCount reports how many page targets the browser exposes
	PageCount(ctx context.Context) (int, error)
	NewPage(ctx context.Context) (Page, error)
	Close() error
}

// Page is a single tab. All methods honour the deadline of ctx.
type Page interface {
	Prepare(ctx context.Context, s PageSettings) error
	// Navigate loads url and returns the main document status. For 2xx
	// responses it also waits until the DOM is parsed and the network is idle.
	Navigate(ctx context.Context, url string) (int, error)
	WaitFor(ctx context.Context, selector string) error
	Evaluate(ctx context.Context, script string, out any) error
	Close() error
}

// PageSettings is applied to a page before navigation
type PageSettings struct {
	UserAgent    string
	DisableCache bool
	// BlockedTypes are failed at the interception layer. Elements that
	// reference them keep their src/srcset attributes.
	BlockedTypes []network.ResourceType
	Cookies      []*network.Cookie
}

var resourceTypes = map[string]network.ResourceType{
	"document":   network.ResourceTypeDocument,
	"stylesheet": network.ResourceTypeStylesheet,
	"image":      network.ResourceTypeImage,
	"media":      network.ResourceTypeMedia,
	"font":       network.ResourceTypeFont,
	"script":     network.ResourceTypeScript,
	"xhr":        network.ResourceTypeXHR,
	"fetch":      network.ResourceTypeFetch,
	"websocket":  network.ResourceTypeWebSocket,
	"manifest":   network.ResourceTypeManifest,
	"other":      network.ResourceTypeOther,
}

// ParseResourceTypes converts config names like "image" or "Font" into
// CDP resource types.
func ParseResourceTypes(names []string) ([]network.ResourceType, error) {
	out := make([]network.ResourceType, 0, len(names))
	for _, n := range names {
		rt, ok := resourceTypes[strings.ToLower(strings.TrimSpace(n))]
		if !ok {
			return nil, fmt.Errorf("unknown resource type %q", n)
		}
		out = append(out, rt)
	}
	return out, nil
}
