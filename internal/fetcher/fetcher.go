package fetcher

import (
	"context"
	"io"
	"net/url"
	"strings"
)

// Options carries per-fetch hints. WaitSelector is only honored by the
// rendered strategy; the static strategy ignores it.
type Options struct {
	// WaitSelector is a CSS selector the rendered strategy waits for
	// before reading the DOM (e.g. "#productTitle" on Amazon).
	WaitSelector string
}

// Fetcher retrieves the markup of a product page. Implementations must
// release every network/browser resource on all exit paths and honor
// context cancellation.
type Fetcher interface {
	Fetch(ctx context.Context, pageURL string, opts Options) (io.Reader, error)
}

// rateLimitKey derives the back-off cache key for a URL's host
func rateLimitKey(pageURL string) string {
	u, err := url.Parse(pageURL)
	if err != nil || u.Host == "" {
		return ""
	}
	return strings.ReplaceAll(u.Host, ".", "_") + "_rate_limited"
}
