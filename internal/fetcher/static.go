package fetcher

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	mathrand "math/rand"
	"net"
	"net/http"
	"slices"
	"time"

	"golang.org/x/net/html/charset"

	apperrors "pricetracker/pkg/errors"
	"pricetracker/services/cache"
)

// fetchTimeout bounds one static page fetch
const fetchTimeout = 10 * time.Second

// backoffTime is how long a host stays blocked after a rate-limit response
const backoffTime = 500 * time.Second

var (
	userAgents = []string{
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/14.0.3 Safari/605.1.15",
	}

	referers = []string{
		"https://www.google.com/",
		"https://www.bing.com/",
	}
)

// StaticFetcher issues a plain HTTP GET with browser-like headers. It
// is fast but only sees server-rendered markup.
type StaticFetcher struct {
	client   *http.Client
	cacheSvc cache.CacheService
}

// NewStaticFetcher creates a static fetcher. cacheSvc may be nil to
// disable the per-host rate-limit back-off.
func NewStaticFetcher(cacheSvc cache.CacheService) *StaticFetcher {
	return &StaticFetcher{
		client:   &http.Client{Timeout: fetchTimeout},
		cacheSvc: cacheSvc,
	}
}

// Fetch retrieves the page markup, converted to UTF-8 if needed
func (f *StaticFetcher) Fetch(ctx context.Context, pageURL string, _ Options) (io.Reader, error) {
	key := rateLimitKey(pageURL)

	// A cache hit means the host is still in its back-off window
	if f.cacheSvc != nil && key != "" {
		if _, err := f.cacheSvc.Get(key); err == nil {
			return nil, apperrors.NewRateLimit("", fmt.Sprintf("%s is backing off", key))
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, apperrors.NewValidation(fmt.Sprintf("invalid url: %s", pageURL))
	}

	rnd := mathrand.New(mathrand.NewSource(time.Now().UnixNano()))
	req.Header.Set("User-Agent", userAgents[rnd.Intn(len(userAgents))])
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Referer", referers[rnd.Intn(len(referers))])
	req.Header.Set("Upgrade-Insecure-Requests", "1")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, classifyTransportError(pageURL, err)
	}
	defer resp.Body.Close()

	// 429 and the non-standard 430 both mean the site wants us gone for a while
	if slices.Contains([]int{http.StatusTooManyRequests, 430}, resp.StatusCode) {
		if f.cacheSvc != nil && key != "" {
			if setErr := f.cacheSvc.Set(key, []byte(fmt.Sprintf("%d", backoffTime/time.Second)), backoffTime); setErr != nil {
				return nil, apperrors.New(apperrors.ErrorTypeRateLimit, "", "failed to record back-off", setErr)
			}
		}
		return nil, apperrors.NewRateLimit("", fmt.Sprintf("rate limited; retry after %s", resp.Header.Get("Retry-After")))
	}

	if resp.StatusCode == http.StatusForbidden {
		return nil, apperrors.NewAccessDenied("", fmt.Sprintf("access denied by %s (status 403)", pageURL))
	}

	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.NewNetwork("", fmt.Sprintf("fetch %s unexpected status code: %d", pageURL, resp.StatusCode), nil)
	}

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.NewNetwork("", "failed to read response body", err)
	}

	return toUTF8(bodyBytes, resp.Header.Get("Content-Type"))
}

// toUTF8 converts the body to UTF-8 based on the declared and sniffed encoding
func toUTF8(bodyBytes []byte, contentType string) (io.Reader, error) {
	encoding, name, _ := charset.DetermineEncoding(bodyBytes, contentType)
	if name == "utf-8" || name == "UTF-8" {
		return bytes.NewReader(bodyBytes), nil
	}

	utf8Reader := encoding.NewDecoder().Reader(bytes.NewReader(bodyBytes))
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, utf8Reader); err != nil {
		return nil, apperrors.NewNetwork("", "failed to convert body to UTF-8", err)
	}
	return &buf, nil
}

// classifyTransportError maps a transport failure onto the error taxonomy
func classifyTransportError(pageURL string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return apperrors.NewTimeout("", fmt.Sprintf("fetch %s timed out", pageURL), err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return apperrors.NewTimeout("", fmt.Sprintf("fetch %s timed out", pageURL), err)
	}

	return apperrors.NewNetwork("", fmt.Sprintf("failed to fetch %s", pageURL), err)
}
