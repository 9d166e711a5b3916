package fetcher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	apperrors "pricetracker/pkg/errors"
)

// markerWaitTimeout bounds the wait for the marker element in the rendered DOM
const markerWaitTimeout = 15 * time.Second

// ChromeFetcher fetches pages through a headless chrome HTTP service
// (browserless-style /function endpoint). Slower and heavier than the
// static strategy, but it sees JS-rendered markup.
type ChromeFetcher struct {
	addr   string
	client *http.Client
}

// NewChromeFetcher creates a rendered fetcher talking to the chrome
// service at addr (e.g. "http://localhost:3001").
func NewChromeFetcher(addr string) *ChromeFetcher {
	return &ChromeFetcher{
		addr:   addr,
		client: &http.Client{Timeout: 90 * time.Second},
	}
}

// pageScript navigates, optionally waits for a marker selector, and
// reads the rendered DOM. The finally block guarantees the page context
// is torn down on every exit path, including evaluation errors.
const pageScript = `module.exports = async ({ page, context }) => {
	try {
		await page.setUserAgent(context.userAgent);
		await page.setViewport({ width: 1280, height: 800 });
		await page.goto(context.url, { waitUntil: 'domcontentloaded', timeout: 60000 });
		if (context.waitSelector) {
			try {
				await page.waitForSelector(context.waitSelector, { timeout: context.waitTimeout });
			} catch (e) {
				return { success: false, error: 'marker-not-found: ' + context.waitSelector };
			}
		}
		return { success: true, content: await page.content() };
	} catch (e) {
		return { success: false, error: e.message };
	} finally {
		await page.close();
	}
}`

// functionResult is the JSON shape returned by pageScript
type functionResult struct {
	Success bool   `json:"success"`
	Content string `json:"content"`
	Error   string `json:"error"`
}

// Fetch renders the page and returns its DOM markup
func (f *ChromeFetcher) Fetch(ctx context.Context, pageURL string, opts Options) (io.Reader, error) {
	payload := map[string]interface{}{
		"code": pageScript,
		"context": map[string]interface{}{
			"url":          pageURL,
			"userAgent":    userAgents[0],
			"waitSelector": opts.WaitSelector,
			"waitTimeout":  markerWaitTimeout.Milliseconds(),
		},
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, apperrors.NewNetwork("", "failed to marshal chrome payload", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.addr+"/function", bytes.NewBuffer(data))
	if err != nil {
		return nil, apperrors.NewValidation(fmt.Sprintf("invalid chrome service address: %s", f.addr))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, classifyTransportError(pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.NewNetwork("", fmt.Sprintf("chrome service returned status %d", resp.StatusCode), nil)
	}

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.NewNetwork("", "failed to read chrome service response", err)
	}

	return f.extractContent(pageURL, bodyBytes)
}

// extractContent pulls the rendered markup out of the service response.
// The /function endpoint returns the script's JSON result; some
// deployments return raw HTML directly.
func (f *ChromeFetcher) extractContent(pageURL string, bodyBytes []byte) (io.Reader, error) {
	trimmed := strings.TrimSpace(string(bodyBytes))

	if strings.HasPrefix(trimmed, "{") {
		var result functionResult
		if err := json.Unmarshal(bodyBytes, &result); err != nil {
			return nil, apperrors.NewNetwork("", "unparsable chrome service response", err)
		}
		if !result.Success {
			if strings.HasPrefix(result.Error, "marker-not-found") {
				return nil, apperrors.NewExtraction("", apperrors.ReasonElementNotFound)
			}
			return nil, apperrors.NewNetwork("", fmt.Sprintf("rendered fetch of %s failed: %s", pageURL, result.Error), nil)
		}
		if !looksLikeHTML(result.Content) {
			return nil, apperrors.NewNetwork("", "rendered fetch returned empty document", nil)
		}
		return strings.NewReader(result.Content), nil
	}

	if looksLikeHTML(trimmed) {
		return bytes.NewReader(bodyBytes), nil
	}

	return nil, apperrors.NewNetwork("", "chrome service response is not HTML", nil)
}

// looksLikeHTML is a cheap sanity check on a fetched document
func looksLikeHTML(s string) bool {
	lower := strings.ToLower(s)
	return strings.Contains(lower, "<html") ||
		strings.Contains(lower, "<!doctype") ||
		strings.Contains(lower, "<body")
}
