package engine

import (
	"context"
	"net/http"

	stealth "github.com/anatolykoptev/go-stealth"
)

// BrowserClient is the TLS-fingerprinted client used for Innertube calls.
type BrowserClient = stealth.BrowserClient

// DefaultRetryConfig is the retry policy for watch-page, caption and
// Innertube requests.
var DefaultRetryConfig = stealth.DefaultRetryConfig

func ChromeHeaders() map[string]string { return stealth.ChromeHeaders() }
func RandomUserAgent() string          { return stealth.RandomUserAgent() }
func IsRetryableStatus(code int) bool  { return stealth.IsRetryableStatus(code) }

// SetBrowserHeaders gives req a rotating desktop user agent and an English
// Accept-Language, which YouTube uses to pick the default caption track.
func SetBrowserHeaders(req *http.Request) {
	req.Header.Set("User-Agent", RandomUserAgent())
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
}

// RetryHTTP retries fn on transport errors and retryable statuses.
func RetryHTTP(ctx context.Context, rc stealth.RetryConfig, fn func() (*http.Response, error)) (*http.Response, error) {
	return stealth.RetryHTTP(ctx, rc, fn)
}
