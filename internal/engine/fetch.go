package engine

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// StatusError is returned by Fetch for non-200 responses.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: status %d", e.URL, e.Code)
}

// FetchResult is a fully read response body.
type FetchResult struct {
	Body   []byte
	Header http.Header
}

// ContentType returns the response Content-Type header.
func (r FetchResult) ContentType() string { return r.Header.Get("Content-Type") }

// FetchOpts tunes a single Fetch call. Zero values mean defaults.
type FetchOpts struct {
	Accept   string
	Headers  map[string]string
	MaxBytes int64 // 0 = unlimited
	Tries    uint  // default 3
}

// NewHTTPClient creates the plain HTTP client used for caption, mirror and
// audio requests. A zero timeout means 30s.
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			MaxIdleConns:        20,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     60 * time.Second,
			TLSHandshakeTimeout: 15 * time.Second,
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 10 {
				return errors.New("stopped after 10 redirects")
			}
			return nil
		},
	}
}

func newFetchClient() *http.Client {
	if cfg.HTTPClient != nil {
		return cfg.HTTPClient
	}
	return NewHTTPClient(cfg.FetchTimeout)
}

// Fetch performs an HTTP GET with exponential backoff on retryable statuses
// and reads the body. Transport errors and other non-200 statuses are
// permanent.
func Fetch(ctx context.Context, fetchURL string, opts FetchOpts) (FetchResult, error) {
	client := newFetchClient()

	operation := func() (FetchResult, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fetchURL, nil)
		if err != nil {
			return FetchResult{}, backoff.Permanent(err)
		}

		SetBrowserHeaders(req)
		req.Header.Set("Accept-Encoding", "gzip")
		if opts.Accept != "" {
			req.Header.Set("Accept", opts.Accept)
		}
		for k, v := range opts.Headers {
			req.Header.Set(k, v)
		}

		resp, err := client.Do(req)
		if err != nil {
			return FetchResult{}, backoff.Permanent(err)
		}
		defer resp.Body.Close()

		if IsRetryableStatus(resp.StatusCode) {
			return FetchResult{}, &StatusError{URL: fetchURL, Code: resp.StatusCode}
		}
		if resp.StatusCode != http.StatusOK {
			return FetchResult{}, backoff.Permanent(&StatusError{URL: fetchURL, Code: resp.StatusCode})
		}

		body, err := readResponseBody(resp, opts.MaxBytes)
		if err != nil {
			return FetchResult{}, backoff.Permanent(err)
		}
		return FetchResult{Body: body, Header: resp.Header}, nil
	}

	tries := opts.Tries
	if tries == 0 {
		tries = 3
	}
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 500 * time.Millisecond
	bo.MaxInterval = 5 * time.Second

	return backoff.Retry(ctx, operation, backoff.WithBackOff(bo), backoff.WithMaxTries(tries), backoff.WithMaxElapsedTime(30*time.Second))
}

// readResponseBody reads the response body, handling gzip decompression if
// needed. maxBytes > 0 caps the (decompressed) size.
func readResponseBody(resp *http.Response, maxBytes int64) ([]byte, error) {
	var r io.Reader = resp.Body
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, err
		}
		defer gz.Close()
		r = gz
	}
	if maxBytes > 0 {
		r = io.LimitReader(r, maxBytes)
	}
	return io.ReadAll(r)
}
