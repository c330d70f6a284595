package storage

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

const maxAttempts = 3

// HTTPPhotoFetcher fetches photographs over HTTP(S) with retries on
// transient failures.
type HTTPPhotoFetcher struct {
	client   *http.Client
	backoff  time.Duration
	maxBytes int64
}

// HTTPOption configures an HTTPPhotoFetcher
type HTTPOption func(*HTTPPhotoFetcher)

// WithBackoff sets the base delay between attempts. Attempt n waits n times
// the base delay.
func WithBackoff(d time.Duration) HTTPOption {
	return func(h *HTTPPhotoFetcher) { h.backoff = d }
}

// WithMaxBytes sets the largest photograph accepted
func WithMaxBytes(n int64) HTTPOption {
	return func(h *HTTPPhotoFetcher) { h.maxBytes = n }
}

// WithTimeout sets the overall client timeout per attempt
func WithTimeout(d time.Duration) HTTPOption {
	return func(h *HTTPPhotoFetcher) { h.client.Timeout = d }
}

// NewHTTPPhotoFetcher creates an HTTP photo fetcher
func NewHTTPPhotoFetcher(opts ...HTTPOption) *HTTPPhotoFetcher {
	transport := &http.Transport{
		// Connection pooling for photo downloads
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 2,
		IdleConnTimeout:     30 * time.Second,

		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,

		// Encoded photos are already compressed
		DisableCompression:     true,
		MaxResponseHeaderBytes: 4096,
	}

	h := &HTTPPhotoFetcher{
		client: &http.Client{
			Transport: transport,
			Timeout:   30 * time.Second,

			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("too many redirects (limit: 3)")
				}
				return nil
			},
		},
		backoff:  time.Second,
		maxBytes: DefaultMaxPhotoSize,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Fetch downloads the photograph at location. 4xx responses fail at once;
// network errors and 5xx responses are retried up to three attempts.
func (h *HTTPPhotoFetcher) Fetch(ctx context.Context, location string) ([]byte, error) {
	var lastErr error

	for attempt := 0; attempt < maxAttempts; attempt++ {
		data, retry, err := h.attempt(ctx, location)
		if err == nil {
			return data, nil
		}
		lastErr = err
		if !retry {
			return nil, err
		}

		if attempt < maxAttempts-1 {
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("fetch cancelled: %w", ctx.Err())
			case <-time.After(time.Duration(attempt+1) * h.backoff):
			}
		}
	}

	return nil, fmt.Errorf("failed to fetch photo after %d attempts: %w", maxAttempts, lastErr)
}

// attempt performs one request and reports whether a failure is retryable.
func (h *HTTPPhotoFetcher) attempt(ctx context.Context, location string) ([]byte, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrInvalidLocation, err)
	}

	req.Header.Set("Accept", "image/jpeg, image/tiff, image/png, image/webp, */*")
	req.Header.Set("User-Agent", "Go-Photo-Sharpness/1.0")

	resp, err := h.client.Do(req)
	if err != nil {
		// Cancellation is not transient
		if ctx.Err() != nil {
			return nil, false, fmt.Errorf("fetch cancelled: %w", ctx.Err())
		}
		return nil, true, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		data, err := readLimited(resp.Body, h.maxBytes)
		return data, false, err
	case resp.StatusCode == http.StatusNotFound:
		return nil, false, fmt.Errorf("%w: client error: status code %d", ErrNotFound, resp.StatusCode)
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return nil, false, fmt.Errorf("client error: status code %d", resp.StatusCode)
	case resp.StatusCode >= 500:
		return nil, true, fmt.Errorf("server error: status code %d", resp.StatusCode)
	default:
		return nil, false, fmt.Errorf("unexpected status code %d", resp.StatusCode)
	}
}
