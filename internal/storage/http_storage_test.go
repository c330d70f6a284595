package storage

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

var photoBytes = []byte("\xff\xd8\xff\xe0 not really a jpeg")

func TestHTTPPhotoFetcher_RetryLogic(t *testing.T) {
	tests := []struct {
		name          string
		responses     []int // Status codes to return in sequence
		expectRetries int   // Expected number of requests
		expectError   bool
		errorContains string
		notFound      bool
	}{
		{
			name:          "Success on first attempt",
			responses:     []int{200},
			expectRetries: 1,
		},
		{
			name:          "Success on second attempt after 5xx",
			responses:     []int{500, 200},
			expectRetries: 2,
		},
		{
			name:          "4xx client error - no retry",
			responses:     []int{404},
			expectRetries: 1,
			expectError:   true,
			errorContains: "client error: status code 404",
			notFound:      true,
		},
		{
			name:          "4xx after 5xx - should retry until 4xx then stop",
			responses:     []int{500, 403},
			expectRetries: 2,
			expectError:   true,
			errorContains: "client error: status code 403",
		},
		{
			name:          "All 5xx errors - retry all attempts",
			responses:     []int{500, 502, 503},
			expectRetries: 3,
			expectError:   true,
			errorContains: "server error: status code 503",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var requestCount int32

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				n := int(atomic.AddInt32(&requestCount, 1)) - 1
				if n >= len(tt.responses) {
					w.WriteHeader(500)
					w.Write([]byte("Unexpected request"))
					return
				}
				if status := tt.responses[n]; status != 200 {
					w.WriteHeader(status)
					w.Write([]byte(fmt.Sprintf("Error %d", status)))
					return
				}
				w.Header().Set("Content-Type", "image/jpeg")
				w.Write(photoBytes)
			}))
			defer server.Close()

			fetcher := NewHTTPPhotoFetcher(WithBackoff(time.Millisecond))
			data, err := fetcher.Fetch(context.Background(), server.URL)

			if got := int(atomic.LoadInt32(&requestCount)); got != tt.expectRetries {
				t.Errorf("Expected %d requests, got %d", tt.expectRetries, got)
			}

			if tt.expectError {
				if err == nil {
					t.Fatal("Expected error, but got none")
				}
				if !strings.Contains(err.Error(), tt.errorContains) {
					t.Errorf("Expected error to contain '%s', got: %s", tt.errorContains, err.Error())
				}
				if errors.Is(err, ErrNotFound) != tt.notFound {
					t.Errorf("Expected ErrNotFound=%v, got %v", tt.notFound, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Expected no error, got: %s", err.Error())
			}
			if string(data) != string(photoBytes) {
				t.Errorf("Expected photo bytes, got %q", data)
			}
		})
	}
}

func TestHTTPPhotoFetcher_NetworkError_Retry(t *testing.T) {
	var requestCount int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&requestCount, 1) < 3 {
			// Simulate network error by closing connection
			if hj, ok := w.(http.Hijacker); ok {
				conn, _, _ := hj.Hijack()
				conn.Close()
			}
			return
		}
		w.Write(photoBytes)
	}))
	defer server.Close()

	fetcher := NewHTTPPhotoFetcher(WithBackoff(50 * time.Millisecond))

	start := time.Now()
	_, err := fetcher.Fetch(context.Background(), server.URL)
	duration := time.Since(start)

	if err != nil {
		t.Errorf("Expected success after retries, got error: %s", err.Error())
	}
	if got := atomic.LoadInt32(&requestCount); got != 3 {
		t.Errorf("Expected 3 requests, got %d", got)
	}
	// Backoff is 1x then 2x the base delay
	if duration < 150*time.Millisecond {
		t.Errorf("Expected at least 150ms due to backoff, took %v", duration)
	}
}

func TestHTTPPhotoFetcher_SizeLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(make([]byte, 1024))
	}))
	defer server.Close()

	_, err := NewHTTPPhotoFetcher(WithMaxBytes(512)).Fetch(context.Background(), server.URL)
	if !errors.Is(err, ErrTooLarge) {
		t.Errorf("Expected ErrTooLarge, got %v", err)
	}

	data, err := NewHTTPPhotoFetcher(WithMaxBytes(1024)).Fetch(context.Background(), server.URL)
	if err != nil || len(data) != 1024 {
		t.Errorf("Expected 1024 bytes at the limit, got %d (%v)", len(data), err)
	}
}

func TestHTTPPhotoFetcher_Cancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(503)
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := NewHTTPPhotoFetcher(WithBackoff(time.Second)).Fetch(ctx, server.URL)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected deadline exceeded, got %v", err)
	}
	if time.Since(start) > 500*time.Millisecond {
		t.Error("Expected cancellation to interrupt the backoff")
	}
}
