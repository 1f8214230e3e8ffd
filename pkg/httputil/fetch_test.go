package httputil

import (
	"context"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/matzehuels/topoview/pkg/errors"
)

func TestFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer t" {
			t.Errorf("Authorization = %q", got)
		}
		if got := r.Header.Get("Accept"); got != "application/json" {
			t.Errorf("Accept = %q", got)
		}
		_, _ = w.Write([]byte(`{"nodes":[]}`))
	}))
	defer srv.Close()

	body, err := Fetch(context.Background(), srv.Client(), srv.URL, http.Header{"Authorization": {"Bearer t"}})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if string(body) != `{"nodes":[]}` {
		t.Errorf("body = %s", body)
	}
}

func TestFetchClassifiesStatus(t *testing.T) {
	tests := []struct {
		status    int
		retryable bool
		code      errors.Code
	}{
		{http.StatusInternalServerError, true, errors.ErrCodeSourceUnavailable},
		{http.StatusBadGateway, true, errors.ErrCodeSourceUnavailable},
		{http.StatusTooManyRequests, true, errors.ErrCodeRateLimited},
		{http.StatusNotFound, false, errors.ErrCodeNotFound},
		{http.StatusForbidden, false, errors.ErrCodeSourceUnavailable},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			_, err := Fetch(context.Background(), srv.Client(), srv.URL, nil)
			if err == nil {
				t.Fatal("expected error")
			}
			if got := isRetryable(err); got != tt.retryable {
				t.Errorf("retryable = %v, want %v", got, tt.retryable)
			}
			if got := errors.GetCode(err); got != tt.code {
				t.Errorf("code = %s, want %s", got, tt.code)
			}
			var serr *StatusError
			if !stderrors.As(err, &serr) || serr.StatusCode != tt.status {
				t.Errorf("expected StatusError with %d, got %v", tt.status, err)
			}
		})
	}
}

func TestFetchNetworkErrorIsRetryable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := Fetch(context.Background(), nil, url, nil)
	if !isRetryable(err) {
		t.Fatalf("expected retryable error, got %v", err)
	}
	if !errors.Is(err, errors.ErrCodeNetwork) {
		t.Errorf("expected NETWORK_ERROR, got %v", err)
	}
}

func TestFetchBadURL(t *testing.T) {
	_, err := Fetch(context.Background(), nil, "://bad", nil)
	if !errors.Is(err, errors.ErrCodeInvalidURL) {
		t.Errorf("expected INVALID_URL, got %v", err)
	}
}

func TestRetryStopsOnNonRetryable(t *testing.T) {
	var calls atomic.Int32
	want := stderrors.New("boom")
	err := Retry(context.Background(), 5, time.Millisecond, func() error {
		calls.Add(1)
		return want
	})
	if err != want {
		t.Errorf("err = %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
}

func TestRetryRetriesTransient(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), 3, time.Millisecond, func() error {
		calls++
		if calls < 3 {
			return &RetryableError{Err: stderrors.New("flaky")}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Retry: %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestRetryHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Retry(ctx, 3, time.Hour, func() error {
		return &RetryableError{Err: stderrors.New("flaky")}
	})
	if err != context.Canceled {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}
