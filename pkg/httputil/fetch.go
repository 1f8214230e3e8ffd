package httputil

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/matzehuels/topoview/pkg/errors"
	"github.com/matzehuels/topoview/pkg/observability"
)

// MaxBodySize caps how much of a response body Fetch reads.
const MaxBodySize = 32 << 20

// StatusError is a non-2xx response.
type StatusError struct {
	StatusCode int
	URL        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: %d %s", e.URL, e.StatusCode, http.StatusText(e.StatusCode))
}

// Fetch performs one GET request and returns the body. Transient failures
// come back wrapped in RetryableError so they can be fed to Retry.
func Fetch(ctx context.Context, client *http.Client, url string, header http.Header) ([]byte, error) {
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidURL, err, "build request")
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}

	hooks := observability.HTTP()
	hooks.OnRequest(ctx, req.Method, req.URL.Host, req.URL.Path)
	start := time.Now()

	resp, err := client.Do(req)
	if err != nil {
		hooks.OnError(ctx, req.Method, req.URL.Host, req.URL.Path, err)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &RetryableError{Err: errors.Wrap(errors.ErrCodeNetwork, err, "GET %s", url)}
	}
	defer resp.Body.Close()
	hooks.OnResponse(ctx, req.Method, req.URL.Host, req.URL.Path, resp.StatusCode, time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		serr := &StatusError{StatusCode: resp.StatusCode, URL: url}
		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			return nil, &RetryableError{Err: errors.Wrap(errors.ErrCodeRateLimited, serr, "record store")}
		case resp.StatusCode >= 500:
			return nil, &RetryableError{Err: errors.Wrap(errors.ErrCodeSourceUnavailable, serr, "record store")}
		case resp.StatusCode == http.StatusNotFound:
			return nil, errors.Wrap(errors.ErrCodeNotFound, serr, "record store")
		default:
			return nil, errors.Wrap(errors.ErrCodeSourceUnavailable, serr, "record store")
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxBodySize+1))
	if err != nil {
		return nil, &RetryableError{Err: errors.Wrap(errors.ErrCodeNetwork, err, "read body")}
	}
	if len(body) > MaxBodySize {
		return nil, errors.New(errors.ErrCodeInvalidInput, "response from %s exceeds %d bytes", url, MaxBodySize)
	}
	return body, nil
}
