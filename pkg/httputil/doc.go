// Package httputil provides the HTTP plumbing of the record-store loader.
//
// # Retry
//
// [Retry] runs an operation with exponential backoff, retrying only errors
// wrapped in [RetryableError]. [RetryWithBackoff] uses 3 attempts starting
// at one second.
//
// # Fetch
//
// [Fetch] issues a GET and classifies the outcome: network errors, 5xx and
// 429 responses are retryable, other non-2xx responses are not. Request
// and response events are reported through the observability HTTP hooks.
//
//	body, err := httputil.Fetch(ctx, http.DefaultClient, url, headers)
package httputil
