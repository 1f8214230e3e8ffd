package snapshot

import (
	"cmp"
	"context"
	"net/http"
	"time"

	"github.com/matzehuels/topoview/pkg/httputil"
	"github.com/matzehuels/topoview/pkg/topology"
)

// HTTPLoader fetches a JSON document from the record store's REST API.
// Transient failures are retried with exponential backoff.
type HTTPLoader struct {
	URL    string
	Client *http.Client
	Header http.Header

	// Attempts and Delay tune the retry. Leaving both zero uses
	// httputil.RetryWithBackoff; otherwise zero values mean 3 and 1s.
	Attempts int
	Delay    time.Duration
}

// LoadTopology implements Loader.
func (l *HTTPLoader) LoadTopology(ctx context.Context) (*topology.Snapshot, error) {
	var body []byte
	fetch := func() error {
		var err error
		body, err = httputil.Fetch(ctx, l.Client, l.URL, l.Header)
		return err
	}

	var err error
	if l.Attempts <= 0 && l.Delay <= 0 {
		err = httputil.RetryWithBackoff(ctx, fetch)
	} else {
		err = httputil.Retry(ctx, cmp.Or(max(l.Attempts, 0), 3), cmp.Or(l.Delay, time.Second), fetch)
	}
	if err != nil {
		return nil, err
	}
	return topology.Unmarshal(body, topology.FormatJSON, topology.WithSource(l.URL))
}
