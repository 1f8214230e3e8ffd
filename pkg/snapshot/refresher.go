package snapshot

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/singleflight"

	"github.com/matzehuels/topoview/pkg/errors"
	"github.com/matzehuels/topoview/pkg/observability"
	"github.com/matzehuels/topoview/pkg/topology"
)

// Refresh defaults.
const (
	DefaultInterval = 30 * time.Second
	DefaultTimeout  = 15 * time.Second
)

// Refresh triggers, as reported to hooks and logs.
const (
	TriggerManual = "manual"
	TriggerTimer  = "timer"
)

// ErrClosed is returned by Refresh after Close.
var ErrClosed error = errors.New(errors.ErrCodeSourceUnavailable, "refresher closed")

var discard = log.New(io.Discard)

// RefresherOption configures a Refresher.
type RefresherOption func(*Refresher)

// WithInterval sets the auto-refresh period.
func WithInterval(d time.Duration) RefresherOption {
	return func(r *Refresher) {
		if d > 0 {
			r.interval = d
		}
	}
}

// WithTimeout bounds each load.
func WithTimeout(d time.Duration) RefresherOption {
	return func(r *Refresher) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithLogger sets the logger for refresh outcomes.
func WithLogger(l *log.Logger) RefresherOption {
	return func(r *Refresher) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithInitial seeds the refresher with an already loaded snapshot.
func WithInitial(s *topology.Snapshot) RefresherOption {
	return func(r *Refresher) { r.current = s }
}

// Refresher owns the latest good snapshot of a loader.
type Refresher struct {
	loader   Loader
	interval time.Duration
	timeout  time.Duration
	logger   *log.Logger

	group singleflight.Group

	// life is cancelled by Close and aborts loads in flight.
	life   context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	current  *topology.Snapshot
	lastErr  error
	closed   bool
	auto     bool
	stopAuto chan struct{}
	subs     map[int]Subscriber
	nextSub  int

	// deliver serialises subscriber calls against Close.
	deliver sync.Mutex

	wg sync.WaitGroup
}

// NewRefresher creates a refresher for loader. Auto-refresh starts off.
func NewRefresher(loader Loader, opts ...RefresherOption) *Refresher {
	r := &Refresher{
		loader:   loader,
		interval: DefaultInterval,
		timeout:  DefaultTimeout,
		logger:   discard,
		subs:     make(map[int]Subscriber),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.life, r.cancel = context.WithCancel(context.Background())
	return r
}

// Refresh loads a new snapshot now. Concurrent calls share one load. On
// failure the previous snapshot stays current and is returned together
// with the error.
func (r *Refresher) Refresh(ctx context.Context) (*topology.Snapshot, error) {
	return r.refresh(ctx, TriggerManual)
}

func (r *Refresher) refresh(ctx context.Context, trigger string) (*topology.Snapshot, error) {
	if r.Closed() {
		return nil, ErrClosed
	}
	ch := r.group.DoChan("refresh", func() (any, error) {
		return r.load(trigger)
	})
	select {
	case res := <-ch:
		snap, _ := res.Val.(*topology.Snapshot)
		return snap, res.Err
	case <-ctx.Done():
		return r.Current(), ctx.Err()
	}
}

// load runs one load under the refresher's lifetime and applies it.
func (r *Refresher) load(trigger string) (*topology.Snapshot, error) {
	ctx, cancel := context.WithTimeout(r.life, r.timeout)
	defer cancel()

	hooks := observability.Refresh()
	hooks.OnRefreshStart(ctx, trigger)
	start := time.Now()

	snap, err := r.loader.LoadTopology(ctx)
	if err == nil && snap == nil {
		err = errors.New(errors.ErrCodeInvalidSnapshot, "loader returned no snapshot")
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return r.discarded(ctx, trigger)
	}
	if err != nil {
		r.lastErr = err
		snap = r.current
	} else {
		r.current = snap
		r.lastErr = nil
	}
	r.mu.Unlock()

	took := time.Since(start)
	if err != nil {
		hooks.OnRefreshComplete(ctx, trigger, 0, took, err)
		r.logger.Warn("refresh failed, keeping previous snapshot", "trigger", trigger, "err", err)
	} else {
		hooks.OnRefreshComplete(ctx, trigger, snap.Len(), took, nil)
		r.logger.Info("snapshot refreshed", "trigger", trigger, "nodes", snap.Len(), "source", snap.Source, "took", took.Round(time.Millisecond))
	}

	if !r.notify(snap, err) {
		return r.discarded(ctx, trigger)
	}
	return snap, err
}

// notify hands the outcome of a load to every subscriber. It reports false
// when Close won the race and the outcome was dropped.
func (r *Refresher) notify(snap *topology.Snapshot, err error) bool {
	r.deliver.Lock()
	defer r.deliver.Unlock()
	for _, fn := range r.subscribers() {
		if r.Closed() {
			return false
		}
		fn(snap, err)
	}
	return !r.Closed()
}

func (r *Refresher) discarded(ctx context.Context, trigger string) (*topology.Snapshot, error) {
	observability.Refresh().OnRefreshDiscarded(ctx, trigger)
	r.logger.Debug("refresh discarded after close", "trigger", trigger)
	return nil, ErrClosed
}

// Current returns the latest good snapshot, or nil before the first
// successful load.
func (r *Refresher) Current() *topology.Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// Err returns the error of the last load, nil when it succeeded.
func (r *Refresher) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastErr
}

// Interval returns the auto-refresh period.
func (r *Refresher) Interval() time.Duration { return r.interval }

// AutoRefresh reports whether the interval timer is running.
func (r *Refresher) AutoRefresh() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.auto
}

// SetAutoRefresh starts or stops refreshing every interval. It is a no-op
// after Close.
func (r *Refresher) SetAutoRefresh(on bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed || on == r.auto {
		return
	}
	r.auto = on
	if !on {
		close(r.stopAuto)
		r.stopAuto = nil
		return
	}
	stop := make(chan struct{})
	r.stopAuto = stop
	r.wg.Add(1)
	go r.tick(stop)
}

func (r *Refresher) tick(stop <-chan struct{}) {
	defer r.wg.Done()
	t := time.NewTicker(r.interval)
	defer t.Stop()
	for {
		select {
		case <-stop:
			return
		case <-r.life.Done():
			return
		case <-t.C:
			_, _ = r.refresh(r.life, TriggerTimer)
		}
	}
}

// Subscriber receives the outcome of every load. On failure snap is the
// snapshot that stays current (nil before the first success) and err is
// the load error.
type Subscriber func(snap *topology.Snapshot, err error)

// Subscribe registers fn and returns a function that removes it. Nothing
// is delivered once Close has returned. fn must not call Close.
func (r *Refresher) Subscribe(fn Subscriber) (cancel func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.nextSub
	r.nextSub++
	r.subs[id] = fn
	return func() {
		r.mu.Lock()
		delete(r.subs, id)
		r.mu.Unlock()
	}
}

func (r *Refresher) subscribers() []Subscriber {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Subscriber, 0, len(r.subs))
	for _, fn := range r.subs {
		out = append(out, fn)
	}
	return out
}

// Closed reports whether Close has been called.
func (r *Refresher) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

// Close stops auto-refresh, aborts a load in flight and drops its result.
// When Close returns no subscriber is running or will be called again.
// The loader itself is not closed.
func (r *Refresher) Close() {
	// Holding deliver waits out a delivery in progress.
	r.deliver.Lock()
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		r.deliver.Unlock()
		return
	}
	r.closed = true
	if r.stopAuto != nil {
		close(r.stopAuto)
		r.stopAuto = nil
	}
	r.auto = false
	r.subs = map[int]Subscriber{}
	r.mu.Unlock()
	r.deliver.Unlock()

	r.cancel()
	r.wg.Wait()
}
