package cli

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/topoview/pkg/observability"
)

// logHooks reports observability events through the CLI logger. Routine
// events log at debug level; failures at warn.
type logHooks struct {
	l *log.Logger
}

// registerLogHooks routes every hook family to l.
func registerLogHooks(l *log.Logger) {
	h := logHooks{l: l.WithPrefix("hooks")}
	observability.SetPipelineHooks(h)
	observability.SetRefreshHooks(h)
	observability.SetAnimationHooks(h)
	observability.SetCacheHooks(h)
	observability.SetHTTPHooks(h)
}

func (h logHooks) OnLoadStart(_ context.Context, source string) {
	h.l.Debug("load started", "source", source)
}

func (h logHooks) OnLoadComplete(_ context.Context, source string, nodes int, d time.Duration, err error) {
	if err != nil {
		h.l.Warn("load failed", "source", source, "took", d, "err", err)
		return
	}
	h.l.Debug("load complete", "source", source, "nodes", nodes, "took", d)
}

func (h logHooks) OnLayoutComplete(_ context.Context, nodes int, d time.Duration) {
	h.l.Debug("layout complete", "nodes", nodes, "took", d)
}

func (h logHooks) OnRenderStart(_ context.Context, mode string) {
	h.l.Debug("render started", "mode", mode)
}

func (h logHooks) OnRenderComplete(_ context.Context, mode string, d time.Duration, err error) {
	if err != nil {
		h.l.Warn("render failed", "mode", mode, "err", err)
		return
	}
	h.l.Debug("render complete", "mode", mode, "took", d)
}

func (h logHooks) OnRefreshStart(_ context.Context, trigger string) {
	h.l.Debug("refresh started", "trigger", trigger)
}

func (h logHooks) OnRefreshComplete(_ context.Context, trigger string, nodes int, d time.Duration, err error) {
	if err != nil {
		h.l.Warn("refresh failed, keeping previous snapshot", "trigger", trigger, "err", err)
		return
	}
	h.l.Info("refreshed", "trigger", trigger, "nodes", nodes, "took", d.Round(time.Millisecond))
}

func (h logHooks) OnRefreshDiscarded(_ context.Context, trigger string) {
	h.l.Debug("refresh discarded after close", "trigger", trigger)
}

func (h logHooks) OnLoopStart(_ context.Context, id string) {
	h.l.Debug("perspective loop started", "loop", id)
}

func (h logHooks) OnLoopStop(_ context.Context, id string, frames, panics uint64) {
	if panics > 0 {
		h.l.Warn("perspective loop stopped with recovered panics", "loop", id, "frames", frames, "panics", panics)
		return
	}
	h.l.Debug("perspective loop stopped", "loop", id, "frames", frames)
}

func (h logHooks) OnCacheHit(_ context.Context, keyType string) {
	h.l.Debug("cache hit", "type", keyType)
}

func (h logHooks) OnCacheMiss(_ context.Context, keyType string) {
	h.l.Debug("cache miss", "type", keyType)
}

func (h logHooks) OnCacheSet(_ context.Context, keyType string, size int) {
	h.l.Debug("cache set", "type", keyType, "bytes", size)
}

func (h logHooks) OnRequest(_ context.Context, method, host, path string) {
	h.l.Debug("http request", "method", method, "host", host, "path", path)
}

func (h logHooks) OnResponse(_ context.Context, method, host, path string, status int, d time.Duration) {
	h.l.Debug("http response", "method", method, "host", host, "path", path, "status", status, "took", d)
}

func (h logHooks) OnError(_ context.Context, method, host, path string, err error) {
	h.l.Warn("http error", "method", method, "host", host, "path", path, "err", err)
}

var (
	_ observability.PipelineHooks  = logHooks{}
	_ observability.RefreshHooks   = logHooks{}
	_ observability.AnimationHooks = logHooks{}
	_ observability.CacheHooks     = logHooks{}
	_ observability.HTTPHooks      = logHooks{}
)
