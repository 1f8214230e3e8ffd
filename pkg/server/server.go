// Package server exposes a running visualizer over HTTP.
//
// # Endpoints
//
//	GET    /healthz             liveness plus a short status
//	GET    /api/topology        laid-out snapshot, mode and selection
//	GET    /api/nodes/{id}      detail payload of one node
//	POST   /api/refresh         reload the snapshot now (rate limited)
//	PUT    /api/autorefresh     {"enabled": true} toggles the interval timer
//	PUT    /api/mode            {"mode": "3d"} switches renderer
//	POST   /api/click           {"x": 10, "y": 20} canvas-local click
//	POST   /api/select/{id}     select a node (panel navigation)
//	DELETE /api/selection       clear the selection
//	GET    /api/frame.png       the current frame
//	GET    /api/export.svg      Graphviz export of the current scene
//	GET    /api/stream          websocket: PNG frames and selection events
//
// Errors are JSON objects of the form {"error": {"code": ..., "message": ...}}
// with the HTTP status derived from the error code.
package server

import (
	"context"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/matzehuels/topoview/pkg/pipeline"
	"github.com/matzehuels/topoview/pkg/snapshot"
	"github.com/matzehuels/topoview/pkg/view"
)

// Defaults.
const (
	DefaultAddr         = "127.0.0.1:8080"
	DefaultStreamFPS    = 15
	DefaultRefreshRate  = rate.Limit(1) // manual refreshes per second
	DefaultRefreshBurst = 3

	shutdownTimeout = 5 * time.Second
	maxBodySize     = 1 << 16
)

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithStreamFPS caps the frames per second sent to each stream client.
func WithStreamFPS(fps int) Option {
	return func(s *Server) {
		if fps > 0 {
			s.fps = fps
		}
	}
}

// WithRefreshLimit throttles POST /api/refresh.
func WithRefreshLimit(r rate.Limit, burst int) Option {
	return func(s *Server) {
		s.refreshLimit = rate.NewLimiter(r, burst)
	}
}

// WithRunner sets the pipeline runner used for exports. The default runner
// has no cache.
func WithRunner(r *pipeline.Runner) Option {
	return func(s *Server) {
		if r != nil {
			s.runner = r
		}
	}
}

// Server serves one visualizer and the refresher feeding it.
type Server struct {
	vis       *view.Visualizer
	refresher *snapshot.Refresher
	runner    *pipeline.Runner
	logger    *log.Logger

	fps          int
	refreshLimit *rate.Limiter
	upgrader     websocket.Upgrader

	// mu guards closed and registration of new streams.
	mu      sync.Mutex
	closed  bool
	done    chan struct{}
	streams sync.WaitGroup
}

// New creates a server for vis, whose snapshots come from refresher.
func New(vis *view.Visualizer, refresher *snapshot.Refresher, opts ...Option) *Server {
	s := &Server{
		vis:          vis,
		refresher:    refresher,
		logger:       log.New(io.Discard),
		fps:          DefaultStreamFPS,
		refreshLimit: rate.NewLimiter(DefaultRefreshRate, DefaultRefreshBurst),
		done:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.runner == nil {
		s.runner = pipeline.NewRunner(nil, nil, s.logger)
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 64 * 1024,
	}
	return s
}

// Handler returns the HTTP handler with every route mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/topology", s.handleTopology)
		r.Get("/nodes/{id}", s.handleNode)
		r.Post("/refresh", s.handleRefresh)
		r.Put("/autorefresh", s.handleAutoRefresh)
		r.Put("/mode", s.handleMode)
		r.Post("/click", s.handleClick)
		r.Post("/select/{id}", s.handleSelect)
		r.Delete("/selection", s.handleClearSelection)
		r.Get("/frame.png", s.handleFrame)
		r.Get("/export.svg", s.handleExport)
		r.Get("/stream", s.handleStream)
	})
	return r
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully and closes every stream.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	if addr == "" {
		addr = DefaultAddr
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		s.Close()
		return err
	case <-ctx.Done():
	}

	s.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Close ends every open stream and waits for them to finish. It does not
// close the visualizer or the refresher.
func (s *Server) Close() {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.done)
	}
	s.mu.Unlock()
	s.streams.Wait()
}

// track registers a new stream. It reports false once the server is closed.
func (s *Server) track() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.streams.Add(1)
	return true
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"took", time.Since(start).Round(time.Microsecond),
			"id", middleware.GetReqID(r.Context()))
	})
}
