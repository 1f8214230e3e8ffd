package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/topoview/pkg/errors"
	"github.com/matzehuels/topoview/pkg/interact"
	"github.com/matzehuels/topoview/pkg/pipeline"
	"github.com/matzehuels/topoview/pkg/topology"
	"github.com/matzehuels/topoview/pkg/view"
)

type healthResponse struct {
	Status      string    `json:"status"`
	Nodes       int       `json:"nodes"`
	Mode        view.Mode `json:"mode"`
	AutoRefresh bool      `json:"auto_refresh"`
	LoopActive  bool      `json:"loop_active"`
}

type topologyResponse struct {
	Snapshot        *topology.Snapshot `json:"snapshot"`
	Edges           []topology.Edge    `json:"edges"`
	Hash            string             `json:"hash,omitempty"`
	Mode            view.Mode          `json:"mode"`
	Selected        string             `json:"selected,omitempty"`
	PanelOpen       bool               `json:"panel_open"`
	AutoRefresh     bool               `json:"auto_refresh"`
	RefreshInterval string             `json:"refresh_interval"`
	Error           *errorBody         `json:"error,omitempty"`
}

type refreshResponse struct {
	Nodes    int        `json:"nodes"`
	LoadedAt time.Time  `json:"loaded_at,omitzero"`
	Error    *errorBody `json:"error,omitempty"`
}

type autoRefreshRequest struct {
	Enabled bool `json:"enabled"`
}

type modeRequest struct {
	Mode string `json:"mode"`
}

type clickRequest struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type clickResponse struct {
	Hit      bool             `json:"hit"`
	Selected *interact.Detail `json:"selected"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, healthResponse{
		Status:      "ok",
		Nodes:       s.vis.Scene().Len(),
		Mode:        s.vis.Mode(),
		AutoRefresh: s.refresher.AutoRefresh(),
		LoopActive:  s.vis.LoopActive(),
	})
}

func (s *Server) handleTopology(w http.ResponseWriter, r *http.Request) {
	scene := s.vis.Scene()
	ctrl := s.vis.Controller()
	resp := topologyResponse{
		Snapshot:        scene,
		Edges:           []topology.Edge{},
		Mode:            s.vis.Mode(),
		Selected:        ctrl.Selected(),
		PanelOpen:       ctrl.PanelOpen(),
		AutoRefresh:     s.refresher.AutoRefresh(),
		RefreshInterval: s.refresher.Interval().String(),
		Error:           softError(s.refresher.Err()),
	}
	if scene != nil {
		resp.Edges = append(resp.Edges, scene.ResolvedEdges()...)
		resp.Hash = scene.Hash()
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleNode(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := errors.ValidateNodeID(id); err != nil {
		s.respondError(w, err)
		return
	}
	d, ok := interact.NewDetail(s.vis.Scene(), id)
	if !ok {
		s.respondError(w, errors.New(errors.ErrCodeNodeNotFound, "node %q not found", id))
		return
	}
	s.respondJSON(w, http.StatusOK, d)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if res := s.refreshLimit.Reserve(); !res.OK() || res.Delay() > 0 {
		retry := time.Second
		if res.OK() {
			retry = res.Delay()
			res.Cancel()
		}
		s.respondError(w, &errors.RateLimitedError{
			RetryAfter: retry,
			Message:    fmt.Sprintf("refresh rate limited, retry in %s", retry.Round(time.Millisecond)),
		})
		return
	}

	snap, err := s.refresher.Refresh(r.Context())
	resp := refreshResponse{Error: softError(err)}
	if snap != nil {
		resp.Nodes = snap.Len()
		resp.LoadedAt = snap.LoadedAt
	}
	switch {
	case err == nil:
		s.respondJSON(w, http.StatusOK, resp)
	case snap != nil:
		// The previous snapshot stays on screen.
		s.respondJSON(w, http.StatusBadGateway, resp)
	default:
		s.respondError(w, err)
	}
}

func (s *Server) handleAutoRefresh(w http.ResponseWriter, r *http.Request) {
	var req autoRefreshRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.respondError(w, err)
		return
	}
	s.refresher.SetAutoRefresh(req.Enabled)
	s.logger.Info("auto-refresh toggled", "enabled", req.Enabled, "interval", s.refresher.Interval())
	s.respondJSON(w, http.StatusOK, autoRefreshRequest{Enabled: s.refresher.AutoRefresh()})
}

func (s *Server) handleMode(w http.ResponseWriter, r *http.Request) {
	var req modeRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.respondError(w, err)
		return
	}
	m, err := view.ParseMode(req.Mode)
	if err != nil {
		s.respondError(w, err)
		return
	}
	if err := s.vis.SetMode(m); err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, modeRequest{Mode: string(s.vis.Mode())})
}

func (s *Server) handleClick(w http.ResponseWriter, r *http.Request) {
	var req clickRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.respondError(w, err)
		return
	}
	hit := s.vis.Click(req.X, req.Y)
	d, _ := s.vis.Controller().Detail()
	s.respondJSON(w, http.StatusOK, clickResponse{Hit: hit, Selected: d})
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	if err := s.vis.Select(chi.URLParam(r, "id")); err != nil {
		s.respondError(w, err)
		return
	}
	d, _ := s.vis.Controller().Detail()
	s.respondJSON(w, http.StatusOK, d)
}

func (s *Server) handleClearSelection(w http.ResponseWriter, r *http.Request) {
	s.vis.ClearSelection()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleFrame(w http.ResponseWriter, r *http.Request) {
	if err := s.vis.Ready(); err != nil {
		s.respondError(w, err)
		return
	}
	if s.vis.Mode() == view.Mode2D {
		if err := s.vis.Redraw(); err != nil {
			s.respondError(w, err)
			return
		}
	}
	png, err := s.vis.PNG()
	if err != nil {
		s.respondError(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(png)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	scene := s.vis.Scene()
	if scene == nil {
		s.respondError(w, errors.New(errors.ErrCodeSourceUnavailable, "no snapshot loaded yet"))
		return
	}
	width, height := s.vis.Surface().Size()
	opts := pipeline.Options{
		Width:    width,
		Height:   height,
		Formats:  []string{pipeline.FormatSVG},
		Detailed: r.URL.Query().Get("detailed") == "true",
	}
	artifacts, err := s.runner.Render(r.Context(), scene, opts)
	if err != nil {
		s.respondError(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	_, _ = w.Write(artifacts[pipeline.FormatSVG])
}

func softError(err error) *errorBody {
	if err == nil {
		return nil
	}
	code := errors.GetCode(err)
	if code == "" {
		code = errors.ErrCodeSourceUnavailable
	}
	return &errorBody{Code: code, Message: errors.UserMessage(err)}
}
