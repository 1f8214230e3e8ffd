package server

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/matzehuels/topoview/pkg/animate"
	"github.com/matzehuels/topoview/pkg/render"
	"github.com/matzehuels/topoview/pkg/snapshot"
	"github.com/matzehuels/topoview/pkg/topology"
	"github.com/matzehuels/topoview/pkg/view"
)

type fixture struct {
	srv       *Server
	vis       *view.Visualizer
	sched     *animate.ManualScheduler
	refresher *snapshot.Refresher
	loads     *atomic.Int32
	fail      *atomic.Bool
	http      *httptest.Server
}

func testNodes() []topology.Node {
	return []topology.Node{
		{ID: "db-1", Name: "Primary", Category: topology.CategoryDatabase, Status: topology.StatusOnline, Connections: []string{"api"},
			Details: topology.Details{{Key: "engine", Value: "postgres"}}},
		{ID: "api", Category: topology.CategoryService, Status: topology.StatusWarning, Connections: []string{"db-1", "gone"}},
		{ID: "web", Category: topology.CategoryClient, Status: topology.StatusError},
	}
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{loads: new(atomic.Int32), fail: new(atomic.Bool)}
	f.refresher = snapshot.NewRefresher(snapshot.LoaderFunc(func(context.Context) (*topology.Snapshot, error) {
		f.loads.Add(1)
		if f.fail.Load() {
			return nil, stderrors.New("record store down")
		}
		return topology.New(testNodes(), topology.WithSource("test")), nil
	}))
	f.sched = animate.NewManualScheduler()
	f.vis = view.New(render.FixedContainer{Width: 400, Height: 300}, view.WithScheduler(f.sched))
	stop := f.vis.Follow(f.refresher)

	_, err := f.refresher.Refresh(context.Background())
	require.NoError(t, err)

	f.srv = New(f.vis, f.refresher, opts...)
	f.http = httptest.NewServer(f.srv.Handler())
	t.Cleanup(func() {
		f.srv.Close()
		f.http.Close()
		stop()
		f.vis.Close()
		f.refresher.Close()
	})
	return f
}

func (f *fixture) do(t *testing.T, method, path, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, f.http.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	resp, err := f.http.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	resp := f.do(t, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	h := decode[healthResponse](t, resp)
	assert.Equal(t, "ok", h.Status)
	assert.Equal(t, 3, h.Nodes)
	assert.Equal(t, view.Mode2D, h.Mode)
}

func TestTopology(t *testing.T) {
	f := newFixture(t)
	resp := f.do(t, http.MethodGet, "/api/topology", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Snapshot struct {
			Nodes []topology.Node `json:"nodes"`
		} `json:"snapshot"`
		Edges []topology.Edge `json:"edges"`
		Hash  string          `json:"hash"`
		Mode  string          `json:"mode"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Snapshot.Nodes, 3)
	for _, n := range body.Snapshot.Nodes {
		assert.NotNil(t, n.Position, "node %s should be positioned", n.ID)
	}
	assert.Len(t, body.Edges, 2, "dangling edge must be left out")
	assert.NotEmpty(t, body.Hash)
	assert.Equal(t, "2d", body.Mode)
}

func TestNodeDetail(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, http.MethodGet, "/api/nodes/db-1", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var d struct {
		Name        string `json:"name"`
		Details     []struct{ Label, Value string }
		Connections []topology.Summary `json:"connections"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&d))
	assert.Equal(t, "Primary", d.Name)
	require.Len(t, d.Details, 1)
	assert.Equal(t, "postgres", d.Details[0].Value)
	require.Len(t, d.Connections, 1)
	assert.Equal(t, "api", d.Connections[0].ID)

	resp = f.do(t, http.MethodGet, "/api/nodes/nope", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "NODE_NOT_FOUND", string(decode[errorResponse](t, resp).Error.Code))
}

func TestModeSwitchKeepsOneLoop(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, http.MethodPut, "/api/mode", `{"mode":"3d"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, f.sched.Pending())

	resp = f.do(t, http.MethodPut, "/api/mode", `{"mode":"perspective"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, f.sched.Pending())

	resp = f.do(t, http.MethodPut, "/api/mode", `{"mode":"2d"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Zero(t, f.sched.Pending())

	resp = f.do(t, http.MethodPut, "/api/mode", `{"mode":"4d"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "INVALID_MODE", string(decode[errorResponse](t, resp).Error.Code))

	resp = f.do(t, http.MethodPut, "/api/mode", `{"mode":`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSelection(t *testing.T) {
	f := newFixture(t)
	n, ok := f.vis.Scene().Node("api")
	require.True(t, ok)

	body, _ := json.Marshal(clickRequest{X: n.Position.X + 3, Y: n.Position.Y - 3})
	resp := f.do(t, http.MethodPost, "/api/click", string(body))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	click := decode[clickResponse](t, resp)
	assert.True(t, click.Hit)
	require.NotNil(t, click.Selected)
	assert.Equal(t, "api", click.Selected.ID)
	assert.True(t, f.vis.Controller().PanelOpen())

	resp = f.do(t, http.MethodPost, "/api/select/web", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "web", f.vis.Controller().Selected())

	resp = f.do(t, http.MethodPost, "/api/select/nope", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "web", f.vis.Controller().Selected(), "unknown id leaves the selection alone")

	resp = f.do(t, http.MethodDelete, "/api/selection", "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Empty(t, f.vis.Controller().Selected())

	resp = f.do(t, http.MethodPost, "/api/click", `{"x":200,"y":150}`)
	click = decode[clickResponse](t, resp)
	assert.False(t, click.Hit)
	assert.Nil(t, click.Selected)
}

func TestRefreshKeepsPreviousOnFailure(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, http.MethodPost, "/api/refresh", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 3, decode[refreshResponse](t, resp).Nodes)

	f.fail.Store(true)
	resp = f.do(t, http.MethodPost, "/api/refresh", "")
	require.Equal(t, http.StatusBadGateway, resp.StatusCode)
	r := decode[refreshResponse](t, resp)
	assert.Equal(t, 3, r.Nodes, "previous snapshot stays current")
	require.NotNil(t, r.Error)

	resp = f.do(t, http.MethodGet, "/api/topology", "")
	topo := decode[errorResponse](t, resp)
	assert.NotEmpty(t, topo.Error.Code, "topology carries the last load error")
	assert.Equal(t, 3, f.vis.Scene().Len())
}

func TestRefreshRateLimited(t *testing.T) {
	f := newFixture(t, WithRefreshLimit(rate.Every(time.Hour), 1))

	resp := f.do(t, http.MethodPost, "/api/refresh", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = f.do(t, http.MethodPost, "/api/refresh", "")
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("Retry-After"))
	assert.Equal(t, "RATE_LIMITED", string(decode[errorResponse](t, resp).Error.Code))
	assert.Equal(t, int32(2), f.loads.Load(), "throttled refresh must not reach the loader")
}

func TestAutoRefreshToggle(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, http.MethodPut, "/api/autorefresh", `{"enabled":true}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, decode[autoRefreshRequest](t, resp).Enabled)
	assert.True(t, f.refresher.AutoRefresh())

	resp = f.do(t, http.MethodPut, "/api/autorefresh", `{"enabled":false}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.False(t, f.refresher.AutoRefresh())

	resp = f.do(t, http.MethodPut, "/api/autorefresh", `{"on":true}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestFrameAndExport(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, http.MethodGet, "/api/frame.png", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	var buf bytes.Buffer
	_, _ = buf.ReadFrom(resp.Body)
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("\x89PNG")))

	resp = f.do(t, http.MethodGet, "/api/export.svg", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	buf.Reset()
	_, _ = buf.ReadFrom(resp.Body)
	assert.Contains(t, buf.String(), "<svg")
}

func TestFrameWithoutCanvas(t *testing.T) {
	f := newFixture(t)
	vis := view.New(render.FixedContainer{}, view.WithScheduler(animate.NewManualScheduler()))
	defer vis.Close()
	srv := New(vis, f.refresher)
	defer srv.Close()

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/frame.png", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "CANVAS_UNAVAILABLE")
}

func dialStream(t *testing.T, f *fixture) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(f.http.URL, "http") + "/api/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

// next reads messages until match accepts one.
func next(t *testing.T, conn *websocket.Conn, match func(kind int, data []byte) bool) []byte {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	require.NoError(t, conn.SetReadDeadline(deadline))
	for {
		kind, data, err := conn.ReadMessage()
		require.NoError(t, err)
		if match(kind, data) {
			return data
		}
	}
}

func isFrame(kind int, data []byte) bool {
	return kind == websocket.BinaryMessage && bytes.HasPrefix(data, []byte("\x89PNG"))
}

func selectionOf(id string) func(int, []byte) bool {
	return func(kind int, data []byte) bool {
		if kind != websocket.TextMessage {
			return false
		}
		var ev StreamEvent
		if json.Unmarshal(data, &ev) != nil || ev.Type != EventSelection || ev.Selection == nil {
			return false
		}
		if id == "" {
			return ev.Selection.Selected == nil
		}
		return ev.Selection.Selected != nil && ev.Selection.Selected.ID == id
	}
}

func TestStreamSendsFramesAndSelection(t *testing.T) {
	f := newFixture(t)
	conn := dialStream(t, f)
	next(t, conn, isFrame)

	resp := f.do(t, http.MethodPost, "/api/select/db-1", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	next(t, conn, selectionOf("db-1"))

	require.NoError(t, conn.WriteJSON(StreamCommand{Type: "select", ID: "web"}))
	next(t, conn, selectionOf("web"))

	require.NoError(t, conn.WriteJSON(StreamCommand{Type: "select", ID: "nope"}))
	data := next(t, conn, isError)
	assert.Contains(t, string(data), "NODE_NOT_FOUND")
}

func isError(kind int, data []byte) bool {
	var ev StreamEvent
	return kind == websocket.TextMessage && json.Unmarshal(data, &ev) == nil && ev.Type == EventError
}

func TestStreamReportsFailedRefresh(t *testing.T) {
	f := newFixture(t)
	conn := dialStream(t, f)
	next(t, conn, isFrame)

	f.fail.Store(true)
	resp := f.do(t, http.MethodPost, "/api/refresh", "")
	require.Equal(t, http.StatusBadGateway, resp.StatusCode)

	data := next(t, conn, isError)
	assert.Contains(t, string(data), "record store down")
	assert.Equal(t, 3, f.vis.Scene().Len(), "scene keeps the previous snapshot")
}

func TestStreamsShareOneLoop(t *testing.T) {
	f := newFixture(t)
	a := dialStream(t, f)
	b := dialStream(t, f)
	next(t, a, isFrame)
	next(t, b, isFrame)

	require.NoError(t, a.WriteJSON(StreamCommand{Type: "mode", Mode: "3d"}))
	next(t, a, func(kind int, data []byte) bool {
		return kind == websocket.TextMessage && strings.Contains(string(data), `"mode":"3d"`)
	})
	require.NoError(t, b.WriteJSON(StreamCommand{Type: "mode", Mode: "3d"}))
	next(t, b, func(kind int, data []byte) bool {
		return kind == websocket.TextMessage && strings.Contains(string(data), `"mode":"3d"`)
	})
	assert.Equal(t, 1, f.sched.Pending())

	f.sched.Step(time.Now())
	next(t, a, isFrame)
	assert.Equal(t, 1, f.sched.Pending())
}

func TestCloseEndsStreams(t *testing.T) {
	f := newFixture(t)
	conn := dialStream(t, f)
	next(t, conn, isFrame)

	done := make(chan struct{})
	go func() {
		f.srv.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Close did not return")
	}

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "err = %v", err)
			break
		}
	}
}
