package cli

import (
	"context"
	stderrors "errors"
	"strings"
	"sync/atomic"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/matzehuels/topoview/pkg/snapshot"
	"github.com/matzehuels/topoview/pkg/topology"
	"github.com/matzehuels/topoview/pkg/view"
)

func inspectSnapshot(withAPI bool) *topology.Snapshot {
	nodes := []topology.Node{
		{ID: "db-1", Name: "Primary", Category: topology.CategoryDatabase, Status: topology.StatusOnline,
			Connections: []string{"api"},
			Metrics:     topology.Metrics{CPU: topology.Float(42)},
			Details:     topology.Details{{Key: "engine", Value: "postgres"}}},
		{ID: "web", Category: topology.CategoryClient, Status: topology.StatusError},
	}
	if withAPI {
		nodes = append(nodes, topology.Node{ID: "api", Category: topology.CategoryService, Status: topology.StatusWarning, Connections: []string{"web"}})
	}
	return topology.New(nodes, topology.WithSource("test"))
}

func newTestInspector(t *testing.T) (InspectModel, *atomic.Bool) {
	t.Helper()
	fail := new(atomic.Bool)
	r := snapshot.NewRefresher(snapshot.LoaderFunc(func(context.Context) (*topology.Snapshot, error) {
		if fail.Load() {
			return nil, stderrors.New("store down")
		}
		return inspectSnapshot(true), nil
	}))
	t.Cleanup(r.Close)
	if _, err := r.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}
	return NewInspectModel(r, view.Mode2D), fail
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(m InspectModel, keys ...string) (InspectModel, tea.Cmd) {
	var cmd tea.Cmd
	for _, k := range keys {
		var next tea.Model
		next, cmd = m.Update(key(k))
		m = next.(InspectModel)
	}
	return m, cmd
}

func TestInspectSelectAndFollow(t *testing.T) {
	m, _ := newTestInspector(t)

	m, _ = press(m, "enter")
	if got := m.Controller().Selected(); got != "db-1" {
		t.Fatalf("selected = %q, want db-1", got)
	}
	view := m.View()
	for _, want := range []string{"Primary", "CPU", "42%", "engine", "postgres", "Connections"} {
		if !strings.Contains(view, want) {
			t.Errorf("detail panel missing %q", want)
		}
	}

	// enter again follows db-1 -> api, then api -> web
	m, _ = press(m, "enter")
	if got := m.Controller().Selected(); got != "api" {
		t.Fatalf("followed to %q, want api", got)
	}
	if m.Cursor != 2 {
		t.Errorf("cursor = %d, want 2 (api row)", m.Cursor)
	}
	m, _ = press(m, "enter")
	if got := m.Controller().Selected(); got != "web" {
		t.Errorf("followed to %q, want web", got)
	}

	m, _ = press(m, "esc")
	if m.Controller().Selected() != "" || m.Controller().PanelOpen() {
		t.Error("esc should clear the selection and close the panel")
	}
}

func TestInspectCursorBounds(t *testing.T) {
	m, _ := newTestInspector(t)
	m, _ = press(m, "up", "down", "down", "down", "down")
	if m.Cursor != 2 {
		t.Errorf("cursor = %d, want 2", m.Cursor)
	}
	m, _ = press(m, "up")
	if m.Cursor != 1 {
		t.Errorf("cursor = %d, want 1", m.Cursor)
	}
}

func TestInspectSelectionSurvivesRefresh(t *testing.T) {
	m, _ := newTestInspector(t)
	m, _ = press(m, "down", "down", "enter")
	if m.Controller().Selected() != "api" {
		t.Fatalf("selected = %q", m.Controller().Selected())
	}

	next, _ := m.Update(snapshotMsg{snap: inspectSnapshot(true)})
	m = next.(InspectModel)
	if m.Controller().Selected() != "api" {
		t.Error("selection should survive when the id persists")
	}

	next, _ = m.Update(snapshotMsg{snap: inspectSnapshot(false)})
	m = next.(InspectModel)
	if m.Controller().Selected() != "" {
		t.Error("selection should clear when the node is gone")
	}
	if m.Cursor != 1 {
		t.Errorf("cursor = %d, want clamped to 1", m.Cursor)
	}
}

func TestInspectRefreshKeepsSnapshotOnFailure(t *testing.T) {
	m, fail := newTestInspector(t)
	fail.Store(true)

	m, cmd := press(m, "r")
	if cmd == nil {
		t.Fatal("r should start a refresh")
	}
	if !strings.Contains(m.View(), "refreshing") {
		t.Error("status line should show the refresh in flight")
	}
	next, _ := m.Update(cmd())
	m = next.(InspectModel)

	if m.snap == nil || m.snap.Len() != 3 {
		t.Fatal("previous snapshot should stay")
	}
	if !strings.Contains(m.View(), "refresh failed") {
		t.Errorf("view should report the soft error:\n%s", m.View())
	}
}

func TestInspectToggles(t *testing.T) {
	m, _ := newTestInspector(t)

	m, _ = press(m, "a")
	if !m.refresher.AutoRefresh() {
		t.Error("a should enable auto-refresh")
	}
	m, _ = press(m, "a")
	if m.refresher.AutoRefresh() {
		t.Error("a should disable auto-refresh again")
	}

	m, _ = press(m, "m")
	if m.mode != view.Mode3D || !strings.Contains(m.View(), "mode 3d") {
		t.Errorf("mode = %q, want 3d", m.mode)
	}

	_, cmd := press(m, "q")
	if cmd == nil {
		t.Fatal("q should quit")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q should return tea.Quit")
	}
}

func TestInspectLoadingView(t *testing.T) {
	r := snapshot.NewRefresher(snapshot.LoaderFunc(func(context.Context) (*topology.Snapshot, error) {
		return inspectSnapshot(false), nil
	}))
	defer r.Close()

	m := NewInspectModel(r, view.Mode2D)
	if !strings.Contains(m.View(), "Loading snapshot") {
		t.Error("empty model should show a loading line")
	}
	cmd := m.Init()
	if cmd == nil {
		t.Fatal("Init should load when no snapshot is present")
	}
	next, _ := m.Update(cmd())
	if next.(InspectModel).snap.Len() != 2 {
		t.Error("Init refresh should install the snapshot")
	}
}

func TestInspectShowsSubscribedFailure(t *testing.T) {
	m, _ := newTestInspector(t)
	prev := m.snap

	// A failed auto-refresh arrives as the snapshot that stays current
	// plus the load error.
	next, _ := m.Update(snapshotMsg{snap: prev, err: stderrors.New("store down")})
	m = next.(InspectModel)
	if !strings.Contains(m.View(), "refresh failed: store down") || m.snap != prev {
		t.Errorf("failure should keep the snapshot and show the error:\n%s", m.View())
	}

	next, _ = m.Update(snapshotMsg{snap: inspectSnapshot(true)})
	m = next.(InspectModel)
	if strings.Contains(m.View(), "refresh failed") {
		t.Error("a later success should clear the error line")
	}
}
