package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/topoview/pkg/errors"
	"github.com/matzehuels/topoview/pkg/interact"
	"github.com/matzehuels/topoview/pkg/render"
	"github.com/matzehuels/topoview/pkg/snapshot"
	"github.com/matzehuels/topoview/pkg/topology"
	"github.com/matzehuels/topoview/pkg/view"
)

var (
	listDimStyle = lipgloss.NewStyle().Foreground(colorDim)
	panelStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorDim).
			Padding(0, 1).
			MarginLeft(1)
	panelTitle = lipgloss.NewStyle().Bold(true).Foreground(colorWhite)
	panelLabel = lipgloss.NewStyle().Foreground(colorGray)
	connCursor = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	errorLine  = lipgloss.NewStyle().Foreground(colorRed)
)

// =============================================================================
// Messages
// =============================================================================

// snapshotMsg carries the outcome of a refresh.
type snapshotMsg struct {
	snap *topology.Snapshot
	err  error
}

// =============================================================================
// InspectModel - terminal node inspector
// =============================================================================

// InspectModel is the bubbletea model behind "topoview inspect". It shows
// every node colored by status and, once a node is selected, a detail panel
// whose connections can be followed with enter.
type InspectModel struct {
	refresher *snapshot.Refresher
	ctrl      *interact.Controller

	snap    *topology.Snapshot
	err     error
	mode    view.Mode
	loading bool

	Cursor int
	Offset int
	Height int
	// ConnCursor indexes the selected node's connections.
	ConnCursor int
}

// NewInspectModel creates an inspector over refresher. The current snapshot,
// if any, is shown right away.
func NewInspectModel(refresher *snapshot.Refresher, mode view.Mode) InspectModel {
	m := InspectModel{
		refresher: refresher,
		ctrl:      interact.New(),
		mode:      mode,
		Height:    15,
	}
	if cur := refresher.Current(); cur != nil {
		m = m.applySnapshot(cur, refresher.Err())
	}
	return m
}

// Controller returns the selection controller.
func (m InspectModel) Controller() *interact.Controller { return m.ctrl }

func (m InspectModel) Init() tea.Cmd {
	if m.snap == nil {
		return m.refreshCmd()
	}
	return nil
}

func (m InspectModel) refreshCmd() tea.Cmd {
	r := m.refresher
	return func() tea.Msg {
		snap, err := r.Refresh(context.Background())
		return snapshotMsg{snap: snap, err: err}
	}
}

func (m InspectModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case snapshotMsg:
		m.loading = false
		if msg.snap != nil {
			m = m.applySnapshot(msg.snap, msg.err)
		} else {
			m.err = msg.err
		}
	case tea.WindowSizeMsg:
		m.Height = max(msg.Height-8, 5)
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m InspectModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "up", "k":
		m.moveCursor(-1)
	case "down", "j":
		m.moveCursor(1)
	case "left", "h", "shift+tab":
		m.moveConn(-1)
	case "right", "l", "tab":
		m.moveConn(1)
	case "enter":
		m.activate()
	case "esc":
		m.ctrl.Clear()
		m.ConnCursor = 0
	case "r":
		if !m.loading {
			m.loading = true
			return m, m.refreshCmd()
		}
	case "a":
		m.refresher.SetAutoRefresh(!m.refresher.AutoRefresh())
	case "m":
		if m.mode == view.Mode2D {
			m.mode = view.Mode3D
		} else {
			m.mode = view.Mode2D
		}
	}
	return m, nil
}

// applySnapshot installs snap. The selection survives when its id does.
func (m InspectModel) applySnapshot(snap *topology.Snapshot, err error) InspectModel {
	m.snap = snap
	m.err = err
	m.ctrl.SetNodes(snap)
	m.Cursor = min(m.Cursor, max(snap.Len()-1, 0))
	if id := m.ctrl.Selected(); id != "" {
		m.focus(id)
	}
	m.clampConn()
	return m
}

func (m *InspectModel) moveCursor(delta int) {
	if m.snap == nil || m.snap.Len() == 0 {
		return
	}
	m.Cursor = min(max(m.Cursor+delta, 0), m.snap.Len()-1)
	if m.Cursor < m.Offset {
		m.Offset = m.Cursor
	}
	if m.Cursor >= m.Offset+m.Height {
		m.Offset = m.Cursor - m.Height + 1
	}
}

func (m *InspectModel) moveConn(delta int) {
	d, ok := m.ctrl.Detail()
	if !ok || len(d.Connections) == 0 {
		return
	}
	n := len(d.Connections)
	m.ConnCursor = ((m.ConnCursor+delta)%n + n) % n
}

// activate selects the node under the list cursor, or follows the
// highlighted connection when that node is already selected.
func (m *InspectModel) activate() {
	if m.snap == nil || m.snap.Len() == 0 {
		return
	}
	id := m.snap.Nodes[m.Cursor].ID
	if m.ctrl.Selected() != id {
		_ = m.ctrl.Select(id)
		m.ConnCursor = 0
		return
	}
	d, ok := m.ctrl.Detail()
	if !ok || len(d.Connections) == 0 {
		return
	}
	next := d.Connections[m.ConnCursor].ID
	if err := m.ctrl.Select(next); err == nil {
		m.focus(next)
		m.ConnCursor = 0
	}
}

// focus moves the list cursor onto id.
func (m *InspectModel) focus(id string) {
	if i, ok := m.snap.Index(id); ok {
		m.moveCursor(i - m.Cursor)
	}
}

func (m *InspectModel) clampConn() {
	d, ok := m.ctrl.Detail()
	if !ok || m.ConnCursor >= len(d.Connections) {
		m.ConnCursor = 0
	}
}

// =============================================================================
// View
// =============================================================================

func (m InspectModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Topology"))
	if m.snap != nil && m.snap.Source != "" {
		b.WriteString(" " + listDimStyle.Render(m.snap.Source))
	}
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  ⏎ select/follow  ←/→ connection  esc close  r refresh  a auto  m mode  q quit"))
	b.WriteString("\n\n")

	if m.snap == nil {
		if m.err != nil {
			b.WriteString(errorLine.Render(iconError+" "+errors.UserMessage(m.err)) + "\n")
		} else {
			b.WriteString(listDimStyle.Render("Loading snapshot...") + "\n")
		}
		return b.String()
	}

	body := m.nodeTable()
	if d, ok := m.ctrl.Detail(); ok && m.ctrl.PanelOpen() {
		body = lipgloss.JoinHorizontal(lipgloss.Top, body, m.detailPanel(d))
	}
	b.WriteString(body)
	b.WriteString("\n")
	b.WriteString(m.statusLine())
	return b.String()
}

func (m InspectModel) nodeTable() string {
	end := min(m.Offset+m.Height, m.snap.Len())
	rows := make([][]string, 0, end-m.Offset)
	for i := m.Offset; i < end; i++ {
		n := m.snap.Nodes[i]
		cursor := "  "
		if i == m.Cursor {
			cursor = "▸ "
		}
		mark := iconNode
		if n.ID == m.ctrl.Selected() {
			mark = "◉"
		}
		rows = append(rows, []string{cursor, mark, n.Label(), render.Glyph(n.Category), string(n.Status)})
	}

	header := lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("", "", "Node", "Kind", "Status").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return header
			}
			idx := m.Offset + row
			if idx >= m.snap.Len() {
				return lipgloss.NewStyle()
			}
			n := m.snap.Nodes[idx]
			style := lipgloss.NewStyle().Foreground(colorWhite)
			if col == 1 || col == 4 {
				style = statusStyle(n.Status)
			}
			if col == 3 {
				style = style.Foreground(colorGray)
			}
			if idx == m.Cursor {
				style = style.Bold(true)
			}
			return style
		}).
		Render()
}

func (m InspectModel) detailPanel(d *interact.Detail) string {
	var b strings.Builder
	b.WriteString(panelTitle.Render(d.Name))
	b.WriteString("\n")
	b.WriteString(statusStyle(d.Status).Render(iconNode+" "+string(d.Status)) + "  " + listDimStyle.Render(string(d.Category)))
	b.WriteString("\n")

	if len(d.Metrics) > 0 {
		b.WriteString("\n" + panelLabel.Render("Metrics") + "\n")
		for _, r := range d.Metrics {
			b.WriteString(fmt.Sprintf("  %-12s %s\n", r.Label, formatReading(r)))
		}
	}
	if len(d.Details) > 0 {
		b.WriteString("\n" + panelLabel.Render("Details") + "\n")
		for _, row := range d.Details {
			b.WriteString(fmt.Sprintf("  %-12s %s\n", row.Label, row.Value))
		}
	}
	if len(d.Connections) > 0 {
		b.WriteString("\n" + panelLabel.Render("Connections") + "\n")
		for i, c := range d.Connections {
			line := fmt.Sprintf("%s %s", render.Glyph(c.Category), c.Name)
			if i == m.ConnCursor {
				b.WriteString(connCursor.Render("→ "+line) + "\n")
			} else {
				b.WriteString("  " + line + "\n")
			}
		}
	}
	return panelStyle.Render(strings.TrimRight(b.String(), "\n"))
}

func (m InspectModel) statusLine() string {
	parts := []string{
		fmt.Sprintf("%d nodes", m.snap.Len()),
		"mode " + string(m.mode),
		"auto " + autoLabel(m.refresher.AutoRefresh(), m.refresher.Interval()),
	}
	if !m.snap.LoadedAt.IsZero() {
		parts = append(parts, "loaded "+m.snap.LoadedAt.Format(time.TimeOnly))
	}
	if m.loading {
		parts = append(parts, "refreshing...")
	}
	line := listDimStyle.Render("  " + strings.Join(parts, " · "))
	if m.err != nil {
		line += "\n" + errorLine.Render("  "+iconWarning+" refresh failed: "+errors.UserMessage(m.err))
	}
	return line
}

func formatReading(r topology.Reading) string {
	if r.Percent() {
		return fmt.Sprintf("%.0f%s", r.Value, r.Unit)
	}
	return fmt.Sprintf("%.1f%s", r.Value, r.Unit)
}
