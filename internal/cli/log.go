// Package cli implements the topoview command-line interface.
//
// The commands load topology snapshots from a record store, lay them out on
// the status circle and either write artifacts, serve the interactive view
// over HTTP, or open a terminal inspector.
//
// # Commands
//
//   - render: draw one 2D or pseudo-3D frame (png) and other artifacts
//   - layout: write the snapshot with computed positions as JSON
//   - export: write a DOT or SVG node-link diagram
//   - serve: run the HTTP API and websocket frame stream
//   - inspect: browse nodes and their details in the terminal
//   - seed: write a snapshot file into a SQLite or Redis store
//   - cache: manage the local artifact cache
//
// # Configuration
//
// Settings are read from a TOML file (--config, default
// $XDG_CONFIG_HOME/topoview/config.toml). Flags given on the command line
// win over file values.
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging through
// charmbracelet/log.
package cli

import (
	"io"
	"time"

	"github.com/charmbracelet/log"
)

// newLogger creates a new logger with timestamp formatting.
// Timestamps are formatted as "HH:MM:SS.ms" (e.g., "14:32:01.45").
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// progress logs how long an operation took once it is done.
type progress struct {
	logger *log.Logger
	start  time.Time
}

func newProgress(l *log.Logger) *progress {
	return &progress{logger: l, start: time.Now()}
}

// done logs msg with the elapsed time, e.g. "Loaded 12 nodes (84ms)".
func (p *progress) done(msg string, keyvals ...any) {
	p.logger.Info(msg, append(keyvals, "took", time.Since(p.start).Round(time.Millisecond))...)
}
