package cli

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/matzehuels/topoview/pkg/snapshot"
	"github.com/matzehuels/topoview/pkg/topology"
	"github.com/matzehuels/topoview/pkg/view"
)

// inspectCommand creates the terminal inspector.
func (c *CLI) inspectCommand() *cobra.Command {
	var (
		sf   sourceFlags
		auto bool
	)

	cmd := &cobra.Command{
		Use:   "inspect [source]",
		Short: "Browse nodes and their details in the terminal",
		Long: `Browse nodes and their details in the terminal.

Nodes are listed with their status color. Enter opens a node's detail panel
(metrics, details and connections); enter again follows the highlighted
connection. r reloads the snapshot, a toggles auto-refresh.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sf.apply(cmd, args, &c.cfg.Source)
			if cmd.Flags().Changed("auto") {
				c.cfg.Refresh.Auto = auto
			}
			return c.runInspect(cmd.Context())
		},
	}

	sf.register(cmd)
	cmd.Flags().BoolVar(&auto, "auto", false, "start with auto-refresh enabled")

	return cmd
}

func (c *CLI) runInspect(ctx context.Context) error {
	cfg := c.cfg
	loader, err := c.openLoader(ctx, nil)
	if err != nil {
		return err
	}
	defer snapshot.Close(loader)

	refresher := snapshot.NewRefresher(loader,
		snapshot.WithInterval(cfg.Refresh.Interval.Duration),
		snapshot.WithTimeout(cfg.Refresh.Timeout.Duration),
		snapshot.WithLogger(c.Logger),
	)
	defer refresher.Close()

	mode, err := view.ParseMode(cfg.Canvas.Mode)
	if err != nil {
		return err
	}

	// The TUI owns the terminal; keep log lines out of it.
	level := c.Logger.GetLevel()
	c.Logger.SetLevel(LogFatal)
	defer c.Logger.SetLevel(level)

	p := tea.NewProgram(NewInspectModel(refresher, mode), tea.WithAltScreen(), tea.WithContext(ctx))
	unsub := refresher.Subscribe(func(s *topology.Snapshot, err error) {
		p.Send(snapshotMsg{snap: s, err: err})
	})
	defer unsub()
	refresher.SetAutoRefresh(cfg.Refresh.Auto)

	_, err = p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}
