package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/matzehuels/topoview/pkg/render"
	"github.com/matzehuels/topoview/pkg/server"
	"github.com/matzehuels/topoview/pkg/snapshot"
	"github.com/matzehuels/topoview/pkg/view"
)

// serveCommand creates the serve command: the interactive view behind an
// HTTP API and a websocket frame stream.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		sf       sourceFlags
		cf       canvasFlags
		addr     string
		fps      int
		interval time.Duration
		auto     bool
		noCache  bool
	)

	cmd := &cobra.Command{
		Use:   "serve [source]",
		Short: "Serve the interactive topology view",
		Long: `Serve the interactive topology view.

The server keeps the latest snapshot laid out on a canvas of the configured
size. Clients read the topology and node details as JSON, click or select
nodes, switch between 2d and 3d, and receive frames over a websocket
(GET /api/stream) capped at --fps.

A failed refresh keeps the previous snapshot on screen and is reported as a
soft error. With --auto the snapshot is reloaded every --interval.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sf.apply(cmd, args, &c.cfg.Source)
			cf.apply(cmd, &c.cfg.Canvas)
			cfg := c.cfg
			if cmd.Flags().Changed("addr") {
				cfg.Server.Addr = addr
			}
			if cmd.Flags().Changed("fps") {
				cfg.Server.StreamFPS = fps
			}
			if cmd.Flags().Changed("interval") {
				cfg.Refresh.Interval = Duration{interval}
			}
			if cmd.Flags().Changed("auto") {
				cfg.Refresh.Auto = auto
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return c.runServe(cmd.Context(), noCache)
		},
	}

	sf.register(cmd)
	cf.register(cmd, true)
	cmd.Flags().StringVar(&addr, "addr", server.DefaultAddr, "listen address")
	cmd.Flags().IntVar(&fps, "fps", server.DefaultStreamFPS, "maximum frames per second per stream")
	cmd.Flags().DurationVar(&interval, "interval", snapshot.DefaultInterval, "auto-refresh interval")
	cmd.Flags().BoolVar(&auto, "auto", false, "start with auto-refresh enabled")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable artifact and snapshot caching")

	return cmd
}

func (c *CLI) runServe(ctx context.Context, noCache bool) error {
	cfg := c.cfg
	registerLogHooks(c.Logger)

	runner, err := c.newRunner(ctx, noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	loader, err := c.openLoader(ctx, runner.Cache)
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

	vis := view.New(render.FixedContainer{Width: cfg.Canvas.Width, Height: cfg.Canvas.Height},
		view.WithLogger(c.Logger))
	defer vis.Close()
	unfollow := vis.Follow(refresher)
	defer unfollow()

	spinner := newSpinner(ctx, "Loading first snapshot...").Start()
	snap, err := refresher.Refresh(ctx)
	spinner.Stop()
	if err != nil {
		printWarning("Initial load failed, serving an empty view: %v", err)
	}

	mode, err := view.ParseMode(cfg.Canvas.Mode)
	if err != nil {
		return err
	}
	if err := vis.SetMode(mode); err != nil {
		return err
	}
	refresher.SetAutoRefresh(cfg.Refresh.Auto)

	srv := server.New(vis, refresher,
		server.WithLogger(c.Logger),
		server.WithStreamFPS(cfg.Server.StreamFPS),
		server.WithRefreshLimit(rate.Limit(cfg.Server.RefreshRate), cfg.Server.RefreshBurst),
		server.WithRunner(runner),
	)

	printSuccess("Serving %s", StyleValue.Render("http://"+cfg.Server.Addr))
	printKeyValue("source", c.sourceName())
	if snap != nil {
		printKeyValue("nodes", fmt.Sprint(snap.Len()))
	}
	printKeyValue("mode", string(mode))
	printKeyValue("auto", autoLabel(cfg.Refresh.Auto, cfg.Refresh.Interval.Duration))
	printDetail("Press Ctrl+C to stop")

	return srv.ListenAndServe(ctx, cfg.Server.Addr)
}

func autoLabel(on bool, every time.Duration) string {
	if !on {
		return "off"
	}
	return "every " + every.String()
}
