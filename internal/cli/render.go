package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/matzehuels/topoview/pkg/pipeline"
	"github.com/matzehuels/topoview/pkg/snapshot"
)

// renderCommand creates the render command: one frame plus any other
// artifacts for the current snapshot.
func (c *CLI) renderCommand() *cobra.Command {
	var (
		sf         sourceFlags
		cf         canvasFlags
		formatsStr string
		output     string
		selected   string
		detailed   bool
		noCache    bool
	)

	cmd := &cobra.Command{
		Use:   "render [source]",
		Short: "Render the topology to PNG, SVG, DOT or JSON",
		Long: `Render the topology to PNG, SVG, DOT or JSON.

The source is a snapshot file (JSON or YAML), a SQLite database, or a URL
(http(s), mongodb, redis). Without an argument the [source] section of the
config file is used.

The PNG is one frame of the interactive view: flat in 2d mode, or a single
pseudo-3D frame in 3d mode. --select draws a node highlighted as if clicked.

Results are cached locally, keyed by snapshot content and render options.`,
		Example: `  topoview render topology.yaml
  topoview render topology.yaml -m 3d --select db-1 -o view.png
  topoview render https://store.local/api/topology -f png,svg,json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sf.apply(cmd, args, &c.cfg.Source)
			cf.apply(cmd, &c.cfg.Canvas)
			opts := pipeline.Options{
				Width:    c.cfg.Canvas.Width,
				Height:   c.cfg.Canvas.Height,
				Mode:     c.cfg.Canvas.Mode,
				Formats:  parseFormats(formatsStr),
				Selected: selected,
				Detailed: detailed,
				Refresh:  noCache,
				Logger:   c.Logger,
			}
			if err := opts.ValidateAndSetDefaults(); err != nil {
				return err
			}
			return c.runRender(cmd.Context(), opts, output, noCache)
		},
	}

	sf.register(cmd)
	cf.register(cmd, true)
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (single format) or base path (multiple)")
	cmd.Flags().StringVarP(&formatsStr, "format", "f", "", "output format(s): png (default), svg, dot, json (comma-separated)")
	cmd.Flags().StringVar(&selected, "select", "", "node id to draw as selected")
	cmd.Flags().BoolVar(&detailed, "detailed", false, "include status and details in svg/dot labels")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")

	return cmd
}

func (c *CLI) runRender(ctx context.Context, opts pipeline.Options, output string, noCache bool) error {
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

	spinner := newSpinner(ctx, fmt.Sprintf("Rendering %s view...", opts.Mode)).Start()
	res, err := runner.Execute(ctx, loader, opts)
	if err != nil {
		spinner.StopWithError("Render failed")
		return err
	}
	spinner.Stop()

	src := c.sourceName()
	paths, err := writeArtifacts(res.Artifacts, opts.Formats, output, basePath(output, src))
	if err != nil {
		return err
	}

	printSuccess("Rendered %s view", opts.Mode)
	for _, p := range paths {
		printFile(p)
	}
	printStats(res.Stats.NodeCount, res.Stats.EdgeCount, res.Stats.Dangling, res.CacheInfo.RenderHit)
	printStatusCounts(res.Snapshot)
	printNewline()
	printNextStep("Explore interactively", appName+" serve "+src)
	return nil
}

// writeArtifacts writes one file per format. A single format goes to output
// verbatim when given; otherwise files are named base.<format>.
func writeArtifacts(artifacts map[string][]byte, formats []string, output, base string) ([]string, error) {
	paths := make([]string, 0, len(formats))
	for _, f := range formats {
		path := base + "." + f
		if len(formats) == 1 && output != "" {
			path = output
		}
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return paths, fmt.Errorf("create %s: %w", dir, err)
			}
		}
		if err := os.WriteFile(path, artifacts[f], 0o644); err != nil {
			return paths, fmt.Errorf("write %s: %w", path, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// sourceName is the configured path or URL, for messages and file names.
func (c *CLI) sourceName() string {
	if c.cfg.Source.Path != "" {
		return c.cfg.Source.Path
	}
	return c.cfg.Source.URL
}
