package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/topoview/pkg/errors"
	"github.com/matzehuels/topoview/pkg/pipeline"
	"github.com/matzehuels/topoview/pkg/render/nodelink"
	"github.com/matzehuels/topoview/pkg/snapshot"
)

// exportCommand creates the export command for node-link diagrams.
func (c *CLI) exportCommand() *cobra.Command {
	var (
		sf       sourceFlags
		cf       canvasFlags
		format   string
		output   string
		detailed bool
		free     bool
	)

	cmd := &cobra.Command{
		Use:   "export [source]",
		Short: "Export a node-link diagram as DOT or SVG",
		Long: `Export a node-link diagram as DOT or SVG.

Nodes keep the circular positions of the interactive view. With --free,
Graphviz lays the graph out left to right instead.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != pipeline.FormatDOT && format != pipeline.FormatSVG {
				return errors.New(errors.ErrCodeInvalidFormat, "export format must be dot or svg, got %q", format)
			}
			sf.apply(cmd, args, &c.cfg.Source)
			cf.apply(cmd, &c.cfg.Canvas)
			opts := pipeline.Options{Width: c.cfg.Canvas.Width, Height: c.cfg.Canvas.Height, Logger: c.Logger}
			if err := opts.ValidateForLayout(); err != nil {
				return err
			}
			return c.runExport(cmd.Context(), opts, format, output, nodelink.Options{Detailed: detailed, Pinned: !free})
		},
	}

	sf.register(cmd)
	cf.register(cmd, false)
	cmd.Flags().StringVarP(&format, "format", "f", pipeline.FormatSVG, "output format: svg, dot")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: <source>.<format>)")
	cmd.Flags().BoolVar(&detailed, "detailed", false, "include status and details in labels")
	cmd.Flags().BoolVar(&free, "free", false, "let graphviz place nodes instead of the circle layout")

	return cmd
}

func (c *CLI) runExport(ctx context.Context, opts pipeline.Options, format, output string, nl nodelink.Options) error {
	loader, err := c.openLoader(ctx, nil)
	if err != nil {
		return err
	}
	defer snapshot.Close(loader)

	snap, err := pipeline.Load(ctx, loader, c.sourceName())
	if err != nil {
		return err
	}
	laid := pipeline.GenerateLayout(snap, opts)

	var data []byte
	if format == pipeline.FormatDOT {
		data = []byte(nodelink.ToDOT(laid, nl))
	} else {
		spinner := newSpinner(ctx, "Running graphviz...").Start()
		data, err = nodelink.Export(ctx, laid, nl)
		spinner.Stop()
		if err != nil {
			return fmt.Errorf("export svg: %w", err)
		}
	}

	paths, err := writeArtifacts(map[string][]byte{format: data}, []string{format}, output, basePath(output, c.sourceName()))
	if err != nil {
		return err
	}
	printSuccess("Exported %s", format)
	printFile(paths[0])
	return nil
}
