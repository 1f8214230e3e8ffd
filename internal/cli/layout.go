package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/topoview/pkg/pipeline"
	"github.com/matzehuels/topoview/pkg/snapshot"
	"github.com/matzehuels/topoview/pkg/topology"
)

// layoutCommand creates the layout command, which writes the snapshot with
// every node's computed position.
func (c *CLI) layoutCommand() *cobra.Command {
	var (
		sf     sourceFlags
		cf     canvasFlags
		output string
	)

	cmd := &cobra.Command{
		Use:   "layout [source]",
		Short: "Compute node positions and write them as JSON",
		Long: `Compute node positions and write them as JSON.

Nodes are grouped by category and spread evenly around a circle centered on
the canvas. The output is the snapshot document with a "position" on every
node. Use "-o -" to write to stdout.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sf.apply(cmd, args, &c.cfg.Source)
			cf.apply(cmd, &c.cfg.Canvas)
			opts := pipeline.Options{Width: c.cfg.Canvas.Width, Height: c.cfg.Canvas.Height, Logger: c.Logger}
			if err := opts.ValidateForLayout(); err != nil {
				return err
			}
			return c.runLayout(cmd.Context(), opts, output)
		},
	}

	sf.register(cmd)
	cf.register(cmd, false)
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: <source>.layout.json, - for stdout)")

	return cmd
}

func (c *CLI) runLayout(ctx context.Context, opts pipeline.Options, output string) error {
	loader, err := c.openLoader(ctx, nil)
	if err != nil {
		return err
	}
	defer snapshot.Close(loader)

	prog := newProgress(c.Logger)
	snap, err := pipeline.Load(ctx, loader, c.sourceName())
	if err != nil {
		return err
	}
	laid := pipeline.GenerateLayout(snap, opts)
	prog.done("computed layout", "nodes", laid.Len(), "categories", len(laid.Categories()))

	if output == "-" {
		return topology.Write(laid, os.Stdout)
	}
	if output == "" {
		output = basePath("", c.sourceName()) + ".layout.json"
	}
	f, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("create %s: %w", output, err)
	}
	if err := topology.Write(laid, f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", output, err)
	}
	if err := f.Close(); err != nil {
		return err
	}

	resolved := len(laid.ResolvedEdges())
	printSuccess("Layout complete")
	printFile(output)
	printStats(laid.Len(), resolved, len(laid.Edges())-resolved, false)
	printNewline()
	printNextStep("Render", appName+" render "+output)
	return nil
}
