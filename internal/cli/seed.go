package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/topoview/pkg/snapshot"
	"github.com/matzehuels/topoview/pkg/topology"
)

// seedCommand creates the seed command, which writes a snapshot document
// into a writable record store.
func (c *CLI) seedCommand() *cobra.Command {
	var (
		sf  sourceFlags
		to  string
		ttl time.Duration
	)

	cmd := &cobra.Command{
		Use:   "seed <file>",
		Short: "Write a snapshot file into a SQLite or Redis store",
		Long: `Write a snapshot file into a SQLite or Redis store.

The store's current content is replaced. The destination is the configured
source unless --to names a SQLite file or a redis:// URL. HTTP and MongoDB
sources belong to the record store and cannot be seeded.`,
		Example: `  topoview seed site.yaml --to site.db
  topoview seed site.json --to redis://localhost:6379/0 --key site:a --ttl 1h`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dest := c.cfg.Source
			var target []string
			if to != "" {
				target = []string{to}
			}
			sf.apply(cmd, target, &dest)
			return c.runSeed(cmd.Context(), args[0], dest.Snapshot(), ttl)
		},
	}

	sf.register(cmd)
	cmd.Flags().StringVar(&to, "to", "", "destination: SQLite file or redis:// URL (default: configured source)")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "expiry of the redis key (0 keeps it)")

	return cmd
}

func (c *CLI) runSeed(ctx context.Context, file string, dest snapshot.Source, ttl time.Duration) error {
	snap, err := topology.ReadFile(file)
	if err != nil {
		return err
	}

	st, err := snapshot.OpenStore(ctx, dest)
	if err != nil {
		return err
	}
	defer snapshot.Close(st)
	if rl, ok := st.(*snapshot.RedisLoader); ok {
		rl.TTL = ttl
	}

	prog := newProgress(c.Logger)
	if err := st.Save(ctx, snap); err != nil {
		return fmt.Errorf("seed %s: %w", dest, err)
	}
	prog.done("seeded store", "nodes", snap.Len(), "dest", dest.String())

	printSuccess("Seeded %d nodes into %s", snap.Len(), dest.String())
	printNewline()
	printNextStep("Inspect", appName+" inspect "+dest.String())
	return nil
}
