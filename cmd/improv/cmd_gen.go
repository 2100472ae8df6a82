package main

import (
	"context"
	"fmt"

	"improv/internal/audit"
	"improv/internal/config"

	"github.com/spf13/cobra"
)

func newGenCmd(c *cli) *cobra.Command {
	var (
		count int
		mf    modelFlags
	)

	cmd := &cobra.Command{
		Use:   "gen [snippet]",
		Short: "Generate text from a snippet",
		Long: `Generates the snippet count times, each against a fresh model seeded
with --prop and --tag and primed with --prime snippets.

Example:
  improv gen root --count 3 --prime class --prime graph
  improv gen pet --tag animal|dog --prop name=Bob`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := c.newGenerator(nil)
			if err != nil {
				return err
			}

			for range count {
				m, err := mf.build(g)
				if err != nil {
					return err
				}
				out, err := g.Generate(args[0], m)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), out)
			}

			if snap, ok := g.PhraseAudit(); ok {
				return c.saveAudit(cmd.Context(), "gen "+args[0], snap)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&count, "count", "n", 1, "Number of generations")
	addModelFlags(cmd, &mf)
	return cmd
}

func addModelFlags(cmd *cobra.Command, mf *modelFlags) {
	cmd.Flags().StringArrayVar(&mf.props, "prop", nil, "Model property key=value (repeatable)")
	cmd.Flags().StringArrayVar(&mf.tags, "tag", nil, "Model tag such as mood|dark (repeatable)")
	cmd.Flags().StringArrayVar(&mf.prime, "prime", nil, "Snippet to generate on the model first (repeatable)")
}

// saveAudit persists snap when the audit store is enabled.
func (c *cli) saveAudit(ctx context.Context, label string, snap audit.Snapshot) error {
	if !c.cfg.AuditStore.Enabled {
		return nil
	}
	store, err := audit.NewStore(c.cfg.AuditStore.Path)
	if err != nil {
		return err
	}
	defer store.Close()

	id, err := store.Save(ctx, label, snap)
	if err != nil {
		return err
	}
	c.logger.Sugar().Infof("audit run saved: %s", id)
	return nil
}

// withAudit forces phrase auditing on.
func withAudit(cfg *config.Config) {
	cfg.Generator.Audit = true
}
