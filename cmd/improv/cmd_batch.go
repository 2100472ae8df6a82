package main

import (
	"fmt"

	"improv/internal/generator"

	"github.com/spf13/cobra"
)

func newBatchCmd(c *cli) *cobra.Command {
	var opts generator.BatchOptions

	cmd := &cobra.Command{
		Use:   "batch [snippet]",
		Short: "Generate many independent sessions in parallel",
		Long: `Runs --sessions independent sessions concurrently. Session i draws from
its own source seeded with seed+i, so a fixed --seed reproduces the batch.

Example:
  improv batch root --sessions 100 --prime class --prime graph`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := c.newGenerator(nil)
			if err != nil {
				return err
			}

			base := c.baseSeed()
			opts.Rand = func(session int) func() float64 {
				return newRand(base + uint64(session))
			}

			results, err := g.Batch(cmd.Context(), args[0], opts)
			if err != nil {
				return err
			}
			for _, out := range results {
				fmt.Fprintln(cmd.OutOrStdout(), out)
			}

			if snap, ok := g.PhraseAudit(); ok {
				return c.saveAudit(cmd.Context(), "batch "+args[0], snap)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&opts.Sessions, "sessions", "n", 10, "Number of sessions")
	cmd.Flags().IntVar(&opts.Concurrency, "concurrency", 0, "Parallel sessions (default: GOMAXPROCS)")
	cmd.Flags().StringArrayVar(&opts.Prime, "prime", nil, "Snippet to generate on each session's model first (repeatable)")
	return cmd
}
