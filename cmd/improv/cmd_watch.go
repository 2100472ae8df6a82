package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"improv/internal/grammar"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newWatchCmd(c *cli) *cobra.Command {
	var (
		debounce time.Duration
		mf       modelFlags
	)

	cmd := &cobra.Command{
		Use:   "watch [snippet]",
		Short: "Regenerate a sample whenever the grammar directory changes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			out := cmd.OutOrStdout()
			sample := func(repo grammar.Repository) {
				g, err := c.generatorFor(repo, nil)
				if err != nil {
					fmt.Fprintf(out, "error: %v\n", err)
					return
				}
				m, err := mf.build(g)
				if err != nil {
					fmt.Fprintf(out, "error: %v\n", err)
					return
				}
				text, err := g.Generate(args[0], m)
				if err != nil {
					fmt.Fprintf(out, "error: %v\n", err)
					return
				}
				fmt.Fprintln(out, text)
			}

			repo, err := c.loadGrammar()
			if err != nil {
				return err
			}
			sample(repo)

			w, err := grammar.NewWatcher(c.cfg.Grammar.Path, func(repo grammar.Repository, err error) {
				if err != nil {
					c.logger.Warn("grammar reload failed", zap.Error(err))
					fmt.Fprintf(out, "reload failed: %v\n", err)
					return
				}
				sample(repo)
			})
			if err != nil {
				return err
			}
			w.SetDebounce(debounce)
			return w.Run(ctx)
		},
	}

	cmd.Flags().DurationVar(&debounce, "debounce", 200*time.Millisecond, "Quiet period before reloading")
	addModelFlags(cmd, &mf)
	return cmd
}
