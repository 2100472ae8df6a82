package main

import (
	"fmt"
	"io"

	"improv/internal/audit"

	"github.com/spf13/cobra"
)

func newAuditCmd(c *cli) *cobra.Command {
	var (
		runs   int
		unused bool
		save   bool
		label  string
		mf     modelFlags
	)

	cmd := &cobra.Command{
		Use:   "audit [snippet]",
		Short: "Count phrase usage over many generations",
		Long: `Generates the snippet --runs times with auditing on and prints, per
snippet, every declared phrase with its use count, most used first.
Phrases never chosen show 0.

Example:
  improv audit root --runs 1000 --prime class --prime graph`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := c.newGenerator(withAudit)
			if err != nil {
				return err
			}

			for range runs {
				m, err := mf.build(g)
				if err != nil {
					return err
				}
				if _, err := g.Generate(args[0], m); err != nil {
					return err
				}
			}

			snap, _ := g.PhraseAudit()
			if unused {
				printUnused(cmd.OutOrStdout(), snap)
			} else {
				printReport(cmd.OutOrStdout(), snap)
			}

			if save {
				c.cfg.AuditStore.Enabled = true
			}
			if label == "" {
				label = fmt.Sprintf("audit %s x%d", args[0], runs)
			}
			return c.saveAudit(cmd.Context(), label, snap)
		},
	}

	cmd.Flags().IntVarP(&runs, "runs", "n", 1000, "Number of generations")
	cmd.Flags().BoolVar(&unused, "unused", false, "Only list phrases never chosen")
	cmd.Flags().BoolVar(&save, "save", false, "Save the run to the audit store")
	cmd.Flags().StringVar(&label, "label", "", "Label for the saved run")
	addModelFlags(cmd, &mf)

	cmd.AddCommand(newAuditShowCmd(c), newAuditListCmd(c))
	return cmd
}

func newAuditShowCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "show [run-id]",
		Short: "Print a saved audit run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := audit.NewStore(c.cfg.AuditStore.Path)
			if err != nil {
				return err
			}
			defer store.Close()

			snap, err := store.Load(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printReport(cmd.OutOrStdout(), snap)
			return nil
		},
	}
}

func newAuditListCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved audit runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := audit.NewStore(c.cfg.AuditStore.Path)
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.Runs(cmd.Context())
			if err != nil {
				return err
			}
			for _, r := range runs {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%d\t%s\n",
					r.ID, r.CreatedAt.Format("2006-01-02 15:04:05"), r.Total, r.Label)
			}
			return nil
		},
	}
}

func printReport(w io.Writer, snap audit.Snapshot) {
	for _, s := range snap.Report() {
		fmt.Fprintln(w, s.Snippet)
		for _, p := range s.Phrases {
			fmt.Fprintf(w, "\t%s :: %d\n", p.Phrase, p.Count)
		}
	}
}

func printUnused(w io.Writer, snap audit.Snapshot) {
	unused := snap.Unused()
	for _, s := range snap.Report() {
		phrases := unused[s.Snippet]
		if len(phrases) == 0 {
			continue
		}
		fmt.Fprintln(w, s.Snippet)
		for _, p := range phrases {
			fmt.Fprintf(w, "\t%s\n", p)
		}
	}
}
