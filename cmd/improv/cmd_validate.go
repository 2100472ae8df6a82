package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newValidateCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Load the grammar and check every snippet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := c.loadGrammar()
			if err != nil {
				return err
			}
			if err := repo.Validate(); err != nil {
				return fmt.Errorf("grammar %s is invalid:\n%w", c.cfg.Grammar.Path, err)
			}

			phrases := 0
			for _, name := range repo.Names() {
				phrases += len(repo[name].Phrases())
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d snippets, %d phrases OK\n", c.cfg.Grammar.Path, len(repo), phrases)
			return nil
		},
	}
}
