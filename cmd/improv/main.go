// Command improv generates text from snippet grammars.
package main

import (
	"fmt"
	"os"

	"improv/internal/config"
	"improv/internal/logging"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// cli carries global flags and the state PersistentPreRunE prepares.
type cli struct {
	// Global flags
	configPath  string
	grammarPath string
	verbose     bool
	seed        uint64

	cfg    *config.Config
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:   "improv",
		Short: "Generate text from tagged snippet grammars",
		Long: `improv expands snippet grammars into text.

A grammar is a set of named snippets, each a list of tagged phrase groups.
Phrases may contain bracket directives ([:snippet], [|tag|value:snippet],
[name:snippet], [#1-6], [prop], [fn arg]) that are expanded recursively.
Filters score each group against the model's tags and history before a
phrase is picked.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if c.logger != nil {
				_ = c.logger.Sync()
			}
			logging.CloseAll()
		},
	}

	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", config.DefaultPath, "Config file")
	root.PersistentFlags().StringVarP(&c.grammarPath, "grammar", "g", "", "Grammar file or directory (overrides config)")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "Enable verbose logging")
	root.PersistentFlags().Uint64Var(&c.seed, "seed", 0, "Random seed (default: config, then clock)")

	root.AddCommand(
		newGenCmd(c),
		newAuditCmd(c),
		newBatchCmd(c),
		newWatchCmd(c),
		newValidateCmd(c),
	)
	return root
}

// setup loads configuration and initializes logging.
func (c *cli) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	if c.grammarPath != "" {
		cfg.Grammar.Path = c.grammarPath
	}
	if cmd.Flags().Changed("seed") {
		cfg.Generator.Seed = &c.seed
	}
	if c.verbose {
		cfg.Logging.DebugMode = true
		cfg.Logging.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	c.cfg = cfg

	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	if c.verbose {
		zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	c.logger, err = zcfg.Build()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	if err := logging.Initialize(cfg.Logging.ToLogging()); err != nil {
		return err
	}
	logging.Get(logging.CategoryBoot).Info("config loaded from %s, grammar at %s", c.configPath, cfg.Grammar.Path)
	return nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
