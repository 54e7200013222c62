package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/cognicore/newsscan/pkg/newsscan/config"
)

// globalOptions are the persistent flags shared by every subcommand.
type globalOptions struct {
	configPath string
	envFile    string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	g := &globalOptions{}

	root := &cobra.Command{
		Use:   "newsscan",
		Short: "Fetch, normalize and store news from APIs and feeds",
		Long: `newsscan pulls articles from the GDELT document API, RSS/Atom feeds
and intelligence feeds, reduces them to one record shape, tags topics,
regions, tickers and alerts, then filters, deduplicates and stores them.`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&g.configPath, "config", "", "YAML configuration file (defaults are built in)")
	root.PersistentFlags().StringVar(&g.envFile, "env", ".env", "Environment file to load if present")
	root.PersistentFlags().StringVar(&g.logLevel, "log-level", "info", "Log level: debug, info, warn or error")

	root.AddCommand(newRunCmd(g), newShowCmd(g), newSourcesCmd(g), newImportCmd(g))
	return root
}

// load resolves the configuration and the logger for a command.
func (g *globalOptions) load() (*config.Config, *slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(g.logLevel)); err != nil {
		return nil, nil, fmt.Errorf("invalid --log-level %q", g.logLevel)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	cfg, err := config.Load(g.configPath)
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.ApplyEnv(g.envFile); err != nil {
		return nil, nil, err
	}

	return cfg, logger, nil
}
