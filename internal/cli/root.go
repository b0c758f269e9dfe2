package cli

import (
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/user/ai-spend-tracker/internal/adapter"
	"github.com/user/ai-spend-tracker/internal/config"
	"github.com/user/ai-spend-tracker/internal/provider"
	"github.com/user/ai-spend-tracker/internal/spend"
)

var (
	cfgFile string
	debug   bool

	rootCmd = &cobra.Command{
		Use:   "ai-spend",
		Short: "AI Spend Tracker",
		Long:  `A tool to aggregate current spend across AI provider accounts into one view.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if debug {
				log.SetLevel(log.DebugLevel)
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return spendCmd.RunE(cmd, args)
		},
	}
)

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.ai-spend-tracker.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "log provider HTTP requests and responses")

	rootCmd.AddCommand(spendCmd)
	rootCmd.AddCommand(providersCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(serveCmd)

	rootCmd.Flags().BoolP("refresh", "r", false, "Bypass the cache and refetch")
	rootCmd.Flags().BoolP("json", "j", false, "Output as JSON")
	rootCmd.Flags().IntP("window", "w", 0, "Spend window in days (overrides config)")
}

func setup() (*config.Config, *provider.Registry, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	registry := provider.NewRegistry()
	adapter.RegisterAll(registry)

	return cfg, registry, nil
}

func newAggregator(cfg *config.Config, registry *provider.Registry, store spend.Store) (*spend.Aggregator, spend.CredentialSource) {
	creds := config.NewResolver(cfg, registry.IDs())
	agg := spend.New(registry, creds, store, spend.Options{
		WindowDays: cfg.Settings.WindowDays,
		TTL:        cfg.Settings.CacheTTL,
		CarryStale: cfg.Settings.CarryStale,
		Retry: spend.RetryPolicy{
			Attempts:     cfg.Settings.Retry.Attempts,
			InitialDelay: cfg.Settings.Retry.InitialDelay,
			Backoff:      cfg.Settings.Retry.Backoff,
		},
	})
	return agg, creds
}
