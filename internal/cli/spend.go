package cli

import (
	"context"
	"errors"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/user/ai-spend-tracker/internal/cache"
	"github.com/user/ai-spend-tracker/internal/provider"
)

func init() {
	spendCmd.Flags().BoolP("refresh", "r", false, "Bypass the cache and refetch")
	spendCmd.Flags().BoolP("json", "j", false, "Output as JSON")
	spendCmd.Flags().IntP("window", "w", 0, "Spend window in days (overrides config)")
}

var spendCmd = &cobra.Command{
	Use:   "spend",
	Short: "Show aggregated provider spend",
	Long:  `Fetches current spend from every configured provider and prints one combined report.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, registry, err := setup()
		if err != nil {
			return err
		}

		refresh, _ := cmd.Flags().GetBool("refresh")
		jsonOutput, _ := cmd.Flags().GetBool("json")
		window, _ := cmd.Flags().GetInt("window")
		if window > 0 {
			cfg.Settings.WindowDays = window
		}

		agg, _ := newAggregator(cfg, registry, cache.NewFile(cfg.Settings.CachePath))

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Settings.Timeout)
		defer cancel()

		snap, err := agg.GetSpend(ctx, refresh)
		if err != nil {
			var perr *provider.Error
			if errors.As(err, &perr) && perr.Kind == provider.KindCacheWrite && snap != nil {
				log.Warnf("cache write failed, showing uncached result: %v", perr.Err)
			} else {
				return err
			}
		}

		if jsonOutput {
			return PrintJSON(snap)
		}
		return PrintTable(snap)
	},
}
