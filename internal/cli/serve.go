package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/user/ai-spend-tracker/internal/api"
	"github.com/user/ai-spend-tracker/internal/cache"
)

func init() {
	serveCmd.Flags().IntP("port", "p", 0, "Port to listen on (default from config)")
	serveCmd.Flags().StringP("host", "H", "localhost", "Host to listen on")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the spend API server",
	Long:  `Serves the aggregated spend snapshot over HTTP, refreshing it in the background on the cache TTL.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, registry, err := setup()
		if err != nil {
			return err
		}

		port, _ := cmd.Flags().GetInt("port")
		if port == 0 {
			port = cfg.Settings.APIPort
		}
		host, _ := cmd.Flags().GetString("host")

		agg, creds := newAggregator(cfg, registry, cache.NewMemory())
		srv := api.NewServer(registry, agg, creds, cfg.Settings.Timeout)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		go srv.RefreshLoop(ctx, cfg.Settings.CacheTTL)

		addr := fmt.Sprintf("%s:%d", host, port)
		log.Infof("serving spend API on %s", addr)

		errCh := make(chan error, 1)
		go func() {
			errCh <- srv.Start(addr)
		}()

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	},
}
