package api

import (
	"context"
	"time"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"github.com/user/ai-spend-tracker/internal/provider"
	"github.com/user/ai-spend-tracker/internal/spend"
)

type Server struct {
	registry *provider.Registry
	agg      *spend.Aggregator
	creds    spend.CredentialSource
	timeout  time.Duration
	echo     *echo.Echo
}

func NewServer(registry *provider.Registry, agg *spend.Aggregator, creds spend.CredentialSource, timeout time.Duration) *Server {
	s := &Server{
		registry: registry,
		agg:      agg,
		creds:    creds,
		timeout:  timeout,
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	s.registerRoutes(e)
	s.echo = e

	return s
}

func (s *Server) Start(addr string) error {
	return s.echo.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// RefreshLoop fetches a fresh snapshot immediately and then on every tick
// until ctx is canceled, so reads between ticks hit the store.
func (s *Server) RefreshLoop(ctx context.Context, interval time.Duration) {
	s.refresh(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.refresh(ctx)
		}
	}
}

func (s *Server) refresh(ctx context.Context) {
	fetchCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if _, err := s.agg.GetSpend(fetchCtx, true); err != nil {
		log.Warnf("background refresh failed: %v", err)
	}
}
