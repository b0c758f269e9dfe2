package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/samber/lo"

	"github.com/user/ai-spend-tracker/internal/provider"
	"github.com/user/ai-spend-tracker/internal/spend"
)

func (s *Server) registerRoutes(e *echo.Echo) {
	e.GET("/api/v1/health", s.healthHandler)
	e.GET("/api/v1/spend", s.spendHandler)
	e.POST("/api/v1/refresh", s.refreshHandler)
	e.GET("/api/v1/providers", s.providersHandler)
}

func (s *Server) healthHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) spendHandler(c echo.Context) error {
	force := c.QueryParam("refresh") == "true"

	ctx, cancel := context.WithTimeout(c.Request().Context(), s.timeout)
	defer cancel()

	snap, err := s.agg.GetSpend(ctx, force)
	return s.serveSnapshot(c, snap, err)
}

func (s *Server) refreshHandler(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), s.timeout)
	defer cancel()

	snap, err := s.agg.GetSpend(ctx, true)
	return s.serveSnapshot(c, snap, err)
}

func (s *Server) providersHandler(c echo.Context) error {
	info := lo.Map(s.registry.All(), func(p provider.Provider, _ int) map[string]any {
		_, configured := s.creds.Resolve(p.ID())
		return map[string]any{
			"id":             p.ID(),
			"display_name":   p.DisplayName(),
			"supports_spend": p.SupportsSpend(),
			"configured":     configured,
		}
	})
	return c.JSON(http.StatusOK, info)
}

// serveSnapshot writes the snapshot, downgrading a cache write failure to a
// served-anyway response since the data itself is fresh.
func (s *Server) serveSnapshot(c echo.Context, snap *spend.Snapshot, err error) error {
	if err != nil {
		var perr *provider.Error
		if errors.As(err, &perr) && perr.Kind == provider.KindCacheWrite && snap != nil {
			return c.JSON(http.StatusOK, snap)
		}
		return c.JSON(http.StatusServiceUnavailable, map[string]any{
			"error":   string(provider.KindOf(err)),
			"message": err.Error(),
		})
	}
	return c.JSON(http.StatusOK, snap)
}
