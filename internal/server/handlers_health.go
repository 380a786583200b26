package server

import (
	"os"

	"github.com/labstack/echo/v4"

	"github.com/flusswasser/nightbot-uninstall/internal/platform/version"
)

func (s *Server) handleLiveness(c echo.Context) error {
	uptime := s.clock.Since(s.startTime).Seconds()
	return c.JSON(200, map[string]any{
		"status": "ok",
		"uptime": uptime,
		"build":  version.Get(),
	})
}

func (s *Server) handleReadiness(c echo.Context) error {
	// Snapshots are the only external dependency; ready means the data
	// directory is reachable.
	if _, err := os.Stat(s.config.DataDir); err != nil {
		return c.JSON(503, map[string]any{
			"status":       "unhealthy",
			"failed_check": "data_dir",
			"error":        err.Error(),
		})
	}
	return c.JSON(200, map[string]string{"status": "ready"})
}
