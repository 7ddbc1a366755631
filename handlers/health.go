package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"tripcopilot/config"
)

func (h *Handler) Health(c *gin.Context) {
	dbStatus := "disabled"
	if h.store != nil {
		dbStatus = "ok"
		if err := h.store.Ping(c.Request.Context()); err != nil {
			dbStatus = "error: " + err.Error()
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"service":  config.AppTitle,
		"database": dbStatus,
	})
}

// Config reports which providers are selected and which keys are set, so a
// deployment can be checked without exposing secrets.
func (h *Handler) Config(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"providers": gin.H{
			"weather": h.cfg.ProviderWeather,
			"flights": h.cfg.ProviderFlights,
			"maps":    h.cfg.ProviderMaps,
		},
		"keys_present": h.cfg.KeysPresent(),
		"app": gin.H{
			"title":   config.AppTitle,
			"version": config.AppVersion,
			"env":     h.cfg.AppEnv,
		},
	})
}
