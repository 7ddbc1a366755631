package handlers

import (
	"fmt"
	"net/http"

	"github.com/effective-security/xlog"
	"github.com/gin-gonic/gin"
	"tripcopilot/handlers/middleware"
	"tripcopilot/web"
)

// NewRouter wires every route and the shared middleware.
func NewRouter(h *Handler) *gin.Engine {
	registerValidators()

	r := gin.New()
	r.Use(middleware.RequestID(), middleware.Logger(), recovery(), middleware.CORS(h.cfg.FrontendURLs))

	if err := r.SetTrustedProxies(nil); err != nil {
		logger.KV(xlog.WARNING, "reason", "trusted_proxies", "err", err.Error())
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "route not found", "path": c.Request.URL.Path})
	})

	r.GET("/", func(c *gin.Context) {
		c.Data(http.StatusOK, "text/html; charset=utf-8", web.Index)
	})
	r.GET("/health", h.Health)
	r.GET("/config", h.Config)
	r.POST("/plan", h.Plan)

	trips := r.Group("/trips")
	{
		trips.GET("", h.ListTrips)
		trips.GET("/:id", h.GetTrip)
		trips.GET("/:id/pdf", h.DownloadTripPDF)
		trips.POST("/:id/feedback", h.TripFeedback)
	}
	return r
}

// recovery turns a panic into the same 400 shape every other failure uses.
func recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logger.ContextKV(c.Request.Context(), xlog.ERROR,
			"reason", "panic",
			"request_id", middleware.GetRequestID(c),
			"path", c.Request.URL.Path,
			"err", fmt.Sprint(recovered))
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Unexpected error while handling the request"})
	})
}
