package handlers

import (
	"net/http"
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xlog"
	"github.com/gin-gonic/gin"
	"tripcopilot/database"
)

const (
	defaultTripsLimit = 20
	maxTripsLimit     = 100
)

type FeedbackRequest struct {
	Rating  int    `json:"rating" binding:"required,min=1,max=5"`
	Comment string `json:"comment" binding:"max=2000"`
}

// requireStore writes a 503 and returns false when persistence is disabled.
func (h *Handler) requireStore(c *gin.Context) bool {
	if h.store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Trip storage is not configured"})
		return false
	}
	return true
}

// loadTrip fetches :id, writing the error response itself on failure.
func (h *Handler) loadTrip(c *gin.Context) (*database.Trip, bool) {
	if !h.requireStore(c) {
		return nil, false
	}
	trip, err := h.store.GetTrip(c.Request.Context(), c.Param("id"))
	if errors.Is(err, database.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Trip not found"})
		return nil, false
	}
	if err != nil {
		logger.ContextKV(c.Request.Context(), xlog.ERROR, "reason", "get_trip", "id", c.Param("id"), "err", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load trip"})
		return nil, false
	}
	return trip, true
}

func (h *Handler) GetTrip(c *gin.Context) {
	if trip, ok := h.loadTrip(c); ok {
		c.JSON(http.StatusOK, trip)
	}
}

func (h *Handler) ListTrips(c *gin.Context) {
	if !h.requireStore(c) {
		return
	}
	limit := defaultTripsLimit
	if s := c.Query("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = min(n, maxTripsLimit)
	}

	trips, err := h.store.ListTrips(c.Request.Context(), limit)
	if err != nil {
		logger.ContextKV(c.Request.Context(), xlog.ERROR, "reason", "list_trips", "err", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list trips"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"trips": trips})
}

func (h *Handler) TripFeedback(c *gin.Context) {
	if !h.requireStore(c) {
		return
	}
	var req FeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	fb := &database.Feedback{TripID: c.Param("id"), Rating: req.Rating, Comment: req.Comment}
	err := h.store.SaveFeedback(c.Request.Context(), fb)
	if errors.Is(err, database.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Trip not found"})
		return
	}
	if err != nil {
		logger.ContextKV(c.Request.Context(), xlog.ERROR, "reason", "save_feedback", "err", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save feedback"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": fb.ID})
}
