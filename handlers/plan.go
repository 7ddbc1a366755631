package handlers

import (
	"net/http"

	"github.com/effective-security/xlog"
	"github.com/gin-gonic/gin"
	"tripcopilot/database"
	"tripcopilot/handlers/middleware"
	"tripcopilot/models"
)

type PlanResult struct {
	Result *models.PlanResponse `json:"result"`
	Issues []string             `json:"issues"`
	TripID string               `json:"trip_id,omitempty"`
}

// Plan builds an itinerary, runs the checks and stores the trip when
// persistence is enabled. Invalid input and planning errors are 400s.
func (h *Handler) Plan(c *gin.Context) {
	req := models.NewPlanRequest()
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}
	req.ApplyDefaults()

	ctx := c.Request.Context()
	plan, err := h.planner.Plan(ctx, &req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res := PlanResult{
		Result: plan,
		Issues: h.critic.Validate(ctx, &req, plan),
	}
	if res.Issues == nil {
		res.Issues = []string{}
	}

	if h.store != nil {
		trip := &database.Trip{Request: req, Plan: *plan, Issues: res.Issues}
		if err := h.store.SaveTrip(ctx, trip); err != nil {
			logger.ContextKV(ctx, xlog.ERROR, "reason", "save_trip", "request_id", middleware.GetRequestID(c), "err", err.Error())
		} else {
			res.TripID = trip.ID
		}
	}

	c.JSON(http.StatusOK, res)
}
