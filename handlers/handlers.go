// Package handlers exposes the planner over HTTP with gin.
package handlers

import (
	"context"

	"github.com/effective-security/xlog"
	"tripcopilot/config"
	"tripcopilot/database"
	"tripcopilot/models"
)

var logger = xlog.NewPackageLogger("tripcopilot", "handlers")

// Planner builds an itinerary.
type Planner interface {
	Plan(ctx context.Context, req *models.PlanRequest) (*models.PlanResponse, error)
}

// Critic reports warnings for a finished plan.
type Critic interface {
	Validate(ctx context.Context, req *models.PlanRequest, plan *models.PlanResponse) []string
}

// TripStore is the persistence used by the trip routes.
type TripStore interface {
	Ping(ctx context.Context) error
	SaveTrip(ctx context.Context, t *database.Trip) error
	GetTrip(ctx context.Context, id string) (*database.Trip, error)
	ListTrips(ctx context.Context, limit int) ([]database.TripSummary, error)
	SaveFeedback(ctx context.Context, f *database.Feedback) error
}

type Handler struct {
	cfg     *config.Settings
	planner Planner
	critic  Critic

	// store is nil when persistence is disabled.
	store TripStore
}

func New(cfg *config.Settings, planner Planner, critic Critic, store TripStore) *Handler {
	return &Handler{
		cfg:     cfg,
		planner: planner,
		critic:  critic,
		store:   store,
	}
}
