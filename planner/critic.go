package planner

import (
	"context"
	"fmt"

	"github.com/effective-security/xlog"
	"tripcopilot/models"
	"tripcopilot/services"
)

// maxTransferMinutes is the longest city-to-city train ride accepted without
// a warning.
const maxTransferMinutes = 240

// TransferTimer measures live travel time between two points.
type TransferTimer interface {
	TravelMinutes(ctx context.Context, from, to services.LatLon, mode string) (int, error)
}

// Critic reviews a finished plan and reports human-readable warnings.
type Critic struct {
	catalog    *Catalog
	directions TransferTimer
}

// NewCritic returns a critic. Without directions, transfer times are
// estimated from distance.
func NewCritic(catalog *Catalog, directions *services.DirectionsClient) *Critic {
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	c := &Critic{catalog: catalog}
	if directions != nil {
		c.directions = directions
	}
	return c
}

// Validate returns the warnings for plan; an empty result means no issues.
func (c *Critic) Validate(ctx context.Context, req *models.PlanRequest, plan *models.PlanResponse) []string {
	issues := []string{}
	if plan.TotalCostEstimateEUR <= 0 {
		issues = append(issues, "Total cost is zero — likely a planning error.")
	}
	if req != nil && plan.TotalCostEstimateEUR > float64(req.BudgetEUR) {
		issues = append(issues, fmt.Sprintf("Estimated total €%.2f exceeds the €%d budget.",
			plan.TotalCostEstimateEUR, req.BudgetEUR))
	}

	for i := 1; i < len(plan.Days); i++ {
		from, to := plan.Days[i-1].City, plan.Days[i].City
		if normalizeCity(from) == normalizeCity(to) {
			continue
		}
		a, okA := c.catalog.Lookup(from)
		b, okB := c.catalog.Lookup(to)
		if !okA || !okB {
			continue
		}
		if m := c.transferMinutes(ctx, a.LatLon, b.LatLon); m > maxTransferMinutes {
			issues = append(issues, fmt.Sprintf("Transfer %s to %s on %s takes about %dh%02d by train.",
				a.Name, b.Name, plan.Days[i].Date, m/60, m%60))
		}
	}
	return issues
}

func (c *Critic) transferMinutes(ctx context.Context, from, to services.LatLon) int {
	if c.directions != nil {
		m, err := c.directions.TravelMinutes(ctx, from, to, "transit")
		if err == nil {
			return m
		}
		logger.ContextKV(ctx, xlog.DEBUG, "reason", "directions", "err", err.Error())
	}
	return services.EstimateMinutes(from, to, "train")
}
