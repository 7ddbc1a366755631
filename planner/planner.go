// Package planner assembles a day-by-day itinerary from the configured
// providers and checks the result for obvious problems.
package planner

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xlog"
	"tripcopilot/models"
	"tripcopilot/services"
)

var logger = xlog.NewPackageLogger("tripcopilot", "planner")

const isoDate = "2006-01-02"

// hotelBudgetShare is the part of the daily budget a night may cost.
const hotelBudgetShare = 0.6

// Narrator writes optional prose for a finished plan.
type Narrator interface {
	Narrate(ctx context.Context, req *models.PlanRequest, plan *models.PlanResponse) (string, error)
}

type Planner struct {
	flights  services.FlightPricer
	fallback services.FlightPricer
	weather  services.Forecaster
	hotels   services.HotelFinder
	narrator Narrator
	catalog  *Catalog
}

// New returns a planner over p. A nil catalog means the embedded one.
func New(p *services.Providers, catalog *Catalog) *Planner {
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	pl := &Planner{
		flights:  p.Flights,
		fallback: p.FallbackFlights,
		weather:  p.Weather,
		hotels:   p.Hotels,
		catalog:  catalog,
	}
	if pl.fallback == nil {
		pl.fallback = services.MockFlightPricer{}
	}
	if p.Narrator.Enabled() {
		pl.narrator = p.Narrator
	}
	return pl
}

// Plan builds the itinerary. Only invalid input is an error; every provider
// failure degrades to a fallback value.
func (p *Planner) Plan(ctx context.Context, req *models.PlanRequest) (*models.PlanResponse, error) {
	req.ApplyDefaults()
	if len(req.Cities) == 0 {
		return nil, errors.New("at least one city is required")
	}
	start, err := time.Parse(isoDate, req.StartDate)
	if err != nil {
		return nil, errors.Newf("invalid start_date %q, expected YYYY-MM-DD", req.StartDate)
	}
	end, err := time.Parse(isoDate, req.EndDate)
	if err != nil {
		return nil, errors.Newf("invalid end_date %q, expected YYYY-MM-DD", req.EndDate)
	}
	days := int(end.Sub(start).Hours() / 24)
	if days <= 0 {
		return nil, errors.New("end_date must be after start_date")
	}

	perDay := float64(req.BudgetEUR) / float64(max(1, days))
	firstCity := req.Cities[0]

	var (
		total     float64
		citations []string
	)

	// ─── Flight ──────────────────────────────────────────────────────────────
	flight, cites := p.quoteFlight(ctx, req.Origin, p.catalog.IATA(firstCity), req.StartDate)
	citations = append(citations, cites...)
	total += flight.PriceEUR
	if flight.URL != "" {
		citations = append(citations, flight.URL)
	}
	if flight.Error != "" {
		citations = append(citations, fmt.Sprintf("%s-error:%s", flight.Provider, clip(flight.Error, 140)))
	}

	// ─── Days ────────────────────────────────────────────────────────────────
	plans := make([]models.DayPlan, 0, days)
	for i := 0; i < days; i++ {
		date := start.AddDate(0, 0, i).Format(isoDate)
		city := req.Cities[min(i, len(req.Cities)-1)]
		loc := p.catalog.Coords(city, firstCity)

		w := p.forecast(ctx, loc, date)
		hotel := p.nightlyHotel(ctx, city, date, req.PartySize, int(perDay*hotelBudgetShare))
		total += hotel.PriceEUR
		if hotel.URL != "" {
			citations = append(citations, hotel.URL)
		}

		acts := dailyActivities(city, date, w.RainRisk)
		for _, a := range acts {
			total += a.CostEUR
		}
		plans = append(plans, models.DayPlan{
			Date:       date,
			City:       city,
			Activities: acts,
			Weather:    &w,
			Hotel:      hotel,
		})
	}

	plan := &models.PlanResponse{
		Summary: fmt.Sprintf("%d days across %s. Flight estimate to %s: €%.2f. Daily budget ~€%.0f.",
			days, strings.Join(req.Cities, ", "), firstCity, flight.PriceEUR, perDay),
		TotalCostEstimateEUR: math.Round(total*100) / 100,
		Days:                 plans,
		Citations:            citations,
		Flight:               flight,
	}

	if p.narrator != nil {
		text, err := p.narrator.Narrate(ctx, req, plan)
		if err != nil {
			logger.ContextKV(ctx, xlog.WARNING, "reason", "narrative", "err", err.Error())
		} else {
			plan.Narrative = text
		}
	}

	logger.ContextKV(ctx, xlog.DEBUG,
		"origin", req.Origin,
		"cities", len(req.Cities),
		"days", days,
		"total", plan.TotalCostEstimateEUR)
	return plan, nil
}

// quoteFlight asks the live provider and falls back to the mock when it fails
// or has no price. The second result holds the fallback citation, if any.
func (p *Planner) quoteFlight(ctx context.Context, origin, dest, date string) (*models.FlightQuote, []string) {
	q, err := p.flights.Quote(ctx, origin, dest, date)
	if err == nil && q != nil && q.PriceEUR > 0 {
		return q, nil
	}

	var msg string
	switch {
	case err != nil:
		msg = err.Error()
	case q != nil && q.Error != "":
		msg = "no price from provider: " + q.Error
	default:
		msg = "no price from provider"
	}
	logger.ContextKV(ctx, xlog.WARNING, "provider", p.flights.Name(), "fallback", p.fallback.Name(), "err", msg)

	cites := []string{fmt.Sprintf("%s-fallback:%s", p.flights.Name(), clip(msg, 120))}
	fq, ferr := p.fallback.Quote(ctx, origin, dest, date)
	if ferr != nil {
		return &models.FlightQuote{Provider: p.fallback.Name(), Currency: "EUR", Error: ferr.Error()}, cites
	}
	return fq, cites
}

func (p *Planner) forecast(ctx context.Context, loc services.LatLon, date string) models.Weather {
	w, err := p.weather.Forecast(ctx, loc.Lat, loc.Lon, date)
	if err != nil || w == nil {
		if err != nil {
			logger.ContextKV(ctx, xlog.WARNING, "reason", "forecast", "date", date, "err", err.Error())
		}
		return models.DefaultWeather()
	}
	return *w
}

func (p *Planner) nightlyHotel(ctx context.Context, city, date string, guests, maxPrice int) *models.HotelQuote {
	h, err := p.hotels.NightlyHotel(ctx, city, date, guests, maxPrice)
	if err == nil && h != nil {
		return h
	}
	if err != nil {
		logger.ContextKV(ctx, xlog.WARNING, "reason", "hotel", "city", city, "err", err.Error())
	}
	return &models.HotelQuote{
		Provider: "hotel-fallback",
		City:     city,
		CheckIn:  date,
		Nights:   1,
		Guests:   guests,
		PriceEUR: float64(min(maxPrice, 150)),
		Rating:   4.2,
	}
}

// dailyActivities is the fixed day template.
func dailyActivities(city, date string, rainRisk float64) []models.Activity {
	at := func(hm string) string { return date + " " + hm }
	return []models.Activity{
		{
			Title:         "Morning stroll in " + city,
			City:          city,
			StartTime:     at("09:30"),
			EndTime:       at("11:30"),
			CostEUR:       0,
			TransportMode: "walk",
		},
		{
			Title:         "Lunch: local specialty",
			City:          city,
			StartTime:     at("12:30"),
			EndTime:       at("14:00"),
			CostEUR:       25,
			TransportMode: "walk",
		},
		{
			Title:         fmt.Sprintf("Museum/landmark (rain risk %d%%)", int(rainRisk*100)),
			City:          city,
			StartTime:     at("14:30"),
			EndTime:       at("17:00"),
			CostEUR:       18,
			TransportMode: "metro",
		},
		{
			Title:         "Dinner neighborhood tour",
			City:          city,
			StartTime:     at("19:00"),
			EndTime:       at("21:00"),
			CostEUR:       45,
			TransportMode: "walk",
		},
	}
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
