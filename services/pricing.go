package services

import (
	"context"
	"fmt"
	"math"
	"net/url"

	"github.com/brianvoe/gofakeit/v7"
	"tripcopilot/models"
)

// MockFlightPricer returns a plausible random quote. It is always available
// and is the runtime fallback for every live flight provider.
type MockFlightPricer struct{}

func (MockFlightPricer) Name() string { return "mock-skyscanner" }

func (MockFlightPricer) Quote(_ context.Context, origin, dest, departDate string) (*models.FlightQuote, error) {
	return &models.FlightQuote{
		Provider: "mock-skyscanner",
		PriceEUR: round2(gofakeit.Float64Range(60, 180)),
		Currency: "EUR",
		URL: fmt.Sprintf("https://example.com/flights?o=%s&d=%s&dt=%s",
			url.QueryEscape(origin), url.QueryEscape(dest), url.QueryEscape(departDate)),
		TTLMin: 30,
	}, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
