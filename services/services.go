// Package services holds the external provider integrations (flights,
// weather, hotels, routing, narrative text) and the PDF renderer.
//
// Every live provider has a bounded fallback; callers never need to surface a
// provider failure to the user.
package services

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xlog"
	"tripcopilot/models"
)

var logger = xlog.NewPackageLogger("tripcopilot", "services")

// FlightPricer quotes a one-way flight in EUR.
type FlightPricer interface {
	Name() string
	Quote(ctx context.Context, origin, dest, departDate string) (*models.FlightQuote, error)
}

// Forecaster returns the forecast for a coordinate on a date (YYYY-MM-DD).
type Forecaster interface {
	Forecast(ctx context.Context, lat, lon float64, date string) (*models.Weather, error)
}

// HotelFinder estimates one night of lodging in a city, capped at maxPrice.
type HotelFinder interface {
	NightlyHotel(ctx context.Context, city, date string, guests, maxPrice int) (*models.HotelQuote, error)
}

// statusError is returned for non-2xx provider responses.
type statusError struct {
	Status int
	Body   string
}

func (e *statusError) Error() string {
	return strconv.Itoa(e.Status) + ": " + e.Body
}

// getBody performs a GET and returns the body of a 2xx response.
func getBody(ctx context.Context, client *http.Client, endpoint string, params url.Values) ([]byte, error) {
	u := endpoint
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build request")
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read response")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &statusError{Status: resp.StatusCode, Body: truncate(string(body), 200)}
	}
	return body, nil
}

// sleepCtx waits for d or until ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func newHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}
