package services

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/effective-security/xlog"
	"github.com/tidwall/gjson"
	"tripcopilot/models"
)

// placesEstimateEUR bounds the nightly price when a provider has no price.
const placesEstimateEUR = 150.0

// ─── Mock ────────────────────────────────────────────────────────────────────

// MockHotelFinder returns a random nightly rate capped at maxPrice.
type MockHotelFinder struct{}

func (MockHotelFinder) NightlyHotel(_ context.Context, city, date string, guests, maxPrice int) (*models.HotelQuote, error) {
	return &models.HotelQuote{
		Provider: "mock-booking",
		City:     city,
		CheckIn:  date,
		Nights:   1,
		Guests:   guests,
		PriceEUR: math.Min(float64(maxPrice), round2(gofakeit.Float64Range(80, 180))),
		Rating:   math.Round(gofakeit.Float64Range(3.8, 4.8)*10) / 10,
		URL:      fmt.Sprintf("https://example.com/hotels?c=%s&ci=%s", url.QueryEscape(city), url.QueryEscape(date)),
	}, nil
}

// ─── Google Places ───────────────────────────────────────────────────────────

// GooglePlacesClient looks a hotel up with Places Text Search. Places has no
// prices, so the estimate is min(maxPrice, 150).
type GooglePlacesClient struct {
	apiKey     string
	baseURL    string
	country    string
	httpClient *http.Client
}

func NewGooglePlacesClient(apiKey, baseURL string) *GooglePlacesClient {
	if baseURL == "" {
		baseURL = "https://maps.googleapis.com"
	}
	return &GooglePlacesClient{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		country:    "France",
		httpClient: newHTTPClient(10 * time.Second),
	}
}

// NightlyHotel never fails: a missing key or a lookup error returns the
// bounded fallback, tagged in Provider.
func (c *GooglePlacesClient) NightlyHotel(ctx context.Context, city, date string, guests, maxPrice int) (*models.HotelQuote, error) {
	if c.apiKey == "" {
		return c.fallback("google-places(fallback)", city, date, guests, maxPrice), nil
	}

	params := url.Values{}
	params.Set("query", fmt.Sprintf("best hotel in %s, %s", city, c.country))
	params.Set("type", "lodging")
	params.Set("key", c.apiKey)

	body, err := getBody(ctx, c.httpClient, c.baseURL+"/maps/api/place/textsearch/json", params)
	if err != nil {
		logger.ContextKV(ctx, xlog.WARNING, "provider", "google-places", "city", city, "err", err.Error())
		return c.fallback("google-places(error-fallback)", city, date, guests, maxPrice), nil
	}

	top := gjson.GetBytes(body, "results.0")
	name := top.Get("name").String()
	if name == "" {
		name = "Hotel in " + city
	}
	rating := 4.2
	if r := top.Get("rating"); r.Exists() {
		rating = r.Float()
	}

	return &models.HotelQuote{
		Provider: "google-places",
		City:     city,
		CheckIn:  date,
		Nights:   1,
		Guests:   guests,
		PriceEUR: math.Min(float64(maxPrice), placesEstimateEUR),
		Rating:   rating,
		URL:      mapsSearchURL(name + " " + city),
	}, nil
}

func (c *GooglePlacesClient) fallback(provider, city, date string, guests, maxPrice int) *models.HotelQuote {
	return &models.HotelQuote{
		Provider: provider,
		City:     city,
		CheckIn:  date,
		Nights:   1,
		Guests:   guests,
		PriceEUR: math.Min(float64(maxPrice), placesEstimateEUR),
		Rating:   4.2,
		URL:      mapsSearchURL("hotel " + city + " " + c.country),
	}
}

func mapsSearchURL(query string) string {
	return "https://www.google.com/maps/search/?api=1&query=" + url.QueryEscape(query)
}
