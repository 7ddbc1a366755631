package services

import (
	"context"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/tidwall/gjson"
)

const earthRadiusKM = 6371.0

// LatLon is a coordinate pair in degrees.
type LatLon struct {
	Lat float64 `yaml:"lat" json:"lat"`
	Lon float64 `yaml:"lon" json:"lon"`
}

// speedsKMH is the rough average speed per transport mode.
var speedsKMH = map[string]float64{
	"walk":  4.5,
	"metro": 25.0,
	"bus":   18.0,
	"train": 120.0,
}

// HaversineKM returns the great-circle distance between a and b.
func HaversineKM(a, b LatLon) float64 {
	rad := math.Pi / 180
	dlat := (b.Lat - a.Lat) * rad
	dlon := (b.Lon - a.Lon) * rad
	h := math.Pow(math.Sin(dlat/2), 2) +
		math.Cos(a.Lat*rad)*math.Cos(b.Lat*rad)*math.Pow(math.Sin(dlon/2), 2)
	return 2 * earthRadiusKM * math.Asin(math.Sqrt(h))
}

// TravelMinutesKM is the time in minutes to cover distanceKM by mode,
// at least 1. Unknown modes use 20 km/h.
func TravelMinutesKM(distanceKM float64, mode string) int {
	v, ok := speedsKMH[mode]
	if !ok {
		v = 20.0
	}
	return max(1, int(distanceKM/v*60))
}

// EstimateMinutes estimates travel time between two points, at least 5.
func EstimateMinutes(a, b LatLon, mode string) int {
	return max(5, TravelMinutesKM(HaversineKM(a, b), mode))
}

// ─── Google Directions ───────────────────────────────────────────────────────

type DirectionsClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

func NewDirectionsClient(apiKey, baseURL string) *DirectionsClient {
	if baseURL == "" {
		baseURL = "https://maps.googleapis.com"
	}
	return &DirectionsClient{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: newHTTPClient(10 * time.Second),
	}
}

// TravelMinutes asks Google Directions for the duration of the first route.
// mode is driving, walking, bicycling or transit. No route yields 15.
func (c *DirectionsClient) TravelMinutes(ctx context.Context, from, to LatLon, mode string) (int, error) {
	if c.apiKey == "" {
		return 0, errors.New("GOOGLE_MAPS_API_KEY missing")
	}

	params := url.Values{}
	params.Set("origin", formatLatLon(from))
	params.Set("destination", formatLatLon(to))
	params.Set("mode", mode)
	params.Set("key", c.apiKey)
	if mode == "transit" {
		params.Set("departure_time", "now")
	}

	body, err := getBody(ctx, c.httpClient, c.baseURL+"/maps/api/directions/json", params)
	if err != nil {
		return 0, errors.Wrap(err, "directions request failed")
	}

	routes := gjson.GetBytes(body, "routes")
	if len(routes.Array()) == 0 {
		return 15, nil
	}

	secs := 0.0
	for _, leg := range routes.Get("0.legs").Array() {
		secs += leg.Get("duration.value").Float()
	}
	return max(1, int(math.Ceil(secs/60.0))), nil
}

func formatLatLon(p LatLon) string {
	return strconv.FormatFloat(p.Lat, 'f', -1, 64) + "," + strconv.FormatFloat(p.Lon, 'f', -1, 64)
}
