package services

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/tidwall/gjson"
	"tripcopilot/models"
)

// ─── Open-Meteo (no key) ─────────────────────────────────────────────────────

type OpenMeteoClient struct {
	baseURL    string
	timezone   string
	httpClient *http.Client
}

func NewOpenMeteoClient(baseURL string) *OpenMeteoClient {
	if baseURL == "" {
		baseURL = "https://api.open-meteo.com/v1/forecast"
	}
	return &OpenMeteoClient{
		baseURL:    baseURL,
		timezone:   "Europe/Paris",
		httpClient: newHTTPClient(10 * time.Second),
	}
}

func (c *OpenMeteoClient) Forecast(ctx context.Context, lat, lon float64, date string) (*models.Weather, error) {
	params := url.Values{}
	params.Set("latitude", strconv.FormatFloat(lat, 'f', 4, 64))
	params.Set("longitude", strconv.FormatFloat(lon, 'f', 4, 64))
	params.Set("daily", "weathercode,temperature_2m_max,temperature_2m_min,precipitation_probability_max")
	params.Set("timezone", c.timezone)
	params.Set("start_date", date)
	params.Set("end_date", date)

	body, err := getBody(ctx, c.httpClient, c.baseURL, params)
	if err != nil {
		return nil, errors.Wrap(err, "open-meteo forecast failed")
	}

	daily := gjson.GetBytes(body, "daily")
	code := daily.Get("weathercode.0")
	high := daily.Get("temperature_2m_max.0")
	low := daily.Get("temperature_2m_min.0")
	pop := daily.Get("precipitation_probability_max.0")
	if code.Type != gjson.Number || high.Type != gjson.Number || low.Type != gjson.Number || pop.Type != gjson.Number {
		w := models.DefaultWeather()
		return &w, nil
	}

	return &models.Weather{
		Summary:  wmoLabel(int(code.Int())),
		HighC:    high.Num,
		LowC:     low.Num,
		RainRisk: clampRisk(pop.Num / 100.0),
	}, nil
}

// wmoLabel maps a WMO weather interpretation code to a short label.
func wmoLabel(code int) string {
	switch {
	case code == 0:
		return "Clear"
	case code <= 3:
		return "Clouds"
	case code == 45 || code == 48:
		return "Fog"
	case code >= 51 && code <= 57:
		return "Drizzle"
	case (code >= 61 && code <= 67) || (code >= 80 && code <= 82):
		return "Rain"
	case (code >= 71 && code <= 77) || code == 85 || code == 86:
		return "Snow"
	case code >= 95:
		return "Thunderstorm"
	}
	return "Unknown"
}

// ─── OpenWeather (key) ───────────────────────────────────────────────────────

type OpenWeatherClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

func NewOpenWeatherClient(apiKey, baseURL string) *OpenWeatherClient {
	if baseURL == "" {
		baseURL = "https://api.openweathermap.org"
	}
	return &OpenWeatherClient{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: newHTTPClient(12 * time.Second),
	}
}

// Forecast tries One Call 3.0 first. When it is not enabled for the key
// (typically 401/403/404) or fails otherwise, the free 5-day/3-hour forecast
// is aggregated for the date instead.
func (c *OpenWeatherClient) Forecast(ctx context.Context, lat, lon float64, date string) (*models.Weather, error) {
	if c.apiKey == "" {
		return nil, errors.New("OPENWEATHER_API_KEY missing")
	}

	w, err := c.oneCall(ctx, lat, lon, date)
	if err == nil {
		return w, nil
	}

	w, aggErr := c.aggregateForecast(ctx, lat, lon, date)
	if aggErr != nil {
		return nil, errors.WithSecondaryError(err, aggErr)
	}
	return w, nil
}

func (c *OpenWeatherClient) params(lat, lon float64) url.Values {
	params := url.Values{}
	params.Set("lat", strconv.FormatFloat(lat, 'f', 4, 64))
	params.Set("lon", strconv.FormatFloat(lon, 'f', 4, 64))
	params.Set("units", "metric")
	params.Set("appid", c.apiKey)
	return params
}

func (c *OpenWeatherClient) oneCall(ctx context.Context, lat, lon float64, date string) (*models.Weather, error) {
	params := c.params(lat, lon)
	params.Set("exclude", "minutely,hourly,alerts")

	body, err := getBody(ctx, c.httpClient, c.baseURL+"/data/3.0/onecall", params)
	if err != nil {
		return nil, errors.Wrap(err, "one call 3.0 failed")
	}

	daily := gjson.GetBytes(body, "daily").Array()
	if len(daily) == 0 {
		return nil, errors.New("No daily data in One Call 3.0 response")
	}

	bucket := daily[0]
	for _, d := range daily {
		if dateOf(d.Get("dt")) == date {
			bucket = d
			break
		}
	}

	summary := bucket.Get("weather.0.main").String()
	if summary == "" {
		summary = "Unknown"
	}
	pop := 0.2
	if p := bucket.Get("pop"); p.Exists() {
		pop = p.Float()
	}
	return &models.Weather{
		Summary:  summary,
		HighC:    floatOr(bucket.Get("temp.max"), 18.0),
		LowC:     floatOr(bucket.Get("temp.min"), 10.0),
		RainRisk: clampRisk(pop),
	}, nil
}

func (c *OpenWeatherClient) aggregateForecast(ctx context.Context, lat, lon float64, date string) (*models.Weather, error) {
	body, err := getBody(ctx, c.httpClient, c.baseURL+"/data/2.5/forecast", c.params(lat, lon))
	if err != nil {
		return nil, errors.Wrap(err, "5-day forecast failed")
	}

	all := gjson.GetBytes(body, "list").Array()
	var blocks []gjson.Result
	for _, b := range all {
		if dateOf(b.Get("dt")) == date {
			blocks = append(blocks, b)
		}
	}
	if len(blocks) == 0 {
		// nearest day when the target is outside the window
		blocks = all[:min(8, len(all))]
	}

	var (
		highs, lows, pops []float64
		counts            = map[string]int{}
		order             []string
	)
	for _, b := range blocks {
		m := b.Get("main")
		high := m.Get("temp_max")
		if !high.Exists() {
			high = m.Get("temp")
		}
		low := m.Get("temp_min")
		if !low.Exists() {
			low = m.Get("temp")
		}
		if high.Exists() {
			highs = append(highs, high.Float())
		}
		if low.Exists() {
			lows = append(lows, low.Float())
		}
		pops = append(pops, floatOr(b.Get("pop"), 0.2))

		label := b.Get("weather.0.main").String()
		if label == "" {
			label = "Unknown"
		}
		if counts[label] == 0 {
			order = append(order, label)
		}
		counts[label]++
	}

	if len(highs) == 0 {
		w := models.DefaultWeather()
		return &w, nil
	}

	summary := "Unknown"
	best := 0
	for _, label := range order {
		if counts[label] > best {
			summary, best = label, counts[label]
		}
	}

	w := &models.Weather{
		Summary:  summary,
		HighC:    maxOf(highs),
		LowC:     10.0,
		RainRisk: clampRisk(maxOf(pops)),
	}
	if len(lows) > 0 {
		w.LowC = minOf(lows)
	}
	return w, nil
}

// ─── Helpers ──────────────────────────────────────────────────────────────────

// dateOf turns a unix timestamp or ISO string into YYYY-MM-DD (UTC).
func dateOf(v gjson.Result) string {
	if v.Type == gjson.Number {
		return time.Unix(v.Int(), 0).UTC().Format("2006-01-02")
	}
	s := v.String()
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.Format("2006-01-02")
	}
	if len(s) > 10 {
		return s[:10]
	}
	return s
}

func clampRisk(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

func floatOr(r gjson.Result, def float64) float64 {
	if r.Type == gjson.Number {
		return r.Num
	}
	if r.Type == gjson.String {
		if f, err := strconv.ParseFloat(r.Str, 64); err == nil {
			return f
		}
	}
	return def
}

func maxOf(vs []float64) float64 {
	m := vs[0]
	for _, v := range vs[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

func minOf(vs []float64) float64 {
	m := vs[0]
	for _, v := range vs[1:] {
		if v < m {
			m = v
		}
	}
	return m
}
