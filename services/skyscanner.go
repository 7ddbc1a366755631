package services

import (
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/cockroachdb/errors"
	"github.com/effective-security/xlog"
	"github.com/tidwall/gjson"
	"tripcopilot/cache"
	"tripcopilot/models"
)

const (
	skyscannerProvider = "skyscanner"
	skyscannerSite     = "https://www.skyscanner.net/"

	skyscannerMaxAttempts = 4
)

// ─── Config ──────────────────────────────────────────────────────────────────

// SkyscannerConfig describes a RapidAPI Skyscanner subscription. Vendors on
// RapidAPI differ in host, path and parameter naming, so all of it is
// configurable.
type SkyscannerConfig struct {
	APIKey     string
	Host       string // X-RapidAPI-Host
	Endpoint   string
	ParamStyle string // "fromId" (IATA) or "fromEntityId"
	Market     string
	Locale     string
	Currency   string
	CacheTTL   time.Duration
	ErrorTTL   time.Duration

	// BaseURL overrides https://{Host}.
	BaseURL string
}

// ─── Client ──────────────────────────────────────────────────────────────────

// SkyscannerClient prices flights through RapidAPI with retries, response
// shape normalization and caching of both quotes and failures.
type SkyscannerClient struct {
	cfg        SkyscannerConfig
	cache      cache.Store
	httpClient *http.Client
	sleep      func(context.Context, time.Duration) error
}

func NewSkyscannerClient(cfg SkyscannerConfig, store cache.Store) *SkyscannerClient {
	if store == nil {
		store = cache.NewMemoryStore()
	}
	if cfg.Currency == "" {
		cfg.Currency = "EUR"
	}
	return &SkyscannerClient{
		cfg:        cfg,
		cache:      store,
		httpClient: newHTTPClient(20 * time.Second),
		sleep:      sleepCtx,
	}
}

func (c *SkyscannerClient) Name() string { return skyscannerProvider }

// CacheKey is deterministic over the query and every setting that changes
// the vendor response.
func (c *SkyscannerClient) CacheKey(origin, dest, departDate string) string {
	raw := strings.Join([]string{
		origin, dest, departDate,
		c.cfg.Host, c.cfg.Endpoint, c.cfg.ParamStyle,
		c.cfg.Market, c.cfg.Locale, c.cfg.Currency,
	}, "|")
	return fmt.Sprintf("sky:%016x", xxhash.Sum64String(raw))
}

func (c *SkyscannerClient) params(origin, dest, departDate string) url.Values {
	p := url.Values{}
	p.Set("adults", "1")
	p.Set("currency", c.cfg.Currency)
	p.Set("market", c.cfg.Market)
	p.Set("locale", c.cfg.Locale)
	p.Set("departDate", departDate)
	if c.cfg.ParamStyle == "fromEntityId" {
		p.Set("fromEntityId", origin)
		p.Set("toEntityId", dest)
	} else {
		p.Set("fromId", origin)
		p.Set("toId", dest)
	}
	return p
}

func (c *SkyscannerClient) endpoint() string {
	base := c.cfg.BaseURL
	if base == "" {
		base = "https://" + c.cfg.Host
	}
	return strings.TrimRight(base, "/") + c.cfg.Endpoint
}

// Quote returns a flight quote. A provider failure is not an error: the
// returned quote has a zero price and an Error string, and the failure is
// cached for ErrorTTL. An error is returned only when the client is not
// configured or ctx is done.
func (c *SkyscannerClient) Quote(ctx context.Context, origin, dest, departDate string) (*models.FlightQuote, error) {
	if c.cfg.APIKey == "" {
		return nil, errors.New("RAPIDAPI_KEY missing for Skyscanner (RapidAPI)")
	}

	key := c.CacheKey(origin, dest, departDate)
	var cached models.FlightQuote
	found, err := c.cache.Get(ctx, key, &cached)
	if err != nil {
		logger.ContextKV(ctx, xlog.WARNING, "reason", "cache_get", "key", key, "err", err.Error())
	}
	if found {
		cached.Cached = true
		return &cached, nil
	}

	price, lastErr, err := c.fetch(ctx, origin, dest, departDate)
	if err != nil {
		return nil, err
	}

	if price > 0 {
		out := &models.FlightQuote{
			Provider: skyscannerProvider,
			PriceEUR: round2(price),
			Currency: c.cfg.Currency,
			URL:      skyscannerSite,
			TTLMin:   int(c.cfg.CacheTTL / time.Minute),
		}
		c.store(ctx, key, out, c.cfg.CacheTTL)
		return out, nil
	}

	if lastErr == "" {
		lastErr = "unknown error"
	}
	logger.ContextKV(ctx, xlog.WARNING,
		"provider", skyscannerProvider,
		"origin", origin, "dest", dest, "date", departDate,
		"err", lastErr)

	out := &models.FlightQuote{
		Provider: skyscannerProvider,
		PriceEUR: 0,
		Currency: c.cfg.Currency,
		URL:      skyscannerSite,
		Error:    lastErr,
	}
	c.store(ctx, key, out, c.cfg.ErrorTTL)
	return out, nil
}

func (c *SkyscannerClient) store(ctx context.Context, key string, q *models.FlightQuote, ttl time.Duration) {
	if err := c.cache.Set(ctx, key, q, ttl); err != nil {
		logger.ContextKV(ctx, xlog.WARNING, "reason", "cache_set", "key", key, "err", err.Error())
	}
}

// fetch runs the bounded retry loop. It returns the parsed price, or zero and
// the last provider error.
func (c *SkyscannerClient) fetch(ctx context.Context, origin, dest, departDate string) (float64, string, error) {
	u := c.endpoint() + "?" + c.params(origin, dest, departDate).Encode()

	lastErr := ""
	for attempt := 0; attempt < skyscannerMaxAttempts; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return 0, "", errors.Wrap(err, "failed to build request")
		}
		req.Header.Set("X-RapidAPI-Key", c.cfg.APIKey)
		req.Header.Set("X-RapidAPI-Host", c.cfg.Host)

		var wait time.Duration
		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return 0, "", errors.Wrap(ctx.Err(), "flight quote cancelled")
			}
			lastErr = fmt.Sprintf("HTTPError: %v", err)
			wait = seconds(math.Pow(2, float64(attempt)) + 0.5)
		} else {
			body, readErr := io.ReadAll(resp.Body)
			resp.Body.Close()
			status := resp.StatusCode

			switch {
			case readErr != nil:
				lastErr = fmt.Sprintf("HTTPError: %v", readErr)
				wait = seconds(math.Pow(2, float64(attempt)) + 0.5)
			case status == http.StatusOK:
				if !gjson.ValidBytes(body) {
					return 0, "200 OK but response is not valid JSON", nil
				}
				if price := ExtractPrice(body); price > 0 {
					return price, "", nil
				}
				return 0, "200 OK but price not found in response", nil
			case retryableStatus(status):
				lastErr = fmt.Sprintf("%d: %s", status, truncate(string(body), 200))
				wait = seconds(math.Pow(2, float64(attempt)) + float64(attempt)*0.25)
			default:
				return 0, fmt.Sprintf("%d: %s", status, truncate(string(body), 200)), nil
			}
		}

		if attempt == skyscannerMaxAttempts-1 {
			break
		}
		logger.ContextKV(ctx, xlog.DEBUG,
			"provider", skyscannerProvider, "attempt", attempt+1, "wait", wait.String(), "err", lastErr)
		if err := c.sleep(ctx, wait); err != nil {
			return 0, "", errors.Wrap(err, "flight quote cancelled")
		}
	}
	return 0, lastErr, nil
}

func retryableStatus(status int) bool {
	switch status {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// ─── Response shapes ─────────────────────────────────────────────────────────

// Vendors on RapidAPI expose slightly different shapes; the first path that
// holds a number (or numeric string) wins.
var priceShapes = []string{
	"data.itineraries.0.price.amount",
	"price.amount",
	"results.0.price",
}

// ExtractPrice returns the price from a known vendor response shape, or 0.
func ExtractPrice(body []byte) float64 {
	for _, path := range priceShapes {
		r := gjson.GetBytes(body, path)
		switch r.Type {
		case gjson.Number:
			return r.Num
		case gjson.String:
			if f, err := strconv.ParseFloat(strings.TrimSpace(r.Str), 64); err == nil {
				return f
			}
		}
	}
	return 0
}
