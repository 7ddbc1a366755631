package services

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xlog"
	"tripcopilot/models"
)

const (
	amadeusProvider = "amadeus"
	// amadeusDefaultPrice is quoted when Amadeus answers but has no offers.
	amadeusDefaultPrice = 140.0
	amadeusMaxAttempts  = 3
)

// ─── Amadeus Client ───────────────────────────────────────────────────────────

type AmadeusClient struct {
	clientID     string
	clientSecret string
	baseURL      string
	accessToken  string
	tokenExpiry  time.Time
	mu           sync.Mutex
	httpClient   *http.Client
	sleep        func(context.Context, time.Duration) error
}

// NewAmadeusClient targets the free test environment unless env is
// "production". A non-empty baseURL overrides both.
func NewAmadeusClient(clientID, clientSecret, env, baseURL string) *AmadeusClient {
	if baseURL == "" {
		baseURL = "https://test.api.amadeus.com"
		if env == "production" {
			baseURL = "https://api.amadeus.com"
		}
	}
	return &AmadeusClient{
		clientID:     clientID,
		clientSecret: clientSecret,
		baseURL:      strings.TrimRight(baseURL, "/"),
		httpClient:   newHTTPClient(30 * time.Second),
		sleep:        sleepCtx,
	}
}

func (c *AmadeusClient) Name() string { return amadeusProvider }

// ─── OAuth2 Token ─────────────────────────────────────────────────────────────

func (c *AmadeusClient) refreshToken(ctx context.Context) error {
	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", c.clientID)
	form.Set("client_secret", c.clientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v1/security/oauth2/token",
		strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return errors.Newf("token request failed (%d): %s", resp.StatusCode, truncate(string(body), 200))
	}

	var result struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return errors.Wrap(err, "failed to parse token response")
	}

	c.mu.Lock()
	c.accessToken = result.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(result.ExpiresIn-30) * time.Second)
	c.mu.Unlock()

	return nil
}

func (c *AmadeusClient) getToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	expired := time.Now().After(c.tokenExpiry)
	token := c.accessToken
	c.mu.Unlock()

	if expired || token == "" {
		if err := c.refreshToken(ctx); err != nil {
			return "", err
		}
		c.mu.Lock()
		token = c.accessToken
		c.mu.Unlock()
	}
	return token, nil
}

func (c *AmadeusClient) doRequest(ctx context.Context, path string, params url.Values) ([]byte, error) {
	token, err := c.getToken(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "auth failed")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &statusError{Status: resp.StatusCode, Body: truncate(string(respBody), 200)}
	}
	return respBody, nil
}

// ─── Flight Search ────────────────────────────────────────────────────────────

type amadeusFlightOffersResponse struct {
	Data []struct {
		Price struct {
			Total    string `json:"total"`
			Currency string `json:"currency"`
		} `json:"price"`
	} `json:"data"`
}

// CheapestOffer returns the lowest total in EUR among up to five offers, or
// zero when there are none.
func (c *AmadeusClient) CheapestOffer(ctx context.Context, origin, dest, departDate string) (float64, error) {
	params := url.Values{}
	params.Set("originLocationCode", origin)
	params.Set("destinationLocationCode", dest)
	params.Set("departureDate", departDate)
	params.Set("adults", "1")
	params.Set("currencyCode", "EUR")
	params.Set("max", "5")

	body, err := c.doRequest(ctx, "/v2/shopping/flight-offers", params)
	if err != nil {
		return 0, errors.Wrap(err, "flight search failed")
	}

	var resp amadeusFlightOffersResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return 0, errors.Wrap(err, "failed to parse flight offers")
	}

	cheapest := 0.0
	for _, offer := range resp.Data {
		price, err := strconv.ParseFloat(offer.Price.Total, 64)
		if err != nil || price <= 0 {
			continue
		}
		if cheapest == 0 || price < cheapest {
			cheapest = price
		}
	}
	return cheapest, nil
}

// Quote prices a flight with up to three attempts. An Amadeus API error or an
// empty result yields the default price; transport and auth failures are
// returned after the last attempt.
func (c *AmadeusClient) Quote(ctx context.Context, origin, dest, departDate string) (*models.FlightQuote, error) {
	if c.clientID == "" || c.clientSecret == "" {
		return nil, errors.New("Amadeus credentials missing")
	}

	var (
		price   float64
		lastErr error
	)
	for attempt := 0; attempt < amadeusMaxAttempts; attempt++ {
		price, lastErr = c.CheapestOffer(ctx, origin, dest, departDate)
		var se *statusError
		if lastErr == nil || errors.As(lastErr, &se) {
			break
		}
		if attempt == amadeusMaxAttempts-1 {
			return nil, lastErr
		}
		logger.ContextKV(ctx, xlog.DEBUG, "provider", amadeusProvider, "attempt", attempt+1, "err", lastErr.Error())
		if err := c.sleep(ctx, amadeusBackoff(attempt)); err != nil {
			return nil, errors.Wrap(err, "flight quote cancelled")
		}
	}

	if lastErr != nil {
		logger.ContextKV(ctx, xlog.WARNING, "provider", amadeusProvider, "err", lastErr.Error())
	}
	if price <= 0 {
		price = amadeusDefaultPrice
	}

	return &models.FlightQuote{
		Provider: amadeusProvider,
		PriceEUR: round2(price),
		Currency: "EUR",
		URL:      "https://developers.amadeus.com/",
		TTLMin:   15,
	}, nil
}

// amadeusBackoff is exponential with multiplier 0.5s, clamped to [0.5s, 2s].
func amadeusBackoff(attempt int) time.Duration {
	d := 500 * time.Millisecond << attempt
	if d > 2*time.Second {
		d = 2 * time.Second
	}
	return d
}
