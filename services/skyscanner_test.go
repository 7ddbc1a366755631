package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"tripcopilot/cache"
)

// recordingStore wraps a memory store and remembers the ttl of every Set.
type recordingStore struct {
	cache.Store
	ttls map[string]time.Duration
}

func newRecordingStore() *recordingStore {
	return &recordingStore{Store: cache.NewMemoryStore(), ttls: map[string]time.Duration{}}
}

func (r *recordingStore) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	r.ttls[key] = ttl
	return r.Store.Set(ctx, key, value, ttl)
}

func newTestSkyscanner(t *testing.T, handler http.HandlerFunc) (*SkyscannerClient, *recordingStore, *[]time.Duration) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	store := newRecordingStore()
	c := NewSkyscannerClient(SkyscannerConfig{
		APIKey:     "key",
		Host:       "skyscanner80.p.rapidapi.com",
		Endpoint:   "/api/v1/flights/search-one-way",
		ParamStyle: "fromId",
		Market:     "FR",
		Locale:     "en-GB",
		Currency:   "EUR",
		CacheTTL:   15 * time.Minute,
		ErrorTTL:   time.Minute,
		BaseURL:    srv.URL,
	}, store)

	var sleeps []time.Duration
	c.sleep = func(_ context.Context, d time.Duration) error {
		sleeps = append(sleeps, d)
		return nil
	}
	return c, store, &sleeps
}

func TestSkyscanner_SuccessIsCached(t *testing.T) {
	var hits int32
	c, store, sleeps := newTestSkyscanner(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		assert.Equal(t, "/api/v1/flights/search-one-way", r.URL.Path)
		assert.Equal(t, "key", r.Header.Get("X-RapidAPI-Key"))
		assert.Equal(t, "skyscanner80.p.rapidapi.com", r.Header.Get("X-RapidAPI-Host"))
		q := r.URL.Query()
		assert.Equal(t, "CDG", q.Get("fromId"))
		assert.Equal(t, "LYS", q.Get("toId"))
		assert.Equal(t, "2025-06-01", q.Get("departDate"))
		assert.Equal(t, "1", q.Get("adults"))
		assert.Equal(t, "FR", q.Get("market"))
		_, _ = w.Write([]byte(`{"data":{"itineraries":[{"price":{"amount":123.456}}]}}`))
	})

	ctx := context.Background()
	q, err := c.Quote(ctx, "CDG", "LYS", "2025-06-01")
	require.NoError(t, err)
	assert.Equal(t, "skyscanner", q.Provider)
	assert.Equal(t, 123.46, q.PriceEUR)
	assert.Equal(t, "EUR", q.Currency)
	assert.Equal(t, "https://www.skyscanner.net/", q.URL)
	assert.Equal(t, 15, q.TTLMin)
	assert.False(t, q.Cached)
	assert.Empty(t, q.Error)
	assert.Equal(t, 15*time.Minute, store.ttls[c.CacheKey("CDG", "LYS", "2025-06-01")])

	q, err = c.Quote(ctx, "CDG", "LYS", "2025-06-01")
	require.NoError(t, err)
	assert.True(t, q.Cached)
	assert.Equal(t, 123.46, q.PriceEUR)
	assert.EqualValues(t, 1, atomic.LoadInt32(&hits))
	assert.Empty(t, *sleeps)
}

func TestSkyscanner_RetriesRateLimit(t *testing.T) {
	var hits int32
	c, _, sleeps := newTestSkyscanner(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) <= 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte("slow down"))
			return
		}
		_, _ = w.Write([]byte(`{"price":{"amount":"99.9"}}`))
	})

	q, err := c.Quote(context.Background(), "CDG", "NCE", "2025-06-01")
	require.NoError(t, err)
	assert.Equal(t, 99.9, q.PriceEUR)
	assert.EqualValues(t, 3, atomic.LoadInt32(&hits))
	assert.Equal(t, []time.Duration{time.Second, 2250 * time.Millisecond}, *sleeps)
}

func TestSkyscanner_ExhaustedRetriesCachesError(t *testing.T) {
	var hits int32
	c, store, sleeps := newTestSkyscanner(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("busy"))
	})

	ctx := context.Background()
	q, err := c.Quote(ctx, "CDG", "MRS", "2025-06-01")
	require.NoError(t, err)
	assert.Zero(t, q.PriceEUR)
	assert.Equal(t, "503: busy", q.Error)
	assert.False(t, q.Cached)
	assert.EqualValues(t, 4, atomic.LoadInt32(&hits))
	assert.Equal(t, []time.Duration{time.Second, 2250 * time.Millisecond, 4500 * time.Millisecond}, *sleeps)
	assert.Equal(t, time.Minute, store.ttls[c.CacheKey("CDG", "MRS", "2025-06-01")])

	q, err = c.Quote(ctx, "CDG", "MRS", "2025-06-01")
	require.NoError(t, err)
	assert.True(t, q.Cached)
	assert.Equal(t, "503: busy", q.Error)
	assert.EqualValues(t, 4, atomic.LoadInt32(&hits))
}

func TestSkyscanner_TransportErrorRetries(t *testing.T) {
	var hits int32
	c, store, sleeps := newTestSkyscanner(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		conn, _, err := w.(http.Hijacker).Hijack()
		if assert.NoError(t, err) {
			_ = conn.Close()
		}
	})

	q, err := c.Quote(context.Background(), "CDG", "BOD", "2025-06-01")
	require.NoError(t, err)
	assert.Zero(t, q.PriceEUR)
	assert.True(t, strings.HasPrefix(q.Error, "HTTPError: "), q.Error)
	assert.EqualValues(t, 4, atomic.LoadInt32(&hits))
	assert.Equal(t, []time.Duration{1500 * time.Millisecond, 2500 * time.Millisecond, 4500 * time.Millisecond}, *sleeps)
	assert.Equal(t, time.Minute, store.ttls[c.CacheKey("CDG", "BOD", "2025-06-01")])
}

func TestSkyscanner_UnrecognizedShape(t *testing.T) {
	var hits int32
	c, store, _ := newTestSkyscanner(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		_, _ = w.Write([]byte(`{"status":true,"data":{"itineraries":[]}}`))
	})

	q, err := c.Quote(context.Background(), "CDG", "BOD", "2025-06-01")
	require.NoError(t, err)
	assert.Zero(t, q.PriceEUR)
	assert.Equal(t, "200 OK but price not found in response", q.Error)
	assert.EqualValues(t, 1, atomic.LoadInt32(&hits))
	assert.Equal(t, time.Minute, store.ttls[c.CacheKey("CDG", "BOD", "2025-06-01")])
}

func TestSkyscanner_NonRetryableStatus(t *testing.T) {
	var hits int32
	c, _, sleeps := newTestSkyscanner(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte("You are not subscribed to this API."))
	})

	q, err := c.Quote(context.Background(), "CDG", "LYS", "2025-06-02")
	require.NoError(t, err)
	assert.Equal(t, "403: You are not subscribed to this API.", q.Error)
	assert.EqualValues(t, 1, atomic.LoadInt32(&hits))
	assert.Empty(t, *sleeps)
}

func TestSkyscanner_EntityIDParams(t *testing.T) {
	c, _, _ := newTestSkyscanner(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "PARI", q.Get("fromEntityId"))
		assert.Equal(t, "LYSA", q.Get("toEntityId"))
		assert.Empty(t, q.Get("fromId"))
		_, _ = w.Write([]byte(`{"results":[{"price":61}]}`))
	})
	c.cfg.ParamStyle = "fromEntityId"

	q, err := c.Quote(context.Background(), "PARI", "LYSA", "2025-06-01")
	require.NoError(t, err)
	assert.Equal(t, 61.0, q.PriceEUR)
}

func TestSkyscanner_MissingKey(t *testing.T) {
	c := NewSkyscannerClient(SkyscannerConfig{}, nil)
	_, err := c.Quote(context.Background(), "CDG", "LYS", "2025-06-01")
	assert.EqualError(t, err, "RAPIDAPI_KEY missing for Skyscanner (RapidAPI)")
}

func TestSkyscanner_CancelledDuringBackoff(t *testing.T) {
	c, _, _ := newTestSkyscanner(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	c.sleep = func(context.Context, time.Duration) error { return context.Canceled }

	_, err := c.Quote(context.Background(), "CDG", "LYS", "2025-06-01")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSkyscanner_CacheKey(t *testing.T) {
	c := NewSkyscannerClient(SkyscannerConfig{Host: "h", Endpoint: "/e"}, nil)

	k1 := c.CacheKey("CDG", "LYS", "2025-06-01")
	assert.Equal(t, k1, c.CacheKey("CDG", "LYS", "2025-06-01"))
	assert.NotEqual(t, k1, c.CacheKey("CDG", "LYS", "2025-06-02"))
	assert.Regexp(t, `^sky:[0-9a-f]{16}$`, k1)
}

func TestExtractPrice(t *testing.T) {
	tcases := []struct {
		name string
		body string
		exp  float64
	}{
		{"itineraries", `{"data":{"itineraries":[{"price":{"amount":150.2}},{"price":{"amount":90}}]}}`, 150.2},
		{"top level", `{"price":{"amount":72.5}}`, 72.5},
		{"results", `{"results":[{"price":"88.10"}]}`, 88.1},
		{"non numeric falls through", `{"price":{"amount":"n/a"},"results":[{"price":40}]}`, 40},
		{"none", `{"data":{}}`, 0},
		{"empty", `{}`, 0},
	}
	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.exp, ExtractPrice([]byte(tc.body)))
		})
	}
}
