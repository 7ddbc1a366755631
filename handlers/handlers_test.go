package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"tripcopilot/config"
	"tripcopilot/database"
	"tripcopilot/models"
)

type fakePlanner struct {
	got *models.PlanRequest
	err error
}

func (f *fakePlanner) Plan(_ context.Context, req *models.PlanRequest) (*models.PlanResponse, error) {
	f.got = req
	if f.err != nil {
		return nil, f.err
	}
	return &models.PlanResponse{
		Summary:              "1 days across Paris.",
		TotalCostEstimateEUR: 250,
		Days: []models.DayPlan{{
			Date: req.StartDate, City: req.Cities[0],
			Activities: []models.Activity{{Title: "Morning stroll in Paris", StartTime: req.StartDate + " 09:30", EndTime: req.StartDate + " 11:30"}},
		}},
		Citations: []string{"https://www.skyscanner.net/"},
	}, nil
}

type fakeCritic struct{ issues []string }

func (f fakeCritic) Validate(context.Context, *models.PlanRequest, *models.PlanResponse) []string {
	return f.issues
}

type fakeStore struct {
	pingErr  error
	saveErr  error
	trips    map[string]*database.Trip
	feedback []*database.Feedback
	limit    int
}

func newFakeStore() *fakeStore {
	return &fakeStore{trips: map[string]*database.Trip{}}
}

func (s *fakeStore) Ping(context.Context) error { return s.pingErr }

func (s *fakeStore) SaveTrip(_ context.Context, t *database.Trip) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	t.ID = "trip-1"
	s.trips[t.ID] = t
	return nil
}

func (s *fakeStore) GetTrip(_ context.Context, id string) (*database.Trip, error) {
	if t, ok := s.trips[id]; ok {
		return t, nil
	}
	return nil, database.ErrNotFound
}

func (s *fakeStore) ListTrips(_ context.Context, limit int) ([]database.TripSummary, error) {
	s.limit = limit
	list := []database.TripSummary{}
	for _, t := range s.trips {
		list = append(list, database.TripSummary{ID: t.ID, Origin: t.Request.Origin, Cities: t.Request.Cities})
	}
	return list, nil
}

func (s *fakeStore) SaveFeedback(_ context.Context, f *database.Feedback) error {
	if _, ok := s.trips[f.TripID]; !ok {
		return database.ErrNotFound
	}
	f.ID = "fb-1"
	s.feedback = append(s.feedback, f)
	return nil
}

func testConfig() *config.Settings {
	return &config.Settings{
		AppEnv:          "test",
		ProviderWeather: config.WeatherOpenMeteo,
		ProviderFlights: config.FlightsSkyscanner,
		ProviderMaps:    config.MapsMock,
		RapidAPIKey:     "k",
	}
}

func newTestRouter(p Planner, store TripStore, issues ...string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	return NewRouter(New(testConfig(), p, fakeCritic{issues: issues}, store))
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

const validPlan = `{"origin":"CDG","cities":["Paris"],"start_date":"2025-06-01","end_date":"2025-06-02"}`

func TestHealth(t *testing.T) {
	w := do(newTestRouter(&fakePlanner{}, nil), http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","service":"Travel Copilot FR","database":"disabled"}`, w.Body.String())

	store := newFakeStore()
	store.pingErr = errors.New("refused")
	w = do(newTestRouter(&fakePlanner{}, store), http.MethodGet, "/health", "")
	assert.Contains(t, w.Body.String(), `"database":"error: refused"`)
}

func TestConfig(t *testing.T) {
	w := do(newTestRouter(&fakePlanner{}, nil), http.MethodGet, "/config", "")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Providers   map[string]string `json:"providers"`
		KeysPresent map[string]bool   `json:"keys_present"`
		App         map[string]string `json:"app"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, map[string]string{"weather": "openmeteo", "flights": "skyscanner", "maps": "mock"}, body.Providers)
	assert.True(t, body.KeysPresent["RAPIDAPI_KEY"])
	assert.False(t, body.KeysPresent["OPENWEATHER_API_KEY"])
	assert.Equal(t, "1.0.0", body.App["version"])
	assert.Equal(t, "test", body.App["env"])
}

func TestPlan(t *testing.T) {
	p := &fakePlanner{}
	w := do(newTestRouter(p, nil, "Estimated total exceeds budget."), http.MethodPost, "/plan", validPlan)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var res PlanResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, 250.0, res.Result.TotalCostEstimateEUR)
	assert.Equal(t, []string{"Estimated total exceeds budget."}, res.Issues)
	assert.Empty(t, res.TripID)
	assert.NotContains(t, w.Body.String(), "trip_id")

	// defaults applied before planning
	assert.Equal(t, 1200, p.got.BudgetEUR)
	assert.Equal(t, 1, p.got.PartySize)
	assert.Equal(t, 10.0, p.got.MaxWalkKMPerDay)
	assert.Equal(t, "medium", p.got.Pace)
}

func TestPlan_ExplicitZeroesKept(t *testing.T) {
	p := &fakePlanner{}
	body := `{"origin":"CDG","cities":["Paris"],"start_date":"2025-06-01","end_date":"2025-06-02",` +
		`"budget_eur":0,"party_size":0,"max_walk_km_per_day":0}`
	w := do(newTestRouter(p, nil), http.MethodPost, "/plan", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	assert.Equal(t, 0, p.got.BudgetEUR)
	assert.Equal(t, 0, p.got.PartySize)
	assert.Zero(t, p.got.MaxWalkKMPerDay)
	// absent keys still get their defaults
	assert.Equal(t, "medium", p.got.Pace)
	assert.Equal(t, []string{"food", "art", "history"}, p.got.Interests)
}

type panickingPlanner struct{}

func (panickingPlanner) Plan(context.Context, *models.PlanRequest) (*models.PlanResponse, error) {
	panic("boom")
}

func TestPlan_PanicIsBadRequest(t *testing.T) {
	w := do(newTestRouter(panickingPlanner{}, nil), http.MethodPost, "/plan", validPlan)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"Unexpected error while handling the request"}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestPlan_StoresTrip(t *testing.T) {
	store := newFakeStore()
	w := do(newTestRouter(&fakePlanner{}, store), http.MethodPost, "/plan", validPlan)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"trip_id":"trip-1"`)
	require.Contains(t, store.trips, "trip-1")
	assert.Equal(t, "CDG", store.trips["trip-1"].Request.Origin)

	store = newFakeStore()
	store.saveErr = errors.New("disk full")
	w = do(newTestRouter(&fakePlanner{}, store), http.MethodPost, "/plan", validPlan)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "trip_id")
}

func TestPlan_BadRequest(t *testing.T) {
	tcases := []struct {
		name string
		body string
		exp  string
	}{
		{"malformed", `{`, "Invalid request"},
		{"missing_origin", `{"cities":["Paris"],"start_date":"2025-06-01","end_date":"2025-06-02"}`, "Origin"},
		{"empty_cities", `{"origin":"CDG","cities":[],"start_date":"2025-06-01","end_date":"2025-06-02"}`, "Cities"},
		{"bad_date", `{"origin":"CDG","cities":["Paris"],"start_date":"01/06/2025","end_date":"2025-06-02"}`, "isodate"},
		{"bad_pace", `{"origin":"CDG","cities":["Paris"],"start_date":"2025-06-01","end_date":"2025-06-02","pace":"sprint"}`, "Pace"},
		{"bad_language", `{"origin":"CDG","cities":["Paris"],"start_date":"2025-06-01","end_date":"2025-06-02","language":"de"}`, "Language"},
	}
	r := newTestRouter(&fakePlanner{}, nil)
	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			w := do(r, http.MethodPost, "/plan", tc.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), tc.exp)
		})
	}
}

func TestPlan_PlanningError(t *testing.T) {
	p := &fakePlanner{err: errors.New("end_date must be after start_date")}
	w := do(newTestRouter(p, nil), http.MethodPost, "/plan", validPlan)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"end_date must be after start_date"}`, w.Body.String())
}

func TestTrips_WithoutStore(t *testing.T) {
	r := newTestRouter(&fakePlanner{}, nil)
	for _, path := range []string{"/trips", "/trips/x", "/trips/x/pdf"} {
		w := do(r, http.MethodGet, path, "")
		assert.Equal(t, http.StatusServiceUnavailable, w.Code, path)
	}
	w := do(r, http.MethodPost, "/trips/x/feedback", `{"rating":5}`)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func storeWithTrip() *fakeStore {
	store := newFakeStore()
	req := models.PlanRequest{Origin: "CDG", Cities: []string{"Paris"}, StartDate: "2025-06-01", EndDate: "2025-06-02"}
	req.ApplyDefaults()
	plan, _ := (&fakePlanner{}).Plan(context.Background(), &req)
	store.trips["t1"] = &database.Trip{ID: "t1", Request: req, Plan: *plan}
	return store
}

func TestGetTrip(t *testing.T) {
	r := newTestRouter(&fakePlanner{}, storeWithTrip())

	w := do(r, http.MethodGet, "/trips/t1", "")
	require.Equal(t, http.StatusOK, w.Code)
	var trip database.Trip
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &trip))
	assert.Equal(t, "t1", trip.ID)
	assert.Equal(t, "1 days across Paris.", trip.Plan.Summary)

	w = do(r, http.MethodGet, "/trips/missing", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListTrips(t *testing.T) {
	store := storeWithTrip()
	r := newTestRouter(&fakePlanner{}, store)

	w := do(r, http.MethodGet, "/trips", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"id":"t1"`)
	assert.Equal(t, defaultTripsLimit, store.limit)

	do(r, http.MethodGet, "/trips?limit=1000", "")
	assert.Equal(t, maxTripsLimit, store.limit)

	w = do(r, http.MethodGet, "/trips?limit=-1", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDownloadTripPDF(t *testing.T) {
	r := newTestRouter(&fakePlanner{}, storeWithTrip())

	w := do(r, http.MethodGet, "/trips/t1/pdf", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Equal(t, "attachment; filename=tripcopilot-t1.pdf", w.Header().Get("Content-Disposition"))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF-")))
}

func TestTripFeedback(t *testing.T) {
	store := storeWithTrip()
	r := newTestRouter(&fakePlanner{}, store)

	w := do(r, http.MethodPost, "/trips/t1/feedback", `{"rating":4,"comment":"lovely"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, `{"id":"fb-1"}`, w.Body.String())
	require.Len(t, store.feedback, 1)
	assert.Equal(t, "lovely", store.feedback[0].Comment)

	w = do(r, http.MethodPost, "/trips/t1/feedback", `{"rating":9}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodPost, "/trips/nope/feedback", `{"rating":3}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDashboardAndNoRoute(t *testing.T) {
	r := newTestRouter(&fakePlanner{}, nil)

	w := do(r, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), "Travel Copilot FR")

	w = do(r, http.MethodGet, "/nowhere", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
