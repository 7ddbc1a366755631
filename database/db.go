// Package database persists generated trips and user feedback in PostgreSQL.
// Persistence is optional: the service runs without it when the database is
// not configured or not reachable.
package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xlog"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"tripcopilot/models"
)

var logger = xlog.NewPackageLogger("tripcopilot", "database")

// ErrNotFound is returned when a trip does not exist.
var ErrNotFound = errors.New("trip not found")

// ─── Models ──────────────────────────────────────────────────────────────────

type Trip struct {
	ID        string              `json:"id"`
	Request   models.PlanRequest  `json:"request"`
	Plan      models.PlanResponse `json:"plan"`
	Issues    []string            `json:"issues"`
	CreatedAt time.Time           `json:"created_at"`
}

// TripSummary is a listing row.
type TripSummary struct {
	ID        string    `json:"id"`
	Origin    string    `json:"origin"`
	Cities    []string  `json:"cities"`
	StartDate string    `json:"start_date"`
	EndDate   string    `json:"end_date"`
	TotalEUR  float64   `json:"total_cost_estimate_eur"`
	CreatedAt time.Time `json:"created_at"`
}

type Feedback struct {
	ID        string    `json:"id"`
	TripID    string    `json:"trip_id"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"created_at"`
}

// ─── Init ─────────────────────────────────────────────────────────────────────

type Store struct {
	db *sql.DB
}

// New wraps an open handle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Open connects to dsn, pinging up to attempts times with wait in between,
// then applies migrations.
func Open(ctx context.Context, dsn string, attempts int, wait time.Duration) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	for i := 0; i < attempts; i++ {
		if err = db.PingContext(ctx); err == nil {
			break
		}
		logger.KV(xlog.WARNING, "status", "waiting_for_database", "attempt", i+1, "of", attempts, "err", err.Error())
		if i < attempts-1 {
			select {
			case <-ctx.Done():
				_ = db.Close()
				return nil, errors.Wrap(ctx.Err(), "database connect cancelled")
			case <-time.After(wait):
			}
		}
	}
	if err != nil {
		_ = db.Close()
		return nil, errors.Wrapf(err, "failed to connect to database after %d attempts", attempts)
	}

	s := New(db)
	if err := s.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	logger.KV(xlog.INFO, "status", "database_ready")
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// ─── Migrations ───────────────────────────────────────────────────────────────

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id         TEXT PRIMARY KEY,
		email      TEXT UNIQUE,
		created_at TIMESTAMPTZ DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS trips (
		id           TEXT PRIMARY KEY,
		user_id      TEXT REFERENCES users(id),
		origin       TEXT NOT NULL,
		start_date   TEXT NOT NULL,
		end_date     TEXT NOT NULL,
		budget_eur   INTEGER NOT NULL,
		party_size   INTEGER DEFAULT 1,
		style        TEXT,
		cities       TEXT[] NOT NULL,
		total_eur    NUMERIC(12,2) NOT NULL,
		request_json JSONB NOT NULL,
		plan_json    JSONB NOT NULL,
		issues_json  JSONB,
		created_at   TIMESTAMPTZ DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS feedback (
		id         TEXT PRIMARY KEY,
		trip_id    TEXT NOT NULL REFERENCES trips(id) ON DELETE CASCADE,
		rating     INTEGER NOT NULL CHECK (rating BETWEEN 1 AND 5),
		comment    TEXT,
		created_at TIMESTAMPTZ DEFAULT NOW()
	)`,

	`CREATE INDEX IF NOT EXISTS idx_trips_created_at
		ON trips(created_at DESC)`,

	`CREATE INDEX IF NOT EXISTS idx_feedback_trip_id
		ON feedback(trip_id)`,
}

func (s *Store) Migrate(ctx context.Context) error {
	for _, m := range migrations {
		if _, err := s.db.ExecContext(ctx, m); err != nil {
			return errors.Wrapf(err, "migration failed: %s", m)
		}
	}
	return nil
}

// ─── CRUD ─────────────────────────────────────────────────────────────────────

// SaveTrip inserts t, assigning an ID when empty.
func (s *Store) SaveTrip(ctx context.Context, t *Trip) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	reqJSON, err := json.Marshal(t.Request)
	if err != nil {
		return errors.WithStack(err)
	}
	planJSON, err := json.Marshal(t.Plan)
	if err != nil {
		return errors.WithStack(err)
	}
	issues := t.Issues
	if issues == nil {
		issues = []string{}
	}
	issuesJSON, err := json.Marshal(issues)
	if err != nil {
		return errors.WithStack(err)
	}

	r := t.Request
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO trips (id, origin, start_date, end_date, budget_eur, party_size, style, cities, total_eur, request_json, plan_json, issues_json)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		t.ID, r.Origin, r.StartDate, r.EndDate, r.BudgetEUR, r.PartySize, r.Pace,
		pq.Array(r.Cities), t.Plan.TotalCostEstimateEUR, reqJSON, planJSON, issuesJSON)
	if err != nil {
		return errors.Wrap(err, "failed to save trip")
	}
	return nil
}

func (s *Store) GetTrip(ctx context.Context, id string) (*Trip, error) {
	var (
		t                          = &Trip{}
		reqJSON, planJSON, issJSON []byte
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, request_json, plan_json, issues_json, created_at
		FROM trips WHERE id = $1`, id).
		Scan(&t.ID, &reqJSON, &planJSON, &issJSON, &t.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to load trip")
	}

	if err := json.Unmarshal(reqJSON, &t.Request); err != nil {
		return nil, errors.Wrap(err, "corrupt trip request")
	}
	if err := json.Unmarshal(planJSON, &t.Plan); err != nil {
		return nil, errors.Wrap(err, "corrupt trip plan")
	}
	if len(issJSON) > 0 {
		if err := json.Unmarshal(issJSON, &t.Issues); err != nil {
			return nil, errors.Wrap(err, "corrupt trip issues")
		}
	}
	return t, nil
}

// ListTrips returns the most recent trips first.
func (s *Store) ListTrips(ctx context.Context, limit int) ([]TripSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, origin, cities, start_date, end_date, total_eur, created_at
		FROM trips
		ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list trips")
	}
	defer rows.Close()

	list := []TripSummary{}
	for rows.Next() {
		var t TripSummary
		if err := rows.Scan(&t.ID, &t.Origin, pq.Array(&t.Cities), &t.StartDate, &t.EndDate, &t.TotalEUR, &t.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "failed to read trip row")
		}
		list = append(list, t)
	}
	return list, errors.WithStack(rows.Err())
}

// SaveFeedback records a rating for an existing trip.
func (s *Store) SaveFeedback(ctx context.Context, f *Feedback) error {
	if f.ID == "" {
		f.ID = uuid.New().String()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO feedback (id, trip_id, rating, comment)
		VALUES ($1, $2, $3, $4)`,
		f.ID, f.TripID, f.Rating, f.Comment)

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23503" {
		return ErrNotFound
	}
	if err != nil {
		return errors.Wrap(err, "failed to save feedback")
	}
	return nil
}
