package models

// ─── Request ─────────────────────────────────────────────────────────────────

type PlanRequest struct {
	Origin          string   `json:"origin" binding:"required"`
	Cities          []string `json:"cities" binding:"required,min=1,dive,required"`
	StartDate       string   `json:"start_date" binding:"required,isodate"`
	EndDate         string   `json:"end_date" binding:"required,isodate"`
	BudgetEUR       int      `json:"budget_eur" binding:"gte=0"`
	PartySize       int      `json:"party_size" binding:"gte=0"`
	Pace            string   `json:"pace" binding:"omitempty,oneof=slow medium fast"`
	Interests       []string `json:"interests"`
	MaxWalkKMPerDay float64  `json:"max_walk_km_per_day" binding:"gte=0"`
	Language        string   `json:"language" binding:"omitempty,oneof=en fr"`
}

// NewPlanRequest returns a request holding the defaults for every optional
// field. Decode onto it so that absent keys keep their default while explicit
// zero values are preserved.
func NewPlanRequest() PlanRequest {
	return PlanRequest{
		BudgetEUR:       1200,
		PartySize:       1,
		Pace:            "medium",
		Interests:       []string{"food", "art", "history"},
		MaxWalkKMPerDay: 10,
		Language:        "en",
	}
}

// ApplyDefaults fills optional fields that carry no usable zero value.
// Numeric fields are left alone: 0 is a valid budget or walking distance.
func (r *PlanRequest) ApplyDefaults() {
	def := NewPlanRequest()
	if r.Pace == "" {
		r.Pace = def.Pace
	}
	if r.Interests == nil {
		r.Interests = def.Interests
	}
	if r.Language == "" {
		r.Language = def.Language
	}
}

// ─── Plan ────────────────────────────────────────────────────────────────────

type Activity struct {
	Title         string  `json:"title"`
	City          string  `json:"city"`
	StartTime     string  `json:"start_time"`
	EndTime       string  `json:"end_time"`
	CostEUR       float64 `json:"cost_eur"`
	TransportMode string  `json:"transport_mode"`
	URL           string  `json:"url,omitempty"`
}

type DayPlan struct {
	Date       string      `json:"date"`
	City       string      `json:"city"`
	Activities []Activity  `json:"activities"`
	Weather    *Weather    `json:"weather,omitempty"`
	Hotel      *HotelQuote `json:"hotel,omitempty"`
}

type PlanResponse struct {
	Summary              string       `json:"summary"`
	TotalCostEstimateEUR float64      `json:"total_cost_estimate_eur"`
	Days                 []DayPlan    `json:"days"`
	Citations            []string     `json:"citations"`
	Flight               *FlightQuote `json:"flight,omitempty"`
	Narrative            string       `json:"narrative,omitempty"`
}

// ─── Provider quotes ─────────────────────────────────────────────────────────

type FlightQuote struct {
	Provider string  `json:"provider"`
	PriceEUR float64 `json:"price_eur"`
	Currency string  `json:"currency"`
	URL      string  `json:"url,omitempty"`
	TTLMin   int     `json:"ttl_min,omitempty"`
	Error    string  `json:"error,omitempty"`
	Cached   bool    `json:"cached,omitempty"`
}

type HotelQuote struct {
	Provider string  `json:"provider"`
	City     string  `json:"city"`
	CheckIn  string  `json:"checkin"`
	Nights   int     `json:"nights"`
	Guests   int     `json:"guests"`
	PriceEUR float64 `json:"price_eur"`
	Rating   float64 `json:"rating"`
	URL      string  `json:"url,omitempty"`
}

type Weather struct {
	Summary  string  `json:"summary"`
	HighC    float64 `json:"high_c"`
	LowC     float64 `json:"low_c"`
	RainRisk float64 `json:"rain_risk"`
}

// DefaultWeather is used whenever a forecast cannot be obtained.
func DefaultWeather() Weather {
	return Weather{Summary: "Unknown", HighC: 18.0, LowC: 10.0, RainRisk: 0.2}
}
