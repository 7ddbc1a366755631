package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/effective-security/xlog"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

var logger = xlog.NewPackageLogger("tripcopilot", "config")

const (
	AppTitle   = "Travel Copilot FR"
	AppVersion = "1.0.0"
)

// Provider switches.
const (
	WeatherOpenMeteo   = "openmeteo"
	WeatherOpenWeather = "openweather"

	FlightsSkyscanner = "skyscanner"
	FlightsAmadeus    = "amadeus"
	FlightsMock       = "mock"

	MapsGoogle = "google"
	MapsMock   = "mock"
)

// Settings is the resolved runtime configuration.
type Settings struct {
	AppEnv   string
	AppPort  int
	GinMode  string
	LogLevel string

	ProviderWeather string
	ProviderFlights string
	ProviderMaps    string

	OpenWeatherAPIKey string
	GoogleMapsAPIKey  string
	OpenMeteoBase     string

	RapidAPIKey          string
	RapidAPIHost         string
	FlightsSkyEndpoint   string
	FlightsSkyParamStyle string
	FlightsCacheTTL      time.Duration
	FlightsErrorTTL      time.Duration
	FlightsMarket        string
	FlightsLocale        string
	FlightsCurrency      string

	AmadeusClientID     string
	AmadeusClientSecret string
	AmadeusEnv          string

	DatabaseURL      string
	PostgresHost     string
	PostgresPort     int
	PostgresDB       string
	PostgresUser     string
	PostgresPassword string
	PostgresSSLMode  string

	RedisURL    string
	RedisPrefix string

	HuggingFaceAPIKey string
	HFModel           string

	FrontendURLs []string
}

// New returns a viper instance with defaults applied and environment lookup
// enabled. A .env file in the working directory is loaded first when present.
func New() *viper.Viper {
	if err := godotenv.Load(); err != nil {
		logger.KV(xlog.DEBUG, "reason", "dotenv", "status", "no .env file, using environment")
	}

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app_env", "dev")
	v.SetDefault("app_port", 8000)
	v.SetDefault("gin_mode", "")
	v.SetDefault("log_level", "info")

	v.SetDefault("provider_weather", WeatherOpenMeteo)
	v.SetDefault("provider_flights", FlightsSkyscanner)
	v.SetDefault("provider_maps", MapsGoogle)

	v.SetDefault("openweather_api_key", "")
	v.SetDefault("google_maps_api_key", "")
	v.SetDefault("open_meteo_base", "https://api.open-meteo.com/v1/forecast")

	v.SetDefault("rapidapi_key", "")
	v.SetDefault("rapidapi_host", "skyscanner80.p.rapidapi.com")
	v.SetDefault("flights_sky_endpoint", "/api/v1/flights/search-one-way")
	v.SetDefault("flights_sky_param_style", "fromId")
	v.SetDefault("flights_cache_ttl_sec", 900)
	v.SetDefault("flights_error_ttl_sec", 60)
	v.SetDefault("flights_market", "FR")
	v.SetDefault("flights_locale", "en-GB")
	v.SetDefault("flights_currency", "EUR")

	v.SetDefault("amadeus_client_id", "")
	v.SetDefault("amadeus_client_secret", "")
	v.SetDefault("amadeus_env", "test")

	v.SetDefault("database_url", "")
	v.SetDefault("postgres_host", "")
	v.SetDefault("postgres_port", 5432)
	v.SetDefault("postgres_db", "tcopilot")
	v.SetDefault("postgres_user", "tcopilot")
	v.SetDefault("postgres_password", "tcopilot")
	v.SetDefault("postgres_sslmode", "disable")

	v.SetDefault("redis_url", "")
	v.SetDefault("redis_prefix", "tcopilot")

	v.SetDefault("huggingface_api_key", "")
	v.SetDefault("hf_model", "mistralai/Mistral-7B-Instruct-v0.3")

	v.SetDefault("frontend_url", "")
}

// FromViper resolves Settings from v.
func FromViper(v *viper.Viper) *Settings {
	s := &Settings{
		AppEnv:   v.GetString("app_env"),
		AppPort:  v.GetInt("app_port"),
		GinMode:  v.GetString("gin_mode"),
		LogLevel: strings.ToLower(v.GetString("log_level")),

		ProviderWeather: strings.ToLower(v.GetString("provider_weather")),
		ProviderFlights: strings.ToLower(v.GetString("provider_flights")),
		ProviderMaps:    strings.ToLower(v.GetString("provider_maps")),

		OpenWeatherAPIKey: v.GetString("openweather_api_key"),
		GoogleMapsAPIKey:  v.GetString("google_maps_api_key"),
		OpenMeteoBase:     v.GetString("open_meteo_base"),

		RapidAPIKey:          v.GetString("rapidapi_key"),
		RapidAPIHost:         v.GetString("rapidapi_host"),
		FlightsSkyEndpoint:   v.GetString("flights_sky_endpoint"),
		FlightsSkyParamStyle: v.GetString("flights_sky_param_style"),
		FlightsCacheTTL:      time.Duration(v.GetInt("flights_cache_ttl_sec")) * time.Second,
		FlightsErrorTTL:      time.Duration(v.GetInt("flights_error_ttl_sec")) * time.Second,
		FlightsMarket:        v.GetString("flights_market"),
		FlightsLocale:        v.GetString("flights_locale"),
		FlightsCurrency:      v.GetString("flights_currency"),

		AmadeusClientID:     v.GetString("amadeus_client_id"),
		AmadeusClientSecret: v.GetString("amadeus_client_secret"),
		AmadeusEnv:          v.GetString("amadeus_env"),

		DatabaseURL:      v.GetString("database_url"),
		PostgresHost:     v.GetString("postgres_host"),
		PostgresPort:     v.GetInt("postgres_port"),
		PostgresDB:       v.GetString("postgres_db"),
		PostgresUser:     v.GetString("postgres_user"),
		PostgresPassword: v.GetString("postgres_password"),
		PostgresSSLMode:  v.GetString("postgres_sslmode"),

		RedisURL:    v.GetString("redis_url"),
		RedisPrefix: v.GetString("redis_prefix"),

		HuggingFaceAPIKey: v.GetString("huggingface_api_key"),
		HFModel:           v.GetString("hf_model"),
	}

	for _, u := range strings.Split(v.GetString("frontend_url"), ",") {
		if u = strings.TrimSpace(u); u != "" {
			s.FrontendURLs = append(s.FrontendURLs, u)
		}
	}
	return s
}

// DatabaseEnabled reports whether any database location was configured.
func (s *Settings) DatabaseEnabled() bool {
	return s.DatabaseURL != "" || s.PostgresHost != ""
}

// DSN returns a lib/pq connection string. DATABASE_URL wins over the
// individual POSTGRES_* settings.
func (s *Settings) DSN() string {
	if s.DatabaseURL != "" {
		return s.DatabaseURL
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		s.PostgresHost, s.PostgresPort, s.PostgresUser, s.PostgresPassword, s.PostgresDB, s.PostgresSSLMode)
}

// KeysPresent reports which provider credentials are set, without exposing them.
func (s *Settings) KeysPresent() map[string]bool {
	return map[string]bool{
		"OPENWEATHER_API_KEY":   s.OpenWeatherAPIKey != "",
		"RAPIDAPI_KEY":          s.RapidAPIKey != "",
		"AMADEUS_CLIENT_ID":     s.AmadeusClientID != "",
		"AMADEUS_CLIENT_SECRET": s.AmadeusClientSecret != "",
		"GOOGLE_MAPS_API_KEY":   s.GoogleMapsAPIKey != "",
	}
}
