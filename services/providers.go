package services

import (
	"github.com/effective-security/xlog"
	"tripcopilot/cache"
	"tripcopilot/config"
)

// Providers is the set of integrations a planner runs against.
type Providers struct {
	Flights         FlightPricer
	FallbackFlights FlightPricer
	Weather         Forecaster
	Hotels          HotelFinder

	// Narrator and Directions are nil when not configured.
	Narrator   *NarrativeClient
	Directions *DirectionsClient
}

// NewProviders selects implementations from the provider switches in cfg.
// Flight quotes are cached in store.
func NewProviders(cfg *config.Settings, store cache.Store) *Providers {
	p := &Providers{
		FallbackFlights: MockFlightPricer{},
	}

	switch cfg.ProviderFlights {
	case config.FlightsSkyscanner:
		p.Flights = NewSkyscannerClient(SkyscannerConfig{
			APIKey:     cfg.RapidAPIKey,
			Host:       cfg.RapidAPIHost,
			Endpoint:   cfg.FlightsSkyEndpoint,
			ParamStyle: cfg.FlightsSkyParamStyle,
			Market:     cfg.FlightsMarket,
			Locale:     cfg.FlightsLocale,
			Currency:   cfg.FlightsCurrency,
			CacheTTL:   cfg.FlightsCacheTTL,
			ErrorTTL:   cfg.FlightsErrorTTL,
		}, store)
	case config.FlightsAmadeus:
		p.Flights = NewAmadeusClient(cfg.AmadeusClientID, cfg.AmadeusClientSecret, cfg.AmadeusEnv, "")
	default:
		p.Flights = MockFlightPricer{}
	}

	if cfg.ProviderWeather == config.WeatherOpenWeather && cfg.OpenWeatherAPIKey != "" {
		p.Weather = NewOpenWeatherClient(cfg.OpenWeatherAPIKey, "")
	} else {
		p.Weather = NewOpenMeteoClient(cfg.OpenMeteoBase)
	}

	if cfg.ProviderMaps == config.MapsGoogle {
		p.Hotels = NewGooglePlacesClient(cfg.GoogleMapsAPIKey, "")
		if cfg.GoogleMapsAPIKey != "" {
			p.Directions = NewDirectionsClient(cfg.GoogleMapsAPIKey, "")
		}
	} else {
		p.Hotels = MockHotelFinder{}
	}

	if cfg.HuggingFaceAPIKey != "" {
		p.Narrator = NewNarrativeClient(cfg.HuggingFaceAPIKey, cfg.HFModel, "")
	}

	logger.KV(xlog.INFO,
		"flights", p.Flights.Name(),
		"weather", cfg.ProviderWeather,
		"maps", cfg.ProviderMaps,
		"narrative", p.Narrator.Enabled())
	return p
}
