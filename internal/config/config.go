package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/forecast-widget/forecast-widget/internal/common"
	"github.com/forecast-widget/forecast-widget/internal/forecast"
	"github.com/forecast-widget/forecast-widget/internal/forecast/providers"
)

// DefaultLocations is used when LOCATIONS is not set.
const DefaultLocations = "London=51.5074,-0.1278;New York=40.7128,-74.0060;Prague=50.0755,14.4378;Tokyo=35.6762,139.6503;Sydney=-33.8688,151.2093"

type AppConfig struct {
	Port     string `validate:"required,numeric"`
	LogLevel string `validate:"oneof=debug info warn error"`

	// Outbound forecast API.
	ForecastBaseURL string        `validate:"required,url"`
	HTTPTimeout     time.Duration `validate:"gt=0"`
	RateLimitRPS    float64       `validate:"gte=0"` // 0 = unlimited
	RateLimitBurst  int           `validate:"gte=1"`
	BreakerTimeout  time.Duration `validate:"gt=0"`

	DefaultUnit forecast.Unit `validate:"oneof=C F"`

	// Locations offered in the selector, in display order.
	Locations []forecast.Location `validate:"dive"`
	// Places listed without coordinates; resolved with the geocoder at startup.
	PendingPlaces   []string
	DefaultLocation string
	GeocoderAPIKey  string

	// RefreshInterval re-fetches every session's location (0 = disabled).
	RefreshInterval time.Duration `validate:"gte=0"`

	// Session retention.
	SessionMaxIdle  time.Duration `validate:"gte=0"` // 0 = never expire
	SessionMaxCount int           `validate:"gte=0"` // 0 = unlimited
}

var validate = validator.New()

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		zap.L().Info("No .env file found, using environment variables")
	}
	cfg := &AppConfig{}

	cfg.Port = getenvDefault("PORT", "8080")
	cfg.LogLevel = getenvDefault("LOG_LEVEL", "info")

	cfg.ForecastBaseURL = getenvDefault("FORECAST_BASE_URL", providers.DefaultSevenTimerURL)

	var err error
	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", "10s"); err != nil {
		return nil, err
	}
	if cfg.BreakerTimeout, err = getenvDuration("BREAKER_TIMEOUT", "30s"); err != nil {
		return nil, err
	}
	if cfg.RefreshInterval, err = getenvDuration("REFRESH_INTERVAL", "0"); err != nil {
		return nil, err
	}
	if cfg.SessionMaxIdle, err = getenvDuration("SESSION_MAX_IDLE", "24h"); err != nil {
		return nil, err
	}

	cfg.RateLimitRPS = getenvFloat("RATE_LIMIT_RPS", 2)
	cfg.RateLimitBurst = getenvInt("RATE_LIMIT_BURST", 4)
	cfg.SessionMaxCount = getenvInt("SESSION_MAX_COUNT", 10000)

	unit, err := forecast.ParseUnit(getenvDefault("DEFAULT_UNIT", "C"))
	if err != nil {
		return nil, fmt.Errorf("invalid DEFAULT_UNIT: %w", err)
	}
	cfg.DefaultUnit = unit

	locs, pending, err := ParseLocations(getenvDefault("LOCATIONS", DefaultLocations))
	if err != nil {
		return nil, fmt.Errorf("invalid LOCATIONS: %w", err)
	}
	cfg.Locations = locs
	cfg.PendingPlaces = pending
	cfg.DefaultLocation = os.Getenv("DEFAULT_LOCATION")
	cfg.GeocoderAPIKey = os.Getenv("GEOCODER_API_KEY")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field constraints.
func (c *AppConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// ParseLocations parses "Name=lat,lon;Other=lat,lon;Place, Country".
// Entries without "=" are returned as places still to be geocoded.
func ParseLocations(s string) (locs []forecast.Location, pending []string, err error) {
	for _, entry := range common.SplitList(s, ";") {
		name, coords, found := common.CutTrim(entry, "=")
		if !found {
			pending = append(pending, entry)
			continue
		}
		if name == "" {
			return nil, nil, fmt.Errorf("entry %q: missing name", entry)
		}
		lat, lon, err := forecast.ParseLocationID(coords)
		if err != nil {
			return nil, nil, fmt.Errorf("entry %q: %w", entry, err)
		}
		locs = append(locs, forecast.Location{Name: name, Lat: lat, Lon: lon})
	}
	return locs, pending, nil
}

// Default returns the configured default location: DefaultLocation matched by
// name or ID, otherwise the first location.
func (c *AppConfig) Default() (forecast.Location, bool) {
	for _, loc := range c.Locations {
		if c.DefaultLocation != "" && (loc.Name == c.DefaultLocation || loc.ID() == c.DefaultLocation) {
			return loc, true
		}
	}
	if len(c.Locations) == 0 {
		return forecast.Location{}, false
	}
	return c.Locations[0], true
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(getenvDefault(key, def))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
		zap.L().Warn("Failed to parse int", zap.String("key", key), zap.String("value", v), zap.Error(err))
	}
	return def
}

func getenvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err == nil {
			return f
		}
		zap.L().Warn("Failed to parse float", zap.String("key", key), zap.String("value", v), zap.Error(err))
	}
	return def
}
