package geocode

import (
	"errors"
	"fmt"

	"github.com/kelvins/geocoder"
	"go.uber.org/zap"

	"github.com/forecast-widget/forecast-widget/internal/common"
	"github.com/forecast-widget/forecast-widget/internal/forecast"
)

// ErrNoAPIKey is returned when a lookup is needed but no key is configured.
var ErrNoAPIKey = errors.New("geocoder api key is not configured")

// Resolver turns place names into coordinates using the Google geocoding API.
type Resolver struct {
	apiKey string
	logger *zap.Logger
	lookup func(geocoder.Address) (geocoder.Location, error)
}

// NewResolver creates a Resolver. An empty apiKey disables lookups.
func NewResolver(apiKey string, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		apiKey: apiKey,
		logger: logger,
		lookup: func(addr geocoder.Address) (geocoder.Location, error) {
			geocoder.ApiKey = apiKey
			return geocoder.Geocoding(addr)
		},
	}
}

// Resolve looks up a place given as "City" or "City, Country".
func (r *Resolver) Resolve(place string) (forecast.Location, error) {
	if r.apiKey == "" {
		return forecast.Location{}, ErrNoAPIKey
	}

	city, country, _ := common.CutTrim(place, ",")
	loc, err := r.lookup(geocoder.Address{City: city, Country: country})
	if err != nil {
		return forecast.Location{}, fmt.Errorf("geocode %q: %w", place, err)
	}

	r.logger.Info("Location geocoded",
		zap.String("place", place),
		zap.Float64("lat", loc.Latitude),
		zap.Float64("lon", loc.Longitude))

	return forecast.Location{Name: city, Lat: loc.Latitude, Lon: loc.Longitude}, nil
}

// ResolveAll geocodes every name, skipping (and logging) the ones that fail.
func (r *Resolver) ResolveAll(places []string) []forecast.Location {
	var out []forecast.Location
	for _, place := range places {
		loc, err := r.Resolve(place)
		if err != nil {
			r.logger.Warn("Skipping location without coordinates",
				zap.String("place", place),
				zap.Error(err))
			continue
		}
		out = append(out, loc)
	}
	return out
}
