package providers

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/kelvins/geocoder"

	"github.com/i474232898/weather-forecast-qa/internal/common"
	"github.com/i474232898/weather-forecast-qa/internal/weather"
)

// geocoder keeps its API key in a package variable; serialize access to it.
var googleMu sync.Mutex

// GoogleResolver implements weather.Resolver with the Google Geocoding API.
type GoogleResolver struct {
	name   string
	apiKey string
}

func NewGoogleResolver(apiKey string) *GoogleResolver {
	return &GoogleResolver{
		name:   "google",
		apiKey: apiKey,
	}
}

func (r *GoogleResolver) Name() string {
	return r.name
}

func (r *GoogleResolver) Resolve(ctx context.Context, query string) (weather.Coordinates, error) {
	if r.apiKey == "" {
		return weather.Coordinates{}, fmt.Errorf("google geocoder api key is not configured")
	}
	if err := ctx.Err(); err != nil {
		return weather.Coordinates{}, err
	}

	googleMu.Lock()
	geocoder.ApiKey = r.apiKey
	location, err := geocoder.Geocoding(geocoder.Address{Street: query})
	googleMu.Unlock()

	if err != nil {
		if common.HasAny(strings.ToLower(err.Error()), "zero_results", "no results") {
			return weather.Coordinates{}, fmt.Errorf("%w: %q", weather.ErrLocationNotFound, query)
		}
		return weather.Coordinates{}, fmt.Errorf("google geocoding: %w", err)
	}

	return weather.Coordinates{
		Latitude:  location.Latitude,
		Longitude: location.Longitude,
	}, nil
}
