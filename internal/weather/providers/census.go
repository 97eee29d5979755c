package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/sony/gobreaker"

	"github.com/i474232898/weather-forecast-qa/internal/weather"
)

const defaultCensusBaseURL = "https://geocoding.geo.census.gov/geocoder"

// CensusResolver implements weather.Resolver with the US Census one-line address geocoder.
type CensusResolver struct {
	name    string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewCensusResolver(client *http.Client, baseURL string) *CensusResolver {
	if baseURL == "" {
		baseURL = defaultCensusBaseURL
	}
	return &CensusResolver{
		name:    "census",
		baseURL: strings.TrimRight(baseURL, "/"),
		httpCfg: defaultHTTPConfig(client),
		circuit: newCircuitBreaker("census"),
	}
}

func (r *CensusResolver) Name() string {
	return r.name
}

// SetBackoff overrides the retry policy (useful for testing).
func (r *CensusResolver) SetBackoff(b BackoffConfig) {
	r.httpCfg.Backoff = b
}

func (r *CensusResolver) Resolve(ctx context.Context, query string) (weather.Coordinates, error) {
	values := url.Values{}
	values.Set("address", query)
	values.Set("benchmark", "Public_AR_Current")
	values.Set("format", "json")
	u := fmt.Sprintf("%s/locations/onelineaddress?%s", r.baseURL, values.Encode())

	var payload struct {
		Result struct {
			AddressMatches []struct {
				MatchedAddress string `json:"matchedAddress"`
				Coordinates    struct {
					X float64 `json:"x"`
					Y float64 `json:"y"`
				} `json:"coordinates"`
			} `json:"addressMatches"`
		} `json:"result"`
	}

	if err := getJSON(ctx, r.httpCfg, r.circuit, nil, u, nil, &payload); err != nil {
		return weather.Coordinates{}, fmt.Errorf("census geocoding: %w", err)
	}

	matches := payload.Result.AddressMatches
	if len(matches) == 0 {
		return weather.Coordinates{}, fmt.Errorf("%w: %q", weather.ErrLocationNotFound, query)
	}

	// Census reports x as longitude and y as latitude.
	return weather.Coordinates{
		Latitude:  matches[0].Coordinates.Y,
		Longitude: matches[0].Coordinates.X,
	}, nil
}
