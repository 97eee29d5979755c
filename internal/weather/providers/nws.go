package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/i474232898/weather-forecast-qa/internal/common"
	"github.com/i474232898/weather-forecast-qa/internal/weather"
)

const (
	defaultNWSBaseURL   = "https://api.weather.gov"
	defaultNWSUserAgent = "NWS-Forecast-App/1.0 (contact@example.com)"

	// FetchStatus values recorded per linked endpoint.
	StatusOK         = "ok"
	StatusFailed     = "failed"
	StatusMissingURL = "missing url"
)

// NWSFetcher implements weather.Fetcher for the National Weather Service API.
// It looks up the gridpoint for a coordinate pair and then fetches each linked endpoint.
type NWSFetcher struct {
	name      string
	baseURL   string
	userAgent string
	httpCfg   HTTPClientConfig
	circuit   *gobreaker.CircuitBreaker
	limiter   *rate.Limiter
	logger    *zap.SugaredLogger
}

type NWSOption func(*NWSFetcher)

func NWSBaseURLOption(baseURL string) NWSOption {
	return func(f *NWSFetcher) {
		if baseURL != "" {
			f.baseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

func NWSUserAgentOption(userAgent string) NWSOption {
	return func(f *NWSFetcher) {
		if userAgent != "" {
			f.userAgent = userAgent
		}
	}
}

// NWSRateLimitOption caps outbound requests per second. Zero disables the limiter.
func NWSRateLimitOption(rps float64, burst int) NWSOption {
	return func(f *NWSFetcher) {
		if rps <= 0 {
			f.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		f.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

func NWSBackoffOption(b BackoffConfig) NWSOption {
	return func(f *NWSFetcher) {
		f.httpCfg.Backoff = b
	}
}

func NWSLoggerOption(logger *zap.SugaredLogger) NWSOption {
	return func(f *NWSFetcher) {
		f.logger = logger
	}
}

func NewNWSFetcher(client *http.Client, opts ...NWSOption) *NWSFetcher {
	f := &NWSFetcher{
		name:      "nws",
		baseURL:   defaultNWSBaseURL,
		userAgent: defaultNWSUserAgent,
		httpCfg:   defaultHTTPConfig(client),
		circuit:   newCircuitBreaker("nws"),
		limiter:   rate.NewLimiter(rate.Limit(5), 5),
		logger:    zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *NWSFetcher) Name() string {
	return f.name
}

// Fetch retrieves points metadata plus the daily, hourly, gridpoint and station
// documents. Only a failed points lookup is an error; a failed linked endpoint
// is recorded in FetchStatus and its section stays empty.
func (f *NWSFetcher) Fetch(ctx context.Context, coords weather.Coordinates) (weather.RawForecastDataset, error) {
	pointsURL := fmt.Sprintf("%s/points/%s,%s", f.baseURL,
		common.FormatCoord(coords.Latitude), common.FormatCoord(coords.Longitude))

	var points struct {
		Properties json.RawMessage `json:"properties"`
	}
	if err := f.get(ctx, pointsURL, &points); err != nil {
		return weather.RawForecastDataset{}, fmt.Errorf("nws points lookup: %w", err)
	}

	var links struct {
		Forecast            string `json:"forecast"`
		ForecastHourly      string `json:"forecastHourly"`
		ForecastGridData    string `json:"forecastGridData"`
		ObservationStations string `json:"observationStations"`
	}
	if err := json.Unmarshal(points.Properties, &links); err != nil {
		return weather.RawForecastDataset{}, fmt.Errorf("nws points properties: %w", err)
	}

	ds := weather.RawForecastDataset{
		Metadata:    weather.DecodeMetadata(points.Properties),
		FetchStatus: make(map[string]string),
	}
	ds.TimeZone = ds.Metadata.TimeZone

	if doc, ok := f.linked(ctx, "forecast", links.Forecast, ds.FetchStatus); ok {
		ds.DailyPeriods = weather.DecodePeriods(doc)
	}
	if doc, ok := f.linked(ctx, "forecastHourly", links.ForecastHourly, ds.FetchStatus); ok {
		ds.HourlyPeriods = weather.DecodePeriods(doc)
	}
	if doc, ok := f.linked(ctx, "forecastGridData", links.ForecastGridData, ds.FetchStatus); ok {
		ds.GridSeries = weather.DecodeGridSeries(doc)
	}
	if doc, ok := f.linked(ctx, "observationStations", links.ObservationStations, ds.FetchStatus); ok {
		ds.Metadata.Stations = weather.DecodeStations(doc)
	}

	return ds, nil
}

func (f *NWSFetcher) linked(ctx context.Context, key, u string, status map[string]string) (json.RawMessage, bool) {
	if u == "" {
		status[key] = StatusMissingURL
		return nil, false
	}
	var doc json.RawMessage
	if err := f.get(ctx, u, &doc); err != nil {
		f.logger.Warnw("nws endpoint fetch failed", "endpoint", key, "url", u, "error", err)
		status[key] = StatusFailed
		return nil, false
	}
	status[key] = StatusOK
	return doc, true
}

func (f *NWSFetcher) get(ctx context.Context, u string, out interface{}) error {
	header := http.Header{}
	header.Set("User-Agent", f.userAgent)
	header.Set("Accept", "application/geo+json")
	return getJSON(ctx, f.httpCfg, f.circuit, f.limiter, u, header, out)
}
