package weather

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/i474232898/weather-forecast-qa/internal/common"
)

// Forecast is the result of resolving a location and fetching its NWS data.
type Forecast struct {
	Query       string             `json:"query"`
	Coordinates Coordinates        `json:"coordinates"`
	Dataset     RawForecastDataset `json:"dataset"`
	FetchedAt   time.Time          `json:"fetchedAt"`
}

// Service resolves locations, fetches forecasts and reduces them for the QA layer.
type Service struct {
	resolver Resolver
	fetcher  Fetcher
	reducer  *Reducer
	logger   *zap.SugaredLogger
}

// NewService creates a new Service. A nil reducer uses the defaults.
func NewService(resolver Resolver, fetcher Fetcher, reducer *Reducer, logger *zap.SugaredLogger) *Service {
	if reducer == nil {
		reducer = NewReducer()
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Service{
		resolver: resolver,
		fetcher:  fetcher,
		reducer:  reducer,
		logger:   logger,
	}
}

// Resolve turns the user input into coordinates. Direct "lat,lon" input skips the geocoder.
func (s *Service) Resolve(ctx context.Context, query string) (Coordinates, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Coordinates{}, fmt.Errorf("%w: empty query", ErrLocationNotFound)
	}

	if lat, lon, ok := common.ParseLatLon(query); ok {
		return Coordinates{Latitude: lat, Longitude: lon}, nil
	}

	if s.resolver == nil {
		return Coordinates{}, fmt.Errorf("no location resolver configured")
	}

	coords, err := s.resolver.Resolve(ctx, query)
	if err != nil {
		if !errors.Is(err, ErrLocationNotFound) {
			s.logger.Errorw("geocoding failed",
				"resolver", s.resolver.Name(), "query", query, "error", err)
		}
		return Coordinates{}, err
	}
	return coords, nil
}

// Load resolves the location and fetches the raw dataset for it.
func (s *Service) Load(ctx context.Context, query string) (Forecast, error) {
	coords, err := s.Resolve(ctx, query)
	if err != nil {
		return Forecast{}, err
	}

	if s.fetcher == nil {
		return Forecast{}, fmt.Errorf("no forecast fetcher configured")
	}

	ds, err := s.fetcher.Fetch(ctx, coords)
	if err != nil {
		s.logger.Errorw("forecast fetch failed",
			"fetcher", s.fetcher.Name(),
			"lat", coords.Latitude, "lon", coords.Longitude,
			"error", err)
		return Forecast{}, err
	}

	s.logger.Infow("forecast loaded",
		"query", query,
		"lat", coords.Latitude, "lon", coords.Longitude,
		"timeZone", ds.TimeZone,
		"daily", len(ds.DailyPeriods),
		"hourly", len(ds.HourlyPeriods),
		"grid", len(ds.GridSeries))

	return Forecast{
		Query:       query,
		Coordinates: coords,
		Dataset:     ds,
		FetchedAt:   time.Now().UTC(),
	}, nil
}

// Reduce computes the reduced dataset relative to now. Callers pass the current
// time on every turn so the window follows the clock.
func (s *Service) Reduce(ds RawForecastDataset, now time.Time) ReducedForecastDataset {
	reduced := s.reducer.Reduce(ds, now)
	s.logger.Debugw("forecast reduced",
		"windowHours", s.reducer.WindowHours(),
		"hourlyIn", len(ds.HourlyPeriods), "hourlyOut", len(reduced.Hourly),
		"gridIn", len(ds.GridSeries), "gridOut", len(reduced.Grid))
	return reduced
}

// Summary returns the tomorrow summary for a dataset.
func (s *Service) Summary(ds RawForecastDataset, now time.Time) (string, bool) {
	return TomorrowSummary(ds.DailyPeriods, now, s.Location(ds))
}

// Location returns the dataset time zone, or UTC when it is absent or unknown.
func (s *Service) Location(ds RawForecastDataset) *time.Location {
	loc, err := ResolveTimeZone(ds.TimeZone)
	if err != nil {
		s.logger.Warnw("unknown forecast time zone; using UTC", "timeZone", ds.TimeZone)
		return time.UTC
	}
	return loc
}

// WindowHours exposes the reducer window for prompt text.
func (s *Service) WindowHours() int {
	return s.reducer.WindowHours()
}
