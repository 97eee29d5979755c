package weather

import (
	"context"
	"errors"
)

// ErrLocationNotFound is returned by a Resolver when the query matches nothing.
var ErrLocationNotFound = errors.New("location not found")

// Resolver turns free-text location input into coordinates (e.g. Census or Google geocoding).
type Resolver interface {
	Name() string
	Resolve(ctx context.Context, query string) (Coordinates, error)
}

// Fetcher retrieves the raw NWS dataset for a coordinate pair.
type Fetcher interface {
	Name() string
	Fetch(ctx context.Context, coords Coordinates) (RawForecastDataset, error)
}
