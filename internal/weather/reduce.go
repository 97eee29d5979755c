package weather

import (
	"encoding/json"
	"time"
)

// Reducer narrows a RawForecastDataset to the subset used as LLM context.
type Reducer struct {
	windowHours int
	filterGrid  bool
}

type ReducerOption func(*Reducer)

// WithWindowHours overrides the forward window. Non-positive values keep the default.
func WithWindowHours(hours int) ReducerOption {
	return func(r *Reducer) {
		if hours > 0 {
			r.windowHours = hours
		}
	}
}

// WithGridFiltering applies the hourly window to every allow-listed grid series as well.
// The policy is uniform: either all nine variables are filtered or none are.
func WithGridFiltering(enabled bool) ReducerOption {
	return func(r *Reducer) {
		r.filterGrid = enabled
	}
}

// NewReducer creates a Reducer with a 72 hour window and unfiltered grid series.
func NewReducer(opts ...ReducerOption) *Reducer {
	r := &Reducer{windowHours: DefaultWindowHours}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// WindowHours returns the configured forward window.
func (r *Reducer) WindowHours() int {
	return r.windowHours
}

// Reduce applies the default reducer.
func Reduce(raw RawForecastDataset, now time.Time) ReducedForecastDataset {
	return NewReducer().Reduce(raw, now)
}

// Reduce builds the reduced dataset relative to now. It never fails:
// malformed records are dropped, an unknown time zone falls back to UTC,
// and missing sections come out empty.
func (r *Reducer) Reduce(raw RawForecastDataset, now time.Time) ReducedForecastDataset {
	tz, err := ResolveTimeZone(raw.TimeZone)
	if err != nil {
		tz = time.UTC
	}

	reduced := ReducedForecastDataset{
		Daily:  make([]Period, 0, len(raw.DailyPeriods)),
		Hourly: make([]Period, 0, len(raw.HourlyPeriods)),
		Grid:   make(map[string]json.RawMessage),
	}

	// Daily periods span ~12h each and are kept whole.
	reduced.Daily = append(reduced.Daily, raw.DailyPeriods...)

	for _, p := range raw.HourlyPeriods {
		if r.inWindow(p.StartTime, tz, now) {
			reduced.Hourly = append(reduced.Hourly, p)
		}
	}

	for _, key := range GridVariables {
		value, ok := raw.GridSeries[key]
		if !ok {
			continue
		}
		if r.filterGrid {
			value = r.filterSeries(value, tz, now)
		}
		reduced.Grid[key] = value
	}

	return reduced
}

func (r *Reducer) inWindow(raw string, tz *time.Location, now time.Time) bool {
	start, err := ParseIntervalStart(raw)
	if err != nil {
		return false
	}
	return WithinWindow(start, tz, r.windowHours, now)
}

// filterSeries keeps the series values whose valid time starts inside the window.
// Only the values array is rewritten; other series keys are kept. Values without
// a readable validTime are dropped. A value that is not an object with a values
// array is returned unchanged.
func (r *Reducer) filterSeries(value json.RawMessage, tz *time.Location, now time.Time) json.RawMessage {
	var series map[string]json.RawMessage
	if err := json.Unmarshal(value, &series); err != nil {
		return value
	}
	rawValues, ok := series["values"]
	if !ok {
		return value
	}
	var values []json.RawMessage
	if err := json.Unmarshal(rawValues, &values); err != nil {
		return value
	}

	kept := make([]json.RawMessage, 0, len(values))
	for _, v := range values {
		var item struct {
			ValidTime string `json:"validTime"`
		}
		if err := json.Unmarshal(v, &item); err != nil {
			continue
		}
		if r.inWindow(item.ValidTime, tz, now) {
			kept = append(kept, v)
		}
	}

	filtered, err := json.Marshal(kept)
	if err != nil {
		return value
	}
	series["values"] = filtered

	out, err := json.Marshal(series)
	if err != nil {
		return value
	}
	return out
}
