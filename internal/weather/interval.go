package weather

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrMalformedTimestamp is returned when a record timestamp is not an ISO-8601 instant with an offset.
	ErrMalformedTimestamp = errors.New("malformed timestamp")

	// ErrUnknownTimeZone is returned when a time zone name cannot be resolved.
	ErrUnknownTimeZone = errors.New("unknown time zone")
)

// ParseIntervalStart returns the representative instant of an NWS timestamp.
// Both "2025-01-17T06:00:00-08:00" and "2025-01-17T06:00:00+00:00/PT1H" are accepted;
// for intervals only the part before the slash is parsed.
func ParseIntervalStart(raw string) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if i := strings.IndexByte(s, '/'); i >= 0 {
		s = s[:i]
	}
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: %q", ErrMalformedTimestamp, raw)
	}

	// RFC 3339 requires either Z or a numeric offset, so local-only times are rejected here.
	ts, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrMalformedTimestamp, raw)
	}
	return ts, nil
}

// ResolveTimeZone loads an IANA zone. An empty name resolves to UTC.
func ResolveTimeZone(name string) (*time.Location, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTimeZone, name)
	}
	return loc, nil
}
