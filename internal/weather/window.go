package weather

import (
	"time"

	// Embedded zone database so forecast time zones resolve on minimal images.
	_ "time/tzdata"
)

// DefaultWindowHours is the forward-looking window applied to hourly data.
const DefaultWindowHours = 72

// WithinWindow reports whether instant falls at or before now+windowHours,
// both expressed in tz. The boundary is inclusive.
func WithinWindow(instant time.Time, tz *time.Location, windowHours int, now time.Time) bool {
	if tz == nil {
		tz = time.UTC
	}
	cutoff := now.In(tz).Add(time.Duration(windowHours) * time.Hour)
	return !instant.In(tz).After(cutoff)
}
