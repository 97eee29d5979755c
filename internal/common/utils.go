package common

import (
	"math"
	"strconv"
	"strings"
)

// ParseLatLon accepts direct "lat,lon" input. Both parts must parse as floats
// and fall inside valid coordinate ranges; anything else is left to a geocoder.
func ParseLatLon(s string) (lat, lon float64, ok bool) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return 0, 0, false
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0, 0, false
	}
	lon, err = strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return 0, 0, false
	}
	if math.IsNaN(lat) || math.IsNaN(lon) || lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return 0, 0, false
	}
	return lat, lon, true
}

// FormatCoord renders a coordinate with the 4 decimals NWS accepts in /points URLs.
func FormatCoord(f float64) string {
	return strconv.FormatFloat(f, 'f', 4, 64)
}

// HasAny returns true if s contains any of the substrings.
func HasAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
