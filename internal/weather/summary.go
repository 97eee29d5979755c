package weather

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TomorrowSummary describes the first daily period that starts on tomorrow's
// date in tz. The period date is taken in the period's own UTC offset.
func TomorrowSummary(daily []Period, now time.Time, tz *time.Location) (string, bool) {
	if tz == nil {
		tz = time.UTC
	}
	ty, tm, td := now.In(tz).AddDate(0, 0, 1).Date()

	for _, p := range daily {
		start, err := ParseIntervalStart(p.StartTime)
		if err != nil {
			continue
		}
		y, m, d := start.Date()
		if y == ty && m == tm && d == td {
			return periodSummary(p), true
		}
	}
	return "", false
}

func periodSummary(p Period) string {
	name := p.Name
	if name == "" {
		name = "Tomorrow"
	}
	temps := "Temperature not reported"
	if p.Temperature != nil {
		temps = fmt.Sprintf("Temperatures around %s°%s",
			strconv.FormatFloat(*p.Temperature, 'f', -1, 64), p.TemperatureUnit)
	}
	return fmt.Sprintf("%s will bring %s. %s, winds from the %s at %s. %s",
		name,
		strings.ToLower(p.ShortForecast),
		temps,
		p.WindDirection,
		p.WindSpeed,
		p.DetailedForecast,
	)
}
