package weather

import (
	"bytes"
	"encoding/json"
)

// GridVariables is the fixed allow-list of gridpoint variables kept by the reducer.
// Names are matched exactly and case-sensitively.
var GridVariables = []string{
	"temperature",
	"dewpoint",
	"relativeHumidity",
	"windSpeed",
	"windGust",
	"windDirection",
	"probabilityOfPrecipitation",
	"skyCover",
	"quantitativePrecipitation",
}

// Coordinates is a resolved latitude/longitude pair.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Metadata holds the station/grid identifiers returned by the NWS points endpoint.
type Metadata struct {
	Office   string   `json:"gridId,omitempty"`
	GridX    int      `json:"gridX"`
	GridY    int      `json:"gridY"`
	TimeZone string   `json:"timeZone,omitempty"`
	City     string   `json:"city,omitempty"`
	State    string   `json:"state,omitempty"`
	Stations []string `json:"stations,omitempty"`
}

// QuantitativeValue is the NWS {unitCode, value} pair. Value is nil when the source sends null.
type QuantitativeValue struct {
	UnitCode string   `json:"unitCode,omitempty"`
	Value    *float64 `json:"value"`
}

// Period is a single daily or hourly forecast period as delivered by NWS.
// The typed fields are a read-only view for filtering and summaries. A period
// decoded from JSON keeps its source bytes and re-encodes to exactly those,
// so fields outside this view and explicit nulls reach the LLM unchanged.
type Period struct {
	Number                     int                `json:"number"`
	Name                       string             `json:"name"`
	StartTime                  string             `json:"startTime"`
	EndTime                    string             `json:"endTime,omitempty"`
	IsDaytime                  bool               `json:"isDaytime"`
	Temperature                *float64           `json:"temperature"`
	TemperatureUnit            string             `json:"temperatureUnit,omitempty"`
	ProbabilityOfPrecipitation *QuantitativeValue `json:"probabilityOfPrecipitation,omitempty"`
	WindSpeed                  string             `json:"windSpeed,omitempty"`
	WindDirection              string             `json:"windDirection,omitempty"`
	ShortForecast              string             `json:"shortForecast,omitempty"`
	DetailedForecast           string             `json:"detailedForecast,omitempty"`

	raw json.RawMessage
}

// periodView has Period's fields without its JSON methods.
type periodView Period

// UnmarshalJSON never fails: each field is read on its own and a field of an
// unexpected type is left zero. Temperature accepts a bare number or an NWS
// quantitative value.
func (p *Period) UnmarshalJSON(data []byte) error {
	*p = Period{raw: append(json.RawMessage(nil), data...)}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil
	}

	readField(fields, "number", &p.Number)
	readField(fields, "name", &p.Name)
	readField(fields, "startTime", &p.StartTime)
	readField(fields, "endTime", &p.EndTime)
	readField(fields, "isDaytime", &p.IsDaytime)
	readField(fields, "temperatureUnit", &p.TemperatureUnit)
	readField(fields, "windSpeed", &p.WindSpeed)
	readField(fields, "windDirection", &p.WindDirection)
	readField(fields, "shortForecast", &p.ShortForecast)
	readField(fields, "detailedForecast", &p.DetailedForecast)

	p.Temperature = readMeasure(fields["temperature"])
	if v, ok := fields["probabilityOfPrecipitation"]; ok && !isNull(v) {
		var qv QuantitativeValue
		if err := json.Unmarshal(v, &qv); err == nil {
			p.ProbabilityOfPrecipitation = &qv
		}
	}
	return nil
}

// MarshalJSON returns the source bytes of a decoded period, or the typed view
// for a period built in code.
func (p Period) MarshalJSON() ([]byte, error) {
	if len(p.raw) > 0 {
		return p.raw, nil
	}
	return json.Marshal(periodView(p))
}

func readField(fields map[string]json.RawMessage, key string, dst interface{}) {
	if v, ok := fields[key]; ok && !isNull(v) {
		_ = json.Unmarshal(v, dst)
	}
}

// readMeasure reads a number or a {unitCode, value} object. null and anything
// else read as nil.
func readMeasure(v json.RawMessage) *float64 {
	if len(v) == 0 || isNull(v) {
		return nil
	}
	var n float64
	if err := json.Unmarshal(v, &n); err == nil {
		return &n
	}
	var qv QuantitativeValue
	if err := json.Unmarshal(v, &qv); err == nil {
		return qv.Value
	}
	return nil
}

func isNull(v json.RawMessage) bool {
	return string(bytes.TrimSpace(v)) == "null"
}

// RawForecastDataset is the unprocessed result of querying NWS for one coordinate pair.
// Sections that were not fetched are left empty.
type RawForecastDataset struct {
	Metadata      Metadata                   `json:"metadata"`
	DailyPeriods  []Period                   `json:"dailyPeriods"`
	HourlyPeriods []Period                   `json:"hourlyPeriods"`
	GridSeries    map[string]json.RawMessage `json:"gridSeries"`
	TimeZone      string                     `json:"timeZone,omitempty"`
	FetchStatus   map[string]string          `json:"fetchStatus,omitempty"`
}

// ReducedForecastDataset is the bounded view handed to the LLM as grounding context.
// Its JSON shape is consumed verbatim by the prompt builder.
type ReducedForecastDataset struct {
	Daily  []Period                   `json:"daily"`
	Hourly []Period                   `json:"hourly"`
	Grid   map[string]json.RawMessage `json:"grid"`
}

// JSON returns the serialized form embedded in prompts.
func (r ReducedForecastDataset) JSON() ([]byte, error) {
	return json.Marshal(r)
}
