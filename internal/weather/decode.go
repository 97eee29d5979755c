package weather

import (
	"encoding/json"
	"fmt"
)

// Bundle section keys. Older payloads used snake_case, newer ones camelCase;
// both are accepted on input and collapsed into RawForecastDataset.
var (
	hourlyKeys      = []string{"forecastHourly", "forecast_hourly"}
	gridKeys        = []string{"forecastGridData", "forecast_grid_data"}
	fetchStatusKeys = []string{"fetchStatus", "fetch_status"}
	stationKeys     = []string{"observationStations", "stations"}
)

type pointsProperties struct {
	GridID           string `json:"gridId"`
	GridX            int    `json:"gridX"`
	GridY            int    `json:"gridY"`
	TimeZone         string `json:"timeZone"`
	RelativeLocation struct {
		Properties struct {
			City  string `json:"city"`
			State string `json:"state"`
		} `json:"properties"`
	} `json:"relativeLocation"`
}

// DecodeBundle parses the multi-endpoint NWS document (points metadata plus the
// forecast, hourly, grid and station responses) into a RawForecastDataset.
// Only a top level that is not a JSON object is an error; absent or unreadable
// sections are left empty.
func DecodeBundle(data []byte) (RawForecastDataset, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return RawForecastDataset{}, fmt.Errorf("decode forecast bundle: %w", err)
	}

	var ds RawForecastDataset
	if meta, ok := top["metadata"]; ok {
		ds.Metadata = DecodeMetadata(meta)
		ds.TimeZone = ds.Metadata.TimeZone
	}
	if tz, ok := top["timeZone"]; ok {
		var name string
		if err := json.Unmarshal(tz, &name); err == nil && name != "" {
			ds.TimeZone = name
		}
	}

	ds.DailyPeriods = DecodePeriods(top["forecast"])
	ds.HourlyPeriods = DecodePeriods(firstSection(top, hourlyKeys))
	ds.GridSeries = DecodeGridSeries(firstSection(top, gridKeys))
	ds.Metadata.Stations = DecodeStations(firstSection(top, stationKeys))

	if raw := firstSection(top, fetchStatusKeys); raw != nil {
		var status map[string]string
		if err := json.Unmarshal(raw, &status); err == nil {
			ds.FetchStatus = status
		}
	}

	return ds, nil
}

// DecodeMetadata reads the properties of an NWS points response. It accepts
// either the full GeoJSON feature or its bare properties object.
func DecodeMetadata(raw json.RawMessage) Metadata {
	props := unwrapProperties(raw)
	var p pointsProperties
	if err := json.Unmarshal(props, &p); err != nil {
		return Metadata{}
	}
	return Metadata{
		Office:   p.GridID,
		GridX:    p.GridX,
		GridY:    p.GridY,
		TimeZone: p.TimeZone,
		City:     p.RelativeLocation.Properties.City,
		State:    p.RelativeLocation.Properties.State,
	}
}

// DecodePeriods reads properties.periods from a forecast document. Every
// element is kept in delivered order, including ones with unexpected field types.
func DecodePeriods(raw json.RawMessage) []Period {
	if len(raw) == 0 {
		return nil
	}
	var doc struct {
		Properties struct {
			Periods []Period `json:"periods"`
		} `json:"properties"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil
	}
	return doc.Properties.Periods
}

// DecodeGridSeries returns every property of a gridpoint document keyed by variable name.
func DecodeGridSeries(raw json.RawMessage) map[string]json.RawMessage {
	if len(raw) == 0 {
		return nil
	}
	var doc struct {
		Properties map[string]json.RawMessage `json:"properties"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil
	}
	return doc.Properties
}

// DecodeStations returns the station identifiers of an observationStations collection.
func DecodeStations(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var doc struct {
		Features []struct {
			Properties struct {
				StationIdentifier string `json:"stationIdentifier"`
			} `json:"properties"`
		} `json:"features"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil
	}
	var ids []string
	for _, f := range doc.Features {
		if f.Properties.StationIdentifier != "" {
			ids = append(ids, f.Properties.StationIdentifier)
		}
	}
	return ids
}

func firstSection(top map[string]json.RawMessage, keys []string) json.RawMessage {
	for _, k := range keys {
		if v, ok := top[k]; ok && len(v) > 0 && string(v) != "null" {
			return v
		}
	}
	return nil
}

func unwrapProperties(raw json.RawMessage) json.RawMessage {
	var feature struct {
		Properties json.RawMessage `json:"properties"`
	}
	if err := json.Unmarshal(raw, &feature); err == nil && len(feature.Properties) > 0 {
		return feature.Properties
	}
	return raw
}
