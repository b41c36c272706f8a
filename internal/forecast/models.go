package forecast

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Location is a selectable place. Its ID encodes the coordinates as "lat,lon".
type Location struct {
	Name string  `json:"name" validate:"required"`
	Lat  float64 `json:"lat" validate:"latitude"`
	Lon  float64 `json:"lon" validate:"longitude"`
}

// ID returns the canonical "lat,lon" identifier used by the location selector.
func (l Location) ID() string {
	return strconv.FormatFloat(l.Lat, 'f', -1, 64) + "," + strconv.FormatFloat(l.Lon, 'f', -1, 64)
}

// ParseLocationID parses a "lat,lon" identifier.
func ParseLocationID(id string) (lat, lon float64, err error) {
	latStr, lonStr, ok := strings.Cut(id, ",")
	if !ok {
		return 0, 0, fmt.Errorf("location %q: expected \"lat,lon\"", id)
	}
	lat, err = strconv.ParseFloat(strings.TrimSpace(latStr), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("location %q: invalid latitude: %w", id, err)
	}
	lon, err = strconv.ParseFloat(strings.TrimSpace(lonStr), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("location %q: invalid longitude: %w", id, err)
	}
	return lat, lon, nil
}

// DefaultTimepoint is used when an entry carries no timepoint.
const DefaultTimepoint = 12

// ForecastDay is one element of the provider's dataseries, kept as received.
type ForecastDay struct {
	Weather   string      `json:"weather"`
	Timepoint *int        `json:"timepoint,omitempty"`
	Temp2m    Temperature `json:"temp2m"`
}

// Hour returns the entry's timepoint, or DefaultTimepoint when absent.
func (d ForecastDay) Hour() int {
	if d.Timepoint == nil {
		return DefaultTimepoint
	}
	return *d.Timepoint
}

// TempKind tags which shape the temp2m field arrived in.
type TempKind int

const (
	TempAbsent TempKind = iota
	TempSingle
	TempRange
)

// Temperature is the temp2m field: either a single number or a {max, min} pair.
// A range object missing one side keeps only the side it has.
type Temperature struct {
	Kind  TempKind
	Value float64
	Max   *float64
	Min   *float64
}

// Single builds a single-valued temperature.
func Single(v float64) Temperature {
	return Temperature{Kind: TempSingle, Value: v}
}

// Range builds a {max, min} temperature.
func Range(hi, lo float64) Temperature {
	return Temperature{Kind: TempRange, Max: &hi, Min: &lo}
}

func (t *Temperature) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*t = Temperature{}
		return nil
	}

	if data[0] == '{' {
		var pair struct {
			Max *float64 `json:"max"`
			Min *float64 `json:"min"`
		}
		if err := json.Unmarshal(data, &pair); err != nil {
			return fmt.Errorf("temp2m: %w", err)
		}
		*t = Temperature{Kind: TempRange, Max: pair.Max, Min: pair.Min}
		return nil
	}

	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("temp2m: expected number or {max, min}: %w", err)
	}
	*t = Single(v)
	return nil
}

func (t Temperature) MarshalJSON() ([]byte, error) {
	switch t.Kind {
	case TempSingle:
		return json.Marshal(t.Value)
	case TempRange:
		return json.Marshal(struct {
			Max *float64 `json:"max,omitempty"`
			Min *float64 `json:"min,omitempty"`
		}{t.Max, t.Min})
	default:
		return []byte("null"), nil
	}
}

// ConditionEntry describes how a weather code is displayed.
type ConditionEntry struct {
	Code      string `json:"code"`
	Name      string `json:"name"`
	Icon      string `json:"icon"`
	DayIcon   string `json:"dayIcon"`
	NightIcon string `json:"nightIcon"`
}

// DisplayCard is the rendered form of a single forecast day.
type DisplayCard struct {
	Date      string `json:"date"`
	Featured  bool   `json:"featured"`
	DayIcon   string `json:"dayIcon"`
	NightIcon string `json:"nightIcon"`
	Condition string `json:"condition"`
	High      int    `json:"high"`
	Low       int    `json:"low"`
	Symbol    string `json:"unit"`
}

// HighLabel returns the high temperature as shown on the card, e.g. "H: 20°C".
func (c DisplayCard) HighLabel() string {
	return fmt.Sprintf("H: %d%s", c.High, c.Symbol)
}

// LowLabel returns the low temperature as shown on the card, e.g. "L: 15°C".
func (c DisplayCard) LowLabel() string {
	return fmt.Sprintf("L: %d%s", c.Low, c.Symbol)
}
