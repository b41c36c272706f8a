package forecast

import (
	"fmt"
	"math"
	"strings"
)

// Unit is the temperature unit cards are rendered in.
type Unit string

const (
	Celsius    Unit = "C"
	Fahrenheit Unit = "F"
)

// ParseUnit accepts "C"/"F" in either case. An empty string yields Celsius.
func ParseUnit(s string) (Unit, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "C":
		return Celsius, nil
	case "F":
		return Fahrenheit, nil
	default:
		return "", fmt.Errorf("unknown temperature unit %q", s)
	}
}

// Symbol returns the suffix shown after a temperature.
func (u Unit) Symbol() string {
	if u == Fahrenheit {
		return "°F"
	}
	return "°C"
}

// Toggle returns the other unit.
func (u Unit) Toggle() Unit {
	if u == Fahrenheit {
		return Celsius
	}
	return Fahrenheit
}

// Label describes the active unit, e.g. "Using Celsius".
func (u Unit) Label() string {
	if u == Fahrenheit {
		return "Using Fahrenheit"
	}
	return "Using Celsius"
}

// ToggleLabel is the text of the control that switches away from u.
func (u Unit) ToggleLabel() string {
	return "Switch to " + u.Toggle().Symbol()
}

// Convert turns a Celsius value into the given unit, rounding half away from
// zero after the conversion.
func Convert(celsius float64, unit Unit) int {
	if unit == Fahrenheit {
		return int(math.Round(celsius*9/5 + 32))
	}
	return int(math.Round(celsius))
}

const (
	defaultHigh = 20.0
	defaultLow  = 15.0

	// syntheticSpread approximates a low from a single temperature reading.
	// It is not a meteorological rule.
	syntheticSpread = 5.0
)

// ExtractHighLow returns the day's high and low in Celsius.
//
// A {max, min} pair is used directly; a single value v gives (v, v-5); an
// absent field gives (20, 15). A pair missing one side falls back to the
// default for that side only.
func ExtractHighLow(day ForecastDay) (high, low float64) {
	t := day.Temp2m
	switch t.Kind {
	case TempRange:
		high, low = defaultHigh, defaultLow
		if t.Max != nil {
			high = *t.Max
		}
		if t.Min != nil {
			low = *t.Min
		}
		return high, low
	case TempSingle:
		return t.Value, t.Value - syntheticSpread
	default:
		return defaultHigh, defaultLow
	}
}
