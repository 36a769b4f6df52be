package geo

import (
	"regexp"
	"strconv"

	domainerrors "zonewatch/internal/domain/errors"
)

// Distance is a length stored in meters, parsed from request parameters that
// may carry a unit suffix.
type Distance float64

// metersPerUnit maps recognized unit suffixes to their length in meters.
var metersPerUnit = map[string]float64{
	"m":  1,
	"km": 1000,
	"ft": 0.3048,
	"yd": 0.9144,
	"mi": 1609.344,
}

var distancePattern = regexp.MustCompile(`^(\d+(?:\.\d+)?)\s*(km|mi|m|ft|yd)?\s*$`)

// ParseDistance parses a distance string such as "300ft" or "500". A missing
// unit suffix means meters.
func ParseDistance(s string) (Distance, error) {
	m := distancePattern.FindStringSubmatch(s)
	if m == nil {
		return 0, domainerrors.NewValidationError("malformed distance value", "r")
	}

	value, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, domainerrors.NewValidationError("malformed distance value", "r")
	}

	unit := m[2]
	if unit == "" {
		unit = "m"
	}

	return Distance(value * metersPerUnit[unit]), nil
}

// Meters returns the distance in meters.
func (d Distance) Meters() float64 { return float64(d) }

// Feet returns the distance in feet.
func (d Distance) Feet() float64 { return float64(d) / metersPerUnit["ft"] }

// Kilometers returns the distance in kilometers.
func (d Distance) Kilometers() float64 { return float64(d) / metersPerUnit["km"] }

// Miles returns the distance in miles.
func (d Distance) Miles() float64 { return float64(d) / metersPerUnit["mi"] }

// Feet builds a Distance from a value in feet.
func Feet(v float64) Distance { return Distance(v * metersPerUnit["ft"]) }

// Meters builds a Distance from a value in meters.
func Meters(v float64) Distance { return Distance(v) }
