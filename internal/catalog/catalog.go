// Package catalog is the static lookup table from Ecowitt wire field names
// to their display name, unit system, value kind and decode format.
//
// Every unit variant of a measurement is a separate entry: "tempf" and
// "tempc" describe the same concept but are distinct keys. The table is
// built once at package initialisation and never mutated afterwards, so
// lookups need no locking.
package catalog

import "sort"

// Entry describes one wire field.
type Entry struct {
	Key    string     `json:"key"`
	Name   string     `json:"name"`
	System UnitSystem `json:"system"`
	Kind   Kind       `json:"kind"`
	Format Format     `json:"-"`
}

// Internal reports whether the field carries station metadata rather than
// sensor data.
func (e Entry) Internal() bool {
	return e.Kind == KindInternal
}

// Unit returns the display unit for the entry, or "" when the value is
// dimensionless.
func (e Entry) Unit() string {
	metric := e.System == SystemMetric || e.System == SystemMetricSpeed
	switch e.Kind {
	case KindPressure:
		if metric {
			return "hPa"
		}
		return "inHg"
	case KindRate, KindLength:
		if metric {
			return "mm"
		}
		return "in"
	case KindSpeed:
		switch e.System {
		case SystemMetricSpeed:
			return "m/s"
		case SystemMetric:
			return "km/h"
		default:
			return "mph"
		}
	case KindTemperature:
		if metric {
			return "°C"
		}
		return "°F"
	case KindDistance:
		if metric {
			return "km"
		}
		return "mi"
	case KindHumidity, KindBatteryPercent:
		return "%"
	case KindAngle:
		return "°"
	case KindIrradiance:
		return "W/m²"
	case KindParticulate, KindParticulatePM10:
		return "µg/m³"
	case KindVoltage:
		return "V"
	case KindCO2PPM:
		return "ppm"
	case KindTimestamp:
		return "s"
	case KindUVIndex, KindCount, KindBooleanFlag, KindInternal:
		return ""
	default:
		return ""
	}
}

// Lookup returns the catalog entry for a wire field key.
func Lookup(key string) (Entry, bool) {
	e, ok := entries[key]
	return e, ok
}

// Keys returns every cataloged field key in lexical order.
func Keys() []string {
	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of cataloged fields.
func Len() int {
	return len(entries)
}
