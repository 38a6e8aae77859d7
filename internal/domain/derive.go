package domain

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Magnus coefficients for dew point over water.
const (
	dewA = 17.27
	dewB = 237.7
)

// WindchillMode selects the wind chill formula.
type WindchillMode int

const (
	// WindchillLegacy is the pre-2001 Siple-Passel based formula.
	WindchillLegacy WindchillMode = iota
	// WindchillModern is the 2001 NWS formula. Outside its validity window
	// (temperature above 50°F or wind below 3 mph) the air temperature is
	// returned unchanged.
	WindchillModern
	// WindchillHybrid uses the modern formula inside its validity window and
	// the legacy result outside it.
	WindchillHybrid
)

// DefaultWindchillMode is used until a mode is configured.
const DefaultWindchillMode = WindchillHybrid

// ErrUnknownWindchill is returned for an unrecognized wind chill mode name.
var ErrUnknownWindchill = errors.New("unknown windchill mode")

func (m WindchillMode) String() string {
	switch m {
	case WindchillLegacy:
		return "legacy"
	case WindchillModern:
		return "modern"
	case WindchillHybrid:
		return "hybrid"
	default:
		return "unknown"
	}
}

// Valid reports whether m is one of the defined modes.
func (m WindchillMode) Valid() bool {
	return m >= WindchillLegacy && m <= WindchillHybrid
}

// ParseWindchillMode accepts "legacy", "modern", "hybrid", their aliases
// "old" and "new", and the numeric codes 0, 1, 2.
func ParseWindchillMode(s string) (WindchillMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "legacy", "old", "0":
		return WindchillLegacy, nil
	case "modern", "new", "1":
		return WindchillModern, nil
	case "hybrid", "2":
		return WindchillHybrid, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownWindchill, s)
	}
}

// MarshalText encodes the mode by name.
func (m WindchillMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText decodes a mode name accepted by ParseWindchillMode.
func (m *WindchillMode) UnmarshalText(b []byte) error {
	v, err := ParseWindchillMode(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// WindChill computes the wind chill in °F for air temperature f (°F) and
// wind speed mph. Both formulas are clamped so the result never exceeds f.
// An undefined mode returns f.
func WindChill(f, mph float64, mode WindchillMode) float64 {
	legacy := math.Min(legacyWindChill(f, mph), f)
	modern := math.Min(modernWindChill(f, mph), f)
	inWindow := f <= 50 && mph >= 3

	switch mode {
	case WindchillLegacy:
		return legacy
	case WindchillModern:
		if !inWindow {
			return f
		}
		return modern
	case WindchillHybrid:
		if !inWindow {
			return legacy
		}
		return modern
	default:
		return f
	}
}

func legacyWindChill(f, mph float64) float64 {
	return round2(91.4 - (0.474677-0.020425*mph+0.303107*math.Sqrt(mph))*(91.4-f))
}

func modernWindChill(f, mph float64) float64 {
	v := math.Pow(mph, 0.16)
	return round2(35.74 + 0.6215*f - 35.75*v + 0.4275*f*v)
}

// DewPointC computes the dew point in °C from air temperature t (°C) and
// relative humidity h (percent). It reports false when the inputs are
// degenerate: humidity at or below zero, or a temperature that makes the
// formula undefined.
func DewPointC(t, h float64) (float64, bool) {
	if h <= 0 || dewB+t == 0 {
		return 0, false
	}
	alpha := dewA*t/(dewB+t) + math.Log(h/100)
	if alpha == dewA {
		return 0, false
	}
	dp := dewB * alpha / (dewA - alpha)
	if math.IsNaN(dp) || math.IsInf(dp, 0) {
		return 0, false
	}
	return round2(dp), true
}

// FtoC converts °F to °C rounded to two decimals.
func FtoC(f float64) float64 {
	return round2((f - 32) * 5 / 9)
}

// CtoF converts °C to °F rounded to two decimals.
func CtoF(c float64) float64 {
	return round2(c*9/5 + 32)
}

// round2 rounds half-to-even at two decimals on the exact binary value.
func round2(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	r, err := strconv.ParseFloat(strconv.FormatFloat(v, 'f', 2, 64), 64)
	if err != nil || r == 0 {
		return 0
	}
	return r
}
