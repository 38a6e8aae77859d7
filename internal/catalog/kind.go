package catalog

// Kind is the semantic category of a field. It selects the decode format
// and the display unit of every field of that kind.
type Kind int

const (
	KindPressure Kind = iota
	KindRate
	KindHumidity
	KindAngle
	KindSpeed
	KindTemperature
	KindIrradiance
	KindUVIndex
	KindParticulate
	KindTimestamp
	KindCount
	KindDistance
	KindBooleanFlag
	KindParticulatePM10
	KindVoltage
	KindBatteryPercent
	KindLength
	KindCO2PPM
	KindInternal
)

var kindNames = map[Kind]string{
	KindPressure:        "pressure",
	KindRate:            "rate",
	KindHumidity:        "humidity",
	KindAngle:           "angle",
	KindSpeed:           "speed",
	KindTemperature:     "temperature",
	KindIrradiance:      "irradiance",
	KindUVIndex:         "uv_index",
	KindParticulate:     "particulate",
	KindTimestamp:       "timestamp",
	KindCount:           "count",
	KindDistance:        "distance",
	KindBooleanFlag:     "boolean_flag",
	KindParticulatePM10: "particulate_pm10",
	KindVoltage:         "voltage",
	KindBatteryPercent:  "battery_percent",
	KindLength:          "length",
	KindCO2PPM:          "co2_ppm",
	KindInternal:        "internal",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// MarshalText encodes the kind by name so JSON payloads stay readable.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// ParseKind resolves a kind by its name, e.g. "temperature".
func ParseKind(s string) (Kind, bool) {
	for k, name := range kindNames {
		if name == s {
			return k, true
		}
	}
	return 0, false
}

// Format is the typed representation a raw wire string is decoded into.
type Format int

const (
	FormatText Format = iota
	FormatInteger
	FormatFloat
)

func (f Format) String() string {
	switch f {
	case FormatInteger:
		return "integer"
	case FormatFloat:
		return "float"
	default:
		return "text"
	}
}

// Format returns the default decode format for fields of this kind.
// Lightning distance is reported as whole kilometres, so distance decodes
// as an integer.
func (k Kind) Format() Format {
	switch k {
	case KindPressure, KindRate, KindSpeed, KindTemperature, KindIrradiance,
		KindParticulate, KindParticulatePM10, KindVoltage, KindBatteryPercent,
		KindLength:
		return FormatFloat
	case KindHumidity, KindAngle, KindUVIndex, KindCount, KindBooleanFlag,
		KindCO2PPM, KindTimestamp, KindDistance:
		return FormatInteger
	case KindInternal:
		return FormatText
	default:
		return FormatText
	}
}

// UnitSystem is the measurement system a field value is expressed in.
type UnitSystem int

const (
	SystemNone UnitSystem = iota
	SystemMetric
	SystemImperial
	SystemMetricSpeed
)

func (s UnitSystem) String() string {
	switch s {
	case SystemMetric:
		return "metric"
	case SystemImperial:
		return "imperial"
	case SystemMetricSpeed:
		return "metric_speed"
	default:
		return "none"
	}
}

// MarshalText encodes the unit system by name.
func (s UnitSystem) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
