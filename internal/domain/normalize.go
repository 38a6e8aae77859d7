package domain

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/couchcryptid/ecowitt-ingest/internal/catalog"
)

// Conversion factors applied to imperial source fields.
const (
	mphToKmh  = 1.60934
	mphToMs   = 0.44707
	inToHpa   = 33.86
	inToMm    = 25.4
	kmToMiles = 0.6213712
)

var (
	// ErrEmptyValue is reported for a cataloged numeric field sent with an
	// empty value. Stations do this for sensors with no reading yet, e.g.
	// lightning_time before the first strike.
	ErrEmptyValue = errors.New("empty value")
	// ErrNonFinite is reported for values that parse to NaN or ±Inf.
	ErrNonFinite = errors.New("non-finite value")
)

// FieldError describes a field whose raw value could not be decoded to its
// cataloged format. The field is kept in the record as text.
type FieldError struct {
	Key string
	Raw string
	Err error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("decode field %s=%q: %v", e.Key, e.Raw, e.Err)
}

func (e *FieldError) Unwrap() error { return e.Err }

// Result is the outcome of normalizing one raw record.
type Result struct {
	Record *Record
	// Errors lists per-field decode failures in wire order.
	Errors []*FieldError
	// Unrecognized lists wire keys absent from the catalog, in wire order.
	Unrecognized []string
}

// unitTwin derives dst from src by a fixed multiplication.
type unitTwin struct {
	src, dst string
	factor   float64
}

var (
	temperatureTwins = buildTemperatureTwins()

	speedTwins = []unitTwin{
		{"windspeedmph", "windspeedkmh", mphToKmh},
		{"windspeedmph", "windspeedms", mphToMs},
		{"windgustmph", "windgustkmh", mphToKmh},
		{"windgustmph", "windgustms", mphToMs},
		{"maxdailygust", "maxdailygustkmh", mphToKmh},
		{"maxdailygust", "maxdailygustms", mphToMs},
		{"windspdmph_avg10m", "windspdkmh_avg10m", mphToKmh},
		{"windspdmph_avg10m", "windspdms_avg10m", mphToMs},
	}

	rainTwins = []unitTwin{
		{"rainratein", "rainratemm", inToMm},
		{"eventrainin", "eventrainmm", inToMm},
		{"hourlyrainin", "hourlyrainmm", inToMm},
		{"dailyrainin", "dailyrainmm", inToMm},
		{"weeklyrainin", "weeklyrainmm", inToMm},
		{"monthlyrainin", "monthlyrainmm", inToMm},
		{"yearlyrainin", "yearlyrainmm", inToMm},
		{"totalrainin", "totalrainmm", inToMm},
	}

	pressureTwins = []unitTwin{
		{"baromrelin", "baromrelhpa", inToHpa},
		{"baromabsin", "baromabshpa", inToHpa},
	}

	// Suffixes joining temp<s>c and humidity<s> into dewpoint<s>c.
	dewPointChannels = []string{"", "in", "1", "2", "3", "4", "5", "6", "7", "8"}
)

// buildTemperatureTwins maps each Fahrenheit source to its Celsius key.
func buildTemperatureTwins() [][2]string {
	twins := [][2]string{
		{"tempf", "tempc"},
		{"tempinf", "tempinc"},
		{"tf_co2", "tf_co2c"},
	}
	for ch := 1; ch <= 8; ch++ {
		twins = append(twins, [2]string{fmt.Sprintf("tf_ch%d", ch), fmt.Sprintf("tf_ch%dc", ch)})
	}
	for ch := 1; ch <= 8; ch++ {
		twins = append(twins, [2]string{fmt.Sprintf("temp%df", ch), fmt.Sprintf("temp%dc", ch)})
	}
	return twins
}

// Normalize decodes every cataloged field of raw to its declared format and
// appends the derived fields: unit twins, lightning miles, wind chill and dew
// points. Derived fields are computed only when their sources decoded to
// numbers; a missing or broken source silently skips them, as does a
// derived value that overflows to a non-finite number.
//
// Normalize never fails as a whole. Fields that do not decode stay in the
// record as text and are listed in Result.Errors.
func Normalize(raw RawRecord, mode WindchillMode) Result {
	res := Result{Record: NewRecord()}
	rec := res.Record

	for _, f := range raw {
		entry, ok := catalog.Lookup(f.Key)
		if !ok {
			res.Unrecognized = append(res.Unrecognized, f.Key)
			rec.Set(f.Key, TextValue(f.Value))
			continue
		}
		v, err := decode(entry.Format, f.Value)
		if err != nil {
			res.Errors = append(res.Errors, &FieldError{Key: f.Key, Raw: f.Value, Err: err})
			rec.Set(f.Key, TextValue(f.Value))
			continue
		}
		rec.Set(f.Key, v)
	}

	deriveLightning(rec)
	for _, t := range temperatureTwins {
		if f, ok := rec.Float(t[0]); ok {
			setFinite(rec, t[1], FtoC(f))
		}
	}
	applyTwins(rec, speedTwins)
	applyTwins(rec, rainTwins)
	applyTwins(rec, pressureTwins)
	deriveWindChill(rec, mode)
	deriveDewPoints(rec)

	return res
}

func applyTwins(rec *Record, twins []unitTwin) {
	for _, t := range twins {
		if v, ok := rec.Float(t.src); ok {
			setFinite(rec, t.dst, round2(v*t.factor))
		}
	}
}

func deriveLightning(rec *Record) {
	v, ok := rec.Get("lightning")
	if !ok {
		return
	}
	km, ok := v.Float()
	if !ok {
		return
	}
	mi := math.RoundToEven(km * kmToMiles)
	if math.Abs(mi) > math.MaxInt64 {
		return
	}
	rec.Set("lightning_mi", IntValue(int64(mi)))
}

// setFinite stores v under key unless it is NaN or ±Inf, which JSON cannot
// encode.
func setFinite(rec *Record, key string, v float64) bool {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return false
	}
	rec.Set(key, FloatValue(v))
	return true
}

func deriveWindChill(rec *Record, mode WindchillMode) {
	f, ok := rec.Float("tempf")
	if !ok {
		return
	}
	mph, ok := rec.Float("windspeedmph")
	if !ok || mph < 0 {
		return
	}
	wc := WindChill(f, mph, mode)
	if setFinite(rec, "windchillf", wc) {
		setFinite(rec, "windchillc", FtoC(wc))
	}
}

func deriveDewPoints(rec *Record) {
	for _, ch := range dewPointChannels {
		t, ok := rec.Float("temp" + ch + "c")
		if !ok {
			continue
		}
		h, ok := rec.Float("humidity" + ch)
		if !ok {
			continue
		}
		dp, ok := DewPointC(t, h)
		if !ok {
			continue
		}
		rec.Set("dewpoint"+ch+"c", FloatValue(dp))
		setFinite(rec, "dewpoint"+ch+"f", CtoF(dp))
	}
}

// decode parses raw according to the catalog format.
func decode(format catalog.Format, raw string) (Value, error) {
	s := strings.TrimSpace(raw)
	switch format {
	case catalog.FormatText:
		return TextValue(raw), nil
	case catalog.FormatInteger:
		if s == "" {
			return Value{}, ErrEmptyValue
		}
		return decodeInt(s)
	case catalog.FormatFloat:
		if s == "" {
			return Value{}, ErrEmptyValue
		}
		f, err := parseFinite(s)
		if err != nil {
			return Value{}, err
		}
		return FloatValue(f), nil
	default:
		return Value{}, fmt.Errorf("unsupported format %s", format)
	}
}

// decodeInt accepts plain integers and whole-valued decimals such as "50.0",
// which some firmware sends for integer fields.
func decodeInt(s string) (Value, error) {
	i, err := strconv.ParseInt(s, 10, 64)
	if err == nil {
		return IntValue(i), nil
	}
	f, ferr := parseFinite(s)
	if ferr != nil || f != math.Trunc(f) || math.Abs(f) > math.MaxInt64 {
		return Value{}, fmt.Errorf("parse integer: %w", err)
	}
	return IntValue(int64(f)), nil
}

func parseFinite(s string) (float64, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse float: %w", err)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, ErrNonFinite
	}
	return f, nil
}
