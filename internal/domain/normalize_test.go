package domain

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gw1000Body is a capture from a GW1000 with a WH31 channel, a WH57
// lightning sensor and a WH51 soil probe.
const gw1000Body = "PASSKEY=0D3C1E2BDA6E4F7EA1F0C33AB8FA3D6B&stationtype=GW1000B_V1.6.8" +
	"&dateutc=2024-04-26+15%3A10%3A03&tempinf=72.0&humidityin=40" +
	"&baromrelin=29.920&baromabsin=29.500&tempf=68.0&humidity=50" +
	"&winddir=212&windspeedmph=10.0&windgustmph=5.5&maxdailygust=5.5" +
	"&solarradiation=412.17&uv=3&rainratein=0.000&eventrainin=0.500" +
	"&hourlyrainin=0.000&dailyrainin=1.230&weeklyrainin=1.230" +
	"&monthlyrainin=2.000&yearlyrainin=12.000&totalrainin=12.000" +
	"&temp1f=75.2&humidity1=40&soilmoisture1=31&soilbatt1=1.5" +
	"&lightning_num=3&lightning=8&lightning_time=1714140000&wh57batt=5" +
	"&wh65batt=0&freq=915M&model=GW1000"

func normalizeBody(t *testing.T, body string, mode WindchillMode) Result {
	t.Helper()
	raw, err := ParseForm(body)
	require.NoError(t, err)
	return Normalize(raw, mode)
}

func assertFloat(t *testing.T, rec *Record, key string, want float64) {
	t.Helper()
	v, ok := rec.Get(key)
	require.True(t, ok, "missing %s", key)
	require.Equal(t, TypeFloat, v.Type(), "%s type", key)
	f, _ := v.Float()
	assert.Equal(t, want, f, key)
}

func assertInt(t *testing.T, rec *Record, key string, want int64) {
	t.Helper()
	v, ok := rec.Get(key)
	require.True(t, ok, "missing %s", key)
	i, ok := v.Int()
	require.True(t, ok, "%s is %s, want integer", key, v.Type())
	assert.Equal(t, want, i, key)
}

func TestNormalize_Temperature(t *testing.T) {
	res := normalizeBody(t, "tempf=68.0&humidity=50", WindchillHybrid)
	require.Empty(t, res.Errors)

	assertFloat(t, res.Record, "tempf", 68.0)
	assertFloat(t, res.Record, "tempc", 20.0)
	assertInt(t, res.Record, "humidity", 50)
	assertFloat(t, res.Record, "dewpointc", 9.25)
	assertFloat(t, res.Record, "dewpointf", 48.65)
	assert.False(t, res.Record.Has("windchillf"), "wind chill needs wind speed")
}

func TestNormalize_WindSpeed(t *testing.T) {
	res := normalizeBody(t, "windspeedmph=10.0", WindchillHybrid)

	assertFloat(t, res.Record, "windspeedmph", 10.0)
	assertFloat(t, res.Record, "windspeedkmh", 16.09)
	assertFloat(t, res.Record, "windspeedms", 4.47)
}

func TestNormalize_Pressure(t *testing.T) {
	res := normalizeBody(t, "baromrelin=29.92&baromabsin=29.5", WindchillHybrid)

	assertFloat(t, res.Record, "baromrelhpa", 1013.09)
	assertFloat(t, res.Record, "baromabshpa", 998.87)
}

func TestNormalize_FullCapture(t *testing.T) {
	res := normalizeBody(t, gw1000Body, WindchillHybrid)
	rec := res.Record

	require.Empty(t, res.Errors)
	require.Empty(t, res.Unrecognized)

	assertFloat(t, rec, "tempinc", 22.22)
	assertFloat(t, rec, "dewpointinc", 7.97)
	assertFloat(t, rec, "dewpointinf", 46.35)
	assertFloat(t, rec, "windgustkmh", 8.85)
	assertFloat(t, rec, "windgustms", 2.46)
	assertFloat(t, rec, "maxdailygustkmh", 8.85)
	assertFloat(t, rec, "eventrainmm", 12.7)
	assertFloat(t, rec, "dailyrainmm", 31.24)
	assertFloat(t, rec, "rainratemm", 0)
	assertFloat(t, rec, "solarradiation", 412.17)
	assertInt(t, rec, "uv", 3)
	assertInt(t, rec, "winddir", 212)
	assertFloat(t, rec, "temp1c", 24.0)
	assertInt(t, rec, "soilmoisture1", 31)
	assertFloat(t, rec, "soilbatt1", 1.5)
	assertInt(t, rec, "lightning", 8)
	assertInt(t, rec, "lightning_mi", 5)
	assertInt(t, rec, "lightning_num", 3)
	assertInt(t, rec, "lightning_time", 1714140000)
	assertFloat(t, rec, "wh57batt", 5)
	assertFloat(t, rec, "wh65batt", 0)

	// Outside the modern window at 68°F, hybrid uses the legacy result.
	wc := WindChill(68, 10, WindchillHybrid)
	assertFloat(t, rec, "windchillf", wc)
	assertFloat(t, rec, "windchillc", FtoC(wc))

	assert.Equal(t, "GW1000", rec.Text("model"))
	assert.Equal(t, "2024-04-26 15:10:03", rec.Text("dateutc"))
	v, _ := rec.Get("freq")
	assert.Equal(t, TypeText, v.Type())
}

func TestNormalize_WindchillModeSelection(t *testing.T) {
	body := "tempf=60.0&windspeedmph=10.0"

	assertFloat(t, normalizeBody(t, body, WindchillModern).Record, "windchillf", 60)
	assertFloat(t, normalizeBody(t, body, WindchillHybrid).Record, "windchillf", 52.81)
	assertFloat(t, normalizeBody(t, body, WindchillLegacy).Record, "windchillf", 52.81)
}

func TestNormalize_PreservesOrder(t *testing.T) {
	res := normalizeBody(t, "model=GW1000&tempf=68.0&humidity=50&windspeedmph=10", WindchillHybrid)

	assert.Equal(t, []string{
		"model", "tempf", "humidity", "windspeedmph",
		"tempc", "windspeedkmh", "windspeedms",
		"windchillf", "windchillc",
		"dewpointc", "dewpointf",
	}, res.Record.Keys())
}

func TestNormalize_DecodeFailureIsolated(t *testing.T) {
	res := normalizeBody(t, "tempf=warm&humidity=50&windspeedmph=10.0&uv=", WindchillHybrid)
	rec := res.Record

	require.Len(t, res.Errors, 2)
	assert.Equal(t, "tempf", res.Errors[0].Key)
	assert.Equal(t, "warm", res.Errors[0].Raw)
	assert.Equal(t, "uv", res.Errors[1].Key)
	assert.ErrorIs(t, res.Errors[1], ErrEmptyValue)

	v, ok := rec.Get("tempf")
	require.True(t, ok)
	assert.Equal(t, TypeText, v.Type())
	assert.Equal(t, "warm", v.Text())

	assert.False(t, rec.Has("tempc"))
	assert.False(t, rec.Has("windchillf"))
	assert.False(t, rec.Has("dewpointc"))
	assertInt(t, rec, "humidity", 50)
	assertFloat(t, rec, "windspeedkmh", 16.09)
}

func TestNormalize_NonFinite(t *testing.T) {
	res := normalizeBody(t, "tempf=NaN&baromrelin=Inf", WindchillHybrid)

	require.Len(t, res.Errors, 2)
	for _, fe := range res.Errors {
		assert.ErrorIs(t, fe, ErrNonFinite)
	}
	_, err := json.Marshal(res.Record)
	require.NoError(t, err)
}

func TestNormalize_OverflowingDerivedFieldsSkipped(t *testing.T) {
	res := normalizeBody(t, "baromrelin=1e307&windspeedmph=1e308&tempf=40", WindchillHybrid)

	assert.Empty(t, res.Errors)
	assertFloat(t, res.Record, "baromrelin", 1e307)
	assertFloat(t, res.Record, "windspeedmph", 1e308)
	assert.False(t, res.Record.Has("baromrelhpa"), "33.86 × 1e307 overflows")
	assert.False(t, res.Record.Has("windspeedkmh"), "1.60934 × 1e308 overflows")
	assert.True(t, res.Record.Has("windspeedms"))
	assertFloat(t, res.Record, "tempc", 4.44)

	_, err := json.Marshal(res.Record)
	require.NoError(t, err)
	_, err = json.Marshal(NewReport(res.Record))
	require.NoError(t, err)
}

func TestSetFinite(t *testing.T) {
	rec := NewRecord()

	assert.True(t, setFinite(rec, "a", 1.5))
	assert.False(t, setFinite(rec, "b", math.Inf(1)))
	assert.False(t, setFinite(rec, "c", math.NaN()))
	assert.Equal(t, []string{"a"}, rec.Keys())
}

func TestNormalize_UnknownFieldsPassThrough(t *testing.T) {
	res := normalizeBody(t, "tempf=68.0&wh90batt=3.1&runtime=42", WindchillHybrid)

	assert.Equal(t, []string{"wh90batt", "runtime"}, res.Unrecognized)
	v, ok := res.Record.Get("runtime")
	require.True(t, ok)
	assert.Equal(t, TypeText, v.Type())
	assert.Equal(t, "42", v.Text())
}

func TestNormalize_IntegerLeniency(t *testing.T) {
	res := normalizeBody(t, "humidity=50.0&winddir=12.5", WindchillHybrid)

	assertInt(t, res.Record, "humidity", 50)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "winddir", res.Errors[0].Key)
}

func TestNormalize_AlreadyConvertedFieldsAddNothing(t *testing.T) {
	body := "tempc=20.0&windspeedkmh=16.09&windspeedms=4.47&baromrelhpa=1013.09&rainratemm=1.2&tf_co2c=21.5"
	res := normalizeBody(t, body, WindchillHybrid)

	assert.Equal(t, []string{"tempc", "windspeedkmh", "windspeedms", "baromrelhpa", "rainratemm", "tf_co2c"}, res.Record.Keys())
}

func TestNormalize_ChannelDewPoints(t *testing.T) {
	res := normalizeBody(t, "temp3f=68.0&humidity3=50&temp4f=68.0", WindchillHybrid)

	assertFloat(t, res.Record, "dewpoint3c", 9.25)
	assertFloat(t, res.Record, "dewpoint3f", 48.65)
	assert.False(t, res.Record.Has("dewpoint4c"), "channel 4 has no humidity")
}

func TestNormalize_EmptyRecord(t *testing.T) {
	res := Normalize(nil, WindchillHybrid)

	require.NotNil(t, res.Record)
	assert.Equal(t, 0, res.Record.Len())
	assert.Empty(t, res.Errors)
}
