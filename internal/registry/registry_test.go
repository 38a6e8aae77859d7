package registry

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/ecowitt-ingest/internal/catalog"
	"github.com/couchcryptid/ecowitt-ingest/internal/domain"
)

var (
	t0 = time.Date(2024, 4, 26, 15, 10, 3, 0, time.UTC)
	t1 = t0.Add(time.Minute)
)

func TestObserve_DiscoversOnce(t *testing.T) {
	var calls int
	r := New(slog.Default(), WithDiscoveryCallback(func(Sensor) { calls++ }))

	assert.True(t, r.Observe("tempf", domain.FloatValue(68), t0, time.Second))
	assert.False(t, r.Observe("tempf", domain.FloatValue(70), t1, 61*time.Second))

	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, r.Len())

	s, ok := r.Sensor("tempf")
	require.True(t, ok)
	assert.Equal(t, "Outdoor Temperature", s.Name)
	assert.Equal(t, catalog.KindTemperature, s.Kind)
	assert.Equal(t, catalog.SystemImperial, s.System)
	assert.Equal(t, "°F", s.Unit)
	assert.Equal(t, t1, s.UpdatedAt)
	assert.Equal(t, 61*time.Second, s.UpdatedMono)
	f, _ := s.Value.Float()
	assert.Equal(t, 70.0, f)
}

func TestObserve_UncatalogedKeyIgnored(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	var calls int
	r := New(logger, WithDiscoveryCallback(func(Sensor) { calls++ }))

	assert.False(t, r.Observe("runtime", domain.TextValue("42"), t0, 0))

	assert.Equal(t, 0, calls)
	assert.Equal(t, 0, r.Len())
	_, ok := r.Value("runtime")
	assert.False(t, ok)
	assert.Contains(t, buf.String(), `"key":"runtime"`)
	assert.Contains(t, buf.String(), `"level":"WARN"`)
}

func TestObserve_ConcurrentFirstSighting(t *testing.T) {
	var calls atomic.Int32
	r := New(slog.Default(), WithDiscoveryCallback(func(Sensor) { calls.Add(1) }))

	const workers = 32
	var wg sync.WaitGroup
	var created atomic.Int32
	start := make(chan struct{})
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if r.Observe("humidity", domain.IntValue(int64(i)), t0, 0) {
				created.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, int32(1), created.Load())
	assert.Equal(t, []string{"humidity"}, r.Keys())
}

func TestObserveRecord(t *testing.T) {
	var discovered []string
	var r *Registry
	r = New(slog.Default(), WithDiscoveryCallback(func(s Sensor) {
		// Callbacks run unlocked and may read the registry.
		_, ok := r.Value(s.Key)
		assert.True(t, ok)
		discovered = append(discovered, s.Key)
	}))

	raw := domain.RawRecord{
		{Key: "model", Value: "GW1000"},
		{Key: "tempf", Value: "68.0"},
		{Key: "humidity", Value: "50"},
		{Key: "runtime", Value: "42"},
	}
	rec := domain.Normalize(raw, domain.WindchillHybrid).Record

	got := r.ObserveRecord(rec, t0, time.Second)
	want := []string{"model", "tempf", "humidity", "tempc", "dewpointc", "dewpointf"}
	assert.Equal(t, want, discovered)
	require.Len(t, got, len(want))
	assert.Equal(t, want, r.Keys())

	discovered = nil
	assert.Empty(t, r.ObserveRecord(rec, t1, 2*time.Second))
	assert.Empty(t, discovered)

	v, ok := r.Value("dewpointc")
	require.True(t, ok)
	f, _ := v.Float()
	assert.Equal(t, 9.25, f)
}

func TestKeysByKind(t *testing.T) {
	r := New(slog.Default())
	r.Observe("tempf", domain.FloatValue(68), t0, 0)
	r.Observe("humidity", domain.IntValue(50), t0, 0)
	r.Observe("tempc", domain.FloatValue(20), t0, 0)
	r.Observe("temp1f", domain.FloatValue(75.2), t0, 0)

	assert.Equal(t, []string{"tempf", "tempc", "temp1f"}, r.KeysByKind(catalog.KindTemperature))
	assert.Equal(t, []string{"humidity"}, r.KeysByKind(catalog.KindHumidity))
	assert.Empty(t, r.KeysByKind(catalog.KindPressure))
}

func TestValue_NeverObserved(t *testing.T) {
	r := New(slog.Default())
	_, ok := r.Value("tempf")
	assert.False(t, ok)
	_, ok = r.Sensor("tempf")
	assert.False(t, ok)
	assert.Empty(t, r.Sensors())
}

func TestSensorsAreCopies(t *testing.T) {
	r := New(slog.Default())
	r.Observe("uv", domain.IntValue(3), t0, 0)

	sensors := r.Sensors()
	require.Len(t, sensors, 1)
	sensors[0].Value = domain.IntValue(99)

	v, _ := r.Value("uv")
	i, _ := v.Int()
	assert.Equal(t, int64(3), i)
}

func TestSensorJSON(t *testing.T) {
	r := New(slog.Default())
	r.Observe("windspeedms", domain.FloatValue(4.47), t0, 0)
	s, _ := r.Sensor("windspeedms")

	b, err := json.Marshal(s)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"name": "Wind Speed",
		"key": "windspeedms",
		"system": "metric_speed",
		"kind": "speed",
		"unit": "m/s",
		"value": 4.47,
		"updated_at": "2024-04-26T15:10:03Z"
	}`, string(b))
}
