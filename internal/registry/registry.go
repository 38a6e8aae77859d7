// Package registry tracks the sensors a station has reported since start.
//
// A Sensor is created the first time a cataloged field key is observed and
// updated in place on every later observation. Sensors are never removed.
// Creation and the discovery decision happen under one lock, so two
// concurrent first sightings of a key produce exactly one Sensor and one
// discovery callback.
package registry

import (
	"log/slog"
	"sync"
	"time"

	"github.com/couchcryptid/ecowitt-ingest/internal/catalog"
	"github.com/couchcryptid/ecowitt-ingest/internal/domain"
)

// Sensor is one discovered field with its latest value.
type Sensor struct {
	Name      string             `json:"name"`
	Key       string             `json:"key"`
	System    catalog.UnitSystem `json:"system"`
	Kind      catalog.Kind       `json:"kind"`
	Unit      string             `json:"unit,omitempty"`
	Value     domain.Value       `json:"value"`
	UpdatedAt time.Time          `json:"updated_at"`
	// UpdatedMono is the process uptime at the last update. Unlike
	// UpdatedAt it is unaffected by wall clock steps.
	UpdatedMono time.Duration `json:"-"`
}

// DiscoveryFunc is notified once per newly created sensor. It runs after
// the registry lock is released and may call back into the registry.
type DiscoveryFunc func(Sensor)

// Option configures a Registry.
type Option func(*Registry)

// WithDiscoveryCallback registers fn to run on every discovery.
func WithDiscoveryCallback(fn DiscoveryFunc) Option {
	return func(r *Registry) {
		r.onDiscover = append(r.onDiscover, fn)
	}
}

// Registry is the set of known sensors, keyed by field key and kept in
// discovery order. It is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	sensors map[string]*Sensor
	order   []string

	onDiscover []DiscoveryFunc
	logger     *slog.Logger
}

// New creates an empty Registry.
func New(logger *slog.Logger, opts ...Option) *Registry {
	r := &Registry{
		sensors: make(map[string]*Sensor),
		logger:  logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Observe records value v for key. It reports whether the observation
// created a new sensor. Keys absent from the catalog are logged and ignored.
func (r *Registry) Observe(key string, v domain.Value, wall time.Time, mono time.Duration) bool {
	created, s, ok := r.observe(key, v, wall, mono)
	if !ok {
		r.logger.Warn("unrecognized field, not tracked as a sensor", "key", key, "value", v.Text())
		return false
	}
	if created {
		r.notify(s)
	}
	return created
}

// ObserveRecord observes every field of rec in record order and returns the
// sensors it discovered.
func (r *Registry) ObserveRecord(rec *domain.Record, wall time.Time, mono time.Duration) []Sensor {
	var discovered []Sensor
	for _, key := range rec.Keys() {
		v, _ := rec.Get(key)
		created, s, ok := r.observe(key, v, wall, mono)
		if !ok {
			r.logger.Warn("unrecognized field, not tracked as a sensor", "key", key, "value", v.Text())
			continue
		}
		if created {
			discovered = append(discovered, s)
		}
	}
	for _, s := range discovered {
		r.notify(s)
	}
	return discovered
}

// observe updates or creates the sensor for key under the write lock and
// returns a copy of it. ok is false when key is not cataloged.
func (r *Registry) observe(key string, v domain.Value, wall time.Time, mono time.Duration) (created bool, snapshot Sensor, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, exists := r.sensors[key]
	if !exists {
		entry, cataloged := catalog.Lookup(key)
		if !cataloged {
			return false, Sensor{}, false
		}
		s = &Sensor{
			Name:   entry.Name,
			Key:    entry.Key,
			System: entry.System,
			Kind:   entry.Kind,
			Unit:   entry.Unit(),
		}
		r.sensors[key] = s
		r.order = append(r.order, key)
		created = true
	}
	s.Value = v
	s.UpdatedAt = wall
	s.UpdatedMono = mono
	return created, *s, true
}

func (r *Registry) notify(s Sensor) {
	for _, fn := range r.onDiscover {
		fn(s)
	}
}

// Keys returns every known field key in discovery order.
func (r *Registry) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// KeysByKind returns the known field keys of the given kind in discovery order.
func (r *Registry) KeysByKind(kind catalog.Kind) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []string
	for _, key := range r.order {
		if r.sensors[key].Kind == kind {
			out = append(out, key)
		}
	}
	return out
}

// Value returns the latest value observed for key.
func (r *Registry) Value(key string) (domain.Value, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sensors[key]
	if !ok {
		return domain.Value{}, false
	}
	return s.Value, true
}

// Sensor returns a copy of the sensor for key.
func (r *Registry) Sensor(key string) (Sensor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sensors[key]
	if !ok {
		return Sensor{}, false
	}
	return *s, true
}

// Sensors returns copies of all sensors in discovery order.
func (r *Registry) Sensors() []Sensor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Sensor, 0, len(r.order))
	for _, key := range r.order {
		out = append(out, *r.sensors[key])
	}
	return out
}

// Len returns the number of known sensors.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}
