package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Field is one key/value pair as received on the wire.
type Field struct {
	Key   string
	Value string
}

// RawRecord is one station report in wire order. It is never mutated once
// built.
type RawRecord []Field

// Get returns the raw value of the first field named key.
func (r RawRecord) Get(key string) (string, bool) {
	for _, f := range r {
		if f.Key == key {
			return f.Value, true
		}
	}
	return "", false
}

// ParseForm decodes an application/x-www-form-urlencoded body into a
// RawRecord, preserving field order. When a key repeats, the first
// occurrence wins. Pairs with broken escapes are skipped and reported in the
// returned error; the remaining pairs are still returned.
func ParseForm(body string) (RawRecord, error) {
	var (
		rec  RawRecord
		errs []error
		seen = make(map[string]struct{})
	)
	for _, pair := range strings.Split(body, "&") {
		if pair == "" {
			continue
		}
		rawKey, rawValue, _ := strings.Cut(pair, "=")
		key, err := url.QueryUnescape(rawKey)
		if err != nil {
			errs = append(errs, fmt.Errorf("unescape key %q: %w", rawKey, err))
			continue
		}
		value, err := url.QueryUnescape(rawValue)
		if err != nil {
			errs = append(errs, fmt.Errorf("unescape value of %q: %w", key, err))
			continue
		}
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		rec = append(rec, Field{Key: key, Value: value})
	}
	return rec, errors.Join(errs...)
}

// Record is a normalized report: an insertion-ordered mapping from field key
// to typed value. It holds the original keys plus every derived field.
type Record struct {
	keys   []string
	values map[string]Value
}

// NewRecord returns an empty Record.
func NewRecord() *Record {
	return &Record{values: make(map[string]Value)}
}

// Set stores v under key. New keys are appended to the iteration order;
// existing keys keep their position.
func (r *Record) Set(key string, v Value) {
	if _, ok := r.values[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.values[key] = v
}

// Get returns the value stored under key.
func (r *Record) Get(key string) (Value, bool) {
	v, ok := r.values[key]
	return v, ok
}

// Has reports whether key is present.
func (r *Record) Has(key string) bool {
	_, ok := r.values[key]
	return ok
}

// Float returns the numeric value under key. It reports false when the key
// is absent or holds text, e.g. a field that failed to decode.
func (r *Record) Float(key string) (float64, bool) {
	v, ok := r.values[key]
	if !ok {
		return 0, false
	}
	return v.Float()
}

// Text returns the string form of the value under key, or "" when absent.
func (r *Record) Text(key string) string {
	v, ok := r.values[key]
	if !ok {
		return ""
	}
	return v.Text()
}

// Keys returns the field keys in insertion order.
func (r *Record) Keys() []string {
	out := make([]string, len(r.keys))
	copy(out, r.keys)
	return out
}

// Len returns the number of fields.
func (r *Record) Len() int {
	return len(r.keys)
}

// Clone returns a deep copy that can be handed to another goroutine.
func (r *Record) Clone() *Record {
	c := &Record{
		keys:   make([]string, len(r.keys)),
		values: make(map[string]Value, len(r.values)),
	}
	copy(c.keys, r.keys)
	for k, v := range r.values {
		c.values[k] = v
	}
	return c
}

// Map unwraps the record into plain Go values.
func (r *Record) Map() map[string]any {
	out := make(map[string]any, len(r.values))
	for k, v := range r.values {
		out[k] = v.Any()
	}
	return out
}

// MarshalJSON encodes the record as a JSON object in insertion order.
func (r *Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, fmt.Errorf("marshal key %q: %w", k, err)
		}
		vb, err := r.values[k].MarshalJSON()
		if err != nil {
			return nil, fmt.Errorf("marshal value of %q: %w", k, err)
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
