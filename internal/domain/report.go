package domain

import (
	"time"

	"github.com/google/uuid"
)

// Report is one normalized station upload as handed to subscribers.
type Report struct {
	ID         string        `json:"id"`
	ReceivedAt time.Time     `json:"received_at"`
	Uptime     time.Duration `json:"-"`
	Station    Station       `json:"station"`
	Fields     *Record       `json:"fields"`
}

// NewReport stamps rec with a fresh ID and the current time. rec is owned by
// the report afterwards and must not be mutated.
func NewReport(rec *Record) Report {
	return Report{
		ID:         uuid.NewString(),
		ReceivedAt: clock.Now().UTC(),
		Uptime:     uptime(),
		Station:    StationFromRecord(rec),
		Fields:     rec,
	}
}
