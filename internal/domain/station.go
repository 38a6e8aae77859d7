package domain

import "strings"

// Station is the metadata a gateway sends alongside its sensor data.
type Station struct {
	Type      string `json:"stationtype,omitempty"`
	Model     string `json:"model,omitempty"`
	Frequency string `json:"freq,omitempty"`
	MAC       string `json:"mac,omitempty"`
	PassKey   string `json:"passkey,omitempty"`
	DateUTC   string `json:"dateutc,omitempty"`
}

// StationFromRecord extracts the station metadata fields from rec.
func StationFromRecord(rec *Record) Station {
	return Station{
		Type:      rec.Text("stationtype"),
		Model:     rec.Text("model"),
		Frequency: rec.Text("freq"),
		MAC:       rec.Text("mac"),
		PassKey:   rec.Text("PASSKEY"),
		DateUTC:   rec.Text("dateutc"),
	}
}

// ID identifies the station for message keys and subjects. Gateways send
// either a MAC address or an MD5 PASSKEY depending on firmware, so the MAC
// is preferred and the passkey used as fallback. Empty when neither is sent.
func (s Station) ID() string {
	if s.MAC != "" {
		return strings.ToLower(strings.ReplaceAll(s.MAC, ":", ""))
	}
	return strings.ToLower(s.PassKey)
}

// IsZero reports whether no metadata was captured.
func (s Station) IsZero() bool {
	return s == Station{}
}
