package model

import "time"

// Kind identifies what a classified log line means.
type Kind int

const (
	KindConnected Kind = iota + 1
	KindLoggedIn
	KindCommandRun
	KindScanDetected
	KindSessionEnded
)

var kindNames = map[Kind]string{
	KindConnected:    "connected",
	KindLoggedIn:     "logged_in",
	KindCommandRun:   "command_run",
	KindScanDetected: "scan_detected",
	KindSessionEnded: "session_ended",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// MarshalText lets Kind appear by name in JSON output.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Event is honeyfeed's output type: one security-relevant occurrence
// extracted from the honeypot log.
type Event struct {
	ID       string    `json:"id"`
	Kind     Kind      `json:"kind"`
	Addr     string    `json:"addr"`
	Proto    string    `json:"proto"`
	ConnID   string    `json:"conn_id,omitempty"`
	Time     time.Time `json:"time"`
	Username string    `json:"username,omitempty"` // LoggedIn; CommandRun when the session logged in earlier
	Command  string    `json:"command,omitempty"`  // CommandRun
	Duration float64   `json:"duration,omitempty"` // seconds; ScanDetected and SessionEnded
	Geo      GeoRecord `json:"geo"`
	Summary  string    `json:"summary"`
}

// GeoRecord is coarse location metadata for a network address.
type GeoRecord struct {
	City    string `json:"city"`
	Country string `json:"country"`
	Org     string `json:"org"`
}

// UnknownGeo is returned when a lookup fails or geo enrichment is disabled.
var UnknownGeo = GeoRecord{City: "Unknown", Country: "Unknown", Org: "Unknown"}

// Location renders the record as "City, Country".
func (g GeoRecord) Location() string {
	switch {
	case g.City == "" && g.Country == "":
		return "Unknown"
	case g.City == "":
		return g.Country
	case g.Country == "":
		return g.City
	}
	return g.City + ", " + g.Country
}
