package honeyfeed

import (
	"time"

	"github.com/crimson-sun/honeyfeed/internal/model"
)

// Event kinds.
const (
	KindConnected    = "connected"
	KindLoggedIn     = "logged_in"
	KindCommandRun   = "command_run"
	KindScanDetected = "scan_detected"
	KindSessionEnded = "session_ended"
)

// Event is a classified honeypot log line.
type Event struct {
	ID       string    `json:"id"`
	Kind     string    `json:"kind"`
	Addr     string    `json:"addr"`
	Proto    string    `json:"proto"`
	ConnID   string    `json:"conn_id,omitempty"`
	Time     time.Time `json:"time"`
	Username string    `json:"username,omitempty"`
	Command  string    `json:"command,omitempty"`
	Duration float64   `json:"duration,omitempty"` // seconds
	City     string    `json:"city"`
	Country  string    `json:"country"`
	Org      string    `json:"org"`
	Summary  string    `json:"summary"`
}

func eventFromModel(e model.Event) Event {
	return Event{
		ID:       e.ID,
		Kind:     e.Kind.String(),
		Addr:     e.Addr,
		Proto:    e.Proto,
		ConnID:   e.ConnID,
		Time:     e.Time,
		Username: e.Username,
		Command:  e.Command,
		Duration: e.Duration,
		City:     e.Geo.City,
		Country:  e.Geo.Country,
		Org:      e.Geo.Org,
		Summary:  e.Summary,
	}
}
