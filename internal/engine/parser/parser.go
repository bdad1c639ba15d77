// Package parser extracts the facts honeyfeed cares about from a single
// cowrie log line. It keeps no state; deciding which event a line produces
// is the engine's job.
package parser

import (
	"net/netip"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// TimeLayout is the leading timestamp format of a cowrie log line.
const TimeLayout = "2006-01-02T15:04:05"

const (
	ProtoSSH    = "SSH"
	ProtoTelnet = "Telnet"
)

var (
	metaRe  = regexp.MustCompile(`\[([^,\[\]]+),([^,\[\]]*),([0-9A-Fa-f:.]+)\]`)
	timeRe  = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2})`)
	loginRe = regexp.MustCompile(`login attempt \[b?'?(.+?)'?/b?'?.*?'?\] succeeded`)
	cmdRe   = regexp.MustCompile(`CMD: (.+)`)
	lostRe  = regexp.MustCompile(`Connection lost after ([\d.]+) seconds`)
)

// Line holds everything recognised in one log line. Several signals can be
// set at once; the engine applies them in a fixed order.
type Line struct {
	Proto  string
	ConnID string
	Addr   string
	Time   time.Time

	NewConnection bool

	HasLogin bool
	Username string

	HasCommand bool
	Command    string

	HasDisconnect bool
	Duration      float64 // seconds
}

// Parse inspects raw. It reports false when the line has no
// [protocol,connId,address] triple or carries a malformed timestamp;
// now is used when the line has no timestamp at all.
func Parse(raw string, now time.Time) (Line, bool) {
	m := metaRe.FindStringSubmatch(raw)
	if m == nil {
		return Line{}, false
	}
	addr, err := netip.ParseAddr(m[3])
	if err != nil {
		return Line{}, false
	}

	l := Line{
		Proto:  NormalizeProto(m[1]),
		ConnID: strings.TrimSpace(m[2]),
		Addr:   addr.String(),
		Time:   now,
	}

	if tm := timeRe.FindStringSubmatch(raw); tm != nil {
		ts, err := time.Parse(TimeLayout, tm[1])
		if err != nil {
			return Line{}, false
		}
		l.Time = ts
	}

	l.NewConnection = strings.Contains(raw, "New connection:")

	if lm := loginRe.FindStringSubmatch(raw); lm != nil {
		l.HasLogin = true
		l.Username = lm[1]
	}

	if cm := cmdRe.FindStringSubmatch(raw); cm != nil {
		if cmd := strings.TrimSpace(cm[1]); cmd != "" {
			l.HasCommand = true
			l.Command = cmd
		}
	}

	if dm := lostRe.FindStringSubmatch(raw); dm != nil {
		if d, err := strconv.ParseFloat(dm[1], 64); err == nil {
			l.HasDisconnect = true
			l.Duration = d
		}
	}

	return l, true
}

// NormalizeProto maps cowrie transport names to SSH or Telnet and passes
// anything else through unchanged.
func NormalizeProto(p string) string {
	p = strings.TrimSpace(p)
	switch {
	case strings.Contains(p, "Telnet"):
		return ProtoTelnet
	case strings.Contains(p, "SSH"):
		return ProtoSSH
	}
	return p
}
