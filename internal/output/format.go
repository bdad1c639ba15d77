package output

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/crimson-sun/honeyfeed/internal/model"
)

// Length limits accepted by Discord-compatible webhook embeds.
const (
	maxTitle       = 256
	maxDescription = 4096
	maxFieldValue  = 1024
	maxSummary     = 512
)

// Severity colors per event kind.
const (
	ColorConnected    = 0x3498DB
	ColorLoggedIn     = 0xE67E22
	ColorCommandRun   = 0xE74C3C
	ColorScanDetected = 0xF1C40F
	ColorSessionEnded = 0x95A5A6
)

// FormatSummary renders the one-line text shown on the live feed.
func FormatSummary(e model.Event) string {
	var s string
	switch e.Kind {
	case model.KindConnected:
		s = fmt.Sprintf("%s connected via %s", e.Addr, clean(e.Proto))
	case model.KindLoggedIn:
		s = fmt.Sprintf("%s logged in as %s via %s", e.Addr, clean(e.Username), clean(e.Proto))
	case model.KindCommandRun:
		s = fmt.Sprintf("%s ran: %s", e.Addr, clean(e.Command))
	case model.KindScanDetected:
		s = fmt.Sprintf("%s is scanning ports (connection lasted %.1fs)", e.Addr, e.Duration)
	case model.KindSessionEnded:
		s = fmt.Sprintf("%s disconnected after %.1fs", e.Addr, e.Duration)
	default:
		s = fmt.Sprintf("%s %s", e.Addr, e.Kind)
	}
	return truncate(s, maxSummary)
}

// FormatNotification builds the webhook payload for e.
func FormatNotification(e model.Event) model.Notification {
	n := model.Notification{
		Description: truncate(FormatSummary(e), maxDescription),
		Timestamp:   e.Time.UTC(),
	}

	proto := field("Protocol", clean(e.Proto), true)
	where := []model.Field{
		field("Location", e.Geo.Location(), true),
		field("Org/ISP", e.Geo.Org, true),
	}

	switch e.Kind {
	case model.KindConnected:
		n.Title, n.Color = "New connection", ColorConnected
		n.Fields = append([]model.Field{proto}, where...)
	case model.KindLoggedIn:
		n.Title, n.Color = "Successful login", ColorLoggedIn
		n.Fields = append([]model.Field{field("Username", clean(e.Username), true), proto}, where...)
	case model.KindCommandRun:
		n.Title, n.Color = "Command executed", ColorCommandRun
		n.Fields = []model.Field{field("Command", "`"+clean(e.Command)+"`", false)}
		if e.Username != "" {
			n.Fields = append(n.Fields, field("Username", clean(e.Username), true))
		}
		n.Fields = append(n.Fields, where...)
	case model.KindScanDetected:
		n.Title, n.Color = "Port scan detected", ColorScanDetected
		n.Fields = append([]model.Field{field("Duration", seconds(e.Duration), true), proto}, where...)
	case model.KindSessionEnded:
		n.Title, n.Color = "Session ended", ColorSessionEnded
		n.Fields = append([]model.Field{field("Duration", seconds(e.Duration), true), proto}, where...)
	default:
		n.Title = e.Kind.String()
	}
	n.Title = truncate(n.Title+" from "+e.Addr, maxTitle)
	return n
}

func field(name, value string, inline bool) model.Field {
	if value == "" {
		value = "Unknown"
	}
	return model.Field{Name: name, Value: truncate(value, maxFieldValue), Inline: inline}
}

func seconds(d float64) string {
	return strconv.FormatFloat(d, 'f', 1, 64) + "s"
}

// clean makes attacker-controlled text safe to display: valid UTF-8, NFC
// normalised, control characters replaced.
func clean(s string) string {
	s = norm.NFC.String(strings.ToValidUTF8(s, "�"))
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return ' '
		}
		return r
	}, s)
}

// truncate cuts s to at most maxLen runes, marking the cut with "...".
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}
