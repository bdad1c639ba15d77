package output

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crimson-sun/honeyfeed/internal/model"
)

var oslo = model.GeoRecord{City: "Oslo", Country: "Norway", Org: "AS0 Example"}

func baseEvent(kind model.Kind) model.Event {
	return model.Event{
		Kind:  kind,
		Addr:  "203.0.113.9",
		Proto: "SSH",
		Time:  time.Date(2024, 1, 1, 0, 0, 1, 0, time.UTC),
		Geo:   oslo,
	}
}

func TestFormatSummary(t *testing.T) {
	login := baseEvent(model.KindLoggedIn)
	login.Username = "root"
	cmd := baseEvent(model.KindCommandRun)
	cmd.Command = "wget http://x/y"
	scan := baseEvent(model.KindScanDetected)
	scan.Duration = 0.4
	ended := baseEvent(model.KindSessionEnded)
	ended.Duration = 45.2

	tests := []struct {
		event model.Event
		want  string
	}{
		{baseEvent(model.KindConnected), "203.0.113.9 connected via SSH"},
		{login, "203.0.113.9 logged in as root via SSH"},
		{cmd, "203.0.113.9 ran: wget http://x/y"},
		{scan, "203.0.113.9 is scanning ports (connection lasted 0.4s)"},
		{ended, "203.0.113.9 disconnected after 45.2s"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatSummary(tt.event))
	}
}

func TestFormatNotification_Connected(t *testing.T) {
	n := FormatNotification(baseEvent(model.KindConnected))

	assert.Equal(t, "New connection from 203.0.113.9", n.Title)
	assert.Equal(t, ColorConnected, n.Color)
	assert.Equal(t, "203.0.113.9 connected via SSH", n.Description)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 1, 0, time.UTC), n.Timestamp)
	require.Len(t, n.Fields, 3)
	assert.Equal(t, model.Field{Name: "Protocol", Value: "SSH", Inline: true}, n.Fields[0])
	assert.Equal(t, model.Field{Name: "Location", Value: "Oslo, Norway", Inline: true}, n.Fields[1])
	assert.Equal(t, model.Field{Name: "Org/ISP", Value: "AS0 Example", Inline: true}, n.Fields[2])
}

func TestFormatNotification_FieldsPerKind(t *testing.T) {
	names := func(n model.Notification) []string {
		var out []string
		for _, f := range n.Fields {
			out = append(out, f.Name)
		}
		return out
	}

	login := baseEvent(model.KindLoggedIn)
	login.Username = "root"
	assert.Equal(t, []string{"Username", "Protocol", "Location", "Org/ISP"}, names(FormatNotification(login)))

	cmd := baseEvent(model.KindCommandRun)
	cmd.Command = "id"
	assert.Equal(t, []string{"Command", "Location", "Org/ISP"}, names(FormatNotification(cmd)))
	cmd.Username = "root"
	assert.Equal(t, []string{"Command", "Username", "Location", "Org/ISP"}, names(FormatNotification(cmd)))

	scan := baseEvent(model.KindScanDetected)
	scan.Duration = 0.4
	n := FormatNotification(scan)
	assert.Equal(t, ColorScanDetected, n.Color)
	assert.Equal(t, "0.4s", n.Fields[0].Value)

	ended := baseEvent(model.KindSessionEnded)
	assert.Equal(t, ColorSessionEnded, FormatNotification(ended).Color)
}

func TestFormatNotification_UnknownGeo(t *testing.T) {
	e := baseEvent(model.KindConnected)
	e.Geo = model.UnknownGeo

	n := FormatNotification(e)
	assert.Equal(t, "Unknown, Unknown", n.Fields[1].Value)
	assert.Equal(t, "Unknown", n.Fields[2].Value)
}

func TestFormatNotification_TruncatesLongCommand(t *testing.T) {
	e := baseEvent(model.KindCommandRun)
	e.Command = strings.Repeat("A", 5000)

	n := FormatNotification(e)
	assert.LessOrEqual(t, len([]rune(n.Fields[0].Value)), maxFieldValue)
	assert.True(t, strings.HasSuffix(n.Fields[0].Value, "..."))
	assert.LessOrEqual(t, len([]rune(n.Description)), maxDescription)
}

func TestClean(t *testing.T) {
	assert.Equal(t, "echo a b", clean("echo a\x1bb"))
	assert.Equal(t, "caf\u00e9", clean("cafe\u0301"), "NFC normalised")
	assert.Equal(t, "a�b", clean("a\xffb"))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
	assert.Equal(t, "ééééééé...", truncate(strings.Repeat("é", 20), 10), "counts runes, not bytes")
}
