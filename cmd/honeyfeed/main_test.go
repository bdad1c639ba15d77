package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleLog = `2024-01-01T00:00:01+0000 [cowrie.ssh.factory.CowrieSSHFactory] New connection: 203.0.113.9:41234 (10.0.0.5:2222) [session: a1]
2024-01-01T00:00:01+0000 [HoneyPotSSHTransport,5,203.0.113.9] New connection: 203.0.113.9:41234 (10.0.0.5:2222) [session: a1]
2024-01-01T00:00:03+0000 [HoneyPotSSHTransport,5,203.0.113.9] login attempt [b'root'/b'toor'] succeeded
2024-01-01T00:00:04+0000 [HoneyPotSSHTransport,5,203.0.113.9] CMD: wget http://x/y
2024-01-01T00:00:09+0000 [HoneyPotSSHTransport,5,203.0.113.9] Connection lost after 45.2 seconds
2024-01-01T00:00:10+0000 [HoneyPotSSHTransport,6,198.51.100.7] Connection lost after 0.4 seconds
`

func writeSample(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cowrie.log")
	require.NoError(t, os.WriteFile(path, []byte(sampleLog), 0o644))
	return path
}

func runApp(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	app := App()
	app.Writer = &buf
	app.ErrWriter = &buf
	err := app.Run(append([]string{"honeyfeed", "--log-level", "error"}, args...))
	return buf.String(), err
}

func TestReplayText(t *testing.T) {
	out, err := runApp(t, "replay", writeSample(t))
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 5)
	assert.Contains(t, lines[0], "203.0.113.9 connected via SSH")
	assert.Contains(t, lines[1], "203.0.113.9 logged in as root via SSH")
	assert.Contains(t, lines[2], "203.0.113.9 ran: wget http://x/y")
	assert.Contains(t, lines[3], "203.0.113.9 disconnected after 45.2s")
	assert.Contains(t, lines[4], "198.51.100.7 is scanning ports (connection lasted 0.4s)")
}

func TestReplayJSON(t *testing.T) {
	out, err := runApp(t, "replay", "--json", "--limit", "3", writeSample(t))
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2, "the first of three lines has no address triple")

	var ev map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &ev))
	assert.Equal(t, "logged_in", ev["kind"])
	assert.Equal(t, "root", ev["username"])
	assert.Equal(t, "Unknown", ev["geo"].(map[string]any)["city"], "geo is off for replays by default")
}

func TestReplayArgs(t *testing.T) {
	_, err := runApp(t, "replay")
	assert.ErrorContains(t, err, "expected exactly one")
}

func TestReplayMissingFile(t *testing.T) {
	_, err := runApp(t, "replay", filepath.Join(t.TempDir(), "missing.log"))
	assert.Error(t, err)
}

func TestRunMissingLogIsFatal(t *testing.T) {
	t.Setenv("HONEYFEED_SOURCE_PATH", filepath.Join(t.TempDir(), "missing.log"))
	t.Setenv("HONEYFEED_SERVER_ADDR", "127.0.0.1:0")

	_, err := runApp(t, "run")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pipeline open")
}
