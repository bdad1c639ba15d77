package model

import "time"

// RawLog is the intermediate type produced by connectors and consumed by the engine.
type RawLog struct {
	Timestamp time.Time // when the line was read, not when it was written
	Source    string    // connector name (e.g. "file", "stdin")
	Raw       string    // original line without the trailing newline
}
