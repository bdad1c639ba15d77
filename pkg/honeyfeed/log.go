package honeyfeed

import "time"

// Log is a raw log entry with its receive time. Use with ClassifyLog when
// the line came from somewhere other than a live read.
type Log struct {
	Text      string    // the cowrie log line
	Timestamp time.Time // when it was read (zero = time.Now())
	Source    string    // origin name (optional)
}
