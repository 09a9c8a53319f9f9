package port

import "time"

type Sink interface {
	// Live line: overwrite last line (no newline)
	WriteLive(line string) error
	// Snapshot line: append a timestamped line, then leave an empty line for live updates
	WriteSnapshot(ts time.Time, line string) error
	// Event line: a trade or exit, printed above the live line
	WriteEvent(ts time.Time, line string) error
	// Normal newline (for logs)
	NewLine() error
}
