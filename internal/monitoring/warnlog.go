package monitoring

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// WarningLog is an append-only, human-readable log of per-file and per-frame
// problems. Each entry is one line prefixed with the wall-clock time it was
// written. It is not safe for concurrent use; the scan is single-threaded.
type WarningLog struct {
	w       io.Writer
	now     func() time.Time
	entries int
}

// NewWarningLog wraps w. The writer is expected to be opened in append mode.
func NewWarningLog(w io.Writer) *WarningLog {
	return &WarningLog{w: w, now: time.Now}
}

// Warnf appends one entry. Embedded newlines are flattened so that every
// entry stays on a single line.
func (l *WarningLog) Warnf(format string, v ...interface{}) error {
	msg := fmt.Sprintf(format, v...)
	msg = strings.ReplaceAll(msg, "\n", " ")

	if _, err := fmt.Fprintf(l.w, "%s %s\n", l.now().UTC().Format(time.RFC3339), msg); err != nil {
		return fmt.Errorf("failed to append warning: %w", err)
	}
	l.entries++
	return nil
}

// Entries returns the number of entries written through this log.
func (l *WarningLog) Entries() int {
	return l.entries
}
