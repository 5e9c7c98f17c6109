package dataset

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// TimestampSeries holds one Unix timestamp (seconds) per decodable frame of
// a stream; frame k was captured at series[k].
type TimestampSeries []float64

// Start returns the first timestamp, or 0 for an empty series.
func (s TimestampSeries) Start() float64 {
	if len(s) == 0 {
		return 0
	}
	return s[0]
}

// End returns the last timestamp, or 0 for an empty series.
func (s TimestampSeries) End() float64 {
	if len(s) == 0 {
		return 0
	}
	return s[len(s)-1]
}

// Duration returns End - Start.
func (s TimestampSeries) Duration() float64 {
	return s.End() - s.Start()
}

// Validate reports the first non-finite value or the first position at which
// the series decreases.
func (s TimestampSeries) Validate() error {
	for i, v := range s {
		if !isFinite(v) {
			return fmt.Errorf("timestamp %d is not a finite number: %v", i+1, v)
		}
	}
	for i := 1; i < len(s); i++ {
		if s[i] < s[i-1] {
			return fmt.Errorf("timestamp %d (%.6f) is earlier than timestamp %d (%.6f)", i+1, s[i], i, s[i-1])
		}
	}
	return nil
}

// ParseTimestamps reads one float per line. Blank lines are skipped; any
// other unparsable line, NaN or infinity yields a *FormatError carrying its
// 1-based line number.
func ParseTimestamps(r io.Reader, source string) (TimestampSeries, error) {
	var out TimestampSeries
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		v, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return nil, &FormatError{Source: source, Line: line, Err: err}
		}
		if !isFinite(v) {
			return nil, &FormatError{Source: source, Line: line, Err: fmt.Errorf("timestamp %q is not a finite number", text)}
		}
		out = append(out, v)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", source, err)
	}
	return out, nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
