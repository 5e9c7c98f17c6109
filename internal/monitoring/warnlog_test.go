package monitoring

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWarningLog_Warnf(t *testing.T) {
	var buf bytes.Buffer
	wl := NewWarningLog(&buf)
	wl.now = func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) }

	require.NoError(t, wl.Warnf("seq=%d stream=%s almost black", 3, "sonar"))
	require.NoError(t, wl.Warnf("multi\nline"))

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "2024-03-01T12:00:00Z seq=3 stream=sonar almost black", lines[0])
	assert.Equal(t, "2024-03-01T12:00:00Z multi line", lines[1])
	assert.Equal(t, 2, wl.Entries())
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, assert.AnError }

func TestWarningLog_WriteError(t *testing.T) {
	wl := NewWarningLog(failingWriter{})
	err := wl.Warnf("x")
	assert.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, 0, wl.Entries())
}
