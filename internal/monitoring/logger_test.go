package monitoring

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetLogger_CapturesScanOutput(t *testing.T) {
	original := Logf
	defer func() { Logf = original }()

	var lines []string
	SetLogger(func(format string, v ...interface{}) {
		lines = append(lines, fmt.Sprintf(format, v...))
	})
	Logf("sequence %d: %s skipped", 4, "camera1")

	assert.Equal(t, []string{"sequence 4: camera1 skipped"}, lines)
}

func TestSetLogger_NilMutes(t *testing.T) {
	original := Logf
	defer func() { Logf = original }()

	called := false
	SetLogger(func(string, ...interface{}) { called = true })
	SetLogger(nil)

	assert.NotPanics(t, func() { Logf("progress %.1f%%", 12.5) })
	assert.False(t, called, "muted logger must not reach the previous one")
}

func TestLogf_Default(t *testing.T) {
	assert.NotNil(t, Logf)
	assert.NotPanics(t, func() { Logf("test message: %s", "value") })
}
