package logging_test

import (
	"bytes"
	"testing"

	"github.com/phuslu/log"
	"github.com/stretchr/testify/assert"

	"github.com/illumos/go-kstat/internal/logging"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want log.Level
	}{
		{"trace", log.TraceLevel},
		{"debug", log.DebugLevel},
		{"DEBUG", log.DebugLevel},
		{"info", log.InfoLevel},
		{"warn", log.WarnLevel},
		{"warning", log.WarnLevel},
		{" error ", log.ErrorLevel},
		{"fatal", log.FatalLevel},
		{"", log.InfoLevel},
		{"verbose", log.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, logging.ParseLevel(tt.in))
		})
	}
}

func TestNewFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.New(&buf, "warn", logging.FormatJSON, "kstat")

	logger.Info("chain rebuilt")
	assert.Empty(t, buf.String())

	logger.Warn("kstat read failed", "kstat", "acpi:0:acpi")
	out := buf.String()
	assert.Contains(t, out, "kstat read failed")
	assert.Contains(t, out, "acpi:0:acpi")
	assert.Contains(t, out, "module")
}

func TestNewAutoIsJSONWhenNotATerminal(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.New(&buf, "debug", logging.FormatAuto, "kstat")
	logger.Debug("hello")
	assert.Contains(t, buf.String(), `"hello"`)
	assert.Contains(t, buf.String(), "{")
}

func TestNewLogfmt(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.New(&buf, "info", logging.FormatLogfmt, "kstat")
	logger.Info("serving", "addr", ":3000")
	assert.Contains(t, buf.String(), "serving")
	assert.Contains(t, buf.String(), ":3000")
}
