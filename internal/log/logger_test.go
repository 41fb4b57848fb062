package log

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/go-kit/log/level"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger_Levels(t *testing.T) {
	tests := []struct {
		name           string
		configLogLevel int
		wantDebug      bool
		wantInfo       bool
		wantWarn       bool
		wantError      bool
	}{
		{name: "none", configLogLevel: LogLevelNone},
		{name: "error", configLogLevel: LogLevelError, wantError: true},
		{name: "warn", configLogLevel: LogLevelWarn, wantWarn: true, wantError: true},
		{name: "info", configLogLevel: LogLevelInfo, wantInfo: true, wantWarn: true, wantError: true},
		{name: "debug", configLogLevel: LogLevelDebug, wantDebug: true, wantInfo: true, wantWarn: true, wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			logger := NewLogger(buf, tt.configLogLevel, false, false, "test")

			level.Debug(logger).Log("msg", "debug-line")
			level.Info(logger).Log("msg", "info-line")
			level.Warn(logger).Log("msg", "warn-line")
			level.Error(logger).Log("msg", "error-line")

			out := buf.String()
			assert.Equal(t, tt.wantDebug, strings.Contains(out, "debug-line"))
			assert.Equal(t, tt.wantInfo, strings.Contains(out, "info-line"))
			assert.Equal(t, tt.wantWarn, strings.Contains(out, "warn-line"))
			assert.Equal(t, tt.wantError, strings.Contains(out, "error-line"))
		})
	}
}

func TestNewLogger_JSONCarriesInstance(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := NewLogger(buf, LogLevelInfo, true, false, "unit")

	level.Info(logger).Log("msg", "hello")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "hello", line["msg"])
	assert.Equal(t, "unit", line[LogKeyInstance])
	assert.Equal(t, "info", line["level"])
	assert.Contains(t, line, "ts")
	assert.Contains(t, line, "caller")
}

func TestNewLogger_Color(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := NewLogger(buf, LogLevelDebug, false, true, "color")

	level.Warn(logger).Log("msg", "colored")
	assert.Contains(t, buf.String(), "colored")
}

func TestParseLevel(t *testing.T) {
	tests := map[string]int{
		"":        LogLevelInfo,
		"info":    LogLevelInfo,
		"DEBUG":   LogLevelDebug,
		"warning": LogLevelWarn,
		"error":   LogLevelError,
		"none":    LogLevelNone,
	}

	for name, want := range tests {
		got, err := ParseLevel(name)
		assert.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}

	_, err := ParseLevel("verbose")
	assert.Error(t, err)
}

func TestUseColor_ExplicitModes(t *testing.T) {
	assert.True(t, UseColor("always"))
	assert.False(t, UseColor("never"))
}
