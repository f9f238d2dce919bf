package logging

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "info")
	require.NotNil(t, log)

	log.Info().Msg("test message")
	assert.Contains(t, buf.String(), "test message")
}

func TestSub(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "debug")
	sub := log.Sub("mymodule")
	require.NotNil(t, sub)

	sub.Info().Msg("sub message")
	output := buf.String()
	assert.Contains(t, output, "sub message")
	assert.Contains(t, output, "mymodule")
}

func TestLogLevels(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "warn")

	log.Debug().Msg("debug msg")
	log.Info().Msg("info msg")
	assert.Empty(t, buf.String(), "debug and info should be filtered at warn level")

	log.Warn().Msg("warn msg")
	assert.Contains(t, buf.String(), "warn msg")

	buf.Reset()
	log.Error().Msg("error msg")
	assert.Contains(t, buf.String(), "error msg")
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  zerolog.Level
	}{
		{"trace", zerolog.TraceLevel},
		{"debug", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"fatal", zerolog.FatalLevel},
		{"silent", zerolog.Disabled},
		{"", zerolog.InfoLevel},
		{"unknown", zerolog.InfoLevel},
		{"DEBUG", zerolog.DebugLevel},
		{"Warn", zerolog.WarnLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLevel(tt.input))
		})
	}
}

func TestSilentLevel(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "silent")

	log.Debug().Msg("should not appear")
	log.Info().Msg("should not appear")
	log.Warn().Msg("should not appear")
	log.Error().Msg("should not appear")

	assert.Empty(t, buf.String())
}

func TestWith(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "info")

	log.Sub("plugins").With("plugin", "ctcp").Info().Msg("loaded")
	output := buf.String()
	assert.Contains(t, output, "plugins")
	assert.Contains(t, output, "ctcp")
}

func TestNewConsole(t *testing.T) {
	require.NotNil(t, NewConsole("info", "json"))
	require.NotNil(t, NewConsole("debug", "pretty"))
}

func TestTrace(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, "debug").Trace().Msg("hidden")
	assert.Empty(t, buf.String())

	New(&buf, "trace").Trace().Msg("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestWriter(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "debug").Sub("irc")

	w := log.Writer("debug")
	n, err := w.Write([]byte("PING :server\r\nPONG :server\n\n"))
	require.NoError(t, err)
	assert.Equal(t, 28, n)

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)
	assert.Contains(t, string(lines[0]), `"message":"PING :server"`)
	assert.Contains(t, string(lines[0]), `"level":"debug"`)
	assert.Contains(t, string(lines[1]), `"message":"PONG :server"`)

	buf.Reset()
	_, _ = log.Writer("trace").Write([]byte("filtered\n"))
	assert.Empty(t, buf.String())
}
