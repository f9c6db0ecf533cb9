package logging

import (
	"bytes"
	"testing"

	"github.com/pterm/pterm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]pterm.LogLevel{
		"":        pterm.LogLevelInfo,
		"trace":   pterm.LogLevelTrace,
		"DEBUG":   pterm.LogLevelDebug,
		"warning": pterm.LogLevelWarn,
		"error":   pterm.LogLevelError,
		"off":     pterm.LogLevelDisabled,
	}
	for input, want := range cases {
		got, err := ParseLevel(input)
		require.NoError(t, err, input)
		assert.Equal(t, want, got, input)
	}

	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestLogger_JSONOutputCarriesKeyValues(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: "debug", Format: "json", Writer: &buf})

	logger.Warn("skipping file", "path", "/src/a.php")

	out := buf.String()
	assert.Contains(t, out, "skipping file")
	assert.Contains(t, out, "/src/a.php")
}

func TestLogger_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: "warn", Format: "json", Writer: &buf})

	logger.Info("hidden")
	logger.Debug("hidden too")
	assert.Empty(t, buf.String())

	logger.Error("visible")
	assert.Contains(t, buf.String(), "visible")
}

func TestOrDefault(t *testing.T) {
	assert.NotNil(t, OrDefault(nil))
	l := Discard()
	assert.Same(t, l, OrDefault(l))
}
