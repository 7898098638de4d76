package log

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestModuleGating(t *testing.T) {
	var buf bytes.Buffer
	SetDefault(NewLogger(NewTerminalHandlerWithLevel(&buf, slog.LevelDebug, false)))
	defer SetDefault(NewLogger(DiscardHandler()))

	EnableModule(PcodeMonitoring)
	Debug(PcodeMonitoring, "enabled message", "k", 1)
	DisableModule(PcodeMonitoring)
	Debug(PcodeMonitoring, "disabled message", "k", 2)

	out := buf.String()
	assert.True(t, strings.Contains(out, "enabled message"))
	assert.False(t, strings.Contains(out, "disabled message"))
}

func TestParseLevel(t *testing.T) {
	lvl, err := ParseLevel("trace")
	assert.NoError(t, err)
	assert.Equal(t, LevelTrace, lvl)

	_, err = ParseLevel("bogus")
	assert.Error(t, err)
}
