package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLogLevelString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "DEBUG", DEBUG.String())
	assert.Equal(t, "INFO", INFO.String())
	assert.Equal(t, "WARN", WARN.String())
	assert.Equal(t, "ERROR", ERROR.String())
	assert.Equal(t, "UNKNOWN", LogLevel(42).String())
}

func TestGetLogLevel(t *testing.T) {
	tests := []struct {
		value string
		want  LogLevel
	}{
		{"DEBUG", DEBUG},
		{"debug", DEBUG},
		{"INFO", INFO},
		{"WARN", WARN},
		{"ERROR", ERROR},
		{"", INFO},
		{"bogus", INFO},
	}

	for _, tt := range tests {
		t.Run("Level_"+tt.value, func(t *testing.T) {
			t.Setenv("APPFORGE_LOG_LEVEL", tt.value)
			assert.Equal(t, tt.want, getLogLevel())
		})
	}
}

func TestIsDebugEnabled(t *testing.T) {
	t.Setenv("APPFORGE_LOG_LEVEL", "DEBUG")
	assert.True(t, NewLogger("test").IsDebugEnabled())

	t.Setenv("APPFORGE_LOG_LEVEL", "WARN")
	assert.False(t, NewLogger("test").IsDebugEnabled())
}
