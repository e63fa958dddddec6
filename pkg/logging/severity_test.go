package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSeverity(t *testing.T) {
	t.Run("RoundTrip", func(t *testing.T) {
		for _, s := range []Severity{DEBUG, INFO, WARN, ERROR, FATAL} {
			assert.Equal(t, s, ParseSeverity(s.String()))
		}
	})

	t.Run("Ordering", func(t *testing.T) {
		assert.True(t, DEBUG < INFO)
		assert.True(t, INFO < WARN)
		assert.True(t, WARN < ERROR)
		assert.True(t, ERROR < FATAL)
	})

	t.Run("UnknownString", func(t *testing.T) {
		assert.Equal(t, "UNKNOWN", Severity(42).String())
	})
}

func TestParseSeverityFallback(t *testing.T) {
	// Config validation only admits the uppercase names, so anything else
	// lands on the default level.
	tests := []struct {
		input string
		want  Severity
	}{
		{"", INFO},
		{"unknown", INFO},
		{"debug", INFO},
		{"ERROR", ERROR},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseSeverity(tt.input), "input %q", tt.input)
	}
}
