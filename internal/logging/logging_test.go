package logging_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/askiada/go-relay/internal/logging"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		level    string
		expected zapcore.Level
	}{
		"debug":   {level: "debug", expected: zapcore.DebugLevel},
		"upper":   {level: "WARN", expected: zapcore.WarnLevel},
		"warning": {level: "warning", expected: zapcore.WarnLevel},
		"error":   {level: "error", expected: zapcore.ErrorLevel},
		"empty":   {level: "", expected: zapcore.InfoLevel},
		"unknown": {level: "verbose", expected: zapcore.InfoLevel},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.expected, logging.ParseLevel(tc.level))
		})
	}
}

func TestNew(t *testing.T) {
	t.Parallel()

	for _, format := range []string{"json", "console", ""} {
		logger, err := logging.New("debug", format)
		require.NoError(t, err)
		assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))
	}
}
