package logger_test

import (
	"testing"

	"github.com/sgaunet/ci-bridge/internal/logger"
	"github.com/stretchr/testify/assert"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name     string
		logLevel string
	}{
		{name: "debug level", logLevel: "debug"},
		{name: "info level", logLevel: "info"},
		{name: "warn level", logLevel: "warn"},
		{name: "error level", logLevel: "error"},
		{name: "unknown level defaults to info", logLevel: "verbose"},
		{name: "empty level defaults to info", logLevel: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log := logger.NewLogger(tt.logLevel)
			assert.NotNil(t, log)
		})
	}
}

func TestNoLogger(t *testing.T) {
	log := logger.NoLogger()
	assert.NotNil(t, log)
	// Must not panic when used.
	log.Debug("suppressed")
	log.Info("suppressed")
}
