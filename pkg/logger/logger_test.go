package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/tradebot/pkg/config"
)

func decodeEntry(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry), "log output: %s", buf.String())
	return entry
}

func TestNew_SetsGlobalLevel(t *testing.T) {
	tests := []struct {
		level string
		want  zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			log := New(&config.Config{Env: "development", LogLevel: tt.level, LogFormat: "json"})
			require.NotNil(t, log)
			assert.Equal(t, tt.want, zerolog.GlobalLevel())
		})
	}
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input string
		want  zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"DEBUG", zerolog.DebugLevel},
		{"warning", zerolog.WarnLevel},
		{"panic", zerolog.PanicLevel},
		{"invalid", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := parseLogLevel(tt.input); got != tt.want {
				t.Errorf("parseLogLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestLoggerFields(t *testing.T) {
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	var buf bytes.Buffer
	log := NewWithWriter(&buf)

	log.WithComponent("engine").
		WithFields(map[string]interface{}{"pipeline": "analysis", "step": "LoadPortfolio"}).
		WithField("run_id", "r-1").
		Info("step completed")

	entry := decodeEntry(t, &buf)
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "step completed", entry["message"])
	assert.Equal(t, "engine", entry["component"])
	assert.Equal(t, "analysis", entry["pipeline"])
	assert.Equal(t, "LoadPortfolio", entry["step"])
	assert.Equal(t, "r-1", entry["run_id"])
}

func TestWithError(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf)

	log.WithError(errors.New("broker unavailable")).Error("order failed")

	entry := decodeEntry(t, &buf)
	assert.Equal(t, "broker unavailable", entry["error"])
	assert.Equal(t, "error", entry["level"])
}

func TestWarn(t *testing.T) {
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	var buf bytes.Buffer
	log := NewWithWriter(&buf)

	log.WithField("ticker", "SBER").Warn("sold a missing holding")

	entry := decodeEntry(t, &buf)
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "SBER", entry["ticker"])
	assert.Equal(t, "sold a missing holding", entry["message"])
}

func TestNop(t *testing.T) {
	log := Nop()
	log.Info("discarded")
	log.WithField("k", "v").Error("discarded")
}
