package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/janhq/chat-api/internal/config"
)

func TestJSONLoggerCarriesServiceName(t *testing.T) {
	var buf bytes.Buffer
	log := newWithWriter(&config.Config{ServiceName: "chat-api", LogLevel: "debug", LogFormat: "json"}, &buf)

	log.Info().Str("chat_id", "abc").Msg("chat created")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "chat-api", entry["service"])
	assert.Equal(t, "abc", entry["chat_id"])
	assert.Equal(t, "chat created", entry["message"])
}

func TestUnknownLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	log := newWithWriter(&config.Config{LogLevel: "loud", LogFormat: "json"}, &buf)

	assert.Equal(t, zerolog.InfoLevel, log.GetLevel())
	log.Debug().Msg("hidden")
	assert.Zero(t, buf.Len())
}
