package log

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithComponent(t *testing.T) {
	var buf bytes.Buffer
	Configure(Config{Output: &buf, Level: "debug", Service: "test"})
	t.Cleanup(func() { Configure(Config{}) })

	logger := WithComponent("registry")
	logger.Info().Str(FieldLevel, "test").Msg("registered")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "registry", entry[FieldComponent])
	assert.Equal(t, "test", entry[FieldService])
	assert.Equal(t, "test", entry[FieldLevel])
	assert.Equal(t, "registered", entry["message"])
}

func TestConfigureLevel(t *testing.T) {
	var buf bytes.Buffer
	Configure(Config{Output: &buf, Level: "warn"})
	t.Cleanup(func() { Configure(Config{}) })

	logger := WithComponent("x")
	logger.Info().Msg("hidden")
	assert.Zero(t, buf.Len())

	logger.Warn().Msg("shown")
	assert.NotZero(t, buf.Len())
}

func TestConfigureInvalidLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	Configure(Config{Output: &buf, Level: "loud"})
	t.Cleanup(func() { Configure(Config{}) })

	logger := WithComponent("x")
	logger.Debug().Msg("hidden")
	assert.Zero(t, buf.Len())
	logger.Info().Msg("shown")
	assert.NotZero(t, buf.Len())
}

func TestBaseCarriesService(t *testing.T) {
	var buf bytes.Buffer
	Configure(Config{Output: &buf})
	t.Cleanup(func() { Configure(Config{}) })

	logger := Base()
	logger.Warn().Msg("failed to load .env file")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "mazed", entry[FieldService])
	assert.Equal(t, "warn", entry["level"])
	assert.Nil(t, entry[FieldComponent])
}
