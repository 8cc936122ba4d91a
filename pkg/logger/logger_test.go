package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithWriter_StructuredJSON(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("info", &buf)

	log.Info().Str("wallet_id", "abc").Msg("deposit settled")

	var output map[string]interface{}
	err := json.Unmarshal(buf.Bytes(), &output)
	require.NoError(t, err, "logger output should be valid JSON")

	assert.Equal(t, "deposit settled", output["message"])
	assert.Equal(t, "abc", output["wallet_id"])
	assert.Equal(t, "info", output["level"])
	assert.Contains(t, output, "time", "should include timestamp")
}

func TestNewWithWriter_DebugLevel(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("debug", &buf)

	log.Debug().Msg("debug msg")
	assert.NotEmpty(t, buf.String(), "debug messages should be logged at debug level")
}

func TestNewWithWriter_InfoLevel_FiltersDebug(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("info", &buf)

	log.Debug().Msg("should not appear")
	assert.Empty(t, buf.String(), "debug messages should be filtered at info level")
}

func TestNewWithWriter_WarnLevel(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("warn", &buf)

	log.Info().Msg("should not appear")
	assert.Empty(t, buf.String())

	log.Warn().Msg("warned")
	assert.NotEmpty(t, buf.String())
}

func TestParseLevel_UnknownDefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("verbose", &buf)

	log.Debug().Msg("should not appear")
	assert.Empty(t, buf.String())

	log.Info().Msg("appears")
	assert.NotEmpty(t, buf.String())
}
