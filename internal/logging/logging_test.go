package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitJSON(t *testing.T) {
	prev := log.Logger
	t.Cleanup(func() {
		log.Logger = prev
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	})

	var buf bytes.Buffer
	initTo(&buf, false)
	assert.False(t, DebugEnabled())

	log.Debug().Msg("hidden")
	log.Info().Str("user_id", "5511").Msg("turn")

	var line map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line))
	assert.Equal(t, "turn", line["message"])
	assert.Equal(t, "5511", line["user_id"])
	assert.Contains(t, line, "time")
}

func TestTimed(t *testing.T) {
	prev := log.Logger
	t.Cleanup(func() {
		log.Logger = prev
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	})

	var buf bytes.Buffer
	initTo(&buf, true)
	assert.True(t, DebugEnabled())

	Timed("sheets.list_open")()
	assert.Contains(t, buf.String(), "sheets.list_open")
	assert.Contains(t, buf.String(), "ms")
}
