package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&buf, Options{Level: "warn", Format: "logfmt"})
	require.NoError(t, err)

	logger.Info("hidden")
	logger.Warn("expansion rejected", "pos", "(1,2)")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "expansion rejected")
	assert.Contains(t, out, `pos=(1,2)`)
}

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&buf, Options{Format: "json", Prefix: "server"})
	require.NoError(t, err)

	logger.Info("wave finished", "batches", 3)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "wave finished", entry["msg"])
	assert.EqualValues(t, 3, entry["batches"])
}

func TestNewRejectsBadOptions(t *testing.T) {
	_, err := New(nil, Options{Level: "loud"})
	assert.Error(t, err)
	_, err = New(nil, Options{Format: "xml"})
	assert.Error(t, err)
}
