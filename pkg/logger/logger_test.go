package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New(&Config{Level: "loud", Output: "stdout"})
	assert.Error(t, err)
}

func TestFieldsAreWritten(t *testing.T) {
	var buf bytes.Buffer
	log := NewWriter(&buf).With(String("curve", "eur"))

	log.Warn("point skipped",
		Float64("t", 1.5),
		Int("pillars", 3),
		Bool("flat", true),
		Duration("took", 1500*time.Millisecond),
		Strings("methods", []string{"linear", "linear_df"}),
		Error(errors.New("boom")),
	)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "point skipped", entry["message"])
	assert.Equal(t, "eur", entry["curve"])
	assert.Equal(t, 1.5, entry["t"])
	assert.Equal(t, 3.0, entry["pillars"])
	assert.Equal(t, true, entry["flat"])
	assert.Equal(t, 1500.0, entry["took"])
	assert.Equal(t, "linear, linear_df", entry["methods"])
	assert.Equal(t, "boom", entry["error"])
}

func TestNopDiscards(t *testing.T) {
	assert.NotPanics(t, func() {
		Nop().With(String("k", "v")).Error("ignored", Error(errors.New("x")))
	})
}
