package instrument

import (
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itohio/gocapmeter/pkg/config"
)

func fastMockConfig(promptEvery int) *config.MockConfig {
	return &config.MockConfig{
		Capacitance:  10.0,
		NoiseLevel:   0.0,
		LineInterval: 5 * time.Millisecond,
		PromptEvery:  promptEvery,
	}
}

// readNonEmpty skips read timeouts until a line arrives.
func readNonEmpty(t *testing.T, m *Mock) string {
	t.Helper()
	for i := 0; i < 50; i++ {
		line, err := m.ReadLine()
		require.NoError(t, err)
		if len(line) > 0 {
			return string(line)
		}
	}
	t.Fatal("no line received from mock")
	return ""
}

func TestNewMock_NilConfig(t *testing.T) {
	dev := NewMock(nil, 0)
	assert.NotNil(t, dev)
	assert.NotNil(t, dev.cfg)
	assert.Equal(t, 10.0, dev.cfg.Capacitance)
	assert.Equal(t, 500*time.Millisecond, dev.cfg.LineInterval)
	assert.Equal(t, DefaultReadTimeout, dev.readTimeout)
	assert.False(t, dev.IsOpen())
}

func TestMock_OpenClose(t *testing.T) {
	dev := NewMock(fastMockConfig(0), 50*time.Millisecond)

	require.NoError(t, dev.Open())
	assert.True(t, dev.IsOpen())

	err := dev.Open()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already connected")

	require.NoError(t, dev.Close())
	assert.False(t, dev.IsOpen())
	require.NoError(t, dev.Close(), "second close is a no-op")

	_, err = dev.ReadLine()
	assert.ErrorIs(t, err, ErrNotOpen)
	assert.ErrorIs(t, dev.Send([]byte("x")), ErrNotOpen)
}

func TestMock_Telemetry(t *testing.T) {
	dev := NewMock(fastMockConfig(0), 100*time.Millisecond)
	require.NoError(t, dev.Open())
	t.Cleanup(func() { dev.Close() })

	first := strings.TrimRight(readNonEmpty(t, dev), "\r\n")
	tokens := strings.Split(first, ",")
	require.Len(t, tokens, 1+HistorySize)
	assert.Equal(t, "10.0000", tokens[0])
	for _, tok := range tokens[1:] {
		assert.Equal(t, "0.0000", tok, "history starts empty")
	}

	second := strings.TrimRight(readNonEmpty(t, dev), "\r\n")
	tokens = strings.Split(second, ",")
	require.Len(t, tokens, 1+HistorySize)
	last, err := strconv.ParseFloat(tokens[HistorySize], 64)
	require.NoError(t, err)
	assert.Equal(t, 10.0, last, "previous reading becomes the newest saved value")
}

func TestMock_PromptHandshake(t *testing.T) {
	dev := NewMock(fastMockConfig(2), 100*time.Millisecond)
	require.NoError(t, dev.Open())
	t.Cleanup(func() { dev.Close() })

	readNonEmpty(t, dev)
	readNonEmpty(t, dev)

	prompt := readNonEmpty(t, dev)
	assert.True(t, strings.HasPrefix(prompt, "Enter the Capacitance"))

	// Telemetry is paused until the prompt is answered.
	line, err := dev.ReadLine()
	require.NoError(t, err)
	assert.Empty(t, line)

	require.NoError(t, dev.Send([]byte("4.7")))
	prompt = readNonEmpty(t, dev)
	assert.True(t, strings.HasPrefix(prompt, "Enter the Error"))

	require.NoError(t, dev.Send([]byte("5\r\n")))
	data := readNonEmpty(t, dev)
	assert.Len(t, strings.Split(strings.TrimSpace(data), ","), 1+HistorySize)

	sent := dev.Sent()
	require.Len(t, sent, 2)
	assert.Equal(t, "4.7", string(sent[0]))
	assert.Equal(t, "5\r\n", string(sent[1]))
}

func TestFormatTelemetry(t *testing.T) {
	assert.Equal(t, "2.5000,1.0000,2.2500", FormatTelemetry(2.5, []float64{1, 2.25}))
	assert.Equal(t, "0.0000", FormatTelemetry(0, nil))
}
