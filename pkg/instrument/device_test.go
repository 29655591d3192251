package instrument

import (
	"os"
	"testing"
	"time"

	"github.com/creack/pty"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.bug.st/serial"

	"github.com/itohio/gocapmeter/pkg/config"
)

func TestNew(t *testing.T) {
	cfg := config.Default().Serial
	dev := New(cfg, nil)
	assert.NotNil(t, dev)
	assert.NotNil(t, dev.log)
	assert.Equal(t, cfg, dev.cfg)
	assert.False(t, dev.IsOpen())
}

func TestSerial_NotOpen(t *testing.T) {
	dev := New(config.Default().Serial, nil)

	_, err := dev.ReadLine()
	assert.ErrorIs(t, err, ErrNotOpen)
	assert.ErrorIs(t, dev.Send([]byte("x")), ErrNotOpen)
	assert.NoError(t, dev.Close())
}

func TestModeFromConfig(t *testing.T) {
	tests := []struct {
		name    string
		parity  string
		stop    float64
		want    serial.Mode
		wantErr bool
	}{
		{"meter defaults", "none", 2, serial.Mode{BaudRate: 115200, DataBits: 8, Parity: serial.NoParity, StopBits: serial.TwoStopBits}, false},
		{"odd one", "odd", 1, serial.Mode{BaudRate: 115200, DataBits: 8, Parity: serial.OddParity, StopBits: serial.OneStopBit}, false},
		{"even one and a half", "even", 1.5, serial.Mode{BaudRate: 115200, DataBits: 8, Parity: serial.EvenParity, StopBits: serial.OnePointFiveStopBits}, false},
		{"mark", "mark", 1, serial.Mode{BaudRate: 115200, DataBits: 8, Parity: serial.MarkParity, StopBits: serial.OneStopBit}, false},
		{"space", "space", 1, serial.Mode{BaudRate: 115200, DataBits: 8, Parity: serial.SpaceParity, StopBits: serial.OneStopBit}, false},
		{"bad parity", "weird", 1, serial.Mode{}, true},
		{"bad stop bits", "none", 3, serial.Mode{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default().Serial
			cfg.Parity = tt.parity
			cfg.StopBits = tt.stop

			mode, err := modeFromConfig(cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, *mode)
		})
	}
}

// openPTY opens the slave side of a pseudo terminal as a serial device.
func openPTY(t *testing.T) (*os.File, *Serial) {
	t.Helper()

	master, slave, err := pty.Open()
	if err != nil {
		t.Skipf("pty not available: %v", err)
	}
	t.Cleanup(func() { master.Close(); slave.Close() })

	cfg := config.Default().Serial
	cfg.Port = slave.Name()
	cfg.ReadTimeout = 200 * time.Millisecond

	dev := New(cfg, nil)
	if err := dev.Open(); err != nil {
		t.Skipf("serial driver cannot open %s: %v", slave.Name(), err)
	}
	t.Cleanup(func() { dev.Close() })

	return master, dev
}

func TestSerial_ReadLineOverPTY(t *testing.T) {
	master, dev := openPTY(t)
	assert.True(t, dev.IsOpen())

	_, err := master.Write([]byte("2.5,1,2,3\r\nEnter the Error percentage:\r\n"))
	require.NoError(t, err)

	line, err := dev.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "2.5,1,2,3\r\n", string(line))

	line, err = dev.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "Enter the Error percentage:\r\n", string(line))

	// Nothing pending: returns empty after the read timeout.
	start := time.Now()
	line, err = dev.ReadLine()
	require.NoError(t, err)
	assert.Empty(t, line)
	assert.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond)
}

func TestSerial_SendOverPTY(t *testing.T) {
	master, dev := openPTY(t)

	received := make(chan string, 1)
	go func() {
		buf := make([]byte, 64)
		n, _ := master.Read(buf)
		received <- string(buf[:n])
	}()

	require.NoError(t, dev.Send([]byte("5\r\n")))

	select {
	case msg := <-received:
		assert.Equal(t, "5\r\n", msg)
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for master to receive")
	}
}

func TestSerial_DoubleOpenAndClose(t *testing.T) {
	_, dev := openPTY(t)

	err := dev.Open()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already connected")

	require.NoError(t, dev.Close())
	assert.False(t, dev.IsOpen())
	require.NoError(t, dev.Close())
}
