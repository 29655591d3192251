package instrument

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
	"go.uber.org/zap"

	"github.com/itohio/gocapmeter/pkg/config"
)

// ErrNotOpen is returned by I/O on a closed device.
var ErrNotOpen = errors.New("not connected")

// Port represents a serial port.
type Port struct {
	Name        string
	Description string
}

// Serial represents a connection to the capacitance meter.
type Serial struct {
	cfg config.SerialConfig
	log *zap.Logger

	mu    sync.RWMutex
	conn  serial.Port
	lines *lineReader
	open  bool
}

// New creates a serial device for the configured port. It is not opened yet.
func New(cfg config.SerialConfig, log *zap.Logger) *Serial {
	if log == nil {
		log = zap.NewNop()
	}
	return &Serial{
		cfg: cfg,
		log: log,
	}
}

// Ports returns a list of available serial ports.
func Ports() ([]Port, error) {
	details, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to list serial ports: %w", err)
	}

	result := make([]Port, 0, len(details))
	for _, d := range details {
		desc := d.Name
		if d.IsUSB {
			parts := []string{fmt.Sprintf("USB %s:%s", d.VID, d.PID)}
			if d.Product != "" {
				parts = append(parts, d.Product)
			}
			if d.SerialNumber != "" {
				parts = append(parts, "s/n "+d.SerialNumber)
			}
			desc = strings.Join(parts, " ")
		}
		result = append(result, Port{Name: d.Name, Description: desc})
	}
	return result, nil
}

// modeFromConfig translates the port settings into a go.bug.st/serial mode.
func modeFromConfig(cfg config.SerialConfig) (*serial.Mode, error) {
	mode := &serial.Mode{
		BaudRate: cfg.BaudRate,
		DataBits: cfg.DataBits,
	}

	switch cfg.Parity {
	case "", "none":
		mode.Parity = serial.NoParity
	case "odd":
		mode.Parity = serial.OddParity
	case "even":
		mode.Parity = serial.EvenParity
	case "mark":
		mode.Parity = serial.MarkParity
	case "space":
		mode.Parity = serial.SpaceParity
	default:
		return nil, fmt.Errorf("unsupported parity %q", cfg.Parity)
	}

	switch cfg.StopBits {
	case 0, 1:
		mode.StopBits = serial.OneStopBit
	case 1.5:
		mode.StopBits = serial.OnePointFiveStopBits
	case 2:
		mode.StopBits = serial.TwoStopBits
	default:
		return nil, fmt.Errorf("unsupported stop bits %v", cfg.StopBits)
	}

	return mode, nil
}

// Open opens the serial port with the configured mode and read timeout.
func (d *Serial) Open() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.open {
		return fmt.Errorf("already connected")
	}

	mode, err := modeFromConfig(d.cfg)
	if err != nil {
		return err
	}

	port, err := serial.Open(d.cfg.Port, mode)
	if err != nil {
		return fmt.Errorf("failed to open serial port %s: %w", d.cfg.Port, err)
	}

	if err := port.SetReadTimeout(d.cfg.ReadTimeout); err != nil {
		port.Close()
		return fmt.Errorf("failed to set read timeout on %s: %w", d.cfg.Port, err)
	}

	d.conn = port
	d.lines = newLineReader(port, d.cfg.ReadTimeout)
	d.open = true

	d.log.Info("[serial] port opened",
		zap.String("port", d.cfg.Port),
		zap.Int("baudRate", mode.BaudRate),
		zap.Int("dataBits", mode.DataBits),
		zap.String("parity", d.cfg.Parity),
		zap.Float64("stopBits", d.cfg.StopBits),
		zap.Duration("readTimeout", d.cfg.ReadTimeout),
	)
	return nil
}

// Close closes the port. Closing an already closed device is a no-op.
func (d *Serial) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.open {
		return nil
	}

	d.open = false
	err := d.conn.Close()
	d.conn = nil
	if err != nil {
		return fmt.Errorf("failed to close serial port %s: %w", d.cfg.Port, err)
	}
	d.log.Info("[serial] port closed", zap.String("port", d.cfg.Port))
	return nil
}

// IsOpen returns whether the port is currently open.
func (d *Serial) IsOpen() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.open
}

// ReadLine reads one line, waiting at most the configured read timeout.
// The lock is not held while blocked so that Close can interrupt the read.
func (d *Serial) ReadLine() ([]byte, error) {
	d.mu.RLock()
	lines := d.lines
	open := d.open
	d.mu.RUnlock()

	if !open {
		return nil, ErrNotOpen
	}

	line, err := lines.ReadLine()
	if err != nil {
		return nil, fmt.Errorf("failed to read from %s: %w", d.cfg.Port, err)
	}
	return line, nil
}

// Send writes p and waits until the output buffer has been transmitted.
func (d *Serial) Send(p []byte) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if !d.open {
		return ErrNotOpen
	}

	if _, err := d.conn.Write(p); err != nil {
		return fmt.Errorf("failed to write to %s: %w", d.cfg.Port, err)
	}
	if err := d.conn.Drain(); err != nil {
		return fmt.Errorf("failed to flush %s: %w", d.cfg.Port, err)
	}

	d.log.Debug("[serial] sent", zap.String("port", d.cfg.Port), zap.ByteString("payload", p))
	return nil
}
