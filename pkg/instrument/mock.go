package instrument

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/itohio/gocapmeter/pkg/config"
	"github.com/itohio/gocapmeter/pkg/ring"
)

const (
	// HistorySize is the number of saved readings in every telemetry line.
	HistorySize = 30
	// DefaultReadTimeout is used by the mock when no read timeout is given.
	DefaultReadTimeout = time.Second

	capacitancePrompt = "Enter the Capacitance value (nF):"
	errorPrompt       = "Enter the Error percentage:"
)

// Mock simulates the capacitance meter for testing and development.
// It streams telemetry lines and, every PromptEvery lines, asks for a
// capacitance and an error value, pausing telemetry until each is answered.
type Mock struct {
	cfg         *config.MockConfig
	readTimeout time.Duration

	lines    chan []byte
	answered chan struct{}
	mu       sync.RWMutex
	ctx      context.Context
	cancel   context.CancelFunc
	open     bool
	sent     [][]byte

	// Simulation state, owned by the generator goroutine
	startTime time.Time
	count     int
	history   *ring.Buffer[float64]
}

// NewMock creates a new simulated meter.
func NewMock(cfg *config.MockConfig, readTimeout time.Duration) *Mock {
	if cfg == nil {
		cfg = &config.MockConfig{
			Capacitance:  10.0,
			NoiseLevel:   0.05,
			LineInterval: 500 * time.Millisecond,
			PromptEvery:  0,
		}
	}
	if readTimeout <= 0 {
		readTimeout = DefaultReadTimeout
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Mock{
		cfg:         cfg,
		readTimeout: readTimeout,
		lines:       make(chan []byte, 16),
		answered:    make(chan struct{}, 1),
		ctx:         ctx,
		cancel:      cancel,
		history:     ring.New[float64](HistorySize),
	}
}

// Open starts the simulated meter.
func (m *Mock) Open() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.open {
		return fmt.Errorf("already connected")
	}
	if m.ctx.Err() != nil {
		return fmt.Errorf("mock device cannot be reopened")
	}

	m.open = true
	m.startTime = time.Now()

	go m.generate()

	return nil
}

// Close stops the simulated meter.
func (m *Mock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.open {
		return nil
	}

	m.cancel()
	m.open = false
	return nil
}

// IsOpen returns whether the simulated meter is running.
func (m *Mock) IsOpen() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.open
}

// ReadLine returns the next simulated line or an empty line after the read timeout.
func (m *Mock) ReadLine() ([]byte, error) {
	if !m.IsOpen() {
		return nil, ErrNotOpen
	}

	timer := time.NewTimer(m.readTimeout)
	defer timer.Stop()

	select {
	case line := <-m.lines:
		return line, nil
	case <-timer.C:
		return []byte{}, nil
	case <-m.ctx.Done():
		return nil, ErrNotOpen
	}
}

// Send records p as an operator answer.
func (m *Mock) Send(p []byte) error {
	m.mu.Lock()
	if !m.open {
		m.mu.Unlock()
		return ErrNotOpen
	}
	m.sent = append(m.sent, append([]byte(nil), p...))
	m.mu.Unlock()

	select {
	case m.answered <- struct{}{}:
	default:
	}
	return nil
}

// Sent returns copies of everything written to the mock, in order.
func (m *Mock) Sent() [][]byte {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([][]byte, len(m.sent))
	for i, p := range m.sent {
		out[i] = append([]byte(nil), p...)
	}
	return out
}

// generate emits telemetry until the mock is closed.
func (m *Mock) generate() {
	interval := m.cfg.LineInterval
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			if !m.emit(m.nextTelemetry()) {
				return
			}

			m.count++
			if m.cfg.PromptEvery > 0 && m.count%m.cfg.PromptEvery == 0 {
				if !m.ask(capacitancePrompt) || !m.ask(errorPrompt) {
					return
				}
			}
		}
	}
}

// ask emits a prompt and blocks until it is answered.
func (m *Mock) ask(prompt string) bool {
	// Drop answers nobody asked for.
	select {
	case <-m.answered:
	default:
	}

	if !m.emit(prompt + "\r\n") {
		return false
	}

	select {
	case <-m.answered:
		return true
	case <-m.ctx.Done():
		return false
	}
}

func (m *Mock) emit(line string) bool {
	select {
	case m.lines <- []byte(line):
		return true
	case <-m.ctx.Done():
		return false
	}
}

// nextTelemetry produces the next reading followed by the saved history.
func (m *Mock) nextTelemetry() string {
	elapsed := time.Since(m.startTime).Seconds()
	noise := (math.Sin(elapsed*7.3) + math.Cos(elapsed*3.1)) * m.cfg.NoiseLevel * 0.5
	reading := m.cfg.Capacitance + noise

	saved := make([]float64, HistorySize)
	prev := m.history.Items()
	copy(saved[HistorySize-len(prev):], prev)
	m.history.Push(reading)

	return FormatTelemetry(reading, saved) + "\r\n"
}

// FormatTelemetry renders a data record line: the reading followed by its
// saved history, comma separated, as the host expects on the serial link.
func FormatTelemetry(reading float64, history []float64) string {
	var sb strings.Builder
	sb.WriteString(strconv.FormatFloat(reading, 'f', 4, 64))
	for _, v := range history {
		sb.WriteByte(',')
		sb.WriteString(strconv.FormatFloat(v, 'f', 4, 64))
	}
	return sb.String()
}
