// Package session turns lines from the capacitance meter into readings and
// relays the meter's questions to the operator.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/itohio/gocapmeter/pkg/config"
	"github.com/itohio/gocapmeter/pkg/instrument"
	"github.com/itohio/gocapmeter/pkg/ring"
)

// Port is the part of the instrument connection the session needs.
type Port interface {
	ReadLine() ([]byte, error)
	Send(p []byte) error
}

// Operator answers the instrument's questions. Ask may block indefinitely.
type Operator interface {
	Ask(ctx context.Context, label string) (string, error)
}

// Snapshot is a copy of the session state after a processed line.
type Snapshot struct {
	Time      time.Time
	Latest    float64
	History   [instrument.HistorySize]float64
	Frequency float64
	Lines     []string
}

// Session holds the measurement state of one instrument connection.
// Step and Run must be called from a single goroutine.
type Session struct {
	port     Port
	operator Operator
	trace    io.Writer
	log      *zap.Logger

	factor   float64
	interval time.Duration
	prompts  []Prompt

	latest    float64
	history   [instrument.HistorySize]float64
	frequency float64
	lines     *ring.Buffer[string]

	callbacks []func(Snapshot)
}

// New creates a session reading from port. Every received line is echoed to trace.
func New(cfg *config.Config, port Port, op Operator, trace io.Writer, log *zap.Logger) *Session {
	if trace == nil {
		trace = io.Discard
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &Session{
		port:     port,
		operator: op,
		trace:    trace,
		log:      log,
		factor:   cfg.Measurement.Factor,
		interval: cfg.Poll.Interval,
		prompts:  promptsFromConfig(cfg.Prompts),
		lines:    ring.New[string](cfg.Measurement.RecentLines),
	}
}

// OnUpdate registers a callback invoked after every processed non-empty line.
// Callbacks run on the session goroutine and must return quickly.
func (s *Session) OnUpdate(cb func(Snapshot)) {
	s.callbacks = append(s.callbacks, cb)
}

// Latest returns the most recent reading.
func (s *Session) Latest() float64 { return s.latest }

// History returns the most recent saved readings.
func (s *Session) History() [instrument.HistorySize]float64 { return s.history }

// Frequency returns the frequency derived from the most recent non-zero reading.
func (s *Session) Frequency() float64 { return s.frequency }

// RecentLines returns the most recently received lines, oldest first.
func (s *Session) RecentLines() []string { return s.lines.Items() }

// Snapshot returns a copy of the current state.
func (s *Session) Snapshot() Snapshot {
	return Snapshot{
		Time:      time.Now(),
		Latest:    s.latest,
		History:   s.history,
		Frequency: s.frequency,
		Lines:     s.lines.Items(),
	}
}

// Step reads and handles a single line.
//
// A data record, a capacitance prompt and an error prompt are checked
// independently; failures of each are combined into the returned error.
// Step may block on the operator while a prompt is pending. Lines the
// instrument sends meanwhile stay queued in the port and are handled by
// later calls in the order received.
func (s *Session) Step(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while processing line: %v", r)
		}
	}()

	raw, err := s.port.ReadLine()
	if err != nil {
		return err
	}
	if !utf8.Valid(raw) {
		return fmt.Errorf("%w: %q", ErrInvalidUTF8, raw)
	}

	line := strings.TrimRightFunc(string(raw), unicode.IsSpace)
	if line == "" {
		return nil
	}

	fmt.Fprintln(s.trace, line)
	s.lines.Push(line)

	var errs error
	errs = multierr.Append(errs, s.applyRecord(line))
	for _, p := range s.prompts {
		if p.Matches(line) {
			errs = multierr.Append(errs, s.relay(ctx, p))
		}
	}

	s.notify()
	return errs
}

// applyRecord updates the readings if line is a data record. State changes
// only after every token has parsed.
func (s *Session) applyRecord(line string) error {
	rec, ok, err := parseRecord(line)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	s.latest = rec.Latest
	s.history = rec.History

	freq, err := deriveFrequency(s.factor, s.latest)
	if err != nil {
		return err
	}
	s.frequency = freq

	s.log.Debug("[session] reading",
		zap.Float64("latest", s.latest),
		zap.Float64("frequency", s.frequency),
	)
	return nil
}

func (s *Session) notify() {
	if len(s.callbacks) == 0 {
		return
	}
	snap := s.Snapshot()
	for _, cb := range s.callbacks {
		cb(snap)
	}
}

// Run processes lines until ctx is cancelled, waiting the poll interval
// between lines. Errors of single lines are logged and do not stop the loop.
func (s *Session) Run(ctx context.Context) error {
	s.log.Info("[session] polling started", zap.Duration("interval", s.interval))

	for {
		if ctx.Err() != nil {
			s.log.Info("[session] received shutdown signal")
			return nil
		}

		if err := s.Step(ctx); err != nil {
			if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
				continue
			}
			for _, e := range multierr.Errors(err) {
				s.log.Warn("[session] error processing serial line", zap.Error(e))
			}
		}

		if s.interval > 0 {
			timer := time.NewTimer(s.interval)
			select {
			case <-ctx.Done():
				timer.Stop()
			case <-timer.C:
			}
		}
	}
}
