package instrument

import (
	"bytes"
	"io"
	"time"
)

const readChunkSize = 256

// timeoutReader is a reader whose Read returns (0, nil) once its read
// timeout elapses. serial.Port satisfies it.
type timeoutReader interface {
	io.Reader
	SetReadTimeout(t time.Duration) error
}

// lineReader splits a timeout-driven byte stream into lines.
type lineReader struct {
	r       timeoutReader
	timeout time.Duration
	pending []byte
	chunk   []byte
	now     func() time.Time
}

func newLineReader(r timeoutReader, timeout time.Duration) *lineReader {
	return &lineReader{
		r:       r,
		timeout: timeout,
		chunk:   make([]byte, readChunkSize),
		now:     time.Now,
	}
}

// ReadLine returns the next line including its '\n'. If no newline arrives
// before the timeout, the bytes accumulated so far are returned instead.
// Each read is limited to the time left, so a slow trickle of bytes cannot
// stretch the wait past the timeout.
func (l *lineReader) ReadLine() ([]byte, error) {
	deadline := l.now().Add(l.timeout)
	for {
		if i := bytes.IndexByte(l.pending, '\n'); i >= 0 {
			return l.take(i + 1), nil
		}

		remaining := deadline.Sub(l.now())
		if remaining <= 0 {
			return l.take(len(l.pending)), nil
		}
		// Sub-millisecond timeouts round down to non-blocking reads on some platforms.
		if remaining < time.Millisecond {
			remaining = time.Millisecond
		}
		if err := l.r.SetReadTimeout(remaining); err != nil {
			return nil, err
		}

		n, err := l.r.Read(l.chunk)
		l.pending = append(l.pending, l.chunk[:n]...)
		if err != nil {
			if i := bytes.IndexByte(l.pending, '\n'); i >= 0 {
				return l.take(i + 1), nil
			}
			// The read error surfaces again on the next call.
			if len(l.pending) > 0 {
				return l.take(len(l.pending)), nil
			}
			return nil, err
		}

		if n == 0 {
			return l.take(len(l.pending)), nil
		}
	}
}

// take removes and returns the first n pending bytes.
func (l *lineReader) take(n int) []byte {
	line := make([]byte, n)
	copy(line, l.pending[:n])
	rest := copy(l.pending, l.pending[n:])
	l.pending = l.pending[:rest]
	return line
}
