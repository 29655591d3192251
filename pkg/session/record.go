package session

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/itohio/gocapmeter/pkg/instrument"
)

// RecordTokens is the minimum number of comma separated tokens in a data record:
// the latest reading followed by the saved history.
const RecordTokens = 1 + instrument.HistorySize

var (
	// ErrInvalidUTF8 is returned for lines that are not valid UTF-8 text.
	ErrInvalidUTF8 = errors.New("line is not valid UTF-8")
	// ErrZeroReading is returned when the frequency cannot be derived from a zero reading.
	ErrZeroReading = errors.New("cannot derive frequency from zero reading")
)

// TokenError reports a data record token that is not a number.
type TokenError struct {
	Index int
	Token string
	Err   error
}

func (e *TokenError) Error() string {
	return fmt.Sprintf("invalid token %d %q: %v", e.Index, e.Token, e.Err)
}

func (e *TokenError) Unwrap() error {
	return e.Err
}

// Record is one parsed telemetry line.
type Record struct {
	Latest  float64
	History [instrument.HistorySize]float64
}

// parseRecord parses a telemetry line. ok is false when the line has too few
// tokens to be a data record, which is not an error. Tokens after the history
// are ignored.
func parseRecord(line string) (rec Record, ok bool, err error) {
	tokens := strings.Split(line, ",")
	if len(tokens) < RecordTokens {
		return Record{}, false, nil
	}

	latest, err := parseToken(tokens, 0)
	if err != nil {
		return Record{}, false, err
	}
	rec.Latest = latest

	for i := range rec.History {
		v, err := parseToken(tokens, i+1)
		if err != nil {
			return Record{}, false, err
		}
		rec.History[i] = v
	}

	return rec, true, nil
}

func parseToken(tokens []string, i int) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(tokens[i]), 64)
	// Out of range values saturate to ±Inf instead of failing.
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return 0, &TokenError{Index: i, Token: tokens[i], Err: err}
	}
	return v, nil
}

// deriveFrequency returns factor / reading.
func deriveFrequency(factor, reading float64) (float64, error) {
	if reading == 0 {
		return 0, ErrZeroReading
	}
	return factor / reading, nil
}
