package plot

import (
	"math"
	"testing"
	"time"

	"fyne.io/fyne/v2/test"
	"github.com/stretchr/testify/assert"

	"github.com/itohio/gocapmeter/pkg/session"
)

func TestAutoScale(t *testing.T) {
	tests := []struct {
		name             string
		values           []float64
		wantMin, wantMax float64
	}{
		{"empty", nil, 0, 1},
		{"all zero", make([]float64, 30), -0.1, 0.1},
		{"flat non-zero", []float64{10, 10, 10}, 9, 11},
		{"range", []float64{1, 3, 2}, 0.8, 3.2},
		{"ignores non-finite", []float64{math.NaN(), 1, math.Inf(1), 3}, 0.8, 3.2},
		{"only non-finite", []float64{math.NaN(), math.Inf(-1)}, 0, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lo, hi := autoScale(tt.values)
			assert.InDelta(t, tt.wantMin, lo, 1e-9)
			assert.InDelta(t, tt.wantMax, hi, 1e-9)
		})
	}
}

func TestFormatCapacitance(t *testing.T) {
	assert.Equal(t, "2.500 nF", formatCapacitance(2.5))
	assert.Equal(t, "-0.125 nF", formatCapacitance(-0.125))
}

func TestFormatFrequency(t *testing.T) {
	assert.Equal(t, "-", formatFrequency(0))
	assert.Equal(t, "54.701 kHz", formatFrequency(136752.136752/2.5))
	assert.Equal(t, "999.50 Hz", formatFrequency(999.5))
}

func TestFormatUpdated(t *testing.T) {
	assert.Equal(t, "no data", formatUpdated(time.Time{}))
	assert.Equal(t, "updated 13:04:05", formatUpdated(time.Date(2024, 1, 2, 13, 4, 5, 0, time.Local)))
}

func TestHistoryWidget_UpdateData(t *testing.T) {
	test.NewTempApp(t)

	snap := session.Snapshot{
		Time:      time.Date(2024, 1, 2, 13, 4, 5, 0, time.Local),
		Latest:    2.5,
		Frequency: 54700.8547008,
		Lines:     []string{"first", "last"},
	}
	snap.History[0] = 1
	snap.History[29] = 3

	h := NewHistoryWidget()
	h.UpdateData(snap)

	assert.Equal(t, snap.Time, h.updated)
	assert.Equal(t, 2.5, h.latest)
	assert.Equal(t, "last", h.lastLine)
	assert.Len(t, h.history, 30)
	assert.InDelta(t, -0.3, h.yMin, 1e-9)
	assert.InDelta(t, 3.3, h.yMax, 1e-9)
}
