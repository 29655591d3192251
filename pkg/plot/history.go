// Package plot draws the capacitance history in a Fyne window.
package plot

import (
	"image/color"
	"math"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/widget"

	"github.com/itohio/gocapmeter/pkg/session"
)

// HistoryWidget is a custom Fyne widget that plots the saved readings of the
// meter together with the latest reading and the derived frequency.
type HistoryWidget struct {
	widget.BaseWidget

	// Data (protected by mu)
	mu         sync.RWMutex
	history    []float64
	latest     float64
	frequency  float64
	lastLine   string
	updated    time.Time
	yMin, yMax float64
}

// NewHistoryWidget creates an empty history plot.
func NewHistoryWidget() *HistoryWidget {
	h := &HistoryWidget{
		yMin: 0,
		yMax: 1,
	}
	h.ExtendBaseWidget(h)
	return h
}

// UpdateData replaces the plotted data with snap.
// This must run on the Fyne main thread, use fyne.Do from other goroutines.
func (h *HistoryWidget) UpdateData(snap session.Snapshot) {
	h.mu.Lock()
	h.history = append(h.history[:0], snap.History[:]...)
	h.latest = snap.Latest
	h.frequency = snap.Frequency
	h.updated = snap.Time
	if n := len(snap.Lines); n > 0 {
		h.lastLine = snap.Lines[n-1]
	}
	h.yMin, h.yMax = autoScale(h.history)
	h.mu.Unlock()

	h.Refresh()
}

// autoScale returns a Y range covering values with a 10% margin.
// Non-finite values are ignored.
func autoScale(values []float64) (float64, float64) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if math.IsInf(lo, 1) {
		return 0, 1
	}

	span := hi - lo
	if span == 0 {
		span = math.Max(math.Abs(hi), 1)
	}
	margin := span * 0.1
	return lo - margin, hi + margin
}

// CreateRenderer creates the widget renderer.
func (h *HistoryWidget) CreateRenderer() fyne.WidgetRenderer {
	background := canvas.NewRectangle(color.RGBA{R: 20, G: 20, B: 20, A: 255})
	return &historyRenderer{
		plot:       h,
		background: background,
		objects:    []fyne.CanvasObject{background},
	}
}
