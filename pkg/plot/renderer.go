package plot

import (
	"image/color"
	"math"
	"strconv"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
)

var (
	gridColor    = color.RGBA{R: 40, G: 40, B: 40, A: 255}
	axisColor    = color.RGBA{R: 150, G: 150, B: 150, A: 255}
	historyColor = color.RGBA{R: 255, G: 165, B: 0, A: 255}
	labelColor   = color.RGBA{R: 200, G: 200, B: 200, A: 255}
)

// historyRenderer renders the history widget.
type historyRenderer struct {
	plot       *HistoryWidget
	background *canvas.Rectangle
	objects    []fyne.CanvasObject
	lastSize   fyne.Size
}

// MinSize returns the minimum size of the widget.
func (r *historyRenderer) MinSize() fyne.Size {
	return fyne.NewSize(400, 300)
}

// Layout arranges the widget components.
func (r *historyRenderer) Layout(size fyne.Size) {
	r.background.Resize(size)

	if r.lastSize != size {
		r.lastSize = size
		r.plot.BaseWidget.Refresh()
	}
}

// Refresh rebuilds all canvas objects from the current data.
func (r *historyRenderer) Refresh() {
	r.plot.mu.RLock()
	history := append([]float64(nil), r.plot.history...)
	latest := r.plot.latest
	frequency := r.plot.frequency
	lastLine := r.plot.lastLine
	updated := r.plot.updated
	yMin, yMax := r.plot.yMin, r.plot.yMax
	r.plot.mu.RUnlock()

	size := r.plot.Size()
	r.objects = []fyne.CanvasObject{r.background}
	if size.Width == 0 || size.Height == 0 {
		return
	}

	marginLeft := float32(70.0)
	marginRight := float32(20.0)
	marginTop := float32(40.0)
	marginBottom := float32(40.0)

	plotX := marginLeft
	plotY := marginTop
	plotWidth := size.Width - marginLeft - marginRight
	plotHeight := size.Height - marginTop - marginBottom

	r.drawGrid(plotX, plotY, plotWidth, plotHeight, yMin, yMax, len(history))
	r.drawHistory(plotX, plotY, plotWidth, plotHeight, history, yMin, yMax)
	r.drawLabels(plotX, plotWidth, latest, frequency, lastLine, updated)
}

// drawGrid draws horizontal value lines and one vertical line per saved reading slot.
func (r *historyRenderer) drawGrid(plotX, plotY, plotWidth, plotHeight float32, yMin, yMax float64, points int) {
	numHLines := 8
	for i := 0; i < numHLines+1; i++ {
		y := plotY + float32(i)*plotHeight/float32(numHLines)
		line := canvas.NewLine(gridColor)
		line.Position1 = fyne.NewPos(plotX, y)
		line.Position2 = fyne.NewPos(plotX+plotWidth, y)
		line.StrokeWidth = 1
		r.objects = append(r.objects, line)

		value := yMax - float64(i)*(yMax-yMin)/float64(numHLines)
		text := canvas.NewText(formatCapacitance(value), axisColor)
		text.TextSize = 10
		text.Alignment = fyne.TextAlignTrailing
		text.Move(fyne.NewPos(plotX-5, y-6))
		r.objects = append(r.objects, text)
	}

	if points < 2 {
		return
	}
	step := plotWidth / float32(points-1)
	for i := 0; i < points; i += 5 {
		x := plotX + float32(i)*step
		line := canvas.NewLine(gridColor)
		line.Position1 = fyne.NewPos(x, plotY)
		line.Position2 = fyne.NewPos(x, plotY+plotHeight)
		line.StrokeWidth = 1
		r.objects = append(r.objects, line)

		text := canvas.NewText(strconv.Itoa(i+1), axisColor)
		text.TextSize = 10
		text.Alignment = fyne.TextAlignCenter
		text.Move(fyne.NewPos(x-5, plotY+plotHeight+5))
		r.objects = append(r.objects, text)
	}
}

// drawHistory draws the saved readings as a connected line, oldest on the left.
func (r *historyRenderer) drawHistory(plotX, plotY, plotWidth, plotHeight float32, history []float64, yMin, yMax float64) {
	if len(history) < 2 || yMax == yMin {
		return
	}

	step := plotWidth / float32(len(history)-1)
	var prev fyne.Position
	havePrev := false
	for i, v := range history {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			havePrev = false
			continue
		}
		pos := fyne.NewPos(
			plotX+float32(i)*step,
			plotY+plotHeight-float32((v-yMin)/(yMax-yMin))*plotHeight,
		)
		if havePrev {
			line := canvas.NewLine(historyColor)
			line.Position1 = prev
			line.Position2 = pos
			line.StrokeWidth = 1.5
			r.objects = append(r.objects, line)
		}
		prev = pos
		havePrev = true
	}
}

// drawLabels draws the latest reading, frequency, update time and last received line.
func (r *historyRenderer) drawLabels(plotX, plotWidth float32, latest, frequency float64, lastLine string, updated time.Time) {
	text := canvas.NewText("C = "+formatCapacitance(latest)+"   f = "+formatFrequency(frequency), labelColor)
	text.TextSize = 14
	text.TextStyle = fyne.TextStyle{Bold: true}
	text.Move(fyne.NewPos(plotX, 8))
	r.objects = append(r.objects, text)

	stamp := canvas.NewText(formatUpdated(updated), axisColor)
	stamp.TextSize = 10
	stamp.Alignment = fyne.TextAlignTrailing
	stamp.Move(fyne.NewPos(plotX+plotWidth, 12))
	r.objects = append(r.objects, stamp)

	if lastLine != "" {
		if len(lastLine) > 80 {
			lastLine = lastLine[:77] + "..."
		}
		line := canvas.NewText(lastLine, axisColor)
		line.TextSize = 10
		line.Move(fyne.NewPos(plotX, r.lastSize.Height-18))
		r.objects = append(r.objects, line)
	}
}

// Objects returns all canvas objects for rendering.
func (r *historyRenderer) Objects() []fyne.CanvasObject {
	return r.objects
}

// Destroy cleans up resources.
func (r *historyRenderer) Destroy() {}

func formatCapacitance(nF float64) string {
	return strconv.FormatFloat(nF, 'f', 3, 64) + " nF"
}

func formatUpdated(t time.Time) string {
	if t.IsZero() {
		return "no data"
	}
	return "updated " + t.Format("15:04:05")
}

func formatFrequency(hz float64) string {
	if hz == 0 {
		return "-"
	}
	if math.Abs(hz) >= 1000 {
		return strconv.FormatFloat(hz/1000, 'f', 3, 64) + " kHz"
	}
	return strconv.FormatFloat(hz, 'f', 2, 64) + " Hz"
}
