package main

import (
	"context"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"

	"github.com/itohio/gocapmeter/pkg/config"
	"github.com/itohio/gocapmeter/pkg/plot"
	"github.com/itohio/gocapmeter/pkg/session"
)

// runWithPlot runs the session on a goroutine while Fyne owns the main goroutine.
// Closing the window stops the session; cancelling ctx closes the window.
func runWithPlot(ctx context.Context, cfg *config.Config, sess *session.Session) error {
	sessCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	application := app.NewWithID("com.itohio.gocapmeter")

	window := application.NewWindow("Capacitance Meter")
	window.Resize(fyne.NewSize(cfg.Plot.Width, cfg.Plot.Height))
	window.CenterOnScreen()

	history := plot.NewHistoryWidget()
	window.SetContent(history)
	window.SetOnClosed(cancel)

	// Snapshots are copies, so handing them to the main thread is safe.
	sess.OnUpdate(func(snap session.Snapshot) {
		fyne.Do(func() {
			history.UpdateData(snap)
		})
	})

	done := make(chan error, 1)
	go func() {
		done <- sess.Run(sessCtx)
	}()

	finished := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			fyne.Do(application.Quit)
		case <-finished:
		}
	}()

	window.ShowAndRun()
	close(finished)
	cancel()

	return <-done
}
