package cmd

import (
	"gopkg.in/cheggaaa/pb.v1"

	"github.com/mdubois44/chargeplan/core/optimize"
	"github.com/mdubois44/chargeplan/internal/eventbus"
)

// watchProgress renders a progress bar over generations. The returned channel
// closes after the bus closes and the bar has been finished.
func watchProgress(bus *eventbus.TypedBus[optimize.GenerationEvent]) <-chan struct{} {
	sub := bus.Subscribe()
	done := make(chan struct{})
	go func() {
		defer close(done)
		var bar *pb.ProgressBar
		for ev := range sub {
			if bar == nil {
				bar = pb.StartNew(ev.Total)
				bar.ShowTimeLeft = false
			}
			bar.Set(ev.Generation)
		}
		if bar != nil {
			bar.Finish()
		}
	}()
	return done
}
