package metrics

import (
	"context"
	"time"

	coremetrics "github.com/mdubois44/chargeplan/core/metrics"
	"github.com/mdubois44/chargeplan/core/optimize"
	"github.com/mdubois44/chargeplan/internal/eventbus"
)

// StartGenerationCollector subscribes to the search progress bus and records
// each generation on the sink. It stops when the context is canceled or the
// bus is closed. The returned done channel closes once the collector exits,
// so callers can wait for the last event to be recorded.
func StartGenerationCollector(ctx context.Context, bus *eventbus.TypedBus[optimize.GenerationEvent], sink coremetrics.Sink, scenario string) <-chan struct{} {
	done := make(chan struct{})
	if bus == nil || sink == nil {
		close(done)
		return done
	}
	rec, ok := sink.(coremetrics.GenerationRecorder)
	if !ok {
		close(done)
		return done
	}

	sub := bus.Subscribe()
	go func() {
		defer close(done)
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				_ = rec.RecordGeneration(coremetrics.GenerationEvent{
					Scenario:    scenario,
					Generation:  ev.Generation,
					FrontSize:   ev.FrontSize,
					BestCost:    ev.BestCost,
					Evaluations: ev.Evaluations,
					Time:        time.Now(),
				})
			}
		}
	}()
	return done
}
