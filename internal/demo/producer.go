package demo

import (
	"context"
	"time"

	"github.com/gekko3d/framepipe"
	"github.com/gekko3d/framepipe/netfeed"
	"github.com/gekko3d/framepipe/pipeline/fixedstep"
)

// LocalProducer runs sim on its own goroutine at a fixed rate and publishes
// a snapshot after every batch of steps. Snapshot buffers handed back through
// the bus are reused.
func LocalProducer(sim *Sim, acc *fixedstep.Accumulator) framepipe.Producer[World] {
	return func(ctx context.Context, bus *framepipe.SnapshotBus[World]) {
		ticker := time.NewTicker(acc.Step())
		defer ticker.Stop()

		last := time.Now()
		dt := float32(acc.Step().Seconds())
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				steps, err := acc.Consume(max(now.Sub(last), 0))
				last = now
				if err != nil || steps == 0 {
					continue
				}
				for i := 0; i < steps; i++ {
					sim.Step(dt)
				}
				spare, _ := bus.Spare()
				bus.Publish(sim.Snapshot(spare))
			}
		}
	}
}

// RemoteProducer feeds snapshots from a websocket feed into the bus and
// retries after a delay when the connection drops.
func RemoteProducer(url string, retry time.Duration, logger netfeed.Logger) framepipe.Producer[World] {
	return func(ctx context.Context, bus *framepipe.SnapshotBus[World]) {
		for {
			err := netfeed.Subscribe(ctx, url, bus.Exchange, logger)
			if ctx.Err() != nil {
				return
			}
			if err != nil && logger != nil {
				logger.Warnf("feed %s: %v", url, err)
			}
			bus.Clear()

			select {
			case <-ctx.Done():
				return
			case <-time.After(retry):
			}
		}
	}
}

// Broadcast steps sim in real time and publishes a snapshot to b every tick
// until ctx is done.
func Broadcast(ctx context.Context, sim *Sim, acc *fixedstep.Accumulator, b *netfeed.Broadcaster, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	last := time.Now()
	dt := float32(acc.Step().Seconds())
	var snap World
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			steps, err := acc.Consume(max(now.Sub(last), 0))
			last = now
			if err != nil {
				return err
			}
			for i := 0; i < steps; i++ {
				sim.Step(dt)
			}
			snap = sim.Snapshot(snap)
			if err := b.Publish(snap); err != nil {
				return err
			}
		}
	}
}
