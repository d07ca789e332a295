package framepipe

import (
	"context"
	"sync"
	"time"

	"github.com/gekko3d/framepipe/pipeline/exchange"
)

// SnapshotBus carries snapshots of T from a producer goroutine to the frame
// loop. Its zero value is not usable; SnapshotModule creates it.
type SnapshotBus[T any] struct {
	*exchange.Exchange[T]
}

// SnapshotView is the frame loop's copy of the newest snapshot. Valid drops
// to false once the producer clears the bus. Fresh is true only on frames
// that received a new snapshot.
type SnapshotView[T any] struct {
	Value T
	Valid bool
	Fresh bool
	Seq   uint64

	cleared uint64
}

// Producer runs on its own goroutine until ctx is cancelled.
type Producer[T any] func(ctx context.Context, bus *SnapshotBus[T])

type SnapshotModule[T any] struct {
	Clone    func(T) T
	Producer Producer[T]
	// Recycle hands the replaced view value back to the producer through
	// SnapshotBus.Spare. Only safe when nothing else keeps references into it.
	Recycle bool
}

func (m SnapshotModule[T]) Install(app *App, cmd *Commands) {
	var opts []exchange.Option[T]
	if m.Clone != nil {
		opts = append(opts, exchange.WithClone(m.Clone))
	}
	bus := &SnapshotBus[T]{Exchange: exchange.New(opts...)}

	cmd.AddResources(bus, &SnapshotView[T]{})
	recycle := m.Recycle
	cmd.UseSystem(System(func(bus *SnapshotBus[T], view *SnapshotView[T]) {
		snapshotViewSystem(bus, view, recycle)
	}).InStage(PreRender))

	if m.Producer == nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		m.Producer(ctx, bus)
	}()
	app.OnClose(func() {
		cancel()
		wg.Wait()
	})
}

func snapshotViewSystem[T any](bus *SnapshotBus[T], view *SnapshotView[T], recycle bool) {
	view.Fresh = false

	v, ok, cleared := bus.ConsumeLatestGen()
	if ok {
		if recycle && view.Valid {
			bus.Recycle(view.Value)
		}
		view.Value = v
		view.Valid = true
		view.Fresh = true
		view.Seq++
	} else if cleared != view.cleared {
		var zero T
		view.Value = zero
		view.Valid = false
	}
	view.cleared = cleared
}

// TickerProducer calls sample every interval and publishes the result. A
// false ok clears the bus.
func TickerProducer[T any](interval time.Duration, sample func(now time.Time) (T, bool)) Producer[T] {
	return func(ctx context.Context, bus *SnapshotBus[T]) {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				bus.PublishOptional(sample(now))
			}
		}
	}
}
