package framepipe

import (
	"fmt"
	"time"

	"github.com/gekko3d/framepipe/pipeline/fixedstep"
)

type Time struct {
	Time    time.Time
	Dt      time.Duration
	Elapsed time.Duration
	Frame   uint64

	now func() time.Time
}

// FixedTime describes this frame's fixed-step schedule. Steps is how many
// times the Simulate stage runs; Alpha is the leftover fraction of a step for
// interpolating between the last two simulated states.
type FixedTime struct {
	Steps  int
	Step   time.Duration
	Alpha  float64
	Behind bool
	Tick   uint64

	acc *fixedstep.Accumulator
}

// Accumulator exposes the underlying accumulator, e.g. to Reset after a pause.
func (f *FixedTime) Accumulator() *fixedstep.Accumulator { return f.acc }

type TimeModule struct {
	StepHz           float64
	MaxStepsPerFrame int
	Clock            func() time.Time
}

func (mod TimeModule) Install(app *App, cmd *Commands) {
	rate := mod.StepHz
	if rate <= 0 {
		rate = 60
	}
	maxSteps := mod.MaxStepsPerFrame
	if maxSteps <= 0 {
		maxSteps = 5
	}
	clock := mod.Clock
	if clock == nil {
		clock = time.Now
	}

	acc, err := fixedstep.NewHz(rate, maxSteps)
	if err != nil {
		panic(fmt.Sprintf("time module: %v", err))
	}

	cmd.AddResources(
		&Time{Time: clock(), now: clock},
		&FixedTime{Step: acc.Step(), acc: acc},
	)

	cmd.UseSystem(System(func(t *Time, fixed *FixedTime) {
		timeSystem(t, fixed, app.Logger())
	}).InStage(Prelude))
}

func timeSystem(t *Time, fixed *FixedTime, logger Logger) {
	now := t.now()

	t.Dt = now.Sub(t.Time)
	t.Time = now
	t.Frame++

	dt := t.Dt
	if dt < 0 {
		logger.Warnf("clock went backwards by %v; skipping frame delta", -dt)
		dt = 0
	}
	t.Elapsed += dt

	steps, err := fixed.acc.Consume(dt)
	if err != nil {
		logger.Errorf("fixed step: %v", err)
		steps = 0
	}
	fixed.Steps = steps
	fixed.Tick += uint64(steps)
	fixed.Alpha = fixed.acc.Alpha()
	fixed.Behind = fixed.acc.Behind()
	if fixed.Behind {
		logger.Debugf("simulation behind by %v after %d steps", fixed.acc.Accumulated(), steps)
	}
}
