package fixedstep

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidArgument is returned for non-positive bounds and negative deltas.
var ErrInvalidArgument = errors.New("fixedstep: invalid argument")

// Accumulator turns variable frame deltas into a bounded number of fixed ticks.
// Time beyond the per-frame cap stays in the accumulator and is simulated on
// later frames.
type Accumulator struct {
	step        time.Duration
	maxSteps    int
	accumulated time.Duration
}

func New(step time.Duration, maxStepsPerFrame int) (*Accumulator, error) {
	if step <= 0 {
		return nil, fmt.Errorf("%w: step must be positive, got %v", ErrInvalidArgument, step)
	}
	if maxStepsPerFrame <= 0 {
		return nil, fmt.Errorf("%w: max steps per frame must be positive, got %d", ErrInvalidArgument, maxStepsPerFrame)
	}
	return &Accumulator{
		step:     step,
		maxSteps: maxStepsPerFrame,
	}, nil
}

// NewHz builds an accumulator ticking rate times per second.
func NewHz(rate float64, maxStepsPerFrame int) (*Accumulator, error) {
	if !(rate > 0) {
		return nil, fmt.Errorf("%w: rate must be positive, got %v", ErrInvalidArgument, rate)
	}
	return New(time.Duration(float64(time.Second)/rate), maxStepsPerFrame)
}

// Consume adds delta and returns how many fixed steps to run this frame.
func (a *Accumulator) Consume(delta time.Duration) (int, error) {
	if delta < 0 {
		return 0, fmt.Errorf("%w: negative delta %v", ErrInvalidArgument, delta)
	}

	a.accumulated += delta

	steps := int(a.accumulated / a.step)
	if steps > a.maxSteps {
		steps = a.maxSteps
	}
	a.accumulated -= time.Duration(steps) * a.step

	return steps, nil
}

func (a *Accumulator) Step() time.Duration        { return a.step }
func (a *Accumulator) MaxSteps() int              { return a.maxSteps }
func (a *Accumulator) Accumulated() time.Duration { return a.accumulated }

// Alpha is the fraction of a step left in the accumulator, clamped to [0, 1].
// Renderers use it to interpolate between the last two simulation states.
func (a *Accumulator) Alpha() float64 {
	alpha := float64(a.accumulated) / float64(a.step)
	if alpha > 1 {
		return 1
	}
	return alpha
}

// Behind reports whether deferred time from a capped frame is still pending.
func (a *Accumulator) Behind() bool {
	return a.accumulated >= a.step
}

func (a *Accumulator) Reset() {
	a.accumulated = 0
}
