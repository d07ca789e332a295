package fixedstep

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RejectsNonPositiveBounds(t *testing.T) {
	_, err := New(0, 5)
	require.ErrorIs(t, err, ErrInvalidArgument)

	_, err = New(-time.Millisecond, 5)
	require.ErrorIs(t, err, ErrInvalidArgument)

	_, err = New(time.Millisecond, 0)
	require.ErrorIs(t, err, ErrInvalidArgument)

	_, err = NewHz(0, 5)
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestConsume_RejectsNegativeDelta(t *testing.T) {
	acc, err := New(10*time.Millisecond, 5)
	require.NoError(t, err)

	_, err = acc.Consume(-time.Nanosecond)
	assert.ErrorIs(t, err, ErrInvalidArgument)
	assert.Equal(t, time.Duration(0), acc.Accumulated(), "rejected delta must not be accumulated")
}

func TestConsume_WholeAndPartialSteps(t *testing.T) {
	acc, err := New(10*time.Millisecond, 5)
	require.NoError(t, err)

	steps, err := acc.Consume(25 * time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, 2, steps)
	assert.Equal(t, 5*time.Millisecond, acc.Accumulated())
	assert.InDelta(t, 0.5, acc.Alpha(), 1e-9)

	steps, err = acc.Consume(5 * time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, 1, steps)
	assert.Equal(t, time.Duration(0), acc.Accumulated())

	steps, err = acc.Consume(0)
	require.NoError(t, err)
	assert.Equal(t, 0, steps)
}

func TestConsume_CapDefersTime(t *testing.T) {
	acc, err := New(10*time.Millisecond, 3)
	require.NoError(t, err)

	// A long hitch: 10 steps worth of time, only 3 are allowed per frame.
	steps, err := acc.Consume(100 * time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, 3, steps)
	assert.Equal(t, 70*time.Millisecond, acc.Accumulated())
	assert.True(t, acc.Behind())
	assert.Equal(t, 1.0, acc.Alpha())

	steps, _ = acc.Consume(0)
	assert.Equal(t, 3, steps)
	steps, _ = acc.Consume(0)
	assert.Equal(t, 3, steps)
	steps, _ = acc.Consume(0)
	assert.Equal(t, 1, steps)
	assert.False(t, acc.Behind())
	assert.Equal(t, time.Duration(0), acc.Accumulated())
}

func TestConsume_ConservesTime(t *testing.T) {
	step := 16666667 * time.Nanosecond
	acc, err := New(step, 4)
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(7))
	var fed, simulated time.Duration
	for i := 0; i < 5000; i++ {
		delta := time.Duration(rng.Int63n(int64(120 * time.Millisecond)))
		fed += delta

		steps, err := acc.Consume(delta)
		require.NoError(t, err)
		require.LessOrEqual(t, steps, 4)
		require.GreaterOrEqual(t, steps, 0)

		simulated += time.Duration(steps) * step
		require.Equal(t, fed, simulated+acc.Accumulated())
	}
}

func TestReset(t *testing.T) {
	acc, err := NewHz(60, 2)
	require.NoError(t, err)
	_, _ = acc.Consume(time.Second)
	acc.Reset()
	assert.Equal(t, time.Duration(0), acc.Accumulated())
	assert.Equal(t, 2, acc.MaxSteps())
}
