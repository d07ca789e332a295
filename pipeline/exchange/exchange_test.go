package exchange

import (
	"slices"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type worldSnapshot struct {
	Tick      int
	Positions []float32
}

func TestConsumeLatest_IsDestructive(t *testing.T) {
	ex := New[int]()

	ex.Publish(7)
	v, ok := ex.ConsumeLatest()
	require.True(t, ok)
	assert.Equal(t, 7, v)

	_, ok = ex.ConsumeLatest()
	assert.False(t, ok, "second consume without publish must be empty")
}

func TestConsumeLatest_EmptyExchange(t *testing.T) {
	ex := New[*worldSnapshot]()
	v, ok := ex.ConsumeLatest()
	assert.False(t, ok)
	assert.Nil(t, v)
}

func TestPublish_LastWriteWins(t *testing.T) {
	ex := New[int]()
	ex.Publish(1)
	ex.Publish(2)
	ex.Publish(3)

	v, ok := ex.ConsumeLatest()
	require.True(t, ok)
	assert.Equal(t, 3, v)

	_, ok = ex.ConsumeLatest()
	assert.False(t, ok, "coalesced values are never delivered")

	stats := ex.Stats()
	assert.Equal(t, uint64(3), stats.Published)
	assert.Equal(t, uint64(2), stats.Coalesced)
	assert.Equal(t, uint64(1), stats.Consumed)
}

func TestClear_DropsPending(t *testing.T) {
	ex := New[string]()
	ex.Publish("frame")
	assert.True(t, ex.Pending())

	ex.Clear()
	assert.False(t, ex.Pending())

	_, ok := ex.ConsumeLatest()
	assert.False(t, ok)
}

func TestConsumeLatestGen_ReportsClearsSeenWithValue(t *testing.T) {
	ex := New[int]()

	_, ok, gen := ex.ConsumeLatestGen()
	assert.False(t, ok)
	assert.Zero(t, gen)

	ex.Clear()
	ex.Publish(7)
	v, ok, gen := ex.ConsumeLatestGen()
	require.True(t, ok)
	assert.Equal(t, 7, v)
	assert.Equal(t, uint64(1), gen, "clear before the publish is already counted")

	_, ok, gen = ex.ConsumeLatestGen()
	assert.False(t, ok)
	assert.Equal(t, uint64(1), gen)
}

func TestPublishOptional(t *testing.T) {
	ex := New[int]()
	ex.PublishOptional(4, true)
	ex.PublishOptional(0, false)

	_, ok := ex.ConsumeLatest()
	assert.False(t, ok, "publishing none clears the pending value")

	ex.PublishOptional(5, true)
	v, ok := ex.ConsumeLatest()
	require.True(t, ok)
	assert.Equal(t, 5, v)
}

func TestWithClone_DecouplesProducer(t *testing.T) {
	ex := New(WithClone(func(s *worldSnapshot) *worldSnapshot {
		return &worldSnapshot{Tick: s.Tick, Positions: slices.Clone(s.Positions)}
	}))

	live := &worldSnapshot{Tick: 1, Positions: []float32{1, 2}}
	ex.Publish(live)

	live.Tick = 2
	live.Positions[0] = 99

	got, ok := ex.ConsumeLatest()
	require.True(t, ok)
	assert.Equal(t, 1, got.Tick)
	assert.Equal(t, []float32{1, 2}, got.Positions)
	assert.NotSame(t, live, got)
}

func TestRecycleAndSpare(t *testing.T) {
	ex := New[*worldSnapshot]()

	_, ok := ex.Spare()
	assert.False(t, ok)

	buf := &worldSnapshot{Positions: make([]float32, 0, 64)}
	ex.Recycle(buf)

	got, ok := ex.Spare()
	require.True(t, ok)
	assert.Same(t, buf, got)

	_, ok = ex.Spare()
	assert.False(t, ok, "a spare is handed out once")

	ex.Recycle(buf)
	ex.Clear()
	_, ok = ex.Spare()
	assert.False(t, ok, "clear drops the recycled value too")
}

func TestConcurrentProducerConsumer(t *testing.T) {
	ex := New[int]()
	const total = 20000

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 1; i <= total; i++ {
			ex.Publish(i)
		}
	}()

	last := 0
	seen := 0
	for last < total {
		v, ok := ex.ConsumeLatest()
		if !ok {
			continue
		}
		require.Greater(t, v, last, "values arrive in publish order")
		last = v
		seen++
	}
	wg.Wait()

	stats := ex.Stats()
	assert.Equal(t, uint64(total), stats.Published)
	assert.Equal(t, uint64(seen), stats.Consumed)
	assert.Equal(t, stats.Published, stats.Consumed+stats.Coalesced)
}
