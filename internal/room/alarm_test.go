package room

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchedulerFiresAtEarliestDeadline(t *testing.T) {
	clock := quartz.NewMock(t)
	var fires atomic.Int32
	s := newScheduler(clock, func() { fires.Add(1) })

	now := clock.Now()
	s.set(alarmReclaim, 0, now.Add(3*time.Minute))
	s.set(alarmDecision, -1, now.Add(45*time.Second))

	next, ok := s.next()
	require.True(t, ok)
	assert.Equal(t, now.Add(45*time.Second), next, "timer is armed at the minimum")

	clock.Advance(45 * time.Second).MustWait(context.Background())
	assert.Equal(t, int32(1), fires.Load())

	// The later deadline is still pending; re-arming reaches it.
	s.arm()
	clock.Advance(3 * time.Minute).MustWait(context.Background())
	assert.Equal(t, int32(2), fires.Load())
}

func TestSchedulerDueReturnsAllLapsed(t *testing.T) {
	clock := quartz.NewMock(t)
	s := newScheduler(clock, func() {})

	now := clock.Now()
	s.set(alarmReclaim, 0, now.Add(time.Minute))
	s.set(alarmReclaim, 1, now.Add(2*time.Minute))
	s.set(alarmIdle, -1, now.Add(time.Hour))

	due := s.due(now.Add(2 * time.Minute))
	assert.Len(t, due, 2)
	for _, k := range due {
		assert.Equal(t, alarmReclaim, k.kind)
	}
}

func TestSchedulerClearSeatDropsOnlyThatSeat(t *testing.T) {
	clock := quartz.NewMock(t)
	s := newScheduler(clock, func() {})

	now := clock.Now()
	s.set(alarmReclaim, 0, now.Add(time.Minute))
	s.set(alarmReservation, 0, now.Add(time.Minute))
	s.set(alarmReclaim, 1, now.Add(time.Minute))

	s.clearSeat(0)
	assert.Len(t, s.deadlines, 1)
	_, kept := s.deadlines[alarmKey{alarmReclaim, 1}]
	assert.True(t, kept)
}

func TestSchedulerStopsWhenEmpty(t *testing.T) {
	clock := quartz.NewMock(t)
	var fires atomic.Int32
	s := newScheduler(clock, func() { fires.Add(1) })

	now := clock.Now()
	s.set(alarmDecision, -1, now.Add(time.Minute))
	s.clear(alarmDecision, -1)

	_, ok := s.next()
	assert.False(t, ok)

	clock.Advance(2 * time.Minute).MustWait(context.Background())
	assert.Equal(t, int32(0), fires.Load(), "cleared alarm must not fire")
}

func TestSchedulerPastDeadlineFiresImmediately(t *testing.T) {
	clock := quartz.NewMock(t)
	var fires atomic.Int32
	s := newScheduler(clock, func() { fires.Add(1) })

	// A deadline already in the past arms a zero-duration timer.
	s.set(alarmReclaim, 0, clock.Now().Add(-time.Minute))
	clock.Advance(time.Millisecond).MustWait(context.Background())
	assert.Equal(t, int32(1), fires.Load())
}
