package room

import (
	"time"

	"github.com/coder/quartz"
)

// alarmKind distinguishes what a deadline means when it fires.
type alarmKind string

const (
	alarmReservation alarmKind = "reservation"
	alarmReclaim     alarmKind = "reclaim"
	alarmDecision    alarmKind = "decision"
	alarmBotThink    alarmKind = "bot_think"
	alarmIdle        alarmKind = "idle"
)

type alarmKey struct {
	kind alarmKind
	seat int // -1 for room-wide alarms
}

// scheduler multiplexes every pending deadline onto a single timer
// armed at the earliest one. Firing only enqueues a tick on the
// coordinator; the coordinator re-checks each deadline's guard before
// acting, so a stale or duplicate fire is harmless.
type scheduler struct {
	clock     quartz.Clock
	deadlines map[alarmKey]time.Time
	timer     *quartz.Timer
	armedAt   time.Time
	tick      func()
}

func newScheduler(clock quartz.Clock, tick func()) *scheduler {
	return &scheduler{
		clock:     clock,
		deadlines: make(map[alarmKey]time.Time),
		tick:      tick,
	}
}

func (s *scheduler) set(kind alarmKind, seat int, at time.Time) {
	s.deadlines[alarmKey{kind, seat}] = at
	s.arm()
}

func (s *scheduler) clear(kind alarmKind, seat int) {
	delete(s.deadlines, alarmKey{kind, seat})
	s.arm()
}

// clearSeat drops every per-seat deadline for the given seat index.
func (s *scheduler) clearSeat(seat int) {
	for k := range s.deadlines {
		if k.seat == seat {
			delete(s.deadlines, k)
		}
	}
	s.arm()
}

// next reports the earliest pending deadline.
func (s *scheduler) next() (time.Time, bool) {
	var min time.Time
	for _, at := range s.deadlines {
		if min.IsZero() || at.Before(min) {
			min = at
		}
	}
	return min, !min.IsZero()
}

// due returns the keys whose deadlines are at or before now, in no
// particular order.
func (s *scheduler) due(now time.Time) []alarmKey {
	var keys []alarmKey
	for k, at := range s.deadlines {
		if !at.After(now) {
			keys = append(keys, k)
		}
	}
	return keys
}

// arm points the single timer at the earliest deadline, or stops it
// when nothing is pending.
func (s *scheduler) arm() {
	at, ok := s.next()
	if !ok {
		if s.timer != nil {
			s.timer.Stop()
		}
		s.armedAt = time.Time{}
		return
	}
	d := at.Sub(s.clock.Now())
	if d < 0 {
		d = 0
	}
	if s.timer == nil {
		s.timer = s.clock.AfterFunc(d, s.tick)
	} else {
		s.timer.Reset(d)
	}
	s.armedAt = at
}

func (s *scheduler) stop() {
	if s.timer != nil {
		s.timer.Stop()
	}
	s.deadlines = make(map[alarmKey]time.Time)
	s.armedAt = time.Time{}
}
