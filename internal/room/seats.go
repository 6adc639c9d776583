package room

import (
	"time"

	"github.com/playdicee/dicee/internal/strategy"
)

// SeatStatus is the lifecycle state of a seat.
type SeatStatus string

const (
	SeatEmpty        SeatStatus = "empty"
	SeatReserved     SeatStatus = "reserved"
	SeatOccupied     SeatStatus = "occupied"
	SeatDisconnected SeatStatus = "disconnected"
)

// ReleaseReason records why a seat was vacated.
type ReleaseReason string

const (
	ReleaseTimeout    ReleaseReason = "timeout"
	ReleaseForfeit    ReleaseReason = "forfeit"
	ReleaseLeft       ReleaseReason = "left"
	ReleaseRoomClosed ReleaseReason = "room_closed"
)

// Seat is one slot at the table. PlayerID doubles as the stable
// identity key: a reconnecting client presents the same identity to
// reclaim its seat.
type Seat struct {
	Index       int
	PlayerID    string
	DisplayName string
	Status      SeatStatus
	Bot         bool
	// Profile drives decisions for bot seats; nil otherwise.
	Profile *strategy.Profile
	// ReservedUntil bounds a reservation; zero once occupied.
	ReservedUntil time.Time
	// ReclaimUntil bounds the reclaim window after a disconnect.
	ReclaimUntil time.Time
}

// registry owns seat assignment. It is a plain data structure; the
// coordinator goroutine serializes all access.
type registry struct {
	seats []*Seat
}

func newRegistry(n int) *registry {
	r := &registry{seats: make([]*Seat, n)}
	for i := range r.seats {
		r.seats[i] = &Seat{Index: i, Status: SeatEmpty}
	}
	return r
}

// byPlayer returns the seat held (in any non-empty state) by identity.
func (r *registry) byPlayer(id string) *Seat {
	for _, s := range r.seats {
		if s.Status != SeatEmpty && s.PlayerID == id {
			return s
		}
	}
	return nil
}

func (r *registry) firstEmpty() *Seat {
	for _, s := range r.seats {
		if s.Status == SeatEmpty {
			return s
		}
	}
	return nil
}

// reserve holds a seat for identity until the deadline. Reserving is
// idempotent: repeating it for an identity that already holds a
// reservation or a seat returns that same seat, never a second one.
func (r *registry) reserve(id, name string, until time.Time) (*Seat, error) {
	if id == "" {
		return nil, validationf("player identity required")
	}
	if s := r.byPlayer(id); s != nil {
		if s.Status == SeatReserved {
			s.ReservedUntil = until
			s.DisplayName = name
		}
		return s, nil
	}
	s := r.firstEmpty()
	if s == nil {
		return nil, capacityf("no seats available")
	}
	s.PlayerID = id
	s.DisplayName = name
	s.Status = SeatReserved
	s.ReservedUntil = until
	return s, nil
}

// confirm transitions a reservation to occupied. A reservation that
// already lapsed past now is refused and released.
func (r *registry) confirm(id string, now time.Time) (*Seat, error) {
	s := r.byPlayer(id)
	if s == nil {
		return nil, validationf("no reservation for this player")
	}
	switch s.Status {
	case SeatOccupied:
		return s, nil
	case SeatReserved:
		if now.After(s.ReservedUntil) {
			r.release(s, ReleaseTimeout)
			return nil, expiredf("seat reservation expired")
		}
		s.Status = SeatOccupied
		s.ReservedUntil = time.Time{}
		return s, nil
	default:
		return nil, conflictf("seat is %s", s.Status)
	}
}

// markDisconnected opens the reclaim window for an occupied seat.
func (r *registry) markDisconnected(id string, until time.Time) *Seat {
	s := r.byPlayer(id)
	if s == nil || s.Status != SeatOccupied || s.Bot {
		return nil
	}
	s.Status = SeatDisconnected
	s.ReclaimUntil = until
	return s
}

// reclaim reattaches identity to its disconnected seat. Inside the
// window it restores the occupied state; after it the seat has been
// (or is about to be) released and the caller gets an expired error.
func (r *registry) reclaim(id string, now time.Time) (*Seat, error) {
	s := r.byPlayer(id)
	if s == nil {
		return nil, expiredf("seat no longer held")
	}
	switch s.Status {
	case SeatDisconnected:
		if now.After(s.ReclaimUntil) {
			return nil, expiredf("reclaim window elapsed")
		}
		s.Status = SeatOccupied
		s.ReclaimUntil = time.Time{}
		return s, nil
	case SeatOccupied:
		// Same identity, fresh socket. The newer connection wins.
		return s, nil
	default:
		return nil, conflictf("seat is %s", s.Status)
	}
}

// release vacates a seat. The reason is the caller's to announce; the
// registry only resets the slot. Safe to call on an already-empty seat.
func (r *registry) release(s *Seat, _ ReleaseReason) {
	s.PlayerID = ""
	s.DisplayName = ""
	s.Status = SeatEmpty
	s.Bot = false
	s.Profile = nil
	s.ReservedUntil = time.Time{}
	s.ReclaimUntil = time.Time{}
}

// occupied counts seats in the occupied or disconnected state; both
// hold a player for game purposes.
func (r *registry) occupied() int {
	n := 0
	for _, s := range r.seats {
		if s.Status == SeatOccupied || s.Status == SeatDisconnected {
			n++
		}
	}
	return n
}

// host returns the lowest occupied seat; only the host may start the
// game or add bots.
func (r *registry) host() *Seat {
	for _, s := range r.seats {
		if s.Status == SeatOccupied || s.Status == SeatDisconnected {
			return s
		}
	}
	return nil
}

func (r *registry) views() []SeatView {
	out := make([]SeatView, len(r.seats))
	for i, s := range r.seats {
		out[i] = SeatView{
			Index:       s.Index,
			PlayerID:    s.PlayerID,
			DisplayName: s.DisplayName,
			Status:      string(s.Status),
			Bot:         s.Bot,
		}
	}
	return out
}
