// Package room implements the per-room coordinator: a single goroutine
// that owns one room's seats, game, timers, and durable snapshot.
// Commands from connections, bot decisions, and alarm fires all arrive
// on one channel, so every observer sees the same history and no state
// transition races another. The coordinator persists the room snapshot
// before broadcasting the events a transition produced; a snapshot is
// never behind what clients have been told.
package room

import (
	"context"
	"fmt"
	rand "math/rand/v2"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/playdicee/dicee/internal/dicee"
	"github.com/playdicee/dicee/internal/game"
	"github.com/playdicee/dicee/internal/randutil"
	"github.com/playdicee/dicee/internal/store"
	"github.com/playdicee/dicee/internal/strategy"
)

// Phase is the room lifecycle state.
type Phase string

const (
	PhaseWaiting Phase = "waiting"
	PhasePlaying Phase = "playing"
	PhaseEnded   Phase = "ended"
)

const persistTimeout = 5 * time.Second

// Config bounds a room's behavior. Zero values take the defaults.
type Config struct {
	MaxSeats        int
	MinPlayers      int
	ReservationTTL  time.Duration
	ReclaimWindow   time.Duration
	DecisionTimeout time.Duration
	IdleTimeout     time.Duration
	// DefaultBot is the strategy used when an add-bot request names
	// none.
	DefaultBot string
}

// WithDefaults fills unset fields.
func (c Config) WithDefaults() Config {
	if c.MaxSeats <= 0 {
		c.MaxSeats = 4
	}
	if c.MinPlayers <= 0 {
		c.MinPlayers = 2
	}
	if c.ReservationTTL <= 0 {
		c.ReservationTTL = 2 * time.Minute
	}
	if c.ReclaimWindow <= 0 {
		c.ReclaimWindow = 3 * time.Minute
	}
	if c.DecisionTimeout <= 0 {
		c.DecisionTimeout = 45 * time.Second
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = 10 * time.Minute
	}
	if c.DefaultBot == "" {
		c.DefaultBot = "greedy"
	}
	return c
}

// Persister is the durable side of a room.
type Persister interface {
	Save(ctx context.Context, rec store.Record) error
}

// attachment is one live connection's view into the room. PlayerID is
// empty for spectators.
type attachment struct {
	connID      string
	playerID    string
	displayName string
}

// Options configures a new or resumed room.
type Options struct {
	Code   string
	Seed   int64
	Config Config
	Clock  quartz.Clock
	Logger *log.Logger
	Store  Persister
	Sender Sender
	// OnIdle is called from the coordinator goroutine when the room has
	// been idle past the configured timeout and can be evicted.
	OnIdle func(code string)
}

// Room is one coordinator. All fields below the sync primitives are
// owned by the loop goroutine; external callers go through the command
// channel.
type Room struct {
	code    string
	cfg     Config
	logger  *log.Logger
	clock   quartz.Clock
	persist Persister
	sender  Sender
	onIdle  func(string)

	commands  chan func()
	closed    chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup

	seed int64
	rng  *rand.Rand

	phase        Phase
	seats        *registry
	game         *game.Game
	bots         map[int]strategy.Strategy
	conns        map[string]*attachment
	alarms       *scheduler
	createdAt    time.Time
	lastActivity time.Time
	degraded     bool
}

// New creates an empty room in the waiting phase and starts its
// coordinator goroutine.
func New(opts Options) *Room {
	r := newRoom(opts)
	r.createdAt = r.clock.Now()
	r.lastActivity = r.createdAt
	r.alarms.set(alarmIdle, -1, r.createdAt.Add(r.cfg.IdleTimeout))
	r.start()
	// Write the empty room durably so the code is claimable after a
	// restart even before anyone joins.
	r.do(func() { _ = r.persistState() })
	return r
}

// Resume rebuilds a room from a durable snapshot and starts its
// coordinator goroutine. Alarms are re-derived from state rather than
// stored, so a deadline that lapsed while the room was evicted fires
// on the first tick.
func Resume(opts Options, snap Snapshot) (*Room, error) {
	opts.Code = snap.Code
	opts.Seed = snap.Seed
	r := newRoom(opts)
	r.phase = snap.Phase
	r.createdAt = snap.CreatedAt
	r.lastActivity = snap.LastActivityAt

	if len(snap.Seats) != len(r.seats.seats) {
		r.seats = newRegistry(len(snap.Seats))
	}
	for i, ss := range snap.Seats {
		s := r.seats.seats[i]
		s.PlayerID = ss.PlayerID
		s.DisplayName = ss.DisplayName
		s.Status = ss.Status
		s.Bot = ss.Bot
		if ss.ReservedUntil != nil {
			s.ReservedUntil = *ss.ReservedUntil
		}
		if ss.ReclaimUntil != nil {
			s.ReclaimUntil = *ss.ReclaimUntil
		}
		if ss.Bot && ss.BotStrategy != "" {
			strat, err := strategy.New(ss.BotStrategy, r.rng)
			if err != nil {
				return nil, fmt.Errorf("room %s seat %d: %w", snap.Code, i, err)
			}
			profile := strategy.DefaultProfile(ss.BotStrategy)
			s.Profile = &profile
			r.bots[i] = strat
		}
	}

	if snap.Game != nil {
		g, err := game.Restore(*snap.Game, r.rng)
		if err != nil {
			return nil, fmt.Errorf("room %s: %w", snap.Code, err)
		}
		r.game = g
	}
	if r.phase == PhasePlaying && r.game == nil {
		return nil, fmt.Errorf("room %s: playing phase without game state", snap.Code)
	}

	r.rederiveAlarms()
	r.start()
	return r, nil
}

func newRoom(opts Options) *Room {
	cfg := opts.Config.WithDefaults()
	clock := opts.Clock
	if clock == nil {
		clock = quartz.NewReal()
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	r := &Room{
		code:     opts.Code,
		cfg:      cfg,
		logger:   logger.With("room", opts.Code),
		clock:    clock,
		persist:  opts.Store,
		sender:   opts.Sender,
		onIdle:   opts.OnIdle,
		commands: make(chan func(), 64),
		closed:   make(chan struct{}),
		seed:     opts.Seed,
		rng:      randutil.New(opts.Seed),
		phase:    PhaseWaiting,
		seats:    newRegistry(cfg.MaxSeats),
		bots:     make(map[int]strategy.Strategy),
		conns:    make(map[string]*attachment),
	}
	r.alarms = newScheduler(clock, func() { r.do(r.handleTick) })
	return r
}

func (r *Room) start() {
	r.wg.Add(1)
	go r.loop()
}

// Close stops the coordinator. Pending commands are dropped; the last
// persisted snapshot remains authoritative.
func (r *Room) Close() {
	r.closeOnce.Do(func() {
		close(r.closed)
	})
	r.wg.Wait()
	r.alarms.stop()
}

// Code returns the room's join code.
func (r *Room) Code() string { return r.code }

func (r *Room) loop() {
	defer r.wg.Done()
	for {
		select {
		case fn := <-r.commands:
			fn()
		case <-r.closed:
			return
		}
	}
}

// do enqueues fn for the coordinator goroutine. Calls after Close are
// silently dropped.
func (r *Room) do(fn func()) {
	select {
	case r.commands <- fn:
	case <-r.closed:
	}
}

// Info is a point-in-time summary for room listings.
type Info struct {
	Code     string `json:"code"`
	Phase    Phase  `json:"phase"`
	Occupied int    `json:"occupied"`
	MaxSeats int    `json:"max_seats"`
}

// Info reports a summary, synchronized through the coordinator.
func (r *Room) Info() Info {
	reply := make(chan Info, 1)
	r.do(func() {
		reply <- Info{
			Code:     r.code,
			Phase:    r.phase,
			Occupied: r.seats.occupied(),
			MaxSeats: len(r.seats.seats),
		}
	})
	select {
	case info := <-reply:
		return info
	case <-r.closed:
		// Only immutable fields here; the loop may still be mid-command.
		return Info{Code: r.code}
	}
}

// --- connection-facing commands -------------------------------------

// Attach binds a connection to the room. A known identity reclaims its
// seat; a new identity takes an empty seat while the room is waiting;
// everyone else watches as a spectator.
func (r *Room) Attach(connID, playerID, displayName string) {
	r.do(func() { r.handleAttach(connID, playerID, displayName) })
}

// Detach drops a connection. An occupied seat enters its reclaim
// window during play, or frees immediately while waiting.
func (r *Room) Detach(connID string) {
	r.do(func() { r.handleDetach(connID) })
}

// StartGame begins the match. Host only, waiting phase only.
func (r *Room) StartGame(connID string) {
	r.do(func() { r.handleStart(connID) })
}

// AddBot seats an AI player. Host only, waiting phase only.
func (r *Room) AddBot(connID, strategyName string) {
	r.do(func() { r.handleAddBot(connID, strategyName) })
}

// Roll rolls the caller's non-kept dice.
func (r *Room) Roll(connID string) {
	r.do(func() { r.handleRoll(connID) })
}

// ToggleKeep flips the keep flag on one die.
func (r *Room) ToggleKeep(connID string, die int) {
	r.do(func() { r.handleToggleKeep(connID, die) })
}

// Score commits the caller's dice to a category.
func (r *Room) Score(connID string, category dicee.Category) {
	r.do(func() { r.handleScore(connID, category) })
}

// Leave vacates the caller's seat; during play this forfeits.
func (r *Room) Leave(connID string) {
	r.do(func() { r.handleLeave(connID) })
}

// Chat relays a table message from a seated player.
func (r *Room) Chat(connID, text string) {
	r.do(func() { r.handleChat(connID, text) })
}

// --- handlers (coordinator goroutine only) --------------------------

func (r *Room) handleAttach(connID, playerID, displayName string) {
	r.touch()
	now := r.clock.Now()

	if playerID != "" {
		if seat := r.seats.byPlayer(playerID); seat != nil {
			if seat.Bot {
				r.fail(connID, conflictf("identity already in use"))
				return
			}
			r.reattach(connID, seat, displayName, now)
			return
		}
	}

	if playerID != "" && r.phase == PhaseWaiting {
		if !r.ensureWritable(connID) {
			return
		}
		seat, err := r.seats.reserve(playerID, displayName, now.Add(r.cfg.ReservationTTL))
		if err == nil {
			seat, err = r.seats.confirm(playerID, now)
		}
		if err != nil {
			r.fail(connID, err)
			// No seat; fall through to spectate.
			r.conns[connID] = &attachment{connID: connID, displayName: displayName}
			r.sender.Unicast(connID, Event{EventRoomState, r.stateData()})
			return
		}
		r.alarms.clear(alarmReservation, seat.Index)
		r.conns[connID] = &attachment{connID: connID, playerID: playerID, displayName: displayName}
		if err := r.persistState(); err != nil {
			r.fail(connID, err)
			return
		}
		r.sender.Broadcast(Event{EventSeatAssigned, SeatAssignedData{
			SeatIndex:   seat.Index,
			PlayerID:    seat.PlayerID,
			DisplayName: seat.DisplayName,
		}})
		r.sender.Unicast(connID, Event{EventRoomState, r.stateData()})
		return
	}

	// Spectator: full state so the client can render, no seat.
	r.conns[connID] = &attachment{connID: connID, playerID: "", displayName: displayName}
	r.sender.Unicast(connID, Event{EventRoomState, r.stateData()})
}

// reattach handles a returning identity: reclaim of a disconnected
// seat, or a fresh socket superseding a live one.
func (r *Room) reattach(connID string, seat *Seat, displayName string, now time.Time) {
	wasDisconnected := seat.Status == SeatDisconnected
	reclaimed, err := r.seats.reclaim(seat.PlayerID, now)
	if err != nil {
		r.fail(connID, err)
		r.conns[connID] = &attachment{connID: connID, displayName: displayName}
		r.sender.Unicast(connID, Event{EventRoomState, r.stateData()})
		return
	}

	// The newer socket wins; stale ones for the same identity are
	// dropped from the transport so they stop receiving broadcasts.
	for id, a := range r.conns {
		if a.playerID == seat.PlayerID && id != connID {
			delete(r.conns, id)
			r.sender.Close(id)
		}
	}
	r.conns[connID] = &attachment{connID: connID, playerID: seat.PlayerID, displayName: seat.DisplayName}
	r.alarms.clear(alarmReclaim, reclaimed.Index)

	if wasDisconnected {
		if err := r.persistState(); err != nil {
			r.fail(connID, err)
			return
		}
		r.sender.Broadcast(Event{EventPlayerReconnected, PlayerPresenceData{
			SeatIndex: reclaimed.Index,
			PlayerID:  reclaimed.PlayerID,
		}})
	}
	r.sender.Unicast(connID, Event{EventSeatAssigned, SeatAssignedData{
		SeatIndex:   reclaimed.Index,
		PlayerID:    reclaimed.PlayerID,
		DisplayName: reclaimed.DisplayName,
		Reclaimed:   wasDisconnected,
	}})
	r.sender.Unicast(connID, Event{EventRoomState, r.stateData()})
}

func (r *Room) handleDetach(connID string) {
	a, ok := r.conns[connID]
	if !ok {
		return
	}
	delete(r.conns, connID)
	r.touch()

	if a.playerID != "" && !r.identityConnected(a.playerID) {
		seat := r.seats.byPlayer(a.playerID)
		if seat != nil && seat.Status == SeatOccupied && !seat.Bot {
			switch r.phase {
			case PhasePlaying:
				deadline := r.clock.Now().Add(r.cfg.ReclaimWindow)
				if s := r.seats.markDisconnected(a.playerID, deadline); s != nil {
					r.alarms.set(alarmReclaim, s.Index, deadline)
					if err := r.persistState(); err == nil {
						d := deadline
						r.sender.Broadcast(Event{EventPlayerDisconnected, PlayerPresenceData{
							SeatIndex: s.Index,
							PlayerID:  s.PlayerID,
							Deadline:  &d,
						}})
					}
				}
			case PhaseWaiting:
				idx := seat.Index
				r.seats.release(seat, ReleaseLeft)
				r.alarms.clearSeat(idx)
				if err := r.persistState(); err == nil {
					r.sender.Broadcast(Event{EventRoomState, r.stateData()})
				}
			}
		}
	}

	if len(r.conns) == 0 {
		r.alarms.set(alarmIdle, -1, r.clock.Now().Add(r.cfg.IdleTimeout))
	}
}

func (r *Room) handleStart(connID string) {
	a := r.conns[connID]
	if a == nil || a.playerID == "" {
		r.fail(connID, validationf("take a seat before starting"))
		return
	}
	if r.phase != PhaseWaiting {
		r.fail(connID, conflictf("game already %s", r.phase))
		return
	}
	host := r.seats.host()
	if host == nil || host.PlayerID != a.playerID {
		r.fail(connID, validationf("only the host may start the game"))
		return
	}
	if n := r.seats.occupied(); n < r.cfg.MinPlayers {
		r.fail(connID, validationf("need at least %d players, have %d", r.cfg.MinPlayers, n))
		return
	}
	if !r.ensureWritable(connID) {
		return
	}

	var players []game.PlayerID
	for _, s := range r.seats.seats {
		if s.Status == SeatOccupied || s.Status == SeatDisconnected {
			players = append(players, game.PlayerID(s.PlayerID))
		}
	}
	g, err := game.New(players, r.rng)
	if err != nil {
		r.fail(connID, err)
		return
	}
	r.game = g
	r.phase = PhasePlaying
	r.touch()

	if err := r.persistState(); err != nil {
		// Roll back so a retry can start cleanly.
		r.game = nil
		r.phase = PhaseWaiting
		r.fail(connID, err)
		return
	}
	r.sender.Broadcast(Event{EventGameStarted, r.stateData()})
	r.afterTransition()
}

func (r *Room) handleAddBot(connID, strategyName string) {
	a := r.conns[connID]
	if a == nil || a.playerID == "" {
		r.fail(connID, validationf("take a seat before adding a bot"))
		return
	}
	if r.phase != PhaseWaiting {
		r.fail(connID, conflictf("cannot add a bot once the game is %s", r.phase))
		return
	}
	host := r.seats.host()
	if host == nil || host.PlayerID != a.playerID {
		r.fail(connID, validationf("only the host may add bots"))
		return
	}
	if strategyName == "" {
		strategyName = r.cfg.DefaultBot
	}
	strat, err := strategy.New(strategyName, r.rng)
	if err != nil {
		r.fail(connID, validationf("%s", err))
		return
	}
	if !r.ensureWritable(connID) {
		return
	}

	seat := r.seats.firstEmpty()
	if seat == nil {
		r.fail(connID, capacityf("no seats available"))
		return
	}
	profile := strategy.DefaultProfile(strategyName)
	seat.PlayerID = fmt.Sprintf("bot-%s-%d", strategyName, seat.Index)
	seat.DisplayName = fmt.Sprintf("%s bot", strategyName)
	seat.Status = SeatOccupied
	seat.Bot = true
	seat.Profile = &profile
	r.bots[seat.Index] = strat
	r.touch()

	if err := r.persistState(); err != nil {
		idx := seat.Index
		r.seats.release(seat, ReleaseRoomClosed)
		delete(r.bots, idx)
		r.fail(connID, err)
		return
	}
	r.sender.Broadcast(Event{EventSeatAssigned, SeatAssignedData{
		SeatIndex:   seat.Index,
		PlayerID:    seat.PlayerID,
		DisplayName: seat.DisplayName,
	}})
}

func (r *Room) handleRoll(connID string) {
	p, ok := r.actingPlayer(connID)
	if !ok {
		return
	}
	if !r.ensureWritable(connID) {
		return
	}
	turn, err := r.game.Roll(p)
	if err != nil {
		r.fail(connID, err)
		return
	}
	r.touch()
	if err := r.persistState(); err != nil {
		r.fail(connID, err)
		return
	}
	r.sender.Broadcast(Event{EventDiceRolled, DiceRolledData{
		PlayerID:       string(p),
		Dice:           *turn.Dice,
		RollsRemaining: turn.RollsRemaining,
	}})
	r.afterTransition()
}

func (r *Room) handleToggleKeep(connID string, die int) {
	p, ok := r.actingPlayer(connID)
	if !ok {
		return
	}
	if !r.ensureWritable(connID) {
		return
	}
	turn, err := r.game.ToggleKeep(p, die)
	if err != nil {
		r.fail(connID, err)
		return
	}
	r.touch()
	if err := r.persistState(); err != nil {
		r.fail(connID, err)
		return
	}
	r.sender.Broadcast(Event{EventDiceKept, DiceKeptData{
		PlayerID: string(p),
		Kept:     turn.Kept,
	}})
}

func (r *Room) handleScore(connID string, category dicee.Category) {
	p, ok := r.actingPlayer(connID)
	if !ok {
		return
	}
	if !r.ensureWritable(connID) {
		return
	}
	out, err := r.game.Score(p, category)
	if err != nil {
		r.fail(connID, err)
		return
	}
	r.touch()
	r.broadcastScore(out, false, connID)
}

// broadcastScore persists and announces a score outcome, human or
// forced. On persistence failure the error goes to connID when set,
// otherwise to the whole room.
func (r *Room) broadcastScore(out game.ScoreOutcome, auto bool, connID string) {
	if err := r.persistState(); err != nil {
		if connID != "" {
			r.fail(connID, err)
		} else {
			r.sender.Broadcast(Event{EventError, ErrorData{Code: CodeInternal, Message: asError(err).Message}})
		}
		return
	}
	r.sender.Broadcast(Event{EventCategoryScored, CategoryScoredData{
		PlayerID:     string(out.Player),
		Category:     out.Category,
		Score:        out.Score,
		Auto:         auto,
		NextPlayerID: string(out.NextPlayer),
		Round:        out.NextRound,
	}})
	r.afterTransition()
}

func (r *Room) handleLeave(connID string) {
	a := r.conns[connID]
	if a == nil || a.playerID == "" {
		r.fail(connID, validationf("no seat to leave"))
		return
	}
	seat := r.seats.byPlayer(a.playerID)
	if seat == nil {
		r.fail(connID, validationf("no seat to leave"))
		return
	}
	if !r.ensureWritable(connID) {
		return
	}
	a.playerID = ""
	r.vacateSeat(seat, ReleaseLeft)
}

func (r *Room) handleChat(connID, text string) {
	a := r.conns[connID]
	if a == nil || a.playerID == "" {
		r.fail(connID, validationf("spectators cannot chat"))
		return
	}
	if text == "" {
		r.fail(connID, validationf("empty message"))
		return
	}
	r.touch()
	r.sender.Broadcast(Event{EventChat, ChatData{
		PlayerID:    a.playerID,
		DisplayName: a.displayName,
		Text:        text,
	}})
}

// vacateSeat releases a seat during any phase, forfeiting mid-game.
func (r *Room) vacateSeat(seat *Seat, reason ReleaseReason) {
	idx := seat.Index
	playerID := seat.PlayerID
	r.alarms.clearSeat(idx)

	if r.phase == PhasePlaying && r.game != nil && !r.game.Over() {
		// Forfeit keeps the scorecard for standings; the seat frees.
		_ = r.game.Forfeit(game.PlayerID(playerID))
		r.seats.release(seat, reason)
		delete(r.bots, idx)
		if err := r.persistState(); err != nil {
			r.sender.Broadcast(Event{EventError, ErrorData{Code: CodeInternal, Message: asError(err).Message}})
			return
		}
		r.sender.Broadcast(Event{EventPlayerForfeited, PlayerForfeitedData{
			SeatIndex: idx,
			PlayerID:  playerID,
			Reason:    reason,
		}})
		r.afterTransition()
		return
	}

	r.seats.release(seat, reason)
	delete(r.bots, idx)
	if err := r.persistState(); err != nil {
		r.sender.Broadcast(Event{EventError, ErrorData{Code: CodeInternal, Message: asError(err).Message}})
		return
	}
	r.sender.Broadcast(Event{EventRoomState, r.stateData()})
}

// --- alarms ----------------------------------------------------------

// handleTick drains every due deadline. Each case re-checks its guard
// against current state, so an alarm that raced a user command is a
// no-op.
func (r *Room) handleTick() {
	now := r.clock.Now()
	for _, k := range r.alarms.due(now) {
		r.alarms.clear(k.kind, k.seat)
		switch k.kind {
		case alarmReservation:
			r.fireReservation(k.seat, now)
		case alarmReclaim:
			r.fireReclaim(k.seat, now)
		case alarmDecision:
			r.fireDecision()
		case alarmBotThink:
			r.fireBotThink(k.seat)
		case alarmIdle:
			r.fireIdle()
		}
	}
	r.alarms.arm()
}

func (r *Room) fireReservation(idx int, now time.Time) {
	if idx < 0 || idx >= len(r.seats.seats) {
		return
	}
	seat := r.seats.seats[idx]
	if seat.Status != SeatReserved || now.Before(seat.ReservedUntil) {
		return
	}
	r.logger.Info("seat reservation expired", "seat", idx, "player", seat.PlayerID)
	r.seats.release(seat, ReleaseTimeout)
	if err := r.persistState(); err != nil {
		return
	}
	r.sender.Broadcast(Event{EventRoomState, r.stateData()})
}

func (r *Room) fireReclaim(idx int, now time.Time) {
	if idx < 0 || idx >= len(r.seats.seats) {
		return
	}
	seat := r.seats.seats[idx]
	if seat.Status != SeatDisconnected || now.Before(seat.ReclaimUntil) {
		return
	}
	r.logger.Info("reclaim window elapsed", "seat", idx, "player", seat.PlayerID)
	r.vacateSeat(seat, ReleaseTimeout)
}

func (r *Room) fireDecision() {
	if r.phase != PhasePlaying || r.game == nil || !r.game.MustScore() {
		return
	}
	p := r.game.CurrentPlayer()
	cat, ok := r.game.AutoCategory()
	if !ok {
		return
	}
	r.logger.Info("decision timeout, forcing score", "player", p, "category", cat)
	out, err := r.game.Score(p, cat)
	if err != nil {
		r.logger.Error("forced score failed", "player", p, "error", err)
		return
	}
	r.broadcastScore(out, true, "")
}

func (r *Room) fireBotThink(idx int) {
	if r.phase != PhasePlaying || r.game == nil || r.game.Over() {
		return
	}
	if idx < 0 || idx >= len(r.seats.seats) {
		return
	}
	seat := r.seats.seats[idx]
	strat := r.bots[idx]
	if !seat.Bot || strat == nil || string(r.game.CurrentPlayer()) != seat.PlayerID {
		return
	}
	r.botStep(seat, strat)
}

func (r *Room) fireIdle() {
	if len(r.conns) > 0 && r.phase != PhaseEnded {
		return
	}
	r.logger.Info("room idle, evicting", "phase", r.phase)
	if r.onIdle != nil {
		r.onIdle(r.code)
	}
}

// rederiveAlarms rebuilds the alarm set from seat and game state after
// a resume.
func (r *Room) rederiveAlarms() {
	for _, s := range r.seats.seats {
		switch s.Status {
		case SeatReserved:
			r.alarms.set(alarmReservation, s.Index, s.ReservedUntil)
		case SeatDisconnected:
			r.alarms.set(alarmReclaim, s.Index, s.ReclaimUntil)
		}
	}
	if r.phase == PhasePlaying && r.game != nil && !r.game.Over() {
		r.scheduleTurnAlarms()
	}
	if len(r.conns) == 0 {
		r.alarms.set(alarmIdle, -1, r.clock.Now().Add(r.cfg.IdleTimeout))
	}
}

// afterTransition schedules whatever the new game state needs: the end
// of the match, a forced-score deadline, or a bot's next step.
func (r *Room) afterTransition() {
	r.alarms.clear(alarmDecision, -1)
	if r.game == nil {
		return
	}
	if r.game.Over() {
		r.finishGame()
		return
	}
	r.scheduleTurnAlarms()
}

func (r *Room) scheduleTurnAlarms() {
	now := r.clock.Now()
	current := string(r.game.CurrentPlayer())
	seat := r.seats.byPlayer(current)
	if seat == nil {
		return
	}
	if seat.Bot {
		delay := r.cfg.DecisionTimeout / 4
		if seat.Profile != nil {
			delay = seat.Profile.ThinkDelay(r.rng)
		}
		r.alarms.set(alarmBotThink, seat.Index, now.Add(delay))
		return
	}
	if r.game.MustScore() {
		r.alarms.set(alarmDecision, -1, now.Add(r.cfg.DecisionTimeout))
	}
}

func (r *Room) finishGame() {
	if r.phase == PhaseEnded {
		return
	}
	r.phase = PhaseEnded
	data := r.gameOverData()
	if err := r.persistState(); err != nil {
		r.sender.Broadcast(Event{EventError, ErrorData{Code: CodeInternal, Message: asError(err).Message}})
		return
	}
	r.sender.Broadcast(Event{EventGameOver, data})
	r.alarms.set(alarmIdle, -1, r.clock.Now().Add(r.cfg.IdleTimeout))
}

func (r *Room) gameOverData() GameOverData {
	totals := r.game.FinalTotals()
	scores := make([]FinalScore, 0, len(totals))
	for _, p := range r.game.Players() {
		scores = append(scores, FinalScore{
			PlayerID: string(p),
			Totals:   totals[p],
			Dropped:  r.game.Forfeited(p),
		})
	}
	sort.SliceStable(scores, func(i, j int) bool {
		if scores[i].Dropped != scores[j].Dropped {
			return !scores[i].Dropped
		}
		return scores[i].Totals.Grand > scores[j].Totals.Grand
	})
	data := GameOverData{Scores: scores}
	if len(scores) > 0 && !scores[0].Dropped {
		data.Winner = scores[0].PlayerID
	}
	return data
}

// --- bot driving -----------------------------------------------------

// botStep applies exactly one strategy decision through the same game
// transitions human commands use, then reschedules via afterTransition.
func (r *Room) botStep(seat *Seat, strat strategy.Strategy) {
	p := game.PlayerID(seat.PlayerID)
	dec := strat.Decide(r.gameContext(p))

	switch dec.Action {
	case strategy.ActionScore:
		out, err := r.game.Score(p, dec.Category)
		if err != nil {
			r.logger.Error("bot score rejected, forfeiting seat", "seat", seat.Index, "error", err)
			r.vacateSeat(seat, ReleaseForfeit)
			return
		}
		r.broadcastScore(out, false, "")
		return

	case strategy.ActionKeep:
		turn := r.game.Turn()
		for die := 0; die < 5; die++ {
			if turn.Kept[die] != dec.Keep[die] {
				if t, err := r.game.ToggleKeep(p, die); err == nil {
					turn = t
				}
			}
		}
		if err := r.persistState(); err == nil {
			r.sender.Broadcast(Event{EventDiceKept, DiceKeptData{
				PlayerID: seat.PlayerID,
				Kept:     turn.Kept,
			}})
		}
		fallthrough

	case strategy.ActionRoll:
		turn, err := r.game.Roll(p)
		if err != nil {
			r.logger.Error("bot roll rejected, forfeiting seat", "seat", seat.Index, "error", err)
			r.vacateSeat(seat, ReleaseForfeit)
			return
		}
		if err := r.persistState(); err != nil {
			r.sender.Broadcast(Event{EventError, ErrorData{Code: CodeInternal, Message: asError(err).Message}})
			return
		}
		r.sender.Broadcast(Event{EventDiceRolled, DiceRolledData{
			PlayerID:       seat.PlayerID,
			Dice:           *turn.Dice,
			RollsRemaining: turn.RollsRemaining,
		}})
		r.afterTransition()
	}
}

func (r *Room) gameContext(p game.PlayerID) strategy.GameContext {
	turn := r.game.Turn()
	sc := r.game.Scorecard(p)
	totals := sc.Totals()

	ctx := strategy.GameContext{
		Dice:           turn.Dice,
		Kept:           turn.Kept,
		RollsRemaining: turn.RollsRemaining,
		Available:      sc.Available(),
		UpperSubtotal:  totals.Upper,
		OwnTotal:       totals.Grand,
		Round:          r.game.Round(),
		FinalRound:     r.game.FinalRound(),
	}
	best := -1
	for _, other := range r.game.Players() {
		if other == p {
			continue
		}
		g := r.game.Scorecard(other).Totals().Grand
		ctx.OpponentTotals = append(ctx.OpponentTotals, g)
		if g > best {
			best = g
		}
	}
	if best >= 0 {
		ctx.ScoreDiff = totals.Grand - best
	}
	return ctx
}

// --- shared helpers --------------------------------------------------

// actingPlayer resolves a connection to its seated player for a game
// command, rejecting spectators and out-of-phase calls.
func (r *Room) actingPlayer(connID string) (game.PlayerID, bool) {
	a := r.conns[connID]
	if a == nil || a.playerID == "" {
		r.fail(connID, validationf("spectators cannot play"))
		return "", false
	}
	if r.phase != PhasePlaying || r.game == nil {
		r.fail(connID, validationf("no game in progress"))
		return "", false
	}
	return game.PlayerID(a.playerID), true
}

// ensureWritable gates mutations while degraded: one persistence retry,
// then refusal. A successful retry re-establishes the snapshot and
// clears the degraded flag.
func (r *Room) ensureWritable(connID string) bool {
	if !r.degraded {
		return true
	}
	if err := r.persistState(); err != nil {
		r.fail(connID, internalf("room temporarily unavailable"))
		return false
	}
	return true
}

// persistState writes the current snapshot. Success before broadcast is
// the room's durability contract; failure marks the room degraded.
func (r *Room) persistState() error {
	if r.persist == nil {
		return nil
	}
	raw, err := r.encodeSnapshot()
	if err != nil {
		r.degraded = true
		r.logger.Error("snapshot encode failed", "error", err)
		return internalf("room temporarily unavailable")
	}
	rec := store.Record{
		Code:      r.code,
		Version:   store.SnapshotVersion,
		Phase:     string(r.phase),
		UpdatedAt: r.clock.Now(),
		Snapshot:  raw,
	}
	if wake, ok := r.nextWake(); ok {
		rec.WakeAt = &wake
	}
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := r.persist.Save(ctx, rec); err != nil {
		r.degraded = true
		r.logger.Error("snapshot save failed", "error", err)
		return internalf("room temporarily unavailable")
	}
	r.degraded = false
	return nil
}

// nextWake is the earliest deadline that must fire even if the room is
// evicted from memory. Idle eviction and bot pacing are in-memory
// concerns and re-derived on resume.
func (r *Room) nextWake() (time.Time, bool) {
	var min time.Time
	for k, at := range r.alarms.deadlines {
		if k.kind == alarmIdle || k.kind == alarmBotThink {
			continue
		}
		if min.IsZero() || at.Before(min) {
			min = at
		}
	}
	return min, !min.IsZero()
}

func (r *Room) identityConnected(playerID string) bool {
	for _, a := range r.conns {
		if a.playerID == playerID {
			return true
		}
	}
	return false
}

func (r *Room) touch() {
	r.lastActivity = r.clock.Now()
	if len(r.conns) > 0 && r.phase != PhaseEnded {
		r.alarms.clear(alarmIdle, -1)
	}
}

func (r *Room) fail(connID string, err error) {
	e := asError(err)
	if r.sender != nil && connID != "" {
		r.sender.Unicast(connID, Event{EventError, ErrorData{Code: e.Code, Message: e.Message}})
	}
}

// stateData builds the full observable room state.
func (r *Room) stateData() RoomStateData {
	data := RoomStateData{
		Code:  r.code,
		Phase: r.phase,
		Seats: r.seats.views(),
	}
	if r.game != nil {
		data.Round = r.game.Round()
		if !r.game.Over() {
			turn := r.game.Turn()
			data.Turn = &TurnView{
				PlayerID:       string(r.game.CurrentPlayer()),
				Dice:           turn.Dice,
				Kept:           turn.Kept,
				RollsRemaining: turn.RollsRemaining,
			}
		}
		for _, p := range r.game.Players() {
			sc := r.game.Scorecard(p)
			data.Scorecards = append(data.Scorecards, ScorecardView{
				PlayerID: string(p),
				Cells:    sc.Cells,
				Totals:   sc.Totals(),
				Dropped:  r.game.Forfeited(p),
			})
		}
	}
	return data
}
