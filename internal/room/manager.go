package room

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/playdicee/dicee/internal/roomid"
	"github.com/playdicee/dicee/internal/store"
)

// ErrRoomNotFound is returned when a code matches neither a live room
// nor a durable snapshot.
var ErrRoomNotFound = errors.New("room not found")

const (
	createAttempts       = 5
	defaultSweepInterval = time.Minute
	defaultGCWindow      = 24 * time.Hour
)

// ManagerOptions configures a Manager.
type ManagerOptions struct {
	Store  *store.Store
	Clock  quartz.Clock
	Logger *log.Logger
	Config Config
	// SenderFor binds a transport sender to a room code; supplied by
	// the connection layer.
	SenderFor func(code string) Sender
	// Seed overrides per-room seeding; nil derives seeds from the clock.
	Seed func() int64
	// Codes overrides room-code randomness; nil uses crypto/rand.
	Codes roomid.RandSource
	// SweepInterval paces the maintenance loop: waking due rooms and
	// collecting stale snapshots.
	SweepInterval time.Duration
	// GCWindow is how long a snapshot outlives its last activity.
	GCWindow time.Duration
}

// Manager owns the live room set: creation, lookup with resume from
// durable storage, idle eviction, and snapshot garbage collection.
type Manager struct {
	store     *store.Store
	clock     quartz.Clock
	logger    *log.Logger
	cfg       Config
	senderFor func(string) Sender
	seedFn    func() int64
	sweepEach time.Duration
	gcWindow  time.Duration
	gen       *roomid.Generator

	mu      sync.Mutex
	rooms   map[string]*Room
	seedSeq int64
	closed  bool
}

// NewManager builds a Manager. Store may be nil for ephemeral rooms.
func NewManager(opts ManagerOptions) *Manager {
	clock := opts.Clock
	if clock == nil {
		clock = quartz.NewReal()
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	sweep := opts.SweepInterval
	if sweep <= 0 {
		sweep = defaultSweepInterval
	}
	gc := opts.GCWindow
	if gc <= 0 {
		gc = defaultGCWindow
	}
	m := &Manager{
		store:     opts.Store,
		clock:     clock,
		logger:    logger.WithPrefix("rooms"),
		cfg:       opts.Config.WithDefaults(),
		senderFor: opts.SenderFor,
		seedFn:    opts.Seed,
		sweepEach: sweep,
		gcWindow:  gc,
		rooms:     make(map[string]*Room),
	}
	m.gen = roomid.NewGenerator(opts.Codes)
	return m
}

func (m *Manager) nextSeed() int64 {
	if m.seedFn != nil {
		return m.seedFn()
	}
	m.seedSeq++
	return m.clock.Now().UnixNano() + m.seedSeq
}

// Create allocates a room with a fresh code and persists its initial
// snapshot so the code survives a restart immediately.
func (m *Manager) Create() (*Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, fmt.Errorf("manager is shut down")
	}

	for attempt := 0; attempt < createAttempts; attempt++ {
		code := m.gen.Generate()
		if _, live := m.rooms[code]; live {
			continue
		}
		if m.store != nil {
			ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
			_, err := m.store.Load(ctx, code)
			cancel()
			if err == nil {
				continue
			}
			if !errors.Is(err, store.ErrNotFound) {
				return nil, fmt.Errorf("check room code: %w", err)
			}
		}
		r := New(m.roomOptions(code, m.nextSeed()))
		m.rooms[code] = r
		m.logger.Info("room created", "room", code)
		return r, nil
	}
	return nil, fmt.Errorf("could not allocate a unique room code")
}

// Get finds a live room by code, resuming it from durable storage when
// it was evicted. Codes are normalized, so visually ambiguous
// characters still land on the right room.
func (m *Manager) Get(code string) (*Room, error) {
	code = roomid.Normalize(code)
	if err := roomid.Validate(code); err != nil {
		return nil, &Error{Code: CodeValidation, Message: err.Error()}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, fmt.Errorf("manager is shut down")
	}
	if r, ok := m.rooms[code]; ok {
		return r, nil
	}
	return m.resumeLocked(code)
}

func (m *Manager) resumeLocked(code string) (*Room, error) {
	if m.store == nil {
		return nil, ErrRoomNotFound
	}
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	rec, err := m.store.Load(ctx, code)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrRoomNotFound
		}
		return nil, fmt.Errorf("load room %s: %w", code, err)
	}
	snap, err := decodeSnapshot(rec.Snapshot)
	if err != nil {
		return nil, fmt.Errorf("room %s: %w", code, err)
	}
	r, err := Resume(m.roomOptions(code, snap.Seed), snap)
	if err != nil {
		return nil, err
	}
	m.rooms[code] = r
	m.logger.Info("room resumed", "room", code, "phase", snap.Phase)
	return r, nil
}

func (m *Manager) roomOptions(code string, seed int64) Options {
	opts := Options{
		Code:   code,
		Seed:   seed,
		Config: m.cfg,
		Clock:  m.clock,
		Logger: m.logger,
		Store:  m.store,
		OnIdle: m.evict,
	}
	if m.senderFor != nil {
		opts.Sender = m.senderFor(code)
	}
	return opts
}

// List summarizes the live rooms.
func (m *Manager) List() []Info {
	m.mu.Lock()
	rooms := make([]*Room, 0, len(m.rooms))
	for _, r := range m.rooms {
		rooms = append(rooms, r)
	}
	m.mu.Unlock()

	infos := make([]Info, 0, len(rooms))
	for _, r := range rooms {
		infos = append(infos, r.Info())
	}
	return infos
}

// evict removes an idle room from memory. The durable snapshot stays;
// Get resumes it on the next join. Called from the room's own
// goroutine, so the Close happens elsewhere.
func (m *Manager) evict(code string) {
	m.mu.Lock()
	r, ok := m.rooms[code]
	if ok {
		delete(m.rooms, code)
	}
	m.mu.Unlock()
	if !ok {
		return
	}
	m.logger.Info("room evicted", "room", code)
	go r.Close()
}

// Run drives the maintenance loop until ctx is done: resuming evicted
// rooms whose persisted deadline fell due, and collecting snapshots
// past the GC window.
func (m *Manager) Run(ctx context.Context) error {
	ticker := m.clock.NewTicker(m.sweepEach, "manager-sweep")
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			m.sweep(ctx)
		}
	}
}

func (m *Manager) sweep(ctx context.Context) {
	if m.store == nil {
		return
	}
	now := m.clock.Now()

	codes, err := m.store.DueWakes(ctx, now)
	if err != nil {
		m.logger.Error("due-wake scan failed", "error", err)
	}
	for _, code := range codes {
		m.mu.Lock()
		_, live := m.rooms[code]
		var resumeErr error
		if !live && !m.closed {
			_, resumeErr = m.resumeLocked(code)
		}
		m.mu.Unlock()
		if resumeErr != nil {
			m.logger.Error("wake resume failed", "room", code, "error", resumeErr)
		}
	}

	if n, err := m.store.Sweep(ctx, now.Add(-m.gcWindow)); err != nil {
		m.logger.Error("snapshot sweep failed", "error", err)
	} else if n > 0 {
		m.logger.Info("swept stale snapshots", "count", n)
	}
}

// Close stops every live room. Snapshots stay durable.
func (m *Manager) Close() {
	m.mu.Lock()
	m.closed = true
	rooms := make([]*Room, 0, len(m.rooms))
	for _, r := range m.rooms {
		rooms = append(rooms, r)
	}
	m.rooms = make(map[string]*Room)
	m.mu.Unlock()

	for _, r := range rooms {
		r.Close()
	}
}
