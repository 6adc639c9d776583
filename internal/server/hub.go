package server

import (
	"sync"

	"github.com/charmbracelet/log"

	"github.com/playdicee/dicee/internal/room"
)

// Hub tracks live connections and their room membership, and fans room
// events out to the sockets watching each room. Per-connection ordering
// is preserved: events are appended to each connection's send queue in
// the order the coordinator emitted them.
type Hub struct {
	mu     sync.RWMutex
	conns  map[string]*Connection            // by connection ID
	rooms  map[string]map[string]*Connection // room code → conn ID → conn
	logger *log.Logger
}

// NewHub creates an empty hub
func NewHub(logger *log.Logger) *Hub {
	return &Hub{
		conns:  make(map[string]*Connection),
		rooms:  make(map[string]map[string]*Connection),
		logger: logger.WithPrefix("hub"),
	}
}

// Register adds a connection to the hub
func (h *Hub) Register(c *Connection) {
	h.mu.Lock()
	h.conns[c.ID()] = c
	total := len(h.conns)
	h.mu.Unlock()
	h.logger.Info("Client connected", "conn", c.ID(), "total", total)
}

// Unregister removes a connection and its room membership
func (h *Hub) Unregister(c *Connection) {
	h.mu.Lock()
	delete(h.conns, c.ID())
	for code, members := range h.rooms {
		if _, ok := members[c.ID()]; ok {
			delete(members, c.ID())
			if len(members) == 0 {
				delete(h.rooms, code)
			}
		}
	}
	total := len(h.conns)
	h.mu.Unlock()
	h.logger.Info("Client disconnected", "conn", c.ID(), "total", total)
}

// Join moves a connection into a room's broadcast set. A connection
// watches at most one room; joining another leaves the first.
func (h *Hub) Join(code string, c *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for prev, members := range h.rooms {
		if prev != code {
			delete(members, c.ID())
			if len(members) == 0 {
				delete(h.rooms, prev)
			}
		}
	}
	if h.rooms[code] == nil {
		h.rooms[code] = make(map[string]*Connection)
	}
	h.rooms[code][c.ID()] = c
}

// Leave removes a connection from a room's broadcast set
func (h *Hub) Leave(code string, c *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if members, ok := h.rooms[code]; ok {
		delete(members, c.ID())
		if len(members) == 0 {
			delete(h.rooms, code)
		}
	}
}

// SenderFor returns a room.Sender bound to one room code
func (h *Hub) SenderFor(code string) room.Sender {
	return &roomSender{hub: h, code: code}
}

type roomSender struct {
	hub  *Hub
	code string
}

func (s *roomSender) Broadcast(ev room.Event) {
	msg, err := eventMessage(ev)
	if err != nil {
		s.hub.logger.Error("Failed to encode event", "type", ev.Type, "error", err)
		return
	}
	s.hub.mu.RLock()
	members := make([]*Connection, 0, len(s.hub.rooms[s.code]))
	for _, c := range s.hub.rooms[s.code] {
		members = append(members, c)
	}
	s.hub.mu.RUnlock()
	for _, c := range members {
		_ = c.SendMessage(msg)
	}
}

// Close drops a superseded socket: out of the broadcast set first so
// no further events reach it, then the socket itself.
func (s *roomSender) Close(connID string) {
	s.hub.mu.Lock()
	c := s.hub.conns[connID]
	if members, ok := s.hub.rooms[s.code]; ok {
		delete(members, connID)
		if len(members) == 0 {
			delete(s.hub.rooms, s.code)
		}
	}
	s.hub.mu.Unlock()
	if c != nil {
		_ = c.Close()
	}
}

func (s *roomSender) Unicast(connID string, ev room.Event) {
	msg, err := eventMessage(ev)
	if err != nil {
		s.hub.logger.Error("Failed to encode event", "type", ev.Type, "error", err)
		return
	}
	s.hub.mu.RLock()
	c := s.hub.conns[connID]
	s.hub.mu.RUnlock()
	if c != nil {
		_ = c.SendMessage(msg)
	}
}
