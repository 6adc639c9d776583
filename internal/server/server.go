package server

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/playdicee/dicee/internal/room"
)

// Server accepts WebSocket clients and routes their commands to room
// coordinators. It owns no game state; rooms do.
type Server struct {
	addr     string
	upgrader websocket.Upgrader
	hub      *Hub
	rooms    *room.Manager
	logger   *log.Logger

	mu         sync.Mutex
	httpServer *http.Server
	conns      map[*Connection]struct{}
}

// NewServer creates a WebSocket server on addr, backed by the given
// room manager. The manager's SenderFor must be wired to the returned
// server's hub (see Hub.SenderFor).
func NewServer(addr string, hub *Hub, rooms *room.Manager, logger *log.Logger) *Server {
	return &Server{
		addr: addr,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// For development, allow all origins
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		hub:    hub,
		rooms:  rooms,
		logger: logger.WithPrefix("server"),
		conns:  make(map[*Connection]struct{}),
	}
}

// Start serves until Stop is called
func (s *Server) Start() error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)

	srv := &http.Server{Addr: s.addr, Handler: mux}
	s.mu.Lock()
	s.httpServer = srv
	s.mu.Unlock()

	s.logger.Info("Starting WebSocket server", "addr", s.addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop shuts the listener down and closes every client
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv := s.httpServer
	conns := make([]*Connection, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	for _, c := range conns {
		_ = c.Close()
	}
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

// handleWebSocket handles WebSocket upgrade requests
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("Failed to upgrade connection", "error", err)
		return
	}

	client := NewConnection(conn, s.logger, s)
	s.mu.Lock()
	s.conns[client] = struct{}{}
	s.mu.Unlock()
	s.hub.Register(client)
	client.Start()
}

// handleHealth responds to health check requests
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// dropConnection cleans up after a closed socket: the room opens the
// seat's reclaim window, the hub forgets the socket.
func (s *Server) dropConnection(c *Connection) {
	if r := c.Room(); r != nil {
		r.Detach(c.ID())
	}
	s.hub.Unregister(c)
	s.mu.Lock()
	delete(s.conns, c)
	s.mu.Unlock()
}

// handleCreateRoom makes a room and seats the creator in it
func (s *Server) handleCreateRoom(c *Connection, data CreateRoomData) {
	if data.PlayerID == "" {
		c.sendError("validation", "playerId is required")
		return
	}
	r, err := s.rooms.Create()
	if err != nil {
		s.logger.Error("Failed to create room", "error", err)
		c.sendError("internal", "Could not create a room")
		return
	}
	msg, err := NewMessage(MessageTypeRoomCreated, RoomCreatedData{RoomCode: r.Code()})
	if err == nil {
		_ = c.SendMessage(msg)
	}
	s.attach(c, r, data.PlayerID, data.DisplayName)
}

// handleJoinRoom attaches a connection to an existing room, resuming
// it from storage when needed
func (s *Server) handleJoinRoom(c *Connection, data JoinRoomData) {
	r, err := s.rooms.Get(data.RoomCode)
	if err != nil {
		if errors.Is(err, room.ErrRoomNotFound) {
			c.sendError("not_found", "No such room: "+data.RoomCode)
			return
		}
		var re *room.Error
		if errors.As(err, &re) {
			c.sendError(string(re.Code), re.Message)
			return
		}
		s.logger.Error("Failed to open room", "room", data.RoomCode, "error", err)
		c.sendError("internal", "Could not open the room")
		return
	}
	s.attach(c, r, data.PlayerID, data.DisplayName)
}

func (s *Server) attach(c *Connection, r *room.Room, playerID, displayName string) {
	if prev := c.Room(); prev != nil && prev != r {
		prev.Detach(c.ID())
		s.hub.Leave(prev.Code(), c)
	}
	c.SetPlayer(playerID)
	c.SetRoom(r)
	s.hub.Join(r.Code(), c)
	r.Attach(c.ID(), playerID, displayName)
}

// handleListRooms reports the live rooms
func (s *Server) handleListRooms(c *Connection) {
	msg, err := NewMessage(MessageTypeRoomList, RoomListData{Rooms: s.rooms.List()})
	if err != nil {
		c.sendError("internal", "Could not list rooms")
		return
	}
	_ = c.SendMessage(msg)
}
