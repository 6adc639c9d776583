package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/playdicee/dicee/internal/room"
	"github.com/playdicee/dicee/internal/store"
)

type testServer struct {
	ts  *httptest.Server
	srv *Server
}

func newWSTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := log.New(io.Discard)

	st, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	hub := NewHub(logger)
	mgr := room.NewManager(room.ManagerOptions{
		Store:     st,
		Logger:    logger,
		SenderFor: hub.SenderFor,
	})
	t.Cleanup(mgr.Close)

	srv := NewServer("", hub, mgr, logger)
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", srv.handleWebSocket)
	mux.HandleFunc("/health", srv.handleHealth)
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)

	return &testServer{ts: ts, srv: srv}
}

func (s *testServer) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(s.ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, typ MessageType, data interface{}) {
	t.Helper()
	msg, err := NewMessage(typ, data)
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(msg))
}

// readUntil reads messages until one of the wanted type arrives,
// skipping interleaved broadcasts.
func readUntil(t *testing.T, conn *websocket.Conn, typ MessageType) Message {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	require.NoError(t, conn.SetReadDeadline(deadline))
	for {
		var msg Message
		err := conn.ReadJSON(&msg)
		require.NoError(t, err, "waiting for %s", typ)
		if msg.Type == typ {
			return msg
		}
	}
}

func decodeData(t *testing.T, msg Message, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(msg.Data, out))
}

func TestHealthEndpoint(t *testing.T) {
	s := newWSTestServer(t)
	resp, err := http.Get(s.ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestCreateJoinAndPlayOverWebSocket(t *testing.T) {
	s := newWSTestServer(t)

	alice := s.dial(t)
	send(t, alice, MessageTypeCreateRoom, CreateRoomData{PlayerID: "alice", DisplayName: "Alice"})

	var created RoomCreatedData
	decodeData(t, readUntil(t, alice, MessageTypeRoomCreated), &created)
	require.Len(t, created.RoomCode, 6)

	var seated room.SeatAssignedData
	decodeData(t, readUntil(t, alice, MessageTypeSeatAssigned), &seated)
	assert.Equal(t, 0, seated.SeatIndex)
	assert.Equal(t, "alice", seated.PlayerID)

	bob := s.dial(t)
	send(t, bob, MessageTypeJoinRoom, JoinRoomData{
		RoomCode: created.RoomCode, PlayerID: "bob", DisplayName: "Bob",
	})
	var state room.RoomStateData
	decodeData(t, readUntil(t, bob, MessageTypeRoomState), &state)
	assert.Equal(t, room.PhaseWaiting, state.Phase)
	assert.Equal(t, "occupied", state.Seats[1].Status)

	send(t, alice, MessageTypeStartGame, nil)
	decodeData(t, readUntil(t, bob, MessageTypeGameStarted), &state)
	require.NotNil(t, state.Turn)
	assert.Equal(t, "alice", state.Turn.PlayerID)

	send(t, alice, MessageTypeRoll, nil)
	var rolled room.DiceRolledData
	decodeData(t, readUntil(t, bob, MessageTypeDiceRolled), &rolled)
	assert.Equal(t, "alice", rolled.PlayerID)
	assert.Equal(t, 2, rolled.RollsRemaining)

	send(t, alice, MessageTypeScore, ScoreData{Category: "chance"})
	var scored room.CategoryScoredData
	decodeData(t, readUntil(t, bob, MessageTypeCategoryScored), &scored)
	assert.Equal(t, "alice", scored.PlayerID)
	assert.Equal(t, "bob", scored.NextPlayerID)
}

func TestJoinUnknownRoomFails(t *testing.T) {
	s := newWSTestServer(t)
	conn := s.dial(t)

	send(t, conn, MessageTypeJoinRoom, JoinRoomData{RoomCode: "zzzzzz", PlayerID: "alice"})
	var errData ErrorData
	decodeData(t, readUntil(t, conn, MessageTypeError), &errData)
	assert.Equal(t, "not_found", errData.Code)
}

func TestMalformedCodeRejected(t *testing.T) {
	s := newWSTestServer(t)
	conn := s.dial(t)

	send(t, conn, MessageTypeJoinRoom, JoinRoomData{RoomCode: "nope", PlayerID: "alice"})
	var errData ErrorData
	decodeData(t, readUntil(t, conn, MessageTypeError), &errData)
	assert.Equal(t, "validation", errData.Code)
}

func TestCommandsOutsideRoomRejected(t *testing.T) {
	s := newWSTestServer(t)
	conn := s.dial(t)

	send(t, conn, MessageTypeRoll, nil)
	var errData ErrorData
	decodeData(t, readUntil(t, conn, MessageTypeError), &errData)
	assert.Equal(t, "validation", errData.Code)

	// Leaving without a room answers too; no command goes dark.
	send(t, conn, MessageTypeLeaveRoom, nil)
	decodeData(t, readUntil(t, conn, MessageTypeError), &errData)
	assert.Equal(t, "validation", errData.Code)
}

func TestListRooms(t *testing.T) {
	s := newWSTestServer(t)

	alice := s.dial(t)
	send(t, alice, MessageTypeCreateRoom, CreateRoomData{PlayerID: "alice"})
	var created RoomCreatedData
	decodeData(t, readUntil(t, alice, MessageTypeRoomCreated), &created)

	other := s.dial(t)
	send(t, other, MessageTypeListRooms, nil)
	var list RoomListData
	decodeData(t, readUntil(t, other, MessageTypeRoomList), &list)
	require.Len(t, list.Rooms, 1)
	assert.Equal(t, created.RoomCode, list.Rooms[0].Code)
	assert.Equal(t, 1, list.Rooms[0].Occupied)
}

func TestDisconnectDuringPlayBroadcastsPresence(t *testing.T) {
	s := newWSTestServer(t)

	alice := s.dial(t)
	send(t, alice, MessageTypeCreateRoom, CreateRoomData{PlayerID: "alice"})
	var created RoomCreatedData
	decodeData(t, readUntil(t, alice, MessageTypeRoomCreated), &created)

	bob := s.dial(t)
	send(t, bob, MessageTypeJoinRoom, JoinRoomData{RoomCode: created.RoomCode, PlayerID: "bob"})
	readUntil(t, bob, MessageTypeRoomState)

	send(t, alice, MessageTypeStartGame, nil)
	readUntil(t, alice, MessageTypeGameStarted)

	bob.Close()
	var gone room.PlayerPresenceData
	decodeData(t, readUntil(t, alice, MessageTypePlayerDisconnected), &gone)
	assert.Equal(t, "bob", gone.PlayerID)
	require.NotNil(t, gone.Deadline, "the reclaim deadline rides along")

	// Bob returns on a new socket and reclaims his seat.
	bob2 := s.dial(t)
	send(t, bob2, MessageTypeJoinRoom, JoinRoomData{RoomCode: created.RoomCode, PlayerID: "bob"})
	var back room.SeatAssignedData
	decodeData(t, readUntil(t, bob2, MessageTypeSeatAssigned), &back)
	assert.True(t, back.Reclaimed)
}
