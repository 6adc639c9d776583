package server

import (
	"encoding/json"
	"time"

	"github.com/playdicee/dicee/internal/room"
)

// Message represents the base WebSocket message structure
type Message struct {
	Type      MessageType     `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewMessage creates a new message with the current timestamp
func NewMessage(messageType MessageType, data interface{}) (*Message, error) {
	var dataBytes json.RawMessage
	if data != nil {
		b, err := json.Marshal(data)
		if err != nil {
			return nil, err
		}
		dataBytes = b
	}
	return &Message{
		Type:      messageType,
		Data:      dataBytes,
		Timestamp: time.Now(),
	}, nil
}

// eventMessage wraps a room event for the wire. Room event types are
// wire names already, so the envelope type is a direct cast.
func eventMessage(ev room.Event) (*Message, error) {
	return NewMessage(MessageType(ev.Type), ev.Data)
}

// Client → Server Messages

type CreateRoomData struct {
	PlayerID    string `json:"playerId"`
	DisplayName string `json:"displayName,omitempty"`
}

type JoinRoomData struct {
	RoomCode    string `json:"roomCode"`
	PlayerID    string `json:"playerId,omitempty"` // empty spectates
	DisplayName string `json:"displayName,omitempty"`
}

type AddBotData struct {
	Strategy string `json:"strategy"`
}

type ToggleKeepData struct {
	Die int `json:"die"`
}

type ScoreData struct {
	Category string `json:"category"`
}

type ChatData struct {
	Text string `json:"text"`
}

// Server → Client Messages

type RoomCreatedData struct {
	RoomCode string `json:"roomCode"`
}

type RoomListData struct {
	Rooms []room.Info `json:"rooms"`
}

type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
