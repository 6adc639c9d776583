package server

// MessageType represents a WebSocket message type with type safety
type MessageType string

// WebSocket message type constants used for the client-server protocol.
const (
	// Client to server messages
	MessageTypeCreateRoom MessageType = "create_room"
	MessageTypeJoinRoom   MessageType = "join_room"
	MessageTypeLeaveRoom  MessageType = "leave_room"
	MessageTypeListRooms  MessageType = "list_rooms"
	MessageTypeStartGame  MessageType = "start_game"
	MessageTypeAddBot     MessageType = "add_bot"
	MessageTypeRoll       MessageType = "roll"
	MessageTypeToggleKeep MessageType = "toggle_keep"
	MessageTypeScore      MessageType = "score"
	MessageTypeChat       MessageType = "chat"

	// Server to client messages
	MessageTypeRoomCreated MessageType = "room_created"
	MessageTypeRoomList    MessageType = "room_list"
	MessageTypeError       MessageType = "error"

	// Room events, relayed verbatim from the coordinator
	MessageTypeSeatAssigned       MessageType = "seat_assigned"
	MessageTypeRoomState          MessageType = "room_state"
	MessageTypeGameStarted        MessageType = "game_started"
	MessageTypeDiceRolled         MessageType = "dice_rolled"
	MessageTypeDiceKept           MessageType = "dice_kept"
	MessageTypeCategoryScored     MessageType = "category_scored"
	MessageTypePlayerDisconnected MessageType = "player_disconnected"
	MessageTypePlayerReconnected  MessageType = "player_reconnected"
	MessageTypePlayerForfeited    MessageType = "player_forfeited"
	MessageTypeGameOver           MessageType = "game_over"
)

// String returns the string representation of the message type
func (mt MessageType) String() string {
	return string(mt)
}
