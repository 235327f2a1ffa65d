package entity

const (
	EventWaiting      = "waiting"
	EventGameStart    = "game_start"
	EventStateUpdate  = "state_update"
	EventOpponentLeft = "opponent_left"
	EventChatMessage  = "chat_message"
	EventGameError    = "game_error"
)

// Notification - an outbound event addressed to one connection.
// Payload is nil for events without a body.
type Notification struct {
	Recipient string
	Event     string
	Payload   any
}

type GameStartPayload struct {
	Symbol       Mark   `json:"symbol"`
	OpponentName string `json:"opponentName"`
}

// GameState - the snapshot both players render from.
type GameState struct {
	Board         Board   `json:"board"`
	CurrentPlayer Mark    `json:"currentPlayer"`
	GameOver      bool    `json:"gameOver"`
	Winner        *string `json:"winner"`
}

type ChatPayload struct {
	Sender string `json:"sender"`
	Text   string `json:"text"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}
