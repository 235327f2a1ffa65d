package websocket

import (
	"encoding/json"
	"fmt"

	"github.com/rocketscienceinc/tictactoe-duel/internal/entity"
)

const (
	actionJoin = "join"
	actionMove = "move"
	actionChat = "chat"
)

// Message - envelope for both directions; Action carries the event name.
type Message struct {
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type JoinPayload struct {
	DisplayName string `json:"displayName" validate:"required,displayname"`
}

type MovePayload struct {
	Index *int `json:"index" validate:"required"`
}

type ChatPayload struct {
	Text string `json:"text"`
}

func encodeNotification(notification entity.Notification) ([]byte, error) {
	message := Message{Action: notification.Event}

	if notification.Payload != nil {
		payload, err := json.Marshal(notification.Payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal payload: %w", err)
		}
		message.Payload = payload
	}

	data, err := json.Marshal(message)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal message: %w", err)
	}

	return data, nil
}
