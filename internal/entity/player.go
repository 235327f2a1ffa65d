package entity

// Identity - a connected participant. ConnectionID is stable for the connection's lifetime.
type Identity struct {
	ConnectionID string `json:"connection_id"`
	DisplayName  string `json:"display_name"`
}

type PlayerStatus string

const (
	PlayerWaiting PlayerStatus = "waiting"
	PlayerPlaying PlayerStatus = "playing"
)

// Player - presence record of a joined identity.
type Player struct {
	ID          string       `json:"id"`
	DisplayName string       `json:"display_name"`
	Status      PlayerStatus `json:"status"`
	Mark        Mark         `json:"mark,omitempty"`
	GameID      string       `json:"game_id,omitempty"`
}
