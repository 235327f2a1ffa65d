package entity

import "time"

type GameStatus string

const (
	StatusWaiting   GameStatus = "waiting_to_start"
	StatusOngoing   GameStatus = "in_progress"
	StatusWon       GameStatus = "won"
	StatusDrawn     GameStatus = "drawn"
	StatusAbandoned GameStatus = "abandoned"

	// WinnerDraw is reported in place of a mark when the board fills up.
	WinnerDraw = "Draw"
)

func (that GameStatus) IsTerminal() bool {
	return that == StatusWon || that == StatusDrawn || that == StatusAbandoned
}

// Game - point-in-time record of a session, as published to observers and the mirror store.
type Game struct {
	ID        string     `json:"id"`
	Board     Board      `json:"board"`
	Turn      Mark       `json:"player_turn"`
	Status    GameStatus `json:"status"`
	Winner    string     `json:"winner,omitempty"`
	Players   []*Player  `json:"players,omitempty"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func (that *Game) IsFinished() bool {
	return that.Status.IsTerminal()
}
