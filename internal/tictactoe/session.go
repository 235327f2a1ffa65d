package tictactoe

import (
	"fmt"
	"time"

	"github.com/rocketscienceinc/tictactoe-duel/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-duel/internal/entity"
)

const noSeat = -1

// Session - one match between two identities. Seat 0 plays X, seat 1 plays O.
// A Session is not safe for concurrent use; the owner serialises access.
type Session struct {
	id      string
	players [2]entity.Identity
	present [2]bool
	board   entity.Board
	turn    entity.Mark
	status  entity.GameStatus
	winner  string
}

func NewSession(id string) *Session {
	return &Session{
		id:     id,
		turn:   entity.MarkX,
		status: entity.StatusWaiting,
	}
}

func (that *Session) ID() string {
	return that.id
}

func (that *Session) Status() entity.GameStatus {
	return that.status
}

func (that *Session) Board() entity.Board {
	return that.board
}

func (that *Session) Turn() entity.Mark {
	return that.turn
}

// Start - seats first as X and second as O and opens the game.
// game_start goes to each player before the first state_update.
func (that *Session) Start(first, second entity.Identity) []entity.Notification {
	if that.status != entity.StatusWaiting {
		panic(fmt.Sprintf("session %s: start in status %s", that.id, that.status))
	}

	if first.ConnectionID == "" || first.ConnectionID == second.ConnectionID {
		panic(fmt.Sprintf("session %s: cannot pair %q with %q", that.id, first.ConnectionID, second.ConnectionID))
	}

	that.players = [2]entity.Identity{first, second}
	that.present = [2]bool{true, true}
	that.status = entity.StatusOngoing

	notifications := []entity.Notification{
		{
			Recipient: first.ConnectionID,
			Event:     entity.EventGameStart,
			Payload:   entity.GameStartPayload{Symbol: entity.MarkX, OpponentName: second.DisplayName},
		},
		{
			Recipient: second.ConnectionID,
			Event:     entity.EventGameStart,
			Payload:   entity.GameStartPayload{Symbol: entity.MarkO, OpponentName: first.DisplayName},
		},
	}

	return append(notifications, that.broadcastState()...)
}

// SubmitMove - plays index for the given connection.
// Board and turn are left untouched when an error is returned.
func (that *Session) SubmitMove(connectionID string, index int) ([]entity.Notification, error) {
	seat := that.mustSeat(connectionID)

	if that.status.IsTerminal() {
		return nil, apperror.ErrGameAlreadyOver
	}

	mark := markOf(seat)
	if mark != that.turn {
		return nil, apperror.ErrNotYourTurn
	}

	board, err := that.board.Apply(index, mark)
	if err != nil {
		return nil, fmt.Errorf("invalid turn: %w", err)
	}

	that.board = board
	that.updateStatus(mark)

	return that.broadcastState(), nil
}

// HandleDisconnect - marks the connection as gone. Repeated calls are no-ops.
func (that *Session) HandleDisconnect(connectionID string) []entity.Notification {
	seat := that.seatOf(connectionID)
	if seat == noSeat || !that.present[seat] {
		return nil
	}

	that.present[seat] = false

	if that.status == entity.StatusOngoing {
		that.status = entity.StatusAbandoned
	}

	other := 1 - seat
	if !that.present[other] {
		return nil
	}

	return []entity.Notification{
		{Recipient: that.players[other].ConnectionID, Event: entity.EventOpponentLeft},
	}
}

// RelayMessage - forwards text verbatim to the other participant only.
func (that *Session) RelayMessage(connectionID, text string) ([]entity.Notification, error) {
	seat := that.mustSeat(connectionID)

	other := 1 - seat
	if !that.present[other] {
		return nil, apperror.ErrNotInSession
	}

	return []entity.Notification{
		{
			Recipient: that.players[other].ConnectionID,
			Event:     entity.EventChatMessage,
			Payload:   entity.ChatPayload{Sender: that.players[seat].DisplayName, Text: text},
		},
	}, nil
}

// Counterpart - returns the other participant while it is still connected.
func (that *Session) Counterpart(connectionID string) (entity.Identity, bool) {
	seat := that.seatOf(connectionID)
	if seat == noSeat || !that.present[1-seat] {
		return entity.Identity{}, false
	}

	return that.players[1-seat], true
}

// Vacant - reports whether nobody is left in the session.
func (that *Session) Vacant() bool {
	return !that.present[0] && !that.present[1]
}

func (that *Session) Snapshot() entity.GameState {
	state := entity.GameState{
		Board:         that.board,
		CurrentPlayer: that.turn,
		GameOver:      that.status.IsTerminal(),
	}

	if that.winner != "" {
		winner := that.winner
		state.Winner = &winner
	}

	return state
}

// Record - describes the session for observers.
func (that *Session) Record() *entity.Game {
	game := &entity.Game{
		ID:        that.id,
		Board:     that.board,
		Turn:      that.turn,
		Status:    that.status,
		Winner:    that.winner,
		UpdatedAt: time.Now().UTC(),
	}

	for seat, player := range that.players {
		if !that.present[seat] {
			continue
		}

		game.Players = append(game.Players, &entity.Player{
			ID:          player.ConnectionID,
			DisplayName: player.DisplayName,
			Status:      entity.PlayerPlaying,
			Mark:        markOf(seat),
			GameID:      that.id,
		})
	}

	return game
}

// updateStatus - checks the game status after a move.
func (that *Session) updateStatus(mark entity.Mark) {
	switch outcome := that.board.Evaluate(); outcome.Kind {
	case entity.Win:
		that.status = entity.StatusWon
		that.winner = string(outcome.Winner)
	case entity.Draw:
		that.status = entity.StatusDrawn
		that.winner = entity.WinnerDraw
	default:
		that.turn = mark.Opponent()
	}
}

func (that *Session) broadcastState() []entity.Notification {
	state := that.Snapshot()

	return []entity.Notification{
		{Recipient: that.players[0].ConnectionID, Event: entity.EventStateUpdate, Payload: state},
		{Recipient: that.players[1].ConnectionID, Event: entity.EventStateUpdate, Payload: state},
	}
}

func (that *Session) seatOf(connectionID string) int {
	if that.status == entity.StatusWaiting {
		return noSeat
	}

	for seat, player := range that.players {
		if player.ConnectionID == connectionID {
			return seat
		}
	}

	return noSeat
}

// mustSeat - callers route only members here; anything else is a bug upstream.
func (that *Session) mustSeat(connectionID string) int {
	seat := that.seatOf(connectionID)
	if seat == noSeat {
		panic(fmt.Sprintf("session %s: %q is not a player", that.id, connectionID))
	}

	return seat
}

func markOf(seat int) entity.Mark {
	if seat == 0 {
		return entity.MarkX
	}
	return entity.MarkO
}
