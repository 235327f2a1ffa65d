package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrIllegalMove     = errors.New("illegal move")
	ErrInvalidCell     = fmt.Errorf("%w: invalid cell index", ErrIllegalMove)
	ErrCellOccupied    = fmt.Errorf("%w: cell is already occupied", ErrIllegalMove)
	ErrNotYourTurn     = errors.New("it's not your turn")
	ErrGameAlreadyOver = errors.New("game is already over")
	ErrNotInSession    = errors.New("not in an active game")
	ErrNotJoined       = fmt.Errorf("%w: player is not recognized", ErrNotInSession)
	ErrChatWithoutGame = fmt.Errorf("%w: chat requires a game", ErrNotInSession)

	ErrAlreadyJoined    = errors.New("already waiting or playing")
	ErrInvalidName      = errors.New("invalid display name")
	ErrRateLimited      = errors.New("too many messages")
	ErrMalformedMessage = errors.New("malformed message")
	ErrUnknownAction    = errors.New("unknown action")
)

// messages are ordered: more specific kinds first.
var messages = []struct {
	err  error
	text string
}{
	{ErrInvalidCell, "Invalid cell index."},
	{ErrCellOccupied, "Cell already taken."},
	{ErrIllegalMove, "Illegal move."},
	{ErrNotYourTurn, "Not your turn."},
	{ErrGameAlreadyOver, "Game is already over."},
	{ErrNotJoined, "Player not recognized. Please refresh."},
	{ErrChatWithoutGame, "You must be in a game to chat."},
	{ErrNotInSession, "You are not in an active game."},
	{ErrAlreadyJoined, "You are already waiting or playing."},
	{ErrInvalidName, "Please enter a valid display name."},
	{ErrRateLimited, "You are sending messages too fast."},
	{ErrMalformedMessage, "Malformed message."},
	{ErrUnknownAction, "Unknown action."},
}

// Message - returns the text shown to a player for err.
func Message(err error) string {
	for _, m := range messages {
		if errors.Is(err, m.err) {
			return m.text
		}
	}

	return "Something went wrong."
}
