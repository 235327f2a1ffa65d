package apperror

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIllegalMoveKinds(t *testing.T) {
	t.Run("Cell errors are illegal moves", func(t *testing.T) {
		// Then: both board rejections match the umbrella kind
		assert.ErrorIs(t, ErrInvalidCell, ErrIllegalMove)
		assert.ErrorIs(t, ErrCellOccupied, ErrIllegalMove)
	})

	t.Run("Missing membership is a session error", func(t *testing.T) {
		assert.ErrorIs(t, ErrNotJoined, ErrNotInSession)
		assert.ErrorIs(t, ErrChatWithoutGame, ErrNotInSession)
	})

	t.Run("Turn errors are not illegal moves", func(t *testing.T) {
		assert.NotErrorIs(t, ErrNotYourTurn, ErrIllegalMove)
		assert.NotErrorIs(t, ErrGameAlreadyOver, ErrIllegalMove)
	})
}

func TestMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"invalid cell", ErrInvalidCell, "Invalid cell index."},
		{"occupied cell", ErrCellOccupied, "Cell already taken."},
		{"not your turn", ErrNotYourTurn, "Not your turn."},
		{"game over", ErrGameAlreadyOver, "Game is already over."},
		{"not in session", ErrNotInSession, "You are not in an active game."},
		{"not joined", ErrNotJoined, "Player not recognized. Please refresh."},
		{"chat without game", ErrChatWithoutGame, "You must be in a game to chat."},
		{"wrapped", fmt.Errorf("submit move: %w", ErrCellOccupied), "Cell already taken."},
		{"unknown", errors.New("boom"), "Something went wrong."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// When: mapping the error to a player facing message
			got := Message(tt.err)

			// Then: it matches the expected text
			assert.Equal(t, tt.want, got)
		})
	}
}
