package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/tictactoe-duel/internal/entity"
	"github.com/rocketscienceinc/tictactoe-duel/internal/repository"
	"github.com/rocketscienceinc/tictactoe-duel/internal/usecase"
	"github.com/rocketscienceinc/tictactoe-duel/testing/suite"
)

func TestMirror_Redis(t *testing.T) {
	ctx, st := suite.New(t)

	games := NewGameService(repository.NewGameRepository(st.Storage, time.Minute))
	players := NewPlayerService(repository.NewPlayerRepository(st.Storage, time.Minute))
	mirror := NewMirror(st.Logger, games, players, 64)

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() {
		done <- mirror.Run(runCtx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	matchmaker := usecase.NewMatchmaker(st.Logger,
		usecase.WithObserver(mirror),
		usecase.WithIDGenerator(func() string { return "g1" }),
	)

	alice := entity.Identity{ConnectionID: "alice", DisplayName: "Alice"}
	bob := entity.Identity{ConnectionID: "bob", DisplayName: "Bob"}

	// Given: alice waits
	_, err := matchmaker.Join(alice)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		player, err := players.GetPlayerByID(ctx, "alice")
		return err == nil && player.Status == entity.PlayerWaiting
	}, 5*time.Second, 20*time.Millisecond)

	// When: bob joins and alice plays the centre
	_, err = matchmaker.Join(bob)
	require.NoError(t, err)
	_, err = matchmaker.SubmitMove("alice", 4)
	require.NoError(t, err)

	// Then: the stored game follows the live one
	require.Eventually(t, func() bool {
		game, err := games.GetGameByID(ctx, "g1")
		return err == nil && game.Board[4] == entity.MarkX && game.Turn == entity.MarkO
	}, 5*time.Second, 20*time.Millisecond)

	player, err := players.GetPlayerByID(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, entity.PlayerPlaying, player.Status)
	assert.Equal(t, "g1", player.GameID)

	// When: both leave
	matchmaker.Leave("alice")
	matchmaker.Leave("bob")

	// Then: nothing is left behind
	require.Eventually(t, func() bool {
		keys, err := st.Storage.Keys(ctx, "*").Result()
		return err == nil && len(keys) == 0
	}, 5*time.Second, 20*time.Millisecond)

	assert.Empty(t, st.Keys(ctx, "player:*"))
}
