package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/rocketscienceinc/tictactoe-duel/internal/entity"
	"github.com/rocketscienceinc/tictactoe-duel/internal/usecase"
)

const writeTimeout = 2 * time.Second

type mirrorOp struct {
	game     *entity.Game
	player   *entity.Player
	deleteID string
	isGame   bool
}

// Mirror - copies live games and player presence into the store in the background.
// Events are queued without blocking; when the queue is full they are dropped.
type Mirror struct {
	usecase.NopObserver

	logger  *slog.Logger
	games   GameService
	players PlayerService

	queue chan mirrorOp
}

func NewMirror(logger *slog.Logger, games GameService, players PlayerService, queueSize int) *Mirror {
	return &Mirror{
		logger:  logger.With("component", "mirror"),
		games:   games,
		players: players,

		queue: make(chan mirrorOp, queueSize),
	}
}

func (that *Mirror) PlayerQueued(player *entity.Player) {
	that.enqueue(mirrorOp{player: player})
}

func (that *Mirror) PlayerLeft(playerID string) {
	that.enqueue(mirrorOp{deleteID: playerID})
}

func (that *Mirror) GameStarted(game *entity.Game) {
	that.enqueue(mirrorOp{game: game, isGame: true})
}

func (that *Mirror) GameUpdated(game *entity.Game) {
	that.enqueue(mirrorOp{game: game, isGame: true})
}

func (that *Mirror) GameClosed(gameID string) {
	that.enqueue(mirrorOp{deleteID: gameID, isGame: true})
}

// Run - applies queued writes until ctx is done.
func (that *Mirror) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case op := <-that.queue:
			that.apply(ctx, op)
		}
	}
}

func (that *Mirror) enqueue(op mirrorOp) {
	select {
	case that.queue <- op:
	default:
		that.logger.Warn("mirror queue is full, dropping update", "queue_len", len(that.queue))
	}
}

func (that *Mirror) apply(ctx context.Context, op mirrorOp) {
	log := that.logger.With("method", "apply")

	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	switch {
	case op.isGame && op.deleteID != "":
		if err := that.games.DeleteGame(ctx, op.deleteID); err != nil {
			log.Debug("failed to delete game", "game_id", op.deleteID, "error", err)
		}
	case op.isGame:
		if err := that.games.SaveGame(ctx, op.game); err != nil {
			log.Error("failed to save game", "game_id", op.game.ID, "error", err)
		}
		for _, player := range op.game.Players {
			if err := that.players.SavePlayer(ctx, player); err != nil {
				log.Error("failed to save player", "player_id", player.ID, "error", err)
			}
		}
	case op.deleteID != "":
		if err := that.players.DeletePlayer(ctx, op.deleteID); err != nil {
			log.Debug("failed to delete player", "player_id", op.deleteID, "error", err)
		}
	case op.player != nil:
		if err := that.players.SavePlayer(ctx, op.player); err != nil {
			log.Error("failed to save player", "player_id", op.player.ID, "error", err)
		}
	}
}
