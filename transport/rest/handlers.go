package rest

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rocketscienceinc/tictactoe-duel/internal/entity"
	"github.com/rocketscienceinc/tictactoe-duel/internal/repository"
	"github.com/rocketscienceinc/tictactoe-duel/internal/usecase"
)

type statsProvider interface {
	Stats() usecase.Stats
}

type gameService interface {
	GetGameByID(ctx context.Context, id string) (*entity.Game, error)
}

type playerService interface {
	GetPlayerByID(ctx context.Context, id string) (*entity.Player, error)
}

type errorResponse struct {
	Error string `json:"error"`
}

type handlers struct {
	logger  *slog.Logger
	stats   statsProvider
	games   gameService
	players playerService
}

func (that *handlers) Ping(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("pong")); err != nil {
		that.logger.Error("failed to write response", "error", err)
	}
}

func (that *handlers) Health(w http.ResponseWriter, _ *http.Request) {
	that.respond(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (that *handlers) Stats(w http.ResponseWriter, _ *http.Request) {
	that.respond(w, http.StatusOK, that.stats.Stats())
}

// Game - live game record from the mirror store.
func (that *handlers) Game(w http.ResponseWriter, r *http.Request) {
	if that.games == nil {
		that.respond(w, http.StatusServiceUnavailable, errorResponse{Error: "storage is disabled"})
		return
	}

	game, err := that.games.GetGameByID(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, repository.ErrGameNotFound) {
		that.respond(w, http.StatusNotFound, errorResponse{Error: "game not found"})
		return
	}
	if err != nil {
		that.logger.Error("failed to get game", "error", err)
		that.respond(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
		return
	}

	that.respond(w, http.StatusOK, game)
}

func (that *handlers) Player(w http.ResponseWriter, r *http.Request) {
	if that.players == nil {
		that.respond(w, http.StatusServiceUnavailable, errorResponse{Error: "storage is disabled"})
		return
	}

	player, err := that.players.GetPlayerByID(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, repository.ErrPlayerNotFound) {
		that.respond(w, http.StatusNotFound, errorResponse{Error: "player not found"})
		return
	}
	if err != nil {
		that.logger.Error("failed to get player", "error", err)
		that.respond(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
		return
	}

	that.respond(w, http.StatusOK, player)
}

func (that *handlers) respond(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		that.logger.Error("failed to encode response", "error", err)
	}
}
