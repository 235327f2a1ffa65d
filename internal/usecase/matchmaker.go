package usecase

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/rocketscienceinc/tictactoe-duel/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-duel/internal/entity"
	"github.com/rocketscienceinc/tictactoe-duel/internal/tictactoe"
)

// Stats - point-in-time counters.
type Stats struct {
	Waiting    int `json:"waiting"`
	Sessions   int `json:"sessions"`
	InProgress int `json:"in_progress"`
}

type Option func(*Matchmaker)

func WithObserver(observer Observer) Option {
	return func(that *Matchmaker) {
		that.observer = observer
	}
}

// WithRequeue - when enabled, the player left behind in an abandoned game goes straight back to the pool.
func WithRequeue(enabled bool) Option {
	return func(that *Matchmaker) {
		that.requeue = enabled
	}
}

func WithIDGenerator(newID func() string) Option {
	return func(that *Matchmaker) {
		that.newID = newID
	}
}

// Matchmaker - owns the wait pool and every session. One mutex guards all of it,
// so each call is atomic with respect to the others.
type Matchmaker struct {
	logger   *slog.Logger
	observer Observer
	requeue  bool
	newID    func() string

	mu       sync.Mutex
	waiting  []entity.Identity
	sessions map[string]*tictactoe.Session
	members  map[string]*tictactoe.Session
}

func NewMatchmaker(logger *slog.Logger, opts ...Option) *Matchmaker {
	matchmaker := &Matchmaker{
		logger:   logger.With("component", "matchmaker"),
		observer: NopObserver{},
		newID:    uuid.NewString,

		sessions: make(map[string]*tictactoe.Session),
		members:  make(map[string]*tictactoe.Session),
	}

	for _, opt := range opts {
		opt(matchmaker)
	}

	return matchmaker
}

// Join - pairs identity with the oldest waiting player, or queues it.
// A player still attached to a finished game leaves it first.
func (that *Matchmaker) Join(identity entity.Identity) ([]entity.Notification, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.waitingIndex(identity.ConnectionID) >= 0 {
		return nil, apperror.ErrAlreadyJoined
	}

	var notifications []entity.Notification

	if session, ok := that.members[identity.ConnectionID]; ok {
		if !session.Status().IsTerminal() {
			return nil, apperror.ErrAlreadyJoined
		}

		notifications = that.release(identity.ConnectionID, session)
	}

	return append(notifications, that.enqueueOrPair(identity)...), nil
}

// Leave - drops the connection from the pool or its session. Unknown connections are ignored.
func (that *Matchmaker) Leave(connectionID string) []entity.Notification {
	that.mu.Lock()
	defer that.mu.Unlock()

	if i := that.waitingIndex(connectionID); i >= 0 {
		that.waiting = slices.Delete(that.waiting, i, i+1)
		that.observer.PlayerLeft(connectionID)
		that.observer.QueueChanged(len(that.waiting))

		that.logger.Debug("player left the pool", "connection_id", connectionID)

		return nil
	}

	session, ok := that.members[connectionID]
	if !ok {
		return nil
	}

	return that.release(connectionID, session)
}

func (that *Matchmaker) SubmitMove(connectionID string, index int) ([]entity.Notification, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	session, ok := that.members[connectionID]
	if !ok {
		return nil, apperror.ErrNotInSession
	}

	notifications, err := session.SubmitMove(connectionID, index)
	if err != nil {
		return nil, fmt.Errorf("failed make turn: %w", err)
	}

	record := session.Record()
	that.observer.GameUpdated(record)

	if session.Status().IsTerminal() {
		that.observer.GameFinished(record)

		that.logger.Info("game finished", "game_id", session.ID(), "status", session.Status(), "winner", record.Winner)
	}

	return notifications, nil
}

func (that *Matchmaker) RelayMessage(connectionID, text string) ([]entity.Notification, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	session, ok := that.members[connectionID]
	if !ok {
		return nil, apperror.ErrNotInSession
	}

	notifications, err := session.RelayMessage(connectionID, text)
	if err != nil {
		return nil, fmt.Errorf("failed relay message: %w", err)
	}

	return notifications, nil
}

func (that *Matchmaker) Stats() Stats {
	that.mu.Lock()
	defer that.mu.Unlock()

	stats := Stats{
		Waiting:  len(that.waiting),
		Sessions: len(that.sessions),
	}

	for _, session := range that.sessions {
		if session.Status() == entity.StatusOngoing {
			stats.InProgress++
		}
	}

	return stats
}

func (that *Matchmaker) enqueueOrPair(identity entity.Identity) []entity.Notification {
	if len(that.waiting) == 0 {
		that.waiting = append(that.waiting, identity)

		that.observer.PlayerQueued(&entity.Player{
			ID:          identity.ConnectionID,
			DisplayName: identity.DisplayName,
			Status:      entity.PlayerWaiting,
		})
		that.observer.QueueChanged(len(that.waiting))

		that.logger.Debug("player is waiting for an opponent", "connection_id", identity.ConnectionID)

		return []entity.Notification{{Recipient: identity.ConnectionID, Event: entity.EventWaiting}}
	}

	opponent := that.waiting[0]
	that.waiting = slices.Delete(that.waiting, 0, 1)
	that.observer.QueueChanged(len(that.waiting))

	session := tictactoe.NewSession(that.newID())
	notifications := session.Start(opponent, identity)

	that.sessions[session.ID()] = session
	that.members[opponent.ConnectionID] = session
	that.members[identity.ConnectionID] = session

	that.observer.GameStarted(session.Record())

	that.logger.Info("game started", "game_id", session.ID(), "x", opponent.ConnectionID, "o", identity.ConnectionID)

	return notifications
}

// release - detaches connectionID from its session and cleans up behind it.
func (that *Matchmaker) release(connectionID string, session *tictactoe.Session) []entity.Notification {
	wasTerminal := session.Status().IsTerminal()
	counterpart, hasCounterpart := session.Counterpart(connectionID)

	notifications := session.HandleDisconnect(connectionID)
	delete(that.members, connectionID)
	that.observer.PlayerLeft(connectionID)

	if !wasTerminal && session.Status().IsTerminal() {
		that.observer.GameFinished(session.Record())

		that.logger.Info("game abandoned", "game_id", session.ID(), "connection_id", connectionID)
	}

	if that.requeue && !wasTerminal && hasCounterpart {
		session.HandleDisconnect(counterpart.ConnectionID)
		delete(that.members, counterpart.ConnectionID)
		that.observer.PlayerLeft(counterpart.ConnectionID)

		that.close(session)

		return append(notifications, that.enqueueOrPair(counterpart)...)
	}

	if session.Vacant() {
		that.close(session)
		return notifications
	}

	that.observer.GameUpdated(session.Record())

	return notifications
}

func (that *Matchmaker) close(session *tictactoe.Session) {
	delete(that.sessions, session.ID())
	that.observer.GameClosed(session.ID())

	that.logger.Debug("game closed", "game_id", session.ID())
}

func (that *Matchmaker) waitingIndex(connectionID string) int {
	return slices.IndexFunc(that.waiting, func(identity entity.Identity) bool {
		return identity.ConnectionID == connectionID
	})
}
