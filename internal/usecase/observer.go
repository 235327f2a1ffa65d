package usecase

import "github.com/rocketscienceinc/tictactoe-duel/internal/entity"

// Observer - receives matchmaking events while the matchmaker lock is held.
// Implementations must return immediately and must not call back into the Matchmaker.
type Observer interface {
	PlayerQueued(player *entity.Player)
	PlayerLeft(playerID string)
	QueueChanged(size int)

	GameStarted(game *entity.Game)
	GameUpdated(game *entity.Game)
	// GameFinished fires once, when a game enters a terminal status.
	GameFinished(game *entity.Game)
	GameClosed(gameID string)
}

// NopObserver - embed to implement only the events you need.
type NopObserver struct{}

func (NopObserver) PlayerQueued(*entity.Player) {}
func (NopObserver) PlayerLeft(string)           {}
func (NopObserver) QueueChanged(int)            {}
func (NopObserver) GameStarted(*entity.Game)    {}
func (NopObserver) GameUpdated(*entity.Game)    {}
func (NopObserver) GameFinished(*entity.Game)   {}
func (NopObserver) GameClosed(string)           {}

// Observers - fans every event out in order.
type Observers []Observer

func (that Observers) PlayerQueued(player *entity.Player) {
	for _, o := range that {
		o.PlayerQueued(player)
	}
}

func (that Observers) PlayerLeft(playerID string) {
	for _, o := range that {
		o.PlayerLeft(playerID)
	}
}

func (that Observers) QueueChanged(size int) {
	for _, o := range that {
		o.QueueChanged(size)
	}
}

func (that Observers) GameStarted(game *entity.Game) {
	for _, o := range that {
		o.GameStarted(game)
	}
}

func (that Observers) GameUpdated(game *entity.Game) {
	for _, o := range that {
		o.GameUpdated(game)
	}
}

func (that Observers) GameFinished(game *entity.Game) {
	for _, o := range that {
		o.GameFinished(game)
	}
}

func (that Observers) GameClosed(gameID string) {
	for _, o := range that {
		o.GameClosed(gameID)
	}
}
