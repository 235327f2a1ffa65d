// Package metrics exposes Prometheus collectors for matchmaking and gameplay.
package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/rocketscienceinc/tictactoe-duel/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-duel/internal/entity"
	"github.com/rocketscienceinc/tictactoe-duel/internal/usecase"
)

const (
	metricsNamespace = "tictactoe"
	gameSubsystem    = "game"
	gatewaySubsystem = "gateway"
)

// Metrics - implements usecase.Observer; every hook only touches in-memory collectors.
type Metrics struct {
	usecase.NopObserver

	GamesStarted   prometheus.Counter
	GamesFinished  *prometheus.CounterVec
	ActiveGames    prometheus.Gauge
	WaitingPlayers prometheus.Gauge

	Connections      prometheus.Gauge
	MessagesTotal    *prometheus.CounterVec
	RejectedRequests *prometheus.CounterVec
}

func New(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)

	return &Metrics{
		GamesStarted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: gameSubsystem,
			Name:      "started_total",
			Help:      "Total number of games started",
		}),
		GamesFinished: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: gameSubsystem,
			Name:      "finished_total",
			Help:      "Total number of games finished by outcome",
		}, []string{"outcome"}),
		ActiveGames: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: gameSubsystem,
			Name:      "active",
			Help:      "Games currently held in memory",
		}),
		WaitingPlayers: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: gameSubsystem,
			Name:      "waiting_players",
			Help:      "Players waiting for an opponent",
		}),
		Connections: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: gatewaySubsystem,
			Name:      "connections",
			Help:      "Open websocket connections",
		}),
		MessagesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: gatewaySubsystem,
			Name:      "messages_total",
			Help:      "Inbound messages by action",
		}, []string{"action"}),
		RejectedRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: gatewaySubsystem,
			Name:      "rejected_total",
			Help:      "Rejected requests by reason",
		}, []string{"reason"}),
	}
}

func (that *Metrics) QueueChanged(size int) {
	that.WaitingPlayers.Set(float64(size))
}

func (that *Metrics) GameStarted(*entity.Game) {
	that.GamesStarted.Inc()
	that.ActiveGames.Inc()
}

func (that *Metrics) GameFinished(game *entity.Game) {
	that.GamesFinished.WithLabelValues(string(game.Status)).Inc()
}

func (that *Metrics) GameClosed(string) {
	that.ActiveGames.Dec()
}

func (that *Metrics) ConnectionOpened() {
	that.Connections.Inc()
}

func (that *Metrics) ConnectionClosed() {
	that.Connections.Dec()
}

func (that *Metrics) MessageReceived(action string) {
	that.MessagesTotal.WithLabelValues(action).Inc()
}

func (that *Metrics) RequestRejected(err error) {
	that.RejectedRequests.WithLabelValues(reason(err)).Inc()
}

var reasons = []struct {
	err   error
	label string
}{
	{apperror.ErrNotYourTurn, "not_your_turn"},
	{apperror.ErrGameAlreadyOver, "game_over"},
	{apperror.ErrIllegalMove, "illegal_move"},
	{apperror.ErrNotJoined, "not_joined"},
	{apperror.ErrNotInSession, "not_in_session"},
	{apperror.ErrAlreadyJoined, "already_joined"},
	{apperror.ErrInvalidName, "invalid_name"},
	{apperror.ErrRateLimited, "rate_limited"},
	{apperror.ErrMalformedMessage, "malformed"},
	{apperror.ErrUnknownAction, "unknown_action"},
}

func reason(err error) string {
	for _, r := range reasons {
		if errors.Is(err, r.err) {
			return r.label
		}
	}
	return "other"
}
