package websocket

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"golang.org/x/time/rate"

	"github.com/rocketscienceinc/tictactoe-duel/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-duel/internal/entity"
)

const (
	defaultDisplayName = "Anonymous"

	// label for actions outside the handler table, keeps metric cardinality bounded.
	unknownAction = "unknown"
)

type matchmaker interface {
	Join(identity entity.Identity) ([]entity.Notification, error)
	Leave(connectionID string) []entity.Notification
	SubmitMove(connectionID string, index int) ([]entity.Notification, error)
	RelayMessage(connectionID, text string) ([]entity.Notification, error)
}

type gatewayMetrics interface {
	ConnectionOpened()
	ConnectionClosed()
	MessageReceived(action string)
	RequestRejected(err error)
}

// Sink - outbound queue of one connection. Send must not block.
type Sink interface {
	Send(data []byte) bool
}

type Limits struct {
	MaxNameLength int
	MaxChatLength int
	ChatRate      rate.Limit
	ChatBurst     int
}

type peer struct {
	sink    Sink
	name    string
	limiter *rate.Limiter
}

type handlerFunc func(connectionID string, p *peer, payload json.RawMessage) ([]entity.Notification, error)

// Gateway - maps connections to identities and turns inbound messages into matchmaker calls.
// The dispatch lock covers the matchmaker call and the enqueueing of its notifications,
// so every connection sees events in the order the matchmaker produced them.
type Gateway struct {
	logger     *slog.Logger
	matchmaker matchmaker
	metrics    gatewayMetrics
	limits     Limits
	validate   *validator.Validate

	mu    sync.Mutex
	peers map[string]*peer

	handlers map[string]handlerFunc
}

func NewGateway(logger *slog.Logger, matchmaker matchmaker, metrics gatewayMetrics, limits Limits) *Gateway {
	gateway := &Gateway{
		logger:     logger.With("component", "gateway"),
		matchmaker: matchmaker,
		metrics:    metrics,
		limits:     limits,
		validate:   validator.New(),

		peers: make(map[string]*peer),

		handlers: make(map[string]handlerFunc),
	}

	_ = gateway.validate.RegisterValidation("displayname", gateway.validDisplayName)

	gateway.handlers[actionJoin] = gateway.handleJoin
	gateway.handlers[actionMove] = gateway.handleMove
	gateway.handlers[actionChat] = gateway.handleChat

	return gateway
}

// Connect - registers a connection. A non-nil name joins the pool right away.
func (that *Gateway) Connect(connectionID string, sink Sink, name *string) {
	that.mu.Lock()
	defer that.mu.Unlock()

	p := &peer{
		sink:    sink,
		limiter: rate.NewLimiter(that.limits.ChatRate, that.limits.ChatBurst),
	}
	that.peers[connectionID] = p
	that.metrics.ConnectionOpened()

	that.logger.Info("connection registered", "connection_id", connectionID)

	if name == nil {
		return
	}

	identity := entity.Identity{ConnectionID: connectionID, DisplayName: that.sanitizeName(*name)}

	notifications, err := that.matchmaker.Join(identity)
	if err != nil {
		that.reject(connectionID, p, err)
		return
	}

	p.name = identity.DisplayName
	that.deliver(notifications)
}

// Disconnect - forgets the connection and leaves its game. Safe to call more than once.
func (that *Gateway) Disconnect(connectionID string) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if _, ok := that.peers[connectionID]; !ok {
		return
	}

	delete(that.peers, connectionID)
	that.metrics.ConnectionClosed()

	that.deliver(that.matchmaker.Leave(connectionID))

	that.logger.Info("connection removed", "connection_id", connectionID)
}

// HandleMessage - dispatches one inbound frame. Rejections go back to the sender as game_error.
func (that *Gateway) HandleMessage(connectionID string, data []byte) {
	that.mu.Lock()
	defer that.mu.Unlock()

	p, ok := that.peers[connectionID]
	if !ok {
		return
	}

	var message Message
	if err := json.Unmarshal(data, &message); err != nil {
		that.reject(connectionID, p, fmt.Errorf("%w: %w", apperror.ErrMalformedMessage, err))
		return
	}

	handler, ok := that.handlers[message.Action]
	if !ok {
		that.metrics.MessageReceived(unknownAction)
		that.reject(connectionID, p, fmt.Errorf("%w: %q", apperror.ErrUnknownAction, message.Action))
		return
	}

	that.metrics.MessageReceived(message.Action)

	notifications, err := handler(connectionID, p, message.Payload)
	if err != nil {
		that.reject(connectionID, p, err)
		return
	}

	that.deliver(notifications)
}

func (that *Gateway) handleJoin(connectionID string, p *peer, payload json.RawMessage) ([]entity.Notification, error) {
	var req JoinPayload
	if err := decodePayload(payload, &req); err != nil {
		return nil, err
	}

	req.DisplayName = strings.TrimSpace(req.DisplayName)
	if err := that.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %w", apperror.ErrInvalidName, err)
	}

	notifications, err := that.matchmaker.Join(entity.Identity{ConnectionID: connectionID, DisplayName: req.DisplayName})
	if err != nil {
		return nil, fmt.Errorf("failed to join: %w", err)
	}

	p.name = req.DisplayName

	return notifications, nil
}

func (that *Gateway) handleMove(connectionID string, p *peer, payload json.RawMessage) ([]entity.Notification, error) {
	if p.name == "" {
		return nil, apperror.ErrNotJoined
	}

	var req MovePayload
	if err := decodePayload(payload, &req); err != nil {
		return nil, err
	}

	if err := that.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %w", apperror.ErrMalformedMessage, err)
	}

	notifications, err := that.matchmaker.SubmitMove(connectionID, *req.Index)
	if err != nil {
		return nil, fmt.Errorf("failed to move: %w", err)
	}

	return notifications, nil
}

// handleChat - empty text is dropped silently; long text is cut to the configured length.
func (that *Gateway) handleChat(connectionID string, p *peer, payload json.RawMessage) ([]entity.Notification, error) {
	if p.name == "" {
		return nil, apperror.ErrNotJoined
	}

	var req ChatPayload
	if err := decodePayload(payload, &req); err != nil {
		return nil, err
	}

	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, nil
	}

	if !p.limiter.Allow() {
		return nil, apperror.ErrRateLimited
	}

	notifications, err := that.matchmaker.RelayMessage(connectionID, truncate(text, that.limits.MaxChatLength))
	if errors.Is(err, apperror.ErrNotInSession) {
		return nil, apperror.ErrChatWithoutGame
	}
	if err != nil {
		return nil, fmt.Errorf("failed to relay message: %w", err)
	}

	return notifications, nil
}

// deliver - enqueues notifications; recipients that are already gone are skipped.
func (that *Gateway) deliver(notifications []entity.Notification) {
	log := that.logger.With("method", "deliver")

	for _, notification := range notifications {
		p, ok := that.peers[notification.Recipient]
		if !ok {
			continue
		}

		data, err := encodeNotification(notification)
		if err != nil {
			log.Error("failed to encode notification", "event", notification.Event, "error", err)
			continue
		}

		if !p.sink.Send(data) {
			log.Warn("send queue full, dropping message", "connection_id", notification.Recipient, "event", notification.Event)
		}
	}
}

func (that *Gateway) reject(connectionID string, p *peer, err error) {
	that.metrics.RequestRejected(err)

	that.logger.Debug("request rejected", "connection_id", connectionID, "error", err)

	data, encodeErr := encodeNotification(entity.Notification{
		Recipient: connectionID,
		Event:     entity.EventGameError,
		Payload:   entity.ErrorPayload{Message: apperror.Message(err)},
	})
	if encodeErr != nil {
		that.logger.Error("failed to encode error", "error", encodeErr)
		return
	}

	p.sink.Send(data)
}

// sanitizeName - used for names taken from the connection URL, which are never rejected.
func (that *Gateway) sanitizeName(name string) string {
	name = strings.Map(func(r rune) rune {
		if unicode.IsPrint(r) {
			return r
		}
		return -1
	}, strings.TrimSpace(name))

	name = strings.TrimSpace(truncate(name, that.limits.MaxNameLength))
	if name == "" {
		return defaultDisplayName
	}

	return name
}

func (that *Gateway) validDisplayName(fl validator.FieldLevel) bool {
	name := fl.Field().String()

	length := utf8.RuneCountInString(name)
	if length == 0 || length > that.limits.MaxNameLength {
		return false
	}

	for _, r := range name {
		if !unicode.IsPrint(r) {
			return false
		}
	}

	return true
}

func decodePayload(payload json.RawMessage, v any) error {
	if len(payload) == 0 {
		return fmt.Errorf("%w: missing payload", apperror.ErrMalformedMessage)
	}

	if err := json.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("%w: %w", apperror.ErrMalformedMessage, err)
	}

	return nil
}

func truncate(text string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(text) <= limit {
		return text
	}

	return string([]rune(text)[:limit])
}
