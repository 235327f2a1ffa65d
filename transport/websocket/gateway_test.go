package websocket

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/tictactoe-duel/internal/entity"
	"github.com/rocketscienceinc/tictactoe-duel/internal/metrics"
	"github.com/rocketscienceinc/tictactoe-duel/internal/usecase"
)

type fakeSink struct {
	mu       sync.Mutex
	messages []Message
	full     bool
}

func (that *fakeSink) Send(data []byte) bool {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.full {
		return false
	}

	var message Message
	if err := json.Unmarshal(data, &message); err != nil {
		panic(err)
	}
	that.messages = append(that.messages, message)

	return true
}

// drain - returns and forgets everything received so far.
func (that *fakeSink) drain() []Message {
	that.mu.Lock()
	defer that.mu.Unlock()

	messages := that.messages
	that.messages = nil

	return messages
}

func (that *fakeSink) actions() []string {
	var actions []string
	for _, message := range that.drain() {
		actions = append(actions, message.Action)
	}
	return actions
}

var testLimits = Limits{
	MaxNameLength: 20,
	MaxChatLength: 200,
	ChatRate:      100,
	ChatBurst:     100,
}

type fixture struct {
	gateway *Gateway
	metrics *metrics.Metrics
}

func newFixture(t *testing.T, limits Limits) *fixture {
	t.Helper()

	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	m := metrics.New(prometheus.NewRegistry())

	counter := 0
	matchmaker := usecase.NewMatchmaker(logger,
		usecase.WithObserver(m),
		usecase.WithIDGenerator(func() string {
			counter++
			return fmt.Sprintf("game-%d", counter)
		}),
	)

	return &fixture{
		gateway: NewGateway(logger, matchmaker, m, limits),
		metrics: m,
	}
}

func (that *fixture) connect(id string) *fakeSink {
	sink := &fakeSink{}
	that.gateway.Connect(id, sink, nil)
	return sink
}

func (that *fixture) send(id, action string, payload any) {
	message := map[string]any{"action": action}
	if payload != nil {
		message["payload"] = payload
	}

	data, err := json.Marshal(message)
	if err != nil {
		panic(err)
	}

	that.gateway.HandleMessage(id, data)
}

func (that *fixture) join(id, name string) {
	that.send(id, actionJoin, map[string]any{"displayName": name})
}

func (that *fixture) move(id string, index int) {
	that.send(id, actionMove, map[string]any{"index": index})
}

// startGame - alice plays X, bob plays O; both sinks are drained.
func (that *fixture) startGame() (alice, bob *fakeSink) {
	alice = that.connect("alice")
	bob = that.connect("bob")

	that.join("alice", "Alice")
	that.join("bob", "Bob")

	alice.drain()
	bob.drain()

	return alice, bob
}

func decode[T any](t *testing.T, message Message) T {
	t.Helper()

	var payload T
	require.NoError(t, json.Unmarshal(message.Payload, &payload))

	return payload
}

func errorMessage(t *testing.T, sink *fakeSink) string {
	t.Helper()

	messages := sink.drain()
	require.Len(t, messages, 1)
	require.Equal(t, entity.EventGameError, messages[0].Action)

	return decode[entity.ErrorPayload](t, messages[0]).Message
}

func TestGateway_Pairing(t *testing.T) {
	t.Run("First player waits, second starts the game", func(t *testing.T) {
		// Given: two connected players
		f := newFixture(t, testLimits)
		alice := f.connect("alice")
		bob := f.connect("bob")

		// When: alice joins
		f.join("alice", "  Alice ")

		// Then: alice is told to wait
		assert.Equal(t, []string{entity.EventWaiting}, alice.actions())

		// When: bob joins
		f.join("bob", "Bob")

		// Then: each gets their symbol before the first state
		aliceMessages := alice.drain()
		require.Len(t, aliceMessages, 2)
		assert.Equal(t, entity.EventGameStart, aliceMessages[0].Action)
		assert.Equal(t, entity.EventStateUpdate, aliceMessages[1].Action)

		start := decode[entity.GameStartPayload](t, aliceMessages[0])
		assert.Equal(t, entity.MarkX, start.Symbol)
		assert.Equal(t, "Bob", start.OpponentName)

		bobMessages := bob.drain()
		require.Len(t, bobMessages, 2)
		start = decode[entity.GameStartPayload](t, bobMessages[0])
		assert.Equal(t, entity.MarkO, start.Symbol)
		assert.Equal(t, "Alice", start.OpponentName)

		state := decode[entity.GameState](t, bobMessages[1])
		assert.Equal(t, entity.Board{}, state.Board)
		assert.Equal(t, entity.MarkX, state.CurrentPlayer)
		assert.False(t, state.GameOver)
		assert.Nil(t, state.Winner)

		assert.InDelta(t, 1, testutil.ToFloat64(f.metrics.GamesStarted), 0)
	})

	t.Run("Name from the connection URL joins on connect", func(t *testing.T) {
		// Given: a gateway
		f := newFixture(t, testLimits)
		name := "   "
		sink := &fakeSink{}

		// When: connecting with a blank name
		f.gateway.Connect("anon", sink, &name)

		// Then: the player waits under the default name
		assert.Equal(t, []string{entity.EventWaiting}, sink.actions())

		bob := f.connect("bob")
		f.join("bob", "Bob")

		start := decode[entity.GameStartPayload](t, bob.drain()[0])
		assert.Equal(t, defaultDisplayName, start.OpponentName)
	})

	t.Run("Joining twice is rejected", func(t *testing.T) {
		f := newFixture(t, testLimits)
		alice := f.connect("alice")
		f.join("alice", "Alice")
		alice.drain()

		f.join("alice", "Alice")

		assert.Equal(t, "You are already waiting or playing.", errorMessage(t, alice))
	})

	t.Run("Invalid display names are rejected", func(t *testing.T) {
		names := []string{"", "    ", strings.Repeat("a", 21), "bad\x00name"}

		for _, name := range names {
			f := newFixture(t, testLimits)
			alice := f.connect("alice")

			f.join("alice", name)

			assert.Equal(t, "Please enter a valid display name.", errorMessage(t, alice), "name %q", name)
		}
	})
}

func TestGateway_Play(t *testing.T) {
	t.Run("X wins on the top row", func(t *testing.T) {
		// Given: a started game
		f := newFixture(t, testLimits)
		alice, bob := f.startGame()

		// When: playing 0,3,1,4,2
		for i, index := range []int{0, 3, 1, 4, 2} {
			if i%2 == 0 {
				f.move("alice", index)
			} else {
				f.move("bob", index)
			}
		}

		// Then: both saw five updates and the last one names X
		aliceMessages := alice.drain()
		require.Len(t, aliceMessages, 5)

		bobMessages := bob.drain()
		require.Len(t, bobMessages, 5)

		state := decode[entity.GameState](t, bobMessages[4])
		assert.True(t, state.GameOver)
		require.NotNil(t, state.Winner)
		assert.Equal(t, "X", *state.Winner)
		assert.Equal(t, entity.MarkX, state.Board[2])
		assert.Equal(t, entity.EmptyCell, state.Board[5])

		assert.InDelta(t, 1, testutil.ToFloat64(f.metrics.GamesFinished.WithLabelValues(string(entity.StatusWon))), 0)

		// When: moving after the end
		f.move("bob", 5)

		// Then: the game is over
		assert.Equal(t, "Game is already over.", errorMessage(t, bob))
	})

	t.Run("Full board without a line is a draw", func(t *testing.T) {
		f := newFixture(t, testLimits)
		alice, _ := f.startGame()

		for i, index := range []int{0, 1, 2, 4, 3, 5, 7, 6, 8} {
			if i%2 == 0 {
				f.move("alice", index)
			} else {
				f.move("bob", index)
			}
		}

		messages := alice.drain()
		require.Len(t, messages, 9)

		state := decode[entity.GameState](t, messages[8])
		assert.True(t, state.GameOver)
		require.NotNil(t, state.Winner)
		assert.Equal(t, entity.WinnerDraw, *state.Winner)
	})

	t.Run("Rejected moves reach only the sender", func(t *testing.T) {
		f := newFixture(t, testLimits)
		alice, bob := f.startGame()

		f.move("bob", 0)
		assert.Equal(t, "Not your turn.", errorMessage(t, bob))
		assert.Empty(t, alice.drain())

		f.move("alice", 9)
		assert.Equal(t, "Invalid cell index.", errorMessage(t, alice))

		f.move("alice", 4)
		alice.drain()
		bob.drain()

		f.move("bob", 4)
		assert.Equal(t, "Cell already taken.", errorMessage(t, bob))
		assert.Empty(t, alice.drain())

		assert.InDelta(t, 1, testutil.ToFloat64(f.metrics.RejectedRequests.WithLabelValues("not_your_turn")), 0)
		assert.InDelta(t, 2, testutil.ToFloat64(f.metrics.RejectedRequests.WithLabelValues("illegal_move")), 0)
	})

	t.Run("Move before joining", func(t *testing.T) {
		f := newFixture(t, testLimits)
		alice := f.connect("alice")

		f.move("alice", 0)

		assert.Equal(t, "Player not recognized. Please refresh.", errorMessage(t, alice))
	})

	t.Run("Move without an index is malformed", func(t *testing.T) {
		f := newFixture(t, testLimits)
		alice, _ := f.startGame()

		f.send("alice", actionMove, map[string]any{})

		assert.Equal(t, "Malformed message.", errorMessage(t, alice))
	})

	t.Run("Waiting player has no game", func(t *testing.T) {
		f := newFixture(t, testLimits)
		alice := f.connect("alice")
		f.join("alice", "Alice")
		alice.drain()

		f.move("alice", 0)

		assert.Equal(t, "You are not in an active game.", errorMessage(t, alice))
	})
}

func TestGateway_Chat(t *testing.T) {
	t.Run("Chat goes to the opponent only", func(t *testing.T) {
		// Given: a started game
		f := newFixture(t, testLimits)
		alice, bob := f.startGame()

		// When: alice chats with padding
		f.send("alice", actionChat, map[string]any{"text": "  good luck  "})

		// Then: bob gets the trimmed text, alice gets nothing
		assert.Empty(t, alice.drain())

		messages := bob.drain()
		require.Len(t, messages, 1)
		assert.Equal(t, entity.EventChatMessage, messages[0].Action)

		chat := decode[entity.ChatPayload](t, messages[0])
		assert.Equal(t, "Alice", chat.Sender)
		assert.Equal(t, "good luck", chat.Text)
	})

	t.Run("Blank chat is dropped", func(t *testing.T) {
		f := newFixture(t, testLimits)
		alice, bob := f.startGame()

		f.send("alice", actionChat, map[string]any{"text": "   "})

		assert.Empty(t, alice.drain())
		assert.Empty(t, bob.drain())
	})

	t.Run("Long chat is truncated", func(t *testing.T) {
		f := newFixture(t, testLimits)
		_, bob := f.startGame()

		f.send("alice", actionChat, map[string]any{"text": strings.Repeat("é", 250)})

		messages := bob.drain()
		require.Len(t, messages, 1)
		assert.Equal(t, strings.Repeat("é", 200), decode[entity.ChatPayload](t, messages[0]).Text)
	})

	t.Run("Chat while waiting", func(t *testing.T) {
		f := newFixture(t, testLimits)
		alice := f.connect("alice")
		f.join("alice", "Alice")
		alice.drain()

		f.send("alice", actionChat, map[string]any{"text": "hello?"})

		assert.Equal(t, "You must be in a game to chat.", errorMessage(t, alice))
	})

	t.Run("Chat flood is rate limited", func(t *testing.T) {
		// Given: a burst of two and a negligible refill
		limits := testLimits
		limits.ChatRate = 0.001
		limits.ChatBurst = 2

		f := newFixture(t, limits)
		alice, bob := f.startGame()

		// When: sending three messages at once
		for i := 0; i < 3; i++ {
			f.send("alice", actionChat, map[string]any{"text": "spam"})
		}

		// Then: the third is rejected
		assert.Len(t, bob.drain(), 2)
		assert.Equal(t, "You are sending messages too fast.", errorMessage(t, alice))
	})
}

func TestGateway_Envelope(t *testing.T) {
	t.Run("Broken JSON", func(t *testing.T) {
		f := newFixture(t, testLimits)
		alice := f.connect("alice")

		f.gateway.HandleMessage("alice", []byte("{not json"))

		assert.Equal(t, "Malformed message.", errorMessage(t, alice))
	})

	t.Run("Unknown action", func(t *testing.T) {
		f := newFixture(t, testLimits)
		alice := f.connect("alice")

		f.send("alice", "resign", nil)

		assert.Equal(t, "Unknown action.", errorMessage(t, alice))
		assert.InDelta(t, 1, testutil.ToFloat64(f.metrics.MessagesTotal.WithLabelValues(unknownAction)), 0)
	})

	t.Run("Join without payload", func(t *testing.T) {
		f := newFixture(t, testLimits)
		alice := f.connect("alice")

		f.send("alice", actionJoin, nil)

		assert.Equal(t, "Malformed message.", errorMessage(t, alice))
	})

	t.Run("Messages from unknown connections are ignored", func(t *testing.T) {
		f := newFixture(t, testLimits)

		assert.NotPanics(t, func() {
			f.join("ghost", "Ghost")
		})
	})
}

func TestGateway_Disconnect(t *testing.T) {
	t.Run("Opponent is told once", func(t *testing.T) {
		// Given: a started game
		f := newFixture(t, testLimits)
		_, bob := f.startGame()
		require.InDelta(t, 2, testutil.ToFloat64(f.metrics.Connections), 0)

		// When: alice disconnects twice
		f.gateway.Disconnect("alice")
		f.gateway.Disconnect("alice")

		// Then: bob gets a single opponent_left
		assert.Equal(t, []string{entity.EventOpponentLeft}, bob.actions())
		assert.InDelta(t, 1, testutil.ToFloat64(f.metrics.Connections), 0)
		assert.InDelta(t, 1, testutil.ToFloat64(f.metrics.GamesFinished.WithLabelValues(string(entity.StatusAbandoned))), 0)

		// When: bob tries to move
		f.move("bob", 0)

		// Then: the game is frozen
		assert.Equal(t, "Game is already over.", errorMessage(t, bob))

		// When: bob looks for a new game
		f.join("bob", "Bob")

		// Then: bob waits again
		assert.Equal(t, []string{entity.EventWaiting}, bob.actions())
	})

	t.Run("Waiting player leaves silently", func(t *testing.T) {
		f := newFixture(t, testLimits)
		alice := f.connect("alice")
		f.join("alice", "Alice")
		alice.drain()

		f.gateway.Disconnect("alice")

		bob := f.connect("bob")
		f.join("bob", "Bob")

		assert.Equal(t, []string{entity.EventWaiting}, bob.actions())
		assert.InDelta(t, 1, testutil.ToFloat64(f.metrics.WaitingPlayers), 0)
	})

	t.Run("Full queue drops messages without blocking", func(t *testing.T) {
		f := newFixture(t, testLimits)
		alice, bob := f.startGame()
		bob.full = true

		assert.NotPanics(t, func() {
			f.move("alice", 0)
		})

		assert.Len(t, alice.drain(), 1)
		assert.Empty(t, bob.drain())
	})
}
