package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/rocketscienceinc/tictactoe-duel/internal/config"
	"github.com/rocketscienceinc/tictactoe-duel/internal/metrics"
	"github.com/rocketscienceinc/tictactoe-duel/internal/repository"
	"github.com/rocketscienceinc/tictactoe-duel/internal/repository/storage"
	"github.com/rocketscienceinc/tictactoe-duel/internal/service"
	"github.com/rocketscienceinc/tictactoe-duel/internal/usecase"
	"github.com/rocketscienceinc/tictactoe-duel/transport/rest"
	"github.com/rocketscienceinc/tictactoe-duel/transport/websocket"
)

var ErrAddrNotFound = errors.New("redis address string is empty")

// RunApp - runs the application until ctx is canceled or a signal arrives.
func RunApp(ctx context.Context, logger *slog.Logger, conf *config.Config) error {
	log := logger.With("component", "app")

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	appMetrics := metrics.New(registry)
	observers := usecase.Observers{appMetrics}

	group, ctx := errgroup.WithContext(ctx)

	var (
		gameService   service.GameService
		playerService service.PlayerService
	)

	if conf.Redis.Enabled {
		redisAddrString := conf.Redis.GetRedisAddr()
		if redisAddrString == "" {
			return ErrAddrNotFound
		}

		redisStorage, err := storage.New(ctx, redisAddrString)
		if err != nil {
			return fmt.Errorf("could not connect to redis storage: %w", err)
		}

		defer func() {
			if err = redisStorage.Close(); err != nil {
				log.Error("could not close redis storage", "error", err)
			}
		}()

		gameService = service.NewGameService(repository.NewGameRepository(redisStorage, conf.Redis.RecordTTL))
		playerService = service.NewPlayerService(repository.NewPlayerRepository(redisStorage, conf.Redis.RecordTTL))

		mirror := service.NewMirror(logger, gameService, playerService, conf.Mirror.QueueSize)
		observers = append(observers, mirror)

		group.Go(func() error {
			return mirror.Run(ctx)
		})
	} else {
		log.Info("redis is disabled, live games are not mirrored")
	}

	matchmaker := usecase.NewMatchmaker(logger,
		usecase.WithObserver(observers),
		usecase.WithRequeue(conf.Game.RequeueOnOpponentLeft),
	)

	gateway := websocket.NewGateway(logger, matchmaker, appMetrics, websocket.Limits{
		MaxNameLength: conf.Game.MaxNameLength,
		MaxChatLength: conf.Game.MaxChatLength,
		ChatRate:      rate.Limit(conf.Game.ChatRate),
		ChatBurst:     conf.Game.ChatBurst,
	})

	wsServer := websocket.New(logger, gateway, conf.AllowedOrigins)
	restServer := rest.New(logger, matchmaker, gameService, playerService, registry, conf.AllowedOrigins)

	group.Go(func() error {
		if err := restServer.Start(ctx, conf.HTTPPort); err != nil {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	group.Go(func() error {
		if err := wsServer.Start(ctx, conf.SocketPort); err != nil {
			return fmt.Errorf("WebSocket server error: %w", err)
		}
		return nil
	})

	if err := group.Wait(); err != nil {
		return err
	}

	log.Info("application stopped")

	return nil
}
