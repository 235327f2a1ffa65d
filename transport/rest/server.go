package rest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
)

const shutdownTimeout = 5 * time.Second

type Server struct {
	logger         *slog.Logger
	handlers       *handlers
	gatherer       prometheus.Gatherer
	allowedOrigins []string
}

// New - ops API. games and players may be nil when storage is disabled.
func New(
	logger *slog.Logger,
	stats statsProvider,
	games gameService,
	players playerService,
	gatherer prometheus.Gatherer,
	allowedOrigins []string,
) *Server {
	logger = logger.With("component", "rest")

	return &Server{
		logger: logger,
		handlers: &handlers{
			logger:  logger,
			stats:   stats,
			games:   games,
			players: players,
		},
		gatherer:       gatherer,
		allowedOrigins: allowedOrigins,
	}
}

func (that *Server) Handler() http.Handler {
	r := chi.NewRouter()

	origins := that.allowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	})
	r.Use(c.Handler)

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/ping", that.handlers.Ping)
	r.Get("/health", that.handlers.Health)
	r.Get("/stats", that.handlers.Stats)
	r.Get("/games/{id}", that.handlers.Game)
	r.Get("/players/{id}", that.handlers.Player)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(that.gatherer, promhttp.HandlerOpts{}))

	return r
}

// Start - serves the ops API until ctx is done.
func (that *Server) Start(ctx context.Context, port string) error {
	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      that.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		that.logger.Info("starting HTTP server", "port", port)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("failed to start server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	that.logger.Info("HTTP server stopped")

	return nil
}
