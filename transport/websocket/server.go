package websocket

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const shutdownTimeout = 5 * time.Second

type Server struct {
	logger   *slog.Logger
	gateway  *Gateway
	upgrader websocket.Upgrader
}

// New - builds the websocket server. An empty allowedOrigins list accepts any origin.
func New(logger *slog.Logger, gateway *Gateway, allowedOrigins []string) *Server {
	server := &Server{
		logger:  logger.With("component", "websocket"),
		gateway: gateway,
	}

	origins := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		origins[origin] = struct{}{}
	}

	server.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if len(origins) == 0 || origin == "" {
				return true
			}

			if _, ok := origins[origin]; ok {
				return true
			}

			server.logger.Warn("origin not allowed", "origin", origin)
			return false
		},
	}

	return server
}

func (that *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/ws", that.upgradeToWebSocket)

	return r
}

// Start - serves websocket connections until ctx is done.
func (that *Server) Start(ctx context.Context, port string) error {
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           that.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		that.logger.Info("starting websocket server", "port", port)
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

	// hijacked connections are not tracked by Shutdown; their pumps end when the process exits
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	that.logger.Info("websocket server stopped")

	return nil
}

// upgradeToWebSocket - upgrades the request and runs the read pump on the handler goroutine.
func (that *Server) upgradeToWebSocket(writer http.ResponseWriter, req *http.Request) {
	log := that.logger.With("method", "upgradeToWebSocket")

	conn, err := that.upgrader.Upgrade(writer, req, nil)
	if err != nil {
		log.Warn("failed to upgrade connection", "error", err)
		return
	}

	var name *string
	if query := req.URL.Query(); query.Has("name") {
		value := query.Get("name")
		name = &value
	}

	client := NewClient(that.logger, uuid.NewString(), conn, that.gateway)

	go client.WritePump()

	that.gateway.Connect(client.id, client, name)

	client.ReadPump()
}
