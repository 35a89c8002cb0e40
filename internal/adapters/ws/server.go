package ws

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"motorline-auction-service/internal/adapters/rest"
	"motorline-auction-service/internal/config"
	"motorline-auction-service/internal/ports/inbound"
	"motorline-auction-service/internal/ports/outbound"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Server hosts the HTTP API and the live channel on one listener
type Server struct {
	wsHandler  *WsHandler
	httpServer *http.Server
	config     *config.Config
	logger     zerolog.Logger
}

type ServerParams struct {
	Config         *config.Config
	AuctionService inbound.AuctionService
	BidService     inbound.BidService
	Broadcaster    outbound.Broadcaster
	Verifier       *rest.TokenVerifier
	Logger         zerolog.Logger
}

func NewServer(params ServerParams) *Server {
	wsHandler := NewHandler(WsHandlerParams{
		Upgrader: websocket.Upgrader{
			ReadBufferSize:  params.Config.WebSocket.ReadBufferSize,
			WriteBufferSize: params.Config.WebSocket.WriteBufferSize,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		Broadcaster: params.Broadcaster,
		Verifier:    params.Verifier,
		Logger:      params.Logger,
	})

	restHandler := rest.NewHandler(rest.HandlerParams{
		AuctionService: params.AuctionService,
		BidService:     params.BidService,
		Verifier:       params.Verifier,
		Logger:         params.Logger,
	})

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)

	router.Mount("/api/v1", restHandler.Routes())
	router.Get("/ws", wsHandler.HandleWebSocket)
	router.Get("/health", handleHealth)
	router.Handle("/metrics", promhttp.Handler())

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", params.Config.Server.Host, params.Config.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Minute,
	}

	return &Server{
		wsHandler:  wsHandler,
		httpServer: httpServer,
		config:     params.Config,
		logger:     params.Logger.With().Str("component", "server").Logger(),
	}
}

// Start blocks serving requests until the listener closes
func (s *Server) Start() error {
	s.logger.Info().Str("port", s.config.Server.Port).Msg("Starting server")

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Stop gracefully stops the server
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info().Msg("Stopping server...")

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	s.logger.Info().Msg("Server stopped")
	return nil
}

// GetConnectedClients exposes the live-channel client count
func (s *Server) GetConnectedClients() int {
	return s.wsHandler.GetConnectedClients()
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
