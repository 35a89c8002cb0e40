package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"motorline-auction-service/internal/adapters/broadcaster"
	"motorline-auction-service/internal/adapters/db"
	"motorline-auction-service/internal/adapters/redis"
	"motorline-auction-service/internal/adapters/rest"
	"motorline-auction-service/internal/adapters/ws"
	"motorline-auction-service/internal/app"
	"motorline-auction-service/internal/config"
	"motorline-auction-service/internal/ports/outbound"
)

func main() {

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	initLogging(cfg)

	log.Info().Msg("Starting Motorline Auction Service...")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dbConn, err := db.NewConnection(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer dbConn.Close()

	if err := dbConn.RunMigrations(); err != nil {
		log.Fatal().Err(err).Msg("Failed to run database migrations")
	}

	log.Info().Msg("Database connection established")

	repoFactory := db.NewRepositoryFactory(dbConn)
	auctionRepo := repoFactory.GetAuctionRepository()
	bidRepo := repoFactory.GetBidRepository()
	userRepo := repoFactory.GetUserRepository()

	log.Info().Msg("Database repositories initialized")

	hub := buildHub(cfg)
	defer func() {
		if err := hub.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing notification hub")
		}
	}()

	lifecycle := app.NewLifecycle(app.LifecycleParams{
		AuctionRepo: auctionRepo,
		Broadcaster: hub,
		Logger:      log.Logger,
	})

	auctionService := app.NewAuctionService(app.AuctionServiceParams{
		AuctionRepo: auctionRepo,
		BidRepo:     bidRepo,
		UserRepo:    userRepo,
		Lifecycle:   lifecycle,
		Config:      cfg.Auction,
		Logger:      log.Logger,
	})
	bidService := app.NewBidService(app.BidServiceParams{
		BidRepo:     bidRepo,
		AuctionRepo: auctionRepo,
		UserRepo:    userRepo,
		Broadcaster: hub,
		Lifecycle:   lifecycle,
		Logger:      log.Logger,
	})

	log.Info().Msg("Business services initialized")

	verifier := rest.NewTokenVerifier(cfg.Auth.JWTSecret)

	server := ws.NewServer(ws.ServerParams{
		Config:         cfg,
		AuctionService: auctionService,
		BidService:     bidService,
		Broadcaster:    hub,
		Verifier:       verifier,
		Logger:         log.Logger,
	})

	go func() {
		if err := server.Start(); err != nil {
			log.Error().Err(err).Msg("Failed to start server")
			cancel()
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
	case <-ctx.Done():
		log.Info().Msg("Context cancelled")
	}

	log.Info().Msg("Starting graceful shutdown...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping server")
	}

	log.Info().Msg("Graceful shutdown completed")
}

// buildHub selects the live notification backend. Redis fans events out
// across instances; the local hub serves single-instance deployments and
// tests.
func buildHub(cfg *config.Config) outbound.Broadcaster {
	if cfg.Hub.Backend == config.HubBackendLocal {
		log.Info().Msg("Using in-process notification hub")
		return broadcaster.NewLocalBroadcaster(log.Logger)
	}

	redisClient := redis.NewClient(cfg)
	if err := redis.PingRedis(redisClient); err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	log.Info().Msg("Redis connection established")

	return broadcaster.NewRedisBroadcaster(broadcaster.RedisBroadcasterParams{
		RedisClient: redisClient,
		Logger:      log.Logger,
	})
}

func initLogging(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Logging.Format == "json" {
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	} else {
		output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
		log.Logger = zerolog.New(output).With().Timestamp().Logger()
	}

	zerolog.DefaultContextLogger = &log.Logger
}
