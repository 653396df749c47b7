package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"my-trips/internal/config"
	"my-trips/internal/handlers"
	"my-trips/internal/migrations"
	"my-trips/internal/repository"
	"my-trips/internal/services"
	"my-trips/internal/storage"
	"my-trips/internal/views"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const defaultConfigPath = "config.yaml"

// stores bundles the persistence backends selected by database.driver
type stores struct {
	trips  services.TripStore
	users  services.UserStore
	pinger handlers.Pinger
	close  func()
}

func Run() {
	// .env is optional
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Warn().Err(err).Msg("Failed to load .env file")
	}

	configPath := os.Getenv("TRIPS_CONFIG")
	if configPath == "" {
		configPath = defaultConfigPath
	}

	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", configPath).Msg("Failed to load configuration")
	}

	// Setup logger
	setupLogger(cfg.Log.Level)

	ctx := context.Background()

	st, err := openStores(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.Database.Driver).Msg("Failed to open database")
	}
	defer st.close()

	files, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.Storage.Driver).Msg("Failed to open photo storage")
	}
	log.Info().Str("driver", cfg.Storage.Driver).Msg("Photo storage ready")

	loc, err := cfg.App.Location()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to resolve time zone")
	}

	renderer, err := views.New()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to parse templates")
	}

	// Initialize services
	hub := services.NewEventHub()
	userService := services.NewUserService(st.users, cfg.JWT.Secret, cfg.JWT.TTL)
	tripService := services.NewTripService(st.trips, st.users, files, hub, loc, cfg.App.MaxUploadBytes)

	r := buildRouter(routerDeps{
		cfg:         cfg,
		userService: userService,
		tripService: tripService,
		hub:         hub,
		views:       renderer,
		db:          st.pinger,
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Info().
			Str("host", cfg.Server.Host).
			Int("port", cfg.Server.Port).
			Str("timezone", loc.String()).
			Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	// Hijacked websocket connections are not tracked by Shutdown
	hub.CloseAll()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

// openStores connects the configured database driver
func openStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	if cfg.Database.Driver == "memory" {
		log.Warn().Msg("Using in-memory database, data is lost on restart")
		mem := repository.NewMemoryStore()
		trips := mem.Trips()
		return &stores{trips: trips, users: mem.Users(), pinger: trips, close: func() {}}, nil
	}

	if cfg.Database.Migrate {
		if err := migrations.Apply(cfg.Database.URL()); err != nil {
			return nil, err
		}
	}

	db, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.Ping(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	log.Info().Str("host", cfg.Database.Host).Str("dbname", cfg.Database.DBName).Msg("Database connection established")

	trips := repository.NewTripRepository(db)
	return &stores{
		trips:  trips,
		users:  repository.NewUserRepository(db),
		pinger: trips,
		close:  db.Close,
	}, nil
}

// setupLogger configures zerolog logger
func setupLogger(level string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
