package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"think-alike/internal/config"
	"think-alike/internal/db"
	"think-alike/internal/engine"
	"think-alike/internal/game"
	"think-alike/internal/notify"
	"think-alike/internal/server"
	"think-alike/internal/store"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	dotenvErr := config.LoadDotEnv(".env")
	cfg, err := config.Load()
	config.SetupLogger(cfg)
	if dotenvErr != nil {
		log.Warn().Err(dotenvErr).Msg("failed to load .env")
	}
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	if err := run(ctx, cfg); err != nil {
		log.Fatal().Err(err).Msg("server failed")
	}
	log.Info().Msg("server exited gracefully")
}

func run(ctx context.Context, cfg config.Config) error {
	var conn *gorm.DB
	if cfg.DatabaseURL != "" {
		var err error
		conn, err = db.Open(cfg.DatabaseURL, db.PoolConfig{
			MaxOpenConns:    cfg.DBMaxOpenConns,
			MaxIdleConns:    cfg.DBMaxIdleConns,
			ConnMaxLifetime: cfg.ConnMaxLifetime(),
			ConnMaxIdleTime: cfg.ConnMaxIdleTime(),
		})
		if err != nil {
			return fmt.Errorf("database connection failed: %w", err)
		}
		if err := db.Migrate(conn); err != nil {
			return fmt.Errorf("database migration failed: %w", err)
		}
	}

	var redisClient *redis.Client
	if cfg.RoomStore == "redis" || cfg.Notifier == "redis" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer redisClient.Close()
		if err := redisClient.WithContext(ctx).Ping().Err(); err != nil {
			return fmt.Errorf("redis ping failed: %w", err)
		}
	}

	rooms, closeStore, err := openStore(cfg, conn, redisClient)
	if err != nil {
		return err
	}
	defer closeStore()

	machine, err := newMachine(ctx, cfg, conn)
	if err != nil {
		return err
	}

	hub := notify.NewHub()
	var notifier notify.Notifier = hub
	if cfg.Notifier == "redis" {
		// Every instance relays Redis messages into its own hub, this one
		// included, so the engine publishes to Redis only.
		notifier = notify.NewRedisPublisher(redisClient)
		go func() {
			if err := notify.Relay(ctx, redisClient, hub); err != nil {
				log.Error().Err(err).Msg("redis relay stopped")
			}
		}()
	}

	var journal engine.Journal
	var events server.EventSource
	if conn != nil {
		eventLog := db.NewEventLog(conn)
		journal = eventLog
		events = eventLog
	}

	eng := engine.New(engine.Options{
		Store:    rooms,
		Notifier: notifier,
		Machine:  machine,
		Journal:  journal,
		Retries:  cfg.ApplyRetries,
	})
	defer eng.Close()

	if sweeper, ok := rooms.(store.Sweeper); ok && cfg.RoomTTL > 0 {
		go store.RunJanitor(ctx, sweeper, cfg.SweepInterval)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           server.New(eng, hub, events, cfg).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().
			Str("addr", srv.Addr).
			Str("store", cfg.RoomStore).
			Str("notifier", cfg.Notifier).
			Msg("think-alike server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}
	return nil
}

func openStore(cfg config.Config, conn *gorm.DB, client *redis.Client) (store.Store, func(), error) {
	noop := func() {}
	switch cfg.RoomStore {
	case "", "memory":
		return store.NewMemory(cfg.RoomTTL), noop, nil
	case "redis":
		return store.NewRedis(client, cfg.RedisPrefix, cfg.RoomTTL), noop, nil
	case "sqlite":
		s, err := store.OpenSQLite(cfg.SQLitePath, cfg.RoomTTL)
		if err != nil {
			return nil, noop, fmt.Errorf("open sqlite store: %w", err)
		}
		return s, func() {
			if err := s.Close(); err != nil {
				log.Warn().Err(err).Msg("close sqlite store")
			}
		}, nil
	case "postgres":
		if conn == nil {
			return nil, noop, errors.New("ROOM_STORE=postgres requires DATABASE_URL")
		}
		return store.NewPostgres(conn, cfg.RoomTTL), noop, nil
	default:
		return nil, noop, fmt.Errorf("unknown ROOM_STORE %q", cfg.RoomStore)
	}
}

// newMachine draws system topics from the topic library when one is
// configured and non-empty.
func newMachine(ctx context.Context, cfg config.Config, conn *gorm.DB) (*game.Machine, error) {
	opts := []game.Option{game.WithSystemTopicCount(cfg.SystemTopicCount)}
	if conn != nil {
		topics, err := db.ListTopics(ctx, conn, "")
		if err != nil {
			return nil, fmt.Errorf("load topic library: %w", err)
		}
		if len(topics) > 0 {
			log.Info().Int("topics", len(topics)).Msg("using topic library")
			opts = append(opts, game.WithTopics(topics))
		}
	}
	return game.NewMachine(opts...), nil
}
