package main

import (
	"flag"

	"github.com/rs/zerolog/log"

	"think-alike/internal/config"
	"think-alike/internal/db"
)

func main() {
	filePath := flag.String("file", "topics.csv", "path to topics csv")
	flag.Parse()

	dotenvErr := config.LoadDotEnv(".env")
	cfg, err := config.Load()
	config.SetupLogger(cfg)
	if dotenvErr != nil {
		log.Warn().Err(dotenvErr).Msg("failed to load .env")
	}
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	conn, err := db.Open(cfg.DatabaseURL, db.PoolConfig{MaxOpenConns: cfg.DBMaxOpenConns})
	if err != nil {
		log.Fatal().Err(err).Msg("database connection failed")
	}
	if err := db.Migrate(conn); err != nil {
		log.Fatal().Err(err).Msg("database migration failed")
	}

	loaded, err := db.LoadTopicLibrary(conn, *filePath)
	if err != nil {
		log.Fatal().Err(err).Int("loaded", loaded).Str("file", *filePath).Msg("failed to load topics")
	}
	log.Info().Int("loaded", loaded).Str("file", *filePath).Msg("loaded topics")
}
