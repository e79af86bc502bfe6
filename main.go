package main

import (
	"context"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/safegraphle/go-server/internal/catalog"
	"github.com/safegraphle/go-server/internal/httpserver"
	"github.com/safegraphle/go-server/internal/places"
	"github.com/safegraphle/go-server/internal/store"
)

func main() {
	_ = godotenv.Load()
	if lvl, err := zerolog.ParseLevel(getEnv("LOG_LEVEL", "info")); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}

	db, err := openDB(getEnv("DATA_DB", "./data/places.db"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open dataset db")
	}
	if err := migrate(db); err != nil {
		log.Fatal().Err(err).Msg("failed to migrate dataset db")
	}

	pl := places.NewStore(db)
	if err := catalog.Init(func() ([]catalog.Brand, error) {
		return pl.BrandSummaries(context.Background())
	}); err != nil {
		log.Fatal().Err(err).Msg("failed to load brand catalog")
	}
	loaded, filtered := catalog.Stats()
	log.Info().Int("brands", loaded).Int("filtered", filtered).Msg("catalog loaded")

	mem := store.NewMemoryStore()
	srv := httpserver.New(mem, pl)
	port := getEnv("PORT", "5175")
	log.Info().Str("port", port).Msg("starting go-server")
	if err := srv.Start(":" + port); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}

func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" { return v }
	return def
}
