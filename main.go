package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/reusegame/go-server/internal/game"
	"github.com/reusegame/go-server/internal/httpserver"
	"github.com/reusegame/go-server/internal/lexicon"
	"github.com/reusegame/go-server/internal/rules"
	"github.com/reusegame/go-server/internal/stream"
	"github.com/reusegame/go-server/internal/ws"
)

func main() {
	_ = godotenv.Load()
	if lvl, err := zerolog.ParseLevel(getEnv("LOG_LEVEL", "info")); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}

	lex := lexicon.New()
	if err := lex.Load(); err != nil {
		// Degraded mode: empty sets reject every word, but the process
		// keeps serving so operators can fix the lists without an outage.
		log.Error().Err(err).Msg("dictionary load failed, running degraded")
	}
	valid, rejected := lex.Stats()
	log.Info().Int("valid", valid).Int("rejected", rejected).Msg("word lists loaded")

	cfg := game.ConfigFromEnv()
	reg := game.NewRegistry(cfg)
	hub := ws.NewHub()

	var feed game.Feed
	if f := stream.New(getEnv("KAFKA_BROKER", "")); f != nil {
		feed = f
		log.Info().Msg("kafka game-event feed enabled")
	}

	coord := game.NewCoordinator(cfg, reg, rules.NewValidator(lex), lex, hub, feed)
	hub.SetHandler(coord)

	srv := httpserver.New(hub, lex, getEnv("PUBLIC_DIR", "public"))
	port := getEnv("PORT", "8080")
	log.Info().Str("port", port).Msg("starting reuse-go server")
	if err := srv.Start(":" + port); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}

func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
