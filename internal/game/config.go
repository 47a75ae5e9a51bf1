// internal/game/config.go
//
// Tunables for the game core, resolved from the environment with sane
// defaults. Nothing here is hardcoded elsewhere; in particular the room-id
// space and its collision-retry bound are configuration, not constants.

package game

import (
	"os"
	"strconv"
	"time"
)

// Config collects every gameplay tunable.
type Config struct {
	MaxPlayers     int           // largest room capacity a client may request
	MaxTurns       int           // turns each player gets before the game ends
	MaxPinBan      int           // pin/ban constraints each player may impose
	RoomIDSpace    int           // room ids are drawn from [1, RoomIDSpace)
	RoomIDAttempts int           // collision-retry bound for id generation
	MinWordLen     int           // initial-word length bounds (inclusive)
	MaxWordLen     int
	TurnTimeout    time.Duration // server-side turn countdown; 0 disables
}

// DefaultConfig returns the standard gameplay tunables.
func DefaultConfig() Config {
	return Config{
		MaxPlayers:     4,
		MaxTurns:       5,
		MaxPinBan:      3,
		RoomIDSpace:    1000,
		RoomIDAttempts: 100,
		MinWordLen:     3,
		MaxWordLen:     6,
		TurnTimeout:    60 * time.Second,
	}
}

// ConfigFromEnv layers environment overrides on top of the defaults.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()
	cfg.MaxPlayers = envInt("GAME_MAX_PLAYERS", cfg.MaxPlayers)
	cfg.MaxTurns = envInt("GAME_MAX_TURNS", cfg.MaxTurns)
	cfg.MaxPinBan = envInt("GAME_MAX_PIN_BAN", cfg.MaxPinBan)
	cfg.RoomIDSpace = envInt("GAME_ROOM_ID_SPACE", cfg.RoomIDSpace)
	cfg.RoomIDAttempts = envInt("GAME_ROOM_ID_ATTEMPTS", cfg.RoomIDAttempts)
	cfg.MinWordLen = envInt("GAME_MIN_WORD_LEN", cfg.MinWordLen)
	cfg.MaxWordLen = envInt("GAME_MAX_WORD_LEN", cfg.MaxWordLen)
	if secs := envInt("GAME_TURN_TIMEOUT_SECONDS", int(cfg.TurnTimeout/time.Second)); secs >= 0 {
		cfg.TurnTimeout = time.Duration(secs) * time.Second
	}
	return cfg
}

// envInt returns the integer value of k or def if unset/invalid.
func envInt(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
