package internal

import (
	"fmt"
	"time"
)

type Config struct {
	Host              string        `env:"HOST,default=localhost"`
	Port              int           `env:"PORT,default=8080"`
	LogLevel          string        `env:"LOG_LEVEL,default=INFO"`
	RoomLogCapacity   int           `env:"ROOM_LOG_CAPACITY,default=250"`
	ThreadLogCapacity int           `env:"THREAD_LOG_CAPACITY,default=250"`
	TypingTTL         time.Duration `env:"TYPING_TTL,default=4s"`
	SendBufferSize    int           `env:"SEND_BUFFER_SIZE,default=256"`
	RestartInterval   time.Duration `env:"RESTART_INTERVAL,default=200ms"`
	HealthInterval    time.Duration `env:"HEALTH_INTERVAL,default=30s"`
	CharReplacement   string        `env:"CHARACTER_REPLACEMENT,default=*"`
	ModerationEnabled bool          `env:"MODERATION_ENABLED,default=true"`
}

func CharacterRune(str string) (rune, error) {
	r := []rune(str)
	if len(r) != 1 {
		return 0, fmt.Errorf(
			"CHARACTER_REPLACEMENT must be a single character, got %q",
			str,
		)
	}
	return r[0], nil
}
