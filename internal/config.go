package internal

import (
	"fmt"
	"time"
)

type Config struct {
	Host            string        `env:"HOST,default=localhost"`
	Port            int           `env:"PORT,default=8080"`
	LogLevel        string        `env:"LOG_LEVEL,default=INFO"`
	SessionTTL      time.Duration `env:"SESSION_TTL,default=10m"`
	ConnectionTTL   time.Duration `env:"CONNECTION_TTL,default=30m"`
	SweepInterval   time.Duration `env:"SWEEP_INTERVAL,default=5m"`
	RestartInterval time.Duration `env:"RESTART_INTERVAL,default=200ms"`
	SendBufferSize  int           `env:"SEND_BUFFER_SIZE,default=32"`
	CharReplacement string        `env:"CHARACTER_REPLACEMENT,default=*"`
	ArchiveLimit    *int          `env:"ARCHIVE_LIMIT"`

	BadgerFilepath  string `env:"BADGER_FILEPATH,required=true"`
	BindTokenSecret string `env:"BIND_TOKEN_SECRET,required=true"`

	AuthBaseURL      string `env:"AUTH_BASE_URL,required=true"`
	AuthClientID     string `env:"AUTH_CLIENT_ID,required=true"`
	AuthClientSecret string `env:"AUTH_CLIENT_SECRET,required=true"`
	AuthAudience     string `env:"AUTH_AUDIENCE,required=true"`

	PlatformBaseURL string `env:"PLATFORM_BASE_URL,required=true"`
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
