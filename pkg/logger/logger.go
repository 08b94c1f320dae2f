package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// New builds the process logger. Development gets a human readable console
// writer, everything else gets JSON lines on stdout.
func New(env string) zerolog.Logger {
	var out io.Writer = os.Stdout
	if env == "development" {
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}

	logger := zerolog.New(out).
		With().
		Timestamp().
		Logger()

	// Packages that log through the global logger (response, database) pick
	// up the same sink.
	log.Logger = logger

	return logger
}

// Nop is handy for tests and for components constructed without a logger.
func Nop() zerolog.Logger {
	return zerolog.Nop()
}
