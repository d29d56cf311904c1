package logger

import (
	"os"

	"github.com/rs/zerolog"
)

// New returns a service-tagged JSON logger writing to stdout.
func New(service string) zerolog.Logger {
	return zerolog.New(os.Stdout).With().
		Timestamp().
		Str("service", service).
		Logger()
}
