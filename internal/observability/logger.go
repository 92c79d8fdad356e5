package observability

import (
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	globalLogger zerolog.Logger
	initOnce     sync.Once
)

// InitLogger initializes the global structured logger.
// Only the first call takes effect.
func InitLogger(level string, pretty bool) {
	initOnce.Do(func() {
		logLevel, err := zerolog.ParseLevel(strings.ToLower(level))
		if err != nil || logLevel == zerolog.NoLevel {
			logLevel = zerolog.InfoLevel
		}

		if pretty {
			// Pretty console output for development
			output := zerolog.ConsoleWriter{
				Out:        os.Stdout,
				TimeFormat: time.RFC3339,
			}
			globalLogger = zerolog.New(output).Level(logLevel).With().Timestamp().Logger()
		} else {
			globalLogger = zerolog.New(os.Stdout).Level(logLevel).With().Timestamp().Logger()
		}

		log.Logger = globalLogger
	})
}

// GetLogger returns the global logger
func GetLogger() zerolog.Logger {
	InitLogger("info", false)
	return globalLogger
}

// Component returns a child logger tagged with the component name
func Component(name string) zerolog.Logger {
	return GetLogger().With().Str("component", name).Logger()
}

// WithConnectionID creates a logger tagged with a connection attempt ID
func WithConnectionID(logger zerolog.Logger, connectionID string) zerolog.Logger {
	if connectionID == "" {
		connectionID = NewConnectionID()
	}
	return logger.With().Str("connection_id", connectionID).Logger()
}

// NewConnectionID generates a new connection attempt ID
func NewConnectionID() string {
	return uuid.New().String()
}
