package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
)

const (
	// KeyError is the key used for errors in log attributes.
	KeyError = "err"

	// KeyDal is the key used for the data access layer name.
	KeyDal = "dal"

	// KeyAppName is the key used for the application name.
	KeyAppName = "app"

	// KeyGuildID is the key used for the guild ID.
	KeyGuildID = "guild_id"

	// KeyTicket is the key used for the ticket ID.
	KeyTicket = "ticket"
)

// Name is the name of the application that the logger is for.
type Name string

// Config is the configuration for a logger.
type Config struct {
	// name is the name of the application.
	name Name

	// writer is the destination for log output.
	writer io.Writer

	// level is the minimum level that will be logged.
	level slog.Level
}

// NewConfig creates a new logger configuration for the named application.
func NewConfig(name Name) *Config {
	return &Config{
		name:   name,
		writer: os.Stdout,
		level:  slog.LevelDebug,
	}
}

// CommonLogger creates the common logger for the application. The logger is
// also set as the slog default.
func CommonLogger(c *Config) (*slog.Logger, error) {
	if c == nil {
		return nil, fmt.Errorf("no logging config provided")
	}

	h := tint.NewHandler(c.writer, &tint.Options{
		Level:      c.level,
		TimeFormat: time.RFC3339,
	})

	l := slog.New(h).With(slog.String(KeyAppName, string(c.name)))
	slog.SetDefault(l)
	return l, nil
}
