// Package logging builds the zerolog loggers used across stockcast.
package logging

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/term"
)

// Config selects level, encoding and destination.
type Config struct {
	Level      string `yaml:"level" envconfig:"LEVEL" validate:"oneof=trace debug info warn error disabled"`
	Format     string `yaml:"format" envconfig:"FORMAT" validate:"oneof=json console"`
	Output     string `yaml:"output" envconfig:"OUTPUT"` // stdout, stderr, or a file path
	TimeFormat string `yaml:"time_format" envconfig:"TIME_FORMAT"`
}

// New creates a logger from cfg. A file Output is opened for appending and
// stays open for the life of the process.
func New(cfg Config) (zerolog.Logger, error) {
	var out io.Writer
	switch cfg.Output {
	case "", "stderr":
		out = os.Stderr
	case "stdout":
		out = os.Stdout
	default:
		file, err := os.OpenFile(cfg.Output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return zerolog.Nop(), fmt.Errorf("could not open log file: %w", err)
		}
		out = file
	}
	return NewWithWriter(cfg, out)
}

// NewWithWriter creates a logger writing to w.
func NewWithWriter(cfg Config, w io.Writer) (zerolog.Logger, error) {
	level := zerolog.InfoLevel
	if cfg.Level != "" {
		var err error
		level, err = zerolog.ParseLevel(cfg.Level)
		if err != nil {
			return zerolog.Nop(), fmt.Errorf("invalid log level: %w", err)
		}
	}

	timeFormat := cfg.TimeFormat
	if timeFormat == "" {
		timeFormat = time.RFC3339
	}

	if cfg.Format == "console" {
		w = zerolog.ConsoleWriter{
			Out:        w,
			TimeFormat: timeFormat,
			NoColor:    !isTerminal(w),
		}
	}

	return zerolog.New(w).
		Level(level).
		With().
		Timestamp().
		Logger(), nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
