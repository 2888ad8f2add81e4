package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Config - параметры логгера.
type Config struct {
	Level  string // debug, info, warn, error
	Format string // json, text
	Output io.Writer
}

// New собирает zerolog.Logger по конфигурации.
// Неизвестный уровень считается info, любой формат кроме text - JSON.
func New(cfg Config) zerolog.Logger {
	output := cfg.Output
	if output == nil {
		output = os.Stdout
	}

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}

	if cfg.Format == "text" {
		// Читаемый вывод для локальной разработки
		output = zerolog.ConsoleWriter{Out: output, TimeFormat: time.RFC3339}
	}

	return zerolog.New(output).
		Level(level).
		With().
		Timestamp().
		Str("service", "barfinder").
		Logger()
}
