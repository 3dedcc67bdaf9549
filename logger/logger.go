// Package logger wires log/slog with leveled, multi-destination output.
package logger

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

var (
	globalLogger *slog.Logger
	once         sync.Once
)

type Config struct {
	Level   string   `json:"level" yaml:"level"`     // debug/info/warn/error
	Outputs []string `json:"outputs" yaml:"outputs"` // stdout or file path
}

func Init(cfg Config) error {
	var err error
	once.Do(func() {
		level := slog.LevelInfo
		switch cfg.Level {
		case "debug":
			level = slog.LevelDebug
		case "warn":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		}

		var writers []io.Writer
		for _, output := range cfg.Outputs {
			switch output {
			case "", "stdout":
				writers = append(writers, os.Stdout)
			default:
				if mkErr := os.MkdirAll(filepath.Dir(output), 0755); mkErr != nil {
					err = mkErr
					return
				}

				file, openErr := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
				if openErr != nil {
					err = openErr
					return
				}
				writers = append(writers, file)
			}
		}

		if len(writers) == 0 {
			writers = append(writers, os.Stdout)
		}

		globalLogger = slog.New(slog.NewTextHandler(io.MultiWriter(writers...), &slog.HandlerOptions{
			Level: level,
		}))
	})
	return err
}

func Debug(msg string, args ...interface{}) {
	Logger().Debug(msg, args...)
}

func Info(msg string, args ...interface{}) {
	Logger().Info(msg, args...)
}

func Warn(msg string, args ...interface{}) {
	Logger().Warn(msg, args...)
}

func Error(msg string, args ...interface{}) {
	Logger().Error(msg, args...)
}

// Logger returns the shared logger, falling back to a stdout text logger
// when Init has not been called (e.g. in tests).
func Logger() *slog.Logger {
	if globalLogger == nil {
		return slog.New(slog.NewTextHandler(os.Stdout, nil))
	}
	return globalLogger
}
