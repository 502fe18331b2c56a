// Package sl содержит вспомогательные функции для работы с логгером slog:
// построение логгера под окружение и единообразные поля для ошибок.
package sl

import (
	"io"
	"log/slog"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

// SetupLogger возвращает логгер для окружения env.
// local — текстовый вывод с уровнем debug, dev — JSON с debug, prod — JSON с info.
// verbose принудительно включает debug.
func SetupLogger(env string, w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose || env == envLocal || env == envDev {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}
	switch env {
	case envDev, envProd:
		return slog.New(slog.NewJSONHandler(w, opts))
	default:
		return slog.New(slog.NewTextHandler(w, opts))
	}
}

// SetupCLILogger — логгер для команд CLI. Без verbose пишет только
// предупреждения и ошибки, чтобы не смешивать журнал с выводом команды.
func SetupCLILogger(env string, w io.Writer, verbose bool) *slog.Logger {
	if verbose {
		return SetupLogger(env, w, true)
	}
	opts := &slog.HandlerOptions{Level: slog.LevelWarn}
	switch env {
	case envDev, envProd:
		return slog.New(slog.NewJSONHandler(w, opts))
	default:
		return slog.New(slog.NewTextHandler(w, opts))
	}
}

// Discard возвращает логгер, который ничего не пишет.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

// Err возвращает slog.Attr с ключом "error" и значением текста ошибки.
//
// Пример:
//
//	log.Error("failed to do something", sl.Err(err))
func Err(err error) slog.Attr {
	return slog.Attr{
		Key:   "error",
		Value: slog.StringValue(err.Error()),
	}
}
