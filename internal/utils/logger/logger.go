package logger

import (
	"io"
	"os"
	"strings"

	"golang.org/x/exp/slog"

	"pm2dash/internal/config"
	"pm2dash/internal/utils/logger/slogpretty"
)

// Options - куда писать и какой уровень взять вместо уровня окружения
type Options struct {
	Output io.Writer
	Level  string
}

// New создает логгер в зависимости от окружения:
// local - цветной вывод для разработки, dev - JSON c DEBUG, prod - JSON c INFO
func New(env string) *slog.Logger {
	return NewWithOptions(env, Options{})
}

func NewWithOptions(env string, o Options) *slog.Logger {
	out := o.Output
	if out == nil {
		out = os.Stdout
	}

	var log *slog.Logger

	switch env {
	case config.EnvLocal:
		log = setupPrettySlog(out, levelOr(o.Level, slog.LevelDebug))
	case config.EnvDev:
		log = slog.New(
			slog.NewJSONHandler(out, &slog.HandlerOptions{Level: levelOr(o.Level, slog.LevelDebug)}),
		)
	default:
		log = slog.New(
			slog.NewJSONHandler(out, &slog.HandlerOptions{Level: levelOr(o.Level, slog.LevelInfo)}),
		)
	}

	return log
}

func setupPrettySlog(out io.Writer, level slog.Level) *slog.Logger {
	opts := slogpretty.PrettyHandlerOptions{
		SlogOpts: &slog.HandlerOptions{
			Level: level,
		},
	}

	handler := opts.NewPrettyHandler(out)

	return slog.New(handler)
}

// levelOr разбирает LOG_LEVEL; неизвестное или пустое значение дает def
func levelOr(s string, def slog.Level) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return def
	}
}

// Err атрибут ошибки для единообразного логирования
func Err(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "")
	}
	return slog.String("error", err.Error())
}
