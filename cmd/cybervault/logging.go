package main

import (
	"io"
	"log"
	"log/slog"
	"strings"
	"time"

	"github.com/lmittmann/tint"

	"github.com/sagarc03/cybervault/config"
)

// Levels applied when log.level is empty. Client commands stay at warn so
// their output is not buried in logs.
const (
	clientLogLevel = slog.LevelWarn
	serveLogLevel  = slog.LevelDebug
	prodLogLevel   = slog.LevelInfo
)

// setupLogging installs the default slog logger and routes the standard
// log package through it.
func setupLogging(cfg *config.Config, w io.Writer, server bool) {
	prod := cfg.IsProduction()

	level := defaultLevel(server, prod)
	if cfg.Log.Level != "" {
		level = parseLevel(cfg.Log.Level)
	}

	slog.SetDefault(slog.New(newLogHandler(w, level, prod, server)))

	log.SetFlags(0)
	log.SetOutput(slog.NewLogLogger(slog.Default().Handler(), slog.LevelInfo).Writer())
}

func defaultLevel(server, prod bool) slog.Level {
	switch {
	case !server:
		return clientLogLevel
	case prod:
		return prodLogLevel
	default:
		return serveLogLevel
	}
}

// newLogHandler returns JSON for production and tint otherwise. Source
// locations are only useful for the long running server.
func newLogHandler(w io.Writer, level slog.Level, prod, server bool) slog.Handler {
	if prod {
		return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level, ReplaceAttr: replaceTime})
	}
	return tint.NewHandler(w, &tint.Options{
		Level:      level,
		AddSource:  server,
		TimeFormat: time.TimeOnly + ".000",
	})
}

// replaceTime writes the record time as "ts" in UTC.
func replaceTime(_ []string, a slog.Attr) slog.Attr {
	if a.Key != slog.TimeKey {
		return a
	}
	return slog.String("ts", a.Value.Time().UTC().Format(time.RFC3339Nano))
}

// parseLevel accepts the slog level names plus "warning". Anything else
// falls back to info.
func parseLevel(s string) slog.Level {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "warning") {
		s = "warn"
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return level
}
