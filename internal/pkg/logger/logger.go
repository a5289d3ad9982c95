package logger

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"github.com/terpspark/admission-service/internal/pkg/session"
)

var Logger = zerolog.Nop()

func Init() {
	InitWithWriter(os.Stdout)
}

func InitWithWriter(w io.Writer) {
	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}
	level, err := zerolog.ParseLevel(logLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}

	format := os.Getenv("LOG_FORMAT") // "json" or "console"
	if format == "" {
		format = "console"
	}

	if format == "json" {
		Logger = zerolog.New(w).With().Timestamp().Logger().Level(level)
	} else {
		Logger = zerolog.New(zerolog.ConsoleWriter{
			Out:        w,
			TimeFormat: time.RFC3339,
		}).With().Timestamp().Logger().Level(level)
	}

	zlog.Logger = Logger
}

// WithCtx returns the logger tagged with the request id and caller, when present.
func WithCtx(ctx context.Context) *zerolog.Logger {
	c := Logger.With()
	tagged := false
	if rid := session.RequestID(ctx); rid != "" {
		c = c.Str("request_id", rid)
		tagged = true
	}
	if a, ok := session.Actor(ctx); ok {
		c = c.Str("user_id", a.UserID.String()).Str("role", string(a.Role))
		tagged = true
	}
	if !tagged {
		return &Logger
	}
	l := c.Logger()
	return &l
}
