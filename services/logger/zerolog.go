// Package logsvc provides the core.Logger implementations.
package logsvc

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/user"
)

// NewZerolog builds the process logger: human readable when conf.Logging.Pretty, JSON otherwise.
func NewZerolog(conf *core.Config, out ...io.Writer) zerolog.Logger {
	var w io.Writer = os.Stdout
	if len(out) > 0 {
		w = out[0]
	}
	if conf.Logging.Pretty {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}

	level, err := zerolog.ParseLevel(conf.Logging.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	return zerolog.New(w).Level(level).With().
		Timestamp().
		Str("app", conf.AppName).
		Str("env", conf.Env).
		Logger()
}

// ZeroLogger is a core.Logger writing to zerolog only.
type ZeroLogger struct {
	zl zerolog.Logger
}

var _ core.Logger = (*ZeroLogger)(nil)

func NewZeroLogger(zl zerolog.Logger) *ZeroLogger {
	return &ZeroLogger{zl: zl}
}

func (l ZeroLogger) Debug(msg string, args ...interface{}) { withArgs(l.zl.Debug(), args).Msg(msg) }
func (l ZeroLogger) Info(msg string, args ...interface{})  { withArgs(l.zl.Info(), args).Msg(msg) }
func (l ZeroLogger) Warn(msg string, args ...interface{})  { withArgs(l.zl.Warn(), args).Msg(msg) }
func (l ZeroLogger) Error(msg string, args ...interface{}) { withArgs(l.zl.Error(), args).Msg(msg) }
func (l ZeroLogger) Fatal(msg string, args ...interface{}) { withArgs(l.zl.Fatal(), args).Msg(msg) }

// withArgs attaches the core.Logger args to evt.
func withArgs(evt *zerolog.Event, args []interface{}) *zerolog.Event {
	for _, arg := range args {
		switch v := arg.(type) {
		case error:
			evt = evt.Err(v)
		case map[string]interface{}:
			evt = evt.Fields(v)
		case user.User:
			evt = evt.Str("userId", v.ID).Str("userEmail", v.Email)
		default:
			evt = evt.Interface("extra", v)
		}
	}
	return evt
}
