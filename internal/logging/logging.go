package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Logging holds a contextual logger. Components embed it and receive the
// process logger through SetLogging.
type Logging struct {
	l    zerolog.Logger
	orig zerolog.Logger
	f    func(zerolog.Context) zerolog.Context
}

func NewLogging(f func(zerolog.Context) zerolog.Context) *Logging {
	nop := zerolog.Nop()
	return &Logging{
		l:    nop,
		orig: nop,
		f:    f,
	}
}

func (lg *Logging) Log() *zerolog.Logger {
	return &lg.l
}

func (lg *Logging) SetLogger(l zerolog.Logger) *Logging {
	lg.orig = l
	if lg.f != nil {
		lg.l = lg.f(lg.orig.With()).Logger()
	} else {
		lg.l = l
	}

	return lg
}

func (lg *Logging) SetLogging(l *Logging) *Logging {
	return lg.SetLogger(l.orig)
}

// Setup builds the process logger. format is "json" or "terminal".
func Setup(output io.Writer, level zerolog.Level, format string) *Logging {
	if format == "terminal" {
		useColor := false
		if f, ok := output.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
			useColor = true
		}

		output = zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: time.RFC3339Nano,
			NoColor:    !useColor,
		}
	}

	z := zerolog.New(output).With().Timestamp()
	if level <= zerolog.DebugLevel {
		z = z.Caller()
	}

	return NewLogging(nil).SetLogger(z.Logger().Level(level))
}

func ParseLevel(s string) (zerolog.Level, error) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(s)))
	if err != nil {
		return zerolog.NoLevel, errors.Wrapf(err, "invalid log level %q", s)
	}
	if lvl == zerolog.NoLevel {
		return zerolog.InfoLevel, nil
	}

	return lvl, nil
}

// Writer adapts a zerolog event factory to io.Writer, one event per write.
type Writer struct {
	f func() *zerolog.Event
}

func NewWriter(f func() *zerolog.Event) Writer {
	return Writer{f: f}
}

func (w Writer) Write(b []byte) (int, error) {
	if w.f != nil {
		w.f().Msg(strings.TrimRight(string(b), "\n"))
	}

	return len(b), nil
}
