package logging

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Logger implements authstate.Logger on top of a zerolog.Logger.
type Logger struct {
	zl zerolog.Logger
}

// New builds a Logger writing to w at the given level. An unknown level
// falls back to info. pretty selects zerolog's console writer.
func New(w io.Writer, level string, pretty bool, component string) *Logger {
	if w == nil {
		w = os.Stderr
	}
	if pretty {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}

	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	ctx := zerolog.New(w).Level(lvl).With().Timestamp()
	if component != "" {
		ctx = ctx.Str("component", component)
	}
	return &Logger{zl: ctx.Logger()}
}

func (l *Logger) Debug(format string, args ...any) { l.emit(l.zl.Debug(), format, args) }
func (l *Logger) Info(format string, args ...any)  { l.emit(l.zl.Info(), format, args) }
func (l *Logger) Warn(format string, args ...any)  { l.emit(l.zl.Warn(), format, args) }
func (l *Logger) Error(format string, args ...any) { l.emit(l.zl.Error(), format, args) }

func (l *Logger) emit(ev *zerolog.Event, format string, args []any) {
	if ev == nil {
		return
	}
	if len(args) == 0 {
		ev.Msg(format)
		return
	}
	ev.Msg(fmt.Sprintf(format, args...))
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(p []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	n, err := r.ResponseWriter.Write(p)
	r.bytes += n
	return n, err
}

// RequestLogger logs one line per request. 5xx responses log at error,
// 4xx at warn and everything else at info.
func RequestLogger(l *Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)

		status := rec.status
		if status == 0 {
			status = http.StatusOK
		}

		event := l.zl.Info()
		if status >= 500 {
			event = l.zl.Error()
		} else if status >= 400 {
			event = l.zl.Warn()
		}

		event.
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Dur("duration", time.Since(start)).
			Int("bytes", rec.bytes).
			Msg("http_request")
	})
}
