package server

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// Logger interface for structured logging
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
}

// Field represents a structured log field
type Field struct {
	Key   string
	Value interface{}
}

// ZerologLogger writes timestamped events through zerolog
type ZerologLogger struct {
	log zerolog.Logger
}

// NewLogger logs JSON lines to w at level and above.
func NewLogger(w io.Writer, level zerolog.Level) *ZerologLogger {
	return &ZerologLogger{
		log: zerolog.New(w).Level(level).With().Timestamp().Logger(),
	}
}

// NewConsoleLogger logs human-readable lines to w.
func NewConsoleLogger(w io.Writer, level zerolog.Level) *ZerologLogger {
	out := zerolog.ConsoleWriter{Out: w, TimeFormat: "2006-01-02 15:04:05.000"}
	return NewLogger(out, level)
}

// NewDefaultLogger logs JSON to stdout at info level.
func NewDefaultLogger() *ZerologLogger {
	return NewLogger(os.Stdout, zerolog.InfoLevel)
}

func (l *ZerologLogger) Debug(msg string, fields ...Field) {
	write(l.log.Debug(), msg, fields)
}

func (l *ZerologLogger) Info(msg string, fields ...Field) {
	write(l.log.Info(), msg, fields)
}

func (l *ZerologLogger) Warn(msg string, fields ...Field) {
	write(l.log.Warn(), msg, fields)
}

func (l *ZerologLogger) Error(msg string, fields ...Field) {
	write(l.log.Error(), msg, fields)
}

// Stream returns a writer that turns every write into one log event tagged
// with name. Used as the application error stream.
func (l *ZerologLogger) Stream(name string) io.Writer {
	return l.log.With().Str("stream", name).Logger()
}

func write(e *zerolog.Event, msg string, fields []Field) {
	if e == nil {
		return
	}
	for _, f := range fields {
		if err, ok := f.Value.(error); ok {
			e = e.AnErr(f.Key, err)
			continue
		}
		if untruncated[f.Key] {
			e = e.Interface(f.Key, f.Value)
			continue
		}
		e = e.Interface(f.Key, sanitizeValue(f.Value))
	}
	e.Msg(msg)
}

// Fields that are logged in full, whatever their length.
var untruncated = map[string]bool{
	"stack": true,
	"panic": true,
}

// Don't log full values of potentially sensitive headers
func sanitizeValue(v interface{}) interface{} {
	if s, ok := v.(string); ok && len(s) > 100 {
		return s[:100] + "...[truncated]"
	}
	return v
}

// NullLogger discards all logs (for testing)
type NullLogger struct{}

func (NullLogger) Debug(msg string, fields ...Field) {}
func (NullLogger) Info(msg string, fields ...Field)  {}
func (NullLogger) Warn(msg string, fields ...Field)  {}
func (NullLogger) Error(msg string, fields ...Field) {}
