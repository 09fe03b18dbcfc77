package log

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/dpotapov/slogpfx"
)

// Logger wraps a slog.Logger and tracks the prefixes applied to it, so that wallet components
// can nest their prefixes (ex. "📡 [router]🔏 [signer]").
type Logger struct {
	*slog.Logger

	rawLogLevel string
	prefixes    []string
	output      io.Writer
}

// Default logger logs at INFO level to stderr.
func Default() *Logger {
	return NewLogger("info")
}

// NewLogger creates a logger without a prefix.
func NewLogger(rawLogLevel string) *Logger {
	return NewLoggerWithPrefixes(rawLogLevel, []string{})
}

// NewLoggerWithPrefixes creates a logger with a set of prefixes.
func NewLoggerWithPrefixes(rawLogLevel string, prefixes []string) *Logger {
	return NewLoggerWithWriter(os.Stderr, rawLogLevel, prefixes)
}

// NewLoggerWithWriter creates a logger that writes text records to the given writer.
func NewLoggerWithWriter(output io.Writer, rawLogLevel string, prefixes []string) *Logger {
	slogger := newSlogger(output, rawLogLevel)
	return wrap(slogger, rawLogLevel, prefixes, output)
}

// Discard returns a logger that writes nowhere. Useful in tests.
func Discard() *Logger {
	return NewLoggerWithWriter(io.Discard, "error", []string{})
}

func wrap(slogger *slog.Logger, rawLogLevel string, prefixes []string, output io.Writer) *Logger {
	prefix := strings.Join(prefixes, "")

	return &Logger{
		Logger:      slogger.With(prefixKey, prefix),
		rawLogLevel: rawLogLevel,
		prefixes:    prefixes,
		output:      output,
	}
}

// ApplyPrefix adds an additional prefix to the logger.
func (l *Logger) ApplyPrefix(prefix string) *Logger {
	prefixes := make([]string, 0, len(l.prefixes)+1)
	prefixes = append(prefixes, l.prefixes...)
	prefixes = append(prefixes, prefix)

	return wrap(l.Logger, l.rawLogLevel, prefixes, l.output)
}

// With adds key/value attributes to the logger.
func (l *Logger) With(args ...any) *Logger {
	return wrap(l.Logger.With(args...), l.rawLogLevel, l.prefixes, l.output)
}

// Prefix key is the "magic" key that makes this all work. Any value sent to this key is a prefix.
const prefixKey = "_prefixKey"

func newSlogger(output io.Writer, rawLogLevel string) *slog.Logger {
	lvl := new(slog.LevelVar)
	lvl.Set(ParseLogLevel(rawLogLevel))

	textHandler := slog.NewTextHandler(output, &slog.HandlerOptions{
		Level: lvl,
	})

	// The default formatter in slogpfx uses a '>' symbol, prefixes are concatenated instead.
	prefixFormatter := func(prefixes []slog.Value) string {
		p := make([]string, 0, len(prefixes))
		for _, prefix := range prefixes {
			if prefix.Any() == nil || prefix.String() == "" {
				continue
			}
			p = append(p, prefix.String())
		}
		if len(p) == 0 {
			return ""
		}
		return strings.Join(p, "") + " "
	}

	prefixHandler := slogpfx.NewHandler(textHandler, &slogpfx.HandlerOptions{
		PrefixKeys:      []string{prefixKey},
		PrefixFormatter: prefixFormatter,
	})

	return slog.New(prefixHandler)
}
