package log

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

type Category int

const (
	Application Category = iota
	DiscordEvents
	Database
	Errors
)

var categoryFiles = map[Category]string{
	Application:   "application.log",
	DiscordEvents: "discord_events.log",
	Database:      "database.log",
	Errors:        "error.log",
}

func (c Category) String() string {
	switch c {
	case DiscordEvents:
		return "discord"
	case Database:
		return "database"
	case Errors:
		return "error"
	default:
		return "application"
	}
}

// Options controls where and how loggers write.
type Options struct {
	// Dir holds the rotated log files. Empty writes to the console only.
	Dir    string
	Level  string
	Format string
	// Console mirrors every category to stdout (stderr for errors).
	Console bool
}

// Logger owns one slog.Logger per category and the files behind them.
type Logger struct {
	loggers map[Category]*slog.Logger
	files   []*lumberjack.Logger
}

var (
	mu sync.RWMutex
	// GlobalLogger is the logger installed by SetupLogger.
	GlobalLogger *Logger
)

// New builds a Logger without installing it globally.
func New(opts Options) (*Logger, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}
	if opts.Dir != "" {
		if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
			return nil, fmt.Errorf("create log dir: %w", err)
		}
	}

	l := &Logger{loggers: make(map[Category]*slog.Logger, len(categoryFiles))}
	for cat, name := range categoryFiles {
		var writers []io.Writer
		if opts.Console || opts.Dir == "" {
			if cat == Errors {
				writers = append(writers, os.Stderr)
			} else {
				writers = append(writers, os.Stdout)
			}
		}
		if opts.Dir != "" {
			f := &lumberjack.Logger{
				Filename:   filepath.Join(opts.Dir, name),
				MaxSize:    20,
				MaxBackups: 5,
				MaxAge:     28,
				Compress:   true,
			}
			l.files = append(l.files, f)
			writers = append(writers, f)
		}
		l.loggers[cat] = slog.New(newHandler(io.MultiWriter(writers...), opts.Format, level)).
			With("category", cat.String())
	}
	return l, nil
}

// SetupLogger installs a Logger built from opts as GlobalLogger and as the
// slog default. Calling it again replaces the previous logger.
func SetupLogger(opts Options) error {
	l, err := New(opts)
	if err != nil {
		return err
	}

	mu.Lock()
	prev := GlobalLogger
	GlobalLogger = l
	mu.Unlock()

	slog.SetDefault(l.loggers[Application])
	if prev != nil {
		_ = prev.Sync()
	}
	return nil
}

// For returns the logger of category c.
func (l *Logger) For(c Category) *slog.Logger {
	if l == nil {
		return fallback.With("category", c.String())
	}
	return l.loggers[c]
}

// Sync closes the rotated files. The logger keeps working on the console.
func (l *Logger) Sync() error {
	if l == nil {
		return nil
	}
	var firstErr error
	for _, f := range l.files {
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

var fallback = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

func current() *Logger {
	mu.RLock()
	defer mu.RUnlock()
	return GlobalLogger
}

func ApplicationLogger() *slog.Logger { return current().For(Application) }
func DiscordLogger() *slog.Logger     { return current().For(DiscordEvents) }
func DatabaseLogger() *slog.Logger    { return current().For(Database) }

// ErrorLoggerRaw returns the dedicated error stream.
func ErrorLoggerRaw() *slog.Logger { return current().For(Errors) }

// ParseLevel maps debug, info, warn and error to slog levels. Empty means info.
func ParseLevel(raw string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", raw)
}

func newHandler(w io.Writer, format string, level slog.Level) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(format, "json") {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}
