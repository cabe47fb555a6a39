package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
)

type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
	FATAL
)

func (l LogLevel) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	case FATAL:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

func (l LogLevel) zerolog() zerolog.Level {
	switch l {
	case DEBUG:
		return zerolog.DebugLevel
	case WARN:
		return zerolog.WarnLevel
	case ERROR:
		return zerolog.ErrorLevel
	case FATAL:
		return zerolog.FatalLevel
	default:
		return zerolog.InfoLevel
	}
}

// ParseLevel maps a level name (case-insensitive) to a LogLevel.
func ParseLevel(name string) (LogLevel, bool) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "DEBUG", "TRACE":
		return DEBUG, true
	case "INFO":
		return INFO, true
	case "WARN", "WARNING":
		return WARN, true
	case "ERROR":
		return ERROR, true
	case "FATAL":
		return FATAL, true
	}
	return INFO, false
}

const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

type Config struct {
	Level      LogLevel
	Format     string // console or json
	Colorize   bool
	ShowCaller bool
	ShowTime   bool
	TimeFormat string
	Output     io.Writer
}

// DefaultConfig logs to stderr so stdout stays free for tracklists and JSON.
func DefaultConfig() Config {
	return Config{
		Level:      INFO,
		Format:     FormatConsole,
		Colorize:   isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd()),
		ShowCaller: false,
		ShowTime:   true,
		TimeFormat: "2006-01-02 15:04:05",
		Output:     os.Stderr,
	}
}

type field struct {
	key   string
	value any
}

type Logger struct {
	mu     sync.Mutex
	cfg    Config
	fields []field
	zl     zerolog.Logger
}

var (
	defaultLogger *Logger
	once          sync.Once
)

func New(cfg Config) *Logger {
	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}
	if cfg.TimeFormat == "" {
		cfg.TimeFormat = "2006-01-02 15:04:05"
	}
	if cfg.Format == "" {
		cfg.Format = FormatConsole
	}
	l := &Logger{cfg: cfg}
	l.rebuild()
	return l
}

// Discard returns a logger that drops everything. Handy in tests.
func Discard() *Logger {
	cfg := DefaultConfig()
	cfg.Output = io.Discard
	cfg.Colorize = false
	return New(cfg)
}

// GetLogger returns the process-wide logger, configured from LOG_LEVEL and LOG_FORMAT.
func GetLogger() *Logger {
	once.Do(func() {
		cfg := DefaultConfig()
		if envLevel := os.Getenv("LOG_LEVEL"); envLevel != "" {
			if lvl, ok := ParseLevel(envLevel); ok {
				cfg.Level = lvl
			}
		}
		if strings.EqualFold(os.Getenv("LOG_FORMAT"), FormatJSON) {
			cfg.Format = FormatJSON
		}
		defaultLogger = New(cfg)
	})
	return defaultLogger
}

// rebuild must be called with l.mu held (or before l is shared).
func (l *Logger) rebuild() {
	var zl zerolog.Logger
	if l.cfg.Format == FormatJSON {
		zl = zerolog.New(l.cfg.Output)
	} else {
		cw := zerolog.ConsoleWriter{
			Out:        l.cfg.Output,
			NoColor:    !l.cfg.Colorize,
			TimeFormat: l.cfg.TimeFormat,
		}
		if !l.cfg.ShowTime {
			cw.PartsExclude = []string{zerolog.TimestampFieldName}
		}
		zl = zerolog.New(cw)
	}

	zc := zl.With()
	if l.cfg.ShowTime {
		zc = zc.Timestamp()
	}
	for _, f := range l.fields {
		zc = zc.Interface(f.key, f.value)
	}
	l.zl = zc.Logger().Level(l.cfg.Level.zerolog())
}

// With returns a child logger that carries key=value on every line.
func (l *Logger) With(key string, value any) *Logger {
	l.mu.Lock()
	defer l.mu.Unlock()

	child := &Logger{cfg: l.cfg}
	child.fields = append(append([]field(nil), l.fields...), field{key: key, value: value})
	child.rebuild()
	return child
}

func (l *Logger) SetLevel(level LogLevel) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cfg.Level = level
	l.rebuild()
}

func (l *Logger) SetOutput(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cfg.Output = w
	l.rebuild()
}

func (l *Logger) SetColorize(colorize bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cfg.Colorize = colorize
	l.rebuild()
}

func (l *Logger) SetShowCaller(show bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cfg.ShowCaller = show
}

func (l *Logger) SetFormat(format string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cfg.Format = format
	l.rebuild()
}

// log is the internal logging method. depth is the number of frames between
// the user's call site and log itself.
func (l *Logger) log(depth int, level LogLevel, msg string, args ...any) {
	l.mu.Lock()
	zl := l.zl
	showCaller := l.cfg.ShowCaller
	minLevel := l.cfg.Level
	l.mu.Unlock()

	if level < minLevel {
		return
	}

	message := msg
	if len(args) > 0 {
		message = fmt.Sprintf(msg, args...)
	}

	event := zl.WithLevel(level.zerolog())
	if showCaller {
		event = event.Caller(depth)
	}
	event.Msg(message)

	if level == FATAL {
		os.Exit(1)
	}
}

// Debug logs a message at DEBUG level
func (l *Logger) Debug(msg string, args ...any) { l.log(2, DEBUG, msg, args...) }

// Info logs a message at INFO level
func (l *Logger) Info(msg string, args ...any) { l.log(2, INFO, msg, args...) }

// Warn logs a message at WARN level
func (l *Logger) Warn(msg string, args ...any) { l.log(2, WARN, msg, args...) }

// Error logs a message at ERROR level
func (l *Logger) Error(msg string, args ...any) { l.log(2, ERROR, msg, args...) }

// Fatal logs a message at FATAL level and exits the program
func (l *Logger) Fatal(msg string, args ...any) { l.log(2, FATAL, msg, args...) }

func (l *Logger) Debugf(format string, args ...any) { l.log(2, DEBUG, format, args...) }
func (l *Logger) Infof(format string, args ...any)  { l.log(2, INFO, format, args...) }
func (l *Logger) Warnf(format string, args ...any)  { l.log(2, WARN, format, args...) }
func (l *Logger) Errorf(format string, args ...any) { l.log(2, ERROR, format, args...) }
func (l *Logger) Fatalf(format string, args ...any) { l.log(2, FATAL, format, args...) }

// Package-level convenience functions using the default logger

func Debug(msg string, args ...any) { GetLogger().log(3, DEBUG, msg, args...) }
func Info(msg string, args ...any)  { GetLogger().log(3, INFO, msg, args...) }
func Warn(msg string, args ...any)  { GetLogger().log(3, WARN, msg, args...) }
func Error(msg string, args ...any) { GetLogger().log(3, ERROR, msg, args...) }
func Fatal(msg string, args ...any) { GetLogger().log(3, FATAL, msg, args...) }

func Debugf(format string, args ...any) { GetLogger().log(3, DEBUG, format, args...) }
func Infof(format string, args ...any)  { GetLogger().log(3, INFO, format, args...) }
func Warnf(format string, args ...any)  { GetLogger().log(3, WARN, format, args...) }
func Errorf(format string, args ...any) { GetLogger().log(3, ERROR, format, args...) }
func Fatalf(format string, args ...any) { GetLogger().log(3, FATAL, format, args...) }

// SetLevel sets the log level for the default logger
func SetLevel(level LogLevel) {
	GetLogger().SetLevel(level)
}

// SetOutput sets the output for the default logger
func SetOutput(w io.Writer) {
	GetLogger().SetOutput(w)
}

// SetColorize enables or disables colored output for the default logger
func SetColorize(colorize bool) {
	GetLogger().SetColorize(colorize)
}

// SetShowCaller enables or disables caller information for the default logger
func SetShowCaller(show bool) {
	GetLogger().SetShowCaller(show)
}
