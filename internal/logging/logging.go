// Package logging builds the process logger: a console sink for operators
// and an optional file sink that keeps debug output of the current run.
package logging

import (
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/buffer"
	"go.uber.org/zap/zapcore"
)

// RootName is the name of the root logger.
const RootName = "statusbot"

// Defaults for [Options].
const (
	DefaultFile         = "debug.log"
	DefaultFileLevel    = "debug"
	DefaultConsoleLevel = "info"
	FormatConsole       = "console"
	FormatJSON          = "json"
)

// Options configures [New].
type Options struct {
	// Console receives the console sink. Defaults to os.Stdout.
	Console io.Writer

	// ConsoleLevel is the minimum level of the console sink.
	ConsoleLevel string

	// File is the path of the file sink, truncated on open. Empty disables it.
	File string

	// FileLevel is the minimum level of the file sink.
	FileLevel string

	// Format is the file sink encoding, "console" or "json".
	Format string
}

// Logger is the process logger together with the file it writes to.
type Logger struct {
	*zap.Logger
	file *os.File
}

// New creates a [Logger] from opts. Empty levels fall back to
// [DefaultConsoleLevel] and [DefaultFileLevel].
func New(opts Options) (*Logger, error) {
	consoleLevel, err := parseLevel(opts.ConsoleLevel, DefaultConsoleLevel)
	if err != nil {
		return nil, fmt.Errorf("console level: %w", err)
	}
	fileLevel, err := parseLevel(opts.FileLevel, DefaultFileLevel)
	if err != nil {
		return nil, fmt.Errorf("file level: %w", err)
	}

	console := opts.Console
	if console == nil {
		console = os.Stdout
	}

	cores := []zapcore.Core{
		zapcore.NewCore(newConsoleEncoder(), zapcore.AddSync(console), consoleLevel),
	}

	l := &Logger{}
	if opts.File != "" {
		var encoder zapcore.Encoder
		switch opts.Format {
		case "", FormatConsole:
			encoder = newConsoleEncoder()
		case FormatJSON:
			encoder = zapcore.NewJSONEncoder(encoderConfig())
		default:
			return nil, fmt.Errorf("unknown log format %q", opts.Format)
		}

		file, err := os.OpenFile(opts.File, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		l.file = file
		cores = append(cores, zapcore.NewCore(encoder, zapcore.AddSync(file), fileLevel))
	}

	l.Logger = zap.New(zapcore.NewTee(cores...),
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
	).Named(RootName)

	return l, nil
}

// Close flushes buffered entries and closes the log file.
func (l *Logger) Close() error {
	if l == nil || l.Logger == nil {
		return nil
	}
	_ = l.Sync()
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}

const consoleSeparator = " - "

// nameFirstEncoder writes console lines as time, logger name, level, message.
// zap's console encoder always puts the level before the name, so the level
// key is dropped and the level is appended to the name instead.
type nameFirstEncoder struct {
	zapcore.Encoder
}

func newConsoleEncoder() zapcore.Encoder {
	cfg := encoderConfig()
	cfg.LevelKey = zapcore.OmitKey
	return nameFirstEncoder{zapcore.NewConsoleEncoder(cfg)}
}

func (e nameFirstEncoder) Clone() zapcore.Encoder {
	return nameFirstEncoder{e.Encoder.Clone()}
}

func (e nameFirstEncoder) EncodeEntry(ent zapcore.Entry, fields []zapcore.Field) (*buffer.Buffer, error) {
	if ent.LoggerName == "" {
		ent.LoggerName = ent.Level.CapitalString()
	} else {
		ent.LoggerName += consoleSeparator + ent.Level.CapitalString()
	}
	return e.Encoder.EncodeEntry(ent, fields)
}

func encoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:          "time",
		LevelKey:         "level",
		NameKey:          "logger",
		CallerKey:        "caller",
		MessageKey:       "msg",
		StacktraceKey:    "stacktrace",
		LineEnding:       zapcore.DefaultLineEnding,
		EncodeLevel:      zapcore.CapitalLevelEncoder,
		EncodeTime:       zapcore.TimeEncoderOfLayout(time.DateTime),
		EncodeDuration:   zapcore.StringDurationEncoder,
		EncodeCaller:     zapcore.ShortCallerEncoder,
		EncodeName:       zapcore.FullNameEncoder,
		ConsoleSeparator: consoleSeparator,
	}
}

func parseLevel(s, fallback string) (zapcore.Level, error) {
	if s == "" {
		s = fallback
	}
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return level, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return level, nil
}
