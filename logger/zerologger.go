package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Zerolog field implementations
func (f StringField) apply(event *zerolog.Event) *zerolog.Event {
	return event.Str(f.Key, f.Value)
}

func (f IntField) apply(event *zerolog.Event) *zerolog.Event {
	return event.Int(f.Key, f.Value)
}

func (f BoolField) apply(event *zerolog.Event) *zerolog.Event {
	return event.Bool(f.Key, f.Value)
}

func (f DurationField) apply(event *zerolog.Event) *zerolog.Event {
	return event.Dur(f.Key, f.Value)
}

func (f TimeField) apply(event *zerolog.Event) *zerolog.Event {
	return event.Time(f.Key, f.Value)
}

func (f ErrorField) apply(event *zerolog.Event) *zerolog.Event {
	return event.Err(f.Value)
}

func (f AnyField) apply(event *zerolog.Event) *zerolog.Event {
	return event.Interface(f.Key, f.Value)
}

// ZerologLogger implements Logger using zerolog
type ZerologLogger struct {
	logger     zerolog.Logger
	config     *Config
	subsystem  string
	fileWriter *lumberjack.Logger
}

var _ Logger = (*ZerologLogger)(nil)

// NewZerologLogger creates a new ZerologLogger
func NewZerologLogger(config *Config) Logger {
	if config == nil {
		config = DefaultConfig()
	}

	zerologLevel := toZerologLevel(config.Level)

	var writers []io.Writer
	var fileWriter *lumberjack.Logger

	if config.FileConfig != nil {
		if err := os.MkdirAll(filepath.Dir(config.FileConfig.Filename), 0o755); err != nil {
			fmt.Fprintf(os.Stderr, "failed to create log directory: %v\n", err)
		} else {
			fileWriter = &lumberjack.Logger{
				Filename:   config.FileConfig.Filename,
				MaxSize:    config.FileConfig.MaxSize,
				MaxAge:     config.FileConfig.MaxAge,
				MaxBackups: config.FileConfig.MaxBackups,
				Compress:   config.FileConfig.Compress,
				LocalTime:  true,
			}
			writers = append(writers, fileWriter)
		}
	}

	for _, output := range config.Outputs {
		if config.Format == DefaultFormat || config.Environment == "development" {
			writers = append(writers, zerolog.ConsoleWriter{
				Out:        output,
				TimeFormat: "15:04:05",
			})
		} else {
			writers = append(writers, output)
		}
	}

	var writer io.Writer
	switch len(writers) {
	case 0:
		writer = io.Discard
	case 1:
		writer = writers[0]
	default:
		writer = zerolog.MultiLevelWriter(writers...)
	}

	logger := zerolog.New(writer).Level(zerologLevel).With().Timestamp().Logger()
	if config.Subsystem != "" {
		logger = logger.With().Str("subsystem", config.Subsystem).Logger()
	}

	return &ZerologLogger{
		logger:     logger,
		config:     config,
		subsystem:  config.Subsystem,
		fileWriter: fileWriter,
	}
}

func (z *ZerologLogger) log(event *zerolog.Event, msg string, fields []TypedField) {
	for _, field := range fields {
		event = field.apply(event)
	}
	event.Msg(msg)
}

func (z *ZerologLogger) Trace(msg string, fields ...TypedField) {
	z.log(z.logger.Trace(), msg, fields)
}

func (z *ZerologLogger) Debug(msg string, fields ...TypedField) {
	z.log(z.logger.Debug(), msg, fields)
}

func (z *ZerologLogger) Info(msg string, fields ...TypedField) {
	z.log(z.logger.Info(), msg, fields)
}

func (z *ZerologLogger) Warn(msg string, fields ...TypedField) {
	z.log(z.logger.Warn(), msg, fields)
}

func (z *ZerologLogger) Error(msg string, fields ...TypedField) {
	z.log(z.logger.Error(), msg, fields)
}

func (z *ZerologLogger) Fatal(msg string, fields ...TypedField) {
	z.log(z.logger.Fatal(), msg, fields)
}

// WithSubsystem returns a derived logger tagged with a subsystem name
func (z *ZerologLogger) WithSubsystem(name string) Logger {
	derived := *z
	derived.subsystem = name
	derived.logger = z.logger.With().Str("subsystem", name).Logger()
	return &derived
}

// WithFields returns a derived logger with fields attached to every event
func (z *ZerologLogger) WithFields(fields ...TypedField) Logger {
	derived := *z
	logger := z.logger
	for _, field := range fields {
		// zerolog contexts only compose through events, so replay the
		// fields onto a child context one at a time
		switch f := field.(type) {
		case StringField:
			logger = logger.With().Str(f.Key, f.Value).Logger()
		case IntField:
			logger = logger.With().Int(f.Key, f.Value).Logger()
		case BoolField:
			logger = logger.With().Bool(f.Key, f.Value).Logger()
		case DurationField:
			logger = logger.With().Dur(f.Key, f.Value).Logger()
		case TimeField:
			logger = logger.With().Time(f.Key, f.Value).Logger()
		case ErrorField:
			logger = logger.With().Err(f.Value).Logger()
		case AnyField:
			logger = logger.With().Interface(f.Key, f.Value).Logger()
		}
	}
	derived.logger = logger
	return &derived
}

// IsLevelEnabled reports whether the given level would be written
func (z *ZerologLogger) IsLevelEnabled(level LogLevel) bool {
	return toZerologLevel(level) >= z.logger.GetLevel()
}

func toZerologLevel(level LogLevel) zerolog.Level {
	switch level {
	case TraceLevel:
		return zerolog.TraceLevel
	case DebugLevel:
		return zerolog.DebugLevel
	case InfoLevel:
		return zerolog.InfoLevel
	case WarnLevel:
		return zerolog.WarnLevel
	case ErrorLevel:
		return zerolog.ErrorLevel
	case FatalLevel:
		return zerolog.FatalLevel
	default:
		return zerolog.InfoLevel
	}
}

// Close flushes and closes any file output
func (z *ZerologLogger) Close() error {
	if z.fileWriter != nil {
		return z.fileWriter.Close()
	}
	return nil
}

// NewTestLogger returns a logger suitable for tests: console format,
// trace level, writing to the given writer (or discarded when nil).
func NewTestLogger(out io.Writer) Logger {
	if out == nil {
		out = io.Discard
	}
	return NewZerologLogger(&Config{
		Level:       TraceLevel,
		Format:      JSONFormat,
		Outputs:     []io.Writer{out},
		Environment: "test",
	})
}
