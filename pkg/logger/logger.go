package logger

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Logger wraps zerolog with typed fields and an optional batch collector
// that ships error lines to the message bus.
type Logger struct {
	zl        zerolog.Logger
	collector *LogCollector
}

type Config struct {
	Level      string // debug, info, warn, error, fatal, panic
	Format     string // json or console
	Output     string // stdout, stderr, or file path
	TimeFormat string // time format for log messages
}

func New(cfg *Config) (*Logger, error) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}
	zerolog.SetGlobalLevel(level)

	var output io.Writer
	switch cfg.Output {
	case "stdout":
		output = os.Stdout
	case "stderr":
		output = os.Stderr
	default:
		file, err := os.OpenFile(cfg.Output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("could not open log file: %w", err)
		}
		output = file
	}

	if cfg.TimeFormat == "" {
		cfg.TimeFormat = time.RFC3339Nano
	}
	zerolog.TimeFieldFormat = cfg.TimeFormat

	if cfg.Format == "console" {
		output = zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: cfg.TimeFormat,
			NoColor:    false,
		}
	}

	zl := zerolog.New(output).
		With().
		Timestamp().
		CallerWithSkipFrameCount(3).
		Logger()

	return &Logger{zl: zl}, nil
}

func (l *Logger) Debug(msg string, fields ...Field) {
	emit(l.zl.Debug(), msg, fields)
}

func (l *Logger) Info(msg string, fields ...Field) {
	emit(l.zl.Info(), msg, fields)
}

func (l *Logger) Warn(msg string, fields ...Field) {
	emit(l.zl.Warn(), msg, fields)
}

func (l *Logger) Error(msg string, fields ...Field) {
	emit(l.zl.Error(), msg, fields)
	l.collect("error", msg, fields)
}

func emit(event *zerolog.Event, msg string, fields []Field) {
	for _, f := range fields {
		f.addTo(event)
	}
	event.Msg(msg)
}

// AddCollector attaches a batch collector; error lines are aggregated and
// shipped through it until RemoveCollector.
func (l *Logger) AddCollector(config *CollectionConfig) {
	if l.collector != nil {
		l.collector.Close()
	}
	l.collector = NewLogCollector(config)
}

func (l *Logger) RemoveCollector() {
	if l.collector != nil {
		l.collector.Close()
	}
}

func (l *Logger) collect(level, msg string, fields []Field) {
	if l.collector == nil {
		return
	}

	// skip frames: collect -> Error -> user code
	_, file, line, ok := runtime.Caller(2)
	caller := "unknown"
	if ok {
		parts := strings.Split(file, "SilverScan")
		caller = fmt.Sprintf("%s:%d", parts[len(parts)-1], line)
	}

	fieldMap := make(map[string]interface{}, len(fields))
	for _, f := range fields {
		fieldMap[f.Key] = f.value()
	}
	l.collector.AddLog(level, msg, fieldMap, caller)
}

type fieldKind uint8

const (
	kindString fieldKind = iota
	kindInt64
	kindFloat64
	kindBool
	kindError
	kindAny
)

// Field is one typed key/value pair. The kind tag picks which member is
// live, so a slice of fields allocates nothing per entry beyond the struct.
type Field struct {
	Key  string
	kind fieldKind
	str  string
	num  int64
	fnum float64
	flag bool
	err  error
	any  interface{}
}

func (f Field) addTo(event *zerolog.Event) {
	switch f.kind {
	case kindString:
		event.Str(f.Key, f.str)
	case kindInt64:
		event.Int64(f.Key, f.num)
	case kindFloat64:
		event.Float64(f.Key, f.fnum)
	case kindBool:
		event.Bool(f.Key, f.flag)
	case kindError:
		event.Err(f.err)
	case kindAny:
		event.Interface(f.Key, f.any)
	}
}

func (f Field) value() interface{} {
	switch f.kind {
	case kindString:
		return f.str
	case kindInt64:
		return f.num
	case kindFloat64:
		return f.fnum
	case kindBool:
		return f.flag
	case kindError:
		if f.err == nil {
			return nil
		}
		return f.err.Error()
	default:
		return f.any
	}
}

// --- Field constructors ---

func String(key, value string) Field {
	return Field{Key: key, kind: kindString, str: value}
}

func Strings(key string, value []string) Field {
	return String(key, strings.Join(value, ", "))
}

func Int(key string, value int) Field {
	return Field{Key: key, kind: kindInt64, num: int64(value)}
}

func Int32(key string, value int32) Field {
	return Field{Key: key, kind: kindInt64, num: int64(value)}
}

func Int64(key string, value int64) Field {
	return Field{Key: key, kind: kindInt64, num: value}
}

func Uint(key string, value uint) Field {
	return Field{Key: key, kind: kindInt64, num: int64(value)}
}

func Uint64(key string, value uint64) Field {
	return Field{Key: key, kind: kindInt64, num: int64(value)}
}

func Float64(key string, value float64) Field {
	return Field{Key: key, kind: kindFloat64, fnum: value}
}

func Bool(key string, value bool) Field {
	return Field{Key: key, kind: kindBool, flag: value}
}

// Duration logs the value as whole milliseconds.
func Duration(key string, value time.Duration) Field {
	return Field{Key: key, kind: kindInt64, num: value.Milliseconds()}
}

func Error(err error) Field {
	return Field{Key: "error", kind: kindError, err: err}
}

func Any(key string, value interface{}) Field {
	return Field{Key: key, kind: kindAny, any: value}
}
