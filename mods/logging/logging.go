package logging

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Config struct {
	Console        bool          `json:"console"`
	Filename       string        `json:"filename"`
	Append         bool          `json:"append"`
	RotateSchedule string        `json:"rotateSchedule"`
	MaxSize        int           `json:"maxSize"`
	MaxBackups     int           `json:"maxBackups"`
	MaxAge         int           `json:"maxAge"`
	Compress       bool          `json:"compress"`
	Levels         []LevelConfig `json:"levels"`
	DefaultLevel   string        `json:"defaultLevel"`
}

type LevelConfig struct {
	Pattern string `json:"pattern"`
	Level   string `json:"level"`
}

// PresetConfigStdout logs everything to stdout, used by tests and scripts.
var PresetConfigStdout = Config{
	Filename:     "-",
	Append:       true,
	DefaultLevel: "TRACE",
}

// PresetConfigDiscard silences all output.
var PresetConfigDiscard = Config{
	Filename:     ".",
	DefaultLevel: "ERROR",
}

var rotateCron = cron.New()
var defaultWriter []io.Writer

func init() {
	defaultWriter = []io.Writer{os.Stdout}
}

// Configure installs the process-wide log destination and level table.
// Filename "-" means stdout, "." discards, anything else is a rotating file.
func Configure(cfg *Config) {
	for _, c := range cfg.Levels {
		levelConfig[c.Pattern] = ParseLogLevel(c.Level)
	}
	SetDefaultLevel(ParseLogLevel(cfg.DefaultLevel))

	switch cfg.Filename {
	case ".":
		defaultWriter = []io.Writer{}
	case "-", "":
		defaultWriter = []io.Writer{os.Stdout}
	default:
		lj := &lumberjack.Logger{
			Filename:   cfg.Filename,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   cfg.Compress,
			LocalTime:  true,
		}
		if !cfg.Append {
			lj.Rotate()
		}
		if len(cfg.RotateSchedule) > 0 {
			if _, err := rotateCron.AddFunc(cfg.RotateSchedule, func() { lj.Rotate() }); err == nil {
				go rotateCron.Run()
			} else {
				fmt.Fprintf(os.Stderr, "ERR logger rotate schedule %s\n", err.Error())
			}
		}
		if cfg.Console {
			defaultWriter = []io.Writer{lj, os.Stdout}
		} else {
			defaultWriter = []io.Writer{lj}
		}
	}
}

type Log interface {
	TraceEnabled() bool
	Trace(...any)
	Tracef(format string, args ...any)
	DebugEnabled() bool
	Debug(...any)
	Debugf(format string, args ...any)
	InfoEnabled() bool
	Info(...any)
	Infof(format string, args ...any)
	WarnEnabled() bool
	Warn(...any)
	Warnf(format string, args ...any)
	ErrorEnabled() bool
	Error(...any)
	Errorf(format string, args ...any)

	SetLevel(level Level)
	Level() Level
}

// GetLog returns a named logger writing to the configured destination.
func GetLog(name string) Log {
	return &levelLogger{
		name:       name,
		level:      GetLevel(name),
		underlying: defaultWriter,
	}
}

// NewLog returns a named logger bound to the given writer, independent of
// the process-wide configuration.
func NewLog(name string, writer io.Writer) Log {
	return &levelLogger{
		name:       name,
		level:      GetLevel(name),
		underlying: []io.Writer{writer},
	}
}

// Discard is a logger that drops everything.
var Discard Log = &levelLogger{name: "discard", level: LevelError + 1}

type levelLogger struct {
	name       string
	level      Level
	underlying []io.Writer
}

func (l *levelLogger) logf(lvl Level, format string, args []any) {
	if lvl < l.level || len(l.underlying) == 0 {
		return
	}
	prefix := fmt.Sprintf("%s %-5s %-20s ",
		time.Now().Format("2006/01/02 15:04:05.000"), logLevelNames[lvl], l.name)
	var line string
	if format == "" {
		line = prefix + fmt.Sprintln(args...)
	} else {
		line = prefix + fmt.Sprintf(format, args...) + "\n"
	}
	for _, w := range l.underlying {
		w.Write([]byte(line))
	}
}

func (l *levelLogger) TraceEnabled() bool { return l.level <= LevelTrace }
func (l *levelLogger) Trace(m ...any)     { l.logf(LevelTrace, "", m) }
func (l *levelLogger) Tracef(format string, args ...any) {
	l.logf(LevelTrace, format, args)
}
func (l *levelLogger) DebugEnabled() bool { return l.level <= LevelDebug }
func (l *levelLogger) Debug(m ...any)     { l.logf(LevelDebug, "", m) }
func (l *levelLogger) Debugf(format string, args ...any) {
	l.logf(LevelDebug, format, args)
}
func (l *levelLogger) InfoEnabled() bool { return l.level <= LevelInfo }
func (l *levelLogger) Info(m ...any)     { l.logf(LevelInfo, "", m) }
func (l *levelLogger) Infof(format string, args ...any) {
	l.logf(LevelInfo, format, args)
}
func (l *levelLogger) WarnEnabled() bool { return l.level <= LevelWarn }
func (l *levelLogger) Warn(m ...any)     { l.logf(LevelWarn, "", m) }
func (l *levelLogger) Warnf(format string, args ...any) {
	l.logf(LevelWarn, format, args)
}
func (l *levelLogger) ErrorEnabled() bool { return l.level <= LevelError }
func (l *levelLogger) Error(m ...any)     { l.logf(LevelError, "", m) }
func (l *levelLogger) Errorf(format string, args ...any) {
	l.logf(LevelError, format, args)
}

func (l *levelLogger) SetLevel(level Level) { l.level = level }
func (l *levelLogger) Level() Level         { return l.level }
