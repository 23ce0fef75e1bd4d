package logging

import "strings"

type Level int

const (
	LevelAll Level = iota
	LevelTrace
	LevelDebug
	LevelInfo
	LevelWarn
	LevelError
)

var logLevelNames = []string{"ALL", "TRACE", "DEBUG", "INFO", "WARN", "ERROR"}

func ParseLogLevel(name string) Level {
	switch strings.ToUpper(name) {
	default:
		return LevelAll
	case "TRACE":
		return LevelTrace
	case "DEBUG":
		return LevelDebug
	case "INFO":
		return LevelInfo
	case "WARN":
		return LevelWarn
	case "ERROR":
		return LevelError
	case "NONE":
		return LevelError + 1
	}
}

func LogLevelName(level Level) string {
	if level >= 0 && int(level) < len(logLevelNames) {
		return logLevelNames[level]
	}
	return "UNKNOWN"
}

var levelConfig = map[string]Level{}
var defaultLevel = LevelInfo

// GetLevel returns the configured level for a logger name. An exact match in
// the level table wins, then a prefix pattern ending in '*', then the default.
func GetLevel(name string) Level {
	if lvl, ok := levelConfig[name]; ok {
		return lvl
	}
	for pattern, lvl := range levelConfig {
		if strings.HasSuffix(pattern, "*") && strings.HasPrefix(name, pattern[:len(pattern)-1]) {
			return lvl
		}
	}
	return defaultLevel
}

func SetDefaultLevel(lvl Level) {
	defaultLevel = lvl
}

func DefaultLevel() Level {
	return defaultLevel
}
