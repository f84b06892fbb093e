// Package util provides logging and process-wide counters shared by the
// server and the client.
package util

import (
	"fmt"
	"strings"

	"github.com/pterm/pterm"
)

func init() {
	pterm.DefaultLogger.ShowTime = true
	pterm.DefaultLogger.TimeFormat = "02 Jan 15:04:05"
	pterm.DefaultLogger.MaxWidth = 1000
}

// Leveled logging backed by pterm's default logger (stderr). The *f variants
// format a message; Log attaches key/value pairs instead.

func LogDebug(format string, args ...any) {
	pterm.DefaultLogger.Debug(fmt.Sprintf(format, args...))
}

func LogInfo(format string, args ...any) {
	pterm.DefaultLogger.Info(fmt.Sprintf(format, args...))
}

func LogWarning(format string, args ...any) {
	pterm.DefaultLogger.Warn(fmt.Sprintf(format, args...))
}

func LogError(format string, args ...any) {
	pterm.DefaultLogger.Error(fmt.Sprintf(format, args...))
}

// Level is a log level name as accepted by ParseLevel.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Log writes msg at level with structured key/value pairs, e.g.
//
//	util.Log(util.LevelInfo, "match", "room", roomID, "initiator", a)
func Log(level Level, msg string, kv ...any) {
	l := pterm.DefaultLogger
	args := l.Args(kv...)
	switch level {
	case LevelDebug:
		l.Debug(msg, args)
	case LevelWarn:
		l.Warn(msg, args)
	case LevelError:
		l.Error(msg, args)
	default:
		l.Info(msg, args)
	}
}

// ParseLevel maps a user-facing level name to a Level. Aliases follow the
// usual env conventions ("dev" is debug, "prod" is error).
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug", "dev", "development":
		return LevelDebug, nil
	case "info", "":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error", "prod", "production":
		return LevelError, nil
	}
	return "", fmt.Errorf("unknown log level %q", s)
}

// SetLevel configures the minimum level that is printed.
func SetLevel(level Level) {
	switch level {
	case LevelDebug:
		pterm.DefaultLogger.Level = pterm.LogLevelDebug
	case LevelWarn:
		pterm.DefaultLogger.Level = pterm.LogLevelWarn
	case LevelError:
		pterm.DefaultLogger.Level = pterm.LogLevelError
	default:
		pterm.DefaultLogger.Level = pterm.LogLevelInfo
	}
}
