// Package logging is the shared diagnostics sink for the bridge, the deck
// engine, the delivery layer and the plugins. Entries carry a component
// field and flow to zerolog by default; the owning shell may install a
// process-wide handler to redirect them (UI console, telemetry upload).
package logging

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Level is the severity of a log entry.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// String returns the lowercase level name.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return "info"
	}
}

// ParseLevel converts a level name to a Level. Unknown names fall back
// to info.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// Entry is one diagnostic line.
type Entry struct {
	Time      time.Time `json:"timestamp"`
	Level     Level     `json:"-"`
	Component string    `json:"component"`
	Message   string    `json:"message"`
}

// LevelName is the wire form of the level, kept alongside Entry for JSON
// consumers.
func (e Entry) LevelName() string { return e.Level.String() }

// Handler receives every entry that passes the minimum level filter.
type Handler func(Entry)

var (
	mu       sync.RWMutex
	handler  Handler
	minLevel = LevelInfo
)

// SetHandler installs a process-wide handler that replaces the default
// zerolog output. Pass the result of a previous handler chain if both
// destinations are wanted.
func SetHandler(h Handler) {
	mu.Lock()
	defer mu.Unlock()
	handler = h
}

// ResetHandler restores default zerolog output.
func ResetHandler() {
	mu.Lock()
	defer mu.Unlock()
	handler = nil
}

// SetMinLevel sets the global minimum level below which entries are
// dropped before reaching any handler.
func SetMinLevel(l Level) {
	mu.Lock()
	defer mu.Unlock()
	minLevel = l
}

// MinLevel returns the current global minimum level.
func MinLevel() Level {
	mu.RLock()
	defer mu.RUnlock()
	return minLevel
}

// Logger emits entries tagged with one component name.
type Logger struct {
	component string
}

// For returns a logger for the given component.
func For(component string) Logger {
	return Logger{component: component}
}

// Debugf logs a debug-level entry.
func (l Logger) Debugf(format string, args ...any) { l.emit(LevelDebug, format, args...) }

// Infof logs an info-level entry.
func (l Logger) Infof(format string, args ...any) { l.emit(LevelInfo, format, args...) }

// Warnf logs a warn-level entry.
func (l Logger) Warnf(format string, args ...any) { l.emit(LevelWarn, format, args...) }

// Errorf logs an error-level entry.
func (l Logger) Errorf(format string, args ...any) { l.emit(LevelError, format, args...) }

func (l Logger) emit(level Level, format string, args ...any) {
	mu.RLock()
	h := handler
	min := minLevel
	mu.RUnlock()

	if level < min {
		return
	}

	msg := fmt.Sprintf(format, args...)
	if h != nil {
		h(Entry{
			Time:      time.Now().UTC(),
			Level:     level,
			Component: l.component,
			Message:   msg,
		})
		return
	}

	var ev *zerolog.Event
	switch level {
	case LevelDebug:
		ev = log.Debug()
	case LevelWarn:
		ev = log.Warn()
	case LevelError:
		ev = log.Error()
	default:
		ev = log.Info()
	}
	ev.Str("component", l.component).Msg(msg)
}
