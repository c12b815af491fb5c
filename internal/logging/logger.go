// Package logging provides the file+console logger shared by all three
// services, plus a bounded in-memory ring that backs the retrieveConsoleLogs
// HTTP endpoint (spec §4.6, §4.7.2).
package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync"
	"time"
)

// Level mirrors the integer level carried on the wire in RequestLogsResponse
// entries (spec §6).
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarning
	LevelError
	LevelCritical
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarning:
		return "WARNING"
	case LevelError:
		return "ERROR"
	case LevelCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// Entry is the LogEntry data model item from spec §3.
type Entry struct {
	Timestamp float64
	Level     Level
	Message   string
}

// Logger writes to console+file and feeds a bounded ring of Entry values.
type Logger struct {
	mu       sync.Mutex
	category string
	out      *log.Logger
	file     *os.File
	ring     *Ring
	subs     map[chan Entry]struct{}
}

// New creates a logger for category, writing to both stdout and a file
// under dir named "<category>.log". If dir is empty, file output is
// skipped (useful for tests).
func New(category string, dir string, ringCapacity int) (*Logger, error) {
	var dest io.Writer = os.Stdout
	var file *os.File

	if dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("logging: creating log dir %s: %w", dir, err)
		}
		path := dir + "/" + category + ".log"
		f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("logging: opening log file %s: %w", path, err)
		}
		file = f
		dest = io.MultiWriter(os.Stdout, f)
	}

	return &Logger{
		category: category,
		out:      log.New(dest, "["+category+"] ", log.LstdFlags),
		file:     file,
		ring:     NewRing(ringCapacity),
		subs:     make(map[chan Entry]struct{}),
	}, nil
}

func (l *Logger) record(level Level, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	l.out.Printf("[%s] %s", level, msg)

	entry := Entry{Timestamp: nowSeconds(), Level: level, Message: msg}
	l.ring.Append(entry)

	l.mu.Lock()
	for ch := range l.subs {
		select {
		case ch <- entry:
		default:
		}
	}
	l.mu.Unlock()

	if level >= LevelError && l.file != nil {
		_ = l.file.Sync()
	}
}

func (l *Logger) Debug(format string, args ...any)    { l.record(LevelDebug, format, args...) }
func (l *Logger) Info(format string, args ...any)     { l.record(LevelInfo, format, args...) }
func (l *Logger) Warning(format string, args ...any)  { l.record(LevelWarning, format, args...) }
func (l *Logger) Error(format string, args ...any)    { l.record(LevelError, format, args...) }
func (l *Logger) Critical(format string, args ...any) { l.record(LevelCritical, format, args...) }

// Since returns up to limit entries with Timestamp > startTimestamp and the
// last timestamp seen in the ring (0 if empty), backing retrieveConsoleLogs.
func (l *Logger) Since(startTimestamp float64, limit int) (entries []Entry, lastTimestamp float64) {
	return l.ring.Since(startTimestamp, limit)
}

// Subscribe returns a channel fed with every entry recorded from this point
// on, for the consoleEvents websocket tail (SPEC_FULL §5.2). Callers must
// call Unsubscribe when done.
func (l *Logger) Subscribe() chan Entry {
	ch := make(chan Entry, 32)
	l.mu.Lock()
	l.subs[ch] = struct{}{}
	l.mu.Unlock()
	return ch
}

// Unsubscribe detaches and closes a channel returned by Subscribe.
func (l *Logger) Unsubscribe(ch chan Entry) {
	l.mu.Lock()
	if _, ok := l.subs[ch]; ok {
		delete(l.subs, ch)
		close(ch)
	}
	l.mu.Unlock()
}

// Close flushes and closes the underlying log file, if any.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	_ = l.file.Sync()
	return l.file.Close()
}

func nowSeconds() float64 {
	return float64(time.Now().UnixNano()) / 1e9
}
