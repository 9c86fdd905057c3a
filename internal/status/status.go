// Package status keeps the short history of user-facing status messages
// ("Saved", "Save failed: quota exceeded", ...) shown in the status bar.
package status

import (
	"fmt"
	"sync"
	"time"
)

// DefaultMaxMessages is the history length used when none is given.
const DefaultMaxMessages = 100

// Level classifies a message.
type Level int

const (
	Info Level = iota
	Warn
	Error
)

func (l Level) String() string {
	switch l {
	case Warn:
		return "warn"
	case Error:
		return "error"
	default:
		return "info"
	}
}

// Entry is one status message.
type Entry struct {
	At      time.Time
	Level   Level
	Message string
}

func (e Entry) String() string {
	return e.Message
}

// Log is a bounded, browsable list of status messages. The cursor follows
// the newest message until the user scrolls back.
type Log struct {
	mu       sync.Mutex
	messages []Entry
	cursor   int
	max      int
	now      func() time.Time
	onChange func()
}

// NewLog creates a log holding at most maxMessages entries.
func NewLog(maxMessages int) *Log {
	if maxMessages <= 0 {
		maxMessages = DefaultMaxMessages
	}
	return &Log{
		messages: make([]Entry, 0, maxMessages),
		cursor:   -1,
		max:      maxMessages,
		now:      time.Now,
	}
}

// OnChange registers a callback run after every change. The GUI uses it to
// refresh the status bar.
func (l *Log) OnChange(fn func()) {
	l.mu.Lock()
	l.onChange = fn
	l.mu.Unlock()
}

// Add appends a message and moves the cursor to it.
func (l *Log) Add(level Level, format string, args ...any) {
	l.mu.Lock()
	l.messages = append(l.messages, Entry{At: l.now(), Level: level, Message: fmt.Sprintf(format, args...)})
	if len(l.messages) > l.max {
		l.messages = l.messages[len(l.messages)-l.max:]
	}
	l.cursor = len(l.messages) - 1
	fn := l.onChange
	l.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// Infof records an informational message.
func (l *Log) Infof(format string, args ...any) { l.Add(Info, format, args...) }

// Warnf records a warning.
func (l *Log) Warnf(format string, args ...any) { l.Add(Warn, format, args...) }

// Errorf records a failure.
func (l *Log) Errorf(format string, args ...any) { l.Add(Error, format, args...) }

// Latest returns the newest message.
func (l *Log) Latest() (Entry, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.messages) == 0 {
		return Entry{}, false
	}
	return l.messages[len(l.messages)-1], true
}

// Current returns the message under the cursor with its 1-based position and
// the total count.
func (l *Log) Current() (Entry, int, int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.messages) == 0 {
		return Entry{}, 0, 0
	}
	return l.messages[l.cursor], l.cursor + 1, len(l.messages)
}

// Previous moves the cursor back one message. Returns false at the start.
func (l *Log) Previous() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.messages) == 0 || l.cursor <= 0 {
		return false
	}
	l.cursor--
	return true
}

// Next moves the cursor forward one message. Returns false at the end.
func (l *Log) Next() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.messages) == 0 || l.cursor >= len(l.messages)-1 {
		return false
	}
	l.cursor++
	return true
}

// Entries returns a copy of every stored message, oldest first.
func (l *Log) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Entry, len(l.messages))
	copy(out, l.messages)
	return out
}
