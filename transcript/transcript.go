// Package transcript writes the conversation log files the reception staff
// read after a call: a live text file, a JSON copy, and an optional
// bilingual rendering for conversations held in another language.
package transcript

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"

	"github.com/opsabarsec/hotel-receptionist-voice-bot/booking"
)

// Speaker labels as they appear in the transcript files.
const (
	labelUser         = "USER"
	labelReceptionist = "RECEPTIONIST"
	labelSystem       = "SYSTEM"
)

// Entry is one logged line.
type Entry struct {
	Timestamp time.Time `json:"timestamp"`
	Speaker   string    `json:"speaker"`
	Message   string    `json:"message"`
}

// TranslateFunc renders text into English for the bilingual transcript. It
// returns the translation, the detected source language, and whether a
// translation was actually performed.
type TranslateFunc func(text string) (translated, sourceLanguage string, ok bool)

// Logger accumulates transcript entries for one session and mirrors them to
// a text file as they happen, so a crash mid-call still leaves a readable
// log behind.
type Logger struct {
	mu      sync.Mutex
	path    string
	entries []Entry
}

// New creates a logger writing under dir. The file name carries the session
// start time and a short session id, so concurrent sessions never collide.
func New(dir, sessionID string, startedAt time.Time) (*Logger, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create transcript dir: %w", err)
	}
	sid := sessionID
	if len(sid) > 8 {
		sid = sid[:8]
	}
	name := fmt.Sprintf("hotel_conversation_%s_%s.txt", startedAt.Format("20060102_150405"), sid)
	return &Logger{path: filepath.Join(dir, name)}, nil
}

// Path returns the text transcript file path.
func (l *Logger) Path() string {
	return l.path
}

// AddTurn logs one conversation turn.
func (l *Logger) AddTurn(turn booking.Turn) error {
	label := labelUser
	if turn.Speaker == booking.SpeakerAssistant {
		label = labelReceptionist
	}
	return l.add(Entry{Timestamp: turn.Timestamp, Speaker: label, Message: turn.Text})
}

// AddSystem logs a session lifecycle note, like "Session ended".
func (l *Logger) AddSystem(message string, at time.Time) error {
	return l.add(Entry{Timestamp: at, Speaker: labelSystem, Message: message})
}

func (l *Logger) add(e Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, e)

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open transcript: %w", err)
	}
	defer f.Close()
	line := fmt.Sprintf("[%s] %s: %s\n", e.Timestamp.Format("15:04:05"), e.Speaker, e.Message)
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("append transcript: %w", err)
	}
	return nil
}

// Entries returns a copy of everything logged so far.
func (l *Logger) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Entry(nil), l.entries...)
}

// SaveFull rewrites the text file with full ISO timestamps and returns its
// path. Called once when the session ends.
func (l *Logger) SaveFull() (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var b strings.Builder
	for _, e := range l.entries {
		fmt.Fprintf(&b, "[%s] %s: %s\n", e.Timestamp.Format("2006-01-02T15:04:05"), e.Speaker, e.Message)
	}
	if err := os.WriteFile(l.path, []byte(b.String()), 0o644); err != nil {
		return "", fmt.Errorf("save transcript: %w", err)
	}
	return l.path, nil
}

// SaveJSON writes the entries next to the text file as JSON and returns the
// json file path.
func (l *Logger) SaveJSON() (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	payload, err := sonic.MarshalIndent(l.entries, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal transcript: %w", err)
	}
	path := strings.TrimSuffix(l.path, ".txt") + ".json"
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return "", fmt.Errorf("save json transcript: %w", err)
	}
	return path, nil
}

// SaveTranslated writes a bilingual transcript where every translated line
// is followed by its English rendering, for staff who do not speak the
// guest's language. System lines are copied as-is.
func (l *Logger) SaveTranslated(translate TranslateFunc) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var b strings.Builder
	for _, e := range l.entries {
		fmt.Fprintf(&b, "[%s] %s: %s\n", e.Timestamp.Format("2006-01-02T15:04:05"), e.Speaker, e.Message)
		if e.Speaker == labelSystem || translate == nil {
			continue
		}
		if translated, lang, ok := translate(e.Message); ok {
			fmt.Fprintf(&b, "    [%s -> English] %s\n", lang, translated)
		}
	}
	path := strings.TrimSuffix(l.path, ".txt") + "_translated.txt"
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return "", fmt.Errorf("save translated transcript: %w", err)
	}
	return path, nil
}
