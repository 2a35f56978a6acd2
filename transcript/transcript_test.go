package transcript

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/bytedance/sonic"

	"github.com/opsabarsec/hotel-receptionist-voice-bot/booking"
)

var logStart = time.Date(2026, time.May, 20, 14, 30, 0, 0, time.UTC)

func newTestLogger(t *testing.T) *Logger {
	t.Helper()
	l, err := New(t.TempDir(), "0ca6f817-d1c3-4e8f-9f40-2f5e015f8ba5", logStart)
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	return l
}

func TestLoggerFileName(t *testing.T) {
	l := newTestLogger(t)
	want := "hotel_conversation_20260520_143000_0ca6f817.txt"
	if !strings.HasSuffix(l.Path(), want) {
		t.Fatalf("path=%q, want suffix %q", l.Path(), want)
	}
}

func TestLoggerAppendsLive(t *testing.T) {
	l := newTestLogger(t)
	if err := l.AddSystem("Session started", logStart); err != nil {
		t.Fatalf("add system: %v", err)
	}
	err := l.AddTurn(booking.Turn{Speaker: booking.SpeakerGuest, Text: "hello", Timestamp: logStart.Add(2 * time.Second)})
	if err != nil {
		t.Fatalf("add turn: %v", err)
	}
	err = l.AddTurn(booking.Turn{Speaker: booking.SpeakerAssistant, Text: "welcome!", Timestamp: logStart.Add(3 * time.Second)})
	if err != nil {
		t.Fatalf("add turn: %v", err)
	}

	raw, err := os.ReadFile(l.Path())
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	got := string(raw)
	want := "[14:30:00] SYSTEM: Session started\n[14:30:02] USER: hello\n[14:30:03] RECEPTIONIST: welcome!\n"
	if got != want {
		t.Fatalf("file=%q, want %q", got, want)
	}
}

func TestSaveFullRewritesWithISOStamps(t *testing.T) {
	l := newTestLogger(t)
	l.AddTurn(booking.Turn{Speaker: booking.SpeakerGuest, Text: "hola", Timestamp: logStart})
	l.AddSystem("Session ended", logStart.Add(time.Minute))

	path, err := l.SaveFull()
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	want := "[2026-05-20T14:30:00] USER: hola\n[2026-05-20T14:31:00] SYSTEM: Session ended\n"
	if string(raw) != want {
		t.Fatalf("file=%q, want %q", raw, want)
	}
}

func TestSaveJSON(t *testing.T) {
	l := newTestLogger(t)
	l.AddTurn(booking.Turn{Speaker: booking.SpeakerGuest, Text: "bonjour", Timestamp: logStart})

	path, err := l.SaveJSON()
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if !strings.HasSuffix(path, ".json") {
		t.Fatalf("path=%q", path)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var entries []Entry
	if err := sonic.Unmarshal(raw, &entries); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(entries) != 1 || entries[0].Speaker != "USER" || entries[0].Message != "bonjour" {
		t.Fatalf("entries=%+v", entries)
	}
}

func TestSaveTranslatedBilingual(t *testing.T) {
	l := newTestLogger(t)
	l.AddSystem("Session started", logStart)
	l.AddTurn(booking.Turn{Speaker: booking.SpeakerGuest, Text: "Je voudrais une chambre", Timestamp: logStart.Add(time.Second)})
	l.AddTurn(booking.Turn{Speaker: booking.SpeakerAssistant, Text: "Of course!", Timestamp: logStart.Add(2 * time.Second)})

	path, err := l.SaveTranslated(func(text string) (string, string, bool) {
		if text == "Je voudrais une chambre" {
			return "I would like a room", "French", true
		}
		return text, "English", false
	})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if !strings.HasSuffix(path, "_translated.txt") {
		t.Fatalf("path=%q", path)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	got := string(raw)
	if !strings.Contains(got, "[French -> English] I would like a room") {
		t.Fatalf("missing translation line:\n%s", got)
	}
	if strings.Contains(got, "[English -> English]") {
		t.Fatalf("english lines must not be annotated:\n%s", got)
	}
	if !strings.Contains(got, "SYSTEM: Session started") {
		t.Fatalf("system line dropped:\n%s", got)
	}
}

func TestEntriesReturnsCopy(t *testing.T) {
	l := newTestLogger(t)
	l.AddTurn(booking.Turn{Speaker: booking.SpeakerGuest, Text: "hi", Timestamp: logStart})
	entries := l.Entries()
	entries[0].Message = "tampered"
	if l.Entries()[0].Message != "hi" {
		t.Fatal("internal entries mutated through copy")
	}
}
