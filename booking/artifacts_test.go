package booking

import "testing"

func TestNewReservationRecordSnapshotsPresentFields(t *testing.T) {
	p := EmptyPartial()
	p.CheckIn = Present("2025-06-01")
	p.CheckOut = Present("2025-06-03")
	p.GuestCount = Present("2")
	p.GuestName = Present("John Smith")
	p.RoomType = Present("suite")

	rec := NewReservationRecord("sess-1", p)
	if rec.RecordID == "" {
		t.Fatalf("record id empty")
	}
	if rec.SessionID != "sess-1" {
		t.Fatalf("sessionID=%q", rec.SessionID)
	}
	if rec.CheckIn != "2025-06-01" || rec.CheckOut != "2025-06-03" || rec.GuestCount != 2 {
		t.Fatalf("record=%+v", rec)
	}
	if rec.GuestName != "John Smith" || rec.RoomType != "suite" {
		t.Fatalf("record=%+v", rec)
	}
	if rec.Contact != "" || rec.SpecialRequests != "" {
		t.Fatalf("absent fields leaked: %+v", rec)
	}
	if rec.CreatedAt.IsZero() {
		t.Fatalf("createdAt zero")
	}
}

func TestNewReservationRecordFreshIDs(t *testing.T) {
	p := EmptyPartial()
	a := NewReservationRecord("sess-1", p)
	b := NewReservationRecord("sess-1", p)
	if a.RecordID == b.RecordID {
		t.Fatalf("record ids collide: %s", a.RecordID)
	}
}

func TestNewEscalationEventAttachesPartialAndContact(t *testing.T) {
	p := EmptyPartial()
	p.GuestCount = Present("3")
	p.Contact = Present("+221771234567")

	ev := NewEscalationEvent("sess-2", ReasonMaxTurnsExceeded, p, "transcripts/sess-2.txt")
	if ev.EventID == "" || ev.SessionID != "sess-2" {
		t.Fatalf("event=%+v", ev)
	}
	if ev.Reason != ReasonMaxTurnsExceeded {
		t.Fatalf("reason=%s", ev.Reason)
	}
	if ev.Contact != "+221771234567" {
		t.Fatalf("contact=%q", ev.Contact)
	}
	if !ev.Partial.GuestCount.IsPresent() {
		t.Fatalf("partial data dropped: %+v", ev.Partial)
	}
	if ev.TranscriptRef != "transcripts/sess-2.txt" {
		t.Fatalf("transcriptRef=%q", ev.TranscriptRef)
	}
}

func TestNewEscalationEventWithoutContact(t *testing.T) {
	ev := NewEscalationEvent("sess-3", ReasonDisconnected, EmptyPartial(), "")
	if ev.Contact != "" {
		t.Fatalf("contact=%q", ev.Contact)
	}
}
