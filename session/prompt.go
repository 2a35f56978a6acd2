package session

import (
	"fmt"
	"strings"

	"github.com/opsabarsec/hotel-receptionist-voice-bot/booking"
)

// DefaultSystemPrompt builds the receptionist persona handed to the dialogue
// engine at session start.
func DefaultSystemPrompt(hotelName string) string {
	return fmt.Sprintf(defaultSystemPromptTemplate, hotelName)
}

const defaultSystemPromptTemplate = `
## Identity & Role

You are a friendly, empathetic, and patient AI receptionist for **%[1]s**. You handle inbound guest conversations on behalf of the hotel, serving as the first point of contact. You should sound natural, warm, and conversational — like a front-desk host who genuinely cares about every guest's stay.

---

## Core Responsibilities

### 1. Reservations
- Take new room reservations: collect the guest's **check-in date, check-out date, and number of guests**, and when offered, their **name, contact number or email, and room preference**.
- Note any special requests (early check-in, cribs, accessible rooms, anniversaries, airport pickup, etc.).
- Never invent availability or prices. Use the hotel information lookup when the guest asks about rooms, policies, or amenities.

### 2. Hotel Inquiries & FAQs
- Answer questions about check-in/check-out times, breakfast, parking, pets, and the rooms.
- If you are unsure about a detail, **do not guess** — say you will have a colleague confirm.

### 3. Escalation
- If a guest asks for a human, has a complaint, or sounds distressed or urgent, a colleague takes over. Acknowledge warmly; do not try to talk them out of it.

---

## Tone & Communication Style

- **Empathetic & patient:** Always listen fully before responding. Never rush the guest.
- **Warm & welcoming:** Greet every guest as if they were walking up to the front desk.
- **Clear & concise:** Avoid jargon. One question at a time. Keep replies short — this is a live conversation, not an email.
- **Answer in the guest's language.** If the guest writes in French, reply in French.
- **Never argue** with a guest. De-escalate calmly and offer solutions.

---

## Important Rules & Guardrails

1. **Never fabricate information.** If you don't know something, say so honestly.
2. **Protect guest privacy.** Never share one guest's details with another.
3. **You do not confirm bookings yourself.** The reception system confirms once all details are collected; never tell a guest their reservation is finalized.
4. **Stay in scope.** You are a hotel receptionist. Politely redirect off-topic conversations.

---

## Machine-Readable Trailer

End every reply with exactly one extra line in this format, after your message:

<RECEPTION_META>{"language":"english","urgency":0.0,"human_request":false}

- language: the language the guest is currently speaking, as a lowercase English word.
- urgency: how urgent or distressed the guest sounds, from 0.0 (calm) to 1.0 (emergency).
- human_request: true only if the guest explicitly asked to talk to a person.

This line is removed before the guest sees your reply. Never mention it, and never put anything else on that line.
`

// greetings holds the localized opening line per language code. Anything not
// listed falls back to English.
var greetings = map[string]string{
	"en": "Thank you for calling %s! How may I help you today?",
	"fr": "Merci d'avoir appelé %s ! Comment puis-je vous aider aujourd'hui ?",
	"es": "¡Gracias por llamar a %s! ¿En qué puedo ayudarle hoy?",
}

// Greeting returns the opening utterance for a session.
func Greeting(language, hotelName string) string {
	tmpl, ok := greetings[strings.ToLower(language)]
	if !ok {
		tmpl = greetings["en"]
	}
	return fmt.Sprintf(tmpl, hotelName)
}

// fieldPhrases maps reservation field names to the words a receptionist
// would use when asking for them.
var fieldPhrases = map[string]string{
	booking.FieldCheckIn:         "your check-in date",
	booking.FieldCheckOut:        "your check-out date",
	booking.FieldGuestCount:      "how many guests will be staying",
	booking.FieldGuestName:       "the name for the reservation",
	booking.FieldContact:         "a phone number or email to reach you",
	booking.FieldRoomType:        "which room type you would prefer",
	booking.FieldSpecialRequests: "any special requests",
}

// FollowUp builds the clarification question naming exactly the fields still
// missing from the reservation.
func FollowUp(missing []string) string {
	if len(missing) == 0 {
		return "Is there anything else I can note for your reservation?"
	}
	phrases := make([]string, 0, len(missing))
	for _, field := range missing {
		phrase, ok := fieldPhrases[field]
		if !ok {
			phrase = strings.ReplaceAll(field, "_", " ")
		}
		phrases = append(phrases, phrase)
	}
	return fmt.Sprintf("So I can finish your booking, could you tell me %s?", joinPhrases(phrases))
}

func joinPhrases(phrases []string) string {
	switch len(phrases) {
	case 1:
		return phrases[0]
	case 2:
		return phrases[0] + " and " + phrases[1]
	default:
		return strings.Join(phrases[:len(phrases)-1], ", ") + " and " + phrases[len(phrases)-1]
	}
}

// Confirmation is the utterance sent once a reservation has been committed.
func Confirmation(rec booking.ReservationRecord) string {
	guests := "guests"
	if rec.GuestCount == 1 {
		guests = "guest"
	}
	return fmt.Sprintf(
		"Perfect, your reservation is confirmed! I have you arriving on %s and checking out on %s, %d %s. Your confirmation number is %s.",
		rec.CheckIn, rec.CheckOut, rec.GuestCount, guests, strings.ToUpper(rec.RecordID[:8]),
	)
}

// handoffMessages holds the guest-facing line per escalation reason. The
// guest never sees an error; they hear a colleague is taking over.
var handoffMessages = map[booking.EscalationReason]string{
	booking.ReasonGuestRequest:       "Of course — I'm putting you through to one of my colleagues right away. They have everything you've told me so far.",
	booking.ReasonUrgency:            "I understand, this sounds important. I'm handing you over to a colleague right now — they'll take care of you immediately.",
	booking.ReasonMaxTurnsExceeded:   "Let me hand you over to one of my colleagues who can sort this out with you directly. They have everything you've told me so far.",
	booking.ReasonEngineUnavailable:  "I'm sorry, I'm having a little trouble on my end. I'm handing you over to a colleague right away so you're not kept waiting.",
	booking.ReasonPersistenceFailure: "I'm sorry, I couldn't finalize that on my side. A colleague will take over right away and complete your booking — nothing you've told me is lost.",
	booking.ReasonDisconnected:       "It looks like we were cut off. A colleague will follow up on your request shortly.",
}

// HandoffMessage returns the utterance sent to the guest when a session is
// escalated for the given reason.
func HandoffMessage(reason booking.EscalationReason) string {
	if msg, ok := handoffMessages[reason]; ok {
		return msg
	}
	return "One of my colleagues will take over from here and help you right away."
}
