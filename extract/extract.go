// Package extract derives structured reservation fields from what the guest
// has said so far. It is deterministic: the same turns always produce the
// same partial reservation, and nothing in here calls out to a model or the
// clock.
package extract

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/opsabarsec/hotel-receptionist-voice-bot/booking"
)

// Options tunes a single extraction pass.
type Options struct {
	// Reference anchors "in the past" checks and yearless dates. When zero,
	// the first turn's timestamp is used instead.
	Reference time.Time
	// MaxGuestCount bounds a believable party size; zero means the default.
	MaxGuestCount int
}

// Extract scans the guest's turns in order and returns the reservation
// fields found so far. Later mentions of a field override earlier ones,
// except special requests, which accumulate. Assistant turns are ignored so
// the bot's own phrasing can never feed back into the extraction.
func Extract(turns []booking.Turn, opts Options) booking.PartialReservation {
	ref := opts.Reference
	if ref.IsZero() {
		for _, t := range turns {
			if !t.Timestamp.IsZero() {
				ref = t.Timestamp
				break
			}
		}
	}
	maxGuests := opts.MaxGuestCount
	if maxGuests <= 0 {
		maxGuests = booking.DefaultMaxGuestCount
	}

	var (
		checkIn, checkOut string
		guestCount        int
		countFound        bool
		guestName         string
		contact           string
		roomType          string
		requests          []string
		requested         = map[string]bool{}
	)
	for _, turn := range turns {
		if turn.Speaker != booking.SpeakerGuest {
			continue
		}
		text := turn.Text
		in, out := pairDates(scanDates(text, ref), checkIn != "", checkOut != "")
		if in != "" {
			checkIn = in
		}
		if out != "" {
			checkOut = out
		}
		if n, ok := findGuestCount(text); ok {
			guestCount, countFound = n, true
		}
		if name := findGuestName(text); name != "" {
			guestName = name
		}
		if c := findContact(text); c != "" {
			contact = c
		}
		if rt := findRoomType(text); rt != "" {
			roomType = rt
		}
		for _, label := range findSpecialRequests(text) {
			if !requested[label] {
				requested[label] = true
				requests = append(requests, label)
			}
		}
	}

	p := booking.EmptyPartial()
	refISO := ref.Format(isoDate)
	if checkIn != "" {
		if checkIn < refISO {
			p.CheckIn = booking.Invalid(booking.InvalidPastDate)
		} else {
			p.CheckIn = booking.Present(checkIn)
		}
	}
	if checkOut != "" {
		switch {
		case checkIn != "" && checkOut <= checkIn:
			p.CheckOut = booking.Invalid(booking.InvalidDateOrder)
		case checkOut < refISO:
			p.CheckOut = booking.Invalid(booking.InvalidPastDate)
		default:
			p.CheckOut = booking.Present(checkOut)
		}
	}
	if countFound {
		if guestCount < 1 || guestCount > maxGuests {
			p.GuestCount = booking.Invalid(booking.InvalidGuestCount)
		} else {
			p.GuestCount = booking.Present(strconv.Itoa(guestCount))
		}
	}
	if guestName != "" {
		p.GuestName = booking.Present(guestName)
	}
	if contact != "" {
		p.Contact = booking.Present(contact)
	}
	if roomType != "" {
		p.RoomType = booking.Present(roomType)
	}
	if len(requests) > 0 {
		p.SpecialRequests = booking.Present(strings.Join(requests, ", "))
	}
	return p
}

const countWords = `one|two|three|four|five|six|seven|eight|nine|ten`

var (
	guestCountRe = regexp.MustCompile(`(?i)\b(\d{1,3}|` + countWords + `)\s+(?:guests?|people|persons?|adults?|travell?ers?)\b`)
	partyOfRe    = regexp.MustCompile(`(?i)\b(?:party|group|family)\s+of\s+(\d{1,3}|` + countWords + `)\b`)
	soloRe       = regexp.MustCompile(`(?i)\b(?:just me|only me|by myself|travell?ing alone)\b`)
)

var countWordValues = map[string]int{
	"one": 1, "two": 2, "three": 3, "four": 4, "five": 5,
	"six": 6, "seven": 7, "eight": 8, "nine": 9, "ten": 10,
}

// findGuestCount returns the party size named latest in the utterance.
func findGuestCount(text string) (int, bool) {
	best := -1
	n := 0
	for _, re := range []*regexp.Regexp{guestCountRe, partyOfRe} {
		for _, idx := range re.FindAllStringSubmatchIndex(text, -1) {
			if idx[0] > best {
				best = idx[0]
				n = parseCount(text[idx[2]:idx[3]])
			}
		}
	}
	if loc := soloRe.FindStringIndex(text); loc != nil && loc[0] > best {
		best = loc[0]
		n = 1
	}
	return n, best >= 0
}

func parseCount(s string) int {
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return countWordValues[strings.ToLower(s)]
}

var nameRe = regexp.MustCompile(`(?i:my name is|the name is|name's|i am|i'm|this is|under the name|reservation for|booking for|booking under)\s+([A-Z][A-Za-z'-]+(?:\s+[A-Z][A-Za-z'-]+){0,2})`)

// nameStopWords rejects capitalized words that follow a name cue but cannot
// open a person's name, like "this is June 1st".
var nameStopWords = map[string]bool{
	"January": true, "February": true, "March": true, "April": true,
	"May": true, "June": true, "July": true, "August": true,
	"September": true, "October": true, "November": true, "December": true,
	"Monday": true, "Tuesday": true, "Wednesday": true, "Thursday": true,
	"Friday": true, "Saturday": true, "Sunday": true,
	"The": true, "A": true, "I": true, "OK": true, "Ok": true,
}

func findGuestName(text string) string {
	name := ""
	for _, m := range nameRe.FindAllStringSubmatch(text, -1) {
		first, _, _ := strings.Cut(m[1], " ")
		if nameStopWords[first] {
			continue
		}
		name = m[1]
	}
	return name
}

var (
	emailRe = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)
	phoneRe = regexp.MustCompile(`\+?\d[\d\s\-().]{6,}\d`)
)

// findContact prefers an email address and falls back to a phone number with
// a plausible digit count, so date strings never pass as phones.
func findContact(text string) string {
	if emails := emailRe.FindAllString(text, -1); len(emails) > 0 {
		return emails[len(emails)-1]
	}
	contact := ""
	for _, raw := range phoneRe.FindAllString(text, -1) {
		digits := strings.Map(func(r rune) rune {
			if r >= '0' && r <= '9' {
				return r
			}
			return -1
		}, raw)
		if len(digits) < 9 || len(digits) > 15 {
			continue
		}
		if strings.HasPrefix(raw, "+") {
			digits = "+" + digits
		}
		contact = digits
	}
	return contact
}

var (
	roomTypeRe      = regexp.MustCompile(`(?i)\b(suite|deluxe|standard|double|single|twin|king|queen|studio|family|penthouse|bungalow)\b`)
	familyOfTail    = regexp.MustCompile(`^\s+of\b`)
	doubleCheckTail = regexp.MustCompile(`(?i)^[\s-]*check`)
)

// findRoomType returns the last room keyword in the utterance, skipping
// "family of four" and "double-check" style phrases that only borrow the
// word.
func findRoomType(text string) string {
	roomType := ""
	for _, idx := range roomTypeRe.FindAllStringSubmatchIndex(text, -1) {
		word := strings.ToLower(text[idx[2]:idx[3]])
		rest := text[idx[3]:]
		if word == "family" && familyOfTail.MatchString(rest) {
			continue
		}
		if word == "double" && doubleCheckTail.MatchString(rest) {
			continue
		}
		roomType = word
	}
	return roomType
}

// specialRequestRules map free-form phrasing onto a fixed label per request,
// so repeating a wish in different words never duplicates it.
var specialRequestRules = []struct {
	label string
	re    *regexp.Regexp
}{
	{"early check-in", regexp.MustCompile(`(?i)early check[- ]?in|check(?:ing)? in early`)},
	{"late check-in", regexp.MustCompile(`(?i)late check[- ]?in|check(?:ing)? in late|late arrival|arriv\w+ (?:very )?late`)},
	{"late check-out", regexp.MustCompile(`(?i)late check[- ]?out|check(?:ing)? out late`)},
	{"room with a view", regexp.MustCompile(`(?i)(?:sea|ocean|city|garden|mountain|lake)[- ]view|room with a view|view room`)},
	{"crib", regexp.MustCompile(`(?i)\bcribs?\b|baby cot|\bcots?\b`)},
	{"extra bed", regexp.MustCompile(`(?i)extra bed|additional bed|rollaway`)},
	{"accessible room", regexp.MustCompile(`(?i)accessib\w+|wheelchair`)},
	{"airport pickup", regexp.MustCompile(`(?i)airport (?:pick[- ]?up|transfer|shuttle)|pick(?:ed)?[- ]?up (?:from|at) the airport`)},
	{"vegetarian meals", regexp.MustCompile(`(?i)vegetarian`)},
	{"vegan meals", regexp.MustCompile(`(?i)\bvegan\b`)},
	{"allergy accommodations", regexp.MustCompile(`(?i)allerg\w+`)},
	{"anniversary", regexp.MustCompile(`(?i)anniversary`)},
	{"honeymoon", regexp.MustCompile(`(?i)honeymoon`)},
	{"birthday", regexp.MustCompile(`(?i)birthday`)},
	{"parking", regexp.MustCompile(`(?i)\bparking\b|park (?:the|our|my) car`)},
	{"pet-friendly room", regexp.MustCompile(`(?i)pet[- ]?friendly|\bpets?\b|\bdog\b|\bcats?\b`)},
	{"quiet room", regexp.MustCompile(`(?i)quiet (?:room|floor)`)},
	{"high floor", regexp.MustCompile(`(?i)high(?:er)? floor|top floor`)},
}

func findSpecialRequests(text string) []string {
	var labels []string
	for _, rule := range specialRequestRules {
		if rule.re.MatchString(text) {
			labels = append(labels, rule.label)
		}
	}
	return labels
}
