package extract

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

const isoDate = "2006-01-02"

type dateRole int

const (
	roleUnknown dateRole = iota
	roleCheckIn
	roleCheckOut
)

type dateMention struct {
	start int
	end   int
	date  time.Time
	role  dateRole
}

const monthNames = `January|February|March|April|May|June|July|August|September|October|November|December|Jan|Feb|Mar|Apr|Jun|Jul|Aug|Sept|Sep|Oct|Nov|Dec`

var (
	isoDateRe    = regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})\b`)
	monthFirstRe = regexp.MustCompile(`(?i)\b(` + monthNames + `)\.?\s+(\d{1,2})(?:st|nd|rd|th)?\b(?:,?\s*(\d{4})\b)?`)
	dayFirstRe   = regexp.MustCompile(`(?i)\b(\d{1,2})(?:st|nd|rd|th)?\s+(?:of\s+)?(` + monthNames + `)\b\.?(?:,?\s*(\d{4})\b)?`)
	slashedRe    = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})/(\d{4})\b`)
	yearFirstRe  = regexp.MustCompile(`\b(\d{4})/(\d{1,2})/(\d{1,2})\b`)

	roleTokenRe = regexp.MustCompile(`[a-z]+(?:-[a-z]+)*`)
)

var monthNum = map[string]time.Month{
	"january": time.January, "jan": time.January,
	"february": time.February, "feb": time.February,
	"march": time.March, "mar": time.March,
	"april": time.April, "apr": time.April,
	"may":  time.May,
	"june": time.June, "jun": time.June,
	"july": time.July, "jul": time.July,
	"august": time.August, "aug": time.August,
	"september": time.September, "sept": time.September, "sep": time.September,
	"october": time.October, "oct": time.October,
	"november": time.November, "nov": time.November,
	"december": time.December, "dec": time.December,
}

// scanDates finds every date mention in one utterance and tags each with the
// role its surrounding words suggest. Mentions come back in text order.
func scanDates(text string, ref time.Time) []dateMention {
	var found []dateMention
	found = append(found, scanISO(text)...)
	found = append(found, scanMonthFirst(text, ref)...)
	found = append(found, scanDayFirst(text, ref)...)
	found = append(found, scanSlashed(text)...)
	found = append(found, scanYearFirst(text)...)

	// Prefer the longest mention when spans overlap: "1 June 2025" must not
	// also yield a match for the embedded "June 2025".
	sort.Slice(found, func(i, j int) bool {
		if found[i].start != found[j].start {
			return found[i].start < found[j].start
		}
		return found[i].end > found[j].end
	})
	var mentions []dateMention
	lastEnd := 0
	for _, m := range found {
		if m.start < lastEnd {
			continue
		}
		// Role keywords are only read from the words between this mention
		// and the previous one, so "between June 1 and June 5" does not tag
		// both dates as check-in.
		m.role = roleFor(text[lastEnd:m.start])
		mentions = append(mentions, m)
		lastEnd = m.end
	}
	return mentions
}

func scanISO(text string) []dateMention {
	var out []dateMention
	for _, idx := range isoDateRe.FindAllStringSubmatchIndex(text, -1) {
		y := atoi(text[idx[2]:idx[3]])
		m := atoi(text[idx[4]:idx[5]])
		d := atoi(text[idx[6]:idx[7]])
		if t, ok := calendarDate(y, time.Month(m), d); ok {
			out = append(out, dateMention{start: idx[0], end: idx[1], date: t})
		}
	}
	return out
}

func scanMonthFirst(text string, ref time.Time) []dateMention {
	var out []dateMention
	for _, idx := range monthFirstRe.FindAllStringSubmatchIndex(text, -1) {
		month, ok := monthNum[strings.ToLower(text[idx[2]:idx[3]])]
		if !ok {
			continue
		}
		day := atoi(text[idx[4]:idx[5]])
		year := 0
		if idx[6] >= 0 {
			year = atoi(text[idx[6]:idx[7]])
		}
		if t, ok := resolveDate(year, month, day, ref); ok {
			out = append(out, dateMention{start: idx[0], end: idx[1], date: t})
		}
	}
	return out
}

func scanDayFirst(text string, ref time.Time) []dateMention {
	var out []dateMention
	for _, idx := range dayFirstRe.FindAllStringSubmatchIndex(text, -1) {
		day := atoi(text[idx[2]:idx[3]])
		month, ok := monthNum[strings.ToLower(text[idx[4]:idx[5]])]
		if !ok {
			continue
		}
		year := 0
		if idx[6] >= 0 {
			year = atoi(text[idx[6]:idx[7]])
		}
		if t, ok := resolveDate(year, month, day, ref); ok {
			out = append(out, dateMention{start: idx[0], end: idx[1], date: t})
		}
	}
	return out
}

// scanSlashed reads d/m/yyyy dates day-first; when the second segment cannot
// be a month it falls back to month-first, so 06/15/2026 still resolves.
func scanSlashed(text string) []dateMention {
	var out []dateMention
	for _, idx := range slashedRe.FindAllStringSubmatchIndex(text, -1) {
		a := atoi(text[idx[2]:idx[3]])
		b := atoi(text[idx[4]:idx[5]])
		year := atoi(text[idx[6]:idx[7]])
		day, month := a, b
		if b > 12 && a <= 12 {
			day, month = b, a
		}
		if t, ok := calendarDate(year, time.Month(month), day); ok {
			out = append(out, dateMention{start: idx[0], end: idx[1], date: t})
		}
	}
	return out
}

func scanYearFirst(text string) []dateMention {
	var out []dateMention
	for _, idx := range yearFirstRe.FindAllStringSubmatchIndex(text, -1) {
		y := atoi(text[idx[2]:idx[3]])
		m := atoi(text[idx[4]:idx[5]])
		d := atoi(text[idx[6]:idx[7]])
		if t, ok := calendarDate(y, time.Month(m), d); ok {
			out = append(out, dateMention{start: idx[0], end: idx[1], date: t})
		}
	}
	return out
}

// resolveDate fills in a missing year with the next occurrence of the
// month/day on or after the reference date, so "June 1" never means last
// year's June.
func resolveDate(year int, month time.Month, day int, ref time.Time) (time.Time, bool) {
	if year != 0 {
		return calendarDate(year, month, day)
	}
	t, ok := calendarDate(ref.Year(), month, day)
	if !ok {
		return time.Time{}, false
	}
	if t.Format(isoDate) < ref.Format(isoDate) {
		t, ok = calendarDate(ref.Year()+1, month, day)
	}
	return t, ok
}

// calendarDate builds a date and rejects values time.Date would normalize
// away, like February 30th.
func calendarDate(year int, month time.Month, day int) (time.Time, bool) {
	if month < time.January || month > time.December || day < 1 || day > 31 {
		return time.Time{}, false
	}
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	if t.Year() != year || t.Month() != month || t.Day() != day {
		return time.Time{}, false
	}
	return t, true
}

// roleFor inspects up to four words immediately before a date mention and
// returns the check-in/check-out role the nearest keyword implies. The bare
// preposition "to" only counts when it sits directly before the date, since
// "we'd like to stay June 1" must not read as a departure.
func roleFor(prefix string) dateRole {
	toks := roleTokenRe.FindAllString(strings.ToLower(prefix), -1)
	for k := 0; k < 4; k++ {
		i := len(toks) - 1 - k
		if i < 0 {
			break
		}
		if i > 0 {
			switch toks[i-1] + " " + toks[i] {
			case "check in", "checking in":
				return roleCheckIn
			case "check out", "checking out":
				return roleCheckOut
			}
		}
		switch toks[i] {
		case "check-in", "checkin", "arrive", "arrives", "arriving", "arrival", "from", "starting", "begins", "beginning", "between":
			return roleCheckIn
		case "check-out", "checkout", "leave", "leaving", "depart", "departing", "departure", "until", "till", "through", "ending":
			return roleCheckOut
		case "to":
			if k == 0 {
				return roleCheckOut
			}
		}
	}
	return roleUnknown
}

// pairDates assigns scanned mentions to the check-in/check-out slots.
// Keyword roles always win. Unassigned mentions fill slots in order,
// check-in before check-out; a turn naming two dates restates the whole
// stay and overrides values from earlier turns, while a lone ambiguous
// date only fills a slot that is still empty.
func pairDates(mentions []dateMention, haveIn, haveOut bool) (in, out string) {
	var loose []string
	for _, m := range mentions {
		iso := m.date.Format(isoDate)
		switch m.role {
		case roleCheckIn:
			in = iso
		case roleCheckOut:
			out = iso
		default:
			loose = append(loose, iso)
		}
	}
	restating := len(mentions) > 1
	for _, iso := range loose {
		switch {
		case in == "" && (restating || !haveIn):
			in = iso
		case out == "" && (restating || !haveOut):
			out = iso
		}
	}
	return in, out
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
