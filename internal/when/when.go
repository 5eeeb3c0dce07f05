// Package when finds a reminder time inside free text. It understands
// English and Portuguese relative offsets, day words, clock times and
// calendar dates, and returns the text with the time expression removed.
package when

import (
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Result is a parsed reminder request.
type Result struct {
	At      time.Time
	Message string
}

// DefaultHour is used for day expressions without a clock time.
const DefaultHour = 9

var (
	relativeRe = regexp.MustCompile(`(?i)\b(?:in|within|em|daqui\s+a|dentro\s+de)\s+(\d+)\s*(seconds?|secs?|segundos?|minutes?|minutos?|mins?|hours?|horas?|hrs?|days?|dias?|weeks?|semanas?|[smhd])\b`)
	dayRe      = regexp.MustCompile(`(?i)(?:^|\s)(today|tomorrow|hoje|amanh[ãa])(?:\s|$|[,.!])`)
	clockRe    = regexp.MustCompile(`(?i)^\s*(?:(at|[àa]s)\s+)?(\d{1,2})(:\d{2}|h\d{0,2})?(?:\s*(am|pm))?\b`)
	atRe       = regexp.MustCompile(`(?i)(?:^|\s)(at|às)\s+(\d{1,2})(:\d{2}|h\d{0,2})?(?:\s*(am|pm))?\b`)
	isoRe      = regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})(?:[ T](\d{1,2}):(\d{2}))?\b`)
	dmyRe      = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})(?:/(\d{2,4}))?\b`)
	spacesRe   = regexp.MustCompile(`\s+`)
)

// leading connectors dropped from the remaining message, longest first.
var connectors = []string{
	"remind me to", "remind me that", "remind me about", "remind me",
	"me lembre de", "me lembra de", "me lembre que", "me lembra que", "me lembre", "me lembra",
	"lembrar de", "lembrar",
	"to", "that", "about", "de", "que", "para", "pra",
}

// span is a byte range of the input consumed by a time expression.
type span struct{ start, end int }

func (s span) overlaps(o span) bool { return s.start < o.end && o.start < s.end }

type finder func(text string, now time.Time) (time.Time, []span, bool)

var finders = []finder{findRelative, findDay, findISO, findDMY, findClock}

// Parse returns the first time expression found in text, anchored at now.
// A day or date may take its clock time from anywhere in the text, so
// "at 15:30 tomorrow" and "tomorrow call mom at 3pm" both resolve.
// The reported time may lie in the past for explicit dates.
func Parse(text string, now time.Time) (Result, bool) {
	for _, f := range finders {
		at, spans, ok := f(text, now)
		if !ok {
			continue
		}
		return Result{At: at, Message: cleanRest(cut(text, spans))}, true
	}
	return Result{}, false
}

// cut removes non-overlapping spans from text.
func cut(text string, spans []span) string {
	spans = slices.Clone(spans)
	slices.SortFunc(spans, func(a, b span) int { return a.start - b.start })
	var b strings.Builder
	prev := 0
	for _, s := range spans {
		b.WriteString(text[prev:s.start])
		b.WriteByte(' ')
		prev = s.end
	}
	b.WriteString(text[prev:])
	return b.String()
}

func findRelative(text string, now time.Time) (time.Time, []span, bool) {
	m := relativeRe.FindStringSubmatchIndex(text)
	if m == nil {
		return time.Time{}, nil, false
	}
	n, err := strconv.Atoi(text[m[2]:m[3]])
	if err != nil {
		return time.Time{}, nil, false
	}
	return now.Add(unitDuration(strings.ToLower(text[m[4]:m[5]]), n)), []span{{m[0], m[1]}}, true
}

func unitDuration(unit string, n int) time.Duration {
	d := time.Duration(n)
	switch {
	case strings.HasPrefix(unit, "sem"), strings.HasPrefix(unit, "w"):
		return d * 7 * 24 * time.Hour
	case strings.HasPrefix(unit, "s"):
		return d * time.Second
	case strings.HasPrefix(unit, "h"):
		return d * time.Hour
	case strings.HasPrefix(unit, "d"):
		return d * 24 * time.Hour
	}
	return d * time.Minute
}

// clockFor finds the clock time belonging to the day or date at date: one
// written right after it, else an "at"/"às" clock anywhere else in text.
// The returned spans cover the date and its clock.
func clockFor(text string, date span) (hour, minute int, spans []span, ok bool) {
	if h, min, n, ok := parseClock(text[date.end:], false); ok {
		return h, min, []span{{date.start, date.end + n}}, true
	}
	for _, m := range atRe.FindAllStringSubmatchIndex(text, -1) {
		where := span{m[2], m[1]}
		if where.overlaps(date) {
			continue
		}
		if h, min, _, ok := parseClock(text[where.start:where.end], true); ok {
			return h, min, []span{date, where}, true
		}
	}
	return DefaultHour, 0, []span{date}, false
}

func findDay(text string, now time.Time) (time.Time, []span, bool) {
	m := dayRe.FindStringSubmatchIndex(text)
	if m == nil {
		return time.Time{}, nil, false
	}
	word := strings.ToLower(text[m[2]:m[3]])
	today := word == "today" || word == "hoje"

	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if !today {
		day = day.AddDate(0, 0, 1)
	}

	h, min, spans, ok := clockFor(text, span{m[2], m[3]})
	if !ok && today {
		return time.Time{}, nil, false
	}
	at := time.Date(day.Year(), day.Month(), day.Day(), h, min, 0, 0, now.Location())
	return at, spans, true
}

func findISO(text string, now time.Time) (time.Time, []span, bool) {
	m := isoRe.FindStringSubmatchIndex(text)
	if m == nil {
		return time.Time{}, nil, false
	}
	y, mo, d := atoi(text, m, 1), atoi(text, m, 2), atoi(text, m, 3)
	var (
		h, min int
		spans  []span
	)
	if m[8] >= 0 {
		h, min = atoi(text, m, 4), atoi(text, m, 5)
		spans = []span{{m[0], m[1]}}
	} else {
		h, min, spans, _ = clockFor(text, span{m[0], m[1]})
	}
	if !validDate(y, mo, d) || h > 23 || min > 59 {
		return time.Time{}, nil, false
	}
	return time.Date(y, time.Month(mo), d, h, min, 0, 0, now.Location()), spans, true
}

func findDMY(text string, now time.Time) (time.Time, []span, bool) {
	m := dmyRe.FindStringSubmatchIndex(text)
	if m == nil {
		return time.Time{}, nil, false
	}
	d, mo := atoi(text, m, 1), atoi(text, m, 2)
	y := now.Year()
	explicitYear := m[6] >= 0
	if explicitYear {
		y = atoi(text, m, 3)
		if y < 100 {
			y += 2000
		}
	}
	if !validDate(y, mo, d) {
		return time.Time{}, nil, false
	}

	h, min, spans, _ := clockFor(text, span{m[0], m[1]})
	at := time.Date(y, time.Month(mo), d, h, min, 0, 0, now.Location())
	if !explicitYear && at.Before(now) {
		at = at.AddDate(1, 0, 0)
	}
	return at, spans, true
}

func findClock(text string, now time.Time) (time.Time, []span, bool) {
	m := atRe.FindStringSubmatchIndex(text)
	if m == nil {
		return time.Time{}, nil, false
	}
	h, min, _, ok := parseClock(text[m[2]:m[1]], true)
	if !ok {
		return time.Time{}, nil, false
	}
	at := time.Date(now.Year(), now.Month(), now.Day(), h, min, 0, 0, now.Location())
	if !at.After(now) {
		at = at.AddDate(0, 0, 1)
	}
	return at, []span{{m[2], m[1]}}, true
}

// parseClock reads a clock time at the start of s. A bare number counts only
// after "at"/"às" or when keyword is set by the caller.
func parseClock(s string, keyword bool) (hour, minute, length int, ok bool) {
	m := clockRe.FindStringSubmatchIndex(s)
	if m == nil {
		return 0, 0, 0, false
	}
	hasKeyword := keyword || m[2] >= 0
	suffix := ""
	if m[6] >= 0 {
		suffix = strings.ToLower(s[m[6]:m[7]])
	}
	ampm := ""
	if m[8] >= 0 {
		ampm = strings.ToLower(s[m[8]:m[9]])
	}
	if !hasKeyword && suffix == "" && ampm == "" {
		return 0, 0, 0, false
	}

	hour = atoi(s, m, 2)
	switch {
	case strings.HasPrefix(suffix, ":"):
		minute, _ = strconv.Atoi(suffix[1:])
	case len(suffix) > 1:
		minute, _ = strconv.Atoi(suffix[1:])
	}
	switch ampm {
	case "pm":
		if hour != 12 {
			hour += 12
		}
	case "am":
		if hour == 12 {
			hour = 0
		}
	}
	if hour > 23 || minute > 59 {
		return 0, 0, 0, false
	}
	return hour, minute, m[1], true
}

// atoi reads submatch group g of m. Group numbers follow the regexp.
func atoi(s string, m []int, g int) int {
	n, _ := strconv.Atoi(s[m[2*g]:m[2*g+1]])
	return n
}

func validDate(y, mo, d int) bool {
	if mo < 1 || mo > 12 || d < 1 {
		return false
	}
	t := time.Date(y, time.Month(mo), d, 0, 0, 0, 0, time.UTC)
	return t.Day() == d
}

func cleanRest(s string) string {
	s = strings.TrimSpace(spacesRe.ReplaceAllString(s, " "))
	s = strings.Trim(s, " ,.:;-")
	for changed := true; changed; {
		changed = false
		lower := strings.ToLower(s)
		for _, c := range connectors {
			if lower == c {
				return ""
			}
			if strings.HasPrefix(lower, c+" ") {
				s = strings.TrimSpace(s[len(c):])
				s = strings.TrimLeft(s, " ,.:;-")
				changed = true
				break
			}
		}
	}
	return s
}
