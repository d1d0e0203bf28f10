package airline

import (
	"regexp"
	"strings"
	"time"

	"github.com/markusmobius/go-dateparser"
)

// DateLayout is the wire format of every calendar date in the domain.
const DateLayout = "2006-01-02"

// Date is a calendar date formatted with DateLayout.
type Date string

// Clock returns the moment relative dates are resolved against.
type Clock func() time.Time

var (
	relativeWeekday = regexp.MustCompile(`(?i)^(next|this|coming)\s+([a-z]+)\.?$`)
	letters         = regexp.MustCompile(`\pL`)
	numericDate     = regexp.MustCompile(`\d{1,4}\s*[-/.]\s*\d{1,2}`)
)

var weekdays = map[string]time.Weekday{
	"sunday": time.Sunday, "sun": time.Sunday,
	"monday": time.Monday, "mon": time.Monday,
	"tuesday": time.Tuesday, "tue": time.Tuesday, "tues": time.Tuesday,
	"wednesday": time.Wednesday, "wed": time.Wednesday,
	"thursday": time.Thursday, "thu": time.Thursday, "thur": time.Thursday, "thurs": time.Thursday,
	"friday": time.Friday, "fri": time.Friday,
	"saturday": time.Saturday, "sat": time.Saturday,
}

// DateParser resolves free text ("next friday", "Dec 3", "2026-11-20") to a calendar date,
// preferring dates at or after the current moment when the text is ambiguous.
type DateParser struct {
	now       Clock
	languages []string
}

func NewDateParser(now Clock) *DateParser {
	if now == nil {
		now = time.Now
	}
	return &DateParser{now: now, languages: []string{"en"}}
}

// Parse returns the resolved date, or false when the text can't be understood.
//
// "next <weekday>" is that day in the week after the current one (weeks start on Monday);
// "this <weekday>" and "coming <weekday>" are its next occurrence, today included.
// Bare numbers are rejected: a date needs a word or a separated day, month and year.
func (p *DateParser) Parse(text string) (Date, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", false
	}
	now := p.now()

	if m := relativeWeekday.FindStringSubmatch(text); m != nil {
		day, ok := weekdays[strings.ToLower(m[2])]
		if !ok {
			return "", false
		}
		return Date(resolveWeekday(now, strings.ToLower(m[1]), day).Format(DateLayout)), true
	}

	if !letters.MatchString(text) && !numericDate.MatchString(text) {
		return "", false
	}

	cfg := &dateparser.Configuration{
		Languages:           p.languages,
		CurrentTime:         now,
		PreferredDateSource: dateparser.Future,
	}
	dt, err := dateparser.Parse(cfg, text)
	if err != nil || dt.Time.IsZero() {
		return "", false
	}
	return Date(dt.Time.Format(DateLayout)), true
}

func resolveWeekday(now time.Time, qualifier string, day time.Weekday) time.Time {
	if qualifier == "next" {
		// days since Monday, Sunday counting as the last day of the week
		offset := (int(now.Weekday()) + 6) % 7
		nextMonday := now.AddDate(0, 0, 7-offset)
		return nextMonday.AddDate(0, 0, (int(day)+6)%7)
	}
	return now.AddDate(0, 0, (int(day)-int(now.Weekday())+7)%7)
}
