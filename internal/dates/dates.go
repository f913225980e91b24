// Package dates turns user-typed due dates into timestamps.
package dates

import (
	"fmt"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

// layouts are tried before natural-language parsing. Zone-less layouts are
// read in the location of the reference time.
var layouts = []string{
	time.RFC3339,
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

var parser = newParser()

func newParser() *when.Parser {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return w
}

// ParseDue reads an ISO date, an RFC 3339 timestamp or an English phrase
// such as "tomorrow" or "next friday 9am", relative to now.
func ParseDue(text string, now time.Time) (time.Time, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return time.Time{}, fmt.Errorf("due date is empty")
	}

	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, text, now.Location()); err == nil {
			return t, nil
		}
	}

	r, err := parser.Parse(text, now)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing due date %q: %w", text, err)
	}
	if r == nil {
		return time.Time{}, fmt.Errorf("could not understand due date %q", text)
	}
	return r.Time, nil
}

// Format renders a due date for display: the date alone at midnight,
// otherwise date and time. A nil due date renders as "".
func Format(due *time.Time) string {
	if due == nil {
		return ""
	}
	t := due.Local()
	if t.Hour() == 0 && t.Minute() == 0 {
		return t.Format("2006-01-02")
	}
	return t.Format("2006-01-02 15:04")
}

// Overdue reports whether due lies before now.
func Overdue(due *time.Time, now time.Time) bool {
	return due != nil && due.Before(now)
}
