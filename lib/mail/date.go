// Package mail handles message dates as news software writes them.
package mail

import (
	"fmt"
	nmail "net/mail"
	"strings"
	"time"
)

var fallbacks = [...]string{
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 MST",
	"2 Jan 2006 15:04:05 MST",
	"Mon, 2 Jan 06 15:04:05 -0700",
	"2 Jan 06 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04 -0700",
	"Monday, 02-Jan-06 15:04:05 MST",
	"Mon Jan _2 15:04:05 2006",
	"2006-01-02 15:04:05",
	// zoneless, seen in the wild
	"02 Jan 2006 15:04:05",
}

// ParseDate parses Date header value. Stdlib parser is tried first, then
// layouts seen in old or broken posting software.
func ParseDate(date string) (t time.Time, ok bool) {
	date = strings.TrimSpace(date)
	if date == "" {
		return
	}
	if t, err := nmail.ParseDate(date); err == nil {
		return t, true
	}
	// trailing comment like "(UTC)"
	if i := strings.IndexByte(date, '('); i > 0 {
		date = strings.TrimSpace(date[:i])
	}
	for _, l := range fallbacks {
		if t, err := time.Parse(l, date); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// FormatDate gives Date header value in UTC.
func FormatDate(t time.Time) string {
	t = t.UTC()
	W := t.Weekday()
	Y, M, D := t.Date()
	h, m, s := t.Clock()
	// some servers insist on weekday and two-digit day
	return fmt.Sprintf(
		"%s, %02d %s %04d %02d:%02d:%02d +0000",
		W.String()[:3], D, M.String()[:3], Y, h, m, s)
}
