// Package format provides human-readable formatting utilities.
package format

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/width"
)

var printer = message.NewPrinter(language.English)

// Number formats a number with thousand separators.
// Example: Number(1234567) => "1,234,567"
func Number(n int64) string {
	return printer.Sprintf("%d", n)
}

// Clock formats an epoch-millisecond instant as local HH:MM.
func Clock(ms int64) string {
	return time.UnixMilli(ms).In(time.Local).Format("15:04")
}

// Span formats a millisecond duration compactly.
// Example: Span(5_400_000) => "1h30m"
func Span(ms int64) string {
	if ms <= 0 {
		return "0m"
	}
	d := time.Duration(ms) * time.Millisecond
	h := int(d / time.Hour)
	m := int((d % time.Hour) / time.Minute)
	switch {
	case h == 0:
		return fmt.Sprintf("%dm", m)
	case m == 0:
		return fmt.Sprintf("%dh", h)
	default:
		return fmt.Sprintf("%dh%02dm", h, m)
	}
}

// RelativeTime formats t relative to now.
// Example: RelativeTime(now.Add(-5*time.Minute), now) => "5 minutes ago"
func RelativeTime(t, now time.Time) string {
	diff := now.Sub(t)
	if diff < 0 {
		return "in " + units(-diff)
	}
	if diff < time.Minute {
		return "just now"
	}
	return units(diff) + " ago"
}

func units(d time.Duration) string {
	var n int
	var unit string
	switch {
	case d < time.Minute:
		return "a moment"
	case d < time.Hour:
		n, unit = int(d.Minutes()), "minute"
	case d < 24*time.Hour:
		n, unit = int(d.Hours()), "hour"
	default:
		n, unit = int(d.Hours()/24), "day"
	}
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

// DisplayWidth returns the number of terminal cells s occupies. East Asian
// wide and fullwidth runes take two cells.
func DisplayWidth(s string) int {
	w := 0
	for _, r := range s {
		w += runeWidth(r)
	}
	return w
}

// Truncate shortens s to at most cells terminal cells, ending with "…" when
// anything was cut.
func Truncate(s string, cells int) string {
	if cells <= 0 {
		return ""
	}
	if DisplayWidth(s) <= cells {
		return s
	}

	var b strings.Builder
	used := 0
	for _, r := range s {
		w := runeWidth(r)
		if used+w > cells-1 {
			break
		}
		b.WriteRune(r)
		used += w
	}
	b.WriteString("…")
	return b.String()
}

// Pad right-pads s with spaces to cells terminal cells.
func Pad(s string, cells int) string {
	if n := cells - DisplayWidth(s); n > 0 {
		return s + strings.Repeat(" ", n)
	}
	return s
}

func runeWidth(r rune) int {
	switch width.LookupRune(r).Kind() {
	case width.EastAsianWide, width.EastAsianFullwidth:
		return 2
	default:
		return 1
	}
}
