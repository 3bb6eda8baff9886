// Package broadcastday implements the broadcast-day calendar used by Japanese
// terrestrial listings, where a schedule day runs from 05:00 local time until
// 05:00 the next morning. A program airing at 02:00 belongs to the previous
// day's lineup.
//
// All calculations use the process's local wall clock (time.Local), including
// its DST rules.
package broadcastday

import (
	"fmt"
	"strconv"
	"time"
)

// Offset is the distance between local midnight and the start of a broadcast day.
const Offset = 5 * time.Hour

// dateLayout is the textual form of a Key.
const dateLayout = "2006-01-02"

// Key identifies a broadcast day. Its value is the epoch-millisecond instant of
// local midnight on the schedule date. Where a DST change skips midnight, it is
// the first instant of that date instead.
type Key int64

// scheduleDate returns the calendar date t belongs to once shifted back by Offset.
func scheduleDate(t time.Time) (int, time.Month, int) {
	return t.Add(-Offset).In(time.Local).Date()
}

// startOfDate returns the first local instant on the given date. time.Date
// resolves a skipped midnight into the previous date in some zones; the end
// of that zone period is then the first instant of the requested date.
func startOfDate(y int, m time.Month, d int) time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.Local)
	if ty, tm, td := t.Date(); ty == y && tm == m && td == d {
		return t
	}
	if _, end := t.ZoneBounds(); !end.IsZero() {
		return end.In(time.Local)
	}
	return t
}

// Threshold returns 05:00 local of the current broadcast day relative to now.
// Before 05:00 that is 05:00 of the previous calendar date. Programs starting
// before the threshold are stale.
func Threshold(now time.Time) time.Time {
	y, m, d := scheduleDate(now)
	return time.Date(y, m, d, int(Offset/time.Hour), 0, 0, 0, time.Local)
}

// KeyOf returns the broadcast day a program starting at t belongs to.
func KeyOf(t time.Time) Key {
	y, m, d := scheduleDate(t)
	return Key(startOfDate(y, m, d).UnixMilli())
}

// KeyOfMillis is KeyOf for an epoch-millisecond timestamp.
func KeyOfMillis(ms int64) Key {
	return KeyOf(time.UnixMilli(ms))
}

// Today returns the key of the broadcast day containing now.
func Today(now time.Time) Key {
	return KeyOf(now)
}

// ParseKey parses a key given either as epoch milliseconds or as a local
// YYYY-MM-DD date.
func ParseKey(s string) (Key, error) {
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		k := Key(ms)
		y, m, d := k.date()
		if !startOfDate(y, m, d).Equal(k.Time()) {
			return 0, fmt.Errorf("%d is not local midnight", ms)
		}
		return k, nil
	}

	// Parsed as a bare date; the local instant is resolved by startOfDate.
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return 0, fmt.Errorf("invalid broadcast day %q: %w", s, err)
	}
	y, m, d := t.Date()
	return Key(startOfDate(y, m, d).UnixMilli()), nil
}

// Time returns the key's instant in local time.
func (k Key) Time() time.Time {
	return time.UnixMilli(int64(k)).In(time.Local)
}

// date returns the key's schedule date.
func (k Key) date() (int, time.Month, int) {
	return k.Time().Date()
}

// Millis returns the key as epoch milliseconds.
func (k Key) Millis() int64 {
	return int64(k)
}

// Start returns the nominal first instant of the broadcast day, 05:00 local on
// the key's calendar date.
func (k Key) Start() time.Time {
	y, m, d := k.date()
	return time.Date(y, m, d, int(Offset/time.Hour), 0, 0, 0, time.Local)
}

// End returns the start of the following broadcast day.
func (k Key) End() time.Time {
	return k.Next().Start()
}

// Next returns the key of the following broadcast day.
func (k Key) Next() Key {
	y, m, d := k.date()
	next := time.Date(y, m, d+1, 12, 0, 0, 0, time.UTC)
	return Key(startOfDate(next.Date()).UnixMilli())
}

// String formats the key as its local YYYY-MM-DD date.
func (k Key) String() string {
	return k.Time().Format(dateLayout)
}
