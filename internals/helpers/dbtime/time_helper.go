// file: internals/helpers/dbtime/time_helper.go
package dbtime

import (
	"strings"
	"time"
)

const DateLayout = "2006-01-02"

// Clock dipakai service & sweeper supaya test bisa maju-mundurkan waktu.
type Clock func() time.Time

func SystemClock() time.Time { return time.Now() }

// DayOf mengambil tanggal kalender t di zona loc, disimpan sebagai 00:00 UTC.
// Identitas record (student, class, date) selalu pakai nilai ini.
func DayOf(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDay parses "YYYY-MM-DD" into the same 00:00 UTC form as DayOf.
func ParseDay(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// ParseDayPtr: "" → nil.
func ParseDayPtr(s string) (*time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	t, err := ParseDay(s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// ResolveRange isi default from/to: trailing window `days` hari kalender
// (inklusif, termasuk hari ini). from > to ditukar.
func ResolveRange(from, to *time.Time, today time.Time, days int) (time.Time, time.Time) {
	if days < 1 {
		days = 1
	}
	end := today
	if to != nil {
		end = DayOf(*to, time.UTC)
	}
	start := today.AddDate(0, 0, -(days - 1))
	if from != nil {
		start = DayOf(*from, time.UTC)
	}
	if start.After(end) {
		start, end = end, start
	}
	return start, end
}
