package model

import (
	"errors"
	"testing"
	"time"
)

func TestParseAttendanceStatus(t *testing.T) {
	cases := map[string]AttendanceStatus{
		"present":    AttendancePresent,
		"Left":       AttendanceLeft,
		" RETURNED ": AttendanceReturned,
		"absent":     AttendanceAbsent,
	}
	for in, want := range cases {
		got, err := ParseAttendanceStatus(in)
		if err != nil || got != want {
			t.Fatalf("ParseAttendanceStatus(%q) = %q, %v", in, got, err)
		}
	}

	for _, bad := range []string{"", "late", "excused", "presentt"} {
		if _, err := ParseAttendanceStatus(bad); !errors.Is(err, ErrInvalidStatus) {
			t.Fatalf("ParseAttendanceStatus(%q) err = %v, want ErrInvalidStatus", bad, err)
		}
	}
}

func TestCloneDoesNotShareTimestamps(t *testing.T) {
	left := time.Date(2026, 10, 15, 14, 5, 0, 0, time.UTC)
	note := "izin ke UKS"
	rec := &AttendanceRecordModel{
		AttendanceRecordStatus: AttendanceLeft,
		AttendanceRecordLeftAt: &left,
		AttendanceRecordNotes:  &note,
	}

	cp := rec.Clone()
	*cp.AttendanceRecordLeftAt = left.Add(time.Hour)
	*cp.AttendanceRecordNotes = "changed"

	if !rec.AttendanceRecordLeftAt.Equal(left) {
		t.Fatalf("original leftAt mutated through clone")
	}
	if *rec.AttendanceRecordNotes != "izin ke UKS" {
		t.Fatalf("original notes mutated through clone")
	}
}
