// internals/features/attendance/model/attendance_record_model.go
package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type AttendanceStatus string

const (
	AttendancePresent  AttendanceStatus = "present"
	AttendanceLeft     AttendanceStatus = "left"
	AttendanceReturned AttendanceStatus = "returned"
	AttendanceAbsent   AttendanceStatus = "absent"
)

// SystemActor dipakai sweeper sebagai markedBy.
const SystemActor = "system"

// AllStatuses in display order; stats & reports iterate this.
var AllStatuses = []AttendanceStatus{
	AttendancePresent,
	AttendanceLeft,
	AttendanceReturned,
	AttendanceAbsent,
}

func (s AttendanceStatus) Valid() bool {
	switch s {
	case AttendancePresent, AttendanceLeft, AttendanceReturned, AttendanceAbsent:
		return true
	}
	return false
}

// DisplayName: "Present", "Left", ... (kunci di stats & kolom export)
func (s AttendanceStatus) DisplayName() string {
	switch s {
	case AttendancePresent:
		return "Present"
	case AttendanceLeft:
		return "Left"
	case AttendanceReturned:
		return "Returned"
	case AttendanceAbsent:
		return "Absent"
	}
	return "Unknown"
}

// ParseAttendanceStatus menerima "present" / "Present" / " LEFT ".
func ParseAttendanceStatus(s string) (AttendanceStatus, error) {
	st := AttendanceStatus(strings.ToLower(strings.TrimSpace(s)))
	if !st.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
	}
	return st, nil
}

type AttendanceRecordModel struct {
	AttendanceRecordID uuid.UUID `gorm:"type:uuid;primaryKey;column:attendance_record_id" json:"attendance_record_id"`

	// Identity: satu baris per (student, class, date)
	AttendanceRecordStudentID uuid.UUID      `gorm:"type:uuid;not null;column:attendance_record_student_id;uniqueIndex:uq_attendance_student_class_date,priority:1;index:idx_attendance_student_date,priority:1" json:"attendance_record_student_id"`
	AttendanceRecordClassID   uuid.UUID      `gorm:"type:uuid;not null;column:attendance_record_class_id;uniqueIndex:uq_attendance_student_class_date,priority:2;index:idx_attendance_class_date,priority:1" json:"attendance_record_class_id"`
	AttendanceRecordDate      datatypes.Date `gorm:"type:date;not null;column:attendance_record_date;uniqueIndex:uq_attendance_student_class_date,priority:3;index:idx_attendance_student_date,priority:2;index:idx_attendance_class_date,priority:2" json:"attendance_record_date"`

	AttendanceRecordStatus AttendanceStatus `gorm:"type:varchar(16);not null;column:attendance_record_status;index:idx_attendance_status_left_at,priority:1" json:"attendance_record_status"`

	// Audit trail transisi (append-only dalam satu hari)
	AttendanceRecordLeftAt         *time.Time `gorm:"column:attendance_record_left_at;index:idx_attendance_status_left_at,priority:2" json:"attendance_record_left_at,omitempty"`
	AttendanceRecordReturnedAt     *time.Time `gorm:"column:attendance_record_returned_at" json:"attendance_record_returned_at,omitempty"`
	AttendanceRecordMarkedAbsentAt *time.Time `gorm:"column:attendance_record_marked_absent_at" json:"attendance_record_marked_absent_at,omitempty"`

	AttendanceRecordMarkedBy string  `gorm:"type:varchar(64);not null;column:attendance_record_marked_by" json:"attendance_record_marked_by"`
	AttendanceRecordNotes    *string `gorm:"type:varchar(500);column:attendance_record_notes" json:"attendance_record_notes,omitempty"`

	AttendanceRecordCreatedAt time.Time  `gorm:"not null;column:attendance_record_created_at" json:"attendance_record_created_at"`
	AttendanceRecordUpdatedAt *time.Time `gorm:"column:attendance_record_updated_at" json:"attendance_record_updated_at,omitempty"`
}

func (AttendanceRecordModel) TableName() string {
	return "attendance_records"
}

func (m *AttendanceRecordModel) BeforeCreate(tx *gorm.DB) error {
	if m.AttendanceRecordID == uuid.Nil {
		m.AttendanceRecordID = uuid.New()
	}
	return nil
}

// Day returns the record's calendar day (00:00 UTC).
func (m *AttendanceRecordModel) Day() time.Time {
	return time.Time(m.AttendanceRecordDate).UTC()
}

// Clone deep-copies the record so callers never share pointer fields.
func (m *AttendanceRecordModel) Clone() *AttendanceRecordModel {
	if m == nil {
		return nil
	}
	out := *m
	out.AttendanceRecordLeftAt = cloneTime(m.AttendanceRecordLeftAt)
	out.AttendanceRecordReturnedAt = cloneTime(m.AttendanceRecordReturnedAt)
	out.AttendanceRecordMarkedAbsentAt = cloneTime(m.AttendanceRecordMarkedAbsentAt)
	out.AttendanceRecordUpdatedAt = cloneTime(m.AttendanceRecordUpdatedAt)
	if m.AttendanceRecordNotes != nil {
		n := *m.AttendanceRecordNotes
		out.AttendanceRecordNotes = &n
	}
	return &out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
