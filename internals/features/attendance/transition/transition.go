// Package transition holds the attendance state machine.
//
// Decide is pure: it never touches the store and never mutates its input.
// Any status may follow any status (teachers correct mistakes by re-marking).
// Timestamps accumulate within a day: entering a status stamps its field,
// the other fields keep whatever they had.
package transition

import (
	"fmt"
	"time"

	"attendance_backend/internals/features/attendance/model"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Command is one requested transition for (student, class, day).
type Command struct {
	StudentID uuid.UUID
	ClassID   uuid.UUID
	Date      time.Time // calendar day, 00:00 UTC
	Status    model.AttendanceStatus
	Actor     string
	Notes     *string
}

// Decide returns the record to persist for cmd applied on current
// (nil when this is the first mark of the day).
func Decide(current *model.AttendanceRecordModel, cmd Command, now time.Time) (*model.AttendanceRecordModel, error) {
	if !cmd.Status.Valid() {
		return nil, fmt.Errorf("%w: %q", model.ErrInvalidStatus, cmd.Status)
	}

	var next *model.AttendanceRecordModel
	if current == nil {
		next = &model.AttendanceRecordModel{
			AttendanceRecordStudentID: cmd.StudentID,
			AttendanceRecordClassID:   cmd.ClassID,
			AttendanceRecordDate:      datatypes.Date(cmd.Date),
			AttendanceRecordCreatedAt: now,
		}
	} else {
		next = current.Clone()
		ts := now
		next.AttendanceRecordUpdatedAt = &ts
	}

	next.AttendanceRecordStatus = cmd.Status
	next.AttendanceRecordMarkedBy = cmd.Actor
	if cmd.Notes != nil {
		n := *cmd.Notes
		next.AttendanceRecordNotes = &n
	}
	stamp(next, cmd.Status, now)
	return next, nil
}

// stamp sets the timestamp owned by status; Present owns none.
func stamp(rec *model.AttendanceRecordModel, status model.AttendanceStatus, now time.Time) {
	ts := now
	switch status {
	case model.AttendanceLeft:
		rec.AttendanceRecordLeftAt = &ts
	case model.AttendanceReturned:
		rec.AttendanceRecordReturnedAt = &ts
	case model.AttendanceAbsent:
		rec.AttendanceRecordMarkedAbsentAt = &ts
	}
}
