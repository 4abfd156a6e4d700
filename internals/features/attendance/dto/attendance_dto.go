// internals/features/attendance/dto/attendance_dto.go
package dto

import (
	"strings"
	"time"

	"attendance_backend/internals/features/attendance/model"
	"attendance_backend/internals/features/attendance/report"
	"attendance_backend/internals/features/attendance/sweeper"
	"attendance_backend/internals/helpers/dbtime"

	"github.com/google/uuid"
)

/* =========================================================
   REQUEST
========================================================= */

type MarkAttendanceRequest struct {
	StudentID uuid.UUID `json:"student_id" validate:"required"`
	ClassID   uuid.UUID `json:"class_id"   validate:"required"`
	Status    string    `json:"status"     validate:"required"`
	Notes     *string   `json:"notes,omitempty" validate:"omitempty,max=500"`
}

func (r *MarkAttendanceRequest) Normalize() {
	r.Status = strings.ToLower(strings.TrimSpace(r.Status))
	if r.Notes != nil {
		s := strings.TrimSpace(*r.Notes)
		if s == "" {
			r.Notes = nil
		} else {
			r.Notes = &s
		}
	}
}

// RangeQuery: ?from=YYYY-MM-DD&to=YYYY-MM-DD, keduanya opsional.
type RangeQuery struct {
	From *time.Time
	To   *time.Time
}

func ParseRange(from, to string) (RangeQuery, error) {
	f, err := dbtime.ParseDayPtr(from)
	if err != nil {
		return RangeQuery{}, err
	}
	t, err := dbtime.ParseDayPtr(to)
	if err != nil {
		return RangeQuery{}, err
	}
	return RangeQuery{From: f, To: t}, nil
}

/* =========================================================
   RESPONSE
========================================================= */

type AttendanceRecordResponse struct {
	AttendanceRecordID        uuid.UUID              `json:"attendance_record_id"`
	AttendanceRecordStudentID uuid.UUID              `json:"attendance_record_student_id"`
	AttendanceRecordClassID   uuid.UUID              `json:"attendance_record_class_id"`
	AttendanceRecordDate      string                 `json:"attendance_record_date"`
	AttendanceRecordStatus    model.AttendanceStatus `json:"attendance_record_status"`

	AttendanceRecordLeftAt         *time.Time `json:"attendance_record_left_at,omitempty"`
	AttendanceRecordReturnedAt     *time.Time `json:"attendance_record_returned_at,omitempty"`
	AttendanceRecordMarkedAbsentAt *time.Time `json:"attendance_record_marked_absent_at,omitempty"`

	AttendanceRecordMarkedBy  string     `json:"attendance_record_marked_by"`
	AttendanceRecordNotes     *string    `json:"attendance_record_notes,omitempty"`
	AttendanceRecordCreatedAt time.Time  `json:"attendance_record_created_at"`
	AttendanceRecordUpdatedAt *time.Time `json:"attendance_record_updated_at,omitempty"`

	// tampilan
	StudentName string `json:"student_name,omitempty"`
	StatusText  string `json:"status_text"`
	StatusClass string `json:"status_class"`
}

func FromModel(m *model.AttendanceRecordModel, studentName string, loc *time.Location) AttendanceRecordResponse {
	return AttendanceRecordResponse{
		AttendanceRecordID:             m.AttendanceRecordID,
		AttendanceRecordStudentID:      m.AttendanceRecordStudentID,
		AttendanceRecordClassID:        m.AttendanceRecordClassID,
		AttendanceRecordDate:           m.Day().Format(dbtime.DateLayout),
		AttendanceRecordStatus:         m.AttendanceRecordStatus,
		AttendanceRecordLeftAt:         m.AttendanceRecordLeftAt,
		AttendanceRecordReturnedAt:     m.AttendanceRecordReturnedAt,
		AttendanceRecordMarkedAbsentAt: m.AttendanceRecordMarkedAbsentAt,
		AttendanceRecordMarkedBy:       m.AttendanceRecordMarkedBy,
		AttendanceRecordNotes:          m.AttendanceRecordNotes,
		AttendanceRecordCreatedAt:      m.AttendanceRecordCreatedAt,
		AttendanceRecordUpdatedAt:      m.AttendanceRecordUpdatedAt,
		StudentName:                    studentName,
		StatusText:                     report.StatusText(m, loc),
		StatusClass:                    report.StatusClass(m.AttendanceRecordStatus),
	}
}

func FromModels(rows []model.AttendanceRecordModel, names map[uuid.UUID]string, loc *time.Location) []AttendanceRecordResponse {
	out := make([]AttendanceRecordResponse, 0, len(rows))
	for i := range rows {
		out = append(out, FromModel(&rows[i], names[rows[i].AttendanceRecordStudentID], loc))
	}
	return out
}

type ClassReportResponse struct {
	ClassID uuid.UUID                  `json:"class_id"`
	From    string                     `json:"from"`
	To      string                     `json:"to"`
	Stats   map[string]int             `json:"stats"`
	Records []AttendanceRecordResponse `json:"records"`
}

type StatsResponse struct {
	ClassID uuid.UUID      `json:"class_id"`
	From    string         `json:"from"`
	To      string         `json:"to"`
	Stats   map[string]int `json:"stats"`
}

type HistoryResponse struct {
	StudentID uuid.UUID                  `json:"student_id"`
	From      string                     `json:"from"`
	To        string                     `json:"to"`
	Records   []AttendanceRecordResponse `json:"records"`
}

type SweepFailure struct {
	RecordID  uuid.UUID `json:"record_id"`
	StudentID uuid.UUID `json:"student_id"`
	ClassID   uuid.UUID `json:"class_id"`
	Error     string    `json:"error"`
}

type SweepResponse struct {
	Skipped    bool           `json:"skipped"`
	StartedAt  *time.Time     `json:"started_at,omitempty"`
	Threshold  *time.Time     `json:"threshold,omitempty"`
	Candidates int            `json:"candidates"`
	Succeeded  int            `json:"succeeded"`
	Stale      int            `json:"stale"`
	Failed     int            `json:"failed"`
	Failures   []SweepFailure `json:"failures,omitempty"`
}

func FromSweepResult(r sweeper.Result) SweepResponse {
	out := SweepResponse{
		Skipped:    r.Skipped,
		Candidates: r.Candidates,
		Succeeded:  r.Succeeded,
		Stale:      r.Stale,
		Failed:     r.Failed(),
	}
	if !r.Skipped {
		started, threshold := r.StartedAt, r.Threshold
		out.StartedAt, out.Threshold = &started, &threshold
	}
	for _, f := range r.Failures {
		out.Failures = append(out.Failures, SweepFailure{
			RecordID:  f.RecordID,
			StudentID: f.StudentID,
			ClassID:   f.ClassID,
			Error:     f.Err.Error(),
		})
	}
	return out
}
