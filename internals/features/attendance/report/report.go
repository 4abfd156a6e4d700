// Package report turns loaded attendance records into counts, display text
// and export rows. No store access happens here.
package report

import (
	"encoding/csv"
	"io"
	"strings"
	"time"
	"unicode"

	"attendance_backend/internals/features/attendance/model"
	helper "attendance_backend/internals/helpers"

	"github.com/google/uuid"
)

const (
	exportDateLayout  = "2006-01-02"
	exportStampLayout = "2006-01-02 15:04:05"
	clockLayout       = "15:04"
)

// ExportHeader is the fixed column order of the export surface.
var ExportHeader = []string{"Student Name", "Date", "Status", "Left At", "Returned At", "Marked Absent At"}

// CountByStatus counts records per status display name; all four keys are always present.
func CountByStatus(records []model.AttendanceRecordModel) map[string]int {
	out := make(map[string]int, len(model.AllStatuses))
	for _, s := range model.AllStatuses {
		out[s.DisplayName()] = 0
	}
	for i := range records {
		st := records[i].AttendanceRecordStatus
		if st.Valid() {
			out[st.DisplayName()]++
		}
	}
	return out
}

// StatusText: "Present", "Left at 14:05", "Returned at 14:20", "Absent (marked at 14:10)".
func StatusText(rec *model.AttendanceRecordModel, loc *time.Location) string {
	switch rec.AttendanceRecordStatus {
	case model.AttendancePresent:
		return "Present"
	case model.AttendanceLeft:
		if rec.AttendanceRecordLeftAt == nil {
			return "Left"
		}
		return "Left at " + clock(*rec.AttendanceRecordLeftAt, loc)
	case model.AttendanceReturned:
		if rec.AttendanceRecordReturnedAt == nil {
			return "Returned"
		}
		return "Returned at " + clock(*rec.AttendanceRecordReturnedAt, loc)
	case model.AttendanceAbsent:
		if rec.AttendanceRecordMarkedAbsentAt == nil {
			return "Absent"
		}
		return "Absent (marked at " + clock(*rec.AttendanceRecordMarkedAbsentAt, loc) + ")"
	}
	return "Unknown"
}

// StatusClass: hint warna untuk FE (bootstrap-ish).
func StatusClass(s model.AttendanceStatus) string {
	switch s {
	case model.AttendancePresent:
		return "success"
	case model.AttendanceLeft:
		return "warning"
	case model.AttendanceReturned:
		return "info"
	case model.AttendanceAbsent:
		return "danger"
	}
	return "secondary"
}

type ExportRow struct {
	StudentName    string `json:"student_name"`
	Date           string `json:"date"`
	Status         string `json:"status"`
	LeftAt         string `json:"left_at"`
	ReturnedAt     string `json:"returned_at"`
	MarkedAbsentAt string `json:"marked_absent_at"`
}

func (r ExportRow) Fields() []string {
	return []string{r.StudentName, r.Date, r.Status, r.LeftAt, r.ReturnedAt, r.MarkedAbsentAt}
}

// BuildExportRows keeps the record order; a student without a name falls back to its id.
func BuildExportRows(records []model.AttendanceRecordModel, names map[uuid.UUID]string, loc *time.Location) []ExportRow {
	rows := make([]ExportRow, 0, len(records))
	for i := range records {
		rec := &records[i]
		name := helper.NormalizeName(names[rec.AttendanceRecordStudentID])
		if name == "" {
			name = rec.AttendanceRecordStudentID.String()
		}
		rows = append(rows, ExportRow{
			StudentName:    name,
			Date:           rec.Day().Format(exportDateLayout),
			Status:         rec.AttendanceRecordStatus.DisplayName(),
			LeftAt:         stamp(rec.AttendanceRecordLeftAt, loc),
			ReturnedAt:     stamp(rec.AttendanceRecordReturnedAt, loc),
			MarkedAbsentAt: stamp(rec.AttendanceRecordMarkedAbsentAt, loc),
		})
	}
	return rows
}

// WriteCSV writes header + rows with "\n" line endings.
func WriteCSV(w io.Writer, rows []ExportRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ExportHeader); err != nil {
		return err
	}
	for _, r := range rows {
		if err := cw.Write(r.Fields()); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ExportFilename: "Attendance_<class>_<from>_to_<to>.csv"; nama kelas dibersihkan
// supaya aman dipakai sebagai nama file / object key.
func ExportFilename(className string, from, to time.Time) string {
	return "Attendance_" + fileSafe(className) + "_" +
		from.Format(exportDateLayout) + "_to_" + to.Format(exportDateLayout) + ".csv"
}

func fileSafe(s string) string {
	s = helper.StripDiacritics(s)
	var b strings.Builder
	for _, r := range s {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)), r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	out := strings.Trim(b.String(), "_")
	if out == "" {
		return "class"
	}
	return out
}

func clock(t time.Time, loc *time.Location) string {
	return inLoc(t, loc).Format(clockLayout)
}

func stamp(t *time.Time, loc *time.Location) string {
	if t == nil {
		return ""
	}
	return inLoc(*t, loc).Format(exportStampLayout)
}

func inLoc(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc)
}
