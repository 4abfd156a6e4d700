// internals/features/attendance/service/attendance_service.go
package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"attendance_backend/internals/features/attendance/model"
	"attendance_backend/internals/features/attendance/notify"
	"attendance_backend/internals/features/attendance/report"
	"attendance_backend/internals/features/attendance/repository"
	"attendance_backend/internals/features/attendance/transition"
	helper "attendance_backend/internals/helpers"
	"attendance_backend/internals/helpers/dbtime"

	"github.com/google/uuid"
)

// DefaultHistoryDays: window default history/report kalau from/to kosong.
const DefaultHistoryDays = 30

// Roster menjawab pertanyaan enrollment; implementasinya di features/school/classes.
type Roster interface {
	IsActiveEnrollment(ctx context.Context, studentID, classID uuid.UUID) (bool, error)
	ClassExists(ctx context.Context, classID uuid.UUID) (bool, error)
	ClassName(ctx context.Context, classID uuid.UUID) (string, error)
	StudentExists(ctx context.Context, studentID uuid.UUID) (bool, error)
	StudentNames(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error)
}

type MarkInput struct {
	StudentID uuid.UUID
	ClassID   uuid.UUID
	Status    model.AttendanceStatus
	Actor     string
	Notes     *string
}

// AttendanceService tidak menyimpan state absensi: setiap call baca ulang dari Store.
type AttendanceService struct {
	Store       repository.Store
	Roster      Roster
	Dispatcher  *notify.Dispatcher
	Clock       dbtime.Clock
	Location    *time.Location
	HistoryDays int
}

type Option func(*AttendanceService)

func WithClock(c dbtime.Clock) Option        { return func(s *AttendanceService) { s.Clock = c } }
func WithLocation(loc *time.Location) Option { return func(s *AttendanceService) { s.Location = loc } }
func WithDispatcher(d *notify.Dispatcher) Option {
	return func(s *AttendanceService) { s.Dispatcher = d }
}
func WithHistoryDays(days int) Option { return func(s *AttendanceService) { s.HistoryDays = days } }

func NewAttendanceService(store repository.Store, roster Roster, opts ...Option) *AttendanceService {
	s := &AttendanceService{
		Store:       store,
		Roster:      roster,
		Clock:       dbtime.SystemClock,
		Location:    time.UTC,
		HistoryDays: DefaultHistoryDays,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Today: tanggal kalender hari ini di zona sekolah.
func (s *AttendanceService) Today() time.Time {
	return dbtime.DayOf(s.Clock(), s.Location)
}

// MarkAttendance applies status to today's record of (student, class).
func (s *AttendanceService) MarkAttendance(ctx context.Context, in MarkInput) (*model.AttendanceRecordModel, error) {
	if !in.Status.Valid() {
		return nil, fmt.Errorf("%w: %q", model.ErrInvalidStatus, in.Status)
	}

	ok, err := s.Roster.IsActiveEnrollment(ctx, in.StudentID, in.ClassID)
	if err != nil {
		return nil, rosterErr(err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: no active enrollment for student %s in class %s", model.ErrNotFound, in.StudentID, in.ClassID)
	}

	now := s.Clock()
	day := dbtime.DayOf(now, s.Location)

	current, err := s.Store.FindTodayRecord(ctx, in.StudentID, in.ClassID, day)
	if err != nil {
		return nil, err
	}

	next, err := transition.Decide(current, transition.Command{
		StudentID: in.StudentID,
		ClassID:   in.ClassID,
		Date:      day,
		Status:    in.Status,
		Actor:     in.Actor,
		Notes:     in.Notes,
	}, now)
	if err != nil {
		return nil, err
	}

	saved, err := s.Store.Upsert(ctx, next)
	if err != nil {
		return nil, err
	}

	log.Printf("[ATTENDANCE] mark student=%s class=%s status=%s by=%s", in.StudentID, in.ClassID, saved.AttendanceRecordStatus, in.Actor)

	if current == nil || current.AttendanceRecordStatus != saved.AttendanceRecordStatus {
		s.Dispatcher.Dispatch(notify.NewEvent(saved, current, now))
	}
	return saved, nil
}

// GetTodayAttendance: records kelas untuk hari ini, urut nama siswa.
// Map nama yang dipakai untuk sorting ikut dikembalikan.
func (s *AttendanceService) GetTodayAttendance(ctx context.Context, classID uuid.UUID) ([]model.AttendanceRecordModel, map[uuid.UUID]string, error) {
	if err := s.ensureClass(ctx, classID); err != nil {
		return nil, nil, err
	}
	today := s.Today()
	rows, err := s.Store.QueryByClassAndDateRange(ctx, classID, today, today)
	if err != nil {
		return nil, nil, err
	}
	names, err := s.StudentNames(ctx, rows)
	if err != nil {
		return nil, nil, err
	}
	sort.SliceStable(rows, func(i, j int) bool {
		ki := helper.SortKey(names[rows[i].AttendanceRecordStudentID])
		kj := helper.SortKey(names[rows[j].AttendanceRecordStudentID])
		if ki != kj {
			return ki < kj
		}
		return rows[i].AttendanceRecordStudentID.String() < rows[j].AttendanceRecordStudentID.String()
	})
	return rows, names, nil
}

// GetAttendanceHistory: newest first, inclusive; nil bounds → trailing HistoryDays window.
func (s *AttendanceService) GetAttendanceHistory(ctx context.Context, studentID uuid.UUID, from, to *time.Time) ([]model.AttendanceRecordModel, error) {
	ok, err := s.Roster.StudentExists(ctx, studentID)
	if err != nil {
		return nil, rosterErr(err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: student %s", model.ErrNotFound, studentID)
	}
	start, end := s.ResolveRange(from, to)
	return s.Store.QueryByStudentAndDateRange(ctx, studentID, start, end)
}

func (s *AttendanceService) GetClassAttendanceReport(ctx context.Context, classID uuid.UUID, from, to *time.Time) ([]model.AttendanceRecordModel, error) {
	if err := s.ensureClass(ctx, classID); err != nil {
		return nil, err
	}
	start, end := s.ResolveRange(from, to)
	return s.Store.QueryByClassAndDateRange(ctx, classID, start, end)
}

// GetAttendanceStats: jumlah per status; status yang tidak muncul tetap ada dengan nilai 0.
func (s *AttendanceService) GetAttendanceStats(ctx context.Context, classID uuid.UUID, from, to *time.Time) (map[string]int, error) {
	rows, err := s.GetClassAttendanceReport(ctx, classID, from, to)
	if err != nil {
		return nil, err
	}
	return report.CountByStatus(rows), nil
}

type Export struct {
	ClassID   uuid.UUID
	ClassName string
	From      time.Time
	To        time.Time
	Rows      []report.ExportRow
}

// Filename: Attendance_<kelas>_<from>_to_<to>.csv
func (e *Export) Filename() string {
	name := e.ClassName
	if name == "" {
		name = e.ClassID.String()
	}
	return report.ExportFilename(name, e.From, e.To)
}

func (s *AttendanceService) ExportClassAttendance(ctx context.Context, classID uuid.UUID, from, to *time.Time) (*Export, error) {
	start, end := s.ResolveRange(from, to)
	rows, err := s.GetClassAttendanceReport(ctx, classID, &start, &end)
	if err != nil {
		return nil, err
	}
	names, err := s.StudentNames(ctx, rows)
	if err != nil {
		return nil, err
	}
	className, err := s.Roster.ClassName(ctx, classID)
	if err != nil {
		return nil, rosterErr(err)
	}
	return &Export{
		ClassID:   classID,
		ClassName: className,
		From:      start,
		To:        end,
		Rows:      report.BuildExportRows(rows, names, s.Location),
	}, nil
}

// StudentNames resolves display names for the students referenced by records.
func (s *AttendanceService) StudentNames(ctx context.Context, records []model.AttendanceRecordModel) (map[uuid.UUID]string, error) {
	if len(records) == 0 {
		return map[uuid.UUID]string{}, nil
	}
	seen := make(map[uuid.UUID]struct{}, len(records))
	ids := make([]uuid.UUID, 0, len(records))
	for i := range records {
		id := records[i].AttendanceRecordStudentID
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	names, err := s.Roster.StudentNames(ctx, ids)
	if err != nil {
		return nil, rosterErr(err)
	}
	return names, nil
}

func (s *AttendanceService) ResolveRange(from, to *time.Time) (time.Time, time.Time) {
	days := s.HistoryDays
	if days <= 0 {
		days = DefaultHistoryDays
	}
	return dbtime.ResolveRange(from, to, s.Today(), days)
}

func (s *AttendanceService) ensureClass(ctx context.Context, classID uuid.UUID) error {
	ok, err := s.Roster.ClassExists(ctx, classID)
	if err != nil {
		return rosterErr(err)
	}
	if !ok {
		return fmt.Errorf("%w: class %s", model.ErrNotFound, classID)
	}
	return nil
}

func rosterErr(err error) error {
	if errors.Is(err, model.ErrStoreUnavailable) {
		return err
	}
	return fmt.Errorf("%w: roster: %w", model.ErrStoreUnavailable, err)
}
