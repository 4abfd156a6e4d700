// internals/features/attendance/repository/gorm_store.go
package repository

import (
	"context"
	"time"

	"attendance_backend/internals/features/attendance/model"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	colStudentID      = "attendance_record_student_id"
	colClassID        = "attendance_record_class_id"
	colDate           = "attendance_record_date"
	colStatus         = "attendance_record_status"
	colLeftAt         = "attendance_record_left_at"
	colReturnedAt     = "attendance_record_returned_at"
	colMarkedAbsentAt = "attendance_record_marked_absent_at"
	colMarkedBy       = "attendance_record_marked_by"
	colNotes          = "attendance_record_notes"
	colCreatedAt      = "attendance_record_created_at"
	colUpdatedAt      = "attendance_record_updated_at"
)

type GormStore struct {
	DB *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{DB: db}
}

var _ Store = (*GormStore)(nil)

func (s *GormStore) FindTodayRecord(ctx context.Context, studentID, classID uuid.UUID, date time.Time) (*model.AttendanceRecordModel, error) {
	// Find + Limit (bukan First) supaya "record not found" tidak masuk log error
	var rows []model.AttendanceRecordModel
	if err := s.DB.WithContext(ctx).
		Where(colStudentID+" = ? AND "+colClassID+" = ? AND "+colDate+" = ?",
			studentID, classID, datatypes.Date(date)).
		Limit(1).
		Find(&rows).Error; err != nil {
		return nil, storeErr("find today record", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

// Upsert: INSERT ... ON CONFLICT (student, class, date) DO UPDATE.
// id + created_at baris lama dipertahankan; timestamp transisi di-COALESCE
// supaya writer yang balapan tidak bisa meng-null-kan audit trail.
func (s *GormStore) Upsert(ctx context.Context, rec *model.AttendanceRecordModel) (*model.AttendanceRecordModel, error) {
	row := rec.Clone()
	if row.AttendanceRecordID == uuid.Nil {
		row.AttendanceRecordID = uuid.New()
	}
	toUTC(row)

	keep := func(col string) clause.Expr {
		return gorm.Expr(`COALESCE(EXCLUDED.` + col + `, "attendance_records".` + col + `)`)
	}

	err := s.DB.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: colStudentID}, {Name: colClassID}, {Name: colDate}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				colStatus:         gorm.Expr("EXCLUDED." + colStatus),
				colMarkedBy:       gorm.Expr("EXCLUDED." + colMarkedBy),
				colUpdatedAt:      gorm.Expr("COALESCE(EXCLUDED." + colUpdatedAt + ", EXCLUDED." + colCreatedAt + ")"),
				colLeftAt:         keep(colLeftAt),
				colReturnedAt:     keep(colReturnedAt),
				colMarkedAbsentAt: keep(colMarkedAbsentAt),
				colNotes:          keep(colNotes),
			}),
		}).
		Create(row).Error
	if err != nil {
		return nil, storeErr("upsert", err)
	}

	stored, err := s.FindTodayRecord(ctx, row.AttendanceRecordStudentID, row.AttendanceRecordClassID, row.Day())
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, storeErr("upsert", gorm.ErrRecordNotFound)
	}
	return stored, nil
}

func (s *GormStore) QueryByClassAndDateRange(ctx context.Context, classID uuid.UUID, from, to time.Time) ([]model.AttendanceRecordModel, error) {
	return s.queryRange(ctx, colClassID, classID, from, to)
}

func (s *GormStore) QueryByStudentAndDateRange(ctx context.Context, studentID uuid.UUID, from, to time.Time) ([]model.AttendanceRecordModel, error) {
	return s.queryRange(ctx, colStudentID, studentID, from, to)
}

func (s *GormStore) queryRange(ctx context.Context, col string, id uuid.UUID, from, to time.Time) ([]model.AttendanceRecordModel, error) {
	var rows []model.AttendanceRecordModel
	if err := s.DB.WithContext(ctx).
		Where(col+" = ?", id).
		Where(colDate+" >= ? AND "+colDate+" <= ?", datatypes.Date(from), datatypes.Date(to)).
		Order(colDate + " DESC").
		Order(colCreatedAt + " ASC").
		Find(&rows).Error; err != nil {
		return nil, storeErr("query range by "+col, err)
	}
	return rows, nil
}

func (s *GormStore) QueryLeftBefore(ctx context.Context, threshold time.Time) ([]model.AttendanceRecordModel, error) {
	var rows []model.AttendanceRecordModel
	if err := s.DB.WithContext(ctx).
		Where(colStatus+" = ?", model.AttendanceLeft).
		Where(colLeftAt+" IS NOT NULL AND "+colLeftAt+" <= ?", threshold.UTC()).
		Order(colLeftAt + " ASC").
		Find(&rows).Error; err != nil {
		return nil, storeErr("query left before", err)
	}
	return rows, nil
}

// toUTC: semua timestamp disimpan dalam UTC. SQLite membandingkan timestamp
// sebagai string ber-offset, jadi zona campuran membuat "<= threshold" meleset.
func toUTC(row *model.AttendanceRecordModel) {
	utc := func(t *time.Time) {
		if t != nil {
			*t = t.UTC()
		}
	}
	utc(row.AttendanceRecordLeftAt)
	utc(row.AttendanceRecordReturnedAt)
	utc(row.AttendanceRecordMarkedAbsentAt)
	utc(row.AttendanceRecordUpdatedAt)
	row.AttendanceRecordCreatedAt = row.AttendanceRecordCreatedAt.UTC()
}
