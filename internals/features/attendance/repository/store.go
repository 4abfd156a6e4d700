// Package repository is the persistence boundary for attendance records.
//
// Upsert is the only write path. It is atomic per (student, class, date):
// concurrent writers for one key never produce two rows, the last writer wins
// on status, and transition timestamps already stored are never cleared.
package repository

import (
	"context"
	"fmt"
	"log"
	"time"

	"attendance_backend/internals/features/attendance/model"
	helper "attendance_backend/internals/helpers"

	"github.com/google/uuid"
)

type Store interface {
	// FindTodayRecord returns nil, nil when no record exists for the key.
	FindTodayRecord(ctx context.Context, studentID, classID uuid.UUID, date time.Time) (*model.AttendanceRecordModel, error)
	Upsert(ctx context.Context, rec *model.AttendanceRecordModel) (*model.AttendanceRecordModel, error)
	// Range queries use inclusive calendar days and return newest date first.
	QueryByClassAndDateRange(ctx context.Context, classID uuid.UUID, from, to time.Time) ([]model.AttendanceRecordModel, error)
	QueryByStudentAndDateRange(ctx context.Context, studentID uuid.UUID, from, to time.Time) ([]model.AttendanceRecordModel, error)
	// QueryLeftBefore: status Left dengan leftAt <= threshold.
	QueryLeftBefore(ctx context.Context, threshold time.Time) ([]model.AttendanceRecordModel, error)
}

// storeErr membungkus semua kegagalan persistence sebagai ErrStoreUnavailable;
// jenisnya (koneksi / SQLSTATE) ikut di pesan dan log.
func storeErr(op string, err error) error {
	kind := errKind(err)
	log.Printf("[STORE] ❌ %s gagal (%s): %v", op, kind, err)
	return fmt.Errorf("%w: %s (%s): %w", model.ErrStoreUnavailable, op, kind, err)
}

func errKind(err error) string {
	switch {
	case helper.IsConnectionError(err):
		return "connection"
	case helper.PGCode(err) != "":
		return "sqlstate " + helper.PGCode(err)
	}
	return "query"
}
