// internals/features/attendance/repository/memory_store.go
package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"attendance_backend/internals/features/attendance/model"

	"github.com/google/uuid"
)

type recordKey struct {
	StudentID uuid.UUID
	ClassID   uuid.UUID
	Day       string
}

func keyOf(studentID, classID uuid.UUID, day time.Time) recordKey {
	return recordKey{StudentID: studentID, ClassID: classID, Day: day.UTC().Format("2006-01-02")}
}

// MemoryStore: Store in-memory untuk test & mode ATTENDANCE_STORE=memory.
// Satu mutex = titik serialisasi per key, sama seperti unique index di DB.
type MemoryStore struct {
	mu   sync.Mutex
	rows map[recordKey]*model.AttendanceRecordModel

	// FailUpsert, kalau di-set, dipanggil sebelum tiap write; error → write batal.
	FailUpsert func(rec *model.AttendanceRecordModel) error
	// FailQuery, kalau di-set, membuat semua query gagal.
	FailQuery func(op string) error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rows: map[recordKey]*model.AttendanceRecordModel{}}
}

var _ Store = (*MemoryStore)(nil)

func (s *MemoryStore) queryErr(op string) error {
	if s.FailQuery == nil {
		return nil
	}
	if err := s.FailQuery(op); err != nil {
		return storeErr(op, err)
	}
	return nil
}

func (s *MemoryStore) FindTodayRecord(ctx context.Context, studentID, classID uuid.UUID, date time.Time) (*model.AttendanceRecordModel, error) {
	if err := ctx.Err(); err != nil {
		return nil, storeErr("find today record", err)
	}
	if err := s.queryErr("find today record"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rows[keyOf(studentID, classID, date)].Clone(), nil
}

func (s *MemoryStore) Upsert(ctx context.Context, rec *model.AttendanceRecordModel) (*model.AttendanceRecordModel, error) {
	if err := ctx.Err(); err != nil {
		return nil, storeErr("upsert", err)
	}
	if s.FailUpsert != nil {
		if err := s.FailUpsert(rec); err != nil {
			return nil, storeErr("upsert", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	k := keyOf(rec.AttendanceRecordStudentID, rec.AttendanceRecordClassID, rec.Day())
	in := rec.Clone()
	old, ok := s.rows[k]
	if !ok {
		if in.AttendanceRecordID == uuid.Nil {
			in.AttendanceRecordID = uuid.New()
		}
		s.rows[k] = in
		return in.Clone(), nil
	}

	// sama dengan ON CONFLICT DO UPDATE di GormStore
	merged := old.Clone()
	merged.AttendanceRecordStatus = in.AttendanceRecordStatus
	merged.AttendanceRecordMarkedBy = in.AttendanceRecordMarkedBy
	merged.AttendanceRecordUpdatedAt = in.AttendanceRecordUpdatedAt
	if merged.AttendanceRecordUpdatedAt == nil {
		ts := in.AttendanceRecordCreatedAt
		merged.AttendanceRecordUpdatedAt = &ts
	}
	if in.AttendanceRecordLeftAt != nil {
		merged.AttendanceRecordLeftAt = in.AttendanceRecordLeftAt
	}
	if in.AttendanceRecordReturnedAt != nil {
		merged.AttendanceRecordReturnedAt = in.AttendanceRecordReturnedAt
	}
	if in.AttendanceRecordMarkedAbsentAt != nil {
		merged.AttendanceRecordMarkedAbsentAt = in.AttendanceRecordMarkedAbsentAt
	}
	if in.AttendanceRecordNotes != nil {
		merged.AttendanceRecordNotes = in.AttendanceRecordNotes
	}
	s.rows[k] = merged
	return merged.Clone(), nil
}

func (s *MemoryStore) QueryByClassAndDateRange(ctx context.Context, classID uuid.UUID, from, to time.Time) ([]model.AttendanceRecordModel, error) {
	return s.queryRange(ctx, "query range by class", from, to, func(r *model.AttendanceRecordModel) bool {
		return r.AttendanceRecordClassID == classID
	})
}

func (s *MemoryStore) QueryByStudentAndDateRange(ctx context.Context, studentID uuid.UUID, from, to time.Time) ([]model.AttendanceRecordModel, error) {
	return s.queryRange(ctx, "query range by student", from, to, func(r *model.AttendanceRecordModel) bool {
		return r.AttendanceRecordStudentID == studentID
	})
}

func (s *MemoryStore) queryRange(ctx context.Context, op string, from, to time.Time, match func(*model.AttendanceRecordModel) bool) ([]model.AttendanceRecordModel, error) {
	if err := ctx.Err(); err != nil {
		return nil, storeErr(op, err)
	}
	if err := s.queryErr(op); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.AttendanceRecordModel, 0)
	for _, r := range s.rows {
		d := r.Day()
		if !match(r) || d.Before(from.UTC()) || d.After(to.UTC()) {
			continue
		}
		out = append(out, *r.Clone())
	}
	sort.SliceStable(out, func(i, j int) bool {
		di, dj := out[i].Day(), out[j].Day()
		if !di.Equal(dj) {
			return di.After(dj)
		}
		return out[i].AttendanceRecordCreatedAt.Before(out[j].AttendanceRecordCreatedAt)
	})
	return out, nil
}

func (s *MemoryStore) QueryLeftBefore(ctx context.Context, threshold time.Time) ([]model.AttendanceRecordModel, error) {
	if err := ctx.Err(); err != nil {
		return nil, storeErr("query left before", err)
	}
	if err := s.queryErr("query left before"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.AttendanceRecordModel, 0)
	for _, r := range s.rows {
		if r.AttendanceRecordStatus != model.AttendanceLeft || r.AttendanceRecordLeftAt == nil {
			continue
		}
		if r.AttendanceRecordLeftAt.After(threshold) {
			continue
		}
		out = append(out, *r.Clone())
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].AttendanceRecordLeftAt.Before(*out[j].AttendanceRecordLeftAt)
	})
	return out, nil
}

// Len: jumlah baris (dipakai test uniqueness).
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}
