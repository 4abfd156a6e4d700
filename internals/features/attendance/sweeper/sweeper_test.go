package sweeper

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"attendance_backend/internals/features/attendance/model"
	"attendance_backend/internals/features/attendance/notify"
	"attendance_backend/internals/features/attendance/repository"
	"attendance_backend/internals/features/attendance/service"
	"attendance_backend/internals/helpers/dbtime"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"gorm.io/datatypes"
)

var leftAt = time.Date(2026, 10, 15, 10, 0, 0, 0, time.UTC)

func clockAt(t time.Time) dbtime.Clock { return func() time.Time { return t } }

func seedLeft(t *testing.T, store repository.Store, at time.Time) *model.AttendanceRecordModel {
	t.Helper()
	rec := &model.AttendanceRecordModel{
		AttendanceRecordID:        uuid.New(),
		AttendanceRecordStudentID: uuid.New(),
		AttendanceRecordClassID:   uuid.New(),
		AttendanceRecordStatus:    model.AttendanceLeft,
		AttendanceRecordLeftAt:    &at,
		AttendanceRecordMarkedBy:  "teacher-1",
		AttendanceRecordCreatedAt: at.Add(-time.Hour),
	}
	rec.AttendanceRecordDate = datatypes.Date(dbtime.DayOf(at, time.UTC))
	saved, err := store.Upsert(context.Background(), rec)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	return saved
}

func find(t *testing.T, store repository.Store, rec *model.AttendanceRecordModel) *model.AttendanceRecordModel {
	t.Helper()
	got, err := store.FindTodayRecord(context.Background(), rec.AttendanceRecordStudentID, rec.AttendanceRecordClassID, rec.Day())
	if err != nil || got == nil {
		t.Fatalf("find: %v %v", got, err)
	}
	return got
}

// blockingStore mengambil snapshot QueryLeftBefore lalu menahannya sampai release ditutup.
type blockingStore struct {
	*repository.MemoryStore
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func newBlockingStore() *blockingStore {
	return &blockingStore{
		MemoryStore: repository.NewMemoryStore(),
		entered:     make(chan struct{}),
		release:     make(chan struct{}),
	}
}

func (b *blockingStore) QueryLeftBefore(ctx context.Context, threshold time.Time) ([]model.AttendanceRecordModel, error) {
	rows, err := b.MemoryStore.QueryLeftBefore(ctx, threshold)
	b.once.Do(func() { close(b.entered) })
	<-b.release
	return rows, err
}

func TestRunOnce_GracePeriodBoundary(t *testing.T) {
	store := repository.NewMemoryStore()
	rec := seedLeft(t, store, leftAt)

	early := New(store, Config{GracePeriod: 5 * time.Minute, Clock: clockAt(leftAt.Add(4*time.Minute + 59*time.Second))})
	res := early.RunOnce(context.Background())
	if res.Candidates != 0 || res.Succeeded != 0 {
		t.Fatalf("early sweep touched record: %+v", res)
	}
	if got := find(t, store, rec); got.AttendanceRecordStatus != model.AttendanceLeft {
		t.Fatalf("status = %s, want left", got.AttendanceRecordStatus)
	}

	sweepAt := leftAt.Add(5*time.Minute + time.Second)
	late := New(store, Config{GracePeriod: 5 * time.Minute, Clock: clockAt(sweepAt)})
	res = late.RunOnce(context.Background())
	if res.Err() != nil || res.Succeeded != 1 {
		t.Fatalf("late sweep: %+v err=%v", res, res.Err())
	}

	got := find(t, store, rec)
	if got.AttendanceRecordStatus != model.AttendanceAbsent {
		t.Fatalf("status = %s, want absent", got.AttendanceRecordStatus)
	}
	if got.AttendanceRecordMarkedBy != model.SystemActor {
		t.Fatalf("marked by = %q", got.AttendanceRecordMarkedBy)
	}
	if got.AttendanceRecordMarkedAbsentAt == nil || !got.AttendanceRecordMarkedAbsentAt.Equal(sweepAt) {
		t.Fatalf("markedAbsentAt = %v", got.AttendanceRecordMarkedAbsentAt)
	}
	if got.AttendanceRecordLeftAt == nil || !got.AttendanceRecordLeftAt.Equal(leftAt) {
		t.Fatalf("leftAt changed: %v", got.AttendanceRecordLeftAt)
	}
	if got.AttendanceRecordID != rec.AttendanceRecordID {
		t.Fatalf("record id changed")
	}
}

func TestRunOnce_ExactThresholdIsOverdue(t *testing.T) {
	store := repository.NewMemoryStore()
	seedLeft(t, store, leftAt)

	sw := New(store, Config{GracePeriod: 5 * time.Minute, Clock: clockAt(leftAt.Add(5 * time.Minute))})
	if res := sw.RunOnce(context.Background()); res.Succeeded != 1 {
		t.Fatalf("succeeded = %d, want 1", res.Succeeded)
	}
}

func TestRunOnce_NoCandidatesNoWrites(t *testing.T) {
	store := repository.NewMemoryStore()
	var writes atomic.Int32
	store.FailUpsert = func(*model.AttendanceRecordModel) error {
		writes.Add(1)
		return nil
	}

	sw := New(store, Config{Clock: clockAt(leftAt)})
	res := sw.RunOnce(context.Background())
	if res.Err() != nil || res.Candidates != 0 || res.Skipped {
		t.Fatalf("res = %+v", res)
	}
	if writes.Load() != 0 {
		t.Fatalf("writes = %d", writes.Load())
	}
}

func TestRunOnce_PartialFailure(t *testing.T) {
	store := repository.NewMemoryStore()
	a := seedLeft(t, store, leftAt)
	b := seedLeft(t, store, leftAt)
	bad := seedLeft(t, store, leftAt)

	store.FailUpsert = func(rec *model.AttendanceRecordModel) error {
		if rec.AttendanceRecordStudentID == bad.AttendanceRecordStudentID {
			return errors.New("deadlock detected")
		}
		return nil
	}

	sw := New(store, Config{Clock: clockAt(leftAt.Add(10 * time.Minute))})
	res := sw.RunOnce(context.Background())

	if res.Candidates != 3 || res.Succeeded != 2 || res.Failed() != 1 {
		t.Fatalf("res = %+v", res)
	}
	if res.Failures[0].RecordID != bad.AttendanceRecordID {
		t.Fatalf("failed record = %s", res.Failures[0].RecordID)
	}
	err := res.Err()
	if !errors.Is(err, model.ErrPartialSweepFailure) {
		t.Fatalf("err = %v, want ErrPartialSweepFailure", err)
	}
	if !errors.Is(err, model.ErrStoreUnavailable) {
		t.Fatalf("err should keep the store cause: %v", err)
	}

	for _, r := range []*model.AttendanceRecordModel{a, b} {
		if got := find(t, store, r); got.AttendanceRecordStatus != model.AttendanceAbsent {
			t.Fatalf("status = %s, want absent", got.AttendanceRecordStatus)
		}
	}
	if got := find(t, store, bad); got.AttendanceRecordStatus != model.AttendanceLeft {
		t.Fatalf("failed record status = %s, want left", got.AttendanceRecordStatus)
	}
}

func TestRunOnce_QueryFailure(t *testing.T) {
	store := repository.NewMemoryStore()
	store.FailQuery = func(string) error { return errors.New("connection reset") }

	res := New(store, Config{Clock: clockAt(leftAt)}).RunOnce(context.Background())
	if !errors.Is(res.Err(), model.ErrStoreUnavailable) {
		t.Fatalf("err = %v, want ErrStoreUnavailable", res.Err())
	}
	if errors.Is(res.Err(), model.ErrPartialSweepFailure) {
		t.Fatalf("query failure is not a partial failure")
	}
}

func TestRunOnce_SkipsRecordReturnedAfterQuery(t *testing.T) {
	store := newBlockingStore()
	rec := seedLeft(t, store, leftAt)
	sw := New(store, Config{Clock: clockAt(leftAt.Add(time.Hour))})

	done := make(chan Result, 1)
	go func() { done <- sw.RunOnce(context.Background()) }()
	<-store.entered

	// guru menandai returned setelah snapshot diambil
	ret := rec.Clone()
	ret.AttendanceRecordStatus = model.AttendanceReturned
	back := leftAt.Add(2 * time.Minute)
	ret.AttendanceRecordReturnedAt = &back
	if _, err := store.Upsert(context.Background(), ret); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	close(store.release)

	res := <-done
	if res.Candidates != 1 || res.Succeeded != 0 || res.Stale != 1 || res.Err() != nil {
		t.Fatalf("res = %+v", res)
	}
	if got := find(t, store, rec); got.AttendanceRecordStatus != model.AttendanceReturned {
		t.Fatalf("status = %s, want returned", got.AttendanceRecordStatus)
	}
}

func TestRunOnce_MutualExclusion(t *testing.T) {
	store := newBlockingStore()
	seedLeft(t, store, leftAt)
	sw := New(store, Config{Clock: clockAt(leftAt.Add(time.Hour))})

	first := make(chan Result, 1)
	go func() { first <- sw.RunOnce(context.Background()) }()
	<-store.entered

	second := sw.RunOnce(context.Background())
	if !second.Skipped {
		t.Fatalf("second run should be skipped while the first is in progress")
	}

	close(store.release)
	res := <-first
	if res.Skipped || res.Succeeded != 1 {
		t.Fatalf("first run = %+v", res)
	}
}

func TestStop_WaitsForInFlightRun(t *testing.T) {
	store := newBlockingStore()
	rec := seedLeft(t, store, leftAt)
	sw := New(store, Config{Clock: clockAt(leftAt.Add(time.Hour))})

	run := make(chan Result, 1)
	go func() { run <- sw.RunOnce(context.Background()) }()
	<-store.entered

	stopped := make(chan error, 1)
	go func() { stopped <- sw.Stop(context.Background()) }()

	select {
	case err := <-stopped:
		t.Fatalf("Stop returned before the run finished: %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	close(store.release)
	if err := <-stopped; err != nil {
		t.Fatalf("stop: %v", err)
	}
	if res := <-run; res.Succeeded != 1 {
		t.Fatalf("in-flight run did not complete: %+v", res)
	}
	if got := find(t, store, rec); got.AttendanceRecordStatus != model.AttendanceAbsent {
		t.Fatalf("status = %s", got.AttendanceRecordStatus)
	}

	if after := sw.RunOnce(context.Background()); !after.Skipped {
		t.Fatalf("run after Stop should be skipped")
	}
}

func TestRunOnce_StopBetweenCheckAndLock(t *testing.T) {
	store := repository.NewMemoryStore()
	rec := seedLeft(t, store, leftAt)
	sw := New(store, Config{Clock: clockAt(leftAt.Add(time.Hour))})

	// Stop selesai penuh setelah RunOnce lolos cek pertama tapi sebelum TryLock
	sw.beforeLock = func() {
		if err := sw.Stop(context.Background()); err != nil {
			t.Errorf("stop: %v", err)
		}
	}

	if res := sw.RunOnce(context.Background()); !res.Skipped {
		t.Fatalf("run racing Stop should be skipped, got %+v", res)
	}
	if got := find(t, store, rec); got.AttendanceRecordStatus != model.AttendanceLeft {
		t.Fatalf("status = %s, want left (no sweep after Stop)", got.AttendanceRecordStatus)
	}
	// lock harus dilepas lagi
	if !sw.running.TryLock() {
		t.Fatal("running mutex left locked")
	}
	sw.running.Unlock()
}

func TestStop_HonoursDeadline(t *testing.T) {
	store := newBlockingStore()
	sw := New(store, Config{Clock: clockAt(leftAt)})

	go sw.RunOnce(context.Background())
	<-store.entered
	defer close(store.release)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := sw.Stop(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want deadline exceeded", err)
	}
}

func TestStart_RunsOnSchedule(t *testing.T) {
	store := repository.NewMemoryStore()
	rec := seedLeft(t, store, leftAt)
	sw := New(store, Config{Interval: time.Second, Clock: clockAt(leftAt.Add(time.Hour))})

	sw.Start()
	sw.Start() // no-op
	defer sw.Stop(context.Background())

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if got := find(t, store, rec); got.AttendanceRecordStatus == model.AttendanceAbsent {
			return
		}
		time.Sleep(100 * time.Millisecond)
	}
	t.Fatalf("scheduled sweep never marked the record absent")
}

func TestRunOnce_NotifiesMarkedAbsent(t *testing.T) {
	store := repository.NewMemoryStore()
	rec := seedLeft(t, store, leftAt)

	var mu sync.Mutex
	var got []notify.Event
	d := notify.NewDispatcher(time.Second, notify.NotifierFunc(func(_ context.Context, ev notify.Event) error {
		mu.Lock()
		got = append(got, ev)
		mu.Unlock()
		return nil
	}))

	sw := New(store, Config{Clock: clockAt(leftAt.Add(time.Hour)), Dispatcher: d})
	sw.RunOnce(context.Background())
	_ = d.Close(context.Background())

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 1 || got[0].Kind != notify.EventMarkedAbsent {
		t.Fatalf("events = %+v", got)
	}
	if got[0].Record.AttendanceRecordStudentID != rec.AttendanceRecordStudentID {
		t.Fatalf("wrong student in event")
	}
	if got[0].Previous == nil || *got[0].Previous != model.AttendanceLeft {
		t.Fatalf("previous = %v", got[0].Previous)
	}
}

func TestRunOnce_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	store := repository.NewMemoryStore()
	seedLeft(t, store, leftAt)
	seedLeft(t, store, leftAt)

	sw := New(store, Config{Clock: clockAt(leftAt.Add(time.Hour)), Registerer: reg})
	sw.RunOnce(context.Background())
	sw.RunOnce(context.Background())

	if v := testutil.ToFloat64(sw.metrics.marked); v != 2 {
		t.Fatalf("marked = %v", v)
	}
	if v := testutil.ToFloat64(sw.metrics.runs.WithLabelValues("ok")); v != 2 {
		t.Fatalf("ok runs = %v", v)
	}
	if v := testutil.ToFloat64(sw.metrics.candidates); v != 0 {
		t.Fatalf("last candidates = %v", v)
	}
}

// Mark dan sweep yang saling menyela tetap menghasilkan satu record per siswa/kelas/hari.
func TestMarksInterleavedWithSweeps_OneRecordPerDay(t *testing.T) {
	store := repository.NewMemoryStore()
	roster := &openRoster{}
	base := time.Date(2026, 10, 15, 8, 0, 0, 0, time.UTC)
	var tick atomic.Int64
	clock := func() time.Time { return base.Add(time.Duration(tick.Add(1)) * time.Minute) }

	svc := service.NewAttendanceService(store, roster, service.WithClock(clock))
	sw := New(store, Config{GracePeriod: time.Minute, Clock: clock})

	classID := uuid.New()
	students := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	statuses := []model.AttendanceStatus{model.AttendancePresent, model.AttendanceLeft, model.AttendanceReturned, model.AttendanceLeft}

	var wg sync.WaitGroup
	for _, s := range students {
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func(s uuid.UUID, i int) {
				defer wg.Done()
				_, err := svc.MarkAttendance(context.Background(), service.MarkInput{
					StudentID: s, ClassID: classID, Status: statuses[i%len(statuses)], Actor: "teacher-1",
				})
				if err != nil {
					t.Errorf("mark: %v", err)
				}
			}(s, i)
		}
	}
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := sw.RunOnce(context.Background()).Err(); err != nil {
				t.Errorf("sweep: %v", err)
			}
		}()
	}
	wg.Wait()

	if store.Len() != len(students) {
		t.Fatalf("rows = %d, want %d", store.Len(), len(students))
	}
}

type openRoster struct{}

func (openRoster) IsActiveEnrollment(context.Context, uuid.UUID, uuid.UUID) (bool, error) {
	return true, nil
}
func (openRoster) ClassExists(context.Context, uuid.UUID) (bool, error)   { return true, nil }
func (openRoster) ClassName(context.Context, uuid.UUID) (string, error)   { return "", nil }
func (openRoster) StudentExists(context.Context, uuid.UUID) (bool, error) { return true, nil }
func (openRoster) StudentNames(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error) {
	return map[uuid.UUID]string{}, nil
}
