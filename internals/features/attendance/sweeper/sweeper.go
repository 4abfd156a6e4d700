// Package sweeper marks students absent when they left a class and did not
// come back within the grace period.
//
// Runs never overlap: a run that starts while another is in progress is
// skipped, whether it came from the schedule or from a manual trigger.
package sweeper

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"attendance_backend/internals/features/attendance/model"
	"attendance_backend/internals/features/attendance/notify"
	"attendance_backend/internals/features/attendance/repository"
	"attendance_backend/internals/features/attendance/transition"
	"attendance_backend/internals/helpers/dbtime"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"
)

const (
	DefaultInterval    = time.Minute
	DefaultGracePeriod = 5 * time.Minute
)

type Config struct {
	Interval    time.Duration
	GracePeriod time.Duration
	Clock       dbtime.Clock
	Dispatcher  *notify.Dispatcher
	Registerer  prometheus.Registerer
}

type Failure struct {
	RecordID  uuid.UUID
	StudentID uuid.UUID
	ClassID   uuid.UUID
	Err       error
}

// Result: ringkasan satu run.
type Result struct {
	StartedAt  time.Time
	Threshold  time.Time
	Candidates int
	Succeeded  int
	Stale      int // sudah bukan "left" saat diproses ulang
	Failures   []Failure
	QueryErr   error
	Skipped    bool
}

func (r Result) Failed() int { return len(r.Failures) }

// Err: nil kalau semua beres; QueryErr apa adanya; per-record failures
// dibungkus ErrPartialSweepFailure.
func (r Result) Err() error {
	if r.QueryErr != nil {
		return r.QueryErr
	}
	if len(r.Failures) == 0 {
		return nil
	}
	errs := make([]error, 0, len(r.Failures))
	for _, f := range r.Failures {
		errs = append(errs, fmt.Errorf("record %s: %w", f.RecordID, f.Err))
	}
	return fmt.Errorf("%w: %d of %d records: %w",
		model.ErrPartialSweepFailure, len(r.Failures), r.Candidates, errors.Join(errs...))
}

func (r Result) outcome() string {
	switch {
	case r.Skipped:
		return "skipped"
	case r.QueryErr != nil:
		return "failed"
	case len(r.Failures) > 0:
		return "partial"
	default:
		return "ok"
	}
}

type Sweeper struct {
	store      repository.Store
	dispatcher *notify.Dispatcher
	clock      dbtime.Clock
	interval   time.Duration
	grace      time.Duration
	metrics    *metrics

	running  sync.Mutex
	stopping atomic.Bool

	cronMu sync.Mutex
	cron   *cron.Cron

	// beforeLock: hook test antara cek stopping dan TryLock.
	beforeLock func()
}

func New(store repository.Store, cfg Config) *Sweeper {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.GracePeriod <= 0 {
		cfg.GracePeriod = DefaultGracePeriod
	}
	if cfg.Clock == nil {
		cfg.Clock = dbtime.SystemClock
	}
	return &Sweeper{
		store:      store,
		dispatcher: cfg.Dispatcher,
		clock:      cfg.Clock,
		interval:   cfg.Interval,
		grace:      cfg.GracePeriod,
		metrics:    newMetrics(cfg.Registerer),
	}
}

func (s *Sweeper) GracePeriod() time.Duration { return s.grace }

// RunOnce executes a single sweep. If a run is already in progress, or the
// sweeper is stopping, it returns immediately with Skipped set.
func (s *Sweeper) RunOnce(ctx context.Context) Result {
	if s.stopping.Load() {
		return s.skipped()
	}
	if s.beforeLock != nil {
		s.beforeLock()
	}
	if !s.running.TryLock() {
		return s.skipped()
	}
	// Stop bisa lolos drain-nya di antara cek pertama dan TryLock; cek ulang
	// setelah lock dipegang supaya tidak ada run sesudah Stop selesai.
	if s.stopping.Load() {
		s.running.Unlock()
		return s.skipped()
	}
	defer s.running.Unlock()

	started := time.Now()
	res := s.sweep(ctx)
	s.metrics.duration.Observe(time.Since(started).Seconds())
	s.metrics.runs.WithLabelValues(res.outcome()).Inc()
	s.metrics.candidates.Set(float64(res.Candidates))
	s.metrics.marked.Add(float64(res.Succeeded))
	s.metrics.failures.Add(float64(len(res.Failures)))

	switch {
	case res.QueryErr != nil:
		log.Printf("[SWEEPER] ❌ query gagal: %v", res.QueryErr)
	case res.Candidates > 0 || len(res.Failures) > 0:
		log.Printf("[SWEEPER] candidates=%d absent=%d stale=%d failed=%d threshold=%s",
			res.Candidates, res.Succeeded, res.Stale, len(res.Failures), res.Threshold.Format(time.RFC3339))
	}
	return res
}

func (s *Sweeper) skipped() Result {
	s.metrics.runs.WithLabelValues("skipped").Inc()
	return Result{Skipped: true}
}

func (s *Sweeper) sweep(ctx context.Context) Result {
	now := s.clock()
	res := Result{StartedAt: now, Threshold: now.Add(-s.grace)}

	rows, err := s.store.QueryLeftBefore(ctx, res.Threshold)
	if err != nil {
		res.QueryErr = err
		return res
	}
	res.Candidates = len(rows)

	for i := range rows {
		cand := &rows[i]
		if err := s.markAbsent(ctx, cand, now, &res); err != nil {
			res.Failures = append(res.Failures, Failure{
				RecordID:  cand.AttendanceRecordID,
				StudentID: cand.AttendanceRecordStudentID,
				ClassID:   cand.AttendanceRecordClassID,
				Err:       err,
			})
			log.Printf("[SWEEPER] record=%s gagal: %v", cand.AttendanceRecordID, err)
		}
	}
	return res
}

func (s *Sweeper) markAbsent(ctx context.Context, cand *model.AttendanceRecordModel, now time.Time, res *Result) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	// baca ulang: guru bisa saja sudah menandai returned setelah query
	current, err := s.store.FindTodayRecord(ctx, cand.AttendanceRecordStudentID, cand.AttendanceRecordClassID, cand.Day())
	if err != nil {
		return err
	}
	if current == nil || current.AttendanceRecordStatus != model.AttendanceLeft {
		res.Stale++
		return nil
	}

	next, err := transition.Decide(current, transition.Command{
		StudentID: current.AttendanceRecordStudentID,
		ClassID:   current.AttendanceRecordClassID,
		Date:      current.Day(),
		Status:    model.AttendanceAbsent,
		Actor:     model.SystemActor,
	}, now)
	if err != nil {
		return err
	}
	saved, err := s.store.Upsert(ctx, next)
	if err != nil {
		return err
	}
	res.Succeeded++
	s.dispatcher.Dispatch(notify.NewEvent(saved, current, now))
	return nil
}

// Start schedules RunOnce every Interval. Calling Start twice is a no-op.
func (s *Sweeper) Start() {
	s.cronMu.Lock()
	defer s.cronMu.Unlock()
	if s.cron != nil {
		return
	}
	s.stopping.Store(false)

	c := cron.New(cron.WithChain(
		cron.Recover(cron.DefaultLogger),
		cron.SkipIfStillRunning(cron.DefaultLogger),
	))
	spec := "@every " + s.interval.String()
	if _, err := c.AddFunc(spec, func() { s.RunOnce(context.Background()) }); err != nil {
		log.Printf("[SWEEPER] ❌ schedule %q invalid: %v", spec, err)
		return
	}
	c.Start()
	s.cron = c
	log.Printf("[SWEEPER] ✅ started: every %s, grace %s", s.interval, s.grace)
}

// Stop prevents new runs and waits for the in-flight one to finish, or
// for ctx to expire.
func (s *Sweeper) Stop(ctx context.Context) error {
	s.stopping.Store(true)

	s.cronMu.Lock()
	c := s.cron
	s.cron = nil
	s.cronMu.Unlock()

	done := make(chan struct{})
	go func() {
		if c != nil {
			<-c.Stop().Done()
		}
		// manual run (HTTP) tidak lewat cron; tunggu via mutex
		s.running.Lock()
		s.running.Unlock()
		close(done)
	}()

	select {
	case <-done:
		log.Println("[SWEEPER] 🛑 stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("sweeper stop: %w", ctx.Err())
	}
}
