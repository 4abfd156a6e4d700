// Package notify delivers attendance change events to students.
//
// Delivery is fire-and-forget from the caller's point of view: the record is
// already persisted when an event is dispatched, and a failing notifier is
// logged, never propagated back into the mark or the sweep.
package notify

import (
	"context"
	"log"
	"sync"
	"time"

	"attendance_backend/internals/features/attendance/model"
)

type EventKind string

const (
	EventStatusChanged EventKind = "status_changed"
	EventMarkedAbsent  EventKind = "marked_absent"
)

type Event struct {
	Kind     EventKind
	Record   model.AttendanceRecordModel
	Previous *model.AttendanceStatus // nil: first mark of the day
	At       time.Time
}

// NewEvent picks marked_absent for transitions into Absent, status_changed otherwise.
func NewEvent(rec *model.AttendanceRecordModel, previous *model.AttendanceRecordModel, at time.Time) Event {
	ev := Event{Kind: EventStatusChanged, Record: *rec.Clone(), At: at}
	if previous != nil {
		p := previous.AttendanceRecordStatus
		ev.Previous = &p
	}
	if rec.AttendanceRecordStatus == model.AttendanceAbsent {
		ev.Kind = EventMarkedAbsent
	}
	return ev
}

type Notifier interface {
	Notify(ctx context.Context, ev Event) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, ev Event) error

func (f NotifierFunc) Notify(ctx context.Context, ev Event) error { return f(ctx, ev) }

// Dispatcher menjalankan notifier di goroutine terpisah; Close menunggu semua selesai.
type Dispatcher struct {
	notifiers []Notifier
	timeout   time.Duration

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

func NewDispatcher(timeout time.Duration, notifiers ...Notifier) *Dispatcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Dispatcher{notifiers: notifiers, timeout: timeout}
}

// Dispatch never blocks on delivery and never returns an error.
func (d *Dispatcher) Dispatch(ev Event) {
	if d == nil || len(d.notifiers) == 0 {
		return
	}
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		log.Printf("[NOTIFY] dispatcher closed, drop %s for record %s", ev.Kind, ev.Record.AttendanceRecordID)
		return
	}
	d.wg.Add(1)
	d.mu.Unlock()

	go func() {
		defer d.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				log.Printf("[NOTIFY] panic: %v", r)
			}
		}()
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()
		for _, n := range d.notifiers {
			if err := n.Notify(ctx, ev); err != nil {
				log.Printf("[NOTIFY] %s record=%s gagal: %v", ev.Kind, ev.Record.AttendanceRecordID, err)
			}
		}
	}()
}

// Close stops accepting events and waits for in-flight deliveries (or ctx).
func (d *Dispatcher) Close(ctx context.Context) error {
	if d == nil {
		return nil
	}
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// LogNotifier cuma menulis ke log; default kalau tidak ada channel lain.
type LogNotifier struct{}

func (LogNotifier) Notify(_ context.Context, ev Event) error {
	prev := "-"
	if ev.Previous != nil {
		prev = string(*ev.Previous)
	}
	log.Printf("[NOTIFY] %s student=%s class=%s %s→%s by=%s",
		ev.Kind,
		ev.Record.AttendanceRecordStudentID,
		ev.Record.AttendanceRecordClassID,
		prev,
		ev.Record.AttendanceRecordStatus,
		ev.Record.AttendanceRecordMarkedBy,
	)
	return nil
}
