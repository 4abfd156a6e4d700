// Package backup archives class attendance exports to object storage.
package backup

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"attendance_backend/internals/features/attendance/report"
	"attendance_backend/internals/features/attendance/service"
	"attendance_backend/internals/helpers/dbtime"
	helperOSS "attendance_backend/internals/helpers/oss"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
)

type Exporter interface {
	ExportClassAttendance(ctx context.Context, classID uuid.UUID, from, to *time.Time) (*service.Export, error)
}

type ClassLister interface {
	ActiveClassIDs(ctx context.Context) ([]uuid.UUID, error)
}

type Archive struct {
	ClassID  uuid.UUID `json:"class_id"`
	From     string    `json:"from"`
	To       string    `json:"to"`
	Key      string    `json:"key"`
	Location string    `json:"location"`
	Rows     int       `json:"rows"`
	Bytes    int       `json:"bytes"`
}

type Archiver struct {
	Exporter Exporter
	Classes  ClassLister
	Putter   Putter
	Clock    dbtime.Clock
	Location *time.Location
}

func NewArchiver(exp Exporter, classes ClassLister, putter Putter, loc *time.Location) *Archiver {
	if loc == nil {
		loc = time.UTC
	}
	return &Archiver{Exporter: exp, Classes: classes, Putter: putter, Clock: dbtime.SystemClock, Location: loc}
}

// ArchiveClass renders the class export for [from, to] as CSV and stores it
// under attendance/<class_id>/<filename>.
func (a *Archiver) ArchiveClass(ctx context.Context, classID uuid.UUID, from, to *time.Time) (*Archive, error) {
	exp, err := a.Exporter.ExportClassAttendance(ctx, classID, from, to)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := report.WriteCSV(&buf, exp.Rows); err != nil {
		return nil, fmt.Errorf("render csv: %w", err)
	}

	key := helperOSS.JoinKey("attendance", classID.String(), exp.Filename())
	loc, err := a.Putter.Put(ctx, key, buf.Bytes(), "text/csv; charset=utf-8")
	if err != nil {
		return nil, err
	}

	log.Printf("[ARCHIVE] class=%s rows=%d → %s", classID, len(exp.Rows), loc)
	return &Archive{
		ClassID:  classID,
		From:     exp.From.Format(dbtime.DateLayout),
		To:       exp.To.Format(dbtime.DateLayout),
		Key:      key,
		Location: loc,
		Rows:     len(exp.Rows),
		Bytes:    buf.Len(),
	}, nil
}

// ArchivePreviousDay archives yesterday for every active class; one class
// failing does not stop the others.
func (a *Archiver) ArchivePreviousDay(ctx context.Context) ([]Archive, error) {
	ids, err := a.Classes.ActiveClassIDs(ctx)
	if err != nil {
		return nil, err
	}
	yesterday := dbtime.DayOf(a.Clock(), a.Location).AddDate(0, 0, -1)

	var (
		out  []Archive
		errs []error
	)
	for _, id := range ids {
		arc, err := a.ArchiveClass(ctx, id, &yesterday, &yesterday)
		if err != nil {
			errs = append(errs, fmt.Errorf("class %s: %w", id, err))
			continue
		}
		out = append(out, *arc)
	}
	return out, errors.Join(errs...)
}

// StartCron menjadwalkan ArchivePreviousDay (mis. "15 2 * * *" di zona sekolah).
func (a *Archiver) StartCron(schedule string) (*cron.Cron, error) {
	c := cron.New(
		cron.WithLocation(a.Location),
		cron.WithChain(cron.Recover(cron.DefaultLogger), cron.SkipIfStillRunning(cron.DefaultLogger)),
	)
	_, err := c.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()
		done, err := a.ArchivePreviousDay(ctx)
		if err != nil {
			log.Printf("[ARCHIVE] ❌ %d archived, errors: %v", len(done), err)
			return
		}
		log.Printf("[ARCHIVE] ✅ %d classes archived", len(done))
	})
	if err != nil {
		return nil, fmt.Errorf("archive schedule %q: %w", schedule, err)
	}
	c.Start()
	log.Printf("[ARCHIVE] started schedule=%q tz=%s", schedule, a.Location)
	return c, nil
}
