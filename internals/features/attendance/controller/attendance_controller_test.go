package controller

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"attendance_backend/internals/features/attendance/backup"
	"attendance_backend/internals/features/attendance/dto"
	"attendance_backend/internals/features/attendance/model"
	"attendance_backend/internals/features/attendance/repository"
	"attendance_backend/internals/features/attendance/service"
	"attendance_backend/internals/features/attendance/sweeper"
	helper "attendance_backend/internals/helpers"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type roster struct {
	classID   uuid.UUID
	studentID uuid.UUID
}

func (r roster) IsActiveEnrollment(_ context.Context, studentID, classID uuid.UUID) (bool, error) {
	return studentID == r.studentID && classID == r.classID, nil
}
func (r roster) ClassExists(_ context.Context, classID uuid.UUID) (bool, error) {
	return classID == r.classID, nil
}
func (r roster) ClassName(_ context.Context, classID uuid.UUID) (string, error) {
	if classID != r.classID {
		return "", nil
	}
	return "Kelas 7A", nil
}
func (r roster) StudentExists(_ context.Context, studentID uuid.UUID) (bool, error) {
	return studentID == r.studentID, nil
}
func (r roster) StudentNames(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error) {
	out := map[uuid.UUID]string{}
	for _, id := range ids {
		if id == r.studentID {
			out[id] = "Ani Wijaya"
		}
	}
	return out, nil
}

func (r roster) ActiveClassIDs(context.Context) ([]uuid.UUID, error) {
	return []uuid.UUID{r.classID}, nil
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type fixture struct {
	app     *fiber.App
	store   *repository.MemoryStore
	clock   *clock
	roster  roster
	archive string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:   repository.NewMemoryStore(),
		clock:   &clock{now: time.Date(2026, 10, 15, 7, 30, 0, 0, time.UTC)},
		roster:  roster{classID: uuid.New(), studentID: uuid.New()},
		archive: t.TempDir(),
	}

	svc := service.NewAttendanceService(f.store, f.roster, service.WithClock(f.clock.Now))
	sw := sweeper.New(f.store, sweeper.Config{Clock: f.clock.Now})
	arc := backup.NewArchiver(svc, f.roster, &backup.DirPutter{Dir: f.archive}, time.UTC)
	arc.Clock = f.clock.Now
	h := NewAttendanceController(svc, sw, arc)

	app := fiber.New(fiber.Config{ErrorHandler: helper.FromFiberError})
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("user_id", "teacher-1")
		return c.Next()
	})
	app.Post("/attendance/mark", h.Mark)
	app.Post("/attendance/sweep", h.Sweep)
	app.Get("/classes/:class_id/attendance/today", h.Today)
	app.Get("/classes/:class_id/attendance/report", h.Report)
	app.Get("/classes/:class_id/attendance/stats", h.Stats)
	app.Get("/classes/:class_id/attendance/export", h.Export)
	app.Post("/classes/:class_id/attendance/archive", h.Archive)
	app.Get("/students/:student_id/attendance/history", h.History)
	f.app = app
	return f
}

type envelope struct {
	Success   bool            `json:"success"`
	Message   string          `json:"message"`
	ErrorCode string          `json:"error_code"`
	Errors    map[string]any  `json:"errors"`
	Data      json.RawMessage `json:"data"`
}

func (f *fixture) raw(t *testing.T, method, path, body string) (int, string, []byte) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := f.app.Test(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, resp.Header.Get(fiber.HeaderContentDisposition), b
}

func (f *fixture) call(t *testing.T, method, path, body string) (int, envelope) {
	t.Helper()
	code, _, b := f.raw(t, method, path, body)
	var env envelope
	if err := json.Unmarshal(b, &env); err != nil {
		t.Fatalf("decode %s: %v", b, err)
	}
	return code, env
}

func (f *fixture) mark(t *testing.T, status string) (int, envelope) {
	t.Helper()
	body := `{"student_id":"` + f.roster.studentID.String() + `","class_id":"` + f.roster.classID.String() + `","status":"` + status + `"}`
	return f.call(t, "POST", "/attendance/mark", body)
}

func (f *fixture) classPath(suffix string) string {
	return "/classes/" + f.roster.classID.String() + "/attendance/" + suffix
}

func TestMarkFlow(t *testing.T) {
	f := newFixture(t)

	code, env := f.mark(t, "present")
	if code != 200 || !env.Success {
		t.Fatalf("present: %d %+v", code, env)
	}
	f.clock.Advance(time.Hour)
	code, env = f.mark(t, " LEFT ")
	if code != 200 {
		t.Fatalf("left: %d %+v", code, env)
	}
	var rec dto.AttendanceRecordResponse
	if err := json.Unmarshal(env.Data, &rec); err != nil {
		t.Fatal(err)
	}
	if rec.AttendanceRecordStatus != model.AttendanceLeft || rec.AttendanceRecordLeftAt == nil {
		t.Fatalf("record = %+v", rec)
	}
	if rec.AttendanceRecordMarkedBy != "teacher-1" || rec.StatusText != "Left at 08:30" {
		t.Fatalf("record = %+v", rec)
	}
	if f.store.Len() != 1 {
		t.Fatalf("store has %d records, want 1", f.store.Len())
	}
}

func TestMarkRejectsBadInput(t *testing.T) {
	f := newFixture(t)

	if code, env := f.mark(t, "sleeping"); code != 400 || env.ErrorCode != "BAD_REQUEST" {
		t.Fatalf("invalid status: %d %+v", code, env)
	}
	if code, _ := f.call(t, "POST", "/attendance/mark", `{"student_id":"nope"}`); code != 400 {
		t.Fatalf("bad uuid: %d", code)
	}
	if code, env := f.call(t, "POST", "/attendance/mark", `{"status":"present"}`); code != 422 || env.Errors["StudentID"] == nil {
		t.Fatalf("missing ids: %d %+v", code, env)
	}

	body := `{"student_id":"` + uuid.NewString() + `","class_id":"` + f.roster.classID.String() + `","status":"present"}`
	if code, _ := f.call(t, "POST", "/attendance/mark", body); code != 404 {
		t.Fatalf("not enrolled: %d", code)
	}
	if f.store.Len() != 0 {
		t.Fatalf("rejected marks wrote %d records", f.store.Len())
	}
}

func TestTodayAndStats(t *testing.T) {
	f := newFixture(t)
	f.mark(t, "present")

	code, env := f.call(t, "GET", f.classPath("today"), "")
	if code != 200 {
		t.Fatalf("today: %d %+v", code, env)
	}
	var rows []dto.AttendanceRecordResponse
	if err := json.Unmarshal(env.Data, &rows); err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || rows[0].StudentName != "Ani Wijaya" || rows[0].StatusClass != "success" {
		t.Fatalf("rows = %+v", rows)
	}

	code, env = f.call(t, "GET", f.classPath("stats?from=2026-10-01&to=2026-10-15"), "")
	if code != 200 {
		t.Fatalf("stats: %d %+v", code, env)
	}
	var stats dto.StatsResponse
	if err := json.Unmarshal(env.Data, &stats); err != nil {
		t.Fatal(err)
	}
	if stats.Stats["Present"] != 1 || stats.Stats["Absent"] != 0 || stats.From != "2026-10-01" {
		t.Fatalf("stats = %+v", stats)
	}

	if code, _ := f.call(t, "GET", "/classes/"+uuid.NewString()+"/attendance/today", ""); code != 404 {
		t.Fatalf("unknown class: %d", code)
	}
	if code, _ := f.call(t, "GET", "/classes/xyz/attendance/today", ""); code != 400 {
		t.Fatalf("bad class id: %d", code)
	}
	if code, _ := f.call(t, "GET", f.classPath("report?from=15-10-2026"), ""); code != 400 {
		t.Fatalf("bad date: %d", code)
	}
}

func TestReportAndHistory(t *testing.T) {
	f := newFixture(t)
	f.mark(t, "present")

	code, env := f.call(t, "GET", f.classPath("report"), "")
	if code != 200 {
		t.Fatalf("report: %d %+v", code, env)
	}
	var rep dto.ClassReportResponse
	if err := json.Unmarshal(env.Data, &rep); err != nil {
		t.Fatal(err)
	}
	if len(rep.Records) != 1 || rep.To != "2026-10-15" || rep.From != "2026-09-16" {
		t.Fatalf("report = %+v", rep)
	}

	code, env = f.call(t, "GET", "/students/"+f.roster.studentID.String()+"/attendance/history", "")
	if code != 200 {
		t.Fatalf("history: %d %+v", code, env)
	}
	var hist dto.HistoryResponse
	if err := json.Unmarshal(env.Data, &hist); err != nil {
		t.Fatal(err)
	}
	if len(hist.Records) != 1 || hist.StudentID != f.roster.studentID {
		t.Fatalf("history = %+v", hist)
	}

	if code, _ := f.call(t, "GET", "/students/"+uuid.NewString()+"/attendance/history", ""); code != 404 {
		t.Fatalf("unknown student: %d", code)
	}
}

func TestStoreUnavailable(t *testing.T) {
	f := newFixture(t)
	f.store.FailQuery = func(string) error { return errors.New("connection reset") }

	code, env := f.call(t, "GET", f.classPath("today"), "")
	if code != 503 || env.ErrorCode != "STORE_UNAVAILABLE" {
		t.Fatalf("today: %d %+v", code, env)
	}
	if code, _ := f.call(t, "POST", "/attendance/sweep", ""); code != 503 {
		t.Fatalf("sweep: %d", code)
	}
}

func TestExportCSV(t *testing.T) {
	f := newFixture(t)
	f.mark(t, "present")

	code, disp, body := f.raw(t, "GET", f.classPath("export?from=2026-10-01&to=2026-10-15"), "")
	if code != 200 {
		t.Fatalf("export: %d %s", code, body)
	}
	if !strings.Contains(disp, "Attendance_Kelas_7A_2026-10-01_to_2026-10-15.csv") {
		t.Fatalf("content-disposition = %q", disp)
	}
	want := "Student Name,Date,Status,Left At,Returned At,Marked Absent At\n" +
		"Ani Wijaya,2026-10-15,Present,,,\n"
	if string(body) != want {
		t.Fatalf("csv = %q", body)
	}
}

func TestArchiveWritesFile(t *testing.T) {
	f := newFixture(t)
	f.mark(t, "present")

	code, env := f.call(t, "POST", f.classPath("archive?from=2026-10-15&to=2026-10-15"), "")
	if code != 201 {
		t.Fatalf("archive: %d %+v", code, env)
	}
	var arc backup.Archive
	if err := json.Unmarshal(env.Data, &arc); err != nil {
		t.Fatal(err)
	}
	if arc.Rows != 1 {
		t.Fatalf("archive = %+v", arc)
	}
	if _, err := os.Stat(filepath.Join(f.archive, filepath.FromSlash(arc.Key))); err != nil {
		t.Fatalf("archived file missing: %v", err)
	}
}

func TestSweepMarksAbsent(t *testing.T) {
	f := newFixture(t)
	f.mark(t, "present")
	f.mark(t, "left")

	code, env := f.call(t, "POST", "/attendance/sweep", "")
	if code != 200 {
		t.Fatalf("sweep: %d %+v", code, env)
	}
	var res dto.SweepResponse
	if err := json.Unmarshal(env.Data, &res); err != nil {
		t.Fatal(err)
	}
	if res.Candidates != 0 || res.Succeeded != 0 {
		t.Fatalf("sweep inside grace = %+v", res)
	}

	f.clock.Advance(6 * time.Minute)
	_, env = f.call(t, "POST", "/attendance/sweep", "")
	res = dto.SweepResponse{}
	if err := json.Unmarshal(env.Data, &res); err != nil {
		t.Fatal(err)
	}
	if res.Candidates != 1 || res.Succeeded != 1 || res.Failed != 0 {
		t.Fatalf("sweep after grace = %+v", res)
	}

	_, env = f.call(t, "GET", f.classPath("today"), "")
	var rows []dto.AttendanceRecordResponse
	if err := json.Unmarshal(env.Data, &rows); err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || rows[0].AttendanceRecordStatus != model.AttendanceAbsent {
		t.Fatalf("rows = %+v", rows)
	}
}
