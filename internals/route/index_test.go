package routes

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	attctrl "attendance_backend/internals/features/attendance/controller"
	classsvc "attendance_backend/internals/features/school/classes/service"
	helper "attendance_backend/internals/helpers"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func newApp(ping func(context.Context) error, reg *prometheus.Registry) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: helper.FromFiberError})
	SetupRoutes(app, Deps{
		Roster:     &classsvc.RosterService{},
		Attendance: &attctrl.AttendanceController{},
		Gatherer:   reg,
		Ping:       ping,
	})
	return app
}

func get(t *testing.T, app *fiber.App, path string) (int, string) {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest("GET", path, nil))
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(b)
}

func TestHealth(t *testing.T) {
	ok := newApp(func(context.Context) error { return nil }, prometheus.NewRegistry())
	if code, body := get(t, ok, "/health"); code != 200 || !strings.Contains(body, `"status":"OK"`) {
		t.Fatalf("healthy: %d %s", code, body)
	}

	down := newApp(func(context.Context) error { return errors.New("dial tcp: refused") }, prometheus.NewRegistry())
	if code, body := get(t, down, "/health"); code != 503 || !strings.Contains(body, `"status":"DOWN"`) {
		t.Fatalf("db down: %d %s", code, body)
	}
}

func TestMetricsExposesRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	promauto.With(reg).NewCounter(prometheus.CounterOpts{Name: "attendance_test_total", Help: "test"}).Inc()

	code, body := get(t, newApp(nil, reg), "/metrics")
	if code != 200 || !strings.Contains(body, "attendance_test_total 1") {
		t.Fatalf("metrics: %d %s", code, body)
	}
}

func TestAPIRequiresToken(t *testing.T) {
	app := newApp(nil, prometheus.NewRegistry())
	for _, path := range []string{"/api/classes", "/api/classes/00000000-0000-0000-0000-000000000000/attendance/today"} {
		if code, _ := get(t, app, path); code != 401 {
			t.Fatalf("%s without token: %d, want 401", path, code)
		}
	}
}
