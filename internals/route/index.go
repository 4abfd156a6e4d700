// file: internals/route/index.go
package routes

import (
	"context"
	"log"
	"os"
	"time"

	attctrl "attendance_backend/internals/features/attendance/controller"
	attroute "attendance_backend/internals/features/attendance/route"
	classroute "attendance_backend/internals/features/school/classes/route"
	classsvc "attendance_backend/internals/features/school/classes/service"
	"attendance_backend/internals/middlewares/auth"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var startTime time.Time

// Deps: semua yang dibutuhkan route; dirakit di main.
type Deps struct {
	Roster     *classsvc.RosterService
	Attendance *attctrl.AttendanceController
	Gatherer   prometheus.Gatherer
	// Ping cek DB untuk /health; nil = skip.
	Ping func(ctx context.Context) error
}

func SetupRoutes(app *fiber.App, d Deps) {
	startTime = time.Now()

	log.Println("[INFO] Setting up base routes...")
	BaseRoutes(app, d)

	// ===================== PRIVATE =====================
	log.Println("[INFO] Setting up /api group (AuthJWT)...")
	api := app.Group("/api", auth.AuthMiddleware())

	log.Println("[INFO] Mounting class & student routes...")
	classroute.ClassRoutes(api, d.Roster)

	log.Println("[INFO] Mounting attendance routes...")
	attroute.AttendanceRoutes(api, d.Attendance)
}

func BaseRoutes(app *fiber.App, d Deps) {
	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString("Attendance service is running 🚀")
	})

	app.Get("/health", func(c *fiber.Ctx) error {
		dbStatus := "Connected"
		serverStatus := "OK"
		httpStatus := fiber.StatusOK

		if d.Ping != nil {
			ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
			defer cancel()
			if err := d.Ping(ctx); err != nil {
				log.Printf("[HEALTH] db ping: %v", err)
				dbStatus = "Database connection error"
				serverStatus = "DOWN"
				httpStatus = fiber.StatusServiceUnavailable
			}
		}

		return c.Status(httpStatus).JSON(fiber.Map{
			"status":         serverStatus,
			"database":       dbStatus,
			"server_time":    time.Now().Format(time.RFC3339),
			"uptime_seconds": int(time.Since(startTime).Seconds()),
			"environment":    os.Getenv("RAILWAY_ENVIRONMENT"),
		})
	})

	gatherer := d.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
}
