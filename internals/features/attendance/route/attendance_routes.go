package route

import (
	attctrl "attendance_backend/internals/features/attendance/controller"
	"attendance_backend/internals/middlewares"

	"github.com/gofiber/fiber/v2"
)

// AttendanceRoutes: api sudah lewat AuthJWT di level group.
func AttendanceRoutes(api fiber.Router, h *attctrl.AttendanceController) {
	att := api.Group("/attendance")
	att.Post("/mark", h.Mark)
	att.Post("/sweep", middlewares.SweepRateLimiter(), h.Sweep)

	classes := api.Group("/classes/:class_id/attendance")
	classes.Get("/today", h.Today)
	classes.Get("/report", h.Report)
	classes.Get("/stats", h.Stats)
	classes.Get("/export", h.Export)
	classes.Post("/archive", h.Archive)

	api.Get("/students/:student_id/attendance/history", h.History)
}
