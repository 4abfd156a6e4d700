package route

import (
	classctrl "attendance_backend/internals/features/school/classes/controller"
	"attendance_backend/internals/features/school/classes/service"

	"github.com/gofiber/fiber/v2"
)

// ClassRoutes: api sudah lewat AuthJWT di level group.
func ClassRoutes(api fiber.Router, svc *service.RosterService) {
	h := classctrl.NewClassController(svc)

	classes := api.Group("/classes")
	classes.Post("/", h.CreateClass)
	classes.Get("/", h.ListClasses)
	classes.Get("/:class_id", h.GetClass)
	classes.Patch("/:class_id/deactivate", h.DeactivateClass)
	classes.Get("/:class_id/students", h.ListStudents)

	students := api.Group("/students")
	students.Post("/", h.CreateStudent)
	students.Patch("/:student_id/deactivate", h.DeactivateStudent)
}
