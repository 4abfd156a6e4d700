package controller

import (
	"errors"
	"strings"

	"attendance_backend/internals/features/school/classes/dto"
	"attendance_backend/internals/features/school/classes/service"
	helper "attendance_backend/internals/helpers"
	"attendance_backend/internals/middlewares/auth"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

/* ================= Controller & Constructor ================= */

type ClassController struct {
	Svc *service.RosterService
}

func NewClassController(svc *service.RosterService) *ClassController {
	return &ClassController{Svc: svc}
}

var validate = validator.New()

/* =========================== CLASSES =========================== */

// POST /api/classes
func (ctrl *ClassController) CreateClass(c *fiber.Ctx) error {
	var req dto.CreateClassRequest
	if err := c.BodyParser(&req); err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, "Payload tidak valid")
	}
	req.Normalize()
	if err := validate.Struct(req); err != nil {
		return helper.JsonValidationError(c, err)
	}
	if err := req.Validate(); err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, err.Error())
	}

	// guru default = pembuat kelas
	if req.ClassTeacherID == nil {
		if actor := auth.Actor(c); actor != "" {
			req.ClassTeacherID = &actor
		}
	}

	m := req.ToModel()
	if err := ctrl.Svc.CreateClass(c.UserContext(), m); err != nil {
		return rosterError(c, err)
	}
	return helper.JsonCreated(c, "Kelas berhasil dibuat", dto.FromClassModel(m))
}

// GET /api/classes?include_inactive=true&page=&per_page=
func (ctrl *ClassController) ListClasses(c *fiber.Ctx) error {
	includeInactive := strings.EqualFold(strings.TrimSpace(c.Query("include_inactive")), "true")
	p := helper.ResolvePaging(c, 20, 100)

	rows, total, err := ctrl.Svc.ListClasses(c.UserContext(), includeInactive, p)
	if err != nil {
		return rosterError(c, err)
	}
	pg := helper.BuildPagination(total, p, len(rows))
	return helper.JsonList(c, "ok", dto.FromClassModels(rows), &pg)
}

// GET /api/classes/:class_id
func (ctrl *ClassController) GetClass(c *fiber.Ctx) error {
	classID, err := uuidParam(c, "class_id")
	if err != nil {
		return err
	}
	m, err := ctrl.Svc.GetClass(c.UserContext(), classID)
	if err != nil {
		return rosterError(c, err)
	}
	return helper.JsonOK(c, "ok", dto.FromClassModel(m))
}

// PATCH /api/classes/:class_id/deactivate
func (ctrl *ClassController) DeactivateClass(c *fiber.Ctx) error {
	classID, err := uuidParam(c, "class_id")
	if err != nil {
		return err
	}
	m, err := ctrl.Svc.DeactivateClass(c.UserContext(), classID)
	if err != nil {
		return rosterError(c, err)
	}
	return helper.JsonUpdated(c, "Kelas dinonaktifkan", dto.FromClassModel(m))
}

/* =========================== STUDENTS =========================== */

// POST /api/students
func (ctrl *ClassController) CreateStudent(c *fiber.Ctx) error {
	var req dto.CreateStudentRequest
	if err := c.BodyParser(&req); err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, "Payload tidak valid")
	}
	req.Normalize()
	if err := validate.Struct(req); err != nil {
		return helper.JsonValidationError(c, err)
	}

	m := req.ToModel()
	if err := ctrl.Svc.CreateStudent(c.UserContext(), m); err != nil {
		return rosterError(c, err)
	}
	return helper.JsonCreated(c, "Siswa berhasil ditambahkan", dto.FromStudentModel(m))
}

// GET /api/classes/:class_id/students
func (ctrl *ClassController) ListStudents(c *fiber.Ctx) error {
	classID, err := uuidParam(c, "class_id")
	if err != nil {
		return err
	}
	rows, err := ctrl.Svc.ListStudents(c.UserContext(), classID)
	if err != nil {
		return rosterError(c, err)
	}
	return helper.JsonList(c, "ok", dto.FromStudentModels(rows), nil)
}

// PATCH /api/students/:student_id/deactivate
func (ctrl *ClassController) DeactivateStudent(c *fiber.Ctx) error {
	studentID, err := uuidParam(c, "student_id")
	if err != nil {
		return err
	}
	m, err := ctrl.Svc.DeactivateStudent(c.UserContext(), studentID)
	if err != nil {
		return rosterError(c, err)
	}
	return helper.JsonUpdated(c, "Siswa dinonaktifkan", dto.FromStudentModel(m))
}

/* =========================== helpers =========================== */

func uuidParam(c *fiber.Ctx, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(c.Params(name)))
	if err != nil {
		return uuid.Nil, fiber.NewError(fiber.StatusBadRequest, name+" tidak valid")
	}
	return id, nil
}

func rosterError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrClassNotFound):
		return helper.JsonError(c, fiber.StatusNotFound, "Kelas tidak ditemukan")
	case errors.Is(err, service.ErrStudentNotFound):
		return helper.JsonError(c, fiber.StatusNotFound, "Siswa tidak ditemukan")
	case errors.Is(err, service.ErrClassInactive):
		return helper.JsonError(c, fiber.StatusConflict, "Kelas sudah nonaktif")
	case errors.Is(err, service.ErrDuplicateNumber):
		return helper.JsonError(c, fiber.StatusConflict, "Nomor induk siswa sudah dipakai")
	}
	status, msg := helper.MapPGError(err)
	return helper.JsonError(c, status, msg)
}
