package controller

import (
	"bytes"
	"errors"
	"log"
	"strings"

	"attendance_backend/internals/features/attendance/backup"
	"attendance_backend/internals/features/attendance/dto"
	"attendance_backend/internals/features/attendance/model"
	"attendance_backend/internals/features/attendance/report"
	"attendance_backend/internals/features/attendance/service"
	"attendance_backend/internals/features/attendance/sweeper"
	helper "attendance_backend/internals/helpers"
	"attendance_backend/internals/helpers/dbtime"
	"attendance_backend/internals/middlewares/auth"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type AttendanceController struct {
	Svc      *service.AttendanceService
	Sweeper  *sweeper.Sweeper
	Archiver *backup.Archiver
}

func NewAttendanceController(svc *service.AttendanceService, sw *sweeper.Sweeper, arc *backup.Archiver) *AttendanceController {
	return &AttendanceController{Svc: svc, Sweeper: sw, Archiver: arc}
}

var validate = validator.New()

/* =========================== MARK =========================== */

// POST /api/attendance/mark
func (ctrl *AttendanceController) Mark(c *fiber.Ctx) error {
	var req dto.MarkAttendanceRequest
	if err := c.BodyParser(&req); err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, "Payload tidak valid")
	}
	req.Normalize()
	if err := validate.Struct(req); err != nil {
		return helper.JsonValidationError(c, err)
	}

	status, err := model.ParseAttendanceStatus(req.Status)
	if err != nil {
		return attendanceError(c, err)
	}

	actor := auth.Actor(c)
	if actor == "" {
		return helper.JsonError(c, fiber.StatusUnauthorized, "Unauthorized - actor tidak diketahui")
	}

	rec, err := ctrl.Svc.MarkAttendance(c.UserContext(), service.MarkInput{
		StudentID: req.StudentID,
		ClassID:   req.ClassID,
		Status:    status,
		Actor:     actor,
		Notes:     req.Notes,
	})
	if err != nil {
		return attendanceError(c, err)
	}
	return helper.JsonOK(c, "Absensi "+status.DisplayName()+" tersimpan", dto.FromModel(rec, "", ctrl.Svc.Location))
}

/* =========================== CLASS VIEWS =========================== */

// GET /api/classes/:class_id/attendance/today
func (ctrl *AttendanceController) Today(c *fiber.Ctx) error {
	classID, err := uuidParam(c, "class_id")
	if err != nil {
		return err
	}
	rows, names, err := ctrl.Svc.GetTodayAttendance(c.UserContext(), classID)
	if err != nil {
		return attendanceError(c, err)
	}
	return helper.JsonList(c, "ok", dto.FromModels(rows, names, ctrl.Svc.Location), nil)
}

// GET /api/classes/:class_id/attendance/report?from=&to=
func (ctrl *AttendanceController) Report(c *fiber.Ctx) error {
	classID, rq, err := classAndRange(c)
	if err != nil {
		return err
	}
	ctx := c.UserContext()
	from, to := ctrl.Svc.ResolveRange(rq.From, rq.To)

	rows, err := ctrl.Svc.GetClassAttendanceReport(ctx, classID, &from, &to)
	if err != nil {
		return attendanceError(c, err)
	}
	names, err := ctrl.Svc.StudentNames(ctx, rows)
	if err != nil {
		return attendanceError(c, err)
	}
	return helper.JsonOK(c, "ok", dto.ClassReportResponse{
		ClassID: classID,
		From:    from.Format(dbtime.DateLayout),
		To:      to.Format(dbtime.DateLayout),
		Stats:   report.CountByStatus(rows),
		Records: dto.FromModels(rows, names, ctrl.Svc.Location),
	})
}

// GET /api/classes/:class_id/attendance/stats?from=&to=
func (ctrl *AttendanceController) Stats(c *fiber.Ctx) error {
	classID, rq, err := classAndRange(c)
	if err != nil {
		return err
	}
	from, to := ctrl.Svc.ResolveRange(rq.From, rq.To)
	stats, err := ctrl.Svc.GetAttendanceStats(c.UserContext(), classID, &from, &to)
	if err != nil {
		return attendanceError(c, err)
	}
	return helper.JsonOK(c, "ok", dto.StatsResponse{
		ClassID: classID,
		From:    from.Format(dbtime.DateLayout),
		To:      to.Format(dbtime.DateLayout),
		Stats:   stats,
	})
}

// GET /api/classes/:class_id/attendance/export?from=&to= → text/csv
func (ctrl *AttendanceController) Export(c *fiber.Ctx) error {
	classID, rq, err := classAndRange(c)
	if err != nil {
		return err
	}
	exp, err := ctrl.Svc.ExportClassAttendance(c.UserContext(), classID, rq.From, rq.To)
	if err != nil {
		return attendanceError(c, err)
	}

	var buf bytes.Buffer
	if err := report.WriteCSV(&buf, exp.Rows); err != nil {
		log.Printf("[ATTENDANCE] export csv class=%s: %v", classID, err)
		return helper.JsonError(c, fiber.StatusInternalServerError, "Gagal membuat CSV")
	}
	c.Attachment(exp.Filename())
	c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
	return c.Send(buf.Bytes())
}

// POST /api/classes/:class_id/attendance/archive?from=&to=
func (ctrl *AttendanceController) Archive(c *fiber.Ctx) error {
	if ctrl.Archiver == nil {
		return helper.JsonError(c, fiber.StatusServiceUnavailable, "Archive belum dikonfigurasi")
	}
	classID, rq, err := classAndRange(c)
	if err != nil {
		return err
	}
	arc, err := ctrl.Archiver.ArchiveClass(c.UserContext(), classID, rq.From, rq.To)
	if err != nil {
		return attendanceError(c, err)
	}
	return helper.JsonCreated(c, "Arsip absensi tersimpan", arc)
}

/* =========================== STUDENT =========================== */

// GET /api/students/:student_id/attendance/history?from=&to=
func (ctrl *AttendanceController) History(c *fiber.Ctx) error {
	studentID, err := uuidParam(c, "student_id")
	if err != nil {
		return err
	}
	rq, err := rangeQuery(c)
	if err != nil {
		return err
	}
	from, to := ctrl.Svc.ResolveRange(rq.From, rq.To)
	rows, err := ctrl.Svc.GetAttendanceHistory(c.UserContext(), studentID, &from, &to)
	if err != nil {
		return attendanceError(c, err)
	}
	return helper.JsonOK(c, "ok", dto.HistoryResponse{
		StudentID: studentID,
		From:      from.Format(dbtime.DateLayout),
		To:        to.Format(dbtime.DateLayout),
		Records:   dto.FromModels(rows, nil, ctrl.Svc.Location),
	})
}

/* =========================== SWEEP =========================== */

// POST /api/attendance/sweep
func (ctrl *AttendanceController) Sweep(c *fiber.Ctx) error {
	res := ctrl.Sweeper.RunOnce(c.UserContext())
	body := dto.FromSweepResult(res)

	switch {
	case res.Skipped:
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"success":    false,
			"message":    "Sweep sedang berjalan, coba lagi nanti",
			"error_code": "SWEEP_IN_PROGRESS",
			"data":       body,
		})
	case res.QueryErr != nil:
		return attendanceError(c, res.QueryErr)
	case res.Err() != nil:
		// sebagian record gagal; yang lain tetap tersimpan
		return helper.JsonOK(c, "Sweep selesai dengan kegagalan sebagian", body)
	}
	return helper.JsonOK(c, "Sweep selesai", body)
}

/* =========================== helpers =========================== */

func uuidParam(c *fiber.Ctx, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(c.Params(name)))
	if err != nil {
		return uuid.Nil, fiber.NewError(fiber.StatusBadRequest, name+" tidak valid")
	}
	return id, nil
}

func rangeQuery(c *fiber.Ctx) (dto.RangeQuery, error) {
	rq, err := dto.ParseRange(c.Query("from"), c.Query("to"))
	if err != nil {
		return dto.RangeQuery{}, fiber.NewError(fiber.StatusBadRequest, "from/to harus format YYYY-MM-DD")
	}
	return rq, nil
}

func classAndRange(c *fiber.Ctx) (uuid.UUID, dto.RangeQuery, error) {
	classID, err := uuidParam(c, "class_id")
	if err != nil {
		return uuid.Nil, dto.RangeQuery{}, err
	}
	rq, err := rangeQuery(c)
	if err != nil {
		return uuid.Nil, dto.RangeQuery{}, err
	}
	return classID, rq, nil
}

func attendanceError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, model.ErrInvalidStatus):
		return helper.JsonError(c, fiber.StatusBadRequest, "Status tidak valid (present|left|returned|absent)")
	case errors.Is(err, model.ErrNotFound):
		return helper.JsonError(c, fiber.StatusNotFound, err.Error())
	case errors.Is(err, model.ErrStoreUnavailable):
		log.Printf("[ATTENDANCE] store unavailable: %v", err)
		return helper.JsonError(c, fiber.StatusServiceUnavailable, "Penyimpanan absensi tidak tersedia, coba lagi")
	}
	log.Printf("[ATTENDANCE] unexpected error: %v", err)
	return helper.JsonError(c, fiber.StatusInternalServerError, "Terjadi kesalahan")
}
