// internals/features/school/classes/dto/classes_dto.go
package dto

import (
	"errors"
	"strings"
	"time"

	"attendance_backend/internals/features/school/classes/model"
	"attendance_backend/internals/helpers/dbtime"

	"github.com/google/uuid"
)

/* =========================================================
   CLASS
========================================================= */

type CreateClassRequest struct {
	ClassName        string  `json:"class_name"                  validate:"required,max=100"`
	ClassDescription *string `json:"class_description,omitempty" validate:"omitempty,max=200"`
	ClassSubject     *string `json:"class_subject,omitempty"     validate:"omitempty,max=50"`
	ClassRoom        *string `json:"class_room,omitempty"        validate:"omitempty,max=20"`
	ClassStartTime   string  `json:"class_start_time"            validate:"required"` // "HH:MM"
	ClassEndTime     string  `json:"class_end_time"              validate:"required"`
	ClassTeacherID   *string `json:"class_teacher_id,omitempty"  validate:"omitempty,max=64"`

	start dbtime.Tod
	end   dbtime.Tod
}

func (r *CreateClassRequest) Normalize() {
	r.ClassName = strings.Join(strings.Fields(r.ClassName), " ")
	r.ClassDescription = trimPtr(r.ClassDescription)
	r.ClassSubject = trimPtr(r.ClassSubject)
	r.ClassRoom = trimPtr(r.ClassRoom)
	r.ClassTeacherID = trimPtr(r.ClassTeacherID)
	r.ClassStartTime = strings.TrimSpace(r.ClassStartTime)
	r.ClassEndTime = strings.TrimSpace(r.ClassEndTime)
}

// Validate: jam harus HH:MM dan selesai setelah mulai.
func (r *CreateClassRequest) Validate() error {
	start, err := dbtime.Parse(r.ClassStartTime)
	if err != nil {
		return errors.New("class_start_time harus format HH:MM")
	}
	end, err := dbtime.Parse(r.ClassEndTime)
	if err != nil {
		return errors.New("class_end_time harus format HH:MM")
	}
	if !start.Before(end) {
		return errors.New("class_end_time harus setelah class_start_time")
	}
	r.start, r.end = start, end
	return nil
}

// ToModel dipanggil setelah Validate.
func (r *CreateClassRequest) ToModel() *model.ClassModel {
	return &model.ClassModel{
		ClassName:        r.ClassName,
		ClassDescription: r.ClassDescription,
		ClassSubject:     r.ClassSubject,
		ClassRoom:        r.ClassRoom,
		ClassStartTime:   r.start,
		ClassEndTime:     r.end,
		ClassTeacherID:   r.ClassTeacherID,
		ClassIsActive:    true,
	}
}

type ClassResponse struct {
	ClassID          uuid.UUID `json:"class_id"`
	ClassName        string    `json:"class_name"`
	ClassDescription *string   `json:"class_description,omitempty"`
	ClassSubject     *string   `json:"class_subject,omitempty"`
	ClassRoom        *string   `json:"class_room,omitempty"`
	ClassStartTime   string    `json:"class_start_time"`
	ClassEndTime     string    `json:"class_end_time"`
	ClassTime        string    `json:"class_time"`
	ClassTeacherID   *string   `json:"class_teacher_id,omitempty"`
	ClassIsActive    bool      `json:"class_is_active"`
	ClassCreatedAt   time.Time `json:"class_created_at"`
	ClassUpdatedAt   time.Time `json:"class_updated_at"`
}

func FromClassModel(m *model.ClassModel) ClassResponse {
	return ClassResponse{
		ClassID:          m.ClassID,
		ClassName:        m.ClassName,
		ClassDescription: m.ClassDescription,
		ClassSubject:     m.ClassSubject,
		ClassRoom:        m.ClassRoom,
		ClassStartTime:   m.ClassStartTime.String(),
		ClassEndTime:     m.ClassEndTime.String(),
		ClassTime:        m.ClassTime(),
		ClassTeacherID:   m.ClassTeacherID,
		ClassIsActive:    m.ClassIsActive,
		ClassCreatedAt:   m.ClassCreatedAt,
		ClassUpdatedAt:   m.ClassUpdatedAt,
	}
}

func FromClassModels(rows []model.ClassModel) []ClassResponse {
	out := make([]ClassResponse, 0, len(rows))
	for i := range rows {
		out = append(out, FromClassModel(&rows[i]))
	}
	return out
}

/* =========================================================
   STUDENT
========================================================= */

type CreateStudentRequest struct {
	StudentFirstName string    `json:"student_first_name"      validate:"required,max=100"`
	StudentLastName  string    `json:"student_last_name"       validate:"required,max=100"`
	StudentNumber    string    `json:"student_number"          validate:"required,max=50"`
	StudentEmail     *string   `json:"student_email,omitempty" validate:"omitempty,email,max=100"`
	StudentPhone     *string   `json:"student_phone,omitempty" validate:"omitempty,max=20"`
	StudentClassID   uuid.UUID `json:"student_class_id"        validate:"required"`
	StudentUserID    *string   `json:"student_user_id,omitempty" validate:"omitempty,max=64"`
}

func (r *CreateStudentRequest) Normalize() {
	r.StudentFirstName = strings.Join(strings.Fields(r.StudentFirstName), " ")
	r.StudentLastName = strings.Join(strings.Fields(r.StudentLastName), " ")
	r.StudentNumber = strings.TrimSpace(r.StudentNumber)
	r.StudentEmail = trimPtr(r.StudentEmail)
	if r.StudentEmail != nil {
		e := strings.ToLower(*r.StudentEmail)
		r.StudentEmail = &e
	}
	r.StudentPhone = trimPtr(r.StudentPhone)
	r.StudentUserID = trimPtr(r.StudentUserID)
}

func (r *CreateStudentRequest) ToModel() *model.StudentModel {
	return &model.StudentModel{
		StudentFirstName: r.StudentFirstName,
		StudentLastName:  r.StudentLastName,
		StudentNumber:    r.StudentNumber,
		StudentEmail:     r.StudentEmail,
		StudentPhone:     r.StudentPhone,
		StudentClassID:   r.StudentClassID,
		StudentUserID:    r.StudentUserID,
		StudentIsActive:  true,
	}
}

type StudentResponse struct {
	StudentID        uuid.UUID `json:"student_id"`
	StudentFirstName string    `json:"student_first_name"`
	StudentLastName  string    `json:"student_last_name"`
	StudentFullName  string    `json:"student_full_name"`
	StudentNumber    string    `json:"student_number"`
	StudentEmail     *string   `json:"student_email,omitempty"`
	StudentPhone     *string   `json:"student_phone,omitempty"`
	StudentClassID   uuid.UUID `json:"student_class_id"`
	StudentIsActive  bool      `json:"student_is_active"`
	StudentCreatedAt time.Time `json:"student_created_at"`
}

func FromStudentModel(m *model.StudentModel) StudentResponse {
	return StudentResponse{
		StudentID:        m.StudentID,
		StudentFirstName: m.StudentFirstName,
		StudentLastName:  m.StudentLastName,
		StudentFullName:  m.FullName(),
		StudentNumber:    m.StudentNumber,
		StudentEmail:     m.StudentEmail,
		StudentPhone:     m.StudentPhone,
		StudentClassID:   m.StudentClassID,
		StudentIsActive:  m.StudentIsActive,
		StudentCreatedAt: m.StudentCreatedAt,
	}
}

func FromStudentModels(rows []model.StudentModel) []StudentResponse {
	out := make([]StudentResponse, 0, len(rows))
	for i := range rows {
		out = append(out, FromStudentModel(&rows[i]))
	}
	return out
}

func trimPtr(p *string) *string {
	if p == nil {
		return nil
	}
	s := strings.TrimSpace(*p)
	if s == "" {
		return nil
	}
	return &s
}
