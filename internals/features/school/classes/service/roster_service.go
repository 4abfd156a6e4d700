// internals/features/school/classes/service/roster_service.go
package service

import (
	"context"
	"errors"
	"fmt"

	"attendance_backend/internals/features/school/classes/model"
	helper "attendance_backend/internals/helpers"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrClassNotFound   = errors.New("class not found")
	ErrClassInactive   = errors.New("class is inactive")
	ErrStudentNotFound = errors.New("student not found")
	ErrDuplicateNumber = errors.New("student number already used")
)

// RosterService: CRUD kelas & siswa, plus pertanyaan enrollment untuk attendance.
type RosterService struct {
	DB *gorm.DB
}

func NewRosterService(db *gorm.DB) *RosterService {
	return &RosterService{DB: db}
}

/* ============================ CLASSES ============================ */

func (s *RosterService) CreateClass(ctx context.Context, m *model.ClassModel) error {
	if err := s.DB.WithContext(ctx).Create(m).Error; err != nil {
		return fmt.Errorf("create class: %w", err)
	}
	return nil
}

// ListClasses: aktif saja kecuali includeInactive, urut nama.
func (s *RosterService) ListClasses(ctx context.Context, includeInactive bool, p helper.Paging) ([]model.ClassModel, int64, error) {
	q := s.DB.WithContext(ctx).Model(&model.ClassModel{})
	if !includeInactive {
		q = q.Where("class_is_active = ?", true)
	}

	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count classes: %w", err)
	}

	var rows []model.ClassModel
	if err := q.Order("class_name ASC").Order("class_id ASC").
		Offset(p.Offset).Limit(p.Limit).
		Find(&rows).Error; err != nil {
		return nil, 0, fmt.Errorf("list classes: %w", err)
	}
	return rows, total, nil
}

func (s *RosterService) GetClass(ctx context.Context, classID uuid.UUID) (*model.ClassModel, error) {
	var m model.ClassModel
	err := s.DB.WithContext(ctx).Where("class_id = ?", classID).Take(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrClassNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get class: %w", err)
	}
	return &m, nil
}

// ActiveClassIDs dipakai job archive harian.
func (s *RosterService) ActiveClassIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := s.DB.WithContext(ctx).Model(&model.ClassModel{}).
		Where("class_is_active = ?", true).
		Order("class_name ASC").
		Pluck("class_id", &ids).Error; err != nil {
		return nil, fmt.Errorf("active classes: %w", err)
	}
	return ids, nil
}

func (s *RosterService) DeactivateClass(ctx context.Context, classID uuid.UUID) (*model.ClassModel, error) {
	res := s.DB.WithContext(ctx).Model(&model.ClassModel{}).
		Where("class_id = ?", classID).
		Update("class_is_active", false)
	if res.Error != nil {
		return nil, fmt.Errorf("deactivate class: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrClassNotFound
	}
	return s.GetClass(ctx, classID)
}

/* ============================ STUDENTS ============================ */

// CreateStudent: kelas harus ada & aktif.
func (s *RosterService) CreateStudent(ctx context.Context, m *model.StudentModel) error {
	class, err := s.GetClass(ctx, m.StudentClassID)
	if err != nil {
		return err
	}
	if !class.ClassIsActive {
		return ErrClassInactive
	}
	if err := s.DB.WithContext(ctx).Create(m).Error; err != nil {
		if helper.IsUniqueViolation(err) || errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateNumber
		}
		return fmt.Errorf("create student: %w", err)
	}
	return nil
}

// ListStudents: roster aktif satu kelas, urut nama belakang lalu depan.
func (s *RosterService) ListStudents(ctx context.Context, classID uuid.UUID) ([]model.StudentModel, error) {
	if _, err := s.GetClass(ctx, classID); err != nil {
		return nil, err
	}
	var rows []model.StudentModel
	if err := s.DB.WithContext(ctx).
		Where("student_class_id = ? AND student_is_active = ?", classID, true).
		Order("student_last_name ASC").Order("student_first_name ASC").Order("student_id ASC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	return rows, nil
}

func (s *RosterService) DeactivateStudent(ctx context.Context, studentID uuid.UUID) (*model.StudentModel, error) {
	res := s.DB.WithContext(ctx).Model(&model.StudentModel{}).
		Where("student_id = ?", studentID).
		Update("student_is_active", false)
	if res.Error != nil {
		return nil, fmt.Errorf("deactivate student: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrStudentNotFound
	}
	var m model.StudentModel
	if err := s.DB.WithContext(ctx).Where("student_id = ?", studentID).Take(&m).Error; err != nil {
		return nil, fmt.Errorf("get student: %w", err)
	}
	return &m, nil
}

/* ============================ ROSTER ============================ */

// IsActiveEnrollment: siswa aktif, terdaftar di kelas itu, dan kelasnya aktif.
func (s *RosterService) IsActiveEnrollment(ctx context.Context, studentID, classID uuid.UUID) (bool, error) {
	var n int64
	err := s.DB.WithContext(ctx).
		Table("students AS s").
		Joins("JOIN classes AS c ON c.class_id = s.student_class_id").
		Where("s.student_id = ? AND s.student_class_id = ?", studentID, classID).
		Where("s.student_is_active = ? AND c.class_is_active = ?", true, true).
		Count(&n).Error
	if err != nil {
		return false, fmt.Errorf("enrollment: %w", err)
	}
	return n > 0, nil
}

// ClassExists termasuk kelas nonaktif; history lama tetap bisa dibaca.
func (s *RosterService) ClassExists(ctx context.Context, classID uuid.UUID) (bool, error) {
	var n int64
	if err := s.DB.WithContext(ctx).Model(&model.ClassModel{}).
		Where("class_id = ?", classID).Count(&n).Error; err != nil {
		return false, fmt.Errorf("class exists: %w", err)
	}
	return n > 0, nil
}

// ClassName: "" kalau kelas tidak ada.
func (s *RosterService) ClassName(ctx context.Context, classID uuid.UUID) (string, error) {
	var names []string
	if err := s.DB.WithContext(ctx).Model(&model.ClassModel{}).
		Where("class_id = ?", classID).Limit(1).
		Pluck("class_name", &names).Error; err != nil {
		return "", fmt.Errorf("class name: %w", err)
	}
	if len(names) == 0 {
		return "", nil
	}
	return names[0], nil
}

func (s *RosterService) StudentExists(ctx context.Context, studentID uuid.UUID) (bool, error) {
	var n int64
	if err := s.DB.WithContext(ctx).Model(&model.StudentModel{}).
		Where("student_id = ?", studentID).Count(&n).Error; err != nil {
		return false, fmt.Errorf("student exists: %w", err)
	}
	return n > 0, nil
}

func (s *RosterService) StudentNames(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error) {
	out := make(map[uuid.UUID]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []model.StudentModel
	if err := s.DB.WithContext(ctx).
		Select("student_id", "student_first_name", "student_last_name").
		Where("student_id IN ?", ids).
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("student names: %w", err)
	}
	for i := range rows {
		out[rows[i].StudentID] = rows[i].FullName()
	}
	return out, nil
}
