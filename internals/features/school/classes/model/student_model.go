// internals/features/school/classes/model/student_model.go
package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// StudentModel: satu siswa terdaftar di tepat satu kelas.
type StudentModel struct {
	StudentID uuid.UUID `json:"student_id" gorm:"column:student_id;type:uuid;primaryKey"`

	StudentFirstName string  `json:"student_first_name" gorm:"column:student_first_name;type:varchar(100);not null"`
	StudentLastName  string  `json:"student_last_name" gorm:"column:student_last_name;type:varchar(100);not null"`
	StudentNumber    string  `json:"student_number" gorm:"column:student_number;type:varchar(50);not null;uniqueIndex:uq_students_number"`
	StudentEmail     *string `json:"student_email,omitempty" gorm:"column:student_email;type:varchar(100)"`
	StudentPhone     *string `json:"student_phone,omitempty" gorm:"column:student_phone;type:varchar(20)"`

	StudentClassID uuid.UUID `json:"student_class_id" gorm:"column:student_class_id;type:uuid;not null;index:idx_students_class_active,priority:1"`
	StudentUserID  *string   `json:"student_user_id,omitempty" gorm:"column:student_user_id;type:varchar(64);index"`

	StudentIsActive bool `json:"student_is_active" gorm:"column:student_is_active;not null;default:true;index:idx_students_class_active,priority:2"`

	StudentCreatedAt time.Time `json:"student_created_at" gorm:"column:student_created_at;not null;autoCreateTime"`
	StudentUpdatedAt time.Time `json:"student_updated_at" gorm:"column:student_updated_at;not null;autoUpdateTime"`
}

func (StudentModel) TableName() string {
	return "students"
}

func (m *StudentModel) BeforeCreate(tx *gorm.DB) error {
	if m.StudentID == uuid.Nil {
		m.StudentID = uuid.New()
	}
	return nil
}

func (m *StudentModel) FullName() string {
	return strings.TrimSpace(m.StudentFirstName + " " + m.StudentLastName)
}
