// internals/features/school/classes/model/class_model.go
package model

import (
	"time"

	"attendance_backend/internals/helpers/dbtime"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ClassModel merepresentasikan tabel `classes`
type ClassModel struct {
	ClassID uuid.UUID `json:"class_id" gorm:"column:class_id;type:uuid;primaryKey"`

	// Identitas
	ClassName        string  `json:"class_name" gorm:"column:class_name;type:varchar(100);not null"`
	ClassDescription *string `json:"class_description,omitempty" gorm:"column:class_description;type:varchar(200)"`
	ClassSubject     *string `json:"class_subject,omitempty" gorm:"column:class_subject;type:varchar(50)"`
	ClassRoom        *string `json:"class_room,omitempty" gorm:"column:class_room;type:varchar(20)"`

	// Jadwal harian (jam saja)
	ClassStartTime dbtime.Tod `json:"class_start_time" gorm:"column:class_start_time;type:time;not null"`
	ClassEndTime   dbtime.Tod `json:"class_end_time" gorm:"column:class_end_time;type:time;not null"`

	// user id guru (claim "id" dari JWT)
	ClassTeacherID *string `json:"class_teacher_id,omitempty" gorm:"column:class_teacher_id;type:varchar(64);index"`

	// Soft-deactivate saja, tidak ada hard delete
	ClassIsActive bool `json:"class_is_active" gorm:"column:class_is_active;not null;default:true;index"`

	ClassCreatedAt time.Time `json:"class_created_at" gorm:"column:class_created_at;not null;autoCreateTime"`
	ClassUpdatedAt time.Time `json:"class_updated_at" gorm:"column:class_updated_at;not null;autoUpdateTime"`
}

func (ClassModel) TableName() string {
	return "classes"
}

func (m *ClassModel) BeforeCreate(tx *gorm.DB) error {
	if m.ClassID == uuid.Nil {
		m.ClassID = uuid.New()
	}
	return nil
}

// ClassTime: "08:00 - 09:30"
func (m *ClassModel) ClassTime() string {
	return m.ClassStartTime.String() + " - " + m.ClassEndTime.String()
}
