// internals/features/attendance/notify/outbox.go
package notify

import (
	"context"
	"fmt"
	"time"

	"attendance_backend/internals/features/attendance/model"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AttendanceNotificationModel: outbox row, diambil worker email/WA di luar service ini.
type AttendanceNotificationModel struct {
	AttendanceNotificationID        uuid.UUID         `gorm:"type:uuid;primaryKey;column:attendance_notification_id" json:"attendance_notification_id"`
	AttendanceNotificationRecordID  uuid.UUID         `gorm:"type:uuid;not null;column:attendance_notification_record_id;index:idx_attendance_notification_record" json:"attendance_notification_record_id"`
	AttendanceNotificationStudentID uuid.UUID         `gorm:"type:uuid;not null;column:attendance_notification_student_id;index:idx_attendance_notification_student" json:"attendance_notification_student_id"`
	AttendanceNotificationKind      string            `gorm:"type:varchar(32);not null;column:attendance_notification_kind" json:"attendance_notification_kind"`
	AttendanceNotificationPayload   datatypes.JSONMap `gorm:"column:attendance_notification_payload" json:"attendance_notification_payload"`
	AttendanceNotificationSentAt    *time.Time        `gorm:"column:attendance_notification_sent_at;index:idx_attendance_notification_pending" json:"attendance_notification_sent_at,omitempty"`
	AttendanceNotificationCreatedAt time.Time         `gorm:"not null;column:attendance_notification_created_at" json:"attendance_notification_created_at"`
}

func (AttendanceNotificationModel) TableName() string {
	return "attendance_notifications"
}

type OutboxNotifier struct {
	DB *gorm.DB
}

func NewOutboxNotifier(db *gorm.DB) *OutboxNotifier {
	return &OutboxNotifier{DB: db}
}

func (n *OutboxNotifier) Notify(ctx context.Context, ev Event) error {
	row := AttendanceNotificationModel{
		AttendanceNotificationID:        uuid.New(),
		AttendanceNotificationRecordID:  ev.Record.AttendanceRecordID,
		AttendanceNotificationStudentID: ev.Record.AttendanceRecordStudentID,
		AttendanceNotificationKind:      string(ev.Kind),
		AttendanceNotificationPayload:   Payload(ev),
		AttendanceNotificationCreatedAt: ev.At,
	}
	if err := n.DB.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("outbox insert: %w", err)
	}
	return nil
}

// Payload: isi yang dibutuhkan template email (status, jam, kelas).
func Payload(ev Event) datatypes.JSONMap {
	rec := ev.Record
	p := datatypes.JSONMap{
		"class_id":   rec.AttendanceRecordClassID.String(),
		"student_id": rec.AttendanceRecordStudentID.String(),
		"date":       rec.Day().Format("2006-01-02"),
		"status":     rec.AttendanceRecordStatus.DisplayName(),
		"marked_by":  rec.AttendanceRecordMarkedBy,
	}
	if ev.Previous != nil {
		p["previous_status"] = ev.Previous.DisplayName()
	}
	if ev.Kind == EventMarkedAbsent && rec.AttendanceRecordMarkedAbsentAt != nil {
		p["marked_absent_at"] = rec.AttendanceRecordMarkedAbsentAt.UTC().Format(time.RFC3339)
		if rec.AttendanceRecordMarkedBy == model.SystemActor {
			p["reason"] = "did_not_return_within_grace_period"
		}
	}
	return p
}
