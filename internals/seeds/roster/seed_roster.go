package roster

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"attendance_backend/internals/features/school/classes/dto"
	"attendance_backend/internals/features/school/classes/model"
	"attendance_backend/internals/features/school/classes/service"

	"github.com/bytedance/sonic"
	"gorm.io/gorm"
)

// Struktur file seed: kelas + siswa di dalamnya.
type ClassSeed struct {
	dto.CreateClassRequest
	Students []StudentSeed `json:"students"`
}

type StudentSeed struct {
	FirstName string  `json:"first_name"`
	LastName  string  `json:"last_name"`
	Number    string  `json:"number"`
	Email     *string `json:"email,omitempty"`
}

type Summary struct {
	ClassesCreated  int
	ClassesSkipped  int
	StudentsCreated int
	StudentsSkipped int
}

// SeedRosterFromJSON aman dijalankan berulang: kelas dicocokkan lewat nama,
// siswa lewat nomor induk.
func SeedRosterFromJSON(db *gorm.DB, filePath string) (Summary, error) {
	log.Println("📥 Membaca file:", filePath)

	raw, err := os.ReadFile(filePath)
	if err != nil {
		return Summary{}, fmt.Errorf("read seed file: %w", err)
	}
	var seeds []ClassSeed
	if err := sonic.Unmarshal(raw, &seeds); err != nil {
		return Summary{}, fmt.Errorf("decode seed file: %w", err)
	}
	return SeedRoster(context.Background(), db, seeds)
}

func SeedRoster(ctx context.Context, db *gorm.DB, seeds []ClassSeed) (Summary, error) {
	svc := service.NewRosterService(db)
	var sum Summary

	for i := range seeds {
		req := seeds[i].CreateClassRequest
		req.Normalize()
		if err := req.Validate(); err != nil {
			return sum, fmt.Errorf("class %q: %w", req.ClassName, err)
		}

		var class model.ClassModel
		err := db.WithContext(ctx).Where("class_name = ?", req.ClassName).First(&class).Error
		switch {
		case err == nil:
			log.Printf("ℹ️ Kelas %s sudah ada, lewati...", req.ClassName)
			sum.ClassesSkipped++
		case errors.Is(err, gorm.ErrRecordNotFound):
			m := req.ToModel()
			if err := svc.CreateClass(ctx, m); err != nil {
				return sum, fmt.Errorf("create class %q: %w", req.ClassName, err)
			}
			class = *m
			sum.ClassesCreated++
			log.Printf("✅ Berhasil insert kelas %s (%s)", class.ClassName, class.ClassTime())
		default:
			return sum, fmt.Errorf("lookup class %q: %w", req.ClassName, err)
		}

		for _, s := range seeds[i].Students {
			sreq := dto.CreateStudentRequest{
				StudentFirstName: s.FirstName,
				StudentLastName:  s.LastName,
				StudentNumber:    s.Number,
				StudentEmail:     s.Email,
				StudentClassID:   class.ClassID,
			}
			sreq.Normalize()
			err := svc.CreateStudent(ctx, sreq.ToModel())
			switch {
			case err == nil:
				sum.StudentsCreated++
			case errors.Is(err, service.ErrDuplicateNumber):
				sum.StudentsSkipped++
			default:
				return sum, fmt.Errorf("create student %s: %w", sreq.StudentNumber, err)
			}
		}
	}

	log.Printf("🌱 seed roster: kelas +%d (skip %d), siswa +%d (skip %d)",
		sum.ClassesCreated, sum.ClassesSkipped, sum.StudentsCreated, sum.StudentsSkipped)
	return sum, nil
}
