package seeds

import (
	"log"

	"attendance_backend/internals/configs"
	"attendance_backend/internals/seeds/roster"

	"gorm.io/gorm"
)

// RunAllSeeds dipanggil main kalau RUN_SEEDS=true.
func RunAllSeeds(db *gorm.DB) {
	//* Kelas & siswa
	path := configs.GetEnv("SEED_ROSTER_FILE", "internals/seeds/roster/data_roster.json")
	if _, err := roster.SeedRosterFromJSON(db, path); err != nil {
		log.Printf("❌ seed roster gagal: %v", err)
	}
}
