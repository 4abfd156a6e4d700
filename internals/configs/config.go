package configs

import (
	"context"
	"log"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // image minimal tanpa /usr/share/zoneinfo

	"github.com/joho/godotenv"
	gormLogger "gorm.io/gorm/logger"
	"gorm.io/gorm/utils"
)

var (
	JWTSecret  string
	Attendance AttendanceConfig
)

// AttendanceConfig menampung setting sweep + archive (semua via ENV).
type AttendanceConfig struct {
	Timezone        string
	Location        *time.Location
	SweepInterval   time.Duration
	GracePeriod     time.Duration
	ArchiveSchedule string
	ArchiveDir      string
	StoreDriver     string // "postgres" | "memory"
}

const (
	DefaultTimezone        = "Asia/Jakarta"
	DefaultSweepInterval   = time.Minute
	DefaultGracePeriod     = 5 * time.Minute
	DefaultArchiveSchedule = "15 2 * * *"
)

// =======================
// ENV LOADER
// =======================
func LoadEnv() {
	if os.Getenv("RAILWAY_ENVIRONMENT") == "" {
		if err := godotenv.Load(); err != nil {
			log.Println("⚠️ .env not found, using system ENV")
		} else {
			log.Println("✅ .env loaded")
		}
	} else {
		log.Println("🚀 Running in Railway, using system ENV")
	}

	JWTSecret = GetEnv("JWT_SECRET")
	if JWTSecret == "" {
		log.Println("❌ JWT_SECRET belum diset!")
	} else {
		log.Println("✅ JWT_SECRET berhasil dimuat.")
	}

	Attendance = LoadAttendanceConfig()
	log.Printf("✅ attendance config: tz=%s sweep=%s grace=%s archive=%q store=%s",
		Attendance.Timezone, Attendance.SweepInterval, Attendance.GracePeriod,
		Attendance.ArchiveSchedule, Attendance.StoreDriver)
}

// LoadAttendanceConfig reads the attendance settings; invalid values fall back to defaults.
func LoadAttendanceConfig() AttendanceConfig {
	cfg := AttendanceConfig{
		Timezone:        GetEnv("APP_TIMEZONE", DefaultTimezone),
		SweepInterval:   GetEnvDuration("ATTENDANCE_SWEEP_INTERVAL", DefaultSweepInterval),
		GracePeriod:     GetEnvDuration("ATTENDANCE_GRACE_PERIOD", DefaultGracePeriod),
		ArchiveSchedule: GetEnv("ATTENDANCE_ARCHIVE_SCHEDULE", DefaultArchiveSchedule),
		ArchiveDir:      GetEnv("ATTENDANCE_ARCHIVE_DIR", "archives"),
		StoreDriver:     strings.ToLower(GetEnv("ATTENDANCE_STORE", "postgres")),
	}
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		log.Printf("⚠️ APP_TIMEZONE=%q invalid (%v), fallback UTC", cfg.Timezone, err)
		cfg.Timezone = "UTC"
		loc = time.UTC
	}
	cfg.Location = loc
	return cfg
}

func GetEnv(key string, defaultValue ...string) string {
	value, exists := os.LookupEnv(key)
	if (!exists || value == "") && len(defaultValue) > 0 {
		return defaultValue[0]
	}
	return value
}

// GetEnvDuration parses "90s", "5m", ... or a bare number of seconds.
func GetEnvDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil && d > 0 {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil && n > 0 {
		return time.Duration(n) * time.Second
	}
	log.Printf("⚠️ %s=%q invalid, using default %s", key, v, def)
	return def
}

func GetEnvBool(key string, def bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "":
		return def
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

// =======================
// GORM LOGGER CUSTOM
// =======================
type GormLogger struct {
	SlowThreshold time.Duration
	LogLevel      gormLogger.LogLevel
}

func NewGormLogger() gormLogger.Interface {
	level := gormLogger.Warn
	if GetEnvBool("DB_LOG_QUERIES", false) {
		level = gormLogger.Info
	}
	return &GormLogger{
		SlowThreshold: 200 * time.Millisecond,
		LogLevel:      level,
	}
}

func (l *GormLogger) LogMode(level gormLogger.LogLevel) gormLogger.Interface {
	nl := *l
	nl.LogLevel = level
	return &nl
}

func (l *GormLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	if l.LogLevel >= gormLogger.Info {
		log.Printf("[INFO] "+msg, data...)
	}
}

func (l *GormLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	if l.LogLevel >= gormLogger.Warn {
		log.Printf("[WARN] "+msg, data...)
	}
}

func (l *GormLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	if l.LogLevel >= gormLogger.Error {
		log.Printf("[ERROR] "+msg, data...)
	}
}

func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.LogLevel <= gormLogger.Silent {
		return
	}
	elapsed := time.Since(begin)
	sql, rows := fc()
	file := utils.FileWithLineNum()

	switch {
	case err != nil && l.LogLevel >= gormLogger.Error:
		log.Printf("[ERROR] %s | %v | %s | %d rows | %s", file, err, elapsed, rows, sql)
	case elapsed > l.SlowThreshold && l.LogLevel >= gormLogger.Warn:
		log.Printf("[SLOW SQL] %s | %s | %d rows | %s", file, elapsed, rows, sql)
	case l.LogLevel >= gormLogger.Info:
		log.Printf("[QUERY] %s | %s | %d rows | %s", file, elapsed, rows, sql)
	}
}
