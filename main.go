package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"

	"attendance_backend/internals/configs"
	database "attendance_backend/internals/databases"
	"attendance_backend/internals/features/attendance/backup"
	attctrl "attendance_backend/internals/features/attendance/controller"
	attmodel "attendance_backend/internals/features/attendance/model"
	"attendance_backend/internals/features/attendance/notify"
	"attendance_backend/internals/features/attendance/repository"
	attsvc "attendance_backend/internals/features/attendance/service"
	"attendance_backend/internals/features/attendance/sweeper"
	classmodel "attendance_backend/internals/features/school/classes/model"
	classsvc "attendance_backend/internals/features/school/classes/service"
	helper "attendance_backend/internals/helpers"
	middlewares "attendance_backend/internals/middlewares"
	routes "attendance_backend/internals/route"
	"attendance_backend/internals/seeds"
)

func main() {
	configs.LoadEnv()
	cfg := configs.Attendance

	app := fiber.New(fiber.Config{
		// 🚀 JSON super cepat
		JSONEncoder:             sonic.Marshal,
		JSONDecoder:             sonic.Unmarshal,
		DisableStartupMessage:   true,
		ErrorHandler:            helper.FromFiberError,
		ProxyHeader:             fiber.HeaderXForwardedFor,
		EnableTrustedProxyCheck: true,
		TrustedProxies:          []string{"0.0.0.0/0"}, // sesuaikan dengan CIDR Cloudflare jika perlu
	})

	middlewares.SetupMiddlewares(app)

	// 🔌 DB + store
	db, store := openStore(cfg)
	if err := database.Migrate(db,
		&classmodel.ClassModel{},
		&classmodel.StudentModel{},
		&attmodel.AttendanceRecordModel{},
		&notify.AttendanceNotificationModel{},
	); err != nil {
		log.Fatalf("❌ %v", err)
	}

	// 🌱 seed kelas & siswa (default aktif di mode memory supaya langsung bisa dicoba)
	if configs.GetEnvBool("RUN_SEEDS", cfg.StoreDriver == "memory") {
		seeds.RunAllSeeds(db)
	}

	// 🔔 notifikasi async: log + outbox table
	dispatcher := notify.NewDispatcher(5*time.Second, notify.LogNotifier{}, notify.NewOutboxNotifier(db))

	roster := classsvc.NewRosterService(db)
	svc := attsvc.NewAttendanceService(store, roster,
		attsvc.WithLocation(cfg.Location),
		attsvc.WithDispatcher(dispatcher),
	)

	// ⏱ sweeper auto-absent
	sw := sweeper.New(store, sweeper.Config{
		Interval:    cfg.SweepInterval,
		GracePeriod: cfg.GracePeriod,
		Dispatcher:  dispatcher,
		Registerer:  prometheus.DefaultRegisterer,
	})
	sw.Start()

	// 🗄 arsip CSV harian
	archiver := backup.NewArchiver(svc, roster, backup.NewPutterFromEnv(cfg.ArchiveDir), cfg.Location)
	var archiveCron *cron.Cron
	if cfg.ArchiveSchedule != "" && cfg.ArchiveSchedule != "off" {
		c, err := archiver.StartCron(cfg.ArchiveSchedule)
		if err != nil {
			log.Printf("⚠️ archive cron tidak jalan: %v", err)
		} else {
			archiveCron = c
		}
	}

	// ✅ Routes
	routes.SetupRoutes(app, routes.Deps{
		Roster:     roster,
		Attendance: attctrl.NewAttendanceController(svc, sw, archiver),
		Gatherer:   prometheus.DefaultGatherer,
		Ping:       database.Ping,
	})

	// 🔒 Keep-Alive & timeout koneksi server
	app.Server().ReadTimeout = 15 * time.Second
	app.Server().WriteTimeout = 30 * time.Second
	app.Server().IdleTimeout = 90 * time.Second

	port := os.Getenv("PORT")
	if port == "" {
		port = "3000"
	}

	// Start server non-blocking
	go func() {
		log.Printf("✅ Listening on :%s", port)
		if err := app.Listen("0.0.0.0:" + port); err != nil {
			log.Fatalf("server error: %v", err)
		}
	}()

	// graceful shutdown: HTTP → sweeper (tunggu run yang sedang jalan) → cron arsip → notifikasi → DB
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("🛑 shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("http shutdown: %v", err)
	}
	if err := sw.Stop(ctx); err != nil {
		log.Printf("[SWEEPER] stop: %v", err)
	}
	if archiveCron != nil {
		select {
		case <-archiveCron.Stop().Done():
		case <-ctx.Done():
			log.Printf("[ARCHIVE] stop: %v", ctx.Err())
		}
	}
	if err := dispatcher.Close(ctx); err != nil {
		log.Printf("[NOTIFY] close: %v", err)
	}
	database.Close()
	log.Println("👋 bye")
}

// openStore: postgres (default), "sqlite" = file lokal, "memory" = record di RAM
// dengan roster di SQLite in-memory (mode dev / demo).
func openStore(cfg configs.AttendanceConfig) (*gorm.DB, repository.Store) {
	switch cfg.StoreDriver {
	case "memory":
		db := database.ConnectSQLite("file::memory:?cache=shared")
		log.Println("⚠️ ATTENDANCE_STORE=memory: data hilang saat restart")
		return db, repository.NewMemoryStore()
	case "sqlite":
		db := database.ConnectSQLite(configs.GetEnv("SQLITE_PATH", "attendance.db"))
		return db, repository.NewGormStore(db)
	default:
		db := database.ConnectDB()
		database.TunePool()
		return db, repository.NewGormStore(db)
	}
}
