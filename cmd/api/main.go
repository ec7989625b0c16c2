package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/assyin/pointaflex-26-sub002/internal/config"
	appHTTP "github.com/assyin/pointaflex-26-sub002/internal/handler/http"
	"github.com/assyin/pointaflex-26-sub002/internal/pkg/cron"
	"github.com/assyin/pointaflex-26-sub002/internal/pkg/database"
	"github.com/assyin/pointaflex-26-sub002/internal/pkg/dispatch"
	"github.com/assyin/pointaflex-26-sub002/internal/repository/postgresql"
	autocloseService "github.com/assyin/pointaflex-26-sub002/internal/service/autoclose"
	detectionService "github.com/assyin/pointaflex-26-sub002/internal/service/detection"
	overtimeService "github.com/assyin/pointaflex-26-sub002/internal/service/overtime"
	punchService "github.com/assyin/pointaflex-26-sub002/internal/service/punch"
	recoveryService "github.com/assyin/pointaflex-26-sub002/internal/service/recovery"
	"github.com/assyin/pointaflex-26-sub002/internal/service/shiftwindow"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Println("Error loading config:", err)
		return
	}

	logger := newLogger(cfg.App.LogLevel)
	slog.SetDefault(logger)

	db, err := database.NewPostgreSQLDB(cfg.DatabaseURL())
	if err != nil {
		log.Fatal("Error connecting to database: ", err)
	}
	defer db.Close()

	tenantRepo := postgresql.NewTenantRepository(db)
	holidayRepo := postgresql.NewTenantHolidayRepository(db)
	employeeRepo := postgresql.NewEmployeeRepository(db)
	shiftRepo := postgresql.NewShiftRepository(db)
	entryRepo := postgresql.NewScheduleEntryRepository(db)
	eventRepo := postgresql.NewAttendanceEventRepository(db)
	overtimeRepo := postgresql.NewOvertimeRepository(db)
	recoveryRepo := postgresql.NewRecoveryRepository(db)
	leaveRepo := postgresql.NewLeaveRepository(db)
	notificationLogRepo := postgresql.NewNotificationLogRepository(db)
	txManager := postgresql.NewTxManager(db)

	senders := []dispatch.Sender{dispatch.AuditSender{Logger: logger}}
	if cfg.SMTP.Enabled {
		smtpSender, err := dispatch.NewSMTPSender(cfg.SMTP, logger)
		if err != nil {
			log.Fatal("Failed to initialize SMTP sender: ", err)
		}
		senders = append(senders, smtpSender)
	}
	dispatcher := dispatch.NewQueue(cfg.Dispatch.QueueSize, cfg.Dispatch.WorkerCount, logger, senders...)

	windows := shiftwindow.NewService(entryRepo, shiftRepo)
	overtimeSvc := overtimeService.NewService(overtimeRepo, holidayRepo, logger)
	consolidator := overtimeService.NewConsolidator(overtimeSvc, eventRepo, employeeRepo, leaveRepo, recoveryRepo, windows, logger)
	punchSvc := punchService.NewService(txManager, eventRepo, tenantRepo, employeeRepo, windows, overtimeSvc, logger)
	detectionSvc := detectionService.NewService(eventRepo, employeeRepo, windows, leaveRepo, recoveryRepo, notificationLogRepo, dispatcher, logger)
	autocloseSvc := autocloseService.NewService(txManager, eventRepo, employeeRepo, overtimeRepo, windows, logger)
	recoverySvc := recoveryService.NewService(txManager, recoveryRepo, overtimeRepo, employeeRepo, logger)

	scheduler := cron.NewScheduler(logger)
	err = cron.Register(scheduler, tenantRepo, logger, cron.Jobs{
		DetectAnomalies: detectionSvc.RunSweep,
		DetectAbsences:  detectionSvc.RunSweep,
		AutoClose:       autocloseSvc.Run,
		Consolidate:     consolidator.Run,
		ExpireRecovery:  recoverySvc.ExpireDaily,
	})
	if err != nil {
		log.Fatal("Failed to register jobs: ", err)
	}
	scheduler.Start()

	punchHandler := appHTTP.NewPunchHandler(punchSvc, eventRepo)
	overtimeHandler := appHTTP.NewOvertimeHandler(overtimeSvc)
	recoveryHandler := appHTTP.NewRecoveryHandler(recoverySvc)
	router := appHTTP.NewRouter(tenantRepo, punchHandler, overtimeHandler, recoveryHandler)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		logger.Info("server listening", slog.Int("port", cfg.App.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Server error: ", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", slog.String("error", err.Error()))
	}

	scheduler.Stop()
	dispatcher.Stop()
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}
