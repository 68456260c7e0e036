package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cmlabs-hris/hris-billing-go/internal/config"
	appHTTP "github.com/cmlabs-hris/hris-billing-go/internal/handler/http"
	"github.com/cmlabs-hris/hris-billing-go/internal/pkg/cron"
	"github.com/cmlabs-hris/hris-billing-go/internal/pkg/database"
	"github.com/cmlabs-hris/hris-billing-go/internal/pkg/jwt"
	"github.com/cmlabs-hris/hris-billing-go/internal/pkg/logger"
	"github.com/cmlabs-hris/hris-billing-go/internal/pkg/migration"
	"github.com/cmlabs-hris/hris-billing-go/internal/pkg/sse"
	"github.com/cmlabs-hris/hris-billing-go/internal/repository/postgresql"
	billingService "github.com/cmlabs-hris/hris-billing-go/internal/service/billing"
	notificationService "github.com/cmlabs-hris/hris-billing-go/internal/service/notification"
)

const (
	appName    = "hris-billing"
	appVersion = "v1.0.0"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := logger.New(os.Stdout, logger.Options{
		App:     appName,
		Version: appVersion,
		Env:     cfg.App.Env,
		Level:   cfg.App.LogLevel,
	})
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Database.AutoMigrate {
		if err := migrate(cfg.DatabaseURL(), log); err != nil {
			return err
		}
	}

	db, err := database.NewPostgreSQLDB(ctx, cfg.DatabaseURL(), database.Options{MaxConns: int32(cfg.Database.MaxConns)})
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close()

	transactor := postgresql.NewTransactor(db)
	employeeRepo := postgresql.NewEmployeeRepository(db)
	projectRepo := postgresql.NewProjectRepository(db)
	workReportRepo := postgresql.NewWorkReportRepository(db)
	leaveRequestRepo := postgresql.NewLeaveRequestRepository(db)
	attendanceRepo := postgresql.NewAttendanceRepository(db)
	billingRepo := postgresql.NewBillingRepository(db)
	notificationRepo := postgresql.NewNotificationRepository(db)

	JWTService := jwt.NewJWTService(cfg.JWT.Secret, cfg.JWT.AccessExpiration)
	hub := sse.NewHub(cfg.Notification.StreamBuffer)

	notifSvc := notificationService.NewNotificationService(notificationRepo, hub, log, cfg.Notification.StreamBuffer)
	billingSvc := billingService.NewBillingService(
		transactor,
		billingRepo,
		employeeRepo,
		projectRepo,
		workReportRepo,
		leaveRequestRepo,
		attendanceRepo,
		notifSvc,
		log,
		billingService.Options{
			WorkerLimit:      cfg.Billing.WorkerLimit,
			ExcludeLeaveDays: cfg.Billing.ExcludeLeaveDays,
		},
	)

	scheduler := cron.NewScheduler(log)
	scheduler.AddJob(cron.NotificationRetentionJob(notifSvc, cfg.Notification.PurgeInterval, cfg.Notification.Retention))
	scheduler.Start(ctx)
	defer scheduler.Stop()

	billingHandler := appHTTP.NewBillingHandler(billingSvc)
	notificationHandler := appHTTP.NewNotificationHandler(notifSvc)

	router := appHTTP.NewRouter(log, JWTService, billingHandler, notificationHandler, appHTTP.RouterOptions{
		AllowedOrigins: []string{cfg.App.FrontendURL},
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		// streams end when the process is asked to stop
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("server listening", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func migrate(databaseURL string, log *slog.Logger) error {
	m, err := migration.New(databaseURL, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := m.Close(); err != nil {
			log.Warn("close migrator", slog.Any("error", err))
		}
	}()
	return m.Up()
}
