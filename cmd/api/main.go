package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cmlabs-hris/cast-backoffice/internal/config"
	appHTTP "github.com/cmlabs-hris/cast-backoffice/internal/handler/http"
	"github.com/cmlabs-hris/cast-backoffice/internal/pkg/businessday"
	"github.com/cmlabs-hris/cast-backoffice/internal/pkg/cron"
	"github.com/cmlabs-hris/cast-backoffice/internal/pkg/database"
	"github.com/cmlabs-hris/cast-backoffice/internal/pkg/joblock"
	"github.com/cmlabs-hris/cast-backoffice/internal/pkg/jwt"
	"github.com/cmlabs-hris/cast-backoffice/internal/pkg/logger"
	"github.com/cmlabs-hris/cast-backoffice/internal/pkg/marketplace"
	"github.com/cmlabs-hris/cast-backoffice/internal/repository/postgresql"
	dailyStatService "github.com/cmlabs-hris/cast-backoffice/internal/service/dailystat"
	"github.com/cmlabs-hris/cast-backoffice/internal/service/externalsync"
	payslipService "github.com/cmlabs-hris/cast-backoffice/internal/service/payslip"
	recalculationService "github.com/cmlabs-hris/cast-backoffice/internal/service/recalculation"
	wageStatusService "github.com/cmlabs-hris/cast-backoffice/internal/service/wagestatus"
	"github.com/redis/go-redis/v9"
)

const appVersion = "v1.0.0"

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log := logger.New(logger.Options{
		Level:   cfg.App.LogLevel,
		App:     "cast-backoffice",
		Version: appVersion,
		Env:     cfg.App.Env,
	})
	slog.SetDefault(log)
	log.Info("Configuration loaded", cfg.LogAttrs()...)

	loc, err := time.LoadLocation(cfg.App.Timezone)
	if err != nil {
		return fmt.Errorf("failed to load timezone: %w", err)
	}
	calc := businessday.NewCalculator(loc)

	dsn := cfg.DatabaseURL()
	if cfg.App.AutoMigrate {
		if err := database.RunMigrations(dsn, log); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	db, err := database.NewPostgreSQLDB(dsn)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	tx := postgresql.NewTransactor(db)
	storeRepo := postgresql.NewStoreRepository(db)
	castRepo := postgresql.NewCastRepository(db)
	orderRepo := postgresql.NewOrderRepository(db)
	productRepo := postgresql.NewProductRepository(db)
	attendanceRepo := postgresql.NewAttendanceRepository(db)
	settingRepo := postgresql.NewSettingRepository(db)
	deductionRepo := postgresql.NewDeductionRepository(db)
	wageStatusRepo := postgresql.NewWageStatusRepository(db)
	dailyStatRepo := postgresql.NewDailyStatRepository(db)
	credentialRepo := postgresql.NewCredentialRepository(db)
	recordRepo := postgresql.NewRecordRepository(db)
	payslipRepo := postgresql.NewPayslipRepository(db)

	lockStore, closeLock, err := newLockStore(cfg, db, log)
	if err != nil {
		return err
	}
	defer closeLock()
	locker := joblock.NewLocker(lockStore, log)

	JWTService := jwt.NewJWTService(cfg.JWT.Secret, cfg.JWT.AccessExpiration)

	marketplaceClient := marketplace.NewClient(marketplace.Config{
		ClientID:     cfg.Marketplace.ClientID,
		ClientSecret: cfg.Marketplace.ClientSecret,
		RedirectURL:  cfg.Marketplace.RedirectURL,
		AuthURL:      cfg.Marketplace.AuthURL,
		TokenURL:     cfg.Marketplace.TokenURL,
		APIBaseURL:   cfg.Marketplace.APIBaseURL,
		Timeout:      cfg.Marketplace.Timeout,
	})

	dailyStatSvc := dailyStatService.NewDailyStatService(tx, dailyStatService.Repositories{
		Stores:      storeRepo,
		Casts:       castRepo,
		Orders:      orderRepo,
		Products:    productRepo,
		Attendances: attendanceRepo,
		External:    recordRepo,
		WageStatus:  wageStatusRepo,
		Settings:    settingRepo,
		DailyStats:  dailyStatRepo,
	}, calc, log)

	recalculationSvc := recalculationService.NewRecalculationService(
		dailyStatSvc,
		storeRepo,
		orderRepo,
		recordRepo,
		calc,
		log,
	)

	syncSvc := externalsync.NewSyncService(externalsync.Repositories{
		Credentials: credentialRepo,
		Records:     recordRepo,
		Stores:      storeRepo,
		Casts:       castRepo,
		Products:    productRepo,
	}, marketplaceClient, calc, externalsync.Options{
		PageLimit:       cfg.Marketplace.PageLimit,
		MaxPages:        cfg.Marketplace.MaxPages,
		DetailBatchSize: cfg.Marketplace.DetailBatchSize,
		LookbackDays:    cfg.Marketplace.LookbackDays,
	}, log)

	wageStatusSvc := wageStatusService.NewWageStatusService(
		tx,
		wageStatusRepo,
		storeRepo,
		castRepo,
		attendanceRepo,
		settingRepo,
		calc,
		log,
	)

	payslipSvc := payslipService.NewPayslipService(payslipService.Repositories{
		Stores:      storeRepo,
		Casts:       castRepo,
		Settings:    settingRepo,
		DailyStats:  dailyStatRepo,
		Attendances: attendanceRepo,
		Deductions:  deductionRepo,
		Payslips:    payslipRepo,
	}, log)

	jobs := cron.NewJobs(syncSvc, recalculationSvc, wageStatusSvc, locker, cfg.Lock.TTLSeconds, log)

	router := appHTTP.NewRouter(log, JWTService, appHTTP.RouterOptions{
		AllowedOrigins: cfg.App.AllowedOrigins,
		WebhookSecret:  cfg.Webhook.Secret,
		CronSecret:     cfg.Cron.Secret,
	}, appHTTP.Handlers{
		Recalculation: appHTTP.NewRecalculationHandler(recalculationSvc),
		Cron:          appHTTP.NewCronHandler(jobs),
		DailyStat:     appHTTP.NewDailyStatHandler(dailyStatSvc),
		Payslip:       appHTTP.NewPayslipHandler(payslipSvc),
		WageStatus:    appHTTP.NewWageStatusHandler(wageStatusSvc),
		Marketplace:   appHTTP.NewMarketplaceHandler(syncSvc, marketplaceClient),
	})

	var scheduler *cron.Scheduler
	if cfg.Cron.Enabled {
		scheduler = cron.NewScheduler(log)
		jobs.RegisterJobs(scheduler, cron.Intervals{
			SyncBaseOrders:        cfg.Cron.SyncBaseOrders,
			RecalculateDailyStats: cfg.Cron.RecalculateDailyStats,
			EvaluateWageStatus:    cfg.Cron.EvaluateWageStatus,
		})
		scheduler.Start()
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info("Server running", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
		log.Info("Shutdown signal received")
	}

	if scheduler != nil {
		scheduler.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	log.Info("Server stopped")
	return nil
}

// newLockStore picks the job lock backend. Only the memory backend is
// unsafe across replicas.
func newLockStore(cfg *config.Config, db *database.DB, log *slog.Logger) (joblock.Store, func(), error) {
	switch cfg.Lock.Backend {
	case config.LockBackendRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			_ = rdb.Close()
			return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		log.Info("Using redis job lock backend", "addr", cfg.RedisAddr())
		return joblock.NewRedisStore(rdb), func() { _ = rdb.Close() }, nil
	case config.LockBackendMemory:
		log.Warn("Using in-process job lock backend; locks are not shared across replicas")
		return joblock.NewMemoryStore(), func() {}, nil
	default:
		return postgresql.NewJobLockStore(db), func() {}, nil
	}
}
