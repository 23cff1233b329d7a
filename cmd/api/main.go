package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/stackwatch/stackwatch/internal/api/handlers"
	"github.com/stackwatch/stackwatch/internal/api/router"
	"github.com/stackwatch/stackwatch/internal/auditor"
	"github.com/stackwatch/stackwatch/internal/config"
	"github.com/stackwatch/stackwatch/internal/ingest"
	"github.com/stackwatch/stackwatch/internal/pipeline"
	"github.com/stackwatch/stackwatch/internal/pkg/logger"
	"github.com/stackwatch/stackwatch/internal/pkg/validator"
	"github.com/stackwatch/stackwatch/internal/reporting"
	"github.com/stackwatch/stackwatch/internal/repository/sqldb"
	"github.com/stackwatch/stackwatch/internal/ticketing"
	"github.com/stackwatch/stackwatch/internal/watcher"
	"github.com/stackwatch/stackwatch/internal/watcher/anchore"
	"github.com/stackwatch/stackwatch/internal/watcher/aws"
	"github.com/stackwatch/stackwatch/internal/worker"
	"github.com/stackwatch/stackwatch/migrations"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})

	log.Infof("Starting stackwatch API (environment: %s)", cfg.Server.Environment)

	db, err := sqldb.New(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := sqldb.RunMigrations(db, migrations.GetFS()); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	settings, err := config.LoadSettings(cfg.SettingsPath)
	if err != nil {
		log.Fatalf("Failed to load watcher settings: %v", err)
	}

	// Repositories
	accountRepo := sqldb.NewAccountRepository(db)
	itemRepo := sqldb.NewItemRepository(db)
	auditRepo := sqldb.NewAuditRepository(db)
	eventRepo := sqldb.NewEventRepository(db)
	scannerRepo := sqldb.NewScannerRepository(db)
	reportRepo := sqldb.NewReportRepository(db)

	// Audit runner with every rule set registered
	runner := auditor.NewRunner(itemRepo, auditRepo, log)
	for _, a := range []auditor.Auditor{
		&auditor.SecurityGroupAuditor{},
		&auditor.RouteTableAuditor{},
		&auditor.EC2InstanceAuditor{},
		&auditor.IAMUserAuditor{},
		&auditor.CredReportAuditor{},
		&auditor.PasswordPolicyAuditor{},
		&auditor.CloudTrailAuditor{},
		&auditor.ConfigRecorderAuditor{},
		&auditor.GuardDutyAuditor{},
		&auditor.InspectorAuditor{},
		&auditor.AnchoreAuditor{},
	} {
		if err := runner.Register(a); err != nil {
			log.Fatalf("Failed to register auditor: %v", err)
		}
	}

	registry := watcher.NewRegistry()
	pipe := pipeline.New(registry, itemRepo, accountRepo, runner, settings, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Accounts come from the settings file; sync them before the
	// watchers capture the active set.
	if err := pipe.SyncAccounts(ctx); err != nil {
		log.Fatalf("Failed to sync accounts: %v", err)
	}
	accounts, err := accountRepo.List(ctx, true)
	if err != nil {
		log.Fatalf("Failed to list accounts: %v", err)
	}

	factory, err := aws.NewClientFactory(ctx, cfg.AWS.DefaultRegion, cfg.AWS.RoleName, cfg.AWS.ExternalID)
	if err != nil {
		log.Fatalf("Failed to initialize AWS clients: %v", err)
	}

	regions := settings.Regions
	for _, w := range []watcher.Watcher{
		aws.NewSecurityGroupWatcher(factory, accounts, regions, log),
		aws.NewRouteTableWatcher(factory, accounts, regions, log),
		aws.NewEC2InstanceWatcher(factory, accounts, regions, log),
		aws.NewIAMUserWatcher(factory, accounts, log),
		aws.NewCredReportWatcher(factory, accounts, log),
		aws.NewPasswordPolicyWatcher(factory, accounts, log),
		aws.NewS3Watcher(factory, accounts, log),
		aws.NewCloudTrailWatcher(factory, accounts, regions, log),
		aws.NewConfigRecorderWatcher(factory, accounts, regions, log),
		aws.NewGuardDutyWatcher(factory, accounts, regions, log),
		aws.NewInspectorWatcher(factory, accounts, regions, log),
		anchore.NewWatcher(scannerRepo, log),
	} {
		if err := registry.Register(w); err != nil {
			log.Fatalf("Failed to register watcher: %v", err)
		}
	}

	// Services
	reportingSvc := reporting.NewService(reportRepo, log)
	mailer := reporting.NewMailer(cfg.Mailer, reportingSvc, accountRepo, log)
	serviceNow := ticketing.NewServiceNow(cfg.ServiceNow, log)
	ingestSvc := ingest.NewService(itemRepo, auditRepo, eventRepo, accountRepo, log)
	val := validator.New()

	h := &router.Handlers{
		Health:        handlers.NewHealthHandler(db, log),
		Account:       handlers.NewAccountHandler(accountRepo, log),
		Item:          handlers.NewItemHandler(itemRepo, log),
		Issue:         handlers.NewIssueHandler(auditRepo, itemRepo, serviceNow, log, val),
		Chart:         handlers.NewChartHandler(reportingSvc, log),
		GuardDuty:     handlers.NewGuardDutyHandler(ingestSvc, reportingSvc, log),
		ScannerConfig: handlers.NewScannerConfigHandler(scannerRepo, log, val),
		Report:        handlers.NewReportHandler(reportingSvc, pipe, log),
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.New(cfg, log, h),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	if cfg.Worker.Enabled {
		scanWorker := worker.NewScanner(pipe, cfg.Worker.ScanInterval, log)
		go scanWorker.Start(ctx)

		scheduler := worker.NewScheduler(mailer, cfg.Worker.ReportCron, log)
		go func() {
			if err := scheduler.Start(ctx); err != nil {
				log.ErrorWithErr(err, "Report scheduler stopped")
			}
		}()
	}

	go func() {
		log.Infof("HTTP server listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server failed: %v", err)
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.ErrorWithErr(err, "HTTP server shutdown failed")
	}
}
