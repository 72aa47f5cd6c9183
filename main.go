// Package main provides the main entry point for the OrgDesk campaign approval service
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/orgdesk/orgdesk/app/handlers"
	"github.com/orgdesk/orgdesk/app/middleware"
	"github.com/orgdesk/orgdesk/app/router"
	"github.com/orgdesk/orgdesk/app/scheduler"
	"github.com/orgdesk/orgdesk/app/services"
	businessflow "github.com/orgdesk/orgdesk/business_flow"
	"github.com/orgdesk/orgdesk/config"
	"github.com/orgdesk/orgdesk/repository"
)

// Application holds the wired components
type Application struct {
	router    router.Router
	config    *config.ProductionConfig
	stopFuncs []func()
}

func main() {
	log.Println("Starting OrgDesk application...")

	cfg, err := config.LoadProductionConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	app, err := initializeApplication(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	app.router.SetupRoutes()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := app.router.Start(cfg.Server.Address()); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-sigChan
	log.Println("Shutting down gracefully...")

	// Stop background workers first so no new deliveries start mid-shutdown
	for _, fn := range app.stopFuncs {
		fn()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := app.router.GetApp().ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}

	log.Println("Server stopped")
}

// initializeApplication wires the repositories, services, flows and handlers
func initializeApplication(cfg *config.ProductionConfig) (*Application, error) {
	db, err := initializeDatabase(cfg.Database)
	if err != nil {
		return nil, err
	}

	redisClient := initializeRedis(cfg.Cache)

	// Repositories
	userRepo := repository.NewUserRepository(db)
	templateRepo := repository.NewNotificationTemplateRepository(db)
	campaignRepo := repository.NewCampaignRepository(db)
	ruleRepo := repository.NewApprovalRuleRepository(db)
	workflowRepo := repository.NewApprovalWorkflowRepository(db)
	meetingRepo := repository.NewMeetingRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	auditRepo := repository.NewAuditLogRepository(db)

	// Services
	tokenService, err := services.NewTokenService(cfg.JWT.AccessTokenTTL, cfg.JWT.Issuer, cfg.JWT.Audience, cfg.JWT.SecretKey)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize token service: %w", err)
	}

	sink, err := initializeSink(cfg.Notify)
	if err != nil {
		return nil, err
	}

	eventBus := services.NewRedisEventBus(redisClient)

	// Business flows
	campaignFlow := businessflow.NewCampaignFlow(campaignRepo, templateRepo, ruleRepo, workflowRepo, userRepo, auditRepo, eventBus, redisClient, db)
	approvalFlow := businessflow.NewApprovalFlow(workflowRepo, campaignRepo, notificationRepo, auditRepo, eventBus, db)
	executionFlow := businessflow.NewExecutionFlow(campaignRepo, templateRepo, userRepo, notificationRepo, auditRepo, sink, eventBus, db)
	meetingFlow := businessflow.NewMeetingFlow(meetingRepo, userRepo, notificationRepo, auditRepo, eventBus, db)
	ruleFlow := businessflow.NewRuleFlow(ruleRepo, auditRepo, redisClient)
	reportFlow := businessflow.NewReportFlow(campaignRepo, userRepo)

	// Handlers and routing
	authMiddleware := middleware.NewAuthMiddleware(tokenService)
	campaignHandler := handlers.NewCampaignHandler(campaignFlow, executionFlow)
	approvalHandler := handlers.NewApprovalHandler(approvalFlow)
	meetingHandler := handlers.NewMeetingHandler(meetingFlow)
	ruleHandler := handlers.NewRuleAdminHandler(ruleFlow)
	reportHandler := handlers.NewReportAdminHandler(reportFlow)

	r := router.NewFiberRouter(authMiddleware, campaignHandler, approvalHandler, meetingHandler, ruleHandler, reportHandler, cfg.Security.AllowedOrigins)

	app := &Application{
		router: r,
		config: cfg,
	}

	// Background sweeper: auto-approvals and scheduled deliveries
	if cfg.Scheduler.Enabled {
		sweeper := scheduler.NewWorkflowSweeper(approvalFlow, executionFlow, campaignRepo, cfg.Scheduler.Interval, cfg.Logging.Dir)
		stop := sweeper.Start(context.Background())
		app.stopFuncs = append(app.stopFuncs, stop)
	}

	app.stopFuncs = append(app.stopFuncs, func() { sink.Close() })
	if redisClient != nil {
		app.stopFuncs = append(app.stopFuncs, func() { _ = redisClient.Close() })
	}

	return app, nil
}

// initializeDatabase initializes the database connection with connection pooling
func initializeDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Println("Database connection established")
	return db, nil
}

// initializeRedis returns nil when caching is disabled; the flows treat a nil
// client as a no-op cache
func initializeRedis(cfg config.CacheConfig) *redis.Client {
	if !cfg.Enabled {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Printf("Redis unavailable, continuing without cache: %v", err)
		_ = client.Close()
		return nil
	}

	log.Println("Redis connection established")
	return client
}

// initializeSink picks the delivery queue implementation
func initializeSink(cfg config.NotifyConfig) (services.NotificationSink, error) {
	if cfg.UseMock {
		log.Println("Using mock notification sink")
		return services.NewMockNotificationSink(), nil
	}
	sink, err := services.NewAMQPNotificationSink(cfg.AMQPURL, cfg.QueueName)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to AMQP broker: %w", err)
	}
	log.Println("AMQP connection established")
	return sink, nil
}
