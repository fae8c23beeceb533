package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/qs3c/powerplan_server/config"
	"github.com/qs3c/powerplan_server/internal/api"
	"github.com/qs3c/powerplan_server/internal/api/handler"
	"github.com/qs3c/powerplan_server/internal/database"
	"github.com/qs3c/powerplan_server/internal/pkg/billing"
	"github.com/qs3c/powerplan_server/internal/pkg/clock"
	"github.com/qs3c/powerplan_server/internal/pkg/cron"
	"github.com/qs3c/powerplan_server/internal/pkg/email"
	"github.com/qs3c/powerplan_server/internal/pkg/invoice"
	"github.com/qs3c/powerplan_server/internal/pkg/logger"
	"github.com/qs3c/powerplan_server/internal/pkg/metering"
	"github.com/qs3c/powerplan_server/internal/pkg/metrics"
	"github.com/qs3c/powerplan_server/internal/pkg/oauth"
	"github.com/qs3c/powerplan_server/internal/pkg/pubsub"
	"github.com/qs3c/powerplan_server/internal/pkg/queue"
	"github.com/qs3c/powerplan_server/internal/pkg/ws"
	"github.com/qs3c/powerplan_server/internal/repository"
	"github.com/qs3c/powerplan_server/internal/service"
)

func main() {
	configPath := flag.String("config", "config.yaml", "config file path")
	flag.Parse()

	// 加载配置
	cfg, err := config.Load(*configPath)
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}
	log := logger.New(cfg.Log)

	// 初始化数据库
	db, err := database.Open(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}
	log.Info("Database connected")

	// 初始化 Redis
	rdb, err := database.NewRedis(&cfg.Redis)
	if err != nil {
		log.Fatalf("Failed to connect redis: %v", err)
	}
	log.Info("Redis connected")

	loc, err := clock.LoadLocation(cfg.Billing.Timezone)
	if err != nil {
		log.Fatalf("Invalid billing timezone %q: %v", cfg.Billing.Timezone, err)
	}
	clk := clock.System(loc)
	m := metrics.New(nil)

	calculator, err := billing.NewCalculator(cfg.Billing)
	if err != nil {
		log.Fatalf("Invalid billing config: %v", err)
	}

	// 初始化 Queue、Pub/Sub、邮件
	jobQueue := queue.NewQueue(rdb, cfg.Queue.StatementQueue)
	publisher := pubsub.NewPublisher(rdb)
	mailer := email.NewService(&cfg.Email)
	meter := metering.NewClient(cfg.Metering.BaseURL, time.Duration(cfg.Metering.TimeoutSeconds)*time.Second)

	// 初始化 WebSocket Hub
	wsHub := ws.NewHub(log)

	// 初始化 Repository
	userRepo := repository.NewUserRepository(db)
	planRepo := repository.NewPlanRepository(db)
	userPlanRepo := repository.NewUserPlanRepository(db)
	jobRepo := repository.NewJobRepository(db)

	// 初始化 Service
	authService := service.NewAuthService(userRepo, cfg, log)
	userService := service.NewUserService(userRepo)
	registrationService := service.NewRegistrationService(userRepo, &cfg.Registration, clk, mailer, publisher, m, log)
	planService := service.NewPlanService(planRepo, time.Duration(cfg.Registration.CacheTTLSeconds)*time.Second)
	userPlanService := service.NewUserPlanService(userPlanRepo, planRepo, userRepo, clk, mailer, publisher, log)
	billingService := service.NewBillingService(userPlanRepo, userRepo, calculator, invoice.NewRenderer(cfg.Billing.CurrencySymbol), meter, clk, m, log)
	statementService := service.NewStatementService(jobRepo, userPlanRepo, jobQueue, clk, log)
	terminationService := service.NewTerminationService(userPlanRepo, userRepo, mailer, clk, cfg.Cron.AlertDaysBefore, m, log)

	// 初始化 Handler
	handlers := &api.Handlers{
		Auth:         handler.NewAuthHandler(authService, oauth.NewStateStore(rdb, cfg.CORS.AllowedOrigins...)),
		User:         handler.NewUserHandler(userService),
		Registration: handler.NewRegistrationHandler(registrationService),
		Plan:         handler.NewPlanHandler(planService),
		UserPlan:     handler.NewUserPlanHandler(userPlanService, billingService),
		Bill:         handler.NewBillHandler(billingService),
		Statement:    handler.NewStatementHandler(statementService),
		WebSocket:    handler.NewWebSocketHandler(wsHub, cfg.JWT.Secret, cfg.CORS.AllowedOrigins, log),
	}
	engine := api.NewRouter(handlers, m, log, cfg).Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 将 worker 和各 service 发布的通知转发给在线连接
	go func() {
		sub := pubsub.NewSubscriber(rdb)
		if err := sub.Subscribe(ctx, wsHub.Relay); err != nil && !errors.Is(err, context.Canceled) {
			log.WithError(err).Error("Notification subscriber stopped")
		}
	}()
	log.Info("WebSocket hub started")

	// 定时任务
	scheduler := cron.NewService(statementService, terminationService, loc, log)
	if err := scheduler.Register(cfg.Cron.StatementSpec, cfg.Cron.TerminationSpec); err != nil {
		log.Fatalf("Invalid cron spec: %v", err)
	}
	scheduler.Start()

	// 启动服务器
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{Addr: addr, Handler: engine}
	go func() {
		log.Infof("Server starting on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	log.Info("Received shutdown signal")

	cancel()
	scheduler.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Server shutdown failed")
	}
	log.Info("Server stopped")
}
