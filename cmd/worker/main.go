package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/qs3c/powerplan_server/config"
	"github.com/qs3c/powerplan_server/internal/database"
	"github.com/qs3c/powerplan_server/internal/pkg/billing"
	"github.com/qs3c/powerplan_server/internal/pkg/clock"
	"github.com/qs3c/powerplan_server/internal/pkg/email"
	"github.com/qs3c/powerplan_server/internal/pkg/invoice"
	"github.com/qs3c/powerplan_server/internal/pkg/logger"
	"github.com/qs3c/powerplan_server/internal/pkg/metrics"
	"github.com/qs3c/powerplan_server/internal/pkg/pubsub"
	"github.com/qs3c/powerplan_server/internal/pkg/queue"
	"github.com/qs3c/powerplan_server/internal/pkg/storage"
	"github.com/qs3c/powerplan_server/internal/repository"
	"github.com/qs3c/powerplan_server/internal/service"
	"github.com/qs3c/powerplan_server/internal/worker"
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
	log.Info("Database connected")

	// 初始化 Redis
	rdb, err := database.NewRedis(&cfg.Redis)
	if err != nil {
		log.Fatalf("Failed to connect redis: %v", err)
	}
	log.Info("Redis connected")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 初始化对象存储
	store, err := storage.New(ctx, &cfg.Storage)
	if err != nil {
		log.Fatalf("Failed to init storage %q: %v", cfg.Storage.Backend, err)
	}
	log.WithField("backend", cfg.Storage.Backend).Info("Storage initialized")

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

	// 初始化 Queue 和 Pub/Sub
	jobQueue := queue.NewQueue(rdb, cfg.Queue.StatementQueue)
	publisher := pubsub.NewPublisher(rdb)

	// 初始化 Repository
	userRepo := repository.NewUserRepository(db)
	userPlanRepo := repository.NewUserPlanRepository(db)
	jobRepo := repository.NewJobRepository(db)

	// 归档只渲染 PDF，不调用用量服务
	billingService := service.NewBillingService(userPlanRepo, userRepo, calculator, invoice.NewRenderer(cfg.Billing.CurrencySymbol), nil, clk, m, log)
	statementService := service.NewStatementService(jobRepo, userPlanRepo, jobQueue, clk, log)

	// 创建任务处理器
	processor := worker.NewProcessor(jobRepo, userRepo, billingService, store, publisher, email.NewService(&cfg.Email), clk, m, log)

	// 监听退出信号
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info("Received shutdown signal")
		cancel()
	}()

	go worker.NewRequeuer(statementService, cfg.Queue.MaxAttempts, log).Start(ctx)

	worker.NewPool(jobQueue, processor, cfg.Queue.MaxWorkers, log).Run(ctx)
	log.Info("Worker shutdown complete")
}
