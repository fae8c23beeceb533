package main

import (
	"context"
	"flag"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/qs3c/powerplan_server/config"
	"github.com/qs3c/powerplan_server/internal/database"
	"github.com/qs3c/powerplan_server/internal/pkg/billing"
	"github.com/qs3c/powerplan_server/internal/pkg/clock"
	"github.com/qs3c/powerplan_server/internal/pkg/email"
	"github.com/qs3c/powerplan_server/internal/pkg/logger"
	"github.com/qs3c/powerplan_server/internal/repository"
	"github.com/qs3c/powerplan_server/internal/service"
)

var (
	configPath = flag.String("config", "config.yaml", "config file path")
	dryRun     = flag.Bool("dry-run", false, "list expiring subscriptions without deleting or mailing")
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}
	log := logger.New(cfg.Log)
	log.WithField("dry_run", *dryRun).Info("Starting termination sweep")

	db, err := database.Open(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect database: %v", err)
	}

	loc, err := clock.LoadLocation(cfg.Billing.Timezone)
	if err != nil {
		log.Fatalf("Invalid billing timezone %q: %v", cfg.Billing.Timezone, err)
	}

	svc := service.NewTerminationService(
		repository.NewUserPlanRepository(db),
		repository.NewUserRepository(db),
		email.NewService(&cfg.Email),
		clock.System(loc),
		cfg.Cron.AlertDaysBefore,
		nil,
		log,
	)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	result, err := svc.Sweep(ctx, *dryRun)
	if err != nil {
		log.Fatalf("Termination sweep failed: %v", err)
	}

	for _, up := range result.Terminated {
		log.WithFields(logrus.Fields{
			"user_plan_id": up.ID,
			"user_id":      up.UserID,
			"plan":         up.PlanName,
			"required_to":  up.RequiredTo.Format(billing.DateLayout),
		}).Info("Terminated")
	}
	for _, up := range result.Alerted {
		log.WithFields(logrus.Fields{
			"user_plan_id": up.ID,
			"user_id":      up.UserID,
			"required_to":  up.RequiredTo.Format(billing.DateLayout),
		}).Info("Expiry alert")
	}

	log.WithFields(logrus.Fields{
		"terminated": len(result.Terminated),
		"alerted":    len(result.Alerted),
		"dry_run":    result.DryRun,
	}).Info("Termination sweep completed")
}
