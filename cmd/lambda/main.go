package main

import (
	"context"
	"fmt"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/pratik-mahalle/ec2-automations/internal/config"
	"github.com/pratik-mahalle/ec2-automations/internal/handlers"
	"github.com/pratik-mahalle/ec2-automations/internal/pkg/logger"
	"github.com/pratik-mahalle/ec2-automations/internal/providers"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.New(logger.Config{Level: "info", Format: "json"}).Fatal(fmt.Sprintf("Failed to load configuration: %v", err))
	}

	log := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	logger.SetGlobal(log)

	awsCfg, err := providers.LoadAWSConfig(context.Background(), cfg.AWS)
	if err != nil {
		log.WithError(err).Fatal("Failed to load AWS configuration")
	}
	clients := providers.NewAWSClients(awsCfg)

	h, err := handlers.New(cfg.Handler, handlers.Deps{
		Config:    cfg,
		Compute:   clients.Compute,
		Store:     clients.Store,
		Publisher: clients.Publisher,
		Logger:    log,
	})
	if err != nil {
		log.WithError(err).Fatal("Failed to build handler")
	}

	log.With("handler", h.Name()).Info("Handler ready")

	runner := handlers.NewRunner(log, cfg.Metrics)
	lambda.Start(runner.Lambda(h))
}
