package main

import (
	"context"
	"log"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"go.uber.org/zap"

	"github.com/andriansah/go-qris-payflow/internal/awsx"
	"github.com/andriansah/go-qris-payflow/internal/config"
	"github.com/andriansah/go-qris-payflow/internal/credential"
	"github.com/andriansah/go-qris-payflow/internal/feed"
	"github.com/andriansah/go-qris-payflow/internal/fulfill"
	"github.com/andriansah/go-qris-payflow/internal/order"
	"github.com/andriansah/go-qris-payflow/internal/reconcile"
)

func buildSweeper(cfg *config.Config, clients *awsx.Clients, logger *zap.Logger) *Sweeper {
	orders := order.NewStore(clients.DynamoDB, cfg.OrdersTable)
	credentials := credential.NewStore(clients.DynamoDB, cfg.CredentialsTable)

	notifier := awsx.NewNotifier(clients.SQS, cfg.NotifyQueueURL)
	alerter := awsx.NewAlerter(clients.CloudWatch)

	feedClient := feed.NewClient(cfg.FeedURL, cfg.FeedTimeout, logger,
		feed.WithRetries(cfg.FeedRetries))
	matcher := reconcile.NewMatcher(feedClient, logger)
	coordinator := fulfill.NewCoordinator(orders, credentials, notifier, alerter, logger)
	checker := fulfill.NewChecker(orders, matcher, coordinator, alerter, logger)

	return NewSweeper(orders, checker, logger)
}

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	clients, err := awsx.NewClients(context.Background())
	if err != nil {
		logger.Fatal("init aws clients", zap.Error(err))
	}

	sweeper := buildSweeper(cfg, clients, logger)

	if cfg.RunLocal {
		if _, err := sweeper.Sweep(context.Background()); err != nil {
			logger.Fatal("sweep", zap.Error(err))
		}
		return
	}

	lambda.Start(func(ctx context.Context, ev events.CloudWatchEvent) error {
		_, err := sweeper.Sweep(ctx)
		return err
	})
}
