package main

import (
	"context"
	"log"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/andriansah/go-qris-payflow/internal/awsx"
	"github.com/andriansah/go-qris-payflow/internal/config"
	"github.com/andriansah/go-qris-payflow/internal/credential"
	"github.com/andriansah/go-qris-payflow/internal/feed"
	"github.com/andriansah/go-qris-payflow/internal/fulfill"
	"github.com/andriansah/go-qris-payflow/internal/handler"
	"github.com/andriansah/go-qris-payflow/internal/order"
	"github.com/andriansah/go-qris-payflow/internal/ratelimit"
	"github.com/andriansah/go-qris-payflow/internal/reconcile"
	"github.com/andriansah/go-qris-payflow/internal/settings"
	"github.com/andriansah/go-qris-payflow/internal/validation"
	"github.com/andriansah/go-qris-payflow/internal/voucher"
)

func setupRouter(cfg *config.Config, clients *awsx.Clients, logger *zap.Logger) *gin.Engine {
	orders := order.NewStore(clients.DynamoDB, cfg.OrdersTable)
	credentials := credential.NewStore(clients.DynamoDB, cfg.CredentialsTable)
	vouchers := voucher.NewStore(clients.DynamoDB, cfg.VouchersTable)
	settingsStore := settings.NewStore(clients.DynamoDB, cfg.SettingsTable)

	notifier := awsx.NewNotifier(clients.SQS, cfg.NotifyQueueURL)
	alerter := awsx.NewAlerter(clients.CloudWatch)

	feedClient := feed.NewClient(cfg.FeedURL, cfg.FeedTimeout, logger,
		feed.WithRetries(cfg.FeedRetries))
	matcher := reconcile.NewMatcher(feedClient, logger)
	coordinator := fulfill.NewCoordinator(orders, credentials, notifier, alerter, logger)
	checker := fulfill.NewChecker(orders, matcher, coordinator, alerter, logger)

	var limitStore ratelimit.Store
	if cfg.RedisAddr != "" {
		limitStore = ratelimit.NewRedisStore(redis.NewClient(&redis.Options{Addr: cfg.RedisAddr}))
		logger.Info("rate limiting via redis", zap.String("addr", cfg.RedisAddr))
	} else {
		limitStore = ratelimit.NewMemoryStore()
	}

	h := handler.New(handler.Config{
		Orders:           orders,
		Credentials:      credentials,
		Vouchers:         vouchers,
		Settings:         settingsStore,
		Checker:          checker,
		Limiter:          ratelimit.New(limitStore),
		Logger:           logger,
		QRISTemplate:     cfg.QRISTemplate,
		DefaultBasePrice: cfg.DefaultBasePrice,
		OrderTTL:         cfg.OrderTTL,
		CreateLimit:      cfg.CreateLimit,
		CheckLimit:       cfg.CheckLimit,
		RateWindow:       cfg.RateWindow,
	}, validation.New())

	r := gin.New()
	r.Use(gin.Recovery())
	h.Register(r)
	return r
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

	r := setupRouter(cfg, clients, logger)

	if cfg.RunLocal {
		logger.Info("running local server", zap.String("addr", cfg.ListenAddr))
		if err := r.Run(cfg.ListenAddr); err != nil {
			logger.Fatal("local server", zap.Error(err))
		}
		return
	}

	adapter := ginadapter.New(r)
	lambda.Start(func(ctx context.Context, req events.APIGatewayProxyRequest) (interface{}, error) {
		return adapter.ProxyWithContext(ctx, req)
	})
}
