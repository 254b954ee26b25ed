package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/wyfcoding/notifyhub/internal/notification/application"
	"github.com/wyfcoding/notifyhub/internal/notification/domain"
	"github.com/wyfcoding/notifyhub/internal/notification/infrastructure/client"
	"github.com/wyfcoding/notifyhub/internal/notification/infrastructure/events"
	"github.com/wyfcoding/notifyhub/internal/notification/infrastructure/provider"
	"github.com/wyfcoding/notifyhub/internal/notification/interfaces/consumer"
	httphandler "github.com/wyfcoding/notifyhub/internal/notification/interfaces/http"
	"github.com/wyfcoding/notifyhub/pkg/config"
	"github.com/wyfcoding/notifyhub/pkg/logger"
	"github.com/wyfcoding/notifyhub/pkg/metrics"
	"github.com/wyfcoding/notifyhub/pkg/middleware"
	"github.com/wyfcoding/notifyhub/pkg/mq"
	"github.com/wyfcoding/notifyhub/pkg/ratelimit"
)

// BootstrapName 服务标识
const BootstrapName = "pushserver"

func main() {
	configPath := flag.String("config", "configs/pushserver.toml", "配置文件路径")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Logger); err != nil {
		slog.Error("failed to initialize logger", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bootLog := slog.With("module", "bootstrap")
	bootLog.Info("starting push notification service", "environment", cfg.Environment)

	m := metrics.New(BootstrapName)

	// 1. 基础设施：broker 连接与拓扑
	broker, err := mq.Connect(mq.Config{
		URI:             cfg.RabbitMQ.URI,
		Exchange:        cfg.RabbitMQ.Exchange,
		Queue:           cfg.RabbitMQ.Queue,
		DeadLetterQueue: cfg.RabbitMQ.DeadLetterQueue,
		Prefetch:        cfg.RabbitMQ.Prefetch,
	})
	if err != nil {
		logger.Fatal(ctx, "rabbitmq init failed", "error", err)
	}

	// 2. 协作方客户端与投递适配器
	userClient := client.NewUserClient(cfg.Services.User)
	templateClient := client.NewTemplateClient(cfg.Services.Template)
	pushGateway, err := provider.NewPushGateway(ctx, cfg.Push.Firebase)
	if err != nil {
		logger.Fatal(ctx, "firebase init failed", "error", err)
	}

	var outcomes domain.OutcomePublisher
	var outcomePublisher *events.KafkaOutcomePublisher
	if cfg.Kafka.Enabled {
		outcomePublisher = events.NewKafkaOutcomePublisher(cfg.Kafka)
		outcomes = outcomePublisher
	}

	// 3. 业务组件装配
	pipeline := application.NewPipeline(
		domain.ChannelPush,
		userClient,
		templateClient,
		application.PushPolicy{},
		pushGateway,
		outcomes,
		m,
	)
	jobConsumer := consumer.NewConsumer(broker, pipeline, domain.ChannelPush, m)

	consumerDone := make(chan error, 1)
	go func() {
		consumerDone <- jobConsumer.Run(ctx)
	}()

	// 4. 治理：限流保护
	var limiter ratelimit.RateLimiter
	var rdb *redis.Client
	if cfg.RateLimit.Enabled {
		rdb = redis.NewClient(&redis.Options{
			Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.MaxPoolSize,
		})
		limiter = ratelimit.NewRedisRateLimiter(rdb)
	}

	srv := buildHTTPServer(cfg, m, limiter, pushGateway)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal(ctx, "http server failed", "error", err)
		}
	}()
	logger.Info(ctx, "push service listening",
		"addr", srv.Addr,
		"queue", cfg.RabbitMQ.Queue,
	)

	// 5. 等待退出条件
	select {
	case <-ctx.Done():
		logger.Info(context.Background(), "shutdown signal received")
	case err := <-consumerDone:
		if err != nil {
			logger.Error(context.Background(), "consumer stopped unexpectedly", "error", err)
		}
		stop()
	case amqpErr := <-broker.NotifyClose():
		logger.Error(context.Background(), "rabbitmq connection lost", "error", amqpErr)
		stop()
	}

	// 6. 优雅关停：先停 HTTP，再等消费者排空在途任务，最后释放连接
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error(shutdownCtx, "http shutdown failed", "error", err)
	}
	select {
	case <-consumerDone:
	case <-shutdownCtx.Done():
		logger.Warn(shutdownCtx, "timed out waiting for consumer to drain")
	}
	broker.Close()
	if outcomePublisher != nil {
		outcomePublisher.Close()
	}
	if rdb != nil {
		rdb.Close()
	}

	bootLog.Info("push service stopped")
}

// buildHTTPServer 装配控制面 HTTP：系统路由不限流，业务路由经过限流
func buildHTTPServer(cfg *config.Config, m *metrics.Metrics, limiter ratelimit.RateLimiter, dispatcher domain.Dispatcher) *http.Server {
	if cfg.Environment == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(
		middleware.GinRecoveryMiddleware(),
		middleware.GinLoggingMiddleware(),
		middleware.GinCORSMiddleware(),
		middleware.GinMetricsMiddleware(m),
	)

	sys := engine.Group("/sys")
	{
		sys.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"status":    "UP",
				"service":   BootstrapName,
				"timestamp": time.Now().Unix(),
			})
		})
		sys.GET("/ready", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "READY"})
		})
	}

	if cfg.Metrics.Enabled {
		engine.GET(cfg.Metrics.Path, gin.WrapH(m.Handler()))
	}

	engine.Use(middleware.RateLimitMiddleware(limiter, cfg.RateLimit))

	handler := httphandler.NewNotificationHandler(domain.ChannelPush, dispatcher)
	handler.RegisterRoutes(engine)

	return &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:      engine,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeout) * time.Second,
	}
}
