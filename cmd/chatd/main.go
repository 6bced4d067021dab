package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"sudooom.chat/internal/auth"
	"sudooom.chat/internal/config"
	"sudooom.chat/internal/connection"
	"sudooom.chat/internal/conversation"
	"sudooom.chat/internal/fanout"
	"sudooom.chat/internal/handler"
	"sudooom.chat/internal/health"
	"sudooom.chat/internal/ingest"
	chatNats "sudooom.chat/internal/nats"
	"sudooom.chat/internal/presence"
	"sudooom.chat/internal/protocol"
	"sudooom.chat/internal/room"
	"sudooom.chat/internal/router"
	"sudooom.chat/internal/server"
	"sudooom.chat/internal/service"
	"sudooom.chat/internal/store"
	"sudooom.chat/internal/workerpool"
)

func main() {
	// 加载配置
	cfg, err := config.Load("configs/config.yaml")
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	// 初始化日志
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.App.LogLevel),
	}))
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 连接 NATS
	natsClient, err := chatNats.NewClient(cfg.NATS)
	if err != nil {
		logger.Error("Failed to connect to NATS", "error", err)
		os.Exit(1)
	}
	defer natsClient.Close()

	// 连接 Redis
	redisClient := connectRedis(cfg.Redis)
	defer redisClient.Close()
	logger.Info("Connected to Redis", "host", cfg.Redis.Host)

	// 连接数据库
	db, err := connectDatabase(ctx, cfg.Database)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	logger.Info("Connected to PostgreSQL", "host", cfg.Database.Host)

	// 存储与核心组件
	pg := store.NewPostgres(db)
	tokens := auth.NewTokenService(cfg.Auth.Secret, cfg.Auth.AccessExpire)
	authenticator := auth.NewAuthenticator(tokens, pg)
	roomIndex := room.NewIndex(pg)
	ingestor := ingest.NewIngestor(pg)
	publisher := fanout.NewPublisher(natsClient)
	aggregator := conversation.NewAggregator(pg)

	chatSvc := service.NewChatService(authenticator, roomIndex, ingestor, publisher, aggregator)

	// 连接管理与本地投递
	connMgr := connection.NewManager()
	pool := workerpool.New(cfg.Server.Workers, cfg.Server.QueueSize)
	subscriber := fanout.NewSubscriber(natsClient, connMgr, pool)
	if err := subscriber.Start(); err != nil {
		logger.Error("Failed to start fanout subscriber", "error", err)
		os.Exit(1)
	}

	// 接入层
	presenceStore := presence.NewStore(redisClient, cfg.Server.NodeID)
	streamHandler := protocol.NewHandler(connMgr, chatSvc, presenceStore)
	srv := server.New(cfg, connMgr, streamHandler, presenceStore)

	// 历史查询与健康检查 HTTP 服务
	checker := health.NewChecker(cfg.App.Name, natsClient, redisClient, db, connMgr)
	historyHandler := handler.NewHistoryHandler(pg, aggregator)
	httpServer := &http.Server{
		Addr:    cfg.Server.HealthAddr,
		Handler: router.Setup(historyHandler, checker),
	}
	go func() {
		logger.Info("HTTP server starting", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server failed", "error", err)
		}
	}()

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- srv.Start(ctx)
	}()

	logger.Info("Chat service started",
		"name", cfg.App.Name,
		"addr", cfg.Server.Addr,
		"node_id", cfg.Server.NodeID)

	// 优雅退出
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		logger.Info("Shutting down...")
	case err := <-serverErr:
		logger.Error("Server failed", "error", err)
	}

	cancel()
	srv.Shutdown()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown failed", "error", err)
	}

	pool.Shutdown()
	natsClient.Drain()
	logger.Info("Chat service stopped")
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// connectRedis 连接 Redis
func connectRedis(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

// connectDatabase 连接 PostgreSQL
func connectDatabase(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		cfg.User,
		cfg.Password,
		cfg.Host,
		cfg.Port,
		cfg.Name,
	)

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}

	poolConfig.MaxConns = int32(cfg.MaxOpenConns)
	poolConfig.MinConns = int32(cfg.MaxIdleConns)
	poolConfig.MaxConnLifetime = cfg.ConnMaxLifetime
	poolConfig.MaxConnIdleTime = 10 * time.Minute

	return pgxpool.NewWithConfig(ctx, poolConfig)
}
