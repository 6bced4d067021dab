package health

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// Status 健康状态
type Status struct {
	Service     string `json:"service"`
	NATS        string `json:"nats"`
	Redis       string `json:"redis"`
	Database    string `json:"database"`
	Connections int    `json:"connections"`
}

// NATSConn NATS 连接状态查询
type NATSConn interface {
	IsConnected() bool
}

// ConnectionCounter 连接计数器接口
type ConnectionCounter interface {
	Count() int
}

// Checker 健康检查器
type Checker struct {
	service     string
	nc          NATSConn
	redisClient *redis.Client
	db          *pgxpool.Pool
	connCounter ConnectionCounter
}

// NewChecker 创建健康检查器
func NewChecker(service string, nc NATSConn, redisClient *redis.Client, db *pgxpool.Pool, connCounter ConnectionCounter) *Checker {
	return &Checker{
		service:     service,
		nc:          nc,
		redisClient: redisClient,
		db:          db,
		connCounter: connCounter,
	}
}

// Check 执行健康检查
func (h *Checker) Check(ctx context.Context) *Status {
	status := &Status{
		Service: h.service,
	}

	// 检查 NATS
	if h.nc != nil && h.nc.IsConnected() {
		status.NATS = "connected"
	} else {
		status.NATS = "disconnected"
	}

	// 检查 Redis
	if h.redisClient != nil {
		redisCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()

		if err := h.redisClient.Ping(redisCtx).Err(); err == nil {
			status.Redis = "connected"
		} else {
			status.Redis = "disconnected"
		}
	} else {
		status.Redis = "not configured"
	}

	// 检查数据库
	if h.db != nil {
		dbCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()

		if err := h.db.Ping(dbCtx); err == nil {
			status.Database = "connected"
		} else {
			status.Database = "disconnected"
		}
	} else {
		status.Database = "not configured"
	}

	// 连接数
	if h.connCounter != nil {
		status.Connections = h.connCounter.Count()
	}

	return status
}

// IsHealthy 检查是否健康
func (h *Checker) IsHealthy(ctx context.Context) bool {
	status := h.Check(ctx)
	return status.NATS == "connected" && status.Database != "disconnected"
}

// Handler 健康检查端点
func (h *Checker) Handler(c *gin.Context) {
	status := h.Check(c.Request.Context())

	code := http.StatusOK
	if status.NATS != "connected" || status.Database == "disconnected" {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, status)
}
