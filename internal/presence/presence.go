package presence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// 在线状态 TTL: 2 分钟，心跳续期
	presenceTTL = 2 * time.Minute

	keyPrefix = "chat:presence:"
)

// Entry 一条在线连接记录
// 同一用户的多个连接（多标签页）各占一条记录，互不覆盖
type Entry struct {
	UserId    int64     `json:"userId"`
	ConnId    int64     `json:"connId"`
	NodeId    string    `json:"nodeId"`
	LoginTime time.Time `json:"loginTime"`
}

// Store 在线状态存储
// 仅用于可观测与跨节点查询，投递路径不依赖它
type Store struct {
	client *redis.Client
	nodeID string
	logger *slog.Logger
}

func NewStore(client *redis.Client, nodeID string) *Store {
	return &Store{
		client: client,
		nodeID: nodeID,
		logger: slog.Default(),
	}
}

func buildKey(userId, connId int64) string {
	return fmt.Sprintf("%s%d:%d", keyPrefix, userId, connId)
}

// Register 登记连接在线，认证成功后调用
func (s *Store) Register(ctx context.Context, userId, connId int64) error {
	entry := Entry{
		UserId:    userId,
		ConnId:    connId,
		NodeId:    s.nodeID,
		LoginTime: time.Now(),
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal presence entry: %w", err)
	}

	err = s.client.Set(ctx, buildKey(userId, connId), data, presenceTTL).Err()
	if err == nil {
		s.logger.Debug("Registered presence",
			"userId", userId,
			"connId", connId,
			"nodeId", s.nodeID)
	}
	return err
}

// Refresh 心跳续期 TTL
func (s *Store) Refresh(ctx context.Context, userId, connId int64) error {
	return s.client.Expire(ctx, buildKey(userId, connId), presenceTTL).Err()
}

// Unregister 连接断开时移除记录
func (s *Store) Unregister(ctx context.Context, userId, connId int64) error {
	return s.client.Del(ctx, buildKey(userId, connId)).Err()
}

// IsOnline 用户是否有任意在线连接
func (s *Store) IsOnline(ctx context.Context, userId int64) (bool, error) {
	pattern := fmt.Sprintf("%s%d:*", keyPrefix, userId)
	iter := s.client.Scan(ctx, 0, pattern, 1).Iterator()
	if iter.Next(ctx) {
		return true, nil
	}
	return false, iter.Err()
}

// Get 查询单条在线记录，不在线返回 nil
func (s *Store) Get(ctx context.Context, userId, connId int64) (*Entry, error) {
	data, err := s.client.Get(ctx, buildKey(userId, connId)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var entry Entry
	if err := json.Unmarshal([]byte(data), &entry); err != nil {
		return nil, fmt.Errorf("failed to unmarshal presence entry: %w", err)
	}
	return &entry, nil
}

// Ping 检查 Redis 连接
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
