package connection

import (
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/quic-go/webtransport-go"
)

var ErrConnectionClosed = errors.New("connection closed")

var connIDCounter int64

// State 连接状态
type State int32

const (
	StatePending       State = iota // 传输层已建立，尚未认证
	StateAuthenticated              // 已绑定用户身份，尚未加入房间
	StateJoined                     // 已加入房间
	StateClosed                     // 终态
)

// Connection 表示一个客户端连接
// 身份与已加入房间集合归各连接独占，不同连接之间互不共享
type Connection struct {
	id         int64
	session    *webtransport.Session
	logger     *slog.Logger
	writeChan  chan []byte
	closeChan  chan struct{}
	closeOnce  sync.Once
	createTime time.Time

	mu         sync.RWMutex
	state      State
	userID     int64
	rooms      map[string]struct{}
	lastActive time.Time
}

// NewFromWebTransport 从 WebTransport 会话创建连接，初始为 Pending 状态
func NewFromWebTransport(session *webtransport.Session, logger *slog.Logger) *Connection {
	id := atomic.AddInt64(&connIDCounter, 1)
	c := &Connection{
		id:         id,
		session:    session,
		logger:     logger,
		writeChan:  make(chan []byte, 256),
		closeChan:  make(chan struct{}),
		createTime: time.Now(),
		state:      StatePending,
		rooms:      make(map[string]struct{}),
	}
	if session != nil {
		go c.writeLoop()
	}
	return c
}

func (c *Connection) ID() int64 {
	return c.id
}

func (c *Connection) UserID() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.userID
}

// State 当前连接状态
func (c *Connection) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Bind 绑定认证后的用户身份：Pending -> Authenticated
func (c *Connection) Bind(userID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StatePending {
		return
	}
	c.userID = userID
	c.state = StateAuthenticated
	c.lastActive = time.Now()
}

// JoinRooms 加入房间集合：Authenticated -> Joined
// 集合并集语义，重复调用幂等
func (c *Connection) JoinRooms(roomKeys []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StatePending || c.state == StateClosed {
		return
	}
	for _, key := range roomKeys {
		c.rooms[key] = struct{}{}
	}
	c.state = StateJoined
}

// JoinRoom 加入单个房间
func (c *Connection) JoinRoom(roomKey string) {
	c.JoinRooms([]string{roomKey})
}

// InRoom 是否已加入指定房间
func (c *Connection) InRoom(roomKey string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.rooms[roomKey]
	return ok
}

// Rooms 返回已加入房间快照
func (c *Connection) Rooms() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	rooms := make([]string, 0, len(c.rooms))
	for key := range c.rooms {
		rooms = append(rooms, key)
	}
	return rooms
}

// Send 发送数据帧，尽力而为：连接关闭时返回错误
func (c *Connection) Send(data []byte) error {
	select {
	case c.writeChan <- data:
		return nil
	case <-c.closeChan:
		return ErrConnectionClosed
	}
}

// Pending 写缓冲中待发送的帧数（用于监控）
func (c *Connection) Pending() int {
	return len(c.writeChan)
}

func (c *Connection) writeLoop() {
	for {
		select {
		case data := <-c.writeChan:
			stream, err := c.session.OpenStream()
			if err != nil {
				c.logger.Error("Failed to open stream", "error", err)
				continue
			}
			if _, err := stream.Write(data); err != nil {
				c.logger.Error("Failed to write to stream", "error", err)
			}
			stream.Close()
		case <-c.closeChan:
			return
		}
	}
}

// Close 关闭连接，任何状态均可进入 Closed 终态
func (c *Connection) Close() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.state = StateClosed
		c.mu.Unlock()

		close(c.closeChan)
		if c.session != nil {
			c.session.CloseWithError(0, "connection closed")
		}
	})
}

// UpdateActive 更新活跃时间
func (c *Connection) UpdateActive() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastActive = time.Now()
}

// LastActive 最近活跃时间
func (c *Connection) LastActive() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastActive
}

func (c *Connection) CreateTime() time.Time {
	return c.createTime
}
