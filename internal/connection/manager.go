package connection

import (
	"sync"
)

// Manager 管理所有存活连接
// 每个传输层会话恰好对应一个连接；同一用户可有多个连接（多标签页），
// 各自维护自己的房间集合，互不去重
type Manager struct {
	connections map[int64]*Connection
	userConns   map[int64]map[int64]*Connection // userID -> connID -> Connection
	mu          sync.RWMutex
}

func NewManager() *Manager {
	return &Manager{
		connections: make(map[int64]*Connection),
		userConns:   make(map[int64]map[int64]*Connection),
	}
}

func (m *Manager) Add(conn *Connection) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connections[conn.ID()] = conn
}

func (m *Manager) Remove(connID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	conn, ok := m.connections[connID]
	if !ok {
		return
	}

	delete(m.connections, connID)

	// 从用户连接映射中移除
	if conn.UserID() > 0 {
		if userConns, ok := m.userConns[conn.UserID()]; ok {
			delete(userConns, connID)
			if len(userConns) == 0 {
				delete(m.userConns, conn.UserID())
			}
		}
	}
}

func (m *Manager) Get(connID int64) *Connection {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.connections[connID]
}

// BindUser 将连接登记到用户索引（认证成功后调用）
func (m *Manager) BindUser(connID, userID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	conn, ok := m.connections[connID]
	if !ok {
		return
	}

	if _, ok := m.userConns[userID]; !ok {
		m.userConns[userID] = make(map[int64]*Connection)
	}
	m.userConns[userID][connID] = conn
}

// GetByUserID 返回用户当前全部存活连接
func (m *Manager) GetByUserID(userID int64) []*Connection {
	m.mu.RLock()
	defer m.mu.RUnlock()

	userConns, ok := m.userConns[userID]
	if !ok {
		return nil
	}

	conns := make([]*Connection, 0, len(userConns))
	for _, conn := range userConns {
		conns = append(conns, conn)
	}
	return conns
}

// GetByRoom 返回已加入指定房间的全部存活连接
// 每次调用得到调用时刻的一致快照
func (m *Manager) GetByRoom(roomKey string) []*Connection {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var conns []*Connection
	for _, conn := range m.connections {
		if conn.InRoom(roomKey) {
			conns = append(conns, conn)
		}
	}
	return conns
}

// Count 当前存活连接数
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.connections)
}
