package connection

import (
	"log/slog"
	"testing"
)

func newTestConn() *Connection {
	return NewFromWebTransport(nil, slog.Default())
}

func TestConnection_StateTransitions(t *testing.T) {
	c := newTestConn()

	if c.State() != StatePending {
		t.Errorf("Expected StatePending, got %v", c.State())
	}

	c.Bind(7)
	if c.State() != StateAuthenticated {
		t.Errorf("Expected StateAuthenticated, got %v", c.State())
	}
	if c.UserID() != 7 {
		t.Errorf("Expected user ID 7, got %d", c.UserID())
	}

	c.JoinRooms([]string{"100", "private_3_7"})
	if c.State() != StateJoined {
		t.Errorf("Expected StateJoined, got %v", c.State())
	}

	c.Close()
	if c.State() != StateClosed {
		t.Errorf("Expected StateClosed, got %v", c.State())
	}
}

func TestConnection_JoinBeforeAuth(t *testing.T) {
	c := newTestConn()

	// 未认证的连接不能加入房间
	c.JoinRooms([]string{"100"})
	if c.State() != StatePending {
		t.Errorf("Expected StatePending, got %v", c.State())
	}
	if c.InRoom("100") {
		t.Error("Pending connection should not join rooms")
	}
}

func TestConnection_JoinIdempotent(t *testing.T) {
	c := newTestConn()
	c.Bind(7)

	rooms := []string{"100", "private_7_9"}
	c.JoinRooms(rooms)
	first := len(c.Rooms())

	// 重复加入同一房间集合，结果不变
	c.JoinRooms(rooms)
	if got := len(c.Rooms()); got != first {
		t.Errorf("Expected %d rooms after repeat join, got %d", first, got)
	}
	if !c.InRoom("100") || !c.InRoom("private_7_9") {
		t.Error("Expected both rooms to be joined")
	}
}

func TestConnection_SendAfterClose(t *testing.T) {
	c := newTestConn()
	c.Close()

	if err := c.Send([]byte("x")); err != ErrConnectionClosed {
		t.Errorf("Expected ErrConnectionClosed, got %v", err)
	}
}

func TestManager_AddRemove(t *testing.T) {
	m := NewManager()
	c := newTestConn()

	m.Add(c)
	if m.Count() != 1 {
		t.Errorf("Expected 1 connection, got %d", m.Count())
	}
	if m.Get(c.ID()) != c {
		t.Error("Expected to get the added connection")
	}

	m.Remove(c.ID())
	if m.Count() != 0 {
		t.Errorf("Expected 0 connections, got %d", m.Count())
	}
	if m.Get(c.ID()) != nil {
		t.Error("Expected nil after removal")
	}
}

func TestManager_MultipleConnectionsPerUser(t *testing.T) {
	m := NewManager()

	// 同一用户两个连接（多标签页），各自独立
	c1 := newTestConn()
	c2 := newTestConn()
	c1.Bind(7)
	c2.Bind(7)
	m.Add(c1)
	m.Add(c2)
	m.BindUser(c1.ID(), 7)
	m.BindUser(c2.ID(), 7)

	conns := m.GetByUserID(7)
	if len(conns) != 2 {
		t.Fatalf("Expected 2 connections for user 7, got %d", len(conns))
	}

	m.Remove(c1.ID())
	conns = m.GetByUserID(7)
	if len(conns) != 1 {
		t.Fatalf("Expected 1 connection after removal, got %d", len(conns))
	}

	m.Remove(c2.ID())
	if conns := m.GetByUserID(7); conns != nil {
		t.Errorf("Expected no connections, got %d", len(conns))
	}
}

func TestManager_GetByRoom(t *testing.T) {
	m := NewManager()

	c1 := newTestConn()
	c1.Bind(7)
	c1.JoinRooms([]string{"100", "private_7_9"})

	c2 := newTestConn()
	c2.Bind(9)
	c2.JoinRooms([]string{"100"})

	c3 := newTestConn()
	c3.Bind(11)
	c3.JoinRooms([]string{"200"})

	m.Add(c1)
	m.Add(c2)
	m.Add(c3)

	inRoom := m.GetByRoom("100")
	if len(inRoom) != 2 {
		t.Errorf("Expected 2 connections in room 100, got %d", len(inRoom))
	}

	inPrivate := m.GetByRoom("private_7_9")
	if len(inPrivate) != 1 || inPrivate[0] != c1 {
		t.Errorf("Expected only c1 in private room, got %d", len(inPrivate))
	}

	if got := m.GetByRoom("missing"); len(got) != 0 {
		t.Errorf("Expected empty result for unknown room, got %d", len(got))
	}
}
