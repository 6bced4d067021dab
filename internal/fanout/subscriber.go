package fanout

import (
	"encoding/json"
	"log/slog"

	"sudooom.chat/internal/connection"
	"sudooom.chat/internal/workerpool"
	"sudooom.chat/pkg/proto"
)

// SubConn 订阅端连接（nats.Client 满足该接口）
type SubConn interface {
	Subscribe(subject string, handler func(data []byte)) error
}

// Subscriber 本地投递订阅器
// 订阅房间与用户两类主题，把信封还原成下行帧写入本节点的存活连接
type Subscriber struct {
	nc      SubConn
	connMgr *connection.Manager
	pool    *workerpool.Pool
	logger  *slog.Logger
}

func NewSubscriber(nc SubConn, connMgr *connection.Manager, pool *workerpool.Pool) *Subscriber {
	return &Subscriber{
		nc:      nc,
		connMgr: connMgr,
		pool:    pool,
		logger:  slog.Default(),
	}
}

// Start 订阅房间广播与用户定向两个通配主题
func (s *Subscriber) Start() error {
	if err := s.nc.Subscribe(SubjectRoomWildcard, s.handleEnvelope); err != nil {
		return err
	}
	if err := s.nc.Subscribe(SubjectUserWildcard, s.handleEnvelope); err != nil {
		return err
	}

	s.logger.Info("Fanout subscriber started",
		"room_subject", SubjectRoomWildcard,
		"user_subject", SubjectUserWildcard)
	return nil
}

// handleEnvelope 在 NATS 回调协程里只做解析和入队，
// 实际投递交给工作池，避免慢连接阻塞订阅
func (s *Subscriber) handleEnvelope(data []byte) {
	var env proto.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		s.logger.Error("Failed to unmarshal envelope", "error", err)
		return
	}

	if ok := s.pool.TrySubmit(func() { s.Deliver(&env) }); !ok {
		// 满载丢弃，投递本身就是尽力而为
		s.logger.Warn("Delivery queue full, envelope dropped",
			"event", env.Event,
			"roomKey", env.RoomKey,
			"toUserId", env.ToUserId)
	}
}

// Deliver 把信封投递给本节点的目标连接
// 目标无存活连接不是错误，静默跳过
func (s *Subscriber) Deliver(env *proto.Envelope) {
	msgType, ok := proto.FrameTypeForEvent(env.Event)
	if !ok {
		s.logger.Warn("Unknown event dropped", "event", env.Event)
		return
	}

	var conns []*connection.Connection
	if env.RoomKey != "" {
		conns = s.connMgr.GetByRoom(env.RoomKey)
	} else {
		conns = s.connMgr.GetByUserID(env.ToUserId)
	}
	if len(conns) == 0 {
		return
	}

	frame := proto.BuildFrame(msgType, env.Payload)
	delivered := 0
	for _, conn := range conns {
		if err := conn.Send(frame); err != nil {
			s.logger.Debug("Failed to deliver to connection",
				"conn_id", conn.ID(),
				"event", env.Event,
				"error", err)
			continue
		}
		delivered++
	}

	s.logger.Debug("Envelope delivered",
		"event", env.Event,
		"roomKey", env.RoomKey,
		"toUserId", env.ToUserId,
		"conns", delivered)
}
