package fanout

import (
	"encoding/json"
	"log/slog"

	apperrors "sudooom.chat/internal/errors"
	"sudooom.chat/pkg/proto"
)

// Target 投递目标：房间广播或显式用户列表，二者互斥
// 按用户列表投递不要求连接预先加入任何房间
type Target struct {
	RoomKey string
	UserIds []int64
}

// RoomTarget 房间广播目标
func RoomTarget(roomKey string) Target {
	return Target{RoomKey: roomKey}
}

// UserTarget 按身份定向投递目标
func UserTarget(userIds ...int64) Target {
	return Target{UserIds: userIds}
}

// PubConn 发布端连接（*nats.Conn 满足该接口）
type PubConn interface {
	Publish(subject string, data []byte) error
}

// Publisher 事件发布器
// 投递为尽力而为：目标无存活连接不构成错误，不排队不重试
type Publisher struct {
	nc     PubConn
	logger *slog.Logger
}

// NewPublisher 创建事件发布器
func NewPublisher(nc PubConn) *Publisher {
	return &Publisher{
		nc:     nc,
		logger: slog.Default(),
	}
}

// Publish 发布事件到目标
// 单个接收方发布失败只记录日志，不中断其余接收方
func (p *Publisher) Publish(event string, payload any, target Target) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return apperrors.ErrServerError.Wrap(err)
	}

	if target.RoomKey != "" {
		return p.publishEnvelope(&proto.Envelope{
			Event:   event,
			RoomKey: target.RoomKey,
			Payload: data,
		}, BuildRoomSubject(target.RoomKey))
	}

	for _, userId := range target.UserIds {
		err := p.publishEnvelope(&proto.Envelope{
			Event:    event,
			ToUserId: userId,
			Payload:  data,
		}, BuildUserSubject(userId))
		if err != nil {
			p.logger.Warn("Failed to publish to user",
				"event", event,
				"userId", userId,
				"error", err)
		}
	}
	return nil
}

func (p *Publisher) publishEnvelope(env *proto.Envelope, subject string) error {
	data, err := json.Marshal(env)
	if err != nil {
		return apperrors.ErrServerError.Wrap(err)
	}

	if err := p.nc.Publish(subject, data); err != nil {
		p.logger.Warn("Failed to publish envelope", "subject", subject, "error", err)
		return err
	}

	p.logger.Debug("Published event", "event", env.Event, "subject", subject)
	return nil
}
