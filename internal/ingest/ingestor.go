package ingest

import (
	"context"
	"log/slog"

	apperrors "sudooom.chat/internal/errors"
	"sudooom.chat/internal/model"
	"sudooom.chat/internal/room"
	"sudooom.chat/internal/store"
)

// Delivery 消息入库结果与投递描述
// 入库与扇出解耦：本包只负责产出该描述，由编排层交给扇出器
type Delivery struct {
	Message    *model.Message
	SenderName string
	IsGroup    bool
	RoomKey    string  // 群聊消息的目标房间
	Recipients []int64 // 投递目标用户（群聊为发送时刻的全部成员，私聊为双方）
}

// Ingestor 消息摄入：校验、持久化、补全发送者信息、计算接收者集合
type Ingestor struct {
	store  store.Store
	logger *slog.Logger
}

// NewIngestor 创建消息摄入器
func NewIngestor(st store.Store) *Ingestor {
	return &Ingestor{
		store:  st,
		logger: slog.Default(),
	}
}

// Ingest 校验并持久化消息草稿
// 校验失败的草稿不会触达存储；除 Store 写入外无其他副作用
func (i *Ingestor) Ingest(ctx context.Context, draft model.Draft) (*Delivery, error) {
	if err := validate(draft); err != nil {
		return nil, err
	}

	msg, err := i.store.CreateMessage(ctx, draft)
	if err != nil {
		return nil, err
	}

	// 发送者不存在属于数据一致性故障，不可通过重试恢复
	sender, err := i.store.FindUser(ctx, msg.SenderUserId)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrUnknownUser) {
			return nil, apperrors.ErrUnknownSender.Wrap(err)
		}
		return nil, err
	}

	delivery := &Delivery{
		Message:    msg,
		SenderName: sender.DisplayName,
	}

	if draft.ProjectId > 0 {
		// 群聊：接收者集合取发送时刻的实时成员，不复用连接时缓存的房间索引
		members, err := i.store.ListGroupMemberIDs(ctx, draft.ProjectId)
		if err != nil {
			return nil, err
		}
		delivery.IsGroup = true
		delivery.RoomKey = room.GroupRoomKey(draft.ProjectId)
		delivery.Recipients = members
	} else {
		delivery.Recipients = []int64{draft.SenderUserId, draft.ReceiverUserId}
	}

	i.logger.Debug("Message ingested",
		"id", msg.Id,
		"senderUserId", msg.SenderUserId,
		"isGroup", delivery.IsGroup,
		"recipients", len(delivery.Recipients))

	return delivery, nil
}

// validate 校验草稿：内容非空，且项目与接收者恰好设置其一
func validate(draft model.Draft) error {
	if draft.Content == "" {
		return apperrors.ErrInvalidMessage
	}
	if draft.SenderUserId <= 0 {
		return apperrors.ErrInvalidMessage
	}
	hasProject := draft.ProjectId > 0
	hasReceiver := draft.ReceiverUserId > 0
	if hasProject == hasReceiver {
		return apperrors.ErrInvalidMessage
	}
	return nil
}
