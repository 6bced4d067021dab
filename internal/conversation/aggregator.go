package conversation

import (
	"context"
	"log/slog"
	"sort"

	apperrors "sudooom.chat/internal/errors"
	"sudooom.chat/internal/model"
	"sudooom.chat/internal/store"
)

// Aggregator 会话摘要聚合
// 摘要全部按需重算，不做跨请求缓存
type Aggregator struct {
	store  store.Store
	logger *slog.Logger
}

func NewAggregator(st store.Store) *Aggregator {
	return &Aggregator{
		store:  st,
		logger: slog.Default(),
	}
}

// Summarize 计算用户的完整会话列表
// 每个所属项目一行，每个联系人一行，按最新消息时间降序；
// 无消息的会话时间字段为 null 并排在最后
// 发送者引用悬空时整体失败，不返回部分结果
func (a *Aggregator) Summarize(ctx context.Context, userId int64) ([]model.Conversation, error) {
	memberships, err := a.store.FindMemberships(ctx, userId)
	if err != nil {
		return nil, err
	}
	contacts, err := a.store.FindContacts(ctx, userId)
	if err != nil {
		return nil, err
	}

	// 同一发送者在一次聚合内只解析一次
	senderNames := make(map[int64]string)

	rows := make([]model.Conversation, 0, len(memberships)+len(contacts))

	// 1. 群聊行
	for _, m := range memberships {
		messages, err := a.store.FindGroupMessages(ctx, m.ProjectId)
		if err != nil {
			return nil, err
		}
		row := model.Conversation{
			PeerId:  m.ProjectId,
			IsGroup: true,
			Name:    m.ProjectName,
		}
		if err := a.fillLatest(ctx, &row, messages, senderNames); err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}

	// 2. 私聊行
	for _, c := range contacts {
		messages, err := a.store.FindPrivateMessages(ctx, userId, c.UserId)
		if err != nil {
			return nil, err
		}
		row := model.Conversation{
			PeerId:   c.UserId,
			IsGroup:  false,
			Name:     c.DisplayName,
			PhotoUrl: c.PhotoUrl,
		}
		if err := a.fillLatest(ctx, &row, messages, senderNames); err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}

	// 3. 按最新消息时间降序，null 永远排最后
	// 时间相同只保证稳定（保持群聊在前、联系人在后的原始相对顺序），无次级排序键
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i].LastMessageAt, rows[j].LastMessageAt
		if a == nil {
			return false
		}
		if b == nil {
			return true
		}
		return a.After(*b)
	})

	return rows, nil
}

// fillLatest 取历史中最新一条消息填充摘要行
// 存储层承诺升序返回，但内存中的集合顺序不作为时间依据，取末尾前先显式重排
func (a *Aggregator) fillLatest(ctx context.Context, row *model.Conversation, messages []model.Message, senderNames map[int64]string) error {
	if len(messages) == 0 {
		return nil
	}

	sort.SliceStable(messages, func(i, j int) bool {
		return messages[i].CreatedAt.Before(messages[j].CreatedAt)
	})
	latest := messages[len(messages)-1]

	name, ok := senderNames[latest.SenderUserId]
	if !ok {
		sender, err := a.store.FindUser(ctx, latest.SenderUserId)
		if err != nil {
			if apperrors.Is(err, apperrors.ErrUnknownUser) {
				a.logger.Error("Dangling sender reference in message history",
					"messageId", latest.Id,
					"senderUserId", latest.SenderUserId)
				return apperrors.ErrUnknownSender.Wrap(err)
			}
			return err
		}
		name = sender.DisplayName
		senderNames[latest.SenderUserId] = name
	}

	row.LastMessage = &latest.Content
	row.LastMessageAt = &latest.CreatedAt
	row.LastSenderId = &latest.SenderUserId
	row.LastSenderName = name
	return nil
}

// GroupSummaryFor 由一条刚持久化的群聊消息构造该群的最新摘要行
// 推送给房间内每个成员的增量更新使用同一份行
func (a *Aggregator) GroupSummaryFor(ctx context.Context, msg *model.Message, senderName string) (*model.Conversation, error) {
	if msg.ProjectId == nil {
		return nil, apperrors.ErrInvalidMessage
	}
	project, err := a.store.FindProject(ctx, *msg.ProjectId)
	if err != nil {
		return nil, err
	}

	return &model.Conversation{
		PeerId:         project.Id,
		IsGroup:        true,
		Name:           project.Name,
		LastMessage:    &msg.Content,
		LastMessageAt:  &msg.CreatedAt,
		LastSenderId:   &msg.SenderUserId,
		LastSenderName: senderName,
	}, nil
}

// PrivateSummariesFor 由一条刚持久化的私聊消息构造双方各自视角的摘要行
// 键为接收该行的用户，值里的 PeerId 是对方：
// 发送者收到描述接收者的行，接收者收到描述发送者的行
func (a *Aggregator) PrivateSummariesFor(ctx context.Context, msg *model.Message, senderName string) (map[int64]model.Conversation, error) {
	if msg.ReceiverUserId == nil {
		return nil, apperrors.ErrInvalidMessage
	}
	receiver, err := a.store.FindUser(ctx, *msg.ReceiverUserId)
	if err != nil {
		return nil, err
	}
	sender, err := a.store.FindUser(ctx, msg.SenderUserId)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrUnknownUser) {
			return nil, apperrors.ErrUnknownSender.Wrap(err)
		}
		return nil, err
	}

	base := model.Conversation{
		IsGroup:        false,
		LastMessage:    &msg.Content,
		LastMessageAt:  &msg.CreatedAt,
		LastSenderId:   &msg.SenderUserId,
		LastSenderName: senderName,
	}

	forSender := base
	forSender.PeerId = receiver.Id
	forSender.Name = receiver.DisplayName
	forSender.PhotoUrl = receiver.PhotoUrl

	forReceiver := base
	forReceiver.PeerId = sender.Id
	forReceiver.Name = sender.DisplayName
	forReceiver.PhotoUrl = sender.PhotoUrl

	return map[int64]model.Conversation{
		msg.SenderUserId:    forSender,
		*msg.ReceiverUserId: forReceiver,
	}, nil
}
