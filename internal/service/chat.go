package service

import (
	"context"
	"log/slog"

	"sudooom.chat/internal/auth"
	"sudooom.chat/internal/conversation"
	"sudooom.chat/internal/fanout"
	"sudooom.chat/internal/ingest"
	"sudooom.chat/internal/model"
	"sudooom.chat/internal/room"
	"sudooom.chat/pkg/proto"
)

// ChatService 聊天业务编排
// 摄入、扇出、聚合互不引用，由本层串联：
// 摄入产出投递描述，本层将其翻译成一组发布动作
type ChatService struct {
	authenticator auth.Authenticator
	roomIndex     *room.Index
	ingestor      *ingest.Ingestor
	publisher     *fanout.Publisher
	aggregator    *conversation.Aggregator
	logger        *slog.Logger
}

func NewChatService(
	authenticator auth.Authenticator,
	roomIndex *room.Index,
	ingestor *ingest.Ingestor,
	publisher *fanout.Publisher,
	aggregator *conversation.Aggregator,
) *ChatService {
	return &ChatService{
		authenticator: authenticator,
		roomIndex:     roomIndex,
		ingestor:      ingestor,
		publisher:     publisher,
		aggregator:    aggregator,
		logger:        slog.Default(),
	}
}

// Authenticate 校验凭证并返回用户身份
func (s *ChatService) Authenticate(ctx context.Context, credential string) (int64, error) {
	return s.authenticator.Validate(ctx, credential)
}

// RoomsFor 计算用户应加入的全部房间
func (s *ChatService) RoomsFor(ctx context.Context, userId int64) ([]string, error) {
	return s.roomIndex.RoomsFor(ctx, userId)
}

// SendGroupMessage 群聊消息：入库后向房间推送新消息事件，
// 并把最新会话摘要行广播到房间一次、再按成员身份各投一份
func (s *ChatService) SendGroupMessage(ctx context.Context, senderId int64, req proto.SendGroupMessageRequest) error {
	delivery, err := s.ingestor.Ingest(ctx, model.Draft{
		Content:      req.Content,
		SenderUserId: senderId,
		ProjectId:    req.ProjectId,
	})
	if err != nil {
		return err
	}
	msg := delivery.Message

	push := proto.NewMessagePush{
		Id:             msg.Id,
		Content:        msg.Content,
		SenderUserId:   msg.SenderUserId,
		SenderUserName: delivery.SenderName,
		CreatedAt:      msg.CreatedAt,
	}
	if err := s.publisher.Publish(proto.EventNewMessage, push, fanout.RoomTarget(delivery.RoomKey)); err != nil {
		return err
	}

	summary, err := s.aggregator.GroupSummaryFor(ctx, msg, delivery.SenderName)
	if err != nil {
		return err
	}
	update := proto.ConversationUpdate{Status: "success-update", Data: *summary}
	if err := s.publisher.Publish(proto.EventConversationsList, update, fanout.RoomTarget(delivery.RoomKey)); err != nil {
		return err
	}
	return s.publisher.Publish(proto.EventConversationsList, update, fanout.UserTarget(delivery.Recipients...))
}

// SendPrivateMessage 私聊消息：入库后按双方身份各推一份新消息事件，
// 摘要行双方视角不同，各自单独计算单独投递，不走共享房间
func (s *ChatService) SendPrivateMessage(ctx context.Context, senderId int64, req proto.SendPrivateMessageRequest) error {
	delivery, err := s.ingestor.Ingest(ctx, model.Draft{
		Content:        req.Content,
		SenderUserId:   senderId,
		ReceiverUserId: req.ReceiverUserId,
	})
	if err != nil {
		return err
	}
	msg := delivery.Message

	push := proto.NewPrivateMessagePush{
		Id:             msg.Id,
		Content:        msg.Content,
		SenderUserId:   msg.SenderUserId,
		ReceiverUserId: *msg.ReceiverUserId,
		SenderUserName: delivery.SenderName,
		CreatedAt:      msg.CreatedAt,
	}
	if err := s.publisher.Publish(proto.EventNewPrivateMessage, push, fanout.UserTarget(delivery.Recipients...)); err != nil {
		return err
	}

	summaries, err := s.aggregator.PrivateSummariesFor(ctx, msg, delivery.SenderName)
	if err != nil {
		return err
	}
	for userId, summary := range summaries {
		update := proto.ConversationUpdate{Status: "success-update", Data: summary}
		if err := s.publisher.Publish(proto.EventConversationsList, update, fanout.UserTarget(userId)); err != nil {
			return err
		}
	}
	return nil
}

// Conversations 计算用户的完整会话列表
func (s *ChatService) Conversations(ctx context.Context, userId int64) ([]model.Conversation, error) {
	return s.aggregator.Summarize(ctx, userId)
}

// PrivateRoomKeys 批量注册私聊房间时使用的规范房间键
func (s *ChatService) PrivateRoomKeys(userId int64, peerIds []int64) []string {
	keys := make([]string, 0, len(peerIds))
	for _, peerId := range peerIds {
		keys = append(keys, room.PrivateRoomKey(userId, peerId))
	}
	return keys
}
