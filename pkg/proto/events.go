package proto

import (
	"time"

	"sudooom.chat/internal/model"
)

// 事件名称（客户端可见的事件语义）
const (
	EventNewMessage        = "newMessage"
	EventNewPrivateMessage = "newPrivateMessage"
	EventConversationsList = "conversationsList"
	EventError             = "error"
)

// ============== 上行消息 (Client -> Server) ==============

// AuthRequest 认证请求（首帧必须是该类型）
type AuthRequest struct {
	Token string `json:"token"`
}

// JoinGroupRequest 加入群聊房间
type JoinGroupRequest struct {
	ProjectId int64 `json:"projectId"`
}

// SendGroupMessageRequest 发送群聊消息
// 发送者身份以连接上绑定的用户为准，不信任客户端携带的值
type SendGroupMessageRequest struct {
	Content   string `json:"content"`
	ProjectId int64  `json:"projectId"`
}

// SendPrivateMessageRequest 发送私聊消息
type SendPrivateMessageRequest struct {
	Content        string `json:"content"`
	ReceiverUserId int64  `json:"receiverUserId"`
}

// RegisterPrivateRoomsRequest 批量注册私聊房间
type RegisterPrivateRoomsRequest struct {
	PrivateChatUserIds []int64 `json:"privateChatUserIds"`
}

// ============== 下行消息 (Server -> Client) ==============

// AuthAck 认证响应
type AuthAck struct {
	Code    int    `json:"code"`
	UserId  int64  `json:"user_id,omitempty"`
	Message string `json:"message"`
}

// NewMessagePush 群聊新消息推送
type NewMessagePush struct {
	Id             int64     `json:"id"`
	Content        string    `json:"content"`
	SenderUserId   int64     `json:"senderUserId"`
	SenderUserName string    `json:"senderUserName"`
	CreatedAt      time.Time `json:"createdAt"`
}

// NewPrivateMessagePush 私聊新消息推送
type NewPrivateMessagePush struct {
	Id             int64     `json:"id"`
	Content        string    `json:"content"`
	SenderUserId   int64     `json:"senderUserId"`
	ReceiverUserId int64     `json:"receiverUserId"`
	SenderUserName string    `json:"senderUserName"`
	CreatedAt      time.Time `json:"createdAt"`
}

// ConversationsPush 会话列表推送
// Status 为 "success"（请求响应）或 "success-update"（新消息触发的增量更新）
type ConversationsPush struct {
	Status string `json:"status"`
	Data   any    `json:"data"`
}

// ErrorEvent 错误事件，仅发给事件的发起连接
type ErrorEvent struct {
	Status  string `json:"status,omitempty"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// ConversationUpdate 单个会话行的增量更新载荷
type ConversationUpdate struct {
	Status string             `json:"status"`
	Data   model.Conversation `json:"data"`
}

// ============== 内部消息 (NATS 信封) ==============

// Envelope 发布/订阅信封
// RoomKey 与 ToUserId 互斥：前者为房间广播，后者为按身份定向投递
type Envelope struct {
	Event    string `json:"Event"`
	RoomKey  string `json:"RoomKey,omitempty"`
	ToUserId int64  `json:"ToUserId,omitempty"`
	Payload  []byte `json:"Payload"`
}
