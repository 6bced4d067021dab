package model

import "time"

// Conversation 会话摘要（派生数据，不落库，按需重算）
// PeerId 对群聊为项目 ID，对私聊为对方用户 ID
type Conversation struct {
	PeerId         int64      `json:"idUserOrProject"`
	IsGroup        bool       `json:"isGroup"`
	Name           string     `json:"name"`
	PhotoUrl       string     `json:"photoUrl,omitempty"`
	LastMessage    *string    `json:"lastMessage"`
	LastMessageAt  *time.Time `json:"lastMessageDate"`
	LastSenderId   *int64     `json:"lastMessageIdUser"`
	LastSenderName string     `json:"lastMessageSenderName,omitempty"`
}
