package model

import "time"

// Message 消息实体
// 不变量：群聊消息只有 ProjectId，私聊消息只有 ReceiverUserId，二者互斥
type Message struct {
	Id             int64     `json:"id"`
	Content        string    `json:"content"`
	SenderUserId   int64     `json:"senderUserId"`
	ReceiverUserId *int64    `json:"receiverUserId,omitempty"`
	ProjectId      *int64    `json:"projectId,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}

// IsGroup 是否为群聊消息
func (m *Message) IsGroup() bool {
	return m.ProjectId != nil
}

// Draft 客户端提交的待持久化消息
// ProjectId 与 ReceiverUserId 以 0 表示缺省，必须恰好设置其一
type Draft struct {
	Content        string `json:"content"`
	SenderUserId   int64  `json:"senderUserId"`
	ReceiverUserId int64  `json:"receiverUserId,omitempty"`
	ProjectId      int64  `json:"projectId,omitempty"`
}
