package store

import (
	"context"

	"sudooom.chat/internal/model"
)

// Store 存储能力边界
// 核心只通过这组窄查询访问用户、项目成员关系与消息；
// 消息的 id 与 created_at 由存储层在创建时分配，核心不得伪造
type Store interface {
	// FindMemberships 查询用户所属的全部项目
	FindMemberships(ctx context.Context, userId int64) ([]model.Membership, error)

	// FindContacts 查询与用户至少共享一个项目的其他用户（已按用户去重）
	FindContacts(ctx context.Context, userId int64) ([]model.Contact, error)

	// ListGroupMemberIDs 查询项目当前全部成员 ID
	ListGroupMemberIDs(ctx context.Context, projectId int64) ([]int64, error)

	// CreateMessage 持久化消息，返回含 id 与 created_at 的完整实体
	CreateMessage(ctx context.Context, draft model.Draft) (*model.Message, error)

	// FindGroupMessages 查询项目全部消息，按 created_at 升序
	FindGroupMessages(ctx context.Context, projectId int64) ([]model.Message, error)

	// FindPrivateMessages 查询两个用户之间的双向私聊消息，按 created_at 升序
	FindPrivateMessages(ctx context.Context, userA, userB int64) ([]model.Message, error)

	// FindUser 查询用户，不存在时返回 ErrUnknownUser
	FindUser(ctx context.Context, userId int64) (*model.User, error)

	// FindProject 查询项目，不存在时返回 ErrNotFound
	FindProject(ctx context.Context, projectId int64) (*model.Project, error)
}
