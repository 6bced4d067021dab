package room

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"sudooom.chat/internal/store"
)

// GroupRoomKey 群聊房间名，取项目 ID 的十进制字符串
func GroupRoomKey(projectId int64) string {
	return strconv.FormatInt(projectId, 10)
}

// PrivateRoomKey 私聊房间名
// 两个参与者 ID 升序拼接，保证双方各自计算得到同一房间名
func PrivateRoomKey(a, b int64) string {
	if a > b {
		a, b = b, a
	}
	return fmt.Sprintf("private_%d_%d", a, b)
}

// Index 房间归属推导
// 纯查询推导，无副作用：群房间来自项目成员关系，私聊房间来自联系人集合
type Index struct {
	store  store.Store
	logger *slog.Logger
}

// NewIndex 创建房间索引
func NewIndex(st store.Store) *Index {
	return &Index{
		store:  st,
		logger: slog.Default(),
	}
}

// RoomsFor 计算用户应加入的全部房间
// 每个项目恰好一个群房间；每个联系人恰好一个私聊房间，
// 即使同一联系人共享多个项目也只产生一个
func (i *Index) RoomsFor(ctx context.Context, userId int64) ([]string, error) {
	memberships, err := i.store.FindMemberships(ctx, userId)
	if err != nil {
		return nil, err
	}

	contacts, err := i.store.FindContacts(ctx, userId)
	if err != nil {
		return nil, err
	}

	rooms := make([]string, 0, len(memberships)+len(contacts))
	for _, m := range memberships {
		rooms = append(rooms, GroupRoomKey(m.ProjectId))
	}

	// 按联系人 ID 去重后再映射为房间名
	seen := make(map[int64]struct{}, len(contacts))
	for _, c := range contacts {
		if _, ok := seen[c.UserId]; ok {
			continue
		}
		seen[c.UserId] = struct{}{}
		rooms = append(rooms, PrivateRoomKey(userId, c.UserId))
	}

	return rooms, nil
}
