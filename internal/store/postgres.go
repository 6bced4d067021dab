package store

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	apperrors "sudooom.chat/internal/errors"
	"sudooom.chat/internal/model"
)

// Postgres 基于 PostgreSQL 的存储实现
type Postgres struct {
	db     *pgxpool.Pool
	logger *slog.Logger
}

// NewPostgres 创建存储实现
func NewPostgres(db *pgxpool.Pool) *Postgres {
	return &Postgres{
		db:     db,
		logger: slog.Default(),
	}
}

// FindMemberships 查询用户所属的全部项目
func (s *Postgres) FindMemberships(ctx context.Context, userId int64) ([]model.Membership, error) {
	query := `
		SELECT p.id, p.name
		FROM project_members pm
		JOIN projects p ON p.id = pm.project_id
		WHERE pm.user_id = $1
		ORDER BY p.id
	`

	rows, err := s.db.Query(ctx, query, userId)
	if err != nil {
		return nil, apperrors.ErrDBError.Wrap(err)
	}
	defer rows.Close()

	var memberships []model.Membership
	for rows.Next() {
		var m model.Membership
		if err := rows.Scan(&m.ProjectId, &m.ProjectName); err != nil {
			return nil, apperrors.ErrDBError.Wrap(err)
		}
		memberships = append(memberships, m)
	}

	return memberships, rows.Err()
}

// FindContacts 查询与用户共享至少一个项目的其他用户
// SQL 层已按用户去重：同一联系人共享多个项目也只出现一次
func (s *Postgres) FindContacts(ctx context.Context, userId int64) ([]model.Contact, error) {
	query := `
		SELECT DISTINCT u.id, u.display_name, COALESCE(u.photo_url, '')
		FROM project_members pm
		JOIN project_members other
			ON other.project_id = pm.project_id AND other.user_id <> pm.user_id
		JOIN users u ON u.id = other.user_id
		WHERE pm.user_id = $1
		ORDER BY u.id
	`

	rows, err := s.db.Query(ctx, query, userId)
	if err != nil {
		return nil, apperrors.ErrDBError.Wrap(err)
	}
	defer rows.Close()

	var contacts []model.Contact
	for rows.Next() {
		var c model.Contact
		if err := rows.Scan(&c.UserId, &c.DisplayName, &c.PhotoUrl); err != nil {
			return nil, apperrors.ErrDBError.Wrap(err)
		}
		contacts = append(contacts, c)
	}

	return contacts, rows.Err()
}

// ListGroupMemberIDs 查询项目当前全部成员 ID
func (s *Postgres) ListGroupMemberIDs(ctx context.Context, projectId int64) ([]int64, error) {
	query := `SELECT user_id FROM project_members WHERE project_id = $1`

	rows, err := s.db.Query(ctx, query, projectId)
	if err != nil {
		return nil, apperrors.ErrDBError.Wrap(err)
	}
	defer rows.Close()

	var members []int64
	for rows.Next() {
		var userId int64
		if err := rows.Scan(&userId); err != nil {
			return nil, apperrors.ErrDBError.Wrap(err)
		}
		members = append(members, userId)
	}

	return members, rows.Err()
}

// CreateMessage 持久化消息
// id 与 created_at 由数据库分配并随返回值带回
func (s *Postgres) CreateMessage(ctx context.Context, draft model.Draft) (*model.Message, error) {
	query := `
		INSERT INTO messages (content, sender_user_id, receiver_user_id, project_id, created_at)
		VALUES ($1, $2, $3, $4, now())
		RETURNING id, created_at
	`

	msg := &model.Message{
		Content:        draft.Content,
		SenderUserId:   draft.SenderUserId,
		ReceiverUserId: nullableId(draft.ReceiverUserId),
		ProjectId:      nullableId(draft.ProjectId),
	}

	err := s.db.QueryRow(ctx, query,
		draft.Content,
		draft.SenderUserId,
		msg.ReceiverUserId,
		msg.ProjectId,
	).Scan(&msg.Id, &msg.CreatedAt)

	if err != nil {
		s.logger.Error("Failed to save message", "error", err)
		return nil, apperrors.ErrDBError.Wrap(err)
	}

	s.logger.Debug("Message saved",
		"id", msg.Id,
		"senderUserId", msg.SenderUserId)

	return msg, nil
}

// FindGroupMessages 查询项目全部消息，按 created_at 升序
func (s *Postgres) FindGroupMessages(ctx context.Context, projectId int64) ([]model.Message, error) {
	query := `
		SELECT id, content, sender_user_id, receiver_user_id, project_id, created_at
		FROM messages
		WHERE project_id = $1
		ORDER BY created_at ASC
	`

	rows, err := s.db.Query(ctx, query, projectId)
	if err != nil {
		return nil, apperrors.ErrDBError.Wrap(err)
	}
	defer rows.Close()

	return scanMessages(rows)
}

// FindPrivateMessages 查询两个用户之间的双向私聊消息，按 created_at 升序
func (s *Postgres) FindPrivateMessages(ctx context.Context, userA, userB int64) ([]model.Message, error) {
	query := `
		SELECT id, content, sender_user_id, receiver_user_id, project_id, created_at
		FROM messages
		WHERE (sender_user_id = $1 AND receiver_user_id = $2)
		   OR (sender_user_id = $2 AND receiver_user_id = $1)
		ORDER BY created_at ASC
	`

	rows, err := s.db.Query(ctx, query, userA, userB)
	if err != nil {
		return nil, apperrors.ErrDBError.Wrap(err)
	}
	defer rows.Close()

	return scanMessages(rows)
}

// FindUser 查询用户
func (s *Postgres) FindUser(ctx context.Context, userId int64) (*model.User, error) {
	query := `
		SELECT id, display_name, COALESCE(photo_url, ''), created_at
		FROM users WHERE id = $1
	`

	var u model.User
	err := s.db.QueryRow(ctx, query, userId).Scan(&u.Id, &u.DisplayName, &u.PhotoUrl, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrUnknownUser
		}
		return nil, apperrors.ErrDBError.Wrap(err)
	}

	return &u, nil
}

// FindProject 查询项目
func (s *Postgres) FindProject(ctx context.Context, projectId int64) (*model.Project, error) {
	query := `SELECT id, name, created_at FROM projects WHERE id = $1`

	var p model.Project
	err := s.db.QueryRow(ctx, query, projectId).Scan(&p.Id, &p.Name, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.ErrDBError.Wrap(err)
	}

	return &p, nil
}

// scanMessages 扫描消息结果集
func scanMessages(rows pgx.Rows) ([]model.Message, error) {
	var messages []model.Message
	for rows.Next() {
		var m model.Message
		if err := rows.Scan(&m.Id, &m.Content, &m.SenderUserId, &m.ReceiverUserId, &m.ProjectId, &m.CreatedAt); err != nil {
			return nil, apperrors.ErrDBError.Wrap(err)
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// nullableId 将 0 值 ID 映射为 NULL
func nullableId(id int64) *int64 {
	if id == 0 {
		return nil
	}
	return &id
}
