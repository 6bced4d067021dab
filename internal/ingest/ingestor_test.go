package ingest

import (
	"context"
	"testing"
	"time"

	apperrors "sudooom.chat/internal/errors"
	"sudooom.chat/internal/model"
)

// fakeStore 内存存储，记录写入次数
type fakeStore struct {
	users   map[int64]*model.User
	members map[int64][]int64
	created int
	nextId  int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users: map[int64]*model.User{
			7: {Id: 7, DisplayName: "alice"},
			9: {Id: 9, DisplayName: "bob"},
		},
		members: map[int64][]int64{
			100: {7, 9, 11},
		},
		nextId: 1,
	}
}

func (f *fakeStore) CreateMessage(ctx context.Context, draft model.Draft) (*model.Message, error) {
	f.created++
	msg := &model.Message{
		Id:           f.nextId,
		Content:      draft.Content,
		SenderUserId: draft.SenderUserId,
		CreatedAt:    time.Now(),
	}
	f.nextId++
	if draft.ProjectId > 0 {
		pid := draft.ProjectId
		msg.ProjectId = &pid
	} else {
		rid := draft.ReceiverUserId
		msg.ReceiverUserId = &rid
	}
	return msg, nil
}

func (f *fakeStore) FindUser(ctx context.Context, userId int64) (*model.User, error) {
	if u, ok := f.users[userId]; ok {
		return u, nil
	}
	return nil, apperrors.ErrUnknownUser
}

func (f *fakeStore) ListGroupMemberIDs(ctx context.Context, projectId int64) ([]int64, error) {
	return f.members[projectId], nil
}

func (f *fakeStore) FindMemberships(ctx context.Context, userId int64) ([]model.Membership, error) {
	return nil, nil
}
func (f *fakeStore) FindContacts(ctx context.Context, userId int64) ([]model.Contact, error) {
	return nil, nil
}
func (f *fakeStore) FindGroupMessages(ctx context.Context, projectId int64) ([]model.Message, error) {
	return nil, nil
}
func (f *fakeStore) FindPrivateMessages(ctx context.Context, userA, userB int64) ([]model.Message, error) {
	return nil, nil
}
func (f *fakeStore) FindProject(ctx context.Context, projectId int64) (*model.Project, error) {
	return nil, nil
}

func TestIngest_GroupMessage(t *testing.T) {
	st := newFakeStore()
	ing := NewIngestor(st)

	delivery, err := ing.Ingest(context.Background(), model.Draft{
		Content:      "hello",
		SenderUserId: 7,
		ProjectId:    100,
	})
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}

	if !delivery.IsGroup {
		t.Error("Expected group delivery")
	}
	if delivery.RoomKey != "100" {
		t.Errorf("Expected room key '100', got '%s'", delivery.RoomKey)
	}
	if delivery.SenderName != "alice" {
		t.Errorf("Expected sender name 'alice', got '%s'", delivery.SenderName)
	}
	// 接收者集合取发送时刻的实时成员
	if len(delivery.Recipients) != 3 {
		t.Errorf("Expected 3 recipients, got %d", len(delivery.Recipients))
	}
	if delivery.Message.Id == 0 {
		t.Error("Expected persisted message id")
	}
}

func TestIngest_PrivateMessage(t *testing.T) {
	st := newFakeStore()
	ing := NewIngestor(st)

	delivery, err := ing.Ingest(context.Background(), model.Draft{
		Content:        "hi",
		SenderUserId:   7,
		ReceiverUserId: 9,
	})
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}

	if delivery.IsGroup {
		t.Error("Expected private delivery")
	}
	if len(delivery.Recipients) != 2 || delivery.Recipients[0] != 7 || delivery.Recipients[1] != 9 {
		t.Errorf("Expected recipients [7 9], got %v", delivery.Recipients)
	}
}

func TestIngest_RejectsMalformedDrafts(t *testing.T) {
	st := newFakeStore()
	ing := NewIngestor(st)
	ctx := context.Background()

	drafts := []model.Draft{
		// 同时携带项目与接收者
		{Content: "x", SenderUserId: 7, ProjectId: 5, ReceiverUserId: 9},
		// 两者都缺失
		{Content: "x", SenderUserId: 7},
		// 内容为空
		{Content: "", SenderUserId: 7, ProjectId: 100},
		// 发送者缺失
		{Content: "x", ProjectId: 100},
	}

	for i, draft := range drafts {
		_, err := ing.Ingest(ctx, draft)
		if !apperrors.Is(err, apperrors.ErrInvalidMessage) {
			t.Errorf("Draft %d: expected ErrInvalidMessage, got %v", i, err)
		}
	}

	// 非法草稿不得触达存储
	if st.created != 0 {
		t.Errorf("Expected no store writes, got %d", st.created)
	}
}

func TestIngest_UnknownSender(t *testing.T) {
	st := newFakeStore()
	ing := NewIngestor(st)

	_, err := ing.Ingest(context.Background(), model.Draft{
		Content:      "hello",
		SenderUserId: 999,
		ProjectId:    100,
	})
	if !apperrors.Is(err, apperrors.ErrUnknownSender) {
		t.Errorf("Expected ErrUnknownSender, got %v", err)
	}
}
