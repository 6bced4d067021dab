package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"sudooom.chat/internal/conversation"
	apperrors "sudooom.chat/internal/errors"
	"sudooom.chat/internal/fanout"
	"sudooom.chat/internal/ingest"
	"sudooom.chat/internal/model"
	"sudooom.chat/internal/room"
	"sudooom.chat/pkg/proto"
)

type fakeStore struct {
	users    map[int64]*model.User
	projects map[int64]*model.Project
	members  map[int64][]int64
	created  []model.Message
	nextId   int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:    make(map[int64]*model.User),
		projects: make(map[int64]*model.Project),
		members:  make(map[int64][]int64),
		nextId:   1,
	}
}

func (s *fakeStore) FindMemberships(_ context.Context, _ int64) ([]model.Membership, error) {
	return nil, nil
}

func (s *fakeStore) FindContacts(_ context.Context, _ int64) ([]model.Contact, error) {
	return nil, nil
}

func (s *fakeStore) ListGroupMemberIDs(_ context.Context, projectId int64) ([]int64, error) {
	return s.members[projectId], nil
}

func (s *fakeStore) CreateMessage(_ context.Context, draft model.Draft) (*model.Message, error) {
	msg := model.Message{
		Id:           s.nextId,
		Content:      draft.Content,
		SenderUserId: draft.SenderUserId,
		CreatedAt:    time.Date(2025, 6, 1, 12, 0, int(s.nextId), 0, time.UTC),
	}
	if draft.ProjectId > 0 {
		projectId := draft.ProjectId
		msg.ProjectId = &projectId
	}
	if draft.ReceiverUserId > 0 {
		receiverId := draft.ReceiverUserId
		msg.ReceiverUserId = &receiverId
	}
	s.nextId++
	s.created = append(s.created, msg)
	return &msg, nil
}

func (s *fakeStore) FindGroupMessages(_ context.Context, _ int64) ([]model.Message, error) {
	return nil, nil
}

func (s *fakeStore) FindPrivateMessages(_ context.Context, _, _ int64) ([]model.Message, error) {
	return nil, nil
}

func (s *fakeStore) FindUser(_ context.Context, userId int64) (*model.User, error) {
	user, ok := s.users[userId]
	if !ok {
		return nil, apperrors.ErrUnknownUser
	}
	return user, nil
}

func (s *fakeStore) FindProject(_ context.Context, projectId int64) (*model.Project, error) {
	project, ok := s.projects[projectId]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return project, nil
}

type publishedMsg struct {
	subject string
	data    []byte
}

type fakePubConn struct {
	published []publishedMsg
}

func (f *fakePubConn) Publish(subject string, data []byte) error {
	f.published = append(f.published, publishedMsg{subject: subject, data: data})
	return nil
}

type staticAuth struct {
	userId int64
	err    error
}

func (a *staticAuth) Validate(_ context.Context, _ string) (int64, error) {
	return a.userId, a.err
}

func newTestService(st *fakeStore, nc *fakePubConn) *ChatService {
	return NewChatService(
		&staticAuth{userId: 7},
		room.NewIndex(st),
		ingest.NewIngestor(st),
		fanout.NewPublisher(nc),
		conversation.NewAggregator(st),
	)
}

func decodeEnvelope(t *testing.T, data []byte) proto.Envelope {
	t.Helper()
	var env proto.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		t.Fatalf("unmarshal envelope: %v", err)
	}
	return env
}

func TestSendGroupMessage(t *testing.T) {
	st := newFakeStore()
	st.users[7] = &model.User{Id: 7, DisplayName: "alice"}
	st.projects[100] = &model.Project{Id: 100, Name: "Team X"}
	st.members[100] = []int64{7, 9, 11}
	nc := &fakePubConn{}

	svc := newTestService(st, nc)
	err := svc.SendGroupMessage(context.Background(), 7, proto.SendGroupMessageRequest{
		Content:   "hello",
		ProjectId: 100,
	})
	if err != nil {
		t.Fatalf("SendGroupMessage failed: %v", err)
	}

	// 新消息事件 1 条 + 摘要房间广播 1 条 + 摘要按成员各 1 条
	if len(nc.published) != 5 {
		t.Fatalf("published %d messages, want 5", len(nc.published))
	}

	first := decodeEnvelope(t, nc.published[0].data)
	if nc.published[0].subject != "chat.room.100" || first.Event != proto.EventNewMessage {
		t.Errorf("first publish = %q/%q", nc.published[0].subject, first.Event)
	}
	var push proto.NewMessagePush
	if err := json.Unmarshal(first.Payload, &push); err != nil {
		t.Fatalf("unmarshal push: %v", err)
	}
	if push.Content != "hello" || push.SenderUserName != "alice" || push.Id == 0 {
		t.Errorf("push = %+v", push)
	}

	second := decodeEnvelope(t, nc.published[1].data)
	if nc.published[1].subject != "chat.room.100" || second.Event != proto.EventConversationsList {
		t.Errorf("second publish = %q/%q", nc.published[1].subject, second.Event)
	}
	var update proto.ConversationUpdate
	if err := json.Unmarshal(second.Payload, &update); err != nil {
		t.Fatalf("unmarshal update: %v", err)
	}
	if update.Status != "success-update" || update.Data.PeerId != 100 || update.Data.Name != "Team X" {
		t.Errorf("update = %+v", update)
	}

	memberSubjects := map[string]bool{}
	for _, p := range nc.published[2:] {
		memberSubjects[p.subject] = true
	}
	for _, want := range []string{"chat.user.7", "chat.user.9", "chat.user.11"} {
		if !memberSubjects[want] {
			t.Errorf("missing per-member summary on %s", want)
		}
	}
}

func TestSendPrivateMessage(t *testing.T) {
	st := newFakeStore()
	st.users[7] = &model.User{Id: 7, DisplayName: "alice"}
	st.users[9] = &model.User{Id: 9, DisplayName: "bob"}
	nc := &fakePubConn{}

	svc := newTestService(st, nc)
	err := svc.SendPrivateMessage(context.Background(), 7, proto.SendPrivateMessageRequest{
		Content:        "hi",
		ReceiverUserId: 9,
	})
	if err != nil {
		t.Fatalf("SendPrivateMessage failed: %v", err)
	}

	// 新消息按双方身份各 1 条 + 摘要按双方身份各 1 条
	if len(nc.published) != 4 {
		t.Fatalf("published %d messages, want 4", len(nc.published))
	}

	var newMsgSubjects []string
	peerBySubject := map[string]int64{}
	for _, p := range nc.published {
		env := decodeEnvelope(t, p.data)
		switch env.Event {
		case proto.EventNewPrivateMessage:
			newMsgSubjects = append(newMsgSubjects, p.subject)
		case proto.EventConversationsList:
			var update proto.ConversationUpdate
			if err := json.Unmarshal(env.Payload, &update); err != nil {
				t.Fatalf("unmarshal update: %v", err)
			}
			peerBySubject[p.subject] = update.Data.PeerId
		default:
			t.Errorf("unexpected event %q", env.Event)
		}
	}

	if len(newMsgSubjects) != 2 {
		t.Fatalf("newPrivateMessage on %v, want both identities", newMsgSubjects)
	}
	// 摘要视角对称：发送者看到的 peer 是接收者，反之亦然
	if peerBySubject["chat.user.7"] != 9 || peerBySubject["chat.user.9"] != 7 {
		t.Errorf("summary peers = %v", peerBySubject)
	}
}

// 校验失败的草稿既不入库也不发布任何事件
func TestSendRejectsMalformedDraft(t *testing.T) {
	st := newFakeStore()
	st.users[7] = &model.User{Id: 7, DisplayName: "alice"}
	nc := &fakePubConn{}

	svc := newTestService(st, nc)
	err := svc.SendGroupMessage(context.Background(), 7, proto.SendGroupMessageRequest{
		Content:   "",
		ProjectId: 100,
	})
	if !apperrors.Is(err, apperrors.ErrInvalidMessage) {
		t.Fatalf("err = %v, want ErrInvalidMessage", err)
	}
	if len(st.created) != 0 {
		t.Errorf("draft reached store: %+v", st.created)
	}
	if len(nc.published) != 0 {
		t.Errorf("events published for rejected draft: %+v", nc.published)
	}
}

func TestPrivateRoomKeys(t *testing.T) {
	svc := newTestService(newFakeStore(), &fakePubConn{})
	keys := svc.PrivateRoomKeys(7, []int64{9, 3})
	want := []string{"private_7_9", "private_3_7"}
	for i, key := range keys {
		if key != want[i] {
			t.Errorf("keys[%d] = %q, want %q", i, key, want[i])
		}
	}
}
