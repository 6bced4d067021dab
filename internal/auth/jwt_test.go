package auth

import (
	"context"
	"testing"
	"time"

	apperrors "sudooom.chat/internal/errors"
	"sudooom.chat/internal/model"
)

func TestTokenService_GenerateAndValidate(t *testing.T) {
	svc := NewTokenService("test-secret", time.Hour)

	token, err := svc.Generate(42)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if token == "" {
		t.Fatal("Expected non-empty token")
	}

	claims, err := svc.Validate(token)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if claims.UserID != 42 {
		t.Errorf("Expected user ID 42, got %d", claims.UserID)
	}
}

func TestTokenService_ValidateExpired(t *testing.T) {
	svc := NewTokenService("test-secret", -time.Minute)

	token, err := svc.Generate(42)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	_, err = svc.Validate(token)
	if err != ErrTokenExpired {
		t.Errorf("Expected ErrTokenExpired, got %v", err)
	}
}

func TestTokenService_ValidateWrongSecret(t *testing.T) {
	svc := NewTokenService("test-secret", time.Hour)
	other := NewTokenService("other-secret", time.Hour)

	token, err := svc.Generate(42)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	_, err = other.Validate(token)
	if err != ErrTokenInvalid {
		t.Errorf("Expected ErrTokenInvalid, got %v", err)
	}
}

func TestTokenService_ValidateGarbage(t *testing.T) {
	svc := NewTokenService("test-secret", time.Hour)

	_, err := svc.Validate("not-a-token")
	if err != ErrTokenInvalid {
		t.Errorf("Expected ErrTokenInvalid, got %v", err)
	}
}

// authStoreStub 为测试未触及的 Store 方法提供空实现
type authStoreStub struct{}

func (authStoreStub) FindMemberships(ctx context.Context, userId int64) ([]model.Membership, error) {
	return nil, nil
}
func (authStoreStub) FindContacts(ctx context.Context, userId int64) ([]model.Contact, error) {
	return nil, nil
}
func (authStoreStub) ListGroupMemberIDs(ctx context.Context, projectId int64) ([]int64, error) {
	return nil, nil
}
func (authStoreStub) CreateMessage(ctx context.Context, draft model.Draft) (*model.Message, error) {
	return nil, nil
}
func (authStoreStub) FindGroupMessages(ctx context.Context, projectId int64) ([]model.Message, error) {
	return nil, nil
}
func (authStoreStub) FindPrivateMessages(ctx context.Context, userA, userB int64) ([]model.Message, error) {
	return nil, nil
}
func (authStoreStub) FindProject(ctx context.Context, projectId int64) (*model.Project, error) {
	return nil, nil
}

// fakeUserStore 仅实现认证器用到的 FindUser
type fakeUserStore struct {
	authStoreStub
	users map[int64]*model.User
}

func (f *fakeUserStore) FindUser(ctx context.Context, userId int64) (*model.User, error) {
	if u, ok := f.users[userId]; ok {
		return u, nil
	}
	return nil, apperrors.ErrUnknownUser
}

func TestJWTAuthenticator_Validate(t *testing.T) {
	tokens := NewTokenService("test-secret", time.Hour)
	st := &fakeUserStore{users: map[int64]*model.User{
		7: {Id: 7, DisplayName: "alice"},
	}}
	authenticator := NewAuthenticator(tokens, st)
	ctx := context.Background()

	token, err := tokens.Generate(7)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	userId, err := authenticator.Validate(ctx, token)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if userId != 7 {
		t.Errorf("Expected user ID 7, got %d", userId)
	}
}

func TestJWTAuthenticator_UserGone(t *testing.T) {
	tokens := NewTokenService("test-secret", time.Hour)
	st := &fakeUserStore{users: map[int64]*model.User{}}
	authenticator := NewAuthenticator(tokens, st)

	// 用户 99 不存在，即使 token 合法也应拒绝
	token, err := tokens.Generate(99)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	_, err = authenticator.Validate(context.Background(), token)
	if !apperrors.Is(err, apperrors.ErrUnauthorized) {
		t.Errorf("Expected ErrUnauthorized, got %v", err)
	}
}

func TestJWTAuthenticator_EmptyCredential(t *testing.T) {
	tokens := NewTokenService("test-secret", time.Hour)
	authenticator := NewAuthenticator(tokens, &fakeUserStore{})

	_, err := authenticator.Validate(context.Background(), "")
	if !apperrors.Is(err, apperrors.ErrUnauthorized) {
		t.Errorf("Expected ErrUnauthorized, got %v", err)
	}
}
