package auth

import (
	"context"
	"log/slog"

	apperrors "sudooom.chat/internal/errors"
	"sudooom.chat/internal/store"
)

// Authenticator 认证能力边界
// 验证不透明凭证并返回用户身份；失败返回 ErrUnauthorized
type Authenticator interface {
	Validate(ctx context.Context, credential string) (int64, error)
}

// JWTAuthenticator 基于 JWT 的认证实现
// 验签通过后还会确认用户仍然存在于存储中
type JWTAuthenticator struct {
	tokens *TokenService
	store  store.Store
	logger *slog.Logger
}

// NewAuthenticator 创建认证器
func NewAuthenticator(tokens *TokenService, st store.Store) *JWTAuthenticator {
	return &JWTAuthenticator{
		tokens: tokens,
		store:  st,
		logger: slog.Default(),
	}
}

// Validate 验证凭证并返回用户 ID
func (a *JWTAuthenticator) Validate(ctx context.Context, credential string) (int64, error) {
	if credential == "" {
		return 0, apperrors.ErrUnauthorized
	}

	claims, err := a.tokens.Validate(credential)
	if err != nil {
		return 0, apperrors.ErrUnauthorized.Wrap(err)
	}

	// Token 验签通过但用户已被删除时同样视为认证失败
	if _, err := a.store.FindUser(ctx, claims.UserID); err != nil {
		a.logger.Warn("Token user no longer exists", "userId", claims.UserID)
		return 0, apperrors.ErrUnauthorized.Wrap(err)
	}

	return claims.UserID, nil
}
