package errors

import (
	"errors"
	"fmt"
)

// AppError 应用错误类型
// 用于统一管理业务错误，包含错误码和错误消息
type AppError struct {
	Code    int    // 错误码
	Message string // 用户可见的错误消息
	Err     error  // 原始错误（可选，用于调试）
}

// Error 实现 error 接口
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Unwrap 支持 errors.Unwrap
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewError 创建新错误
func NewError(code int, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap 包装原始错误
func (e *AppError) Wrap(err error) *AppError {
	return &AppError{
		Code:    e.Code,
		Message: e.Message,
		Err:     err,
	}
}

// Is 判断是否为指定错误
func Is(err error, target *AppError) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == target.Code
	}
	return false
}

// GetCode 获取错误码，如果不是 AppError 返回默认错误码
func GetCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeServerError // 默认返回服务器错误
}

// GetMessage 获取错误消息
func GetMessage(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return "服务器内部错误"
}

// ============== 错误码定义 ==============

const (
	CodeSuccess = 0

	// 认证相关 10000-10999
	CodeUnauthorized = 10001
	CodeTokenExpired = 10002

	// 消息相关 20000-20999
	CodeInvalidMessage = 20001
	CodeUnknownSender  = 20002
	CodeUnknownUser    = 20003

	// 查询相关 21000-21999
	CodeNotFound = 21001

	// 系统错误 50000-50999
	CodeServerError = 50001
	CodeDBError     = 50002
)

// ============== 预定义错误 ==============

// 认证相关
var (
	ErrUnauthorized = NewError(CodeUnauthorized, "认证失败")
	ErrTokenExpired = NewError(CodeTokenExpired, "Token 已过期")
)

// 消息相关
// ErrUnknownSender / ErrUnknownUser 表示数据一致性故障：
// 消息引用了不存在的用户，属于服务端错误而非客户端错误
var (
	ErrInvalidMessage = NewError(CodeInvalidMessage, "消息格式不合法")
	ErrUnknownSender  = NewError(CodeUnknownSender, "发送者不存在")
	ErrUnknownUser    = NewError(CodeUnknownUser, "用户不存在")
)

// 查询相关
var (
	ErrNotFound = NewError(CodeNotFound, "资源不存在")
)

// 系统相关
var (
	ErrServerError = NewError(CodeServerError, "服务器内部错误")
	ErrDBError     = NewError(CodeDBError, "数据库错误")
)
