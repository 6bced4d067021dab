package handler

import (
	"log/slog"
	"strconv"

	"github.com/gin-gonic/gin"

	"sudooom.chat/internal/conversation"
	apperrors "sudooom.chat/internal/errors"
	"sudooom.chat/internal/store"
	"sudooom.chat/pkg/response"
)

// HistoryHandler 历史查询处理器
// 只读端点，对存储层窄查询的薄封装，与实时路径共享同一套查询
type HistoryHandler struct {
	store      store.Store
	aggregator *conversation.Aggregator
	logger     *slog.Logger
}

// NewHistoryHandler 创建历史查询处理器
func NewHistoryHandler(st store.Store, aggregator *conversation.Aggregator) *HistoryHandler {
	return &HistoryHandler{
		store:      st,
		aggregator: aggregator,
		logger:     slog.Default(),
	}
}

// GetUserProjects 查询用户所属项目
// GET /chat/user-projects/:id
func (h *HistoryHandler) GetUserProjects(c *gin.Context) {
	userId, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || userId <= 0 {
		response.ErrorWithMsg(c, apperrors.CodeInvalidMessage, "invalid user id")
		return
	}

	memberships, err := h.store.FindMemberships(c.Request.Context(), userId)
	if err != nil {
		h.logger.Error("Failed to find memberships", "userId", userId, "error", err)
		response.Error(c, err)
		return
	}
	response.Success(c, memberships)
}

// GetUserContacts 查询用户联系人
// GET /chat/user-contacts/:id
func (h *HistoryHandler) GetUserContacts(c *gin.Context) {
	userId, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || userId <= 0 {
		response.ErrorWithMsg(c, apperrors.CodeInvalidMessage, "invalid user id")
		return
	}

	contacts, err := h.store.FindContacts(c.Request.Context(), userId)
	if err != nil {
		h.logger.Error("Failed to find contacts", "userId", userId, "error", err)
		response.Error(c, err)
		return
	}
	response.Success(c, contacts)
}

// GetConversations 查询用户会话列表
// GET /chat/conversations/:id
func (h *HistoryHandler) GetConversations(c *gin.Context) {
	userId, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || userId <= 0 {
		response.ErrorWithMsg(c, apperrors.CodeInvalidMessage, "invalid user id")
		return
	}

	rows, err := h.aggregator.Summarize(c.Request.Context(), userId)
	if err != nil {
		h.logger.Error("Failed to aggregate conversations", "userId", userId, "error", err)
		response.Error(c, err)
		return
	}
	response.Success(c, rows)
}

// GetPrivateMessages 查询两个用户之间的私聊历史
// GET /chat/messages/private?user1=&user2=
func (h *HistoryHandler) GetPrivateMessages(c *gin.Context) {
	user1, err1 := strconv.ParseInt(c.Query("user1"), 10, 64)
	user2, err2 := strconv.ParseInt(c.Query("user2"), 10, 64)
	if err1 != nil || err2 != nil || user1 <= 0 || user2 <= 0 {
		response.ErrorWithMsg(c, apperrors.CodeInvalidMessage, "invalid user pair")
		return
	}

	messages, err := h.store.FindPrivateMessages(c.Request.Context(), user1, user2)
	if err != nil {
		h.logger.Error("Failed to find private messages",
			"user1", user1,
			"user2", user2,
			"error", err)
		response.Error(c, err)
		return
	}
	response.Success(c, messages)
}

// GetGroupMessages 查询项目的群聊历史
// GET /chat/messages/group?projectid=
func (h *HistoryHandler) GetGroupMessages(c *gin.Context) {
	projectId, err := strconv.ParseInt(c.Query("projectid"), 10, 64)
	if err != nil || projectId <= 0 {
		response.ErrorWithMsg(c, apperrors.CodeInvalidMessage, "invalid project id")
		return
	}

	messages, err := h.store.FindGroupMessages(c.Request.Context(), projectId)
	if err != nil {
		h.logger.Error("Failed to find group messages", "projectId", projectId, "error", err)
		response.Error(c, err)
		return
	}
	response.Success(c, messages)
}
