package protocol

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"

	"sudooom.chat/internal/connection"
	apperrors "sudooom.chat/internal/errors"
	"sudooom.chat/internal/room"
	"sudooom.chat/internal/service"
	"sudooom.chat/pkg/proto"
)

// MaxFrameSize 单帧 body 上限
const MaxFrameSize = 1 << 20

// Stream 一条可靠有序的双向字节流
type Stream interface {
	io.Reader
	io.Writer
}

// Presence 在线状态登记能力
type Presence interface {
	Register(ctx context.Context, userId, connId int64) error
	Refresh(ctx context.Context, userId, connId int64) error
	Unregister(ctx context.Context, userId, connId int64) error
}

// Handler 连接上行帧处理
// 同一连接的帧在一个循环里顺序处理，不同连接并发互不影响
type Handler struct {
	connMgr  *connection.Manager
	chat     *service.ChatService
	presence Presence
	logger   *slog.Logger
}

func NewHandler(connMgr *connection.Manager, chat *service.ChatService, presence Presence) *Handler {
	return &Handler{
		connMgr:  connMgr,
		chat:     chat,
		presence: presence,
		logger:   slog.Default(),
	}
}

// HandleStream 同步处理一条流上的全部帧
// 返回非 nil 错误表示认证失败，调用方应终止整个会话
func (h *Handler) HandleStream(ctx context.Context, conn *connection.Connection, stream Stream) error {
	for {
		// 读取消息头
		header := make([]byte, proto.HeaderSize)
		if _, err := io.ReadFull(stream, header); err != nil {
			if err != io.EOF {
				h.logger.Debug("Failed to read header", "conn_id", conn.ID(), "error", err)
			}
			return nil
		}

		length, msgType := proto.ParseHeader(header)
		if length > MaxFrameSize {
			h.logger.Warn("Frame too large, stream abandoned",
				"conn_id", conn.ID(),
				"length", length)
			return nil
		}

		// 读取消息体
		body := make([]byte, length)
		if _, err := io.ReadFull(stream, body); err != nil {
			h.logger.Error("Failed to read body", "conn_id", conn.ID(), "error", err)
			return nil
		}

		conn.UpdateActive()

		if err := h.dispatch(ctx, conn, stream, msgType, body); err != nil {
			return err
		}
	}
}

func (h *Handler) dispatch(ctx context.Context, conn *connection.Connection, stream Stream, msgType uint16, body []byte) error {
	switch msgType {
	case proto.MsgTypeHeartbeat:
		h.handleHeartbeat(ctx, conn, stream)
		return nil
	case proto.MsgTypeAuth:
		return h.handleAuth(ctx, conn, stream, body)
	}

	// 业务帧一律要求已认证，认证前收到只回错误事件
	if conn.UserID() == 0 {
		h.sendError(stream, apperrors.ErrUnauthorized)
		return nil
	}

	switch msgType {
	case proto.MsgTypeJoinGroup:
		h.handleJoinGroup(conn, stream, body)
	case proto.MsgTypeSendGroupMessage:
		h.handleSendGroupMessage(ctx, conn, stream, body)
	case proto.MsgTypeSendPrivateMessage:
		h.handleSendPrivateMessage(ctx, conn, stream, body)
	case proto.MsgTypeRegisterPrivateRooms:
		h.handleRegisterPrivateRooms(conn, stream, body)
	case proto.MsgTypeGetConversations:
		h.handleGetConversations(ctx, conn, stream)
	default:
		h.logger.Warn("Unknown message type", "conn_id", conn.ID(), "msg_type", msgType)
		h.sendError(stream, apperrors.ErrInvalidMessage)
	}
	return nil
}

func (h *Handler) handleHeartbeat(ctx context.Context, conn *connection.Connection, stream Stream) {
	h.logger.Debug("Heartbeat received", "conn_id", conn.ID())

	// 刷新在线状态 TTL
	if conn.UserID() > 0 {
		if err := h.presence.Refresh(ctx, conn.UserID(), conn.ID()); err != nil {
			h.logger.Warn("Failed to refresh presence", "conn_id", conn.ID(), "error", err)
		}
	}

	h.sendResponse(stream, proto.MsgTypeHeartbeat, nil)
}

// handleAuth 认证并完成房间加入
// 认证失败返回错误，由调用方关闭整个会话，客户端需携带新凭证重连
func (h *Handler) handleAuth(ctx context.Context, conn *connection.Connection, stream Stream, body []byte) error {
	var req proto.AuthRequest
	if err := json.Unmarshal(body, &req); err != nil {
		h.logger.Warn("Malformed auth request", "conn_id", conn.ID(), "error", err)
		return apperrors.ErrUnauthorized.Wrap(err)
	}

	// 重复认证直接确认当前身份
	if conn.UserID() > 0 {
		h.sendAuthAck(stream, conn.UserID())
		return nil
	}

	userID, err := h.chat.Authenticate(ctx, req.Token)
	if err != nil {
		h.logger.Warn("Authentication failed", "conn_id", conn.ID(), "error", err)
		return apperrors.ErrUnauthorized.Wrap(err)
	}

	conn.Bind(userID)
	h.connMgr.BindUser(conn.ID(), userID)

	if err := h.presence.Register(ctx, userID, conn.ID()); err != nil {
		h.logger.Error("Failed to register presence", "userId", userID, "error", err)
	}

	// 计算并加入全部房间：项目群房间 + 每个联系人的私聊房间
	rooms, err := h.chat.RoomsFor(ctx, userID)
	if err != nil {
		h.logger.Error("Failed to compute rooms", "userId", userID, "error", err)
		h.sendError(stream, apperrors.ErrServerError.Wrap(err))
		return nil
	}
	conn.JoinRooms(rooms)

	h.logger.Info("Connection authenticated",
		"conn_id", conn.ID(),
		"userId", userID,
		"rooms", len(rooms))

	h.sendAuthAck(stream, userID)
	return nil
}

func (h *Handler) handleJoinGroup(conn *connection.Connection, stream Stream, body []byte) {
	var req proto.JoinGroupRequest
	if err := json.Unmarshal(body, &req); err != nil || req.ProjectId <= 0 {
		h.sendError(stream, apperrors.ErrInvalidMessage)
		return
	}
	conn.JoinRoom(room.GroupRoomKey(req.ProjectId))
	h.logger.Debug("Joined group room", "conn_id", conn.ID(), "projectId", req.ProjectId)
}

func (h *Handler) handleSendGroupMessage(ctx context.Context, conn *connection.Connection, stream Stream, body []byte) {
	var req proto.SendGroupMessageRequest
	if err := json.Unmarshal(body, &req); err != nil {
		h.sendError(stream, apperrors.ErrInvalidMessage)
		return
	}
	// 发送者身份取连接绑定的用户，不信任客户端携带的值
	if err := h.chat.SendGroupMessage(ctx, conn.UserID(), req); err != nil {
		h.logger.Warn("Failed to send group message",
			"conn_id", conn.ID(),
			"projectId", req.ProjectId,
			"error", err)
		h.sendError(stream, err)
	}
}

func (h *Handler) handleSendPrivateMessage(ctx context.Context, conn *connection.Connection, stream Stream, body []byte) {
	var req proto.SendPrivateMessageRequest
	if err := json.Unmarshal(body, &req); err != nil {
		h.sendError(stream, apperrors.ErrInvalidMessage)
		return
	}
	if err := h.chat.SendPrivateMessage(ctx, conn.UserID(), req); err != nil {
		h.logger.Warn("Failed to send private message",
			"conn_id", conn.ID(),
			"receiverUserId", req.ReceiverUserId,
			"error", err)
		h.sendError(stream, err)
	}
}

func (h *Handler) handleRegisterPrivateRooms(conn *connection.Connection, stream Stream, body []byte) {
	var req proto.RegisterPrivateRoomsRequest
	if err := json.Unmarshal(body, &req); err != nil {
		h.sendError(stream, apperrors.ErrInvalidMessage)
		return
	}
	conn.JoinRooms(h.chat.PrivateRoomKeys(conn.UserID(), req.PrivateChatUserIds))
	h.logger.Debug("Registered private rooms",
		"conn_id", conn.ID(),
		"count", len(req.PrivateChatUserIds))
}

func (h *Handler) handleGetConversations(ctx context.Context, conn *connection.Connection, stream Stream) {
	rows, err := h.chat.Conversations(ctx, conn.UserID())
	if err != nil {
		h.logger.Error("Failed to aggregate conversations",
			"userId", conn.UserID(),
			"error", err)
		h.sendError(stream, err)
		return
	}

	data, err := json.Marshal(proto.ConversationsPush{Status: "success", Data: rows})
	if err != nil {
		h.sendError(stream, apperrors.ErrServerError.Wrap(err))
		return
	}
	h.sendResponse(stream, proto.MsgTypeConversationsList, data)
}

func (h *Handler) sendAuthAck(stream Stream, userID int64) {
	data, _ := json.Marshal(proto.AuthAck{
		Code:    apperrors.CodeSuccess,
		UserId:  userID,
		Message: "success",
	})
	h.sendResponse(stream, proto.MsgTypeAuthAck, data)
}

// sendError 把错误转成 error 事件回给发起连接，其他连接不感知
func (h *Handler) sendError(stream Stream, err error) {
	data, _ := json.Marshal(proto.ErrorEvent{
		Status:  "error",
		Code:    apperrors.GetCode(err),
		Message: apperrors.GetMessage(err),
	})
	h.sendResponse(stream, proto.MsgTypeError, data)
}

func (h *Handler) sendResponse(stream Stream, msgType uint16, body []byte) {
	if _, err := stream.Write(proto.BuildFrame(msgType, body)); err != nil {
		h.logger.Debug("Failed to write response", "msg_type", msgType, "error", err)
	}
}
