package proto

import "encoding/binary"

const (
	HeaderSize = 6 // 4 bytes length + 2 bytes msg type

	// 消息类型
	MsgTypeHeartbeat uint16 = 0
	MsgTypeAuth      uint16 = 1
	MsgTypeAuthAck   uint16 = 2

	// 上行业务消息
	MsgTypeJoinGroup            uint16 = 10
	MsgTypeSendGroupMessage     uint16 = 11
	MsgTypeSendPrivateMessage   uint16 = 12
	MsgTypeRegisterPrivateRooms uint16 = 13
	MsgTypeGetConversations     uint16 = 14

	// 下行推送
	MsgTypeNewMessage        uint16 = 20
	MsgTypeNewPrivateMessage uint16 = 21
	MsgTypeConversationsList uint16 = 22
	MsgTypeError             uint16 = 23
)

// BuildFrame 构建消息帧: 4 字节大端长度 + 2 字节类型 + body
func BuildFrame(msgType uint16, body []byte) []byte {
	frame := make([]byte, HeaderSize+len(body))
	binary.BigEndian.PutUint32(frame[:4], uint32(len(body)))
	binary.BigEndian.PutUint16(frame[4:6], msgType)
	copy(frame[HeaderSize:], body)
	return frame
}

// ParseHeader 解析消息头
func ParseHeader(header []byte) (length uint32, msgType uint16) {
	length = binary.BigEndian.Uint32(header[:4])
	msgType = binary.BigEndian.Uint16(header[4:6])
	return length, msgType
}

// FrameTypeForEvent 事件名到下行帧类型的映射
// 未知事件返回 false，调用方应丢弃该事件
func FrameTypeForEvent(event string) (uint16, bool) {
	switch event {
	case EventNewMessage:
		return MsgTypeNewMessage, true
	case EventNewPrivateMessage:
		return MsgTypeNewPrivateMessage, true
	case EventConversationsList:
		return MsgTypeConversationsList, true
	case EventError:
		return MsgTypeError, true
	default:
		return 0, false
	}
}
