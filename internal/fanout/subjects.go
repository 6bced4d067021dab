package fanout

import "strconv"

// NATS Subject 常量定义
const (
	// SubjectRoomPrefix 房间广播 Subject 前缀
	// 完整格式: chat.room.{room_key}
	SubjectRoomPrefix = "chat.room."

	// SubjectUserPrefix 按身份定向投递 Subject 前缀
	// 完整格式: chat.user.{user_id}
	SubjectUserPrefix = "chat.user."

	// SubjectRoomWildcard 订阅全部房间广播
	SubjectRoomWildcard = "chat.room.>"

	// SubjectUserWildcard 订阅全部定向投递
	SubjectUserWildcard = "chat.user.>"
)

// BuildRoomSubject 构建房间广播 Subject
func BuildRoomSubject(roomKey string) string {
	return SubjectRoomPrefix + roomKey
}

// BuildUserSubject 构建用户定向 Subject
func BuildUserSubject(userId int64) string {
	return SubjectUserPrefix + strconv.FormatInt(userId, 10)
}
