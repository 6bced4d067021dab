package model

import "time"

// User 用户实体
type User struct {
	Id          int64     `json:"id"`
	DisplayName string    `json:"displayName"`
	PhotoUrl    string    `json:"photoUrl"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Contact 联系人（与当前用户至少共享一个项目的其他用户）
type Contact struct {
	UserId      int64  `json:"id"`
	DisplayName string `json:"displayName"`
	PhotoUrl    string `json:"photoUrl"`
}
