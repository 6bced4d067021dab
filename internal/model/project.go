package model

import "time"

// Project 项目（群聊载体）
type Project struct {
	Id        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// Membership 用户的项目成员关系
type Membership struct {
	ProjectId   int64  `json:"id"`
	ProjectName string `json:"name"`
}
