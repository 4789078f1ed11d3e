package models

import (
	"time"
)

type Group struct {
	ID          int64     `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"not null" json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// 非数据库字段，列表查询时填充
	ForumCount int `gorm:"-" json:"forum_count"`
}

// NoGroup 虚拟分组，ID 0 表示"未分组"，不落库
func NoGroup() Group {
	return Group{ID: 0, Name: "None", Description: "No Group"}
}
