package models

import (
	"time"
)

type Topic struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	ForumID   int64     `gorm:"not null;index" json:"forum_id"`
	Subject   string    `gorm:"not null" json:"subject"`
	Author    string    `gorm:"not null" json:"author"`
	Body      string    `gorm:"type:text" json:"body"`
	CreatedAt time.Time `json:"created_at"`
	// 最后回复时间，建贴时等于 CreatedAt，新回复时前移
	LastReply time.Time `gorm:"index" json:"last_reply"`

	// 非数据库字段，列表查询时填充
	ReplyCount int `gorm:"-" json:"reply_count"`
}
