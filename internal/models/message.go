package models

import (
	"time"
)

// ReplyToTopic marks a message as a direct reply to its topic
// rather than to another message.
const ReplyToTopic int64 = -1

type Message struct {
	ID int64 `gorm:"primaryKey" json:"id"`
	// 冗余存储主题所在版块，移动主题时需要同步更新
	ForumID   int64     `gorm:"not null;index" json:"forum_id"`
	TopicID   int64     `gorm:"not null;index" json:"topic_id"`
	ReplyTo   int64     `gorm:"not null;default:-1;index" json:"reply_to"`
	Author    string    `gorm:"not null" json:"author"`
	Body      string    `gorm:"type:text" json:"body"`
	CreatedAt time.Time `json:"created_at"`
}
