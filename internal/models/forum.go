package models

import (
	"strings"
	"time"
)

type Forum struct {
	ID          int64     `gorm:"primaryKey" json:"id"`
	GroupID     int64     `gorm:"not null;default:0;index" json:"group_id"` // 0 = 未分组
	Name        string    `gorm:"not null" json:"name"`
	Author      string    `gorm:"not null" json:"author"`
	Subject     string    `json:"subject"`
	Description string    `json:"description"`
	Moderators  string    `json:"moderators"` // 空格分隔的用户名列表
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// 非数据库字段，列表查询时填充
	TopicCount int        `gorm:"-" json:"topic_count"`
	ReplyCount int        `gorm:"-" json:"reply_count"`
	LastTopic  *time.Time `gorm:"-" json:"last_topic"`
	LastReply  *time.Time `gorm:"-" json:"last_reply"`
}

// ModeratorList returns the moderator usernames as a slice.
func (f *Forum) ModeratorList() []string {
	return strings.Fields(f.Moderators)
}

// SetModerators stores the moderator usernames, space separated.
func (f *Forum) SetModerators(names []string) {
	f.Moderators = strings.Join(names, " ")
}

// HasModerator reports whether name is in the forum's moderator set.
func (f *Forum) HasModerator(name string) bool {
	for _, m := range f.ModeratorList() {
		if m == name {
			return true
		}
	}
	return false
}
