package models

// Permission is one capability grant. Username "*" grants the action
// to every caller, including anonymous ones.
type Permission struct {
	ID       int64  `gorm:"primaryKey" json:"id"`
	Username string `gorm:"uniqueIndex:idx_perm_user_action;not null" json:"username"`
	Action   string `gorm:"uniqueIndex:idx_perm_user_action;not null" json:"action"`
}
