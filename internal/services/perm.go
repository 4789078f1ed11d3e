package services

import (
	"zhutan/internal/discussion"
	"zhutan/internal/models"

	"gorm.io/gorm"
)

// PermService answers capability questions from the permission grant
// table. A grant row for the literal username "*" applies to every
// caller, anonymous included; users with the admin role hold every
// capability implicitly. Any lookup error means no.
type PermService struct {
	db *gorm.DB
}

func NewPermService(db *gorm.DB) *PermService {
	return &PermService{db: db}
}

func (s *PermService) HasCapability(username string, cap discussion.Capability) bool {
	if username != "" {
		var user models.User
		err := s.db.Where("username = ?", username).First(&user).Error
		if err == nil && user.Role == models.RoleAdmin {
			return true
		}
	}

	who := []string{"*"}
	if username != "" {
		who = append(who, username)
	}

	var count int64
	err := s.db.Model(&models.Permission{}).
		Where("username IN ? AND action = ?", who, string(cap)).
		Count(&count).Error
	if err != nil {
		return false
	}
	return count > 0
}

// Grant 给用户（或 "*"）授予能力，重复授予不报错
func (s *PermService) Grant(username string, cap discussion.Capability) error {
	perm := models.Permission{Username: username, Action: string(cap)}
	err := s.db.Where(&perm).FirstOrCreate(&perm).Error
	return err
}

// Revoke 收回授权
func (s *PermService) Revoke(username string, cap discussion.Capability) error {
	return s.db.Where("username = ? AND action = ?", username, string(cap)).
		Delete(&models.Permission{}).Error
}
