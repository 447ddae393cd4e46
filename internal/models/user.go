package models

import "time"

// User is an account known to the issue tracker.
type User struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	Login     string `gorm:"size:64;not null;uniqueIndex"`
	Name      string `gorm:"size:128"`
	Admin     bool   `gorm:"default:false"`
	CreatedAt time.Time
}

// IsAnonymous reports whether u is the unauthenticated placeholder user.
func (u User) IsAnonymous() bool {
	return u.ID == 0
}

// Role is a named permission set granted through memberships.
type Role struct {
	ID          uint   `gorm:"primaryKey;autoIncrement"`
	Name        string `gorm:"size:64;not null;uniqueIndex"`
	Permissions string `gorm:"type:json"` // JSON array of permission names
}

// Member links a user to a project with a role.
type Member struct {
	ID        uint `gorm:"primaryKey;autoIncrement"`
	ProjectID uint `gorm:"not null;uniqueIndex:idx_member_project_user"`
	UserID    uint `gorm:"not null;uniqueIndex:idx_member_project_user"`
	RoleID    uint `gorm:"not null"`
	CreatedAt time.Time

	Role Role `gorm:"foreignKey:RoleID"`
}
