package models

import "time"

// Project groups issues, versions and memberships.
type Project struct {
	ID          uint   `gorm:"primaryKey;autoIncrement"`
	Identifier  string `gorm:"size:100;not null;uniqueIndex"`
	Name        string `gorm:"size:255;not null"`
	Description string `gorm:"type:text"`
	Public      bool   `gorm:"default:false"`
	CreatedAt   time.Time
	UpdatedAt   time.Time

	Modules  []EnabledModule `gorm:"foreignKey:ProjectID"`
	Versions []Version       `gorm:"foreignKey:ProjectID"`
}

// EnabledModule marks a feature module as switched on for a project.
type EnabledModule struct {
	ProjectID uint   `gorm:"primaryKey"`
	Name      string `gorm:"primaryKey;size:32"`
}

// Version is a project milestone issues can be assigned to.
type Version struct {
	ID            uint   `gorm:"primaryKey;autoIncrement"`
	ProjectID     uint   `gorm:"not null;index"`
	Name          string `gorm:"size:64;not null"`
	Status        string `gorm:"size:16;default:open"` // open, locked, closed
	EffectiveDate *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// IsOpen reports whether issues may still be planned into the version.
func (v Version) IsOpen() bool {
	return v.Status == "" || v.Status == "open"
}
