package db

import (
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/zulandar/taskboard/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AllModels returns every GORM model owned by the taskboard schema.
func AllModels() []interface{} {
	return []interface{}{
		&models.Project{},
		&models.EnabledModule{},
		&models.Version{},
		&models.User{},
		&models.Role{},
		&models.Member{},
		&models.IssueStatus{},
		&models.WorkflowTransition{},
		&models.Issue{},
		&models.SessionEntry{},
	}
}

// AutoMigrate creates or updates all tables.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("db: auto-migrate: %w", err)
	}
	return nil
}

// DefaultStatuses is the workflow seeded by SeedStatuses.
var DefaultStatuses = []models.IssueStatus{
	{Name: "New", Position: 1},
	{Name: "In Progress", Position: 2},
	{Name: "Resolved", Position: 3},
	{Name: "Feedback", Position: 4},
	{Name: "Closed", Position: 5, IsClosed: true},
	{Name: "Rejected", Position: 6, IsClosed: true},
}

// SeedStatuses upserts the default issue statuses by name.
func SeedStatuses(db *gorm.DB) error {
	for _, s := range DefaultStatuses {
		status := s
		result := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoUpdates: clause.AssignmentColumns([]string{"position", "is_closed"}),
		}).Create(&status)
		if result.Error != nil {
			return fmt.Errorf("db: seed status %q: %w", s.Name, result.Error)
		}
	}
	return nil
}

// SeedRole upserts a role with the given permissions.
func SeedRole(db *gorm.DB, name string, permissions []string) (*models.Role, error) {
	perms, err := marshalJSON(permissions)
	if err != nil {
		return nil, fmt.Errorf("db: marshal permissions for role %q: %w", name, err)
	}
	role := models.Role{Name: name, Permissions: perms}
	if err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"permissions"}),
	}).Create(&role).Error; err != nil {
		return nil, fmt.Errorf("db: seed role %q: %w", name, err)
	}
	if err := db.Where("name = ?", name).First(&role).Error; err != nil {
		return nil, fmt.Errorf("db: reload role %q: %w", name, err)
	}
	return &role, nil
}

// marshalJSON marshals a value to a JSON string, returning empty string for nil.
func marshalJSON(v interface{}) (string, error) {
	if v == nil {
		return "", nil
	}
	data, err := sonic.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
