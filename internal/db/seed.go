package db

import (
	"fmt"

	"github.com/zulandar/taskboard/internal/access"
	"github.com/zulandar/taskboard/internal/models"
	"gorm.io/gorm"
)

// DemoSummary reports what SeedDemo created.
type DemoSummary struct {
	Project  models.Project
	Users    []models.User
	Issues   int
	Versions int
}

// SeedDemo creates an example project with members, versions and issues. It
// is idempotent: existing rows are matched by natural key and left in place.
func SeedDemo(db *gorm.DB) (*DemoSummary, error) {
	if err := SeedStatuses(db); err != nil {
		return nil, err
	}
	var statuses []models.IssueStatus
	if err := db.Order("position ASC").Find(&statuses).Error; err != nil {
		return nil, fmt.Errorf("db: load statuses: %w", err)
	}
	if len(statuses) < 3 {
		return nil, fmt.Errorf("db: expected seeded statuses, found %d", len(statuses))
	}

	summary := &DemoSummary{}
	err := db.Transaction(func(tx *gorm.DB) error {
		manager, err := SeedRole(tx, "Manager", []string{access.PermissionViewDashboard, access.PermissionEditIssues})
		if err != nil {
			return err
		}
		developer, err := SeedRole(tx, "Developer", []string{access.PermissionViewDashboard, access.PermissionEditIssues})
		if err != nil {
			return err
		}
		reporter, err := SeedRole(tx, "Reporter", []string{access.PermissionViewDashboard})
		if err != nil {
			return err
		}

		project := models.Project{Identifier: "ecookbook", Name: "eCookbook", Public: true}
		if err := tx.Where(models.Project{Identifier: project.Identifier}).FirstOrCreate(&project).Error; err != nil {
			return fmt.Errorf("db: seed project: %w", err)
		}
		if err := tx.Where(models.EnabledModule{ProjectID: project.ID, Name: access.DashboardModule}).
			FirstOrCreate(&models.EnabledModule{ProjectID: project.ID, Name: access.DashboardModule}).Error; err != nil {
			return fmt.Errorf("db: enable dashboard module: %w", err)
		}
		summary.Project = project

		people := []struct {
			user models.User
			role *models.Role
		}{
			{models.User{Login: "admin", Name: "Redmine Admin", Admin: true}, nil},
			{models.User{Login: "jsmith", Name: "John Smith"}, manager},
			{models.User{Login: "dlopper", Name: "Dave Lopper"}, developer},
			{models.User{Login: "rhill", Name: "Robert Hill"}, reporter},
		}
		for _, p := range people {
			user := p.user
			if err := tx.Where(models.User{Login: user.Login}).FirstOrCreate(&user).Error; err != nil {
				return fmt.Errorf("db: seed user %q: %w", user.Login, err)
			}
			summary.Users = append(summary.Users, user)
			if p.role == nil {
				continue
			}
			member := models.Member{ProjectID: project.ID, UserID: user.ID, RoleID: p.role.ID}
			if err := tx.Where(models.Member{ProjectID: project.ID, UserID: user.ID}).
				FirstOrCreate(&member).Error; err != nil {
				return fmt.Errorf("db: seed member %q: %w", user.Login, err)
			}
		}

		versions := []models.Version{
			{ProjectID: project.ID, Name: "0.1", Status: "closed"},
			{ProjectID: project.ID, Name: "1.0", Status: "open"},
			{ProjectID: project.ID, Name: "2.0", Status: "open"},
		}
		for i := range versions {
			if err := tx.Where(models.Version{ProjectID: project.ID, Name: versions[i].Name}).
				FirstOrCreate(&versions[i]).Error; err != nil {
				return fmt.Errorf("db: seed version %q: %w", versions[i].Name, err)
			}
		}
		summary.Versions = len(versions)

		var existing int64
		if err := tx.Model(&models.Issue{}).Where("project_id = ?", project.ID).Count(&existing).Error; err != nil {
			return fmt.Errorf("db: count issues: %w", err)
		}
		if existing > 0 {
			summary.Issues = int(existing)
			return nil
		}

		dev := summary.Users[2].ID
		v10 := versions[1].ID
		issues := []models.Issue{
			{Subject: "Can't print recipes", StatusID: statuses[0].ID, Priority: 1},
			{Subject: "Add ingredients categories", StatusID: statuses[1].ID, AssignedToID: &dev, FixedVersionID: &v10},
			{Subject: "Error 281 when updating a recipe", StatusID: statuses[0].ID, FixedVersionID: &v10},
			{Subject: "Issue due in 2 days", StatusID: statuses[2].ID, AssignedToID: &dev},
			{Subject: "Cannot upload photos", StatusID: statuses[0].ID, Priority: 3},
		}
		for i := range issues {
			issues[i].ProjectID = project.ID
		}
		if err := tx.Create(&issues).Error; err != nil {
			return fmt.Errorf("db: seed issues: %w", err)
		}
		summary.Issues = len(issues)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return summary, nil
}
