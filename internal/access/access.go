// Package access resolves projects and users and answers permission
// questions for the dashboard.
package access

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"

	"github.com/bytedance/sonic"
	log "github.com/sirupsen/logrus"
	"github.com/zulandar/taskboard/internal/models"
	"gorm.io/gorm"
)

var (
	ErrProjectNotFound = errors.New("access: project not found")
	ErrUserNotFound    = errors.New("access: user not found")
)

// Permissions understood by the dashboard.
const (
	PermissionViewDashboard = "view_dashboard"
	PermissionEditIssues    = "edit_issues"
)

// DashboardModule is the project module that switches boards on.
const DashboardModule = "dashboard"

// Projects looks projects up by numeric id or identifier.
type Projects struct {
	db *gorm.DB
}

// NewProjects returns a Projects finder on db.
func NewProjects(db *gorm.DB) *Projects {
	return &Projects{db: db}
}

// Find resolves idOrIdentifier. A purely numeric value is tried as an id
// first, then as an identifier.
func (p *Projects) Find(ctx context.Context, idOrIdentifier string) (*models.Project, error) {
	if idOrIdentifier == "" {
		return nil, fmt.Errorf("%w: empty identifier", ErrProjectNotFound)
	}
	var project models.Project
	q := p.db.WithContext(ctx).Preload("Modules")
	if id, err := strconv.ParseUint(idOrIdentifier, 10, 64); err == nil {
		err := q.Where("id = ?", id).First(&project).Error
		if err == nil {
			return &project, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("access: get project %s: %w", idOrIdentifier, err)
		}
	}
	err := p.db.WithContext(ctx).Preload("Modules").Where("identifier = ?", idOrIdentifier).First(&project).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrProjectNotFound, idOrIdentifier)
	}
	if err != nil {
		return nil, fmt.Errorf("access: get project %s: %w", idOrIdentifier, err)
	}
	return &project, nil
}

// Users looks accounts up by login.
type Users struct {
	db *gorm.DB
}

// NewUsers returns a Users finder on db.
func NewUsers(db *gorm.DB) *Users {
	return &Users{db: db}
}

// FindByLogin returns the user with the given login. An empty login yields
// the anonymous user.
func (u *Users) FindByLogin(ctx context.Context, login string) (*models.User, error) {
	if login == "" {
		return &models.User{}, nil
	}
	var user models.User
	err := u.db.WithContext(ctx).Where("login = ?", login).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrUserNotFound, login)
	}
	if err != nil {
		return nil, fmt.Errorf("access: get user %s: %w", login, err)
	}
	return &user, nil
}

// Authorizer checks role-based permissions on projects.
type Authorizer struct {
	db *gorm.DB
}

// NewAuthorizer returns an Authorizer on db.
func NewAuthorizer(db *gorm.DB) *Authorizer {
	return &Authorizer{db: db}
}

// Allowed reports whether user may perform permission on project. Admins
// are always allowed. Everyone else needs the dashboard module enabled on
// the project and a membership whose role grants the permission. Lookup
// failures deny.
func (a *Authorizer) Allowed(ctx context.Context, user *models.User, permission string, project *models.Project) bool {
	if user == nil || project == nil || user.IsAnonymous() {
		return false
	}
	if user.Admin {
		return true
	}
	if !a.moduleEnabled(ctx, project) {
		return false
	}

	var member models.Member
	err := a.db.WithContext(ctx).Preload("Role").
		Where("project_id = ? AND user_id = ?", project.ID, user.ID).
		First(&member).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false
	}
	if err != nil {
		log.WithError(err).WithField("project", project.Identifier).Warn("load membership")
		return false
	}
	perms, err := DecodePermissions(member.Role.Permissions)
	if err != nil {
		log.WithError(err).WithField("role", member.Role.Name).Warn("decode role permissions")
		return false
	}
	return slices.Contains(perms, permission)
}

func (a *Authorizer) moduleEnabled(ctx context.Context, project *models.Project) bool {
	if project.Modules != nil {
		return slices.ContainsFunc(project.Modules, func(m models.EnabledModule) bool {
			return m.Name == DashboardModule
		})
	}
	var n int64
	if err := a.db.WithContext(ctx).Model(&models.EnabledModule{}).
		Where("project_id = ? AND name = ?", project.ID, DashboardModule).Count(&n).Error; err != nil {
		log.WithError(err).WithField("project", project.Identifier).Warn("check enabled modules")
		return false
	}
	return n > 0
}

// DecodePermissions parses a role's JSON permission list. An empty value
// grants nothing.
func DecodePermissions(raw string) ([]string, error) {
	if raw == "" {
		return nil, nil
	}
	var perms []string
	if err := sonic.UnmarshalString(raw, &perms); err != nil {
		return nil, fmt.Errorf("access: decode permissions: %w", err)
	}
	return perms, nil
}
