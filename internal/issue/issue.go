// Package issue provides issue persistence for boards, including the
// compare-and-swap write that makes optimistic locking safe.
package issue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/zulandar/taskboard/internal/models"
	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned when an issue id does not resolve.
	ErrNotFound = errors.New("issue: not found")
	// ErrStale is returned when the issue was written by someone else since
	// its lock version was read.
	ErrStale = errors.New("issue: stale lock version")
	// ErrInvalidTransition is returned when the workflow forbids a status change.
	ErrInvalidTransition = errors.New("issue: invalid status transition")
	// ErrInvalidChange is returned for unknown fields or out-of-range values.
	ErrInvalidChange = errors.New("issue: invalid change")
)

// Updatable lists the columns Update accepts.
var Updatable = map[string]bool{
	"status_id":        true,
	"subject":          true,
	"done_ratio":       true,
	"assigned_to_id":   true,
	"fixed_version_id": true,
}

// Filter narrows List results. Zero values mean "no filter".
type Filter struct {
	ProjectID      uint
	AssignedToID   *uint
	Unassigned     bool
	FixedVersionID *uint
	NoVersion      bool
	StatusIDs      []uint
}

// Store reads and writes issues.
type Store struct {
	db *gorm.DB
}

// NewStore returns a Store on db.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Find retrieves an issue by ID with its status, assignee and version.
func (s *Store) Find(ctx context.Context, id uint) (*models.Issue, error) {
	var iss models.Issue
	err := s.db.WithContext(ctx).
		Preload("Status").Preload("AssignedTo").Preload("FixedVersion").
		Where("id = ?", id).First(&iss).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("issue: get %d: %w", id, err)
	}
	return &iss, nil
}

// Lookup is Find shaped for the revision guard.
func (s *Store) Lookup(ctx context.Context, id uint) (*models.Issue, bool, error) {
	iss, err := s.Find(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return iss, true, nil
}

// List returns issues matching the filter, ordered by priority then ID.
func (s *Store) List(ctx context.Context, f Filter) ([]models.Issue, error) {
	q := s.db.WithContext(ctx).Model(&models.Issue{}).
		Preload("Status").Preload("AssignedTo").Preload("FixedVersion")

	if f.ProjectID != 0 {
		q = q.Where("project_id = ?", f.ProjectID)
	}
	switch {
	case f.Unassigned:
		q = q.Where("assigned_to_id IS NULL")
	case f.AssignedToID != nil:
		q = q.Where("assigned_to_id = ?", *f.AssignedToID)
	}
	switch {
	case f.NoVersion:
		q = q.Where("fixed_version_id IS NULL")
	case f.FixedVersionID != nil:
		q = q.Where("fixed_version_id = ?", *f.FixedVersionID)
	}
	if len(f.StatusIDs) > 0 {
		q = q.Where("status_id IN ?", f.StatusIDs)
	}

	var issues []models.Issue
	if err := q.Order("priority ASC, id ASC").Find(&issues).Error; err != nil {
		return nil, fmt.Errorf("issue: list: %w", err)
	}
	return issues, nil
}

// Revisions maps every issue of a project to its current lock version.
func (s *Store) Revisions(ctx context.Context, projectID uint) (map[uint]int, error) {
	var rows []struct {
		ID          uint
		LockVersion int
	}
	if err := s.db.WithContext(ctx).Model(&models.Issue{}).
		Select("id, lock_version").
		Where("project_id = ?", projectID).
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("issue: revisions of project %d: %w", projectID, err)
	}
	revs := make(map[uint]int, len(rows))
	for _, r := range rows {
		revs[r.ID] = r.LockVersion
	}
	return revs, nil
}

// Statuses returns every issue status in board column order.
func (s *Store) Statuses(ctx context.Context) ([]models.IssueStatus, error) {
	var statuses []models.IssueStatus
	if err := s.db.WithContext(ctx).Order("position ASC, id ASC").Find(&statuses).Error; err != nil {
		return nil, fmt.Errorf("issue: list statuses: %w", err)
	}
	return statuses, nil
}

// Versions returns the versions of a project ordered by effective date then name.
func (s *Store) Versions(ctx context.Context, projectID uint) ([]models.Version, error) {
	var versions []models.Version
	if err := s.db.WithContext(ctx).Where("project_id = ?", projectID).
		Order("effective_date IS NULL, effective_date ASC, name ASC").
		Find(&versions).Error; err != nil {
		return nil, fmt.Errorf("issue: list versions of project %d: %w", projectID, err)
	}
	return versions, nil
}

// Assignees returns the users holding a membership in the project.
func (s *Store) Assignees(ctx context.Context, projectID uint) ([]models.User, error) {
	var users []models.User
	if err := s.db.WithContext(ctx).
		Joins("JOIN members ON members.user_id = users.id").
		Where("members.project_id = ?", projectID).
		Order("users.name ASC, users.id ASC").
		Find(&users).Error; err != nil {
		return nil, fmt.Errorf("issue: list assignees of project %d: %w", projectID, err)
	}
	return users, nil
}

// AllowedTransition reports whether the workflow permits moving from one
// status to another. Staying in the same status is always allowed, and a
// status without declared transitions may move anywhere.
func (s *Store) AllowedTransition(ctx context.Context, from, to uint) (bool, error) {
	if from == to {
		return true, nil
	}
	var declared int64
	if err := s.db.WithContext(ctx).Model(&models.WorkflowTransition{}).
		Where("from_status_id = ?", from).Count(&declared).Error; err != nil {
		return false, fmt.Errorf("issue: check workflow from %d: %w", from, err)
	}
	if declared == 0 {
		return true, nil
	}
	var allowed int64
	if err := s.db.WithContext(ctx).Model(&models.WorkflowTransition{}).
		Where("from_status_id = ? AND to_status_id = ?", from, to).Count(&allowed).Error; err != nil {
		return false, fmt.Errorf("issue: check workflow %d->%d: %w", from, to, err)
	}
	return allowed > 0, nil
}

// Move changes the status of iss.
func (s *Store) Move(ctx context.Context, iss *models.Issue, statusID uint) error {
	return s.Update(ctx, iss, map[string]interface{}{"status_id": statusID})
}

// Update writes the given columns if and only if the stored lock version
// still equals iss.LockVersion, bumping it in the same statement. On success
// iss is reloaded; on a concurrent write ErrStale is returned and nothing is
// changed.
func (s *Store) Update(ctx context.Context, iss *models.Issue, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return fmt.Errorf("%w: nothing to update", ErrInvalidChange)
	}
	cols := make(map[string]interface{}, len(updates)+3)
	for k, v := range updates {
		if !Updatable[k] {
			return fmt.Errorf("%w: field %q cannot be updated", ErrInvalidChange, k)
		}
		cols[k] = v
	}

	if err := s.validate(ctx, iss, cols); err != nil {
		return err
	}

	cols["lock_version"] = gorm.Expr("lock_version + 1")
	result := s.db.WithContext(ctx).Model(&models.Issue{}).
		Where("id = ? AND lock_version = ?", iss.ID, iss.LockVersion).
		Updates(cols)
	if result.Error != nil {
		return fmt.Errorf("issue: update %d: %w", iss.ID, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: issue %d at lock version %d", ErrStale, iss.ID, iss.LockVersion)
	}

	fresh, err := s.Find(ctx, iss.ID)
	if err != nil {
		return err
	}
	*iss = *fresh
	return nil
}

// validate checks field values and derives closed_at/done_ratio for status changes.
func (s *Store) validate(ctx context.Context, iss *models.Issue, cols map[string]interface{}) error {
	if v, ok := cols["subject"]; ok {
		subject, _ := v.(string)
		if subject == "" {
			return fmt.Errorf("%w: subject is required", ErrInvalidChange)
		}
	}
	if v, ok := cols["done_ratio"]; ok {
		ratio, ok := v.(int)
		if !ok || ratio < 0 || ratio > 100 {
			return fmt.Errorf("%w: done_ratio must be between 0 and 100", ErrInvalidChange)
		}
	}
	if v, ok := cols["assigned_to_id"]; ok && v != nil {
		userID, ok := v.(uint)
		if !ok {
			return fmt.Errorf("%w: assigned_to_id must be a user id", ErrInvalidChange)
		}
		var members int64
		if err := s.db.WithContext(ctx).Model(&models.Member{}).
			Where("project_id = ? AND user_id = ?", iss.ProjectID, userID).Count(&members).Error; err != nil {
			return fmt.Errorf("issue: check assignee %d: %w", userID, err)
		}
		if members == 0 {
			return fmt.Errorf("%w: user %d is not a member of the project", ErrInvalidChange, userID)
		}
	}
	if v, ok := cols["fixed_version_id"]; ok && v != nil {
		versionID, ok := v.(uint)
		if !ok {
			return fmt.Errorf("%w: fixed_version_id must be a version id", ErrInvalidChange)
		}
		var version models.Version
		err := s.db.WithContext(ctx).Where("id = ? AND project_id = ?", versionID, iss.ProjectID).First(&version).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: version %d does not belong to the project", ErrInvalidChange, versionID)
		}
		if err != nil {
			return fmt.Errorf("issue: check version %d: %w", versionID, err)
		}
		if !version.IsOpen() {
			return fmt.Errorf("%w: version %q is %s", ErrInvalidChange, version.Name, version.Status)
		}
	}

	v, ok := cols["status_id"]
	if !ok {
		return nil
	}
	statusID, ok := v.(uint)
	if !ok {
		return fmt.Errorf("%w: status_id must be a status id", ErrInvalidChange)
	}
	var status models.IssueStatus
	err := s.db.WithContext(ctx).Where("id = ?", statusID).First(&status).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: unknown status %d", ErrInvalidTransition, statusID)
	}
	if err != nil {
		return fmt.Errorf("issue: get status %d: %w", statusID, err)
	}
	allowed, err := s.AllowedTransition(ctx, iss.StatusID, statusID)
	if err != nil {
		return err
	}
	if !allowed {
		return fmt.Errorf("%w: from %d to %q", ErrInvalidTransition, iss.StatusID, status.Name)
	}

	if status.IsClosed {
		if iss.ClosedAt == nil {
			cols["closed_at"] = time.Now()
		}
		if _, set := cols["done_ratio"]; !set {
			cols["done_ratio"] = 100
		}
	} else if iss.ClosedAt != nil {
		cols["closed_at"] = nil
	}
	return nil
}
