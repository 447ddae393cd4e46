package board

import (
	"context"
	"slices"

	"github.com/zulandar/taskboard/internal/issue"
	"github.com/zulandar/taskboard/internal/models"
)

// fakeStore is an in-memory IssueStore.
type fakeStore struct {
	statuses []models.IssueStatus
	versions []models.Version
	users    []models.User
	issues   []models.Issue

	lastFilter  issue.Filter
	moved       map[uint]uint
	updated     map[uint]map[string]interface{}
	moveErr     error
	updateErr   error
	listErr     error
	listCalls   int
	statusCalls int
}

func uintPtr(v uint) *uint { return &v }

func newFakeStore() *fakeStore {
	s := &fakeStore{
		statuses: []models.IssueStatus{
			{ID: 1, Name: "New", Position: 1},
			{ID: 2, Name: "In Progress", Position: 2},
			{ID: 5, Name: "Closed", Position: 5, IsClosed: true},
		},
		versions: []models.Version{
			{ID: 1, ProjectID: 1, Name: "0.1", Status: "closed"},
			{ID: 2, ProjectID: 1, Name: "1.0", Status: "open"},
		},
		users: []models.User{
			{ID: 2, Login: "jsmith", Name: "John Smith"},
			{ID: 3, Login: "dlopper", Name: "Dave Lopper"},
		},
		moved:   map[uint]uint{},
		updated: map[uint]map[string]interface{}{},
	}
	s.issues = []models.Issue{
		{ID: 1, ProjectID: 1, Subject: "Cannot print recipes", StatusID: 1, LockVersion: 0},
		{ID: 2, ProjectID: 1, Subject: "Add ingredients categories", StatusID: 2, AssignedToID: uintPtr(3), FixedVersionID: uintPtr(2), LockVersion: 1},
		{ID: 3, ProjectID: 1, Subject: "Error 281 when updating a recipe", StatusID: 5, AssignedToID: uintPtr(2), FixedVersionID: uintPtr(1), LockVersion: 2},
		{ID: 4, ProjectID: 2, Subject: "Issue on project 2", StatusID: 1},
	}
	for i := range s.issues {
		iss := &s.issues[i]
		for _, st := range s.statuses {
			if st.ID == iss.StatusID {
				iss.Status = st
			}
		}
		if iss.AssignedToID != nil {
			for j := range s.users {
				if s.users[j].ID == *iss.AssignedToID {
					iss.AssignedTo = &s.users[j]
				}
			}
		}
		if iss.FixedVersionID != nil {
			for j := range s.versions {
				if s.versions[j].ID == *iss.FixedVersionID {
					iss.FixedVersion = &s.versions[j]
				}
			}
		}
	}
	return s
}

func (s *fakeStore) List(_ context.Context, f issue.Filter) ([]models.Issue, error) {
	s.listCalls++
	s.lastFilter = f
	if s.listErr != nil {
		return nil, s.listErr
	}
	var out []models.Issue
	for _, iss := range s.issues {
		if f.ProjectID != 0 && iss.ProjectID != f.ProjectID {
			continue
		}
		if f.Unassigned && iss.AssignedToID != nil {
			continue
		}
		if f.AssignedToID != nil && (iss.AssignedToID == nil || *iss.AssignedToID != *f.AssignedToID) {
			continue
		}
		if f.NoVersion && iss.FixedVersionID != nil {
			continue
		}
		if f.FixedVersionID != nil && (iss.FixedVersionID == nil || *iss.FixedVersionID != *f.FixedVersionID) {
			continue
		}
		if len(f.StatusIDs) > 0 && !slices.Contains(f.StatusIDs, iss.StatusID) {
			continue
		}
		out = append(out, iss)
	}
	return out, nil
}

func (s *fakeStore) Statuses(context.Context) ([]models.IssueStatus, error) {
	s.statusCalls++
	return s.statuses, nil
}

func (s *fakeStore) Versions(_ context.Context, projectID uint) ([]models.Version, error) {
	var out []models.Version
	for _, v := range s.versions {
		if v.ProjectID == projectID {
			out = append(out, v)
		}
	}
	return out, nil
}

func (s *fakeStore) Assignees(context.Context, uint) ([]models.User, error) {
	return s.users, nil
}

func (s *fakeStore) Move(_ context.Context, iss *models.Issue, statusID uint) error {
	if s.moveErr != nil {
		return s.moveErr
	}
	s.moved[iss.ID] = statusID
	iss.StatusID = statusID
	iss.LockVersion++
	return nil
}

func (s *fakeStore) Update(_ context.Context, iss *models.Issue, updates map[string]interface{}) error {
	if s.updateErr != nil {
		return s.updateErr
	}
	s.updated[iss.ID] = updates
	iss.LockVersion++
	return nil
}

func testScope() Scope {
	return Scope{
		Project: &models.Project{ID: 1, Identifier: "ecookbook", Name: "eCookbook"},
		User:    &models.User{ID: 3, Login: "dlopper", Name: "Dave Lopper"},
	}
}
