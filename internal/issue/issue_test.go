package issue

import (
	"context"
	"errors"
	"testing"

	"github.com/zulandar/taskboard/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type fixture struct {
	db       *gorm.DB
	store    *Store
	project  models.Project
	other    models.Project
	dev      models.User
	outsider models.User
	statuses map[string]models.IssueStatus
	v10      models.Version
	v01      models.Version
	foreignV models.Version
}

func openIssueTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(
		&models.Project{}, &models.Version{}, &models.User{}, &models.Role{}, &models.Member{},
		&models.IssueStatus{}, &models.WorkflowTransition{}, &models.Issue{},
	); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return db
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := openIssueTestDB(t)
	f := &fixture{db: db, store: NewStore(db), statuses: map[string]models.IssueStatus{}}

	mustCreate := func(v interface{}) {
		t.Helper()
		if err := db.Create(v).Error; err != nil {
			t.Fatalf("create %T: %v", v, err)
		}
	}

	f.project = models.Project{Identifier: "ecookbook", Name: "eCookbook"}
	mustCreate(&f.project)
	f.other = models.Project{Identifier: "onlinestore", Name: "OnlineStore"}
	mustCreate(&f.other)

	for _, s := range []models.IssueStatus{
		{Name: "New", Position: 1},
		{Name: "In Progress", Position: 2},
		{Name: "Resolved", Position: 3},
		{Name: "Closed", Position: 4, IsClosed: true},
	} {
		s := s
		mustCreate(&s)
		f.statuses[s.Name] = s
	}

	f.dev = models.User{Login: "dlopper", Name: "Dave Lopper"}
	mustCreate(&f.dev)
	f.outsider = models.User{Login: "outsider", Name: "Out Sider"}
	mustCreate(&f.outsider)
	role := models.Role{Name: "Developer", Permissions: `["edit_issues"]`}
	mustCreate(&role)
	mustCreate(&models.Member{ProjectID: f.project.ID, UserID: f.dev.ID, RoleID: role.ID})

	f.v10 = models.Version{ProjectID: f.project.ID, Name: "1.0", Status: "open"}
	mustCreate(&f.v10)
	f.v01 = models.Version{ProjectID: f.project.ID, Name: "0.1", Status: "closed"}
	mustCreate(&f.v01)
	f.foreignV = models.Version{ProjectID: f.other.ID, Name: "9.9", Status: "open"}
	mustCreate(&f.foreignV)
	return f
}

func (f *fixture) issue(t *testing.T, subject string, status string) *models.Issue {
	t.Helper()
	iss := &models.Issue{ProjectID: f.project.ID, Subject: subject, StatusID: f.statuses[status].ID}
	if err := f.db.Create(iss).Error; err != nil {
		t.Fatalf("create issue: %v", err)
	}
	got, err := f.store.Find(context.Background(), iss.ID)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	return got
}

func TestFind(t *testing.T) {
	f := newFixture(t)
	iss := f.issue(t, "Cannot print recipes", "New")

	if iss.Status.Name != "New" {
		t.Errorf("Status.Name = %q, want New (preloaded)", iss.Status.Name)
	}

	_, err := f.store.Find(context.Background(), 9999)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Find(missing) error = %v, want ErrNotFound", err)
	}
}

func TestLookup(t *testing.T) {
	f := newFixture(t)
	iss := f.issue(t, "Cannot print recipes", "New")

	got, ok, err := f.store.Lookup(context.Background(), iss.ID)
	if err != nil || !ok || got.ID != iss.ID {
		t.Errorf("Lookup = %v, %v, %v", got, ok, err)
	}
	_, ok, err = f.store.Lookup(context.Background(), 9999)
	if err != nil || ok {
		t.Errorf("Lookup(missing) = %v, %v; want false, nil", ok, err)
	}
}

func TestRevisions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.issue(t, "Cannot print recipes", "New")
	b := f.issue(t, "Add categories", "New")
	foreign := &models.Issue{ProjectID: f.other.ID, Subject: "Checkout fails", StatusID: f.statuses["New"].ID}
	if err := f.db.Create(foreign).Error; err != nil {
		t.Fatalf("create issue: %v", err)
	}
	if err := f.store.Move(ctx, b, f.statuses["Resolved"].ID); err != nil {
		t.Fatalf("Move: %v", err)
	}

	revs, err := f.store.Revisions(ctx, f.project.ID)
	if err != nil {
		t.Fatalf("Revisions: %v", err)
	}
	if len(revs) != 2 {
		t.Fatalf("len(revs) = %d, want 2 (other projects excluded)", len(revs))
	}
	if revs[a.ID] != 0 || revs[b.ID] != 1 {
		t.Errorf("revs = %v, want %d:0 %d:1", revs, a.ID, b.ID)
	}
}

func TestMove_BumpsLockVersion(t *testing.T) {
	f := newFixture(t)
	iss := f.issue(t, "Cannot print recipes", "New")

	if err := f.store.Move(context.Background(), iss, f.statuses["In Progress"].ID); err != nil {
		t.Fatalf("Move: %v", err)
	}
	if iss.LockVersion != 1 {
		t.Errorf("LockVersion = %d, want 1", iss.LockVersion)
	}
	if iss.StatusID != f.statuses["In Progress"].ID {
		t.Errorf("StatusID = %d, want In Progress", iss.StatusID)
	}
}

func TestUpdate_ConcurrentWriterGetsStale(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first := f.issue(t, "Cannot print recipes", "New")
	second, err := f.store.Find(ctx, first.ID)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}

	if err := f.store.Update(ctx, first, map[string]interface{}{"subject": "Printing broken"}); err != nil {
		t.Fatalf("first Update: %v", err)
	}
	err = f.store.Update(ctx, second, map[string]interface{}{"subject": "Lost update"})
	if !errors.Is(err, ErrStale) {
		t.Fatalf("second Update error = %v, want ErrStale", err)
	}

	stored, _ := f.store.Find(ctx, first.ID)
	if stored.Subject != "Printing broken" {
		t.Errorf("Subject = %q, stale write leaked", stored.Subject)
	}
	if stored.LockVersion != 1 {
		t.Errorf("LockVersion = %d, want 1", stored.LockVersion)
	}
}

func TestMove_ClosingSetsDoneRatioAndClosedAt(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	iss := f.issue(t, "Cannot print recipes", "In Progress")

	if err := f.store.Move(ctx, iss, f.statuses["Closed"].ID); err != nil {
		t.Fatalf("Move: %v", err)
	}
	if iss.DoneRatio != 100 {
		t.Errorf("DoneRatio = %d, want 100", iss.DoneRatio)
	}
	if iss.ClosedAt == nil {
		t.Fatal("ClosedAt should be set when closing")
	}

	if err := f.store.Move(ctx, iss, f.statuses["New"].ID); err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if iss.ClosedAt != nil {
		t.Errorf("ClosedAt = %v, want nil after reopen", iss.ClosedAt)
	}
}

func TestMove_Workflow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	newID := f.statuses["New"].ID
	if err := f.db.Create(&models.WorkflowTransition{FromStatusID: newID, ToStatusID: f.statuses["In Progress"].ID}).Error; err != nil {
		t.Fatalf("create transition: %v", err)
	}

	iss := f.issue(t, "Cannot print recipes", "New")
	err := f.store.Move(ctx, iss, f.statuses["Closed"].ID)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("Move New->Closed error = %v, want ErrInvalidTransition", err)
	}
	if iss.LockVersion != 0 {
		t.Errorf("LockVersion = %d, rejected move must not bump it", iss.LockVersion)
	}
	if err := f.store.Move(ctx, iss, f.statuses["In Progress"].ID); err != nil {
		t.Fatalf("Move New->In Progress: %v", err)
	}
	// In Progress has no declared transitions, so anything goes.
	if err := f.store.Move(ctx, iss, f.statuses["Closed"].ID); err != nil {
		t.Fatalf("Move In Progress->Closed: %v", err)
	}
}

func TestMove_UnknownStatus(t *testing.T) {
	f := newFixture(t)
	iss := f.issue(t, "Cannot print recipes", "New")

	err := f.store.Move(context.Background(), iss, 999)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("error = %v, want ErrInvalidTransition", err)
	}
}

func TestUpdate_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		updates map[string]interface{}
	}{
		{"empty", map[string]interface{}{}},
		{"unknown field", map[string]interface{}{"project_id": uint(2)}},
		{"blank subject", map[string]interface{}{"subject": ""}},
		{"ratio too high", map[string]interface{}{"done_ratio": 120}},
		{"ratio negative", map[string]interface{}{"done_ratio": -1}},
		{"non member assignee", map[string]interface{}{"assigned_to_id": f.outsider.ID}},
		{"closed version", map[string]interface{}{"fixed_version_id": f.v01.ID}},
		{"foreign version", map[string]interface{}{"fixed_version_id": f.foreignV.ID}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			iss := f.issue(t, "Validate me", "New")
			err := f.store.Update(ctx, iss, tt.updates)
			if !errors.Is(err, ErrInvalidChange) {
				t.Errorf("error = %v, want ErrInvalidChange", err)
			}
		})
	}
}

func TestUpdate_AssignAndPlan(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	iss := f.issue(t, "Add categories", "New")

	err := f.store.Update(ctx, iss, map[string]interface{}{
		"assigned_to_id":   f.dev.ID,
		"fixed_version_id": f.v10.ID,
		"done_ratio":       30,
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if iss.AssignedTo == nil || iss.AssignedTo.Login != "dlopper" {
		t.Errorf("AssignedTo = %+v, want dlopper", iss.AssignedTo)
	}
	if iss.FixedVersion == nil || iss.FixedVersion.Name != "1.0" {
		t.Errorf("FixedVersion = %+v, want 1.0", iss.FixedVersion)
	}

	if err := f.store.Update(ctx, iss, map[string]interface{}{"assigned_to_id": nil, "fixed_version_id": nil}); err != nil {
		t.Fatalf("clear Update: %v", err)
	}
	if iss.AssignedToID != nil || iss.FixedVersionID != nil {
		t.Errorf("AssignedToID = %v, FixedVersionID = %v, want both nil", iss.AssignedToID, iss.FixedVersionID)
	}
	if iss.LockVersion != 2 {
		t.Errorf("LockVersion = %d, want 2", iss.LockVersion)
	}
}

func TestList_Filters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.issue(t, "Assigned", "New")
	_ = f.store.Update(ctx, a, map[string]interface{}{"assigned_to_id": f.dev.ID, "fixed_version_id": f.v10.ID})
	f.issue(t, "Unassigned", "In Progress")
	if err := f.db.Create(&models.Issue{ProjectID: f.other.ID, Subject: "Other project", StatusID: f.statuses["New"].ID}).Error; err != nil {
		t.Fatalf("create: %v", err)
	}

	all, err := f.store.List(ctx, Filter{ProjectID: f.project.ID})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("List(project) = %d issues, want 2", len(all))
	}

	dev := f.dev.ID
	mine, _ := f.store.List(ctx, Filter{ProjectID: f.project.ID, AssignedToID: &dev})
	if len(mine) != 1 || mine[0].Subject != "Assigned" {
		t.Errorf("List(assignee) = %v", mine)
	}
	nobody, _ := f.store.List(ctx, Filter{ProjectID: f.project.ID, Unassigned: true})
	if len(nobody) != 1 || nobody[0].Subject != "Unassigned" {
		t.Errorf("List(unassigned) = %v", nobody)
	}
	v := f.v10.ID
	planned, _ := f.store.List(ctx, Filter{ProjectID: f.project.ID, FixedVersionID: &v})
	if len(planned) != 1 {
		t.Errorf("List(version) = %d issues, want 1", len(planned))
	}
	backlog, _ := f.store.List(ctx, Filter{ProjectID: f.project.ID, NoVersion: true})
	if len(backlog) != 1 {
		t.Errorf("List(no version) = %d issues, want 1", len(backlog))
	}
	open, _ := f.store.List(ctx, Filter{ProjectID: f.project.ID, StatusIDs: []uint{f.statuses["In Progress"].ID}})
	if len(open) != 1 || open[0].Subject != "Unassigned" {
		t.Errorf("List(status) = %v", open)
	}
}

func TestStatusesVersionsAssignees(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	statuses, err := f.store.Statuses(ctx)
	if err != nil {
		t.Fatalf("Statuses: %v", err)
	}
	if len(statuses) != 4 || statuses[0].Name != "New" || statuses[3].Name != "Closed" {
		t.Errorf("Statuses order = %v", statuses)
	}

	versions, err := f.store.Versions(ctx, f.project.ID)
	if err != nil {
		t.Fatalf("Versions: %v", err)
	}
	if len(versions) != 2 {
		t.Errorf("Versions = %d, want 2 (foreign version excluded)", len(versions))
	}

	users, err := f.store.Assignees(ctx, f.project.ID)
	if err != nil {
		t.Fatalf("Assignees: %v", err)
	}
	if len(users) != 1 || users[0].Login != "dlopper" {
		t.Errorf("Assignees = %v, want [dlopper]", users)
	}
}
