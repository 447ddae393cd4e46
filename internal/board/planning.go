package board

import (
	"context"
	"fmt"
	"net/url"

	"github.com/zulandar/taskboard/internal/issue"
	"github.com/zulandar/taskboard/internal/models"
)

// OptHideClosed hides versions that no longer accept issues.
const OptHideClosed = "hide_closed"

// BacklogColumn holds issues without a version.
const BacklogColumn = valueNone

// Planning shows a backlog column followed by one column per project
// version. Moving a card plans the issue into a version.
type Planning struct {
	base
}

// NewPlanning returns a planning board for scope.
func NewPlanning(store IssueStore, scope Scope, opts Options) *Planning {
	return &Planning{base: newBase(store, scope, opts)}
}

// Kind returns KindPlanning.
func (p *Planning) Kind() Kind { return KindPlanning }

// Setup merges the assignee filter and hide_closed params into the options.
func (p *Planning) Setup(params url.Values) {
	setChoice(p.opts, params, OptAssignee, idOr(valueAll, valueMe, valueNone))
	setFlag(p.opts, params, OptHideClosed)
}

// Build renders a backlog column followed by one column per version.
func (p *Planning) Build(ctx context.Context) (*View, error) {
	versions, err := p.store.Versions(ctx, p.projectID())
	if err != nil {
		return nil, fmt.Errorf("board: planning columns: %w", err)
	}

	view := &View{Kind: KindPlanning, Project: p.scope.Project.Identifier, Options: p.opts.Clone()}
	view.Columns = append(view.Columns, Column{ID: BacklogColumn, Name: "Backlog"})
	visible := map[string]bool{BacklogColumn: true}
	hideClosed := p.opts.Bool(OptHideClosed)
	for _, v := range versions {
		if hideClosed && !v.IsOpen() {
			continue
		}
		id := idString(v.ID)
		view.Columns = append(view.Columns, Column{ID: id, Name: v.Name, Closed: !v.IsOpen()})
		visible[id] = true
	}

	filter := issue.Filter{ProjectID: p.projectID()}
	assignee, _ := p.opts.String(OptAssignee)
	applyAssignee(&filter, assignee, p.userID())
	issues, err := p.store.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("board: planning issues: %w", err)
	}

	ls := newLanes()
	lane := ls.get(valueAll, "All issues")
	for _, iss := range issues {
		column := BacklogColumn
		if iss.FixedVersionID != nil {
			column = idString(*iss.FixedVersionID)
		}
		if !visible[column] {
			continue
		}
		lane.Cards[column] = append(lane.Cards[column], newCard(iss))
		view.Total++
	}
	view.Lanes = ls.list
	return view, nil
}

// Move plans the issue into params["version"]; "none" returns it to the
// backlog.
func (p *Planning) Move(ctx context.Context, iss *models.Issue, params url.Values) error {
	if !params.Has("version") {
		return fmt.Errorf("%w: version is required", ErrInvalidParam)
	}
	version, err := optionalID(params, "version")
	if err != nil {
		return err
	}
	return p.store.Update(ctx, iss, map[string]interface{}{"fixed_version_id": version})
}
