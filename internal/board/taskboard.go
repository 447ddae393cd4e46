package board

import (
	"context"
	"fmt"
	"net/url"

	"github.com/zulandar/taskboard/internal/issue"
	"github.com/zulandar/taskboard/internal/models"
)

// Taskboard options.
const (
	OptGroup    = "group"
	OptAssignee = "assignee"
	OptVersion  = "version"
	OptHideDone = "hide_done"
)

// Taskboard groupings.
const (
	GroupNone     = "none"
	GroupAssignee = "assignee"
	GroupVersion  = "version"
)

// Taskboard shows one column per issue status, optionally split into lanes
// by assignee or version. Moving a card changes the issue status.
type Taskboard struct {
	base
}

// NewTaskboard returns a taskboard for scope.
func NewTaskboard(store IssueStore, scope Scope, opts Options) *Taskboard {
	return &Taskboard{base: newBase(store, scope, opts)}
}

// Kind returns KindTaskboard.
func (t *Taskboard) Kind() Kind { return KindTaskboard }

// Setup merges grouping, filter and hide_done params into the options.
func (t *Taskboard) Setup(params url.Values) {
	setChoice(t.opts, params, OptGroup, oneOf(GroupNone, GroupAssignee, GroupVersion))
	setChoice(t.opts, params, OptAssignee, idOr(valueAll, valueMe, valueNone))
	setChoice(t.opts, params, OptVersion, idOr(valueAll, valueNone))
	setFlag(t.opts, params, OptHideDone)
}

// Build renders status columns and lanes for the filtered issues.
func (t *Taskboard) Build(ctx context.Context) (*View, error) {
	statuses, err := t.store.Statuses(ctx)
	if err != nil {
		return nil, fmt.Errorf("board: taskboard columns: %w", err)
	}

	hideDone := t.opts.Bool(OptHideDone)
	filter := issue.Filter{ProjectID: t.projectID()}
	view := &View{Kind: KindTaskboard, Project: t.scope.Project.Identifier, Options: t.opts.Clone()}
	for _, s := range statuses {
		if hideDone && s.IsClosed {
			continue
		}
		view.Columns = append(view.Columns, Column{ID: idString(s.ID), Name: s.Name, Closed: s.IsClosed})
		if hideDone {
			filter.StatusIDs = append(filter.StatusIDs, s.ID)
		}
	}
	if hideDone && len(filter.StatusIDs) == 0 {
		return view, nil
	}

	assignee, _ := t.opts.String(OptAssignee)
	applyAssignee(&filter, assignee, t.userID())
	version, _ := t.opts.String(OptVersion)
	applyVersion(&filter, version)

	issues, err := t.store.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("board: taskboard issues: %w", err)
	}

	ls, err := t.lanes(ctx)
	if err != nil {
		return nil, err
	}
	group, _ := t.opts.String(OptGroup)
	for _, iss := range issues {
		var lane *Lane
		switch group {
		case GroupAssignee:
			lane = ls.get(valueNone, "Unassigned")
			if iss.AssignedToID != nil {
				name := ""
				if iss.AssignedTo != nil {
					name = iss.AssignedTo.Name
				}
				lane = ls.get(idString(*iss.AssignedToID), name)
			}
		case GroupVersion:
			lane = ls.get(valueNone, "No version")
			if iss.FixedVersionID != nil {
				name := ""
				if iss.FixedVersion != nil {
					name = iss.FixedVersion.Name
				}
				lane = ls.get(idString(*iss.FixedVersionID), name)
			}
		default:
			lane = ls.get(valueAll, "All issues")
		}
		column := idString(iss.StatusID)
		lane.Cards[column] = append(lane.Cards[column], newCard(iss))
		view.Total++
	}
	view.Lanes = ls.list
	return view, nil
}

// lanes seeds the swimlanes for the current grouping so that empty lanes
// still render as drop targets.
func (t *Taskboard) lanes(ctx context.Context) (*lanes, error) {
	ls := newLanes()
	group, _ := t.opts.String(OptGroup)
	switch group {
	case GroupAssignee:
		users, err := t.store.Assignees(ctx, t.projectID())
		if err != nil {
			return nil, fmt.Errorf("board: taskboard lanes: %w", err)
		}
		for _, u := range users {
			ls.get(idString(u.ID), u.Name)
		}
		ls.get(valueNone, "Unassigned")
	case GroupVersion:
		versions, err := t.store.Versions(ctx, t.projectID())
		if err != nil {
			return nil, fmt.Errorf("board: taskboard lanes: %w", err)
		}
		for _, v := range versions {
			if v.IsOpen() {
				ls.get(idString(v.ID), v.Name)
			}
		}
		ls.get(valueNone, "No version")
	default:
		ls.get(valueAll, "All issues")
	}
	return ls, nil
}

// Move sets the issue status to params["status"].
func (t *Taskboard) Move(ctx context.Context, iss *models.Issue, params url.Values) error {
	statusID, ok := parseID(params.Get("status"))
	if !ok {
		return fmt.Errorf("%w: status=%q", ErrInvalidParam, params.Get("status"))
	}
	return t.store.Move(ctx, iss, statusID)
}
