// Package board implements the board strategies (taskboard, planning) and the
// per-request session that loads, materializes and persists their options.
package board

import (
	"context"
	"errors"
	"net/url"
	"slices"

	"github.com/zulandar/taskboard/internal/issue"
	"github.com/zulandar/taskboard/internal/models"
	"github.com/zulandar/taskboard/internal/options"
)

// ErrInvalidParam is returned by Move and Update for malformed parameters.
var ErrInvalidParam = errors.New("board: invalid parameter")

// Kind selects a board strategy.
type Kind string

const (
	KindTaskboard Kind = "taskboard"
	KindPlanning  Kind = "planning"
)

// Options is the persisted display configuration of a board.
type Options = options.Options

// Scope identifies whose board is being served.
type Scope struct {
	Project *models.Project
	User    *models.User
}

// Board is one board strategy instance, constructed fresh per request.
type Board interface {
	Kind() Kind
	Scope() Scope
	// Options returns the current in-memory options, including changes
	// made by Setup.
	Options() Options
	// Setup merges request parameters into the options. Invalid values are
	// ignored and the previous value kept.
	Setup(params url.Values)
	// Build computes the view model from the current options.
	Build(ctx context.Context) (*View, error)
	// Move applies the board's drag-and-drop action to iss.
	Move(ctx context.Context, iss *models.Issue, params url.Values) error
	// Update writes individual fields of iss.
	Update(ctx context.Context, iss *models.Issue, params url.Values) error
}

// IssueStore is what boards need from issue persistence.
type IssueStore interface {
	List(ctx context.Context, f issue.Filter) ([]models.Issue, error)
	Statuses(ctx context.Context) ([]models.IssueStatus, error)
	Versions(ctx context.Context, projectID uint) ([]models.Version, error)
	Assignees(ctx context.Context, projectID uint) ([]models.User, error)
	Move(ctx context.Context, iss *models.Issue, statusID uint) error
	Update(ctx context.Context, iss *models.Issue, updates map[string]interface{}) error
}

// Factory constructs a board for scope with previously saved options.
type Factory func(scope Scope, opts Options) Board

// Registry maps kinds to factories, preserving registration order.
type Registry struct {
	factories map[Kind]Factory
	order     []Kind
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[Kind]Factory)}
}

// Register adds or replaces the factory for kind.
func (r *Registry) Register(kind Kind, f Factory) {
	if _, exists := r.factories[kind]; !exists {
		r.order = append(r.order, kind)
	}
	r.factories[kind] = f
}

// Lookup returns the factory for kind.
func (r *Registry) Lookup(kind Kind) (Factory, bool) {
	f, ok := r.factories[kind]
	return f, ok
}

// Kinds lists registered kinds in registration order.
func (r *Registry) Kinds() []Kind {
	return slices.Clone(r.order)
}

// Enabled returns a registry restricted to kinds, in the given order.
// Unknown kinds are skipped.
func (r *Registry) Enabled(kinds []string) *Registry {
	out := NewRegistry()
	for _, k := range kinds {
		if f, ok := r.factories[Kind(k)]; ok {
			out.Register(Kind(k), f)
		}
	}
	return out
}

// DefaultRegistry registers the built-in strategies on store.
func DefaultRegistry(store IssueStore) *Registry {
	r := NewRegistry()
	r.Register(KindTaskboard, func(scope Scope, opts Options) Board {
		return NewTaskboard(store, scope, opts)
	})
	r.Register(KindPlanning, func(scope Scope, opts Options) Board {
		return NewPlanning(store, scope, opts)
	})
	return r
}

// base carries what every strategy shares.
type base struct {
	store IssueStore
	scope Scope
	opts  Options
}

func newBase(store IssueStore, scope Scope, opts Options) base {
	if opts == nil {
		opts = Options{}
	}
	return base{store: store, scope: scope, opts: opts}
}

func (b *base) Scope() Scope     { return b.scope }
func (b *base) Options() Options { return b.opts }
func (b *base) projectID() uint  { return b.scope.Project.ID }
func (b *base) userID() uint     { return userID(b.scope) }

// Update writes subject, done_ratio, assignee and version changes. It is the
// same for every strategy.
func (b *base) Update(ctx context.Context, iss *models.Issue, params url.Values) error {
	updates, err := parseUpdates(params)
	if err != nil {
		return err
	}
	return b.store.Update(ctx, iss, updates)
}
