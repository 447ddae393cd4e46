package board

import (
	"context"
	"net/url"

	log "github.com/sirupsen/logrus"
)

// OptionStore persists board options per (project, user, kind).
type OptionStore interface {
	Load(ctx context.Context, projectID, userID uint, kind string) Options
	Save(ctx context.Context, projectID, userID uint, kind string, opts Options) error
}

// Session drives one board through a request: resolve, materialize, and
// finally persist its options.
type Session struct {
	registry *Registry
	options  OptionStore
}

// NewSession returns a Session resolving kinds through registry.
func NewSession(registry *Registry, store OptionStore) *Session {
	return &Session{registry: registry, options: store}
}

// Registry returns the kinds this session can resolve.
func (s *Session) Registry() *Registry {
	return s.registry
}

// Resolve constructs the board for kind with the user's saved options. A
// "reset" parameter discards the saved options. ok is false when kind is
// empty or not registered.
func (s *Session) Resolve(ctx context.Context, scope Scope, kind Kind, params url.Values) (Board, bool) {
	if kind == "" || scope.Project == nil {
		return nil, false
	}
	factory, ok := s.registry.Lookup(kind)
	if !ok {
		return nil, false
	}

	opts := Options{}
	if !params.Has("reset") {
		opts = s.options.Load(ctx, scope.Project.ID, userID(scope), string(kind))
	}
	return factory(scope, opts), true
}

// Materialize merges params into the board when present, then builds it
// exactly once.
func (s *Session) Materialize(ctx context.Context, b Board, params url.Values) (*View, error) {
	if params != nil {
		b.Setup(params)
	}
	return b.Build(ctx)
}

// Finalize saves the board's current options. It is a no-op when b is nil
// and logs rather than returns save failures.
func (s *Session) Finalize(ctx context.Context, b Board) {
	if b == nil {
		return
	}
	scope := b.Scope()
	if err := s.options.Save(ctx, scope.Project.ID, userID(scope), string(b.Kind()), b.Options()); err != nil {
		log.WithError(err).WithFields(log.Fields{
			"project": scope.Project.Identifier,
			"kind":    b.Kind(),
		}).Warn("save board options")
	}
}

func userID(scope Scope) uint {
	if scope.User == nil {
		return 0
	}
	return scope.User.ID
}
