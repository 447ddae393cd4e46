// Package options persists per-user board display options. Options are
// addressed by the (project, user, board kind) triple and live in a
// session-scoped store, so their lifetime follows the user's session.
package options

import (
	"context"
	"fmt"

	"github.com/bytedance/sonic"
	log "github.com/sirupsen/logrus"
	"github.com/zulandar/taskboard/internal/session"
)

// Options is the display configuration of one board. Values must be JSON
// representable; numbers come back as float64 after a round trip, so boards
// keep identifiers as strings.
type Options map[string]any

// Clone returns a shallow copy of o. A nil receiver yields an empty map.
func (o Options) Clone() Options {
	out := make(Options, len(o))
	for k, v := range o {
		out[k] = v
	}
	return out
}

// String returns o[key] when it holds a string.
func (o Options) String(key string) (string, bool) {
	s, ok := o[key].(string)
	return s, ok
}

// Bool returns o[key] when it holds a bool.
func (o Options) Bool(key string) bool {
	b, _ := o[key].(bool)
	return b
}

// Key derives the session key for a board's options.
func Key(projectID, userID uint, kind string) string {
	return fmt.Sprintf("dashboard_%d_%d_%s", projectID, userID, kind)
}

// Store loads and saves Options through a session backend.
type Store struct {
	backend session.Store
}

// NewStore wraps a session backend.
func NewStore(backend session.Store) *Store {
	return &Store{backend: backend}
}

// Load returns the options saved for the triple, or an empty map when none
// exist. Backend or decode failures are logged and also yield an empty map.
func (s *Store) Load(ctx context.Context, projectID, userID uint, kind string) Options {
	key := Key(projectID, userID, kind)
	data, ok, err := s.backend.Get(ctx, key)
	if err != nil {
		log.WithError(err).WithField("key", key).Warn("load board options")
		return Options{}
	}
	if !ok || len(data) == 0 {
		return Options{}
	}

	var opts Options
	if err := sonic.Unmarshal(data, &opts); err != nil {
		log.WithError(err).WithField("key", key).Warn("decode board options")
		return Options{}
	}
	if opts == nil {
		return Options{}
	}
	return opts
}

// Save overwrites the options stored for the triple. No merge is attempted;
// concurrent saves are last-write-wins.
func (s *Store) Save(ctx context.Context, projectID, userID uint, kind string, opts Options) error {
	if opts == nil {
		opts = Options{}
	}
	data, err := sonic.Marshal(opts)
	if err != nil {
		return fmt.Errorf("options: encode %s: %w", kind, err)
	}
	if err := s.backend.Set(ctx, Key(projectID, userID, kind), data); err != nil {
		return fmt.Errorf("options: save %s: %w", kind, err)
	}
	return nil
}

// Clear removes the options stored for the triple.
func (s *Store) Clear(ctx context.Context, projectID, userID uint, kind string) error {
	if err := s.backend.Delete(ctx, Key(projectID, userID, kind)); err != nil {
		return fmt.Errorf("options: clear %s: %w", kind, err)
	}
	return nil
}
