// Package guard rejects writes based on stale knowledge of an entity. A client
// echoes the revision it last saw; the guard compares it with the stored
// revision and reports one of a fixed set of outcomes. It never increments
// revisions: the store bumps them when the write actually happens.
package guard

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrMissingToken means the request carried no usable revision token.
	ErrMissingToken = errors.New("guard: missing revision token")
	// ErrStale means the presented revision is not the current one.
	ErrStale = errors.New("guard: stale revision")
	// ErrNotFound means the entity does not exist.
	ErrNotFound = errors.New("guard: entity not found")
)

// StaleError describes a concurrent-edit conflict.
type StaleError struct {
	Subject   string
	Current   int
	Presented int
}

func (e *StaleError) Error() string {
	return fmt.Sprintf("guard: %q changed since revision %d (now %d)", e.Subject, e.Presented, e.Current)
}

// Is makes errors.Is(err, ErrStale) match.
func (e *StaleError) Is(target error) bool {
	return target == ErrStale
}

// Entity is anything carrying an optimistic-locking revision.
type Entity interface {
	Revision() int
	SetRevision(int)
	DisplaySubject() string
}

// Finder looks entities up by id. ok is false when the entity does not exist.
type Finder[T Entity] interface {
	Lookup(ctx context.Context, id uint) (entity T, ok bool, err error)
}

// Outcome tags the result of a validation.
type Outcome int

const (
	// OK means the presented revision is current.
	OK Outcome = iota
	// Missing means no usable revision token was presented.
	Missing
	// Stale means the entity changed since the presented revision.
	Stale
	// NotFound means the entity id does not resolve.
	NotFound
	// Failed means the lookup itself errored.
	Failed
)

// String returns the lowercase outcome name.
func (o Outcome) String() string {
	switch o {
	case OK:
		return "ok"
	case Missing:
		return "missing"
	case Stale:
		return "stale"
	case NotFound:
		return "not_found"
	default:
		return "failed"
	}
}

// Result is the tagged outcome of Validate. Entity is set for OK and Stale.
type Result[T Entity] struct {
	Outcome   Outcome
	Entity    T
	Presented int
	Current   int
	err       error
}

// Err returns nil for OK and a typed error for every other outcome.
func (r Result[T]) Err() error {
	return r.err
}

// Guard validates revision tokens against entities served by a Finder.
type Guard[T Entity] struct {
	finder Finder[T]
}

// New returns a guard backed by finder.
func New[T Entity](finder Finder[T]) *Guard[T] {
	return &Guard[T]{finder: finder}
}

// Validate checks token against the current revision of entity id. An empty
// or non-numeric token is reported as Missing without loading the entity.
// On OK the returned entity carries the presented revision, which authorizes
// one subsequent write in the same request.
func (g *Guard[T]) Validate(ctx context.Context, id, token string) Result[T] {
	token = strings.TrimSpace(token)
	if token == "" {
		return Result[T]{Outcome: Missing, err: ErrMissingToken}
	}
	presented, err := strconv.Atoi(token)
	if err != nil {
		return Result[T]{Outcome: Missing, err: fmt.Errorf("%w: %q is not a revision", ErrMissingToken, token)}
	}

	entityID, err := strconv.ParseUint(strings.TrimSpace(id), 10, 64)
	if err != nil || entityID == 0 {
		return Result[T]{Outcome: NotFound, Presented: presented, err: fmt.Errorf("%w: %q", ErrNotFound, id)}
	}

	entity, ok, err := g.finder.Lookup(ctx, uint(entityID))
	if err != nil {
		return Result[T]{Outcome: Failed, Presented: presented, err: fmt.Errorf("guard: lookup %d: %w", entityID, err)}
	}
	if !ok {
		return Result[T]{Outcome: NotFound, Presented: presented, err: fmt.Errorf("%w: %d", ErrNotFound, entityID)}
	}

	current := entity.Revision()
	if current != presented {
		return Result[T]{
			Outcome:   Stale,
			Entity:    entity,
			Presented: presented,
			Current:   current,
			err:       &StaleError{Subject: entity.DisplaySubject(), Current: current, Presented: presented},
		}
	}

	entity.SetRevision(presented)
	return Result[T]{Outcome: OK, Entity: entity, Presented: presented, Current: current}
}
