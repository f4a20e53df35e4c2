package repository

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when no record matches the requested key.
	ErrNotFound = errors.New("record not found")
	// ErrConstraint is returned when a commit violates a store constraint.
	ErrConstraint = errors.New("constraint violation")
)

// Entity is a record addressed by a string primary key.
type Entity interface {
	Key() string
}

// Predicate selects entities in Find.
type Predicate[T any] func(T) bool

// Repository is the per-entity collection over the relational store.
type Repository[T Entity] interface {
	All(ctx context.Context) ([]T, error)
	Get(ctx context.Context, id string) (*T, error)
	Find(ctx context.Context, match Predicate[T]) ([]T, error)
	Begin() UnitOfWork[T]
}

// UnitOfWork stages writes until Commit applies them together.
// A unit belongs to a single operation and is not safe for concurrent use.
type UnitOfWork[T Entity] interface {
	Add(entity T)
	Update(entity T)
	Remove(entity T)
	Commit(ctx context.Context) error
}

type changeKind int

const (
	changeAdd changeKind = iota
	changeUpdate
	changeRemove
)

func (k changeKind) String() string {
	switch k {
	case changeAdd:
		return "add"
	case changeUpdate:
		return "update"
	default:
		return "remove"
	}
}

type change[T Entity] struct {
	kind   changeKind
	entity T
}

type pending[T Entity] struct {
	changes []change[T]
}

func (p *pending[T]) Add(entity T) {
	p.changes = append(p.changes, change[T]{kind: changeAdd, entity: entity})
}

func (p *pending[T]) Update(entity T) {
	p.changes = append(p.changes, change[T]{kind: changeUpdate, entity: entity})
}

func (p *pending[T]) Remove(entity T) {
	p.changes = append(p.changes, change[T]{kind: changeRemove, entity: entity})
}

func (p *pending[T]) take() []change[T] {
	changes := p.changes
	p.changes = nil
	return changes
}

// Filter returns the items accepted by match, preserving order.
func Filter[T any](items []T, match Predicate[T]) []T {
	out := make([]T, 0, len(items))
	for _, item := range items {
		if match == nil || match(item) {
			out = append(out, item)
		}
	}
	return out
}
