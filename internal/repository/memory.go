package repository

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
)

// Constraint rejects an added or updated entity at commit time.
type Constraint[T Entity] func(ctx context.Context, entity T) error

// MemoryOption configures an in-memory repository.
type MemoryOption[T Entity] func(*memoryRepository[T])

// WithConstraint registers a check run for every add and update on commit.
func WithConstraint[T Entity](check Constraint[T]) MemoryOption[T] {
	return func(r *memoryRepository[T]) {
		r.constraints = append(r.constraints, check)
	}
}

type memoryRepository[T Entity] struct {
	// commitMu serializes commits across constraint checks and apply.
	// Constraints may read through mu, so the two stay separate.
	commitMu    sync.Mutex
	mu          sync.RWMutex
	rows        map[string]T
	order       []string
	constraints []Constraint[T]
}

// NewMemoryRepository returns a repository that keeps rows in process memory.
// Rows are listed in insertion order.
func NewMemoryRepository[T Entity](opts ...MemoryOption[T]) Repository[T] {
	r := &memoryRepository[T]{rows: make(map[string]T)}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *memoryRepository[T]) All(ctx context.Context) ([]T, error) {
	return r.Find(ctx, nil)
}

func (r *memoryRepository[T]) Get(ctx context.Context, id string) (*T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	row, ok := r.rows[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &row, nil
}

func (r *memoryRepository[T]) Find(ctx context.Context, match Predicate[T]) ([]T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	rows := make([]T, 0, len(r.order))
	for _, key := range r.order {
		rows = append(rows, r.rows[key])
	}
	r.mu.RUnlock()
	return Filter(rows, match), nil
}

func (r *memoryRepository[T]) Begin() UnitOfWork[T] {
	return &memoryUnit[T]{repo: r}
}

type memoryUnit[T Entity] struct {
	pending[T]
	repo *memoryRepository[T]
}

func (u *memoryUnit[T]) Commit(ctx context.Context) error {
	changes := u.take()
	if len(changes) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	r := u.repo
	r.commitMu.Lock()
	defer r.commitMu.Unlock()

	for _, ch := range changes {
		if ch.kind == changeRemove {
			continue
		}
		for _, check := range r.constraints {
			if err := check(ctx, ch.entity); err != nil {
				return err
			}
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	rows := maps.Clone(r.rows)
	order := slices.Clone(r.order)
	for _, ch := range changes {
		key := ch.entity.Key()
		_, exists := rows[key]
		switch ch.kind {
		case changeAdd:
			if exists {
				return fmt.Errorf("%w: duplicate key %s", ErrConstraint, key)
			}
			rows[key] = ch.entity
			order = append(order, key)
		case changeUpdate:
			if !exists {
				return fmt.Errorf("update %s: %w", key, ErrNotFound)
			}
			rows[key] = ch.entity
		case changeRemove:
			if !exists {
				return fmt.Errorf("remove %s: %w", key, ErrNotFound)
			}
			delete(rows, key)
			order = slices.DeleteFunc(order, func(k string) bool { return k == key })
		}
	}
	r.rows = rows
	r.order = order
	return nil
}
