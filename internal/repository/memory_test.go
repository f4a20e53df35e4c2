package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/spec-kit/support-desk/internal/domain"
)

func seedUser(t *testing.T, store *Store, id, email string) domain.User {
	t.Helper()
	user := domain.User{ID: id, Name: "Jane", Email: email, Role: domain.RoleCustomer, CreatedDate: time.Now().UTC()}
	uow := store.Users.Begin()
	uow.Add(user)
	if err := uow.Commit(context.Background()); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}

func TestMemoryRepositoryEmpty(t *testing.T) {
	store := NewMemoryStore()
	tickets, err := store.Tickets.All(context.Background())
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if tickets == nil || len(tickets) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", tickets)
	}
	if _, err := store.Tickets.Get(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryRepositoryStagesUntilCommit(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	seedUser(t, store, "u1", "jane@example.com")

	uow := store.Tickets.Begin()
	uow.Add(domain.Ticket{ID: "t1", Issue: "printer", Status: domain.TicketStatusOpen, CreatedBy: "u1"})
	if _, err := store.Tickets.Get(ctx, "t1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("staged add visible before commit: %v", err)
	}
	if err := uow.Commit(ctx); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	got, err := store.Tickets.Get(ctx, "t1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Issue != "printer" {
		t.Fatalf("unexpected ticket %+v", got)
	}

	// a committed unit starts empty again
	if err := uow.Commit(ctx); err != nil {
		t.Fatalf("empty Commit: %v", err)
	}
}

func TestMemoryRepositoryCommitIsAtomic(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	seedUser(t, store, "u1", "jane@example.com")

	uow := store.Tickets.Begin()
	uow.Add(domain.Ticket{ID: "t1", Issue: "a", CreatedBy: "u1"})
	uow.Update(domain.Ticket{ID: "missing", Issue: "b", CreatedBy: "u1"})
	if err := uow.Commit(ctx); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	all, _ := store.Tickets.All(ctx)
	if len(all) != 0 {
		t.Fatalf("partial commit applied: %+v", all)
	}
}

func TestMemoryRepositoryConstraints(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	seedUser(t, store, "u1", "jane@example.com")

	uow := store.Tickets.Begin()
	uow.Add(domain.Ticket{ID: "t1", Issue: "orphan", CreatedBy: "ghost"})
	if err := uow.Commit(ctx); !errors.Is(err, ErrConstraint) {
		t.Fatalf("expected ErrConstraint for unknown creator, got %v", err)
	}

	users := store.Users.Begin()
	users.Add(domain.User{ID: "u2", Name: "Other", Email: "JANE@example.com"})
	if err := users.Commit(ctx); !errors.Is(err, ErrConstraint) {
		t.Fatalf("expected ErrConstraint for duplicate email, got %v", err)
	}

	dup := store.Users.Begin()
	dup.Add(domain.User{ID: "u1", Name: "Again", Email: "again@example.com"})
	if err := dup.Commit(ctx); !errors.Is(err, ErrConstraint) {
		t.Fatalf("expected ErrConstraint for duplicate key, got %v", err)
	}
}

func TestMemoryRepositoryConcurrentCommitsKeepEmailUnique(t *testing.T) {
	ctx := context.Background()
	var users Repository[domain.User]
	users = NewMemoryRepository(WithConstraint(func(ctx context.Context, user domain.User) error {
		clashes, err := users.Find(ctx, func(other domain.User) bool { return other.Email == user.Email })
		if err != nil {
			return err
		}
		// widen the window between check and apply
		time.Sleep(time.Millisecond)
		if len(clashes) > 0 {
			return ErrConstraint
		}
		return nil
	}))

	const writers = 4
	var wg sync.WaitGroup
	errs := make([]error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			uow := users.Begin()
			uow.Add(domain.User{ID: fmt.Sprintf("u%d", i), Name: "Dup", Email: "dup@example.com"})
			errs[i] = uow.Commit(ctx)
		}(i)
	}
	wg.Wait()

	committed := 0
	for _, err := range errs {
		switch {
		case err == nil:
			committed++
		case !errors.Is(err, ErrConstraint):
			t.Fatalf("unexpected commit error %v", err)
		}
	}
	all, _ := users.All(ctx)
	if committed != 1 || len(all) != 1 {
		t.Fatalf("committed=%d stored=%d, want exactly one user with the shared email", committed, len(all))
	}
}

func TestMemoryRepositoryFindAndRemove(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	seedUser(t, store, "u1", "one@example.com")
	seedUser(t, store, "u2", "two@example.com")

	uow := store.Tickets.Begin()
	uow.Add(domain.Ticket{ID: "t1", Issue: "a", CreatedBy: "u1"})
	uow.Add(domain.Ticket{ID: "t2", Issue: "b", CreatedBy: "u2"})
	uow.Add(domain.Ticket{ID: "t3", Issue: "c", CreatedBy: "u1"})
	if err := uow.Commit(ctx); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	mine, err := store.Tickets.Find(ctx, func(tk domain.Ticket) bool { return tk.CreatedBy == "u1" })
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if len(mine) != 2 || mine[0].ID != "t1" || mine[1].ID != "t3" {
		t.Fatalf("unexpected find result %+v", mine)
	}

	rm := store.Tickets.Begin()
	rm.Remove(mine[0])
	if err := rm.Commit(ctx); err != nil {
		t.Fatalf("remove: %v", err)
	}
	all, _ := store.Tickets.All(ctx)
	if len(all) != 2 || all[0].ID != "t2" {
		t.Fatalf("unexpected rows after remove %+v", all)
	}

	again := store.Tickets.Begin()
	again.Remove(mine[0])
	if err := again.Commit(ctx); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound removing twice, got %v", err)
	}
}

func TestMemoryRepositoryHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	store := NewMemoryStore()
	if _, err := store.Users.All(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
