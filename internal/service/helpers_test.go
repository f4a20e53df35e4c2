package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/events"
	"github.com/spec-kit/support-desk/internal/repository"
)

var testNow = time.Date(2024, 5, 10, 9, 30, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

// spyRepository counts store interactions of the wrapped repository.
type spyRepository[T repository.Entity] struct {
	repository.Repository[T]

	mu      sync.Mutex
	reads   int
	commits int
}

func (s *spyRepository[T]) All(ctx context.Context) ([]T, error) {
	s.touch(false)
	return s.Repository.All(ctx)
}

func (s *spyRepository[T]) Get(ctx context.Context, id string) (*T, error) {
	s.touch(false)
	return s.Repository.Get(ctx, id)
}

func (s *spyRepository[T]) Find(ctx context.Context, match repository.Predicate[T]) ([]T, error) {
	s.touch(false)
	return s.Repository.Find(ctx, match)
}

func (s *spyRepository[T]) Begin() repository.UnitOfWork[T] {
	return &spyUnit[T]{UnitOfWork: s.Repository.Begin(), spy: s}
}

func (s *spyRepository[T]) touch(commit bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if commit {
		s.commits++
		return
	}
	s.reads++
}

func (s *spyRepository[T]) counts() (reads, commits int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reads, s.commits
}

type spyUnit[T repository.Entity] struct {
	repository.UnitOfWork[T]
	spy *spyRepository[T]
}

func (u *spyUnit[T]) Commit(ctx context.Context) error {
	u.spy.touch(true)
	return u.UnitOfWork.Commit(ctx)
}

// eventRecorder subscribes to every event type and keeps what it saw.
type eventRecorder struct {
	mu     sync.Mutex
	events []events.Event
}

func newEventRecorder(dispatcher events.Dispatcher) *eventRecorder {
	rec := &eventRecorder{}
	for _, eventType := range []events.EventType{
		events.EventTicketCreated,
		events.EventTicketStatusChanged,
		events.EventTicketDeleted,
		events.EventUserCreated,
	} {
		dispatcher.Subscribe(eventType, rec.handle)
	}
	return rec
}

func (r *eventRecorder) handle(_ context.Context, event events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *eventRecorder) types() []events.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.EventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

type testEnv struct {
	store     *repository.Store
	tickets   *spyRepository[domain.Ticket]
	users     *spyRepository[domain.User]
	recorder  *eventRecorder
	ticketSvc *TicketService
	userSvc   *UserService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := repository.NewMemoryStore()
	tickets := &spyRepository[domain.Ticket]{Repository: store.Tickets}
	users := &spyRepository[domain.User]{Repository: store.Users}
	dispatcher := events.NewInMemoryDispatcher()

	return &testEnv{
		store:    store,
		tickets:  tickets,
		users:    users,
		recorder: newEventRecorder(dispatcher),
		ticketSvc: NewTicketService(TicketDependencies{
			TicketRepo: tickets,
			Dispatcher: dispatcher,
			Clock:      fixedClock,
		}),
		userSvc: NewUserService(UserDependencies{
			UserRepo:   users,
			Dispatcher: dispatcher,
			Clock:      fixedClock,
			BcryptCost: bcrypt.MinCost,
		}),
	}
}

func (e *testEnv) seedUser(t *testing.T, name, email string, role domain.Role) *domain.User {
	t.Helper()
	user, err := e.userSvc.Create(context.Background(), UserCreateInput{
		Name:     name,
		Email:    email,
		Password: "password123",
		Role:     role,
	})
	if err != nil {
		t.Fatalf("seed user %s: %v", email, err)
	}
	return user
}

func (e *testEnv) seedTicket(t *testing.T, createdBy string) *domain.Ticket {
	t.Helper()
	ticket, err := e.ticketSvc.Create(context.Background(), TicketCreateInput{
		Issue:     "printer is on fire",
		CreatedBy: createdBy,
	})
	if err != nil {
		t.Fatalf("seed ticket: %v", err)
	}
	return ticket
}
