package service

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/events"
	apperrors "github.com/spec-kit/support-desk/pkg/util/errorutil"
)

func strPtr(s string) *string { return &s }

func TestTicketCreate(t *testing.T) {
	env := newTestEnv(t)
	owner := env.seedUser(t, "Alice", "alice@example.com", domain.RoleCustomer)

	ticket, err := env.ticketSvc.Create(context.Background(), TicketCreateInput{
		Issue:     "  cannot log in  ",
		Category:  strPtr(" Access "),
		CreatedBy: owner.ID,
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if ticket.ID == "" {
		t.Error("Create() should assign an id")
	}
	if ticket.Status != domain.TicketStatusOpen {
		t.Errorf("status = %q, want Open", ticket.Status)
	}
	if ticket.LastUpdatedDate != nil {
		t.Errorf("LastUpdatedDate = %v, want nil", ticket.LastUpdatedDate)
	}
	if !ticket.CreatedDate.Equal(testNow) || ticket.CreatedDate.Location() != time.UTC {
		t.Errorf("CreatedDate = %v, want %v UTC", ticket.CreatedDate, testNow)
	}
	if ticket.Issue != "cannot log in" {
		t.Errorf("Issue = %q", ticket.Issue)
	}
	if ticket.Category == nil || *ticket.Category != "Access" {
		t.Errorf("Category = %v, want Access", ticket.Category)
	}

	stored, err := env.ticketSvc.GetByID(context.Background(), ticket.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if stored.CreatedBy != owner.ID {
		t.Errorf("CreatedBy = %q, want %q", stored.CreatedBy, owner.ID)
	}
	if !slices.Contains(env.recorder.types(), events.EventTicketCreated) {
		t.Error("ticket.created event not published")
	}
}

func TestTicketCreate_BlankCategoryIsDropped(t *testing.T) {
	env := newTestEnv(t)
	owner := env.seedUser(t, "Alice", "alice@example.com", domain.RoleCustomer)

	ticket, err := env.ticketSvc.Create(context.Background(), TicketCreateInput{
		Issue:     "slow network",
		Category:  strPtr("   "),
		CreatedBy: owner.ID,
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if ticket.Category != nil {
		t.Errorf("Category = %q, want nil", *ticket.Category)
	}
}

func TestTicketCreate_EmptyIssueWritesNothing(t *testing.T) {
	for _, issue := range []string{"", "   "} {
		env := newTestEnv(t)
		owner := env.seedUser(t, "Alice", "alice@example.com", domain.RoleCustomer)

		_, err := env.ticketSvc.Create(context.Background(), TicketCreateInput{Issue: issue, CreatedBy: owner.ID})
		if !apperrors.HasCode(err, apperrors.CodeValidation) {
			t.Fatalf("Create(%q) error = %v, want validation error", issue, err)
		}
		if reads, commits := env.tickets.counts(); reads != 0 || commits != 0 {
			t.Errorf("Create(%q) touched the store: reads=%d commits=%d", issue, reads, commits)
		}
		all, _ := env.store.Tickets.All(context.Background())
		if len(all) != 0 {
			t.Errorf("store holds %d tickets, want 0", len(all))
		}
	}
}

func TestTicketCreate_UnknownCreator(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.ticketSvc.Create(context.Background(), TicketCreateInput{Issue: "help", CreatedBy: "ghost"})
	if !apperrors.HasCode(err, apperrors.CodeStore) {
		t.Fatalf("Create() error = %v, want store error", err)
	}
	if status := apperrors.ToDomainError(err).HTTPStatus; status != 409 {
		t.Errorf("HTTPStatus = %d, want 409", status)
	}
}

func TestTicketUpdateStatus(t *testing.T) {
	env := newTestEnv(t)
	owner := env.seedUser(t, "Alice", "alice@example.com", domain.RoleCustomer)
	ticket := env.seedTicket(t, owner.ID)

	later := testNow.Add(2 * time.Hour)
	env.ticketSvc.now = func() time.Time { return later }

	updated, err := env.ticketSvc.UpdateStatus(context.Background(), ticket.ID, TicketStatusUpdate{
		ID:     ticket.ID,
		Status: domain.TicketStatusInProgress,
	})
	if err != nil {
		t.Fatalf("UpdateStatus() error = %v", err)
	}
	if updated.Status != domain.TicketStatusInProgress {
		t.Errorf("status = %q, want InProgress", updated.Status)
	}
	if updated.LastUpdatedDate == nil || !updated.LastUpdatedDate.Equal(later) {
		t.Errorf("LastUpdatedDate = %v, want %v", updated.LastUpdatedDate, later)
	}

	stored, _ := env.ticketSvc.GetByID(context.Background(), ticket.ID)
	if stored.Issue != ticket.Issue || stored.CreatedBy != ticket.CreatedBy || !stored.CreatedDate.Equal(ticket.CreatedDate) {
		t.Errorf("immutable fields changed: %+v", stored)
	}
	if stored.Status != domain.TicketStatusInProgress {
		t.Errorf("stored status = %q", stored.Status)
	}
	if !slices.Contains(env.recorder.types(), events.EventTicketStatusChanged) {
		t.Error("ticket.status_changed event not published")
	}
}

func TestTicketUpdateStatus_ClockBehindCreation(t *testing.T) {
	env := newTestEnv(t)
	owner := env.seedUser(t, "Alice", "alice@example.com", domain.RoleCustomer)
	ticket := env.seedTicket(t, owner.ID)

	env.ticketSvc.now = func() time.Time { return testNow.Add(-time.Minute) }

	updated, err := env.ticketSvc.UpdateStatus(context.Background(), ticket.ID, TicketStatusUpdate{
		ID:     ticket.ID,
		Status: domain.TicketStatusResolved,
	})
	if err != nil {
		t.Fatalf("UpdateStatus() error = %v", err)
	}
	if updated.LastUpdatedDate.Before(updated.CreatedDate) {
		t.Errorf("LastUpdatedDate %v before CreatedDate %v", updated.LastUpdatedDate, updated.CreatedDate)
	}
}

func TestTicketUpdateStatus_MismatchTouchesNothing(t *testing.T) {
	env := newTestEnv(t)
	owner := env.seedUser(t, "Alice", "alice@example.com", domain.RoleCustomer)
	ticket := env.seedTicket(t, owner.ID)
	readsBefore, commitsBefore := env.tickets.counts()

	_, err := env.ticketSvc.UpdateStatus(context.Background(), ticket.ID, TicketStatusUpdate{
		ID:     "other-id",
		Status: domain.TicketStatusClosed,
	})
	if !apperrors.HasCode(err, apperrors.CodeMismatch) {
		t.Fatalf("UpdateStatus() error = %v, want mismatch", err)
	}
	if reads, commits := env.tickets.counts(); reads != readsBefore || commits != commitsBefore {
		t.Errorf("store touched: reads %d->%d commits %d->%d", readsBefore, reads, commitsBefore, commits)
	}
}

func TestTicketUpdateStatus_UUIDCaseInsensitive(t *testing.T) {
	env := newTestEnv(t)
	owner := env.seedUser(t, "Alice", "alice@example.com", domain.RoleCustomer)
	ticket := env.seedTicket(t, owner.ID)

	updated, err := env.ticketSvc.UpdateStatus(context.Background(), strings.ToUpper(ticket.ID), TicketStatusUpdate{
		ID:     ticket.ID,
		Status: domain.TicketStatusInProgress,
	})
	if err != nil {
		t.Fatalf("UpdateStatus() error = %v", err)
	}
	if updated.ID != ticket.ID || updated.Status != domain.TicketStatusInProgress {
		t.Errorf("updated = %+v", updated)
	}
	if _, err := env.ticketSvc.GetByID(context.Background(), strings.ToUpper(ticket.ID)); err != nil {
		t.Errorf("GetByID() with uppercase id error = %v", err)
	}
}

func TestTicketUpdateStatus_Errors(t *testing.T) {
	tests := []struct {
		name     string
		from     []domain.TicketStatus
		status   domain.TicketStatus
		useID    string
		wantCode string
	}{
		{name: "unknown ticket", status: domain.TicketStatusClosed, useID: "missing", wantCode: apperrors.CodeNotFound},
		{name: "empty status", status: "", wantCode: apperrors.CodeValidation},
		{name: "unknown status", status: "Escalated", wantCode: apperrors.CodeValidation},
		{name: "closed is terminal", from: []domain.TicketStatus{domain.TicketStatusClosed}, status: domain.TicketStatusOpen, wantCode: apperrors.CodeValidation},
		{name: "resolved cannot reopen", from: []domain.TicketStatus{domain.TicketStatusResolved}, status: domain.TicketStatusOpen, wantCode: apperrors.CodeValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			owner := env.seedUser(t, "Alice", "alice@example.com", domain.RoleCustomer)
			ticket := env.seedTicket(t, owner.ID)
			for _, step := range tt.from {
				if _, err := env.ticketSvc.UpdateStatus(context.Background(), ticket.ID, TicketStatusUpdate{ID: ticket.ID, Status: step}); err != nil {
					t.Fatalf("setup transition to %s: %v", step, err)
				}
			}

			id := ticket.ID
			if tt.useID != "" {
				id = tt.useID
			}
			_, commitsBefore := env.tickets.counts()
			_, err := env.ticketSvc.UpdateStatus(context.Background(), id, TicketStatusUpdate{ID: id, Status: tt.status})
			if !apperrors.HasCode(err, tt.wantCode) {
				t.Fatalf("UpdateStatus() error = %v, want %s", err, tt.wantCode)
			}
			if _, commits := env.tickets.counts(); commits != commitsBefore {
				t.Errorf("commit issued on failed update")
			}
		})
	}
}

func TestTicketUpdateStatus_ValidationListsField(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.ticketSvc.UpdateStatus(context.Background(), "id-1", TicketStatusUpdate{ID: "id-1", Status: "Bogus"})
	domainErr := apperrors.ToDomainError(err)
	failures, ok := domainErr.Details["fields"].([]apperrors.FieldFailure)
	if !ok || len(failures) != 1 || failures[0].Field != "status" {
		t.Fatalf("details = %#v", domainErr.Details)
	}
}

func TestTicketDelete(t *testing.T) {
	env := newTestEnv(t)
	owner := env.seedUser(t, "Alice", "alice@example.com", domain.RoleCustomer)
	ticket := env.seedTicket(t, owner.ID)

	if err := env.ticketSvc.Delete(context.Background(), ticket.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := env.ticketSvc.GetByID(context.Background(), ticket.ID); !apperrors.HasCode(err, apperrors.CodeNotFound) {
		t.Errorf("GetByID() after delete error = %v, want not found", err)
	}
	if !slices.Contains(env.recorder.types(), events.EventTicketDeleted) {
		t.Error("ticket.deleted event not published")
	}
}

func TestTicketDelete_MissingIsNoop(t *testing.T) {
	env := newTestEnv(t)
	owner := env.seedUser(t, "Alice", "alice@example.com", domain.RoleCustomer)
	kept := env.seedTicket(t, owner.ID)
	_, commitsBefore := env.tickets.counts()

	if err := env.ticketSvc.Delete(context.Background(), "does-not-exist"); err != nil {
		t.Fatalf("Delete() error = %v, want nil", err)
	}
	if _, commits := env.tickets.counts(); commits != commitsBefore {
		t.Error("Delete() of a missing id should not commit")
	}
	all, _ := env.ticketSvc.ListAll(context.Background())
	if len(all) != 1 || all[0].ID != kept.ID {
		t.Errorf("ListAll() = %+v, want only the kept ticket", all)
	}
	if slices.Contains(env.recorder.types(), events.EventTicketDeleted) {
		t.Error("no event expected for a no-op delete")
	}
}

func TestTicketDelete_GuardVetoes(t *testing.T) {
	env := newTestEnv(t)
	owner := env.seedUser(t, "Alice", "alice@example.com", domain.RoleCustomer)
	ticket := env.seedTicket(t, owner.ID)
	veto := errors.New("not yours")

	err := env.ticketSvc.Delete(context.Background(), ticket.ID, func(*domain.Ticket) error { return veto })
	if !errors.Is(err, veto) {
		t.Fatalf("Delete() error = %v, want veto", err)
	}
	if _, err := env.ticketSvc.GetByID(context.Background(), ticket.ID); err != nil {
		t.Errorf("ticket should survive a vetoed delete: %v", err)
	}
}

func TestTicketListing(t *testing.T) {
	env := newTestEnv(t)

	all, err := env.ticketSvc.ListAll(context.Background())
	if err != nil {
		t.Fatalf("ListAll() on empty store error = %v", err)
	}
	if all == nil || len(all) != 0 {
		t.Errorf("ListAll() = %#v, want empty slice", all)
	}

	alice := env.seedUser(t, "Alice", "alice@example.com", domain.RoleCustomer)
	bob := env.seedUser(t, "Bob", "bob@example.com", domain.RoleCustomer)
	env.seedTicket(t, alice.ID)
	env.seedTicket(t, bob.ID)
	env.seedTicket(t, alice.ID)

	all, _ = env.ticketSvc.ListAll(context.Background())
	if len(all) != 3 {
		t.Errorf("ListAll() len = %d, want 3", len(all))
	}
	mine, err := env.ticketSvc.ListByCreator(context.Background(), alice.ID)
	if err != nil {
		t.Fatalf("ListByCreator() error = %v", err)
	}
	if len(mine) != 2 {
		t.Errorf("ListByCreator() len = %d, want 2", len(mine))
	}
	for _, ticket := range mine {
		if ticket.CreatedBy != alice.ID {
			t.Errorf("foreign ticket %s in result", ticket.ID)
		}
	}
}

func TestTicketCreate_RecordsActor(t *testing.T) {
	env := newTestEnv(t)
	owner := env.seedUser(t, "Alice", "alice@example.com", domain.RoleCustomer)
	ctx := domain.WithPrincipal(context.Background(), &domain.Principal{UserID: owner.ID, Role: domain.RoleCustomer})

	if _, err := env.ticketSvc.Create(ctx, TicketCreateInput{Issue: "help", CreatedBy: owner.ID}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	env.recorder.mu.Lock()
	defer env.recorder.mu.Unlock()
	last := env.recorder.events[len(env.recorder.events)-1]
	if last.Actor.UserID != owner.ID || last.Actor.Role != domain.RoleCustomer {
		t.Errorf("actor = %+v", last.Actor)
	}
	if last.ID == "" || last.Timestamp.IsZero() {
		t.Errorf("event not stamped: %+v", last)
	}
}
