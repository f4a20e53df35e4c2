package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/support-desk/internal/domain"
)

// Store bundles the entity collections of the support desk.
type Store struct {
	Users   Repository[domain.User]
	Tickets Repository[domain.Ticket]
}

func validUUID(id string) bool {
	return uuid.Validate(id) == nil
}

var userTable = Table[domain.User]{
	Name:     "users",
	Key:      "id",
	Columns:  []string{"name", "email", "password_hash", "role", "created_date"},
	OrderBy:  "created_date, id",
	ValidKey: validUUID,
	Values: func(u domain.User) []any {
		return []any{u.Name, u.Email, u.PasswordHash, string(u.Role), u.CreatedDate}
	},
	Scan: func(row pgx.Row) (domain.User, error) {
		var user domain.User
		if err := row.Scan(
			&user.ID,
			&user.Name,
			&user.Email,
			&user.PasswordHash,
			&user.Role,
			&user.CreatedDate,
		); err != nil {
			return domain.User{}, err
		}
		user.CreatedDate = user.CreatedDate.UTC()
		return user, nil
	},
}

var ticketTable = Table[domain.Ticket]{
	Name:     "tickets",
	Key:      "ticket_id",
	Columns:  []string{"issue", "status", "category", "created_by", "created_date", "last_updated_date"},
	OrderBy:  "created_date, ticket_id",
	ValidKey: validUUID,
	Values: func(t domain.Ticket) []any {
		return []any{t.Issue, string(t.Status), t.Category, t.CreatedBy, t.CreatedDate, t.LastUpdatedDate}
	},
	Scan: func(row pgx.Row) (domain.Ticket, error) {
		var ticket domain.Ticket
		if err := row.Scan(
			&ticket.ID,
			&ticket.Issue,
			&ticket.Status,
			&ticket.Category,
			&ticket.CreatedBy,
			&ticket.CreatedDate,
			&ticket.LastUpdatedDate,
		); err != nil {
			return domain.Ticket{}, err
		}
		ticket.CreatedDate = ticket.CreatedDate.UTC()
		if ticket.LastUpdatedDate != nil {
			updated := ticket.LastUpdatedDate.UTC()
			ticket.LastUpdatedDate = &updated
		}
		return ticket, nil
	},
}

// NewPostgresStore returns repositories over the users and tickets tables.
func NewPostgresStore(db DB) *Store {
	return &Store{
		Users:   NewPostgresRepository(db, userTable),
		Tickets: NewPostgresRepository(db, ticketTable),
	}
}

// NewMemoryStore returns in-memory repositories enforcing the same unique
// email and ticket creator constraints as the SQL schema.
func NewMemoryStore() *Store {
	store := &Store{}
	store.Users = NewMemoryRepository(WithConstraint(func(ctx context.Context, user domain.User) error {
		clashes, err := store.Users.Find(ctx, func(other domain.User) bool {
			return other.ID != user.ID && strings.EqualFold(other.Email, user.Email)
		})
		if err != nil {
			return err
		}
		if len(clashes) > 0 {
			return fmt.Errorf("%w: users_email_key", ErrConstraint)
		}
		return nil
	}))
	store.Tickets = NewMemoryRepository(WithConstraint(func(ctx context.Context, ticket domain.Ticket) error {
		if _, err := store.Users.Get(ctx, ticket.CreatedBy); err != nil {
			if errors.Is(err, ErrNotFound) {
				return fmt.Errorf("%w: tickets_created_by_fkey", ErrConstraint)
			}
			return err
		}
		return nil
	}))
	return store
}
