package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pkgerrors "github.com/pkg/errors"
)

// DB is the subset of pgxpool.Pool used by the Postgres repositories.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Table maps an entity type onto a relational table.
type Table[T Entity] struct {
	Name    string
	Key     string
	Columns []string
	OrderBy string
	// Values returns the non-key column values in Columns order.
	Values func(T) []any
	// Scan reads the key followed by Columns.
	Scan func(row pgx.Row) (T, error)
	// ValidKey rejects ids that cannot name a row. Nil accepts every id.
	ValidKey func(id string) bool
}

func (t Table[T]) selectSQL() string {
	query := fmt.Sprintf("SELECT %s FROM %s", strings.Join(append([]string{t.Key}, t.Columns...), ", "), t.Name)
	if t.OrderBy != "" {
		query += " ORDER BY " + t.OrderBy
	}
	return query
}

func (t Table[T]) selectByKeySQL() string {
	return fmt.Sprintf("SELECT %s FROM %s WHERE %s=$1",
		strings.Join(append([]string{t.Key}, t.Columns...), ", "), t.Name, t.Key)
}

func (t Table[T]) insertSQL() string {
	columns := append([]string{t.Key}, t.Columns...)
	placeholders := make([]string, len(columns))
	for i := range columns {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		t.Name, strings.Join(columns, ", "), strings.Join(placeholders, ","))
}

func (t Table[T]) updateSQL() string {
	sets := make([]string, len(t.Columns))
	for i, column := range t.Columns {
		sets[i] = fmt.Sprintf("%s=$%d", column, i+1)
	}
	return fmt.Sprintf("UPDATE %s SET %s WHERE %s=$%d",
		t.Name, strings.Join(sets, ", "), t.Key, len(t.Columns)+1)
}

func (t Table[T]) deleteSQL() string {
	return fmt.Sprintf("DELETE FROM %s WHERE %s=$1", t.Name, t.Key)
}

type postgresRepository[T Entity] struct {
	db    DB
	table Table[T]
}

// NewPostgresRepository returns a repository backed by the given table.
func NewPostgresRepository[T Entity](db DB, table Table[T]) Repository[T] {
	return &postgresRepository[T]{db: db, table: table}
}

func (r *postgresRepository[T]) All(ctx context.Context) ([]T, error) {
	rows, err := r.db.Query(ctx, r.table.selectSQL())
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "select %s", r.table.Name)
	}
	items, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (T, error) {
		return r.table.Scan(row)
	})
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "scan %s", r.table.Name)
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}

func (r *postgresRepository[T]) Get(ctx context.Context, id string) (*T, error) {
	if r.table.ValidKey != nil && !r.table.ValidKey(id) {
		return nil, ErrNotFound
	}
	item, err := r.table.Scan(r.db.QueryRow(ctx, r.table.selectByKeySQL(), id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		var pgErr *pgconn.PgError
		// malformed uuid literals can never match a row
		if errors.As(err, &pgErr) && pgErr.Code == "22P02" {
			return nil, ErrNotFound
		}
		return nil, pkgerrors.Wrapf(err, "get %s %s", r.table.Name, id)
	}
	return &item, nil
}

// Find loads the table and filters it in process.
func (r *postgresRepository[T]) Find(ctx context.Context, match Predicate[T]) ([]T, error) {
	items, err := r.All(ctx)
	if err != nil {
		return nil, err
	}
	return Filter(items, match), nil
}

func (r *postgresRepository[T]) Begin() UnitOfWork[T] {
	return &postgresUnit[T]{repo: r}
}

type postgresUnit[T Entity] struct {
	pending[T]
	repo *postgresRepository[T]
}

func (u *postgresUnit[T]) Commit(ctx context.Context) error {
	changes := u.take()
	if len(changes) == 0 {
		return nil
	}
	table := u.repo.table

	tx, err := u.repo.db.Begin(ctx)
	if err != nil {
		return pkgerrors.Wrap(err, "begin transaction")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	for _, ch := range changes {
		key := ch.entity.Key()
		var tag pgconn.CommandTag
		switch ch.kind {
		case changeAdd:
			tag, err = tx.Exec(ctx, table.insertSQL(), append([]any{key}, table.Values(ch.entity)...)...)
		case changeUpdate:
			tag, err = tx.Exec(ctx, table.updateSQL(), append(table.Values(ch.entity), key)...)
		case changeRemove:
			tag, err = tx.Exec(ctx, table.deleteSQL(), key)
		}
		if err != nil {
			return pkgerrors.Wrapf(mapPgError(err), "%s %s %s", ch.kind, table.Name, key)
		}
		if ch.kind != changeAdd && tag.RowsAffected() == 0 {
			return pkgerrors.Wrapf(ErrNotFound, "%s %s %s", ch.kind, table.Name, key)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return pkgerrors.Wrapf(mapPgError(err), "commit %s", table.Name)
	}
	return nil
}

// mapPgError tags integrity constraint violations (SQLSTATE class 23).
func mapPgError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && strings.HasPrefix(pgErr.Code, "23") {
		return fmt.Errorf("%w: %s", ErrConstraint, pgErr.ConstraintName)
	}
	return err
}
