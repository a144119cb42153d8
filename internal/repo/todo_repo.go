package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	dom "todotracker/internal/domain"
)

var ErrNotFound = errors.New("todo not found")

// Clock returns the current instant. Injected so tests can pin time.
type Clock func() time.Time

// SystemClock is the production clock: naive wall-clock time in UTC.
func SystemClock() time.Time { return time.Now().UTC() }

// ListFilter narrows List. Nil fields are not applied.
type ListFilter struct {
	Completed      *bool
	DeadlineBefore *time.Time
}

type TodoRepo interface {
	Create(ctx context.Context, t dom.Todo) (dom.Todo, error)
	GetByID(ctx context.Context, id int64) (dom.Todo, error)
	List(ctx context.Context, f ListFilter) ([]dom.Todo, error)
	Update(ctx context.Context, t dom.Todo) (dom.Todo, error)
	Delete(ctx context.Context, id int64) (dom.Todo, error)
}

const todoColumns = `id, title, description, completed, deadline_at, created_at, updated_at`

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SQLTodoRepo implements TodoRepo over database/sql. The SQL sticks to what
// PostgreSQL and SQLite both accept.
type SQLTodoRepo struct {
	db  *sql.DB
	now Clock
}

func NewSQLTodoRepo(db *sql.DB, clock Clock) *SQLTodoRepo {
	if clock == nil {
		clock = SystemClock
	}
	return &SQLTodoRepo{db: db, now: clock}
}

func (r *SQLTodoRepo) stamp() time.Time {
	return r.now().Truncate(time.Microsecond)
}

func (r *SQLTodoRepo) Create(ctx context.Context, t dom.Todo) (dom.Todo, error) {
	now := r.stamp()
	var out dom.Todo
	err := r.inTx(ctx, func(tx *sql.Tx) error {
		query := `
			INSERT INTO todos (title, description, completed, deadline_at, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id`
		var id int64
		if err := tx.QueryRowContext(ctx, query,
			t.Title, t.Description, t.Completed, t.DeadlineAt, now, now,
		).Scan(&id); err != nil {
			return fmt.Errorf("insert todo: %w", err)
		}
		var err error
		out, err = getByID(ctx, tx, id)
		return err
	})
	return out, err
}

func (r *SQLTodoRepo) GetByID(ctx context.Context, id int64) (dom.Todo, error) {
	return getByID(ctx, r.db, id)
}

func getByID(ctx context.Context, q queryer, id int64) (dom.Todo, error) {
	query := `SELECT ` + todoColumns + ` FROM todos WHERE id = $1`
	t, err := scanTodo(q.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return dom.Todo{}, ErrNotFound
	}
	return t, err
}

func (r *SQLTodoRepo) List(ctx context.Context, f ListFilter) ([]dom.Todo, error) {
	var (
		where []string
		args  []any
	)
	if f.Completed != nil {
		args = append(args, *f.Completed)
		where = append(where, "completed = $"+strconv.Itoa(len(args)))
	}
	if f.DeadlineBefore != nil {
		args = append(args, f.DeadlineBefore.Truncate(time.Microsecond))
		where = append(where, "deadline_at IS NOT NULL AND deadline_at <= $"+strconv.Itoa(len(args)))
	}
	query := `SELECT ` + todoColumns + ` FROM todos`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []dom.Todo{}
	for rows.Next() {
		t, err := scanTodo(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, t)
	}
	return list, rows.Err()
}

// Update writes every mutable column of t and refreshes updated_at.
func (r *SQLTodoRepo) Update(ctx context.Context, t dom.Todo) (dom.Todo, error) {
	now := r.stamp()
	if now.Before(t.CreatedAt) {
		now = t.CreatedAt
	}
	var out dom.Todo
	err := r.inTx(ctx, func(tx *sql.Tx) error {
		query := `
			UPDATE todos SET title = $1, description = $2, completed = $3, deadline_at = $4, updated_at = $5
			WHERE id = $6`
		res, err := tx.ExecContext(ctx, query, t.Title, t.Description, t.Completed, t.DeadlineAt, now, t.ID)
		if err != nil {
			return fmt.Errorf("update todo: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrNotFound
		}
		out, err = getByID(ctx, tx, t.ID)
		return err
	})
	return out, err
}

// Delete removes the row and returns it as it was. Only the caller whose
// DELETE removed the row sees it; everyone else gets ErrNotFound.
func (r *SQLTodoRepo) Delete(ctx context.Context, id int64) (dom.Todo, error) {
	var out dom.Todo
	err := r.inTx(ctx, func(tx *sql.Tx) error {
		var err error
		out, err = getByID(ctx, tx, id)
		if err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM todos WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("delete todo: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		// A concurrent delete may have removed the row after the read.
		if n == 0 {
			return ErrNotFound
		}
		return nil
	})
	return out, err
}

func (r *SQLTodoRepo) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTodo(s scanner) (dom.Todo, error) {
	var t dom.Todo
	err := s.Scan(&t.ID, &t.Title, &t.Description, &t.Completed, &t.DeadlineAt, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}
