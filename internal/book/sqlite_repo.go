package book

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
)

// SQLiteRepo stores books in a single SQLite table. It is the backend for a
// local, single-user library.
type SQLiteRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

func NewSQLiteRepo(db *sql.DB, timeout time.Duration) *SQLiteRepo {
	return &SQLiteRepo{db: sqlx.NewDb(db, "sqlite"), timeout: timeout}
}

func (r *SQLiteRepo) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, r.timeout)
}

func (r *SQLiteRepo) Save(ctx context.Context, b Book) (Book, error) {
	query, args, err := insertBook(b, sq.Question).ToSql()
	if err != nil {
		return Book{}, fmt.Errorf("build insert: %w", err)
	}

	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	res, err := r.db.ExecContext(timeoutCtx, query, args...)
	if err != nil {
		return Book{}, fmt.Errorf("insert book: %w", err)
	}
	if b.Persisted() {
		return b, nil
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Book{}, fmt.Errorf("read inserted id: %w", err)
	}
	return b.WithID(id)
}

func (r *SQLiteRepo) Update(ctx context.Context, b Book) (bool, error) {
	query, args, err := updateBook(b, sq.Question).ToSql()
	if err != nil {
		return false, fmt.Errorf("build update: %w", err)
	}

	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	res, err := r.db.ExecContext(timeoutCtx, query, args...)
	if err != nil {
		return false, fmt.Errorf("update book %d: %w", b.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update book %d: %w", b.ID, err)
	}
	return n > 0, nil
}

func (r *SQLiteRepo) Delete(ctx context.Context, b Book) (bool, error) {
	query, args, err := deleteBook(b.ID, sq.Question).ToSql()
	if err != nil {
		return false, fmt.Errorf("build delete: %w", err)
	}

	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	res, err := r.db.ExecContext(timeoutCtx, query, args...)
	if err != nil {
		return false, fmt.Errorf("delete book %d: %w", b.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete book %d: %w", b.ID, err)
	}
	return n > 0, nil
}

func (r *SQLiteRepo) Get(ctx context.Context, id int64) (Book, error) {
	query, args, err := sq.Select(bookColumns...).
		From(tableBooks).
		Where(sq.Eq{"id": id}).
		Limit(1).
		ToSql()
	if err != nil {
		return Book{}, fmt.Errorf("build get: %w", err)
	}

	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	var b Book
	if err := r.db.GetContext(timeoutCtx, &b, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Book{}, ErrNotFound
		}
		return Book{}, err
	}
	b.ReadingState = NormalizeReadingState(string(b.ReadingState))
	return b, nil
}

func (r *SQLiteRepo) List(ctx context.Context, q Query) ([]Book, error) {
	query, args, err := selectBooks(q, sq.Question).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list: %w", err)
	}

	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	out := []Book{}
	if err := r.db.SelectContext(timeoutCtx, &out, query, args...); err != nil {
		return nil, err
	}
	for i := range out {
		out[i].ReadingState = NormalizeReadingState(string(out[i].ReadingState))
	}
	return out, nil
}

func (r *SQLiteRepo) Ping(ctx context.Context) error {
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	return r.db.PingContext(timeoutCtx)
}
