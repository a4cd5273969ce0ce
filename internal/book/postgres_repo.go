package book

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier is the subset of *pgxpool.Pool the repository uses.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
}

type PostgresRepo struct {
	db      Querier
	timeout time.Duration
}

func NewPostgresRepo(db Querier, timeout time.Duration) *PostgresRepo {
	return &PostgresRepo{db: db, timeout: timeout}
}

func (r *PostgresRepo) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, r.timeout)
}

func (r *PostgresRepo) Save(ctx context.Context, b Book) (Book, error) {
	query, args, err := insertBook(b, sq.Dollar).Suffix("RETURNING id").ToSql()
	if err != nil {
		return Book{}, fmt.Errorf("build insert: %w", err)
	}

	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	var id int64
	if err := r.db.QueryRow(timeoutCtx, query, args...).Scan(&id); err != nil {
		return Book{}, fmt.Errorf("insert book: %w", err)
	}
	return b.WithID(id)
}

func (r *PostgresRepo) Update(ctx context.Context, b Book) (bool, error) {
	query, args, err := updateBook(b, sq.Dollar).ToSql()
	if err != nil {
		return false, fmt.Errorf("build update: %w", err)
	}

	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	tag, err := r.db.Exec(timeoutCtx, query, args...)
	if err != nil {
		return false, fmt.Errorf("update book %d: %w", b.ID, err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *PostgresRepo) Delete(ctx context.Context, b Book) (bool, error) {
	query, args, err := deleteBook(b.ID, sq.Dollar).ToSql()
	if err != nil {
		return false, fmt.Errorf("build delete: %w", err)
	}

	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	tag, err := r.db.Exec(timeoutCtx, query, args...)
	if err != nil {
		return false, fmt.Errorf("delete book %d: %w", b.ID, err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *PostgresRepo) Get(ctx context.Context, id int64) (Book, error) {
	query, args, err := sq.StatementBuilder.PlaceholderFormat(sq.Dollar).
		Select(bookColumns...).
		From(tableBooks).
		Where(sq.Eq{"id": id}).
		Limit(1).
		ToSql()
	if err != nil {
		return Book{}, fmt.Errorf("build get: %w", err)
	}

	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	b, err := scanBook(r.db.QueryRow(timeoutCtx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Book{}, ErrNotFound
		}
		return Book{}, err
	}
	return b, nil
}

func (r *PostgresRepo) List(ctx context.Context, q Query) ([]Book, error) {
	query, args, err := selectBooks(q, sq.Dollar).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list: %w", err)
	}

	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	rows, err := r.db.Query(timeoutCtx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Book{}
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) Ping(ctx context.Context) error {
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	return r.db.Ping(timeoutCtx)
}

func scanBook(row pgx.Row) (Book, error) {
	var (
		b     Book
		state string
	)
	if err := row.Scan(&b.ID, &b.Title, &b.Author, &b.ISBN, &b.Genre, &b.Rating, &state, &b.CoverPath); err != nil {
		return Book{}, err
	}
	b.ReadingState = NormalizeReadingState(state)
	return b, nil
}
