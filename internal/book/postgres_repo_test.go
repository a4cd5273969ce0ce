package book

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockRepo(t *testing.T) (*PostgresRepo, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewPostgresRepo(mock, time.Second), mock
}

var bookRowColumns = []string{"id", "title", "author", "isbn", "genre", "rating", "reading_state", "cover_path"}

func TestPostgresRepo_Save(t *testing.T) {
	ctx := context.Background()
	b := MustNew(Fields{Title: "Gomorra", Author: "Roberto Saviano", ISBN: "9788804568905", Genre: "Inchiesta", Rating: 4})

	t.Run("new book gets id", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		mock.ExpectQuery(`INSERT INTO books \(title,`).
			WithArgs("Gomorra", "Roberto Saviano", "9788804568905", "Inchiesta", 4, "to-read", "").
			WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(7)))

		saved, err := repo.Save(ctx, b)
		require.NoError(t, err)
		assert.Equal(t, int64(7), saved.ID)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("persisted book keeps its id", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		withID, _ := b.WithID(3)
		mock.ExpectQuery(`INSERT INTO books \(id,`).
			WithArgs(int64(3), "Gomorra", "Roberto Saviano", "9788804568905", "Inchiesta", 4, "to-read", "").
			WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(3)))

		saved, err := repo.Save(ctx, withID)
		require.NoError(t, err)
		assert.Equal(t, withID, saved)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("driver error", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		mock.ExpectQuery(`INSERT INTO books`).
			WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnError(errors.New("connection reset"))

		_, err := repo.Save(ctx, b)
		assert.Error(t, err)
	})
}

func TestPostgresRepo_Update(t *testing.T) {
	ctx := context.Background()
	b := MustNew(Fields{ID: 5, Title: "T", Author: "A", Rating: 2, ReadingState: "reading"})

	tests := []struct {
		name     string
		affected int64
		want     bool
	}{
		{"row matched", 1, true},
		{"no row", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := newMockRepo(t)
			mock.ExpectExec(`UPDATE books SET title = \$1`).
				WithArgs("T", "A", "", "", 2, "reading", "", int64(5)).
				WillReturnResult(pgxmock.NewResult("UPDATE", tt.affected))

			ok, err := repo.Update(ctx, b)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestPostgresRepo_Delete(t *testing.T) {
	tests := []struct {
		name     string
		affected int64
		want     bool
	}{
		{"deleted", 1, true},
		{"missing", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := newMockRepo(t)
			mock.ExpectExec(`DELETE FROM books WHERE id = \$1`).
				WithArgs(int64(5)).
				WillReturnResult(pgxmock.NewResult("DELETE", tt.affected))

			ok, err := repo.Delete(context.Background(), MustNew(Fields{ID: 5, Title: "T", Author: "A"}))
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestPostgresRepo_Get(t *testing.T) {
	ctx := context.Background()

	t.Run("found normalizes reading state", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		mock.ExpectQuery(`SELECT id, title, author`).
			WithArgs(int64(3)).
			WillReturnRows(pgxmock.NewRows(bookRowColumns).
				AddRow(int64(3), "Il Nome della Rosa", "Umberto Eco", "9788845203004", "Giallo", 5, "READ", ""))

		got, err := repo.Get(ctx, 3)
		require.NoError(t, err)
		assert.Equal(t, int64(3), got.ID)
		assert.Equal(t, StateRead, got.ReadingState)
	})

	t.Run("not found", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		mock.ExpectQuery(`SELECT`).
			WithArgs(int64(4)).
			WillReturnError(pgx.ErrNoRows)

		_, err := repo.Get(ctx, 4)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestPostgresRepo_List(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery(`WHERE LOWER\(author\) LIKE \$1 ESCAPE '\\' ORDER BY LOWER\(title\) ASC`).
		WithArgs("%eco%").
		WillReturnRows(pgxmock.NewRows(bookRowColumns).
			AddRow(int64(1), "Il Nome della Rosa", "Umberto Eco", "", "", 5, "read", "").
			AddRow(int64(2), "Il pendolo di Foucault", "Umberto Eco", "", "", 4, "to-read", ""))

	got, err := repo.List(context.Background(), Query{Author: "Eco", Sort: SortTitleAsc})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Il pendolo di Foucault", got[1].Title)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepo_Ping(t *testing.T) {
	repo, _ := newMockRepo(t)
	assert.NoError(t, repo.Ping(context.Background()))
}
