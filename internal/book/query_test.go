package book

import (
	"testing"

	sq "github.com/Masterminds/squirrel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSortCriterion(t *testing.T) {
	for _, in := range []string{"", "none", "title_asc", "TITLE_DESC", "author_asc", "author_desc", "rating_asc", "rating_desc"} {
		_, err := ParseSortCriterion(in)
		assert.NoError(t, err, in)
	}

	_, err := ParseSortCriterion("published")
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestSelectBooks(t *testing.T) {
	rating := 5

	tests := []struct {
		name      string
		query     Query
		ph        sq.PlaceholderFormat
		wantWhere string
		wantOrder string
		wantArgs  []any
	}{
		{
			name:      "no filters keeps insertion order",
			query:     Query{},
			ph:        sq.Question,
			wantOrder: "ORDER BY id ASC",
			wantArgs:  nil,
		},
		{
			name:      "title substring sorted by rating",
			query:     Query{Title: "Rosa", Sort: SortRatingDesc},
			ph:        sq.Question,
			wantWhere: `WHERE LOWER(title) LIKE ? ESCAPE '\'`,
			wantOrder: "ORDER BY rating DESC, LOWER(title) ASC",
			wantArgs:  []any{"%rosa%"},
		},
		{
			name:      "exact filters in postgres dialect",
			query:     Query{Rating: &rating, ReadingState: StateRead, Sort: SortAuthorAsc},
			ph:        sq.Dollar,
			wantWhere: "WHERE rating = $1 AND reading_state = $2",
			wantOrder: "ORDER BY LOWER(author) ASC",
			wantArgs:  []any{5, "read"},
		},
		{
			name:      "wildcards in filters are literal",
			query:     Query{Genre: `50%_off\`},
			ph:        sq.Dollar,
			wantWhere: `WHERE LOWER(genre) LIKE $1 ESCAPE '\'`,
			wantOrder: "ORDER BY id ASC",
			wantArgs:  []any{`%50\%\_off\\%`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query, args, err := selectBooks(tt.query, tt.ph).ToSql()
			require.NoError(t, err)

			assert.Contains(t, query, "SELECT id, title, author, isbn, genre, rating, reading_state, cover_path FROM books")
			if tt.wantWhere != "" {
				assert.Contains(t, query, tt.wantWhere)
			} else {
				assert.NotContains(t, query, "WHERE")
			}
			assert.Contains(t, query, tt.wantOrder)
			if tt.wantArgs == nil {
				assert.Empty(t, args)
			} else {
				assert.Equal(t, tt.wantArgs, args)
			}
		})
	}
}

func TestInsertBook_ExplicitIDOnlyWhenPersisted(t *testing.T) {
	fresh := MustNew(Fields{Title: "T", Author: "A"})
	query, args, err := insertBook(fresh, sq.Question).ToSql()
	require.NoError(t, err)
	assert.NotContains(t, query, "(id,")
	assert.Len(t, args, 7)

	persisted := MustNew(Fields{ID: 9, Title: "T", Author: "A"})
	query, args, err = insertBook(persisted, sq.Question).ToSql()
	require.NoError(t, err)
	assert.Contains(t, query, "(id,")
	assert.Len(t, args, 8)
	assert.Equal(t, int64(9), args[0])
}
