package book

import (
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
)

// SortCriterion orders list results.
type SortCriterion string

const (
	SortNone       SortCriterion = ""
	SortTitleAsc   SortCriterion = "title_asc"
	SortTitleDesc  SortCriterion = "title_desc"
	SortAuthorAsc  SortCriterion = "author_asc"
	SortAuthorDesc SortCriterion = "author_desc"
	SortRatingAsc  SortCriterion = "rating_asc"
	SortRatingDesc SortCriterion = "rating_desc"
)

// ParseSortCriterion accepts the criterion names above; "" and "none" mean
// store order.
func ParseSortCriterion(s string) (SortCriterion, error) {
	c := SortCriterion(strings.ToLower(strings.TrimSpace(s)))
	switch c {
	case SortNone, SortTitleAsc, SortTitleDesc, SortAuthorAsc, SortAuthorDesc, SortRatingAsc, SortRatingDesc:
		return c, nil
	case "none":
		return SortNone, nil
	default:
		return SortNone, fmt.Errorf("%w: sort %q", ErrInvalidArgument, s)
	}
}

func (c SortCriterion) orderBy() []string {
	switch c {
	case SortTitleAsc:
		return []string{"LOWER(title) ASC"}
	case SortTitleDesc:
		return []string{"LOWER(title) DESC"}
	case SortAuthorAsc:
		return []string{"LOWER(author) ASC"}
	case SortAuthorDesc:
		return []string{"LOWER(author) DESC"}
	case SortRatingAsc:
		return []string{"rating ASC", "LOWER(title) ASC"}
	case SortRatingDesc:
		return []string{"rating DESC", "LOWER(title) ASC"}
	default:
		return nil
	}
}

// Query defines filters and ordering for listing books. Text filters are
// case-insensitive substring matches; Rating and ReadingState are exact.
type Query struct {
	Title        string
	Author       string
	ISBN         string
	Genre        string
	Rating       *int
	ReadingState ReadingState
	Sort         SortCriterion
}

const tableBooks = "books"

var bookColumns = []string{"id", "title", "author", "isbn", "genre", "rating", "reading_state", "cover_path"}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likeFilter matches value as a literal, case-insensitive substring of column.
func likeFilter(column, value string) sq.Sqlizer {
	pattern := "%" + likeEscaper.Replace(strings.ToLower(value)) + "%"
	return sq.Expr("LOWER("+column+") LIKE ? ESCAPE '\\'", pattern)
}

// selectBooks builds the SELECT for q in the given placeholder dialect.
func selectBooks(q Query, ph sq.PlaceholderFormat) sq.SelectBuilder {
	sb := sq.StatementBuilder.PlaceholderFormat(ph).
		Select(bookColumns...).
		From(tableBooks)

	if q.Title != "" {
		sb = sb.Where(likeFilter("title", q.Title))
	}
	if q.Author != "" {
		sb = sb.Where(likeFilter("author", q.Author))
	}
	if q.ISBN != "" {
		sb = sb.Where(likeFilter("isbn", q.ISBN))
	}
	if q.Genre != "" {
		sb = sb.Where(likeFilter("genre", q.Genre))
	}
	if q.Rating != nil {
		sb = sb.Where(sq.Eq{"rating": *q.Rating})
	}
	if q.ReadingState != "" {
		sb = sb.Where(sq.Eq{"reading_state": string(q.ReadingState)})
	}
	if order := q.Sort.orderBy(); len(order) > 0 {
		sb = sb.OrderBy(order...)
	} else {
		sb = sb.OrderBy("id ASC")
	}
	return sb
}

func insertBook(b Book, ph sq.PlaceholderFormat) sq.InsertBuilder {
	ib := sq.StatementBuilder.PlaceholderFormat(ph).Insert(tableBooks)
	if b.Persisted() {
		return ib.Columns(bookColumns...).
			Values(b.ID, b.Title, b.Author, b.ISBN, b.Genre, b.Rating, string(b.ReadingState), b.CoverPath)
	}
	return ib.Columns(bookColumns[1:]...).
		Values(b.Title, b.Author, b.ISBN, b.Genre, b.Rating, string(b.ReadingState), b.CoverPath)
}

func updateBook(b Book, ph sq.PlaceholderFormat) sq.UpdateBuilder {
	return sq.StatementBuilder.PlaceholderFormat(ph).
		Update(tableBooks).
		Set("title", b.Title).
		Set("author", b.Author).
		Set("isbn", b.ISBN).
		Set("genre", b.Genre).
		Set("rating", b.Rating).
		Set("reading_state", string(b.ReadingState)).
		Set("cover_path", b.CoverPath).
		Where(sq.Eq{"id": b.ID})
}

func deleteBook(id int64, ph sq.PlaceholderFormat) sq.DeleteBuilder {
	return sq.StatementBuilder.PlaceholderFormat(ph).
		Delete(tableBooks).
		Where(sq.Eq{"id": id})
}
