package book

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned when a book is not found.
	ErrNotFound = errors.New("book not found")
	// ErrInvalidArgument is returned for malformed books and change records.
	ErrInvalidArgument = errors.New("invalid argument")
)

const (
	MinRating = 0
	MaxRating = 5
)

// ReadingState is one of a closed set of reading progress values.
type ReadingState string

const (
	StateRead    ReadingState = "read"
	StateReading ReadingState = "reading"
	StateToRead  ReadingState = "to-read"
)

// ParseReadingState matches s case-insensitively against the closed set.
func ParseReadingState(s string) (ReadingState, error) {
	switch ReadingState(strings.ToLower(strings.TrimSpace(s))) {
	case StateRead:
		return StateRead, nil
	case StateReading:
		return StateReading, nil
	case StateToRead:
		return StateToRead, nil
	default:
		return "", fmt.Errorf("%w: reading state %q", ErrInvalidArgument, s)
	}
}

// NormalizeReadingState falls back to StateToRead for anything outside the set.
func NormalizeReadingState(s string) ReadingState {
	state, err := ParseReadingState(s)
	if err != nil {
		return StateToRead
	}
	return state
}

// Fields is the input for New.
type Fields struct {
	ID           int64
	Title        string
	Author       string
	ISBN         string
	Genre        string
	Rating       int
	ReadingState string
	CoverPath    string
}

// Book is a point-in-time snapshot of a catalog record. A Book is a value:
// copies never alias, so a snapshot held in history cannot change under it.
type Book struct {
	ID           int64        `json:"id" db:"id"`
	Title        string       `json:"title" db:"title"`
	Author       string       `json:"author" db:"author"`
	ISBN         string       `json:"isbn" db:"isbn"`
	Genre        string       `json:"genre" db:"genre"`
	Rating       int          `json:"rating" db:"rating"`
	ReadingState ReadingState `json:"reading_state" db:"reading_state"`
	CoverPath    string       `json:"cover_path" db:"cover_path"`
}

// New validates f and builds a Book. An unknown reading state is coerced to
// StateToRead rather than rejected; callers wanting strictness use
// ParseReadingState first.
func New(f Fields) (Book, error) {
	if strings.TrimSpace(f.Title) == "" {
		return Book{}, fmt.Errorf("%w: title is required", ErrInvalidArgument)
	}
	if strings.TrimSpace(f.Author) == "" {
		return Book{}, fmt.Errorf("%w: author is required", ErrInvalidArgument)
	}
	if f.Rating < MinRating || f.Rating > MaxRating {
		return Book{}, fmt.Errorf("%w: rating must be between %d and %d, got %d", ErrInvalidArgument, MinRating, MaxRating, f.Rating)
	}
	if f.ID < 0 {
		return Book{}, fmt.Errorf("%w: negative id %d", ErrInvalidArgument, f.ID)
	}
	return Book{
		ID:           f.ID,
		Title:        f.Title,
		Author:       f.Author,
		ISBN:         f.ISBN,
		Genre:        f.Genre,
		Rating:       f.Rating,
		ReadingState: NormalizeReadingState(f.ReadingState),
		CoverPath:    f.CoverPath,
	}, nil
}

// MustNew is New for fixtures; it panics on invalid input.
func MustNew(f Fields) Book {
	b, err := New(f)
	if err != nil {
		panic(err)
	}
	return b
}

// WithID returns a copy carrying the store-assigned identifier. The
// identifier can be set once; reassigning a different one fails.
func (b Book) WithID(id int64) (Book, error) {
	if id <= 0 {
		return Book{}, fmt.Errorf("%w: id must be positive, got %d", ErrInvalidArgument, id)
	}
	if b.ID != 0 && b.ID != id {
		return Book{}, fmt.Errorf("%w: id already assigned (%d), cannot set %d", ErrInvalidArgument, b.ID, id)
	}
	b.ID = id
	return b, nil
}

// Persisted reports whether the store has assigned an identifier.
func (b Book) Persisted() bool {
	return b.ID > 0
}

// Fields returns the editable field set, for building an updated snapshot.
func (b Book) Fields() Fields {
	return Fields{
		ID:           b.ID,
		Title:        b.Title,
		Author:       b.Author,
		ISBN:         b.ISBN,
		Genre:        b.Genre,
		Rating:       b.Rating,
		ReadingState: string(b.ReadingState),
		CoverPath:    b.CoverPath,
	}
}

func (b Book) String() string {
	return fmt.Sprintf("Book{id=%d title=%q author=%q}", b.ID, b.Title, b.Author)
}
