package history

import (
	"fmt"

	"booklibrary/internal/book"
)

// Kind is the mutation a Record captures.
type Kind int

const (
	KindAdd Kind = iota + 1
	KindUpdate
	KindRemove
)

func (k Kind) String() string {
	switch k {
	case KindAdd:
		return "add"
	case KindUpdate:
		return "update"
	case KindRemove:
		return "remove"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Record is a memento of one mutation: the kind plus the snapshots needed to
// invert or replay it. Records are comparable values; == is value equality.
type Record struct {
	kind        Kind
	book        book.Book
	previous    book.Book
	hasPrevious bool
}

// New builds a Record. previous must be set for KindUpdate and nil for
// KindAdd and KindRemove.
func New(kind Kind, primary book.Book, previous *book.Book) (Record, error) {
	switch kind {
	case KindAdd, KindRemove:
		if previous != nil {
			return Record{}, fmt.Errorf("%w: %s record takes no previous snapshot", book.ErrInvalidArgument, kind)
		}
		return Record{kind: kind, book: primary}, nil
	case KindUpdate:
		if previous == nil {
			return Record{}, fmt.Errorf("%w: update record requires a previous snapshot", book.ErrInvalidArgument)
		}
		if primary.ID != 0 && previous.ID != 0 && primary.ID != previous.ID {
			return Record{}, fmt.Errorf("%w: update snapshots refer to different books (%d, %d)", book.ErrInvalidArgument, previous.ID, primary.ID)
		}
		return Record{kind: kind, book: primary, previous: *previous, hasPrevious: true}, nil
	default:
		return Record{}, fmt.Errorf("%w: unknown record kind %d", book.ErrInvalidArgument, int(kind))
	}
}

// NewAdd records that b was added.
func NewAdd(b book.Book) Record {
	return Record{kind: KindAdd, book: b}
}

// NewRemove records that b was removed.
func NewRemove(b book.Book) Record {
	return Record{kind: KindRemove, book: b}
}

// NewUpdate records that previous was replaced by next.
func NewUpdate(next, previous book.Book) (Record, error) {
	return New(KindUpdate, next, &previous)
}

func (r Record) Kind() Kind { return r.kind }

// Book is the subject of the record: the added or removed book, or the
// post-update state.
func (r Record) Book() book.Book { return r.book }

// Previous is the pre-update state; ok is false for non-update records.
func (r Record) Previous() (prev book.Book, ok bool) {
	return r.previous, r.hasPrevious
}

func (r Record) String() string {
	if r.hasPrevious {
		return fmt.Sprintf("%s(%s <- %s)", r.kind, r.book, r.previous)
	}
	return fmt.Sprintf("%s(%s)", r.kind, r.book)
}
