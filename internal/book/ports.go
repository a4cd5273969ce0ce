package book

import (
	"context"
)

//go:generate mockgen -destination=mocks/mock_repository.go -package=mocks booklibrary/internal/book Repository

// Repository defines the contract for book data storage.
type Repository interface {
	// Save inserts b and returns it with its identifier. A b that already
	// carries an identifier is re-inserted under that identifier.
	Save(ctx context.Context, b Book) (Book, error)
	// Update overwrites the row with b's identifier. It reports false when
	// no row matched.
	Update(ctx context.Context, b Book) (bool, error)
	// Delete removes the row with b's identifier. It reports false when no
	// row matched; a missing row is not an error.
	Delete(ctx context.Context, b Book) (bool, error)
	Get(ctx context.Context, id int64) (Book, error)
	List(ctx context.Context, q Query) ([]Book, error)
	Ping(ctx context.Context) error
}
