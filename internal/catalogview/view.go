// Package catalogview caches a sorted listing of the catalog and refreshes
// it lazily after change signals.
package catalogview

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"

	"booklibrary/internal/book"
	"booklibrary/internal/notify"
)

// Source is what the view reads from and subscribes to.
type Source interface {
	List(ctx context.Context, q book.Query) ([]book.Book, error)
	CanUndo() bool
	CanRedo() bool
	Subscribe(d notify.Dependent)
	Unsubscribe(d notify.Dependent)
}

// Snapshot is the state a list panel renders.
type Snapshot struct {
	Books    []book.Book        `json:"books"`
	Sort     book.SortCriterion `json:"sort"`
	CanUndo  bool               `json:"can_undo"`
	CanRedo  bool               `json:"can_redo"`
	Revision uint64             `json:"revision"`
}

// View is a notify.Dependent. OnChanged only marks the cache stale; the
// reload happens on the next Snapshot call.
type View struct {
	src      Source
	revision atomic.Uint64
	stale    atomic.Bool

	mu     sync.Mutex
	sort   book.SortCriterion
	books  []book.Book
	loaded uint64
}

func New(src Source, sort book.SortCriterion) *View {
	v := &View{src: src, sort: sort}
	v.stale.Store(true)
	src.Subscribe(v)
	return v
}

func (v *View) OnChanged() {
	v.revision.Add(1)
	v.stale.Store(true)
}

// Revision counts change signals seen so far.
func (v *View) Revision() uint64 {
	return v.revision.Load()
}

func (v *View) SetSort(sort book.SortCriterion) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.sort != sort {
		v.sort = sort
		v.stale.Store(true)
	}
}

// Snapshot returns the cached listing, reloading it first when stale.
func (v *View) Snapshot(ctx context.Context) (Snapshot, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.stale.Load() {
		rev := v.revision.Load()
		v.stale.Store(false)
		books, err := v.src.List(ctx, book.Query{Sort: v.sort})
		if err != nil {
			v.stale.Store(true)
			return Snapshot{}, fmt.Errorf("refresh catalog view: %w", err)
		}
		v.books = books
		v.loaded = rev
	}

	return Snapshot{
		Books:    slices.Clone(v.books),
		Sort:     v.sort,
		CanUndo:  v.src.CanUndo(),
		CanRedo:  v.src.CanRedo(),
		Revision: v.loaded,
	}, nil
}

// Close stops the view from receiving change signals.
func (v *View) Close() {
	v.src.Unsubscribe(v)
}
