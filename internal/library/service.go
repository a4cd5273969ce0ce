// Package library sequences catalog mutations with the undo history and the
// change notifier.
package library

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"booklibrary/internal/book"
	"booklibrary/internal/history"
	"booklibrary/internal/notify"
)

// ErrStoreFailure wraps any error reported by the record store.
var ErrStoreFailure = errors.New("store failure")

// HistoryState summarises the undo and redo stacks.
type HistoryState struct {
	CanUndo   bool `json:"can_undo"`
	CanRedo   bool `json:"can_redo"`
	UndoDepth int  `json:"undo_depth"`
	RedoDepth int  `json:"redo_depth"`
}

type Option func(*Service)

// WithHistoryDepth bounds the undo stack; 0 keeps it unbounded.
func WithHistoryDepth(n int) Option {
	return func(s *Service) { s.depth = n }
}

func WithLogger(log *slog.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// WithNotifier shares an existing notifier instead of creating one.
func WithNotifier(n *notify.Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// WithMetrics records operation counters and registers m as a dependent.
func WithMetrics(m *Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// Service is the single writer over the catalog. Every mutation and replay
// runs under one mutex so the store, the history and the notification order
// agree. Dependents are signalled with that mutex held and must not call
// mutating methods from OnChanged.
type Service struct {
	mu       sync.Mutex
	repo     book.Repository
	history  *history.Custodian
	notifier *notify.Notifier
	metrics  *Metrics
	log      *slog.Logger
	depth    int
}

func NewService(repo book.Repository, opts ...Option) *Service {
	s := &Service{repo: repo, log: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	if s.notifier == nil {
		s.notifier = notify.New(s.log)
	}
	s.history = history.NewCustodian(
		history.WithMaxDepth(s.depth),
		history.WithRestorer(s.restore),
	)
	if s.metrics != nil {
		s.notifier.Register(s.metrics)
	}
	return s
}

// Add stores b and records the identified snapshot for undo.
func (s *Service) Add(ctx context.Context, b book.Book) (saved book.Book, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.metrics.track("add")(&err)

	saved, err = s.repo.Save(ctx, b)
	if err != nil {
		return book.Book{}, storeErr("add", err)
	}
	s.history.Save(history.NewAdd(saved))
	s.log.InfoContext(ctx, "book added", "op", "add", "book_id", saved.ID)
	s.changed(ctx)
	return saved, nil
}

// Update replaces previous with next. Both must carry the same identifier.
// Callers that hold no trusted previous snapshot should use UpdateByID.
func (s *Service) Update(ctx context.Context, previous, next book.Book) (err error) {
	if !previous.Persisted() || previous.ID != next.ID {
		return fmt.Errorf("%w: update needs matching persisted ids (previous %d, next %d)",
			book.ErrInvalidArgument, previous.ID, next.ID)
	}
	rec, err := history.NewUpdate(next, previous)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.metrics.track("update")(&err)
	return s.update(ctx, rec)
}

// UpdateByID replaces the stored row with next and returns the row it
// replaced. The previous snapshot is read under the writer lock, so
// concurrent updates each record the state they actually overwrote.
func (s *Service) UpdateByID(ctx context.Context, next book.Book) (previous book.Book, err error) {
	if !next.Persisted() {
		return book.Book{}, fmt.Errorf("%w: update needs a persisted book", book.ErrInvalidArgument)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.metrics.track("update")(&err)

	previous, err = s.load(ctx, next.ID)
	if err != nil {
		return book.Book{}, err
	}
	rec, err := history.NewUpdate(next, previous)
	if err != nil {
		return book.Book{}, err
	}
	if err = s.update(ctx, rec); err != nil {
		return book.Book{}, err
	}
	return previous, nil
}

// update applies rec and records it. s.mu must be held.
func (s *Service) update(ctx context.Context, rec history.Record) error {
	next := rec.Book()
	matched, err := s.repo.Update(ctx, next)
	if err != nil {
		return storeErr("update", err)
	}
	if !matched {
		s.log.WarnContext(ctx, "update matched no row", "op", "update", "book_id", next.ID)
	}
	s.history.Save(rec)
	s.log.InfoContext(ctx, "book updated", "op", "update", "book_id", next.ID)
	s.changed(ctx)
	return nil
}

// Remove deletes b and records the snapshot so undo can re-insert it. It
// returns book.ErrNotFound and records nothing when no row was deleted.
func (s *Service) Remove(ctx context.Context, b book.Book) (err error) {
	if !b.Persisted() {
		return fmt.Errorf("%w: remove needs a persisted book", book.ErrInvalidArgument)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.metrics.track("remove")(&err)
	return s.remove(ctx, b)
}

// RemoveByID deletes the stored row with id and returns the removed snapshot.
func (s *Service) RemoveByID(ctx context.Context, id int64) (removed book.Book, err error) {
	if id <= 0 {
		return book.Book{}, fmt.Errorf("%w: remove needs a persisted book", book.ErrInvalidArgument)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.metrics.track("remove")(&err)

	removed, err = s.load(ctx, id)
	if err != nil {
		return book.Book{}, err
	}
	if err = s.remove(ctx, removed); err != nil {
		return book.Book{}, err
	}
	return removed, nil
}

// remove deletes b and records it. s.mu must be held.
func (s *Service) remove(ctx context.Context, b book.Book) error {
	matched, err := s.repo.Delete(ctx, b)
	if err != nil {
		return storeErr("remove", err)
	}
	if !matched {
		return fmt.Errorf("%w: book %d", book.ErrNotFound, b.ID)
	}
	s.history.Save(history.NewRemove(b))
	s.log.InfoContext(ctx, "book removed", "op", "remove", "book_id", b.ID)
	s.changed(ctx)
	return nil
}

// Undo reverts the most recent mutation. It returns history.ErrEmptyHistory
// when there is nothing to undo.
func (s *Service) Undo(ctx context.Context) (history.Record, error) {
	return s.step(ctx, history.Undo)
}

// Redo reapplies the most recently undone mutation.
func (s *Service) Redo(ctx context.Context) (history.Record, error) {
	return s.step(ctx, history.Redo)
}

func (s *Service) step(ctx context.Context, dir history.Direction) (rec history.Record, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	op := dir.String()
	defer s.metrics.track(op)(&err)

	rec, err = s.history.Step(ctx, dir)
	if err != nil {
		if !errors.Is(err, history.ErrEmptyHistory) {
			s.log.ErrorContext(ctx, "replay failed", "op", op, "error", err)
		}
		return history.Record{}, err
	}
	s.log.InfoContext(ctx, "history replayed", "op", op,
		"kind", rec.Kind().String(), "book_id", rec.Book().ID)
	s.changed(ctx)
	return rec, nil
}

func (s *Service) CanUndo() bool { return s.history.CanUndo() }

func (s *Service) CanRedo() bool { return s.history.CanRedo() }

// ClearHistory drops both stacks and signals dependents.
func (s *Service) ClearHistory(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history.Clear()
	s.log.InfoContext(ctx, "history cleared", "op", "clear")
	s.changed(ctx)
}

func (s *Service) HistoryState() HistoryState {
	undo, redo := s.history.Depth()
	return HistoryState{
		CanUndo:   undo > 0,
		CanRedo:   redo > 0,
		UndoDepth: undo,
		RedoDepth: redo,
	}
}

// Get returns book.ErrNotFound unwrapped so callers can map it directly.
func (s *Service) Get(ctx context.Context, id int64) (book.Book, error) {
	return s.load(ctx, id)
}

func (s *Service) load(ctx context.Context, id int64) (book.Book, error) {
	b, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, book.ErrNotFound) {
			return book.Book{}, err
		}
		return book.Book{}, storeErr("get", err)
	}
	return b, nil
}

func (s *Service) List(ctx context.Context, q book.Query) ([]book.Book, error) {
	books, err := s.repo.List(ctx, q)
	if err != nil {
		return nil, storeErr("list", err)
	}
	return books, nil
}

func (s *Service) Ping(ctx context.Context) error {
	if err := s.repo.Ping(ctx); err != nil {
		return storeErr("ping", err)
	}
	return nil
}

func (s *Service) Subscribe(d notify.Dependent) { s.notifier.Register(d) }

func (s *Service) Unsubscribe(d notify.Dependent) { s.notifier.Unregister(d) }

// changed publishes depth metrics and signals dependents. A failing
// dependent is logged; the mutation has already been applied.
func (s *Service) changed(ctx context.Context) {
	s.metrics.setDepth(s.history.Depth())
	if err := s.notifier.NotifyAll(); err != nil {
		s.log.ErrorContext(ctx, "dependent notification failed", "error", err)
	}
}

func storeErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStoreFailure, op, err)
}
