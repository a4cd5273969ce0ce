package library

import (
	"context"
	"fmt"

	"booklibrary/internal/history"
)

// restore applies rec to the store in direction dir with exactly one call:
//
//	kind    undo              redo
//	add     Delete(book)      Save(book)
//	remove  Save(book)        Delete(book)
//	update  Update(previous)  Update(book)
//
// Save re-inserts under the snapshot's identifier, so later update records
// that reference it stay valid.
func (s *Service) restore(ctx context.Context, rec history.Record, dir history.Direction) error {
	op := fmt.Sprintf("%s %s", dir, rec.Kind())
	var err error
	switch kind := rec.Kind(); {
	case kind == history.KindAdd && dir == history.Undo,
		kind == history.KindRemove && dir == history.Redo:
		var matched bool
		matched, err = s.repo.Delete(ctx, rec.Book())
		if err == nil && !matched {
			s.log.WarnContext(ctx, "replayed delete matched no row", "op", op, "book_id", rec.Book().ID)
		}
	case kind == history.KindAdd && dir == history.Redo,
		kind == history.KindRemove && dir == history.Undo:
		_, err = s.repo.Save(ctx, rec.Book())
	case kind == history.KindUpdate:
		target := rec.Book()
		if dir == history.Undo {
			target, _ = rec.Previous()
		}
		var matched bool
		matched, err = s.repo.Update(ctx, target)
		if err == nil && !matched {
			s.log.WarnContext(ctx, "replayed update matched no row", "op", op, "book_id", target.ID)
		}
	default:
		return fmt.Errorf("cannot replay %s", op)
	}
	if err != nil {
		return storeErr(op, err)
	}
	return nil
}
