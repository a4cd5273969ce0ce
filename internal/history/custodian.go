// Package history keeps the undo and redo stacks of change records.
package history

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrEmptyHistory is returned by Undo, Redo and Step when the requested
// stack has nothing to pop.
var ErrEmptyHistory = errors.New("history is empty")

// Direction selects which stack a Step pops from.
type Direction int

const (
	Undo Direction = iota + 1
	Redo
)

func (d Direction) String() string {
	switch d {
	case Undo:
		return "undo"
	case Redo:
		return "redo"
	default:
		return fmt.Sprintf("direction(%d)", int(d))
	}
}

// RestoreFunc applies a popped record to the outside world. It is called
// with the custodian lock held and must not call back into the Custodian.
type RestoreFunc func(ctx context.Context, rec Record, dir Direction) error

// Option configures a Custodian.
type Option func(*Custodian)

// WithMaxDepth bounds the undo stack. The oldest record is dropped when a
// save would exceed n. Zero or a negative n means unbounded.
func WithMaxDepth(n int) Option {
	return func(c *Custodian) {
		if n < 0 {
			n = 0
		}
		c.maxDepth = n
	}
}

// WithRestorer injects the strategy Step uses to apply records.
func WithRestorer(fn RestoreFunc) Option {
	return func(c *Custodian) { c.restore = fn }
}

// Custodian holds two stacks of records, most recent last in the slice.
// Saving a new record invalidates the redo stack.
type Custodian struct {
	mu       sync.Mutex
	undo     []Record
	redo     []Record
	maxDepth int
	restore  RestoreFunc
}

func NewCustodian(opts ...Option) *Custodian {
	c := &Custodian{}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Save pushes rec onto the undo stack and discards any redo entries.
func (c *Custodian) Save(rec Record) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.undo = append(c.undo, rec)
	if c.maxDepth > 0 && len(c.undo) > c.maxDepth {
		kept := copy(c.undo, c.undo[len(c.undo)-c.maxDepth:])
		clear(c.undo[kept:])
		c.undo = c.undo[:kept]
	}
	clear(c.redo)
	c.redo = c.redo[:0]
}

func (c *Custodian) CanUndo() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.undo) > 0
}

func (c *Custodian) CanRedo() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.redo) > 0
}

// Depth reports the sizes of both stacks.
func (c *Custodian) Depth() (undo, redo int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.undo), len(c.redo)
}

// Undo moves the most recent undo record onto the redo stack and returns it.
func (c *Custodian) Undo() (Record, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.move(Undo)
}

// Redo moves the most recent redo record back onto the undo stack and
// returns it.
func (c *Custodian) Redo() (Record, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.move(Redo)
}

// Clear empties both stacks.
func (c *Custodian) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.undo = nil
	c.redo = nil
}

// Step pops a record in direction dir and hands it to the configured
// RestoreFunc. When the restorer fails the record goes back to the stack it
// came from and the error is returned unchanged.
func (c *Custodian) Step(ctx context.Context, dir Direction) (Record, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	rec, err := c.move(dir)
	if err != nil {
		return Record{}, err
	}
	if c.restore == nil {
		return rec, nil
	}
	if err := c.restore(ctx, rec, dir); err != nil {
		c.rollback(dir)
		return Record{}, err
	}
	return rec, nil
}

// move pops from the source stack of dir and pushes onto the other.
func (c *Custodian) move(dir Direction) (Record, error) {
	from, to := &c.undo, &c.redo
	switch dir {
	case Undo:
	case Redo:
		from, to = &c.redo, &c.undo
	default:
		return Record{}, fmt.Errorf("unknown direction %d", int(dir))
	}

	n := len(*from)
	if n == 0 {
		return Record{}, ErrEmptyHistory
	}
	rec := (*from)[n-1]
	(*from)[n-1] = Record{}
	*from = (*from)[:n-1]
	*to = append(*to, rec)
	return rec, nil
}

// rollback reverses the last move in direction dir.
func (c *Custodian) rollback(dir Direction) {
	switch dir {
	case Undo:
		_, _ = c.move(Redo)
	case Redo:
		_, _ = c.move(Undo)
	}
}
