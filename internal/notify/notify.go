// Package notify fans a change signal out to registered dependents.
package notify

import (
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"slices"
	"sync"
	"sync/atomic"
)

// ErrDependentPanic wraps a panic recovered from a dependent's OnChanged.
var ErrDependentPanic = errors.New("dependent panicked")

// Dependent receives a signal after the catalog changed. Implementations
// must be comparable; pointer receivers are the usual choice.
type Dependent interface {
	OnChanged()
}

// NoOp ignores every signal.
type NoOp struct{}

func (*NoOp) OnChanged() {}

// Notifier is a registry of dependents. Registration changes publish a new
// slice, so NotifyAll always walks a stable snapshot and dependents may
// register or unregister from inside OnChanged.
type Notifier struct {
	mu   sync.Mutex
	deps atomic.Pointer[[]Dependent]
	log  *slog.Logger
}

func New(log *slog.Logger) *Notifier {
	if log == nil {
		log = slog.Default()
	}
	n := &Notifier{log: log}
	empty := []Dependent{}
	n.deps.Store(&empty)
	return n
}

func (n *Notifier) snapshot() []Dependent {
	return *n.deps.Load()
}

// Register adds d. Registering a dependent twice is a no-op. A dependent
// whose dynamic type is not comparable, such as a func or slice adapter,
// cannot be told apart from others and is refused with a warning.
func (n *Notifier) Register(d Dependent) {
	if d == nil {
		return
	}
	if !isComparable(d) {
		n.log.Warn("dependent refused: type is not comparable", "type", fmt.Sprintf("%T", d))
		return
	}
	n.mu.Lock()
	defer n.mu.Unlock()

	cur := n.snapshot()
	if slices.Contains(cur, d) {
		return
	}
	next := make([]Dependent, len(cur), len(cur)+1)
	copy(next, cur)
	next = append(next, d)
	n.deps.Store(&next)
}

// Unregister removes d. Removing a dependent that is not registered is a no-op.
func (n *Notifier) Unregister(d Dependent) {
	if d == nil || !isComparable(d) {
		return
	}
	n.mu.Lock()
	defer n.mu.Unlock()

	cur := n.snapshot()
	i := slices.Index(cur, d)
	if i < 0 {
		return
	}
	next := slices.Delete(slices.Clone(cur), i, i+1)
	n.deps.Store(&next)
}

func isComparable(d Dependent) bool {
	return reflect.TypeOf(d).Comparable()
}

// Len reports the number of registered dependents.
func (n *Notifier) Len() int {
	return len(n.snapshot())
}

// NotifyAll signals every dependent once, in registration order. A panic in
// one dependent is recovered and logged; the remaining dependents are still
// signalled and the panics come back joined.
func (n *Notifier) NotifyAll() error {
	var errs []error
	for _, d := range n.snapshot() {
		if err := n.signal(d); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (n *Notifier) signal(d Dependent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %T: %v", ErrDependentPanic, d, r)
			n.log.Error("dependent panicked", "dependent", fmt.Sprintf("%T", d), "panic", r)
		}
	}()
	d.OnChanged()
	return nil
}
