package notify

import (
	"sync"
	"sync/atomic"
	"testing"

	"booklibrary/internal/platform/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	name string
	log  *[]string
}

func (r *recorder) OnChanged() { *r.log = append(*r.log, r.name) }

type counter struct{ n atomic.Int64 }

func (c *counter) OnChanged() { c.n.Add(1) }

type panicker struct{}

func (*panicker) OnChanged() { panic("boom") }

func TestNotifyAll_RegistrationOrder(t *testing.T) {
	var got []string
	n := New(logger.Discard())
	n.Register(&recorder{name: "first", log: &got})
	n.Register(&recorder{name: "second", log: &got})

	require.NoError(t, n.NotifyAll())
	assert.Equal(t, []string{"first", "second"}, got)
}

func TestRegister_Duplicate(t *testing.T) {
	n := New(logger.Discard())
	c := &counter{}
	n.Register(c)
	n.Register(c)

	require.NoError(t, n.NotifyAll())
	assert.Equal(t, int64(1), c.n.Load())
	assert.Equal(t, 1, n.Len())
}

func TestRegister_Nil(t *testing.T) {
	n := New(logger.Discard())
	n.Register(nil)
	assert.Zero(t, n.Len())
}

type changeFunc func()

func (f changeFunc) OnChanged() { f() }

func TestRegister_NotComparableIsRefused(t *testing.T) {
	n := New(logger.Discard())
	var called bool
	fn := changeFunc(func() { called = true })

	assert.NotPanics(t, func() {
		n.Register(fn)
		n.Register(fn)
		n.Unregister(fn)
	})
	assert.Zero(t, n.Len())
	require.NoError(t, n.NotifyAll())
	assert.False(t, called)
}

func TestUnregister(t *testing.T) {
	n := New(logger.Discard())
	a, b := &counter{}, &counter{}
	n.Register(a)
	n.Register(b)

	n.Unregister(a)
	n.Unregister(&counter{})
	require.NoError(t, n.NotifyAll())

	assert.Zero(t, a.n.Load())
	assert.Equal(t, int64(1), b.n.Load())
	assert.Equal(t, 1, n.Len())
}

func TestNotifyAll_NoDependents(t *testing.T) {
	assert.NoError(t, New(nil).NotifyAll())
}

func TestNotifyAll_PanicDoesNotStopOthers(t *testing.T) {
	n := New(logger.Discard())
	before, after := &counter{}, &counter{}
	n.Register(before)
	n.Register(&panicker{})
	n.Register(after)

	err := n.NotifyAll()
	assert.ErrorIs(t, err, ErrDependentPanic)
	assert.Equal(t, int64(1), before.n.Load())
	assert.Equal(t, int64(1), after.n.Load())
}

type selfRemover struct {
	n     *Notifier
	calls int
}

func (s *selfRemover) OnChanged() {
	s.calls++
	s.n.Unregister(s)
}

func TestNotifyAll_UnregisterFromCallback(t *testing.T) {
	n := New(logger.Discard())
	s := &selfRemover{n: n}
	tail := &counter{}
	n.Register(s)
	n.Register(tail)

	require.NoError(t, n.NotifyAll())
	require.NoError(t, n.NotifyAll())

	assert.Equal(t, 1, s.calls)
	assert.Equal(t, int64(2), tail.n.Load())
}

func TestNotifier_ConcurrentRegistration(t *testing.T) {
	n := New(logger.Discard())
	stable := &counter{}
	n.Register(stable)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c := &counter{}
				n.Register(c)
				n.Unregister(c)
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = n.NotifyAll()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(800), stable.n.Load())
	assert.Equal(t, 1, n.Len())
}
