package catalogview

import (
	"context"
	"errors"
	"testing"

	"booklibrary/internal/book"
	"booklibrary/internal/notify"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockSource struct {
	mock.Mock
	deps []notify.Dependent
}

func (m *mockSource) List(ctx context.Context, q book.Query) ([]book.Book, error) {
	args := m.Called(ctx, q)
	books, _ := args.Get(0).([]book.Book)
	return books, args.Error(1)
}

func (m *mockSource) CanUndo() bool { return m.Called().Bool(0) }

func (m *mockSource) CanRedo() bool { return m.Called().Bool(0) }

func (m *mockSource) Subscribe(d notify.Dependent) { m.deps = append(m.deps, d) }

func (m *mockSource) Unsubscribe(d notify.Dependent) {
	for i, x := range m.deps {
		if x == d {
			m.deps = append(m.deps[:i], m.deps[i+1:]...)
			return
		}
	}
}

var (
	dune    = book.MustNew(book.Fields{ID: 1, Title: "Dune", Author: "Frank Herbert", Rating: 5})
	solaris = book.MustNew(book.Fields{ID: 2, Title: "Solaris", Author: "Stanisław Lem", Rating: 4})
)

func TestView_LoadsOnceUntilChanged(t *testing.T) {
	src := &mockSource{}
	src.On("List", mock.Anything, book.Query{Sort: book.SortTitleAsc}).Return([]book.Book{dune}, nil).Once()
	src.On("CanUndo").Return(true)
	src.On("CanRedo").Return(false)

	v := New(src, book.SortTitleAsc)
	require.Len(t, src.deps, 1)

	snap, err := v.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []book.Book{dune}, snap.Books)
	assert.True(t, snap.CanUndo)
	assert.False(t, snap.CanRedo)

	_, err = v.Snapshot(context.Background())
	require.NoError(t, err)
	src.AssertNumberOfCalls(t, "List", 1)

	src.On("List", mock.Anything, book.Query{Sort: book.SortTitleAsc}).Return([]book.Book{dune, solaris}, nil).Once()
	v.OnChanged()
	snap, err = v.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Len(t, snap.Books, 2)
	assert.Equal(t, uint64(1), snap.Revision)
	src.AssertExpectations(t)
}

func TestView_SetSortMarksStale(t *testing.T) {
	src := &mockSource{}
	src.On("List", mock.Anything, book.Query{Sort: book.SortNone}).Return([]book.Book{dune, solaris}, nil).Once()
	src.On("List", mock.Anything, book.Query{Sort: book.SortRatingAsc}).Return([]book.Book{solaris, dune}, nil).Once()
	src.On("CanUndo").Return(false)
	src.On("CanRedo").Return(false)

	v := New(src, book.SortNone)
	_, err := v.Snapshot(context.Background())
	require.NoError(t, err)

	v.SetSort(book.SortRatingAsc)
	snap, err := v.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []book.Book{solaris, dune}, snap.Books)
	assert.Equal(t, book.SortRatingAsc, snap.Sort)
	src.AssertExpectations(t)
}

func TestView_ErrorKeepsStale(t *testing.T) {
	src := &mockSource{}
	src.On("List", mock.Anything, mock.Anything).Return(nil, errors.New("db gone")).Once()
	src.On("List", mock.Anything, mock.Anything).Return([]book.Book{dune}, nil).Once()
	src.On("CanUndo").Return(false)
	src.On("CanRedo").Return(false)

	v := New(src, book.SortNone)
	_, err := v.Snapshot(context.Background())
	assert.Error(t, err)

	snap, err := v.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []book.Book{dune}, snap.Books)
}

func TestView_Close(t *testing.T) {
	src := &mockSource{}
	v := New(src, book.SortNone)
	v.Close()
	assert.Empty(t, src.deps)
}
