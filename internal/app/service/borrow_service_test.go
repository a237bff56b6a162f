package service

import (
	"context"
	"testing"
	"time"

	"librarian/internal/common"
	"librarian/internal/domain/model"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type borrowFixture struct {
	svc     *BorrowService
	users   *fakeUserRepo
	books   *fakeBookRepo
	borrows *fakeBorrowRepo
}

func newBorrowFixture(t *testing.T) *borrowFixture {
	t.Helper()
	users := newFakeUserRepo()
	books := newFakeBookRepo()
	borrows := newFakeBorrowRepo(users, books)
	return &borrowFixture{
		svc:     NewBorrowService(borrows, books, nil, zerolog.Nop()),
		users:   users,
		books:   books,
		borrows: borrows,
	}
}

func (f *borrowFixture) addUser(t *testing.T, id, name string) {
	t.Helper()
	require.NoError(t, f.users.Create(context.Background(), &model.User{
		ID: id, Name: name, Email: name + "@example.com", Role: model.RoleMember,
	}))
}

func (f *borrowFixture) addBook(t *testing.T, id string, copies, total int) {
	t.Helper()
	require.NoError(t, f.books.Create(context.Background(), &model.Book{
		ID: id, Title: "Book " + id, Author: "Author", ISBN: "978316148410" + id[len(id)-1:],
		Genre: "Fiction", Copies: copies, TotalCopies: total,
	}))
}

func TestBorrowDecrementsCopiesAndCreatesActiveRecord(t *testing.T) {
	f := newBorrowFixture(t)
	ctx := context.Background()
	f.addUser(t, "u1", "alice")
	f.addBook(t, "b1", 2, 3)

	record, err := f.svc.Borrow(ctx, "u1", "b1")
	require.NoError(t, err)

	assert.True(t, record.Active())
	assert.Equal(t, "u1", record.UserID)
	assert.Equal(t, "b1", record.BookID)
	assert.False(t, record.BorrowDate.IsZero())
	require.NotNil(t, record.Book)
	assert.Equal(t, "Book b1", record.Book.Title)

	book, err := f.books.FindByID(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, 1, book.Copies)
}

func TestBorrowUnknownBookNotFound(t *testing.T) {
	f := newBorrowFixture(t)
	f.addUser(t, "u1", "alice")

	_, err := f.svc.Borrow(context.Background(), "u1", "missing")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestBorrowLastCopyThenNoCopiesAvailable(t *testing.T) {
	f := newBorrowFixture(t)
	ctx := context.Background()
	f.addUser(t, "u1", "alice")
	f.addUser(t, "u2", "bob")
	f.addBook(t, "b1", 1, 3)

	_, err := f.svc.Borrow(ctx, "u1", "b1")
	require.NoError(t, err)

	book, err := f.books.FindByID(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, 0, book.Copies)

	_, err = f.svc.Borrow(ctx, "u2", "b1")
	assert.ErrorIs(t, err, common.ErrBadRequest)
	assert.EqualError(t, err, "No copies available")
}

func TestBorrowSameBookTwiceConflictsAndRestoresCopy(t *testing.T) {
	f := newBorrowFixture(t)
	ctx := context.Background()
	f.addUser(t, "u1", "alice")
	f.addBook(t, "b1", 2, 2)

	_, err := f.svc.Borrow(ctx, "u1", "b1")
	require.NoError(t, err)

	_, err = f.svc.Borrow(ctx, "u1", "b1")
	assert.ErrorIs(t, err, common.ErrConflict)

	// The copy taken by the rejected second borrow went back on the shelf.
	book, err := f.books.FindByID(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, 1, book.Copies)
}

func TestReturnRoundTripRestoresCopies(t *testing.T) {
	f := newBorrowFixture(t)
	ctx := context.Background()
	f.addUser(t, "u1", "alice")
	f.addBook(t, "b1", 2, 3)

	_, err := f.svc.Borrow(ctx, "u1", "b1")
	require.NoError(t, err)

	record, err := f.svc.Return(ctx, "u1", "b1")
	require.NoError(t, err)

	assert.False(t, record.Active())
	require.NotNil(t, record.ReturnDate)
	assert.False(t, record.BorrowDate.IsZero())

	book, err := f.books.FindByID(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, 2, book.Copies)

	history, err := f.svc.History(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.NotNil(t, history[0].ReturnDate)
}

func TestReturnTwiceFailsNotFound(t *testing.T) {
	f := newBorrowFixture(t)
	ctx := context.Background()
	f.addUser(t, "u1", "alice")
	f.addBook(t, "b1", 1, 1)

	_, err := f.svc.Borrow(ctx, "u1", "b1")
	require.NoError(t, err)

	_, err = f.svc.Return(ctx, "u1", "b1")
	require.NoError(t, err)

	_, err = f.svc.Return(ctx, "u1", "b1")
	assert.ErrorIs(t, err, common.ErrNotFound)
	assert.EqualError(t, err, "No active borrow found")

	// The failed second return must not push copies above the total.
	book, err := f.books.FindByID(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, 1, book.Copies)
}

func TestReturnWithoutBorrowNotFound(t *testing.T) {
	f := newBorrowFixture(t)
	f.addUser(t, "u1", "alice")
	f.addBook(t, "b1", 1, 1)

	_, err := f.svc.Return(context.Background(), "u1", "b1")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestCopiesStayWithinBoundsAcrossCycles(t *testing.T) {
	f := newBorrowFixture(t)
	ctx := context.Background()
	f.addUser(t, "u1", "alice")
	f.addBook(t, "b1", 1, 3)

	for i := 0; i < 5; i++ {
		_, err := f.svc.Borrow(ctx, "u1", "b1")
		require.NoError(t, err)
		book, err := f.books.FindByID(ctx, "b1")
		require.NoError(t, err)
		assert.GreaterOrEqual(t, book.Copies, 0)
		assert.LessOrEqual(t, book.Copies, book.TotalCopies)

		_, err = f.svc.Return(ctx, "u1", "b1")
		require.NoError(t, err)
		book, err = f.books.FindByID(ctx, "b1")
		require.NoError(t, err)
		assert.GreaterOrEqual(t, book.Copies, 0)
		assert.LessOrEqual(t, book.Copies, book.TotalCopies)
	}

	book, err := f.books.FindByID(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, 1, book.Copies)
}

func TestHistoryContainsAllRecordsForUser(t *testing.T) {
	f := newBorrowFixture(t)
	ctx := context.Background()
	f.addUser(t, "u1", "alice")
	f.addUser(t, "u2", "bob")
	f.addBook(t, "b1", 3, 3)
	f.addBook(t, "b2", 3, 3)

	_, err := f.svc.Borrow(ctx, "u1", "b1")
	require.NoError(t, err)
	_, err = f.svc.Borrow(ctx, "u1", "b2")
	require.NoError(t, err)
	_, err = f.svc.Return(ctx, "u1", "b1")
	require.NoError(t, err)
	_, err = f.svc.Borrow(ctx, "u2", "b1")
	require.NoError(t, err)

	history, err := f.svc.History(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, history, 2)

	seen := map[string]bool{}
	for _, rec := range history {
		seen[rec.BookID] = true
		require.NotNil(t, rec.Book)
	}
	assert.True(t, seen["b1"])
	assert.True(t, seen["b2"])
}

func TestActiveBookIDsOnlyListsUnreturned(t *testing.T) {
	f := newBorrowFixture(t)
	ctx := context.Background()
	f.addUser(t, "u1", "alice")
	f.addBook(t, "b1", 3, 3)
	f.addBook(t, "b2", 3, 3)

	_, err := f.svc.Borrow(ctx, "u1", "b1")
	require.NoError(t, err)
	_, err = f.svc.Borrow(ctx, "u1", "b2")
	require.NoError(t, err)
	_, err = f.svc.Return(ctx, "u1", "b1")
	require.NoError(t, err)

	ids, err := f.svc.ActiveBookIDs(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"b2"}, ids)
}

func TestAtMostOneActiveRecordPerUserAndBook(t *testing.T) {
	f := newBorrowFixture(t)
	ctx := context.Background()
	f.addUser(t, "u1", "alice")
	f.addBook(t, "b1", 3, 3)

	// Borrow, return, borrow again: allowed, but never two active at once.
	_, err := f.svc.Borrow(ctx, "u1", "b1")
	require.NoError(t, err)
	_, err = f.svc.Return(ctx, "u1", "b1")
	require.NoError(t, err)
	_, err = f.svc.Borrow(ctx, "u1", "b1")
	require.NoError(t, err)

	active := 0
	for _, rec := range f.borrows.records {
		if rec.UserID == "u1" && rec.BookID == "b1" && rec.ReturnDate == nil {
			active++
		}
	}
	assert.Equal(t, 1, active)

	history, err := f.svc.History(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestReturnedRecordKeepsBothDates(t *testing.T) {
	f := newBorrowFixture(t)
	ctx := context.Background()
	f.addUser(t, "u1", "alice")
	f.addBook(t, "b1", 1, 1)

	before := time.Now().Add(-time.Second)
	_, err := f.svc.Borrow(ctx, "u1", "b1")
	require.NoError(t, err)

	record, err := f.svc.Return(ctx, "u1", "b1")
	require.NoError(t, err)

	assert.True(t, record.BorrowDate.After(before))
	require.NotNil(t, record.ReturnDate)
	assert.False(t, record.ReturnDate.Before(record.BorrowDate))
}
