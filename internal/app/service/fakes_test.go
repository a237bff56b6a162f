package service

import (
	"context"
	"sort"
	"time"

	"librarian/internal/common"
	"librarian/internal/domain/model"
	"librarian/internal/domain/repository"
)

// In-memory repository fakes mirroring the conditional-update semantics of
// the Postgres implementations.

func userFor(id string) *model.User {
	return &model.User{ID: id, Name: id, Email: id + "@example.com", Role: model.RoleMember}
}

type fakeUserRepo struct {
	users map[string]*model.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[string]*model.User{}}
}

var _ repository.UserRepository = (*fakeUserRepo)(nil)

func (r *fakeUserRepo) Create(_ context.Context, user *model.User) error {
	for _, u := range r.users {
		if u.Email == user.Email {
			return common.NewError(common.ErrConflict, "Email already in use")
		}
	}
	clone := *user
	r.users[user.ID] = &clone
	return nil
}

func (r *fakeUserRepo) FindByID(_ context.Context, id string) (*model.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	clone := *u
	return &clone, nil
}

func (r *fakeUserRepo) FindByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range r.users {
		if u.Email == email {
			clone := *u
			return &clone, nil
		}
	}
	return nil, common.ErrNotFound
}

func (r *fakeUserRepo) FindByRefreshToken(_ context.Context, token string) (*model.User, error) {
	for _, u := range r.users {
		if u.RefreshToken != nil && *u.RefreshToken == token {
			clone := *u
			return &clone, nil
		}
	}
	return nil, common.ErrNotFound
}

func (r *fakeUserRepo) SetRefreshToken(_ context.Context, userID, token string) error {
	u, ok := r.users[userID]
	if !ok {
		return common.ErrNotFound
	}
	u.RefreshToken = &token
	return nil
}

func (r *fakeUserRepo) SwapRefreshToken(_ context.Context, userID, oldToken, newToken string) error {
	u, ok := r.users[userID]
	if !ok || u.RefreshToken == nil || *u.RefreshToken != oldToken {
		return common.NewError(common.ErrUnauthorized, "Invalid refresh token")
	}
	u.RefreshToken = &newToken
	return nil
}

func (r *fakeUserRepo) ClearRefreshToken(_ context.Context, userID string) error {
	u, ok := r.users[userID]
	if !ok {
		return common.ErrNotFound
	}
	u.RefreshToken = nil
	return nil
}

type fakeBookRepo struct {
	books map[string]*model.Book
}

func newFakeBookRepo() *fakeBookRepo {
	return &fakeBookRepo{books: map[string]*model.Book{}}
}

var _ repository.BookRepository = (*fakeBookRepo)(nil)

func (r *fakeBookRepo) Create(_ context.Context, book *model.Book) error {
	for _, b := range r.books {
		if b.ISBN == book.ISBN {
			return common.NewError(common.ErrConflict, "Book with this ISBN already exists")
		}
	}
	clone := *book
	r.books[book.ID] = &clone
	return nil
}

func (r *fakeBookRepo) Update(_ context.Context, book *model.Book) error {
	if _, ok := r.books[book.ID]; !ok {
		return common.NewError(common.ErrNotFound, "Book not found")
	}
	clone := *book
	r.books[book.ID] = &clone
	return nil
}

func (r *fakeBookRepo) Delete(_ context.Context, id string) error {
	if _, ok := r.books[id]; !ok {
		return common.NewError(common.ErrNotFound, "Book not found")
	}
	delete(r.books, id)
	return nil
}

func (r *fakeBookRepo) FindByID(_ context.Context, id string) (*model.Book, error) {
	b, ok := r.books[id]
	if !ok {
		return nil, common.NewError(common.ErrNotFound, "Book not found")
	}
	clone := *b
	return &clone, nil
}

func (r *fakeBookRepo) List(_ context.Context, page, limit int, search, genre string) ([]model.Book, int, error) {
	books := []model.Book{}
	for _, b := range r.books {
		if genre != "" && b.Genre != genre {
			continue
		}
		books = append(books, *b)
	}
	sort.Slice(books, func(i, j int) bool { return books[i].CreatedAt.After(books[j].CreatedAt) })
	total := len(books)
	start := (page - 1) * limit
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}
	return books[start:end], total, nil
}

func (r *fakeBookRepo) DecrementCopies(_ context.Context, id string) error {
	b, ok := r.books[id]
	if !ok || b.Copies <= 0 {
		return common.NewError(common.ErrBadRequest, "No copies available")
	}
	b.Copies--
	return nil
}

func (r *fakeBookRepo) IncrementCopies(_ context.Context, id string) error {
	b, ok := r.books[id]
	if ok && b.Copies < b.TotalCopies {
		b.Copies++
	}
	return nil
}

func (r *fakeBookRepo) AvailabilitySummary(_ context.Context) (*model.AvailabilitySummary, error) {
	summary := &model.AvailabilitySummary{}
	for _, b := range r.books {
		summary.TotalBooks += b.TotalCopies
		summary.AvailableBooks += b.Copies
	}
	summary.BorrowedBooks = summary.TotalBooks - summary.AvailableBooks
	return summary, nil
}

type fakeBorrowRepo struct {
	records map[string]*model.BorrowRecord
	users   *fakeUserRepo
	books   *fakeBookRepo
}

func newFakeBorrowRepo(users *fakeUserRepo, books *fakeBookRepo) *fakeBorrowRepo {
	return &fakeBorrowRepo{records: map[string]*model.BorrowRecord{}, users: users, books: books}
}

var _ repository.BorrowRepository = (*fakeBorrowRepo)(nil)

func (r *fakeBorrowRepo) Create(_ context.Context, record *model.BorrowRecord) error {
	for _, rec := range r.records {
		if rec.UserID == record.UserID && rec.BookID == record.BookID && rec.ReturnDate == nil {
			return common.NewError(common.ErrConflict, "Book already borrowed")
		}
	}
	clone := *record
	clone.CreatedAt = time.Now()
	r.records[record.ID] = &clone
	return nil
}

func (r *fakeBorrowRepo) FindByID(_ context.Context, id string) (*model.BorrowRecord, error) {
	rec, ok := r.records[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	clone := *rec
	if u, ok := r.users.users[rec.UserID]; ok {
		clone.User = &model.UserRef{Name: u.Name, Email: u.Email}
	}
	if b, ok := r.books.books[rec.BookID]; ok {
		clone.Book = &model.BookRef{Title: b.Title, Author: b.Author, ISBN: b.ISBN}
	}
	return &clone, nil
}

func (r *fakeBorrowRepo) CloseActive(_ context.Context, userID, bookID string, returnedAt time.Time) (string, error) {
	for _, rec := range r.records {
		if rec.UserID == userID && rec.BookID == bookID && rec.ReturnDate == nil {
			t := returnedAt
			rec.ReturnDate = &t
			return rec.ID, nil
		}
	}
	return "", common.NewError(common.ErrNotFound, "No active borrow found")
}

func (r *fakeBorrowRepo) ListByUser(_ context.Context, userID string) ([]model.BorrowRecord, error) {
	records := []model.BorrowRecord{}
	for _, rec := range r.records {
		if rec.UserID != userID {
			continue
		}
		clone := *rec
		if b, ok := r.books.books[rec.BookID]; ok {
			clone.Book = &model.BookRef{Title: b.Title, Author: b.Author, ISBN: b.ISBN}
		}
		records = append(records, clone)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].CreatedAt.After(records[j].CreatedAt) })
	return records, nil
}

func (r *fakeBorrowRepo) ActiveBookIDs(_ context.Context, userID string) ([]string, error) {
	ids := []string{}
	for _, rec := range r.records {
		if rec.UserID == userID && rec.ReturnDate == nil {
			ids = append(ids, rec.BookID)
		}
	}
	return ids, nil
}

func (r *fakeBorrowRepo) CountActiveByBook(_ context.Context, bookID string) (int, error) {
	count := 0
	for _, rec := range r.records {
		if rec.BookID == bookID && rec.ReturnDate == nil {
			count++
		}
	}
	return count, nil
}

func (r *fakeBorrowRepo) MostBorrowedBooks(_ context.Context, limit int) ([]model.BookBorrowCount, error) {
	counts := map[string]int{}
	for _, rec := range r.records {
		counts[rec.BookID]++
	}
	result := []model.BookBorrowCount{}
	for bookID, count := range counts {
		row := model.BookBorrowCount{BookID: bookID, BorrowCount: count}
		if b, ok := r.books.books[bookID]; ok {
			row.Title = b.Title
			row.Author = b.Author
		}
		result = append(result, row)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].BorrowCount > result[j].BorrowCount })
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (r *fakeBorrowRepo) ActiveMembers(_ context.Context, limit int) ([]model.MemberBorrowCount, error) {
	counts := map[string]int{}
	for _, rec := range r.records {
		counts[rec.UserID]++
	}
	result := []model.MemberBorrowCount{}
	for userID, count := range counts {
		row := model.MemberBorrowCount{UserID: userID, BorrowCount: count}
		if u, ok := r.users.users[userID]; ok {
			row.Name = u.Name
			row.Email = u.Email
		}
		result = append(result, row)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].BorrowCount > result[j].BorrowCount })
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}
