package service

import (
	"context"
	"regexp"
	"strings"
	"time"

	"librarian/internal/common"
	"librarian/internal/domain/model"
	"librarian/internal/domain/repository"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/rs/zerolog"
)

// isbnPattern accepts ISBN-10 and ISBN-13 with optional hyphens, checked after
// stripping them.
var isbnPattern = regexp.MustCompile(`^(?:\d{9}[\dXx]|\d{13})$`)

type BookService struct {
	bookRepo   repository.BookRepository
	borrowRepo repository.BorrowRepository
	log        zerolog.Logger
}

func NewBookService(bookRepo repository.BookRepository, borrowRepo repository.BorrowRepository, log zerolog.Logger) *BookService {
	return &BookService{
		bookRepo:   bookRepo,
		borrowRepo: borrowRepo,
		log:        log.With().Str("component", "book_service").Logger(),
	}
}

type BookRequest struct {
	Title           string    `json:"title"`
	Author          string    `json:"author"`
	ISBN            string    `json:"isbn"`
	PublicationDate time.Time `json:"publication_date"`
	Genre           string    `json:"genre"`
	TotalCopies     int       `json:"total_copies"`
	Copies          int       `json:"copies"`
}

type BookPage struct {
	Data  []model.Book `json:"data"`
	Total int          `json:"total"`
	Page  int          `json:"page"`
	Limit int          `json:"limit"`
}

func (s *BookService) AddBook(ctx context.Context, req BookRequest, createdBy string) (*model.Book, error) {
	if err := validateBook(req); err != nil {
		return nil, err
	}

	book := &model.Book{
		ID:              uuid.NewString(),
		Title:           strings.TrimSpace(req.Title),
		Slug:            slug.Make(req.Title),
		Author:          strings.TrimSpace(req.Author),
		ISBN:            normalizeISBN(req.ISBN),
		PublicationDate: req.PublicationDate,
		Genre:           strings.TrimSpace(req.Genre),
		TotalCopies:     req.TotalCopies,
		Copies:          req.Copies,
		CreatedByID:     &createdBy,
	}

	if err := s.bookRepo.Create(ctx, book); err != nil {
		return nil, err
	}
	s.log.Info().Str("book_id", book.ID).Str("isbn", book.ISBN).Msg("book added")
	return book, nil
}

func (s *BookService) UpdateBook(ctx context.Context, id string, req BookRequest) (*model.Book, error) {
	if err := validateBook(req); err != nil {
		return nil, err
	}

	book, err := s.bookRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	book.Title = strings.TrimSpace(req.Title)
	book.Slug = slug.Make(req.Title)
	book.Author = strings.TrimSpace(req.Author)
	book.ISBN = normalizeISBN(req.ISBN)
	book.PublicationDate = req.PublicationDate
	book.Genre = strings.TrimSpace(req.Genre)
	book.TotalCopies = req.TotalCopies
	book.Copies = req.Copies

	if err := s.bookRepo.Update(ctx, book); err != nil {
		return nil, err
	}
	return book, nil
}

// DeleteBook refuses to remove a book while members still hold copies of it;
// the borrow ledger keeps records forever and they must keep resolving.
func (s *BookService) DeleteBook(ctx context.Context, id string) error {
	if _, err := s.bookRepo.FindByID(ctx, id); err != nil {
		return err
	}

	active, err := s.borrowRepo.CountActiveByBook(ctx, id)
	if err != nil {
		return err
	}
	if active > 0 {
		return common.NewError(common.ErrConflict, "Book has active borrows")
	}

	if err := s.bookRepo.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info().Str("book_id", id).Msg("book deleted")
	return nil
}

func (s *BookService) GetBook(ctx context.Context, id string) (*model.Book, error) {
	return s.bookRepo.FindByID(ctx, id)
}

func (s *BookService) ListBooks(ctx context.Context, page, limit int, search, genre string) (*BookPage, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 10
	}

	books, total, err := s.bookRepo.List(ctx, page, limit, search, genre)
	if err != nil {
		return nil, err
	}
	return &BookPage{Data: books, Total: total, Page: page, Limit: limit}, nil
}

func validateBook(req BookRequest) error {
	if strings.TrimSpace(req.Title) == "" {
		return common.NewError(common.ErrValidation, "Title is required")
	}
	if strings.TrimSpace(req.Author) == "" {
		return common.NewError(common.ErrValidation, "Author is required")
	}
	if strings.TrimSpace(req.Genre) == "" {
		return common.NewError(common.ErrValidation, "Genre is required")
	}
	if req.PublicationDate.IsZero() {
		return common.NewError(common.ErrValidation, "Publication date is required")
	}
	if !isbnPattern.MatchString(normalizeISBN(req.ISBN)) {
		return common.NewError(common.ErrValidation, "ISBN must be a valid ISBN-10 or ISBN-13")
	}
	if req.TotalCopies < 0 {
		return common.NewError(common.ErrValidation, "Total copies must not be negative")
	}
	if req.Copies < 0 || req.Copies > req.TotalCopies {
		return common.NewError(common.ErrValidation, "Copies must be between 0 and total copies")
	}
	return nil
}

func normalizeISBN(isbn string) string {
	return strings.ReplaceAll(strings.TrimSpace(isbn), "-", "")
}
