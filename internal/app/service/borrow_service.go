package service

import (
	"context"
	"errors"
	"time"

	"librarian/internal/common"
	"librarian/internal/domain/model"
	"librarian/internal/domain/repository"
	"librarian/internal/platform/cache"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// BorrowService owns the borrow/return transitions and, together with the
// book repository's conditional counter updates, the copies invariant.
type BorrowService struct {
	borrowRepo repository.BorrowRepository
	bookRepo   repository.BookRepository
	cache      *cache.Cache
	log        zerolog.Logger
}

func NewBorrowService(borrowRepo repository.BorrowRepository, bookRepo repository.BookRepository, c *cache.Cache, log zerolog.Logger) *BorrowService {
	return &BorrowService{
		borrowRepo: borrowRepo,
		bookRepo:   bookRepo,
		cache:      c,
		log:        log.With().Str("component", "borrow_service").Logger(),
	}
}

func (s *BorrowService) Borrow(ctx context.Context, userID, bookID string) (*model.BorrowRecord, error) {
	if _, err := s.bookRepo.FindByID(ctx, bookID); err != nil {
		return nil, err
	}

	// Conditional decrement both checks availability and takes the copy in
	// one statement, so two borrows of the last copy cannot both pass.
	if err := s.bookRepo.DecrementCopies(ctx, bookID); err != nil {
		return nil, err
	}

	record := &model.BorrowRecord{
		ID:         uuid.NewString(),
		UserID:     userID,
		BookID:     bookID,
		BorrowDate: time.Now().UTC(),
	}
	if err := s.borrowRepo.Create(ctx, record); err != nil {
		// The user already holds this book; give the copy back.
		if errors.Is(err, common.ErrConflict) {
			if incErr := s.bookRepo.IncrementCopies(ctx, bookID); incErr != nil {
				s.log.Error().Err(incErr).Str("book_id", bookID).Msg("failed to restore copy after rejected borrow")
			}
		}
		return nil, err
	}

	s.invalidateReports(ctx)
	s.log.Info().Str("user_id", userID).Str("book_id", bookID).Msg("book borrowed")
	return s.borrowRepo.FindByID(ctx, record.ID)
}

func (s *BorrowService) Return(ctx context.Context, userID, bookID string) (*model.BorrowRecord, error) {
	recordID, err := s.borrowRepo.CloseActive(ctx, userID, bookID, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	if err := s.bookRepo.IncrementCopies(ctx, bookID); err != nil {
		return nil, err
	}

	s.invalidateReports(ctx)
	s.log.Info().Str("user_id", userID).Str("book_id", bookID).Msg("book returned")
	return s.borrowRepo.FindByID(ctx, recordID)
}

func (s *BorrowService) History(ctx context.Context, userID string) ([]model.BorrowRecord, error) {
	return s.borrowRepo.ListByUser(ctx, userID)
}

func (s *BorrowService) ActiveBookIDs(ctx context.Context, userID string) ([]string, error) {
	return s.borrowRepo.ActiveBookIDs(ctx, userID)
}

func (s *BorrowService) invalidateReports(ctx context.Context) {
	s.cache.InvalidatePrefix(ctx, reportCachePrefix)
}
