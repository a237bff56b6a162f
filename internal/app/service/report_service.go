package service

import (
	"context"
	"fmt"
	"time"

	"librarian/internal/domain/model"
	"librarian/internal/domain/repository"
	"librarian/internal/platform/cache"

	"github.com/rs/zerolog"
)

const reportCachePrefix = "report:"

// ReportService serves read-only rollups over the borrow ledger and catalog.
// Results are cached in Redis with a short TTL and invalidated on every
// borrow/return.
type ReportService struct {
	borrowRepo repository.BorrowRepository
	bookRepo   repository.BookRepository
	cache      *cache.Cache
	cacheTTL   time.Duration
	log        zerolog.Logger
}

func NewReportService(borrowRepo repository.BorrowRepository, bookRepo repository.BookRepository, c *cache.Cache, cacheTTL time.Duration, log zerolog.Logger) *ReportService {
	return &ReportService{
		borrowRepo: borrowRepo,
		bookRepo:   bookRepo,
		cache:      c,
		cacheTTL:   cacheTTL,
		log:        log.With().Str("component", "report_service").Logger(),
	}
}

func (s *ReportService) MostBorrowedBooks(ctx context.Context, limit int) ([]model.BookBorrowCount, error) {
	if limit < 1 || limit > 100 {
		limit = 10
	}

	key := fmt.Sprintf("%smost-borrowed:%d", reportCachePrefix, limit)
	var cached []model.BookBorrowCount
	if s.cache.GetJSON(ctx, key, &cached) {
		return cached, nil
	}

	result, err := s.borrowRepo.MostBorrowedBooks(ctx, limit)
	if err != nil {
		return nil, err
	}
	s.cache.SetJSON(ctx, key, result, s.cacheTTL)
	return result, nil
}

func (s *ReportService) ActiveMembers(ctx context.Context, limit int) ([]model.MemberBorrowCount, error) {
	if limit < 1 || limit > 100 {
		limit = 10
	}

	key := fmt.Sprintf("%sactive-members:%d", reportCachePrefix, limit)
	var cached []model.MemberBorrowCount
	if s.cache.GetJSON(ctx, key, &cached) {
		return cached, nil
	}

	result, err := s.borrowRepo.ActiveMembers(ctx, limit)
	if err != nil {
		return nil, err
	}
	s.cache.SetJSON(ctx, key, result, s.cacheTTL)
	return result, nil
}

func (s *ReportService) BookAvailability(ctx context.Context) (*model.AvailabilitySummary, error) {
	key := reportCachePrefix + "availability"
	cached := &model.AvailabilitySummary{}
	if s.cache.GetJSON(ctx, key, cached) {
		return cached, nil
	}

	summary, err := s.bookRepo.AvailabilitySummary(ctx)
	if err != nil {
		return nil, err
	}
	s.cache.SetJSON(ctx, key, summary, s.cacheTTL)
	return summary, nil
}
