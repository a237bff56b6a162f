package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"librarian/internal/common"
	"librarian/internal/domain/model"

	"github.com/jackc/pgx/v5/pgconn"
)

type BorrowRepository interface {
	Create(ctx context.Context, record *model.BorrowRecord) error
	FindByID(ctx context.Context, id string) (*model.BorrowRecord, error)
	// CloseActive stamps the return date on the single active record for
	// (user, book) and returns its id; ErrNotFound when no active borrow
	// exists. The update is conditional on return_date IS NULL, so a record
	// can only ever be returned once.
	CloseActive(ctx context.Context, userID, bookID string, returnedAt time.Time) (string, error)
	ListByUser(ctx context.Context, userID string) ([]model.BorrowRecord, error)
	ActiveBookIDs(ctx context.Context, userID string) ([]string, error)
	CountActiveByBook(ctx context.Context, bookID string) (int, error)

	MostBorrowedBooks(ctx context.Context, limit int) ([]model.BookBorrowCount, error)
	ActiveMembers(ctx context.Context, limit int) ([]model.MemberBorrowCount, error)
}

type pgBorrowRepository struct {
	db *sql.DB
}

func NewPgBorrowRepository(db *sql.DB) BorrowRepository {
	return &pgBorrowRepository{db: db}
}

func (r *pgBorrowRepository) Create(ctx context.Context, record *model.BorrowRecord) error {
	query := `INSERT INTO borrows (id, user_id, book_id, borrow_date)
	          VALUES ($1, $2, $3, $4)`
	_, err := r.db.ExecContext(ctx, query, record.ID, record.UserID, record.BookID, record.BorrowDate)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // partial unique index on active borrows
			return common.NewError(common.ErrConflict, "Book already borrowed")
		}
		return fmt.Errorf("pgBorrowRepository.Create: %w", err)
	}
	return nil
}

func (r *pgBorrowRepository) FindByID(ctx context.Context, id string) (*model.BorrowRecord, error) {
	query := `
	    SELECT br.id, br.user_id, br.book_id, br.borrow_date, br.return_date,
	           br.created_at, br.updated_at,
	           u.name, u.email, b.title, b.author, b.isbn
	    FROM borrows br
	    JOIN users u ON br.user_id = u.id
	    JOIN books b ON br.book_id = b.id
	    WHERE br.id = $1`

	record := &model.BorrowRecord{User: &model.UserRef{}, Book: &model.BookRef{}}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&record.ID, &record.UserID, &record.BookID, &record.BorrowDate, &record.ReturnDate,
		&record.CreatedAt, &record.UpdatedAt,
		&record.User.Name, &record.User.Email,
		&record.Book.Title, &record.Book.Author, &record.Book.ISBN,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgBorrowRepository.FindByID: %w", err)
	}
	return record, nil
}

func (r *pgBorrowRepository) CloseActive(ctx context.Context, userID, bookID string, returnedAt time.Time) (string, error) {
	query := `UPDATE borrows SET return_date = $1, updated_at = now()
	          WHERE user_id = $2 AND book_id = $3 AND return_date IS NULL
	          RETURNING id`
	var id string
	err := r.db.QueryRowContext(ctx, query, returnedAt, userID, bookID).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", common.NewError(common.ErrNotFound, "No active borrow found")
		}
		return "", fmt.Errorf("pgBorrowRepository.CloseActive: %w", err)
	}
	return id, nil
}

func (r *pgBorrowRepository) ListByUser(ctx context.Context, userID string) ([]model.BorrowRecord, error) {
	query := `
	    SELECT br.id, br.user_id, br.book_id, br.borrow_date, br.return_date,
	           br.created_at, br.updated_at,
	           b.title, b.author, b.isbn
	    FROM borrows br
	    JOIN books b ON br.book_id = b.id
	    WHERE br.user_id = $1
	    ORDER BY br.created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("pgBorrowRepository.ListByUser query: %w", err)
	}
	defer rows.Close()

	records := []model.BorrowRecord{}
	for rows.Next() {
		record := model.BorrowRecord{Book: &model.BookRef{}}
		if err := rows.Scan(
			&record.ID, &record.UserID, &record.BookID, &record.BorrowDate, &record.ReturnDate,
			&record.CreatedAt, &record.UpdatedAt,
			&record.Book.Title, &record.Book.Author, &record.Book.ISBN,
		); err != nil {
			return nil, fmt.Errorf("pgBorrowRepository.ListByUser scan: %w", err)
		}
		records = append(records, record)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("pgBorrowRepository.ListByUser rows: %w", err)
	}
	return records, nil
}

func (r *pgBorrowRepository) ActiveBookIDs(ctx context.Context, userID string) ([]string, error) {
	query := `SELECT book_id FROM borrows WHERE user_id = $1 AND return_date IS NULL`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("pgBorrowRepository.ActiveBookIDs query: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("pgBorrowRepository.ActiveBookIDs scan: %w", err)
		}
		ids = append(ids, id)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("pgBorrowRepository.ActiveBookIDs rows: %w", err)
	}
	return ids, nil
}

func (r *pgBorrowRepository) CountActiveByBook(ctx context.Context, bookID string) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM borrows WHERE book_id = $1 AND return_date IS NULL`
	if err := r.db.QueryRowContext(ctx, query, bookID).Scan(&count); err != nil {
		return 0, fmt.Errorf("pgBorrowRepository.CountActiveByBook: %w", err)
	}
	return count, nil
}

func (r *pgBorrowRepository) MostBorrowedBooks(ctx context.Context, limit int) ([]model.BookBorrowCount, error) {
	query := `
	    SELECT b.id, b.title, b.author, COUNT(*) AS borrow_count
	    FROM borrows br
	    JOIN books b ON br.book_id = b.id
	    GROUP BY b.id, b.title, b.author
	    ORDER BY borrow_count DESC
	    LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("pgBorrowRepository.MostBorrowedBooks query: %w", err)
	}
	defer rows.Close()

	result := []model.BookBorrowCount{}
	for rows.Next() {
		var row model.BookBorrowCount
		if err := rows.Scan(&row.BookID, &row.Title, &row.Author, &row.BorrowCount); err != nil {
			return nil, fmt.Errorf("pgBorrowRepository.MostBorrowedBooks scan: %w", err)
		}
		result = append(result, row)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("pgBorrowRepository.MostBorrowedBooks rows: %w", err)
	}
	return result, nil
}

func (r *pgBorrowRepository) ActiveMembers(ctx context.Context, limit int) ([]model.MemberBorrowCount, error) {
	query := `
	    SELECT u.id, u.name, u.email, COUNT(*) AS borrow_count
	    FROM borrows br
	    JOIN users u ON br.user_id = u.id
	    GROUP BY u.id, u.name, u.email
	    ORDER BY borrow_count DESC
	    LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("pgBorrowRepository.ActiveMembers query: %w", err)
	}
	defer rows.Close()

	result := []model.MemberBorrowCount{}
	for rows.Next() {
		var row model.MemberBorrowCount
		if err := rows.Scan(&row.UserID, &row.Name, &row.Email, &row.BorrowCount); err != nil {
			return nil, fmt.Errorf("pgBorrowRepository.ActiveMembers scan: %w", err)
		}
		result = append(result, row)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("pgBorrowRepository.ActiveMembers rows: %w", err)
	}
	return result, nil
}
