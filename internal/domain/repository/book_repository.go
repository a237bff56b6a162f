package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"librarian/internal/common"
	"librarian/internal/domain/model"

	"github.com/jackc/pgx/v5/pgconn"
)

type BookRepository interface {
	Create(ctx context.Context, book *model.Book) error
	Update(ctx context.Context, book *model.Book) error
	Delete(ctx context.Context, id string) error
	FindByID(ctx context.Context, id string) (*model.Book, error)
	List(ctx context.Context, page, limit int, search, genre string) ([]model.Book, int, error)

	// DecrementCopies takes one copy off the shelf iff at least one is
	// available; IncrementCopies puts one back iff below total_copies. Both
	// are single conditional updates so concurrent borrows of the last copy
	// cannot both succeed.
	DecrementCopies(ctx context.Context, id string) error
	IncrementCopies(ctx context.Context, id string) error

	AvailabilitySummary(ctx context.Context) (*model.AvailabilitySummary, error)
}

type pgBookRepository struct {
	db *sql.DB
}

func NewPgBookRepository(db *sql.DB) BookRepository {
	return &pgBookRepository{db: db}
}

const bookColumns = `id, title, slug, author, isbn, publication_date, genre, total_copies, copies, created_by, created_at, updated_at`

func (r *pgBookRepository) Create(ctx context.Context, book *model.Book) error {
	query := `INSERT INTO books (id, title, slug, author, isbn, publication_date, genre, total_copies, copies, created_by)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := r.db.ExecContext(ctx, query,
		book.ID, book.Title, book.Slug, book.Author, book.ISBN,
		book.PublicationDate, book.Genre, book.TotalCopies, book.Copies, book.CreatedByID,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return common.NewError(common.ErrConflict, "Book with this ISBN already exists")
		}
		return fmt.Errorf("pgBookRepository.Create: %w", err)
	}
	return nil
}

func (r *pgBookRepository) Update(ctx context.Context, book *model.Book) error {
	query := `UPDATE books SET
	            title = $1, slug = $2, author = $3, isbn = $4, publication_date = $5,
	            genre = $6, total_copies = $7, copies = $8, updated_at = now()
	          WHERE id = $9`
	res, err := r.db.ExecContext(ctx, query,
		book.Title, book.Slug, book.Author, book.ISBN, book.PublicationDate,
		book.Genre, book.TotalCopies, book.Copies, book.ID,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return common.NewError(common.ErrConflict, "Book with this ISBN already exists")
		}
		return fmt.Errorf("pgBookRepository.Update: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return common.NewError(common.ErrNotFound, "Book not found")
	}
	return nil
}

func (r *pgBookRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM books WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("pgBookRepository.Delete: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return common.NewError(common.ErrNotFound, "Book not found")
	}
	return nil
}

func (r *pgBookRepository) FindByID(ctx context.Context, id string) (*model.Book, error) {
	book := &model.Book{}
	err := r.db.QueryRowContext(ctx, `SELECT `+bookColumns+` FROM books WHERE id = $1`, id).Scan(
		&book.ID, &book.Title, &book.Slug, &book.Author, &book.ISBN,
		&book.PublicationDate, &book.Genre, &book.TotalCopies, &book.Copies,
		&book.CreatedByID, &book.CreatedAt, &book.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.NewError(common.ErrNotFound, "Book not found")
		}
		return nil, fmt.Errorf("pgBookRepository.FindByID: %w", err)
	}
	return book, nil
}

func (r *pgBookRepository) List(ctx context.Context, page, limit int, search, genre string) ([]model.Book, int, error) {
	var conditions []string
	var args []interface{}
	argID := 1

	if search != "" {
		conditions = append(conditions, fmt.Sprintf("(title ILIKE $%d OR author ILIKE $%d OR genre ILIKE $%d)", argID, argID, argID))
		args = append(args, "%"+search+"%")
		argID++
	}
	if genre != "" {
		conditions = append(conditions, fmt.Sprintf("genre = $%d", argID))
		args = append(args, genre)
		argID++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM books`+whereClause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("pgBookRepository.List count: %w", err)
	}

	query := fmt.Sprintf(`SELECT `+bookColumns+` FROM books`+whereClause+
		` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, argID, argID+1)
	args = append(args, limit, (page-1)*limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("pgBookRepository.List query: %w", err)
	}
	defer rows.Close()

	books := []model.Book{}
	for rows.Next() {
		var b model.Book
		if err := rows.Scan(
			&b.ID, &b.Title, &b.Slug, &b.Author, &b.ISBN,
			&b.PublicationDate, &b.Genre, &b.TotalCopies, &b.Copies,
			&b.CreatedByID, &b.CreatedAt, &b.UpdatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("pgBookRepository.List scan: %w", err)
		}
		books = append(books, b)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("pgBookRepository.List rows: %w", err)
	}
	return books, total, nil
}

func (r *pgBookRepository) DecrementCopies(ctx context.Context, id string) error {
	query := `UPDATE books SET copies = copies - 1, updated_at = now()
	          WHERE id = $1 AND copies > 0`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("pgBookRepository.DecrementCopies: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return common.NewError(common.ErrBadRequest, "No copies available")
	}
	return nil
}

func (r *pgBookRepository) IncrementCopies(ctx context.Context, id string) error {
	query := `UPDATE books SET copies = copies + 1, updated_at = now()
	          WHERE id = $1 AND copies < total_copies`
	_, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("pgBookRepository.IncrementCopies: %w", err)
	}
	// Zero rows means copies already sits at total_copies (an admin shrank
	// the total mid-borrow); the counter stays clamped inside its bounds.
	return nil
}

func (r *pgBookRepository) AvailabilitySummary(ctx context.Context) (*model.AvailabilitySummary, error) {
	query := `SELECT COALESCE(SUM(total_copies), 0), COALESCE(SUM(copies), 0) FROM books`
	summary := &model.AvailabilitySummary{}
	if err := r.db.QueryRowContext(ctx, query).Scan(&summary.TotalBooks, &summary.AvailableBooks); err != nil {
		return nil, fmt.Errorf("pgBookRepository.AvailabilitySummary: %w", err)
	}
	summary.BorrowedBooks = summary.TotalBooks - summary.AvailableBooks
	return summary, nil
}
