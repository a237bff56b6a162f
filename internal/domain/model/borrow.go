package model

import "time"

// BorrowRecord is active while ReturnDate is nil. The only transition is
// active -> returned; records are never deleted.
type BorrowRecord struct {
	ID         string     `json:"id"`
	UserID     string     `json:"user_id"`
	BookID     string     `json:"book_id"`
	BorrowDate time.Time  `json:"borrow_date"`
	ReturnDate *time.Time `json:"return_date,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`

	// Resolved references, populated on reads that join.
	User *UserRef `json:"user,omitempty"`
	Book *BookRef `json:"book,omitempty"`
}

func (r *BorrowRecord) Active() bool { return r.ReturnDate == nil }

type UserRef struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type BookRef struct {
	Title  string `json:"title"`
	Author string `json:"author"`
	ISBN   string `json:"isbn"`
}
