package model

import "time"

// Book carries two counters: TotalCopies is how many the library owns, Copies
// how many sit on the shelf right now. 0 <= Copies <= TotalCopies always.
type Book struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Slug            string    `json:"slug"`
	Author          string    `json:"author"`
	ISBN            string    `json:"isbn"`
	PublicationDate time.Time `json:"publication_date"`
	Genre           string    `json:"genre"`
	TotalCopies     int       `json:"total_copies"`
	Copies          int       `json:"copies"`
	CreatedByID     *string   `json:"created_by_id,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}
