// internal/books/domain.go
package books

import (
	"time"
)

// Book represents a single record exchanged with the books API.
type Book struct {
	ID        string     `json:"id,omitempty"`
	Title     string     `json:"title"`
	Author    string     `json:"author"`
	Year      int        `json:"year"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// Persisted reports whether the API has assigned an ID to the book.
func (b Book) Persisted() bool {
	return b.ID != ""
}

// Draft returns a copy of b carrying only the user-editable fields.
func (b Book) Draft() Book {
	return Book{
		Title:  b.Title,
		Author: b.Author,
		Year:   b.Year,
	}
}

// SortKey names the field the derived list is ordered by.
type SortKey string

const (
	SortByTitle     SortKey = "title"
	SortByAuthor    SortKey = "author"
	SortByYear      SortKey = "year"
	SortByCreatedAt SortKey = "created_at"
	SortByUpdatedAt SortKey = "updated_at"
)

func (k SortKey) Valid() bool {
	switch k {
	case SortByTitle, SortByAuthor, SortByYear, SortByCreatedAt, SortByUpdatedAt:
		return true
	}
	return false
}

// SortOrder is the direction of the derived list.
type SortOrder string

const (
	Ascending  SortOrder = "asc"
	Descending SortOrder = "desc"
)

func (o SortOrder) Valid() bool {
	return o == Ascending || o == Descending
}

func (o SortOrder) Flip() SortOrder {
	if o == Descending {
		return Ascending
	}
	return Descending
}

// Query holds the user-controlled inputs of the derived list.
type Query struct {
	Search  string
	Year    string
	SortKey SortKey
	Order   SortOrder
}

// DefaultQuery is the state of a freshly opened dashboard.
func DefaultQuery() Query {
	return Query{SortKey: SortByTitle, Order: Ascending}
}

// Filtered reports whether a search term or year filter is active.
func (q Query) Filtered() bool {
	return q.Search != "" || q.Year != ""
}

// ClearFilters resets search and year, keeping the sort selection.
func (q Query) ClearFilters() Query {
	q.Search = ""
	q.Year = ""
	return q
}
