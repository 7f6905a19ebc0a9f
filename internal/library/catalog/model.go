package catalog

import (
	"database/sql"
	"time"

	"library-backend/internal/library/inventory"
	"library-backend/internal/library/requests"
)

// PageSize は全一覧で固定
const PageSize = 10

type Page[T any] struct {
	Items    []T `json:"items"`
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
	Total    int `json:"total"`
}

type BookFilter struct {
	Q             string
	Genre         string
	AvailableOnly bool
	Page          int
}

type RequestFilter struct {
	Q        string
	Statuses []requests.Status
	From, To *time.Time // request_date, 両端含む
	MemberID int64
	BookID   int64
	Page     int
}

type MemberFilter struct {
	Q    string
	Page int
}

// BookRow reuses the ledger's column mapping.
type BookRow = inventory.Book

// RequestRow is a request joined with who asked for what.
type RequestRow struct {
	RequestID       int64           `db:"request_id"`
	RequestULID     string          `db:"request_ulid"`
	MemberID        int64           `db:"member_id"`
	MemberFirstName string          `db:"member_first_name"`
	MemberLastName  string          `db:"member_last_name"`
	MemberEmail     string          `db:"member_email"`
	BookID          int64           `db:"book_id"`
	BookTitle       string          `db:"book_title"`
	BookISBN        string          `db:"book_isbn"`
	RequestDate     time.Time       `db:"request_date"`
	IssuedDate      sql.NullTime    `db:"issued_date"`
	ReturnDate      sql.NullTime    `db:"return_date"`
	Status          requests.Status `db:"status"`
}

type MemberRow struct {
	MemberID         int64          `db:"member_id"`
	FirstName        string         `db:"first_name"`
	LastName         string         `db:"last_name"`
	Email            string         `db:"email"`
	PhoneNumber      sql.NullString `db:"phone_number"`
	Role             string         `db:"role"`
	MembershipStatus string         `db:"membership_status"`
	CreatedAt        time.Time      `db:"created_at"`
}
