package catalog

import (
	"time"

	"library-backend/internal/library/inventory"
)

type RequestResponse struct {
	RequestID       int64      `json:"request_id"`
	RequestULID     string     `json:"request_ulid"`
	MemberID        int64      `json:"member_id"`
	MemberFirstName string     `json:"member_first_name"`
	MemberLastName  string     `json:"member_last_name"`
	MemberEmail     string     `json:"member_email"`
	BookID          int64      `json:"book_id"`
	BookTitle       string     `json:"book_title"`
	BookISBN        string     `json:"book_isbn"`
	RequestDate     time.Time  `json:"request_date"`
	IssuedDate      *time.Time `json:"issued_date,omitempty"`
	ReturnDate      *time.Time `json:"return_date,omitempty"`
	Status          string     `json:"status"`
}

type MemberResponse struct {
	MemberID         int64     `json:"member_id"`
	FirstName        string    `json:"first_name"`
	LastName         string    `json:"last_name"`
	Email            string    `json:"email"`
	PhoneNumber      *string   `json:"phone_number,omitempty"`
	Role             string    `json:"role"`
	MembershipStatus string    `json:"membership_status"`
	CreatedAt        time.Time `json:"created_at"`
}

func mapPage[T, R any](p Page[T], fn func(T) R) Page[R] {
	out := Page[R]{Items: make([]R, 0, len(p.Items)), Page: p.Page, PageSize: p.PageSize, Total: p.Total}
	for _, it := range p.Items {
		out.Items = append(out.Items, fn(it))
	}
	return out
}

func bookResponse(b BookRow) inventory.BookResponse { return inventory.ToResponse(b) }

func requestResponse(r RequestRow) RequestResponse {
	res := RequestResponse{
		RequestID:       r.RequestID,
		RequestULID:     r.RequestULID,
		MemberID:        r.MemberID,
		MemberFirstName: r.MemberFirstName,
		MemberLastName:  r.MemberLastName,
		MemberEmail:     r.MemberEmail,
		BookID:          r.BookID,
		BookTitle:       r.BookTitle,
		BookISBN:        r.BookISBN,
		RequestDate:     r.RequestDate,
		Status:          string(r.Status),
	}
	if r.IssuedDate.Valid {
		t := r.IssuedDate.Time
		res.IssuedDate = &t
	}
	if r.ReturnDate.Valid {
		t := r.ReturnDate.Time
		res.ReturnDate = &t
	}
	return res
}

func memberResponse(m MemberRow) MemberResponse {
	res := MemberResponse{
		MemberID:         m.MemberID,
		FirstName:        m.FirstName,
		LastName:         m.LastName,
		Email:            m.Email,
		Role:             m.Role,
		MembershipStatus: m.MembershipStatus,
		CreatedAt:        m.CreatedAt,
	}
	if m.PhoneNumber.Valid {
		res.PhoneNumber = &m.PhoneNumber.String
	}
	return res
}
