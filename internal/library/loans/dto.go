package loans

import (
	"time"

	"library-backend/internal/library/requests"
)

// member_id 省略時は呼び出し本人
type CreateRequestRequest struct {
	MemberID int64 `json:"member_id"`
	BookID   int64 `json:"book_id" binding:"required"`
}

// accept / return の本文。book_id は任意で、指定時はリクエストの本と一致が必要。
type TransitionRequest struct {
	BookID int64 `json:"book_id"`
}

type RequestResponse struct {
	RequestID   int64      `json:"request_id"`
	RequestULID string     `json:"request_ulid"`
	MemberID    int64      `json:"member_id"`
	BookID      int64      `json:"book_id"`
	RequestDate time.Time  `json:"request_date"`
	IssuedDate  *time.Time `json:"issued_date,omitempty"`
	ReturnDate  *time.Time `json:"return_date,omitempty"`
	Status      string     `json:"status"`
}

func toResponse(r requests.Request) RequestResponse {
	res := RequestResponse{
		RequestID:   r.RequestID,
		RequestULID: r.RequestULID,
		MemberID:    r.MemberID,
		BookID:      r.BookID,
		RequestDate: r.RequestDate,
		Status:      string(r.Status),
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
