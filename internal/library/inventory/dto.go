package inventory

import "time"

// addStock の入力。同じ (isbn, title) があれば冊数だけ加算し、メタデータは既存を優先。
type AddStockRequest struct {
	ISBN      string  `json:"isbn_no" binding:"required"`
	Title     string  `json:"title" binding:"required"`
	Author    string  `json:"author"`
	Publisher string  `json:"publisher"`
	Genre     string  `json:"genre"`
	Pages     int     `json:"pages"`
	Price     float64 `json:"price"`
	Delta     int     `json:"copies" binding:"required"`
}

// UpdateBookRequest はメタデータのみ。冊数はここからは変更できない。
type UpdateBookRequest struct {
	Title     *string  `json:"title,omitempty"`
	Author    *string  `json:"author,omitempty"`
	Publisher *string  `json:"publisher,omitempty"`
	Genre     *string  `json:"genre,omitempty"`
	Pages     *int     `json:"pages,omitempty"`
	Price     *float64 `json:"price,omitempty"`
}

type BookResponse struct {
	BookID          int64     `json:"book_id"`
	Title           string    `json:"title"`
	Author          string    `json:"author"`
	Publisher       string    `json:"publisher"`
	Genre           string    `json:"genre"`
	ISBN            string    `json:"isbn_no"`
	Pages           int       `json:"pages"`
	TotalCopies     int       `json:"total_copies"`
	AvailableCopies int       `json:"available_copies"`
	Price           float64   `json:"price"`
	CreatedAt       time.Time `json:"created_at"`
}

type AddStockResponse struct {
	Merged bool         `json:"merged"`
	Book   BookResponse `json:"book"`
}

func ToResponse(b Book) BookResponse {
	return BookResponse{
		BookID:          b.BookID,
		Title:           b.Title,
		Author:          b.Author,
		Publisher:       b.Publisher,
		Genre:           b.Genre,
		ISBN:            b.ISBN,
		Pages:           b.Pages,
		TotalCopies:     b.TotalCopies,
		AvailableCopies: b.AvailableCopies,
		Price:           b.Price,
		CreatedAt:       b.CreatedAt,
	}
}
