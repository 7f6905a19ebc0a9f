package inventory

import "time"

// Book は books テーブルの1行
// 0 <= AvailableCopies <= TotalCopies は DB の CHECK 制約と条件付き UPDATE で守る。
type Book struct {
	BookID          int64     `db:"book_id"`
	Title           string    `db:"title"`
	Author          string    `db:"author"`
	Publisher       string    `db:"publisher"`
	Genre           string    `db:"genre"`
	ISBN            string    `db:"isbn_no"`
	Pages           int       `db:"pages"`
	TotalCopies     int       `db:"total_copies"`
	AvailableCopies int       `db:"available_copies"`
	Price           float64   `db:"price"`
	CreatedAt       time.Time `db:"created_at"`
}

// OnLoan is the number of copies currently issued.
func (b Book) OnLoan() int { return b.TotalCopies - b.AvailableCopies }
