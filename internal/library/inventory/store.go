package inventory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"library-backend/internal/platform/apperr"
	"library-backend/internal/platform/db"
)

type Store struct {
	db db.DBTX
}

func NewStore(conn db.DBTX) *Store { return &Store{db: conn} }

const selectBook = `
	SELECT book_id, title, author, publisher, genre, isbn_no, pages,
	       total_copies, available_copies, price, created_at
	FROM books`

func scanBook(row *sql.Row) (Book, error) {
	var b Book
	err := row.Scan(&b.BookID, &b.Title, &b.Author, &b.Publisher, &b.Genre, &b.ISBN,
		&b.Pages, &b.TotalCopies, &b.AvailableCopies, &b.Price, &b.CreatedAt)
	return b, err
}

func (s *Store) GetBook(ctx context.Context, id int64) (Book, error) {
	b, err := scanBook(s.db.QueryRowContext(ctx, selectBook+` WHERE book_id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Book{}, apperr.ErrNotFound(fmt.Sprintf("book %d not found", id))
	}
	return b, err
}

// ---- copy counters ----

// IssueCopy は在庫確認と減算を1文で行う。
// 同じ本への同時 accept でも available_copies が負になることはない。
func (s *Store) IssueCopy(ctx context.Context, id int64) error {
	const q = `
		UPDATE books
		SET available_copies = available_copies - 1
		WHERE book_id = ? AND available_copies > 0`
	aff, err := s.exec(ctx, q, id)
	if err != nil {
		return fmt.Errorf("issue copy: %w", err)
	}
	if aff == 1 {
		return nil
	}
	if _, err := s.GetBook(ctx, id); err != nil {
		return err
	}
	return apperr.ErrNoCopiesAvailable()
}

// ReturnCopy rejects a return that would push available above total.
func (s *Store) ReturnCopy(ctx context.Context, id int64) error {
	const q = `
		UPDATE books
		SET available_copies = available_copies + 1
		WHERE book_id = ? AND available_copies < total_copies`
	aff, err := s.exec(ctx, q, id)
	if err != nil {
		return fmt.Errorf("return copy: %w", err)
	}
	if aff == 1 {
		return nil
	}
	if _, err := s.GetBook(ctx, id); err != nil {
		return err
	}
	return apperr.ErrOverReturn()
}

// ---- stock ----

// mergeStock adds delta to both counters of the (isbn, title) record.
// Returns 0 when no such record exists.
func (s *Store) mergeStock(ctx context.Context, isbn, title string, delta int) (int64, error) {
	const q = `
		UPDATE books
		SET total_copies = total_copies + ?, available_copies = available_copies + ?
		WHERE isbn_no = ? AND title = ?`
	aff, err := s.exec(ctx, q, delta, delta, isbn, title)
	if err != nil {
		return 0, fmt.Errorf("merge stock: %w", err)
	}
	if aff == 0 {
		return 0, nil
	}

	var id int64
	err = s.db.QueryRowContext(ctx, `SELECT book_id FROM books WHERE isbn_no = ? AND title = ?`, isbn, title).Scan(&id)
	return id, err
}

func (s *Store) insertBook(ctx context.Context, b *Book) error {
	const q = `
		INSERT INTO books (title, author, publisher, genre, isbn_no, pages,
		                   total_copies, available_copies, price, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := s.db.ExecContext(ctx, q, b.Title, b.Author, b.Publisher, b.Genre, b.ISBN,
		b.Pages, b.TotalCopies, b.AvailableCopies, b.Price, b.CreatedAt)
	if err != nil {
		// 重複キーは呼び出し側で merge としてリトライするのでそのまま返す
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.BookID = id
	return nil
}

// deleteIfIdle removes the book unless a requested/success request points at it.
// Terminal requests go with it via ON DELETE CASCADE.
func (s *Store) deleteIfIdle(ctx context.Context, id int64) (bool, error) {
	const q = `
		DELETE FROM books
		WHERE book_id = ?
		  AND NOT EXISTS (
		      SELECT 1 FROM requests r
		      WHERE r.book_id = ? AND r.status IN ('requested', 'success'))`
	aff, err := s.exec(ctx, q, id, id)
	if err != nil {
		return false, fmt.Errorf("delete book: %w", err)
	}
	return aff == 1, nil
}

func (s *Store) updateMetadata(ctx context.Context, id int64, in UpdateBookRequest) error {
	// 動的アップデート（冊数カラムは対象外）
	sets := []string{}
	args := []any{}
	if in.Title != nil {
		sets = append(sets, "title = ?")
		args = append(args, *in.Title)
	}
	if in.Author != nil {
		sets = append(sets, "author = ?")
		args = append(args, *in.Author)
	}
	if in.Publisher != nil {
		sets = append(sets, "publisher = ?")
		args = append(args, *in.Publisher)
	}
	if in.Genre != nil {
		sets = append(sets, "genre = ?")
		args = append(args, *in.Genre)
	}
	if in.Pages != nil {
		sets = append(sets, "pages = ?")
		args = append(args, *in.Pages)
	}
	if in.Price != nil {
		sets = append(sets, "price = ?")
		args = append(args, *in.Price)
	}
	if len(sets) == 0 {
		return nil
	}

	q := "UPDATE books SET " + strings.Join(sets, ", ") + " WHERE book_id = ?"
	args = append(args, id)
	if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
		if db.IsDuplicateKey(err) {
			return apperr.ErrConflict("another book already has this isbn and title")
		}
		return fmt.Errorf("update book: %w", err)
	}
	return nil
}

func (s *Store) exec(ctx context.Context, q string, args ...any) (int64, error) {
	res, err := s.db.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
