package labels

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"

	"library-backend/internal/library/inventory"
	"library-backend/internal/platform/apperr"
	"library-backend/internal/platform/auth"
)

type BookReader interface {
	GetBook(ctx context.Context, id int64) (inventory.Book, error)
}

type Service struct {
	books BookReader
}

func NewService(books BookReader) *Service { return &Service{books: books} }

var header = []string{"book_id", "copy", "title", "author", "genre", "isbn"}

// Rows expands the given books into one row per physical copy, in the
// order the ids were given.
func (s *Service) Rows(ctx context.Context, role auth.Role, ids []int64) ([]Row, error) {
	if err := auth.RequireAdmin(role); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, apperr.ErrInvalid("ids is required")
	}
	if len(ids) > MaxBooks {
		return nil, apperr.ErrInvalid(fmt.Sprintf("at most %d books per export", MaxBooks))
	}

	var rows []Row
	for _, id := range ids {
		b, err := s.books.GetBook(ctx, id)
		if err != nil {
			return nil, err
		}
		if len(rows)+b.TotalCopies > MaxRows {
			return nil, apperr.ErrInvalid(fmt.Sprintf("at most %d labels per export", MaxRows))
		}
		for n := 1; n <= b.TotalCopies; n++ {
			rows = append(rows, Row{
				BookID: b.BookID,
				CopyNo: n,
				Copies: b.TotalCopies,
				Title:  b.Title,
				Author: b.Author,
				Genre:  b.Genre,
				ISBN:   b.ISBN,
			})
		}
	}
	return rows, nil
}

// WriteCSV writes rows with a header line. Shift_JIS output replaces
// characters CP932 cannot represent.
func WriteCSV(w io.Writer, enc Encoding, rows []Row) error {
	if enc != EncodingShiftJIS {
		return writeRows(w, rows)
	}
	tw := transform.NewWriter(w, encoding.ReplaceUnsupported(japanese.ShiftJIS.NewEncoder()))
	if err := writeRows(tw, rows); err != nil {
		return err
	}
	return tw.Close()
}

func writeRows(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, r := range rows {
		record := []string{
			strconv.FormatInt(r.BookID, 10),
			fmt.Sprintf("%d/%d", r.CopyNo, r.Copies),
			r.Title, r.Author, r.Genre, r.ISBN,
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
