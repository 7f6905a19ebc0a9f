package inventory

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"library-backend/internal/platform/apperr"
	"library-backend/internal/platform/auth"
	"library-backend/internal/platform/db"
	"library-backend/internal/platform/requestid"
	"library-backend/internal/platform/retry"
)

// Service is the inventory ledger. available_copies is only ever written
// through IssueCopy, ReturnCopy and AddStock.
type Service struct {
	db    *sql.DB
	store *Store
	now   func() time.Time
}

func NewService(conn *sql.DB) *Service {
	return &Service{
		db:    conn,
		store: NewStore(conn),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) GetBook(ctx context.Context, id int64) (Book, error) {
	return s.store.GetBook(ctx, id)
}

// IssueCopy decrements available_copies, failing with NO_COPIES_AVAILABLE at zero.
func (s *Service) IssueCopy(ctx context.Context, bookID int64) error {
	return s.store.IssueCopy(ctx, bookID)
}

// ReturnCopy increments available_copies, failing with OVER_RETURN at total.
func (s *Service) ReturnCopy(ctx context.Context, bookID int64) error {
	return s.store.ReturnCopy(ctx, bookID)
}

// AddStock merges delta copies into the (isbn, title) record, creating it
// when absent. Two first-time adds racing on the same key collide on the
// unique index; the loser retries and merges.
func (s *Service) AddStock(ctx context.Context, role auth.Role, req AddStockRequest) (*AddStockResponse, error) {
	if err := auth.RequireAdmin(role); err != nil {
		return nil, err
	}
	if req.Delta <= 0 {
		return nil, apperr.ErrInvalid("copies must be > 0")
	}
	isbn, err := NormalizeISBN(req.ISBN)
	if err != nil {
		return nil, err
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, apperr.ErrInvalid("title is required")
	}
	if req.Pages < 0 || req.Price < 0 {
		return nil, apperr.ErrInvalid("pages and price must not be negative")
	}

	var (
		bookID int64
		merged bool
	)
	err = retry.Do(ctx, func(ctx context.Context) error {
		return db.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx db.DBTX) error {
			st := NewStore(tx)
			id, err := st.mergeStock(ctx, isbn, title, req.Delta)
			if err != nil {
				return err
			}
			if id != 0 {
				bookID, merged = id, true
				return nil
			}

			b := Book{
				Title:           title,
				Author:          strings.TrimSpace(req.Author),
				Publisher:       strings.TrimSpace(req.Publisher),
				Genre:           strings.TrimSpace(req.Genre),
				ISBN:            isbn,
				Pages:           req.Pages,
				TotalCopies:     req.Delta,
				AvailableCopies: req.Delta,
				Price:           req.Price,
				CreatedAt:       s.now(),
			}
			if err := st.insertBook(ctx, &b); err != nil {
				return err
			}
			bookID, merged = b.BookID, false
			return nil
		})
	}, retry.If(db.IsDuplicateKey), retry.WithMaxAttempts(3))
	if db.IsDuplicateKey(err) {
		return nil, apperr.ErrConflict("concurrent stock update, try again")
	}
	if err != nil {
		return nil, err
	}

	b, err := s.store.GetBook(ctx, bookID)
	if err != nil {
		return nil, err
	}
	requestid.Logger(ctx).Info("stock added", "book_id", bookID, "delta", req.Delta, "merged", merged)
	return &AddStockResponse{Merged: merged, Book: ToResponse(b)}, nil
}

// RemoveBook deletes a book with no requested/success request.
func (s *Service) RemoveBook(ctx context.Context, role auth.Role, id int64) error {
	if err := auth.RequireAdmin(role); err != nil {
		return err
	}
	ok, err := s.store.deleteIfIdle(ctx, id)
	if err != nil {
		return err
	}
	if ok {
		requestid.Logger(ctx).Info("book removed", "book_id", id)
		return nil
	}
	if _, err := s.store.GetBook(ctx, id); err != nil {
		return err
	}
	return apperr.ErrBookInUse("book has active requests")
}

// UpdateBook edits catalogue metadata. Copy counts are not reachable here.
func (s *Service) UpdateBook(ctx context.Context, role auth.Role, id int64, in UpdateBookRequest) (*BookResponse, error) {
	if err := auth.RequireAdmin(role); err != nil {
		return nil, err
	}
	if in.Title != nil {
		t := strings.TrimSpace(*in.Title)
		if t == "" {
			return nil, apperr.ErrInvalid("title must not be empty")
		}
		in.Title = &t
	}
	if (in.Pages != nil && *in.Pages < 0) || (in.Price != nil && *in.Price < 0) {
		return nil, apperr.ErrInvalid("pages and price must not be negative")
	}
	if _, err := s.store.GetBook(ctx, id); err != nil {
		return nil, err
	}
	if err := s.store.updateMetadata(ctx, id, in); err != nil {
		return nil, err
	}
	b, err := s.store.GetBook(ctx, id)
	if err != nil {
		return nil, err
	}
	res := ToResponse(b)
	return &res, nil
}
