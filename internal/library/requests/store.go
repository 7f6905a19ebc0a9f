package requests

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"library-backend/internal/platform/apperr"
	"library-backend/internal/platform/db"
)

type Store struct {
	db db.DBTX
}

func NewStore(conn db.DBTX) *Store { return &Store{db: conn} }

const selectRequest = `
	SELECT request_id, request_ulid, member_id, book_id, request_date, issued_date, return_date, status
	FROM requests`

func scanRequest(row interface{ Scan(...any) error }) (Request, error) {
	var r Request
	err := row.Scan(&r.RequestID, &r.RequestULID, &r.MemberID, &r.BookID,
		&r.RequestDate, &r.IssuedDate, &r.ReturnDate, &r.Status)
	return r, err
}

// Insert stores a new request and fills in RequestID.
func (s *Store) Insert(ctx context.Context, r *Request) error {
	const q = `
		INSERT INTO requests (request_ulid, member_id, book_id, request_date, status)
		VALUES (?, ?, ?, ?, ?)`
	res, err := s.db.ExecContext(ctx, q, r.RequestULID, r.MemberID, r.BookID, r.RequestDate, r.Status)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	r.RequestID = id
	return nil
}

func (s *Store) GetByID(ctx context.Context, id int64) (Request, error) {
	r, err := scanRequest(s.db.QueryRowContext(ctx, selectRequest+` WHERE request_id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Request{}, apperr.ErrNotFound(fmt.Sprintf("request %d not found", id))
	}
	return r, err
}

func (s *Store) GetByULID(ctx context.Context, ulid string) (Request, error) {
	r, err := scanRequest(s.db.QueryRowContext(ctx, selectRequest+` WHERE request_ulid = ?`, ulid))
	if errors.Is(err, sql.ErrNoRows) {
		return Request{}, apperr.ErrNotFound("request not found")
	}
	return r, err
}

// CompareAndSwap writes next only while the stored status still equals from.
// A lost race reports INVALID_TRANSITION against the status that won.
func (s *Store) CompareAndSwap(ctx context.Context, from Status, next Request) error {
	const q = `
		UPDATE requests
		SET status = ?, issued_date = ?, return_date = ?
		WHERE request_id = ? AND status = ?`
	res, err := s.db.ExecContext(ctx, q, next.Status, next.IssuedDate, next.ReturnDate, next.RequestID, from)
	if err != nil {
		return err
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if aff == 1 {
		return nil
	}

	cur, err := s.GetByID(ctx, next.RequestID)
	if err != nil {
		return err
	}
	return apperr.ErrInvalidTransition(string(cur.Status), string(next.Status))
}
