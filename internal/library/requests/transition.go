package requests

import (
	"database/sql"
	"time"

	"library-backend/internal/platform/apperr"
)

var transitions = map[Status][]Status{
	StatusRequested: {StatusSuccess, StatusDeclined},
	StatusSuccess:   {StatusReturned},
}

// CanTransition reports whether from -> to is a legal lifecycle step.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func invalid(r Request, to Status) error {
	return apperr.ErrInvalidTransition(string(r.Status), string(to))
}

// Accept issues the request. Inventory is not touched here.
func Accept(r Request, now time.Time) (Request, error) {
	if !CanTransition(r.Status, StatusSuccess) {
		return r, invalid(r, StatusSuccess)
	}
	r.Status = StatusSuccess
	r.IssuedDate = sql.NullTime{Time: now, Valid: true}
	return r, nil
}

// Decline leaves issued/return dates empty.
func Decline(r Request) (Request, error) {
	if !CanTransition(r.Status, StatusDeclined) {
		return r, invalid(r, StatusDeclined)
	}
	r.Status = StatusDeclined
	return r, nil
}

func Return(r Request, now time.Time) (Request, error) {
	if !CanTransition(r.Status, StatusReturned) {
		return r, invalid(r, StatusReturned)
	}
	r.Status = StatusReturned
	r.ReturnDate = sql.NullTime{Time: now, Valid: true}
	return r, nil
}
