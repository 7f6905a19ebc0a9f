package loans

import (
	"context"
	"database/sql"
	"fmt"

	"library-backend/internal/library/inventory"
	"library-backend/internal/library/requests"
	"library-backend/internal/platform/apperr"
	"library-backend/internal/platform/auth"
	"library-backend/internal/platform/db"
	"library-backend/internal/platform/requestid"
	"library-backend/internal/platform/retry"
)

// ===== インターフェース群 =====

type RequestMachine interface {
	Create(ctx context.Context, memberID, bookID int64) (requests.Request, error)
	Get(ctx context.Context, id int64) (requests.Request, error)
	GetByULID(ctx context.Context, ulid string) (requests.Request, error)
	Accept(ctx context.Context, cur requests.Request) (requests.Request, error)
	Decline(ctx context.Context, cur requests.Request) (requests.Request, error)
	Return(ctx context.Context, cur requests.Request) (requests.Request, error)
	Revert(ctx context.Context, applied, prev requests.Request) error
}

type Ledger interface {
	GetBook(ctx context.Context, id int64) (inventory.Book, error)
	IssueCopy(ctx context.Context, bookID int64) error
	ReturnCopy(ctx context.Context, bookID int64) error
}

type MemberDirectory interface {
	Exists(ctx context.Context, id int64) error
}

// UnitOfWork runs fn with a machine and a ledger bound to one transaction.
// fn returning an error rolls both back.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(ctx context.Context, m RequestMachine, l Ledger) error) error
}

type sqlUnit struct {
	db   *sql.DB
	wrap func(Ledger) Ledger
}

func (u sqlUnit) Do(ctx context.Context, fn func(ctx context.Context, m RequestMachine, l Ledger) error) error {
	return db.RunInTx(ctx, u.db, nil, func(ctx context.Context, tx db.DBTX) error {
		var l Ledger = inventory.NewStore(tx)
		if u.wrap != nil {
			l = u.wrap(l)
		}
		return fn(ctx, requests.NewMachine(tx), l)
	})
}

// ===== Coordinator本体 =====

// Coordinator is the only write path that pairs a request transition with
// a copy-count change. Order for accept and return:
//
//  1. role check, load the request, pure transition check
//  2. read-only availability check (accept only)
//  3. request status CAS
//  4. ledger conditional UPDATE
//
// With a UnitOfWork, 3 and 4 commit together. Without one, 4 failing
// CASes the request back to its previous status.
type Coordinator struct {
	machine RequestMachine
	ledger  Ledger
	members MemberDirectory
	unit    UnitOfWork
	revert  []retry.Option
}

func NewCoordinator(machine RequestMachine, ledger Ledger, members MemberDirectory) *Coordinator {
	return &Coordinator{
		machine: machine,
		ledger:  ledger,
		members: members,
		revert:  []retry.Option{retry.If(transient)},
	}
}

// NewSQLCoordinator pairs every status change with its copy-count change
// in one database transaction.
func NewSQLCoordinator(conn *sql.DB, members MemberDirectory) *Coordinator {
	c := NewCoordinator(requests.NewMachine(conn), inventory.NewService(conn), members)
	c.unit = sqlUnit{db: conn}
	return c
}

// transient: CAS に負けた (INVALID_TRANSITION) などの分類済みエラーはリトライしない
func transient(err error) bool { return apperr.CodeOf(err) == apperr.CodeInternal }

// CreateRequest opens a request. Members may only ask for themselves.
func (c *Coordinator) CreateRequest(ctx context.Context, actor auth.Actor, memberID, bookID int64) (requests.Request, error) {
	if err := auth.RequireSelfOrAdmin(actor, memberID); err != nil {
		return requests.Request{}, err
	}
	if err := c.members.Exists(ctx, memberID); err != nil {
		return requests.Request{}, err
	}
	if _, err := c.ledger.GetBook(ctx, bookID); err != nil {
		return requests.Request{}, err
	}
	r, err := c.machine.Create(ctx, memberID, bookID)
	if err != nil {
		return requests.Request{}, err
	}
	requestid.Logger(ctx).Info("request created", "loan_request_id", r.RequestID, "member_id", memberID, "book_id", bookID)
	return r, nil
}

func (c *Coordinator) GetRequest(ctx context.Context, actor auth.Actor, id int64) (requests.Request, error) {
	r, err := c.machine.Get(ctx, id)
	if err != nil {
		return requests.Request{}, err
	}
	if err := auth.RequireSelfOrAdmin(actor, r.MemberID); err != nil {
		return requests.Request{}, err
	}
	return r, nil
}

func (c *Coordinator) GetRequestByULID(ctx context.Context, actor auth.Actor, ulid string) (requests.Request, error) {
	r, err := c.machine.GetByULID(ctx, ulid)
	if err != nil {
		return requests.Request{}, err
	}
	if err := auth.RequireSelfOrAdmin(actor, r.MemberID); err != nil {
		return requests.Request{}, err
	}
	return r, nil
}

// AcceptRequest issues one copy for a requested request.
// bookID 0 means "the request's own book".
func (c *Coordinator) AcceptRequest(ctx context.Context, requestID, bookID int64, role auth.Role) (requests.Request, error) {
	cur, err := c.load(ctx, role, requestID, bookID, requests.StatusSuccess)
	if err != nil {
		return cur, err
	}

	book, err := c.ledger.GetBook(ctx, cur.BookID)
	if err != nil {
		return cur, err
	}
	if book.AvailableCopies <= 0 {
		return cur, apperr.ErrNoCopiesAvailable()
	}

	next, err := c.pair(ctx, "issue_copy", cur, RequestMachine.Accept, Ledger.IssueCopy)
	if err != nil {
		return cur, err
	}

	requestid.Logger(ctx).Info("request accepted", "loan_request_id", next.RequestID, "book_id", next.BookID)
	return next, nil
}

// DeclineRequest has no inventory effect.
func (c *Coordinator) DeclineRequest(ctx context.Context, requestID int64, role auth.Role) (requests.Request, error) {
	cur, err := c.load(ctx, role, requestID, 0, requests.StatusDeclined)
	if err != nil {
		return cur, err
	}
	next, err := c.machine.Decline(ctx, cur)
	if err != nil {
		return cur, err
	}
	requestid.Logger(ctx).Info("request declined", "loan_request_id", next.RequestID)
	return next, nil
}

// ReturnRequest closes a loan and puts the copy back.
func (c *Coordinator) ReturnRequest(ctx context.Context, requestID, bookID int64, role auth.Role) (requests.Request, error) {
	cur, err := c.load(ctx, role, requestID, bookID, requests.StatusReturned)
	if err != nil {
		return cur, err
	}

	next, err := c.pair(ctx, "return_copy", cur, RequestMachine.Return, Ledger.ReturnCopy)
	if err != nil {
		return cur, err
	}

	requestid.Logger(ctx).Info("request returned", "loan_request_id", next.RequestID, "book_id", next.BookID)
	return next, nil
}

// load runs the checks shared by every admin transition.
func (c *Coordinator) load(ctx context.Context, role auth.Role, requestID, bookID int64, to requests.Status) (requests.Request, error) {
	if err := auth.RequireAdmin(role); err != nil {
		return requests.Request{}, err
	}
	cur, err := c.machine.Get(ctx, requestID)
	if err != nil {
		return requests.Request{}, err
	}
	if bookID != 0 && bookID != cur.BookID {
		return cur, apperr.ErrInvalid(fmt.Sprintf("request %d is for book %d, not %d", requestID, cur.BookID, bookID))
	}
	if !requests.CanTransition(cur.Status, to) {
		return cur, apperr.ErrInvalidTransition(string(cur.Status), string(to))
	}
	return cur, nil
}

// pair applies a request transition and its ledger step as one change.
func (c *Coordinator) pair(
	ctx context.Context,
	step string,
	cur requests.Request,
	transit func(RequestMachine, context.Context, requests.Request) (requests.Request, error),
	move func(Ledger, context.Context, int64) error,
) (requests.Request, error) {
	if c.unit != nil {
		var next requests.Request
		err := c.unit.Do(ctx, func(ctx context.Context, m RequestMachine, l Ledger) error {
			n, err := transit(m, ctx, cur)
			if err != nil {
				return err
			}
			if err := move(l, ctx, cur.BookID); err != nil {
				return err
			}
			next = n
			return nil
		})
		if err != nil {
			requestid.Logger(ctx).Info("transition rolled back", "loan_request_id", cur.RequestID, "book_id", cur.BookID, "step", step, "err", err)
			return cur, err
		}
		return next, nil
	}

	next, err := transit(c.machine, ctx, cur)
	if err != nil {
		return cur, err
	}
	if err := move(c.ledger, ctx, cur.BookID); err != nil {
		return cur, c.compensate(ctx, step, next, cur, err)
	}
	return next, nil
}

// compensate puts the request back to prev after the ledger step failed.
// It runs even if the caller's context is already cancelled.
func (c *Coordinator) compensate(ctx context.Context, step string, applied, prev requests.Request, cause error) error {
	log := requestid.Logger(ctx).With("loan_request_id", applied.RequestID, "book_id", applied.BookID, "step", step)
	log.Warn("ledger step failed, reverting request", "from", applied.Status, "to", prev.Status, "err", cause)

	bg := context.WithoutCancel(ctx)
	err := retry.Do(bg, func(ctx context.Context) error {
		return c.machine.Revert(ctx, applied, prev)
	}, c.revert...)
	if err != nil {
		log.Error("compensation failed, request and inventory disagree", "err", err, "cause", cause)
		return apperr.ErrInternal(fmt.Sprintf("request %d could not be reverted after %s failed", applied.RequestID, step))
	}
	return cause
}
