package loans

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"library-backend/internal/library/inventory"
	"library-backend/internal/library/members"
	"library-backend/internal/library/requests"
	"library-backend/internal/platform/apperr"
	"library-backend/internal/platform/auth"
	"library-backend/internal/platform/dbtest"
)

type fixture struct {
	conn    *sql.DB
	machine *requests.Machine
	ledger  *inventory.Service
	members *members.Service
	coord   *Coordinator
	member  auth.Actor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	conn := dbtest.Open(t)
	f := &fixture{
		conn:    conn,
		machine: requests.NewMachine(conn),
		ledger:  inventory.NewService(conn),
		members: members.NewService(conn),
	}
	f.coord = NewSQLCoordinator(conn, f.members)

	m, err := f.members.Register(context.Background(), members.RegisterRequest{
		FirstName: "Grace", LastName: "Hopper", Email: "grace@example.com", Password: "cobol-1959",
	})
	require.NoError(t, err)
	f.member = auth.Actor{MemberID: m.MemberID, Role: auth.RoleUser}
	return f
}

func (f *fixture) book(t *testing.T, title string, copies int) int64 {
	t.Helper()
	res, err := f.ledger.AddStock(context.Background(), auth.RoleAdmin, inventory.AddStockRequest{
		ISBN: "9780000000002", Title: title, Delta: copies,
	})
	require.NoError(t, err)
	return res.Book.BookID
}

func (f *fixture) request(t *testing.T, bookID int64) requests.Request {
	t.Helper()
	r, err := f.coord.CreateRequest(context.Background(), f.member, f.member.MemberID, bookID)
	require.NoError(t, err)
	return r
}

func (f *fixture) available(t *testing.T, bookID int64) int {
	t.Helper()
	b, err := f.ledger.GetBook(context.Background(), bookID)
	require.NoError(t, err)
	return b.AvailableCopies
}

func (f *fixture) status(t *testing.T, id int64) requests.Request {
	t.Helper()
	r, err := f.machine.Get(context.Background(), id)
	require.NoError(t, err)
	return r
}

func TestScenario_AcceptThenReturn(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := f.book(t, "Book A", 2)

	r1 := f.request(t, a)
	assert.Equal(t, requests.StatusRequested, r1.Status)
	assert.Equal(t, 2, f.available(t, a))

	got, err := f.coord.AcceptRequest(ctx, r1.RequestID, a, auth.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, requests.StatusSuccess, got.Status)
	assert.Equal(t, 1, f.available(t, a))
	stored := f.status(t, r1.RequestID)
	assert.Equal(t, requests.StatusSuccess, stored.Status)
	assert.True(t, stored.IssuedDate.Valid)

	got, err = f.coord.ReturnRequest(ctx, r1.RequestID, a, auth.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, requests.StatusReturned, got.Status)
	assert.Equal(t, 2, f.available(t, a))
	stored = f.status(t, r1.RequestID)
	assert.Equal(t, requests.StatusReturned, stored.Status)
	assert.True(t, stored.IssuedDate.Valid)
	assert.True(t, stored.ReturnDate.Valid)
}

func TestScenario_NoCopiesLeavesRequestRequested(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	b := f.book(t, "Book B", 1)

	holder := f.request(t, b)
	_, err := f.coord.AcceptRequest(ctx, holder.RequestID, b, auth.RoleAdmin)
	require.NoError(t, err)
	require.Equal(t, 0, f.available(t, b))

	r2 := f.request(t, b)
	_, err = f.coord.AcceptRequest(ctx, r2.RequestID, b, auth.RoleAdmin)
	assert.True(t, apperr.Is(err, apperr.CodeNoCopiesAvailable))
	assert.Equal(t, requests.StatusRequested, f.status(t, r2.RequestID).Status)
	assert.Equal(t, 0, f.available(t, b))
}

func TestAdminOperationsRequireAdmin(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	b := f.book(t, "Book", 1)
	r := f.request(t, b)

	_, err := f.coord.AcceptRequest(ctx, r.RequestID, b, auth.RoleUser)
	assert.True(t, apperr.Is(err, apperr.CodeUnauthorized))
	_, err = f.coord.DeclineRequest(ctx, r.RequestID, auth.RoleUser)
	assert.True(t, apperr.Is(err, apperr.CodeUnauthorized))
	_, err = f.coord.ReturnRequest(ctx, r.RequestID, b, "")
	assert.True(t, apperr.Is(err, apperr.CodeUnauthorized))

	assert.Equal(t, requests.StatusRequested, f.status(t, r.RequestID).Status)
	assert.Equal(t, 1, f.available(t, b))
}

func TestAcceptTwice_SecondFailsWithoutDoubleIssue(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	b := f.book(t, "Book", 3)
	r := f.request(t, b)

	_, err := f.coord.AcceptRequest(ctx, r.RequestID, b, auth.RoleAdmin)
	require.NoError(t, err)
	_, err = f.coord.AcceptRequest(ctx, r.RequestID, b, auth.RoleAdmin)
	assert.True(t, apperr.Is(err, apperr.CodeInvalidTransition))
	assert.Equal(t, 2, f.available(t, b))
}

func TestTerminalStatesAreImmutable(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	b := f.book(t, "Book", 2)

	declined := f.request(t, b)
	_, err := f.coord.DeclineRequest(ctx, declined.RequestID, auth.RoleAdmin)
	require.NoError(t, err)

	returned := f.request(t, b)
	_, err = f.coord.AcceptRequest(ctx, returned.RequestID, b, auth.RoleAdmin)
	require.NoError(t, err)
	_, err = f.coord.ReturnRequest(ctx, returned.RequestID, b, auth.RoleAdmin)
	require.NoError(t, err)

	for _, id := range []int64{declined.RequestID, returned.RequestID} {
		_, err = f.coord.AcceptRequest(ctx, id, b, auth.RoleAdmin)
		assert.True(t, apperr.Is(err, apperr.CodeInvalidTransition))
		_, err = f.coord.DeclineRequest(ctx, id, auth.RoleAdmin)
		assert.True(t, apperr.Is(err, apperr.CodeInvalidTransition))
		_, err = f.coord.ReturnRequest(ctx, id, b, auth.RoleAdmin)
		assert.True(t, apperr.Is(err, apperr.CodeInvalidTransition))
	}
	assert.Equal(t, 2, f.available(t, b))
}

func TestReturnBeforeIssue(t *testing.T) {
	f := newFixture(t)
	b := f.book(t, "Book", 1)
	r := f.request(t, b)

	_, err := f.coord.ReturnRequest(context.Background(), r.RequestID, b, auth.RoleAdmin)
	assert.True(t, apperr.Is(err, apperr.CodeInvalidTransition))
	assert.Equal(t, 1, f.available(t, b))
}

func TestBookMismatchAndMissing(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	b := f.book(t, "Book", 1)
	other := f.book(t, "Other", 1)
	r := f.request(t, b)

	_, err := f.coord.AcceptRequest(ctx, r.RequestID, other, auth.RoleAdmin)
	assert.True(t, apperr.Is(err, apperr.CodeInvalidArgument))
	assert.Equal(t, 1, f.available(t, other))

	// bookID 0 は申請の本を使う
	_, err = f.coord.AcceptRequest(ctx, r.RequestID, 0, auth.RoleAdmin)
	assert.NoError(t, err)

	_, err = f.coord.AcceptRequest(ctx, 9999, b, auth.RoleAdmin)
	assert.True(t, apperr.Is(err, apperr.CodeNotFound))
}

func TestCreateRequest(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	b := f.book(t, "Book", 1)

	_, err := f.coord.CreateRequest(ctx, f.member, f.member.MemberID+1, b)
	assert.True(t, apperr.Is(err, apperr.CodeUnauthorized))

	_, err = f.coord.CreateRequest(ctx, auth.Actor{MemberID: 1, Role: auth.RoleAdmin}, 777, b)
	assert.True(t, apperr.Is(err, apperr.CodeNotFound))

	_, err = f.coord.CreateRequest(ctx, f.member, f.member.MemberID, 777)
	assert.True(t, apperr.Is(err, apperr.CodeNotFound))

	// 申請だけでは在庫は動かない
	r := f.request(t, b)
	assert.Equal(t, 1, f.available(t, b))
	assert.False(t, r.RequestDate.IsZero())

	_, err = f.coord.GetRequest(ctx, auth.Actor{MemberID: 999, Role: auth.RoleUser}, r.RequestID)
	assert.True(t, apperr.Is(err, apperr.CodeUnauthorized))
	got, err := f.coord.GetRequest(ctx, f.member, r.RequestID)
	require.NoError(t, err)
	assert.Equal(t, r.RequestULID, got.RequestULID)
}

func TestConcurrentAccept_ExactlyOneWins(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	b := f.book(t, "Last copy", 1)
	r1 := f.request(t, b)
	r2 := f.request(t, b)

	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i, id := range []int64{r1.RequestID, r2.RequestID} {
		wg.Add(1)
		go func(i int, id int64) {
			defer wg.Done()
			_, errs[i] = f.coord.AcceptRequest(ctx, id, b, auth.RoleAdmin)
		}(i, id)
	}
	wg.Wait()

	var wins, empty int
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		case apperr.Is(err, apperr.CodeNoCopiesAvailable):
			empty++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, 1, empty)
	assert.Equal(t, 0, f.available(t, b))

	statuses := map[requests.Status]int{}
	for _, id := range []int64{r1.RequestID, r2.RequestID} {
		statuses[f.status(t, id).Status]++
	}
	assert.Equal(t, map[requests.Status]int{requests.StatusSuccess: 1, requests.StatusRequested: 1}, statuses)
}

// ---- partial failure ----

// flakyLedger passes reads through but fails the write step.
type flakyLedger struct {
	Ledger
	err error
}

func (l flakyLedger) IssueCopy(context.Context, int64) error  { return l.err }
func (l flakyLedger) ReturnCopy(context.Context, int64) error { return l.err }

// stuckMachine cannot revert.
type stuckMachine struct {
	RequestMachine
	calls int
}

func (m *stuckMachine) Revert(context.Context, requests.Request, requests.Request) error {
	m.calls++
	return errors.New("connection reset")
}

func TestAccept_RollsBackWhenIssueFails(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	b := f.book(t, "Book", 1)
	r := f.request(t, b)

	boom := errors.New("disk I/O error")
	coord := NewCoordinator(f.machine, flakyLedger{Ledger: f.ledger, err: boom}, f.members)

	_, err := coord.AcceptRequest(ctx, r.RequestID, b, auth.RoleAdmin)
	assert.ErrorIs(t, err, boom)

	stored := f.status(t, r.RequestID)
	assert.Equal(t, requests.StatusRequested, stored.Status)
	assert.False(t, stored.IssuedDate.Valid)
	assert.Equal(t, 1, f.available(t, b))
}

func TestReturn_RollsBackWhenLedgerRejects(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	b := f.book(t, "Book", 1)
	r := f.request(t, b)
	_, err := f.coord.AcceptRequest(ctx, r.RequestID, b, auth.RoleAdmin)
	require.NoError(t, err)

	coord := NewCoordinator(f.machine, flakyLedger{Ledger: f.ledger, err: apperr.ErrOverReturn()}, f.members)
	_, err = coord.ReturnRequest(ctx, r.RequestID, b, auth.RoleAdmin)
	assert.True(t, apperr.Is(err, apperr.CodeOverReturn))

	stored := f.status(t, r.RequestID)
	assert.Equal(t, requests.StatusSuccess, stored.Status)
	assert.False(t, stored.ReturnDate.Valid)
	assert.Equal(t, 0, f.available(t, b))
}

func TestCompensationFailureSurfacesInternal(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	b := f.book(t, "Book", 1)
	r := f.request(t, b)

	stuck := &stuckMachine{RequestMachine: f.machine}
	coord := NewCoordinator(stuck, flakyLedger{Ledger: f.ledger, err: errors.New("boom")}, f.members)

	_, err := coord.AcceptRequest(ctx, r.RequestID, b, auth.RoleAdmin)
	assert.True(t, apperr.Is(err, apperr.CodeInternal))
	assert.Greater(t, stuck.calls, 1)
}

// ---- 同一トランザクション ----

func TestAccept_TxRollsBackWhenIssueFails(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	b := f.book(t, "Book", 1)
	r := f.request(t, b)

	boom := errors.New("disk I/O error")
	coord := NewSQLCoordinator(f.conn, f.members)
	coord.unit = sqlUnit{db: f.conn, wrap: func(l Ledger) Ledger { return flakyLedger{Ledger: l, err: boom} }}

	_, err := coord.AcceptRequest(ctx, r.RequestID, b, auth.RoleAdmin)
	assert.ErrorIs(t, err, boom)

	stored := f.status(t, r.RequestID)
	assert.Equal(t, requests.StatusRequested, stored.Status)
	assert.False(t, stored.IssuedDate.Valid)
	assert.Equal(t, 1, f.available(t, b))
}

// interleavedLedger runs during inside the ledger step, then reports the
// book empty.
type interleavedLedger struct {
	Ledger
	during func()
}

func (l interleavedLedger) IssueCopy(context.Context, int64) error {
	l.during()
	return apperr.ErrNoCopiesAvailable()
}

func TestAccept_NoOneSeesHalfAppliedTransition(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	b := f.book(t, "Book", 2)

	r0 := f.request(t, b)
	_, err := f.coord.AcceptRequest(ctx, r0.RequestID, b, auth.RoleAdmin)
	require.NoError(t, err)
	r1 := f.request(t, b)

	// accept(r1) の途中で別の管理者が r1 を返却しようとする
	done := make(chan error, 1)
	coord := NewSQLCoordinator(f.conn, f.members)
	coord.unit = sqlUnit{db: f.conn, wrap: func(l Ledger) Ledger {
		return interleavedLedger{Ledger: l, during: func() {
			go func() {
				_, err := f.coord.ReturnRequest(ctx, r1.RequestID, b, auth.RoleAdmin)
				done <- err
			}()
		}}
	}}

	_, err = coord.AcceptRequest(ctx, r1.RequestID, b, auth.RoleAdmin)
	assert.True(t, apperr.Is(err, apperr.CodeNoCopiesAvailable))

	err = <-done
	assert.True(t, apperr.Is(err, apperr.CodeInvalidTransition), "concurrent return: %v", err)

	assert.Equal(t, requests.StatusRequested, f.status(t, r1.RequestID).Status)
	assert.Equal(t, requests.StatusSuccess, f.status(t, r0.RequestID).Status)
	assert.Equal(t, 1, f.available(t, b))
}
