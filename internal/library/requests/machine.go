package requests

import (
	"context"
	"crypto/rand"
	"time"

	"github.com/oklog/ulid/v2"

	"library-backend/internal/platform/db"
)

// ===== インターフェース群 =====

type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now().UTC() }

type IDGen interface {
	New() (string, error)
}

type ulidGen struct{}

func (ulidGen) New() (string, error) {
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(time.Now().UTC()), entropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// ===== Machine本体 =====

// Machine persists request lifecycle transitions. Every write is a
// compare-and-swap on the current status, so two admins racing on the
// same request cannot both win.
type Machine struct {
	store *Store
	clock Clock
	id    IDGen
}

func NewMachine(conn db.DBTX) *Machine {
	return &Machine{store: NewStore(conn), clock: realClock{}, id: ulidGen{}}
}

// WithClock swaps the time source. Tests only.
func (m *Machine) WithClock(c Clock) *Machine {
	m.clock = c
	return m
}

// Create opens a request in the requested state. Inventory is untouched.
func (m *Machine) Create(ctx context.Context, memberID, bookID int64) (Request, error) {
	idStr, err := m.id.New()
	if err != nil {
		return Request{}, err
	}
	r := Request{
		RequestULID: idStr,
		MemberID:    memberID,
		BookID:      bookID,
		RequestDate: m.clock.Now(),
		Status:      StatusRequested,
	}
	if err := m.store.Insert(ctx, &r); err != nil {
		return Request{}, err
	}
	return r, nil
}

func (m *Machine) Get(ctx context.Context, id int64) (Request, error) {
	return m.store.GetByID(ctx, id)
}

func (m *Machine) GetByULID(ctx context.Context, ulid string) (Request, error) {
	return m.store.GetByULID(ctx, ulid)
}

func (m *Machine) Accept(ctx context.Context, cur Request) (Request, error) {
	next, err := Accept(cur, m.clock.Now())
	if err != nil {
		return cur, err
	}
	return m.apply(ctx, cur, next)
}

func (m *Machine) Decline(ctx context.Context, cur Request) (Request, error) {
	next, err := Decline(cur)
	if err != nil {
		return cur, err
	}
	return m.apply(ctx, cur, next)
}

func (m *Machine) Return(ctx context.Context, cur Request) (Request, error) {
	next, err := Return(cur, m.clock.Now())
	if err != nil {
		return cur, err
	}
	return m.apply(ctx, cur, next)
}

// Revert undoes a transition whose inventory half failed. It restores prev
// only if the row still holds applied's status.
func (m *Machine) Revert(ctx context.Context, applied, prev Request) error {
	return m.store.CompareAndSwap(ctx, applied.Status, prev)
}

func (m *Machine) apply(ctx context.Context, cur, next Request) (Request, error) {
	if err := m.store.CompareAndSwap(ctx, cur.Status, next); err != nil {
		return cur, err
	}
	return next, nil
}
