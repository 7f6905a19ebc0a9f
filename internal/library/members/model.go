package members

import (
	"database/sql"
	"time"

	"library-backend/internal/platform/auth"
)

const (
	StatusActive    = "active"
	StatusSuspended = "suspended"
)

// Member は members テーブルの1行。id と role は作成後に変わらない。
type Member struct {
	MemberID         int64          `db:"member_id"`
	FirstName        string         `db:"first_name"`
	LastName         string         `db:"last_name"`
	Email            string         `db:"email"`
	PhoneNumber      sql.NullString `db:"phone_number"`
	Address          sql.NullString `db:"address"`
	PasswordHash     sql.NullString `db:"password_hash"`
	Role             auth.Role      `db:"role"`
	MembershipStatus string         `db:"membership_status"`
	CreatedAt        time.Time      `db:"created_at"`
}
