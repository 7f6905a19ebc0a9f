package members

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"library-backend/internal/platform/apperr"
	"library-backend/internal/platform/auth"
	"library-backend/internal/platform/db"
)

type Store struct {
	db db.DBTX
}

func NewStore(conn db.DBTX) *Store { return &Store{db: conn} }

const selectMember = `
	SELECT member_id, first_name, last_name, email, phone_number, address,
	       password_hash, role, membership_status, created_at
	FROM members`

func scanMember(row *sql.Row) (Member, error) {
	var m Member
	err := row.Scan(&m.MemberID, &m.FirstName, &m.LastName, &m.Email, &m.PhoneNumber,
		&m.Address, &m.PasswordHash, &m.Role, &m.MembershipStatus, &m.CreatedAt)
	return m, err
}

func (s *Store) Insert(ctx context.Context, m *Member) error {
	const q = `
		INSERT INTO members (first_name, last_name, email, phone_number, address,
		                     password_hash, role, membership_status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := s.db.ExecContext(ctx, q, m.FirstName, m.LastName, m.Email, m.PhoneNumber,
		m.Address, m.PasswordHash, m.Role, m.MembershipStatus, m.CreatedAt)
	if db.IsDuplicateKey(err) {
		return apperr.ErrConflict("email already registered")
	}
	if err != nil {
		return fmt.Errorf("insert member: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	m.MemberID = id
	return nil
}

func (s *Store) GetByID(ctx context.Context, id int64) (Member, error) {
	m, err := scanMember(s.db.QueryRowContext(ctx, selectMember+` WHERE member_id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Member{}, apperr.ErrNotFound(fmt.Sprintf("member %d not found", id))
	}
	return m, err
}

func (s *Store) GetByEmail(ctx context.Context, email string) (Member, error) {
	m, err := scanMember(s.db.QueryRowContext(ctx, selectMember+` WHERE email = ?`, normalizeEmail(email)))
	if errors.Is(err, sql.ErrNoRows) {
		return Member{}, apperr.ErrNotFound("member not found")
	}
	return m, err
}

// Credentials は auth.CredentialStore の実装
func (s *Store) Credentials(ctx context.Context, email string) (auth.Credential, error) {
	m, err := s.GetByEmail(ctx, email)
	if err != nil {
		return auth.Credential{}, err
	}
	return auth.Credential{
		MemberID:     m.MemberID,
		PasswordHash: m.PasswordHash.String,
		Role:         m.Role,
		Disabled:     m.MembershipStatus != StatusActive,
	}, nil
}

// UpdateProfile applies the non-nil fields. passwordHash replaces the stored
// hash when non-empty. Role and id are never written here.
func (s *Store) UpdateProfile(ctx context.Context, id int64, in UpdateProfileRequest, passwordHash string) error {
	// 動的アップデート
	sets := []string{}
	args := []any{}
	if in.FirstName != nil {
		sets = append(sets, "first_name = ?")
		args = append(args, *in.FirstName)
	}
	if in.LastName != nil {
		sets = append(sets, "last_name = ?")
		args = append(args, *in.LastName)
	}
	if in.Email != nil {
		sets = append(sets, "email = ?")
		args = append(args, normalizeEmail(*in.Email))
	}
	if in.PhoneNumber != nil {
		sets = append(sets, "phone_number = ?")
		args = append(args, nullable(*in.PhoneNumber))
	}
	if in.Address != nil {
		sets = append(sets, "address = ?")
		args = append(args, nullable(*in.Address))
	}
	if passwordHash != "" {
		sets = append(sets, "password_hash = ?")
		args = append(args, passwordHash)
	}
	if len(sets) == 0 {
		// 変更なしでも存在チェックだけはする
		_, err := s.GetByID(ctx, id)
		return err
	}

	q := "UPDATE members SET " + strings.Join(sets, ", ") + " WHERE member_id = ?"
	args = append(args, id)
	res, err := s.db.ExecContext(ctx, q, args...)
	if db.IsDuplicateKey(err) {
		return apperr.ErrConflict("email already registered")
	}
	if err != nil {
		return fmt.Errorf("update member: %w", err)
	}
	if aff, _ := res.RowsAffected(); aff == 0 {
		// SQLite/MySQL とも値が同じでも一致行を数えるとは限らないので再確認
		_, err := s.GetByID(ctx, id)
		return err
	}
	return nil
}

func normalizeEmail(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// nullable maps "" to NULL for optional columns.
func nullable(s string) sql.NullString {
	s = strings.TrimSpace(s)
	return sql.NullString{String: s, Valid: s != ""}
}
