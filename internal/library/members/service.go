package members

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"library-backend/internal/platform/apperr"
	"library-backend/internal/platform/auth"
)

const minPasswordLen = 8

type Service struct {
	store *Store
	now   func() time.Time
}

func NewService(conn *sql.DB) *Service {
	return &Service{store: NewStore(conn), now: func() time.Time { return time.Now().UTC() }}
}

// Store exposes the member store for auth.CredentialStore wiring.
func (s *Service) Store() *Store { return s.store }

// Register は一般会員の自己登録。role は常に user。
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*MemberResponse, error) {
	return s.create(ctx, req, auth.RoleUser)
}

// CreateAdmin is used by the create-admin command only.
func (s *Service) CreateAdmin(ctx context.Context, req RegisterRequest) (*MemberResponse, error) {
	return s.create(ctx, req, auth.RoleAdmin)
}

func (s *Service) create(ctx context.Context, req RegisterRequest, role auth.Role) (*MemberResponse, error) {
	if err := validateNames(&req.FirstName, &req.LastName); err != nil {
		return nil, err
	}
	if err := validateEmail(req.Email); err != nil {
		return nil, err
	}
	if len(req.Password) < minPasswordLen {
		return nil, apperr.ErrInvalid("password must be at least 8 characters")
	}
	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	m := Member{
		FirstName:        req.FirstName,
		LastName:         req.LastName,
		Email:            normalizeEmail(req.Email),
		PasswordHash:     sql.NullString{String: hash, Valid: true},
		Role:             role,
		MembershipStatus: StatusActive,
		CreatedAt:        s.now(),
	}
	if req.PhoneNumber != nil {
		m.PhoneNumber = nullable(*req.PhoneNumber)
	}
	if req.Address != nil {
		m.Address = nullable(*req.Address)
	}
	if err := s.store.Insert(ctx, &m); err != nil {
		return nil, err
	}
	res := toResponse(m)
	return &res, nil
}

func (s *Service) GetMember(ctx context.Context, actor auth.Actor, id int64) (*MemberResponse, error) {
	if err := auth.RequireSelfOrAdmin(actor, id); err != nil {
		return nil, err
	}
	m, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	res := toResponse(m)
	return &res, nil
}

// Exists is used by the loan coordinator before opening a request.
func (s *Service) Exists(ctx context.Context, id int64) error {
	_, err := s.store.GetByID(ctx, id)
	return err
}

func (s *Service) UpdateProfile(ctx context.Context, actor auth.Actor, id int64, in UpdateProfileRequest) (*MemberResponse, error) {
	if err := auth.RequireSelfOrAdmin(actor, id); err != nil {
		return nil, err
	}
	for _, name := range []*string{in.FirstName, in.LastName} {
		if name == nil {
			continue
		}
		if *name = strings.TrimSpace(*name); *name == "" {
			return nil, apperr.ErrInvalid("first_name and last_name must not be empty")
		}
	}
	if in.Email != nil {
		if err := validateEmail(*in.Email); err != nil {
			return nil, err
		}
	}

	var hash string
	if in.Password != nil {
		if len(*in.Password) < minPasswordLen {
			return nil, apperr.ErrInvalid("password must be at least 8 characters")
		}
		h, err := auth.HashPassword(*in.Password)
		if err != nil {
			return nil, err
		}
		hash = h
	}

	if err := s.store.UpdateProfile(ctx, id, in, hash); err != nil {
		return nil, err
	}
	m, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	res := toResponse(m)
	return &res, nil
}

func validateNames(first, last *string) error {
	*first = strings.TrimSpace(*first)
	*last = strings.TrimSpace(*last)
	if *first == "" || *last == "" {
		return apperr.ErrInvalid("first_name and last_name are required")
	}
	return nil
}

func validateEmail(email string) error {
	email = strings.TrimSpace(email)
	at := strings.IndexByte(email, '@')
	if at <= 0 || at == len(email)-1 {
		return apperr.ErrInvalid("invalid email")
	}
	return nil
}
