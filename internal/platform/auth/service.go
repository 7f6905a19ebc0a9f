package auth

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"library-backend/internal/platform/apperr"
)

// ErrAuthFailed hides whether the email or the password was wrong.
var ErrAuthFailed = errors.New("authentication failed")

// CredentialStore looks up login data by email. A missing member is
// reported as apperr NOT_FOUND.
type CredentialStore interface {
	Credentials(ctx context.Context, email string) (Credential, error)
}

type AuthService interface {
	Login(ctx context.Context, email, password string) (string, error)
}

type Service struct {
	store  CredentialStore
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewService(store CredentialStore, secret []byte, ttl time.Duration) *Service {
	return &Service{store: store, secret: secret, ttl: ttl, now: time.Now}
}

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func (s *Service) Login(ctx context.Context, email, password string) (string, error) {
	cred, err := s.store.Credentials(ctx, email)
	if apperr.Is(err, apperr.CodeNotFound) {
		return "", ErrAuthFailed
	}
	if err != nil {
		return "", err
	}
	if cred.Disabled || cred.PasswordHash == "" {
		return "", ErrAuthFailed
	}
	if err := bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(password)); err != nil {
		return "", ErrAuthFailed
	}
	return s.Issue(Actor{MemberID: cred.MemberID, Role: cred.Role})
}

// Issue signs an HS256 token carrying sub (member id) and role.
func (s *Service) Issue(a Actor) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  strconv.FormatInt(a.MemberID, 10),
		"role": string(a.Role),
		"exp":  s.now().Add(s.ttl).Unix(),
	})
	return token.SignedString(s.secret)
}
