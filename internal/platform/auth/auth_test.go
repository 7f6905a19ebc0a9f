package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"library-backend/internal/platform/apperr"
)

var secret = []byte("test-secret")

type memCreds map[string]Credential

func (m memCreds) Credentials(_ context.Context, email string) (Credential, error) {
	c, ok := m[email]
	if !ok {
		return Credential{}, apperr.ErrNotFound("member not found")
	}
	return c, nil
}

func newCreds(t *testing.T) memCreds {
	t.Helper()
	hash, err := HashPassword("correct horse")
	require.NoError(t, err)
	return memCreds{
		"admin@example.com":    {MemberID: 1, PasswordHash: hash, Role: RoleAdmin},
		"disabled@example.com": {MemberID: 2, PasswordHash: hash, Role: RoleUser, Disabled: true},
	}
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newCreds(t), secret, time.Hour)

	token, err := svc.Login(ctx, "admin@example.com", "correct horse")
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	_, err = svc.Login(ctx, "admin@example.com", "wrong")
	assert.ErrorIs(t, err, ErrAuthFailed)

	_, err = svc.Login(ctx, "nobody@example.com", "correct horse")
	assert.ErrorIs(t, err, ErrAuthFailed)

	_, err = svc.Login(ctx, "disabled@example.com", "correct horse")
	assert.ErrorIs(t, err, ErrAuthFailed)
}

func newProtectedRouter(seen *Actor) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	g := r.Group("/", RequireAuth(secret))
	g.GET("/me", func(c *gin.Context) {
		*seen, _ = ActorFrom(c)
		c.Status(http.StatusNoContent)
	})
	g.GET("/admin", RequireRole(RoleAdmin), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r
}

func get(r http.Handler, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequireAuth_SetsActor(t *testing.T) {
	svc := NewService(nil, secret, time.Hour)
	token, err := svc.Issue(Actor{MemberID: 42, Role: RoleUser})
	require.NoError(t, err)

	var seen Actor
	w := get(newProtectedRouter(&seen), "/me", token)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, Actor{MemberID: 42, Role: RoleUser}, seen)
}

func TestRequireAuth_Rejects(t *testing.T) {
	var seen Actor
	r := newProtectedRouter(&seen)

	assert.Equal(t, http.StatusUnauthorized, get(r, "/me", "").Code)
	assert.Equal(t, http.StatusUnauthorized, get(r, "/me", "not-a-jwt").Code)

	other := NewService(nil, []byte("other-secret"), time.Hour)
	forged, err := other.Issue(Actor{MemberID: 1, Role: RoleAdmin})
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, get(r, "/me", forged).Code)

	expired := NewService(nil, secret, -time.Minute)
	old, err := expired.Issue(Actor{MemberID: 1, Role: RoleAdmin})
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, get(r, "/me", old).Code)

	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "1", "role": "admin"}).SignedString(secret)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, get(r, "/me", noExp).Code)
}

func TestRequireRole(t *testing.T) {
	svc := NewService(nil, secret, time.Hour)
	user, err := svc.Issue(Actor{MemberID: 7, Role: RoleUser})
	require.NoError(t, err)
	admin, err := svc.Issue(Actor{MemberID: 1, Role: RoleAdmin})
	require.NoError(t, err)

	var seen Actor
	r := newProtectedRouter(&seen)

	w := get(r, "/admin", user)
	assert.Equal(t, http.StatusForbidden, w.Code)
	var body apperr.ErrorDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, apperr.CodeUnauthorized, body.Error.Code)

	assert.Equal(t, http.StatusNoContent, get(r, "/admin", admin).Code)
}

func TestLoginHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterRoutes(r, NewService(newCreds(t), secret, time.Hour))

	post := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/login", bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	w := post(`{"email":"admin@example.com","password":"correct horse"}`)
	require.Equal(t, http.StatusOK, w.Code)
	var res LoginResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.NotEmpty(t, res.Token)

	assert.Equal(t, http.StatusUnauthorized, post(`{"email":"admin@example.com","password":"nope"}`).Code)
	assert.Equal(t, http.StatusBadRequest, post(`{"email":""}`).Code)
}

func TestRequireSelfOrAdmin(t *testing.T) {
	assert.NoError(t, RequireSelfOrAdmin(Actor{MemberID: 3, Role: RoleUser}, 3))
	assert.NoError(t, RequireSelfOrAdmin(Actor{MemberID: 1, Role: RoleAdmin}, 3))
	assert.True(t, apperr.Is(RequireSelfOrAdmin(Actor{MemberID: 4, Role: RoleUser}, 3), apperr.CodeUnauthorized))
	assert.True(t, apperr.Is(RequireAdmin(RoleUser), apperr.CodeUnauthorized))
}
