package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{ErrInvalid("x"), http.StatusBadRequest},
		{ErrNotFound("x"), http.StatusNotFound},
		{ErrUnauthorized("x"), http.StatusForbidden},
		{ErrInvalidTransition("declined", "success"), http.StatusConflict},
		{ErrNoCopiesAvailable(), http.StatusConflict},
		{ErrBookInUse("x"), http.StatusConflict},
		{ErrOverReturn(), http.StatusConflict},
		{ErrInternal("x"), http.StatusInternalServerError},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, HTTPStatus(tc.err), tc.err.Error())
	}
}

func TestIs_SeesThroughWrapping(t *testing.T) {
	err := fmt.Errorf("accept: %w", ErrNoCopiesAvailable())

	assert.True(t, Is(err, CodeNoCopiesAvailable))
	assert.False(t, Is(err, CodeNotFound))
	assert.Equal(t, CodeNoCopiesAvailable, CodeOf(err))
}

func TestBodyFrom_HidesRawErrors(t *testing.T) {
	body := BodyFrom(errors.New("dial tcp 10.0.0.1:3306: connection refused"))

	assert.Equal(t, CodeInternal, body.Error.Code)
	assert.Equal(t, "internal error", body.Error.Message)

	body = BodyFrom(ErrBookInUse("book has active requests"))
	assert.Equal(t, CodeBookInUse, body.Error.Code)
	assert.Equal(t, "book has active requests", body.Error.Message)
}

func TestWrite(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/books/:id", func(c *gin.Context) {
		if _, ok := ParseID(c, "id"); !ok {
			Write(c, ErrInvalid("invalid id"))
			return
		}
		Write(c, errors.New("driver: bad connection"))
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/books/abc", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":{"code":"INVALID_ARGUMENT","message":"invalid id"}}`, w.Body.String())

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/books/7", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":{"code":"INTERNAL","message":"internal error"}}`, w.Body.String())
}
