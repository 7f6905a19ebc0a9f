package labels

import (
	"bytes"
	"context"
	"encoding/csv"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"

	"library-backend/internal/library/inventory"
	"library-backend/internal/platform/apperr"
	"library-backend/internal/platform/auth"
)

type books map[int64]inventory.Book

func (b books) GetBook(_ context.Context, id int64) (inventory.Book, error) {
	bk, ok := b[id]
	if !ok {
		return inventory.Book{}, apperr.ErrNotFound("book not found")
	}
	return bk, nil
}

var shelf = books{
	1: {BookID: 1, Title: "吾輩は猫である", Author: "夏目漱石", Genre: "小説", ISBN: "9784101010014", TotalCopies: 2},
	2: {BookID: 2, Title: "Dune", Author: "Frank Herbert", Genre: "SF", ISBN: "9780441013593", TotalCopies: 1},
}

func TestRows_OnePerCopy(t *testing.T) {
	svc := NewService(shelf)

	rows, err := svc.Rows(context.Background(), auth.RoleAdmin, []int64{2, 1})
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, int64(2), rows[0].BookID)
	assert.Equal(t, 1, rows[1].CopyNo)
	assert.Equal(t, 2, rows[2].CopyNo)
	assert.Equal(t, 2, rows[2].Copies)

	_, err = svc.Rows(context.Background(), auth.RoleUser, []int64{1})
	assert.True(t, apperr.Is(err, apperr.CodeUnauthorized))

	_, err = svc.Rows(context.Background(), auth.RoleAdmin, nil)
	assert.True(t, apperr.Is(err, apperr.CodeInvalidArgument))

	_, err = svc.Rows(context.Background(), auth.RoleAdmin, []int64{3})
	assert.True(t, apperr.Is(err, apperr.CodeNotFound))
}

func TestRows_CapsLabelCount(t *testing.T) {
	big := books{
		1: {BookID: 1, Title: "Bulk", TotalCopies: MaxRows},
		2: {BookID: 2, Title: "One more", TotalCopies: 1},
		3: {BookID: 3, Title: "Huge", TotalCopies: 1 << 30},
	}
	svc := NewService(big)

	rows, err := svc.Rows(context.Background(), auth.RoleAdmin, []int64{1})
	require.NoError(t, err)
	assert.Len(t, rows, MaxRows)

	_, err = svc.Rows(context.Background(), auth.RoleAdmin, []int64{1, 2})
	assert.True(t, apperr.Is(err, apperr.CodeInvalidArgument))

	_, err = svc.Rows(context.Background(), auth.RoleAdmin, []int64{3})
	assert.True(t, apperr.Is(err, apperr.CodeInvalidArgument))
}

func TestWriteCSV_ShiftJISRoundTrip(t *testing.T) {
	rows, err := NewService(shelf).Rows(context.Background(), auth.RoleAdmin, []int64{1})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, EncodingShiftJIS, rows))

	decoded, err := io.ReadAll(transform.NewReader(&buf, japanese.ShiftJIS.NewDecoder()))
	require.NoError(t, err)
	records, err := csv.NewReader(bytes.NewReader(decoded)).ReadAll()
	require.NoError(t, err)

	require.Len(t, records, 3)
	assert.Equal(t, header, records[0])
	assert.Equal(t, []string{"1", "1/2", "吾輩は猫である", "夏目漱石", "小説", "9784101010014"}, records[1])
}

func TestWriteCSV_ShiftJISReplacesUnsupported(t *testing.T) {
	var buf bytes.Buffer
	err := WriteCSV(&buf, EncodingShiftJIS, []Row{{BookID: 9, CopyNo: 1, Copies: 1, Title: "Emoji 📚"}})
	assert.NoError(t, err)
}

func TestHandler_Export(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(auth.CtxMemberIDKey, int64(1))
		c.Set(auth.CtxRoleKey, auth.RoleAdmin)
	})
	RegisterRoutes(r, NewService(shelf))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/books/labels?ids=2", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), "2,1/1,Dune,Frank Herbert,SF,9780441013593")

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/books/labels?ids=x", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/books/labels?ids=1&encoding=latin1", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
