package labels

import (
	"bytes"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"library-backend/internal/platform/apperr"
	"library-backend/internal/platform/auth"
)

type Handler struct{ svc *Service }

func RegisterRoutes(r gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}
	// GET /books/labels?ids=1,2,3&encoding=sjis
	r.GET("/books/labels", h.Export)
}

func (h *Handler) Export(c *gin.Context) {
	enc, ok := ParseEncoding(c.Query("encoding"))
	if !ok {
		c.JSON(http.StatusBadRequest, apperr.Body(apperr.CodeInvalidArgument, "encoding must be utf8 or sjis"))
		return
	}
	ids, err := parseIDs(c.Query("ids"))
	if err != nil {
		apperr.Write(c, err)
		return
	}

	actor, _ := auth.ActorFrom(c)
	rows, err := h.svc.Rows(c.Request.Context(), actor.Role, ids)
	if err != nil {
		apperr.Write(c, err)
		return
	}

	// 途中で失敗したときに半端な CSV を返さないよう一旦バッファに書く
	var buf bytes.Buffer
	if err := WriteCSV(&buf, enc, rows); err != nil {
		apperr.Write(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="labels.csv"`)
	c.Data(http.StatusOK, enc.ContentType(), buf.Bytes())
}

func parseIDs(raw string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil || id <= 0 {
			return nil, apperr.ErrInvalid("ids must be a comma separated list of book ids")
		}
		ids = append(ids, id)
	}
	return ids, nil
}
