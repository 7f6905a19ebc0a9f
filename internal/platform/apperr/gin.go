package apperr

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"library-backend/internal/platform/requestid"
)

// Write renders err as the JSON error body. Failures outside the taxonomy
// are logged with the request id before being masked as INTERNAL.
func Write(c *gin.Context, err error) {
	if CodeOf(err) == CodeInternal {
		requestid.Logger(c.Request.Context()).Error("request failed",
			"method", c.Request.Method, "path", c.FullPath(), "err", err)
	}
	c.JSON(HTTPStatus(err), BodyFrom(err))
}

// ParseID reads a positive int64 path parameter.
func ParseID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
