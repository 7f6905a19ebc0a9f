package requestid

import (
	"context"
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const Header = "X-Request-ID"

type ctxKey struct{}

// Middleware は X-Request-ID を引き継ぐ（無ければ採番する）。
// 値はレスポンスヘッダと request context の両方に載せる。
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(Header)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		c.Header(Header, id)
		c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), ctxKey{}, id))
		c.Next()
	}
}

// FromContext returns the request id, or "" outside an HTTP request.
func FromContext(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

// Logger returns the default logger annotated with the request id.
func Logger(ctx context.Context) *slog.Logger {
	if id := FromContext(ctx); id != "" {
		return slog.Default().With("request_id", id)
	}
	return slog.Default()
}
