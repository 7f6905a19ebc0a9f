package auth

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"library-backend/internal/platform/apperr"
)

const (
	CtxMemberIDKey = "member_id"
	CtxRoleKey     = "role"
)

func abort(c *gin.Context, status int, code apperr.Code, msg string) {
	c.AbortWithStatusJSON(status, apperr.Body(code, msg))
}

// RequireAuth: Authorization: Bearer <token> を検証して context に member_id/role を詰める
func RequireAuth(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.GetHeader("Authorization")
		if h == "" {
			abort(c, http.StatusUnauthorized, apperr.CodeUnauthorized, "missing Authorization header")
			return
		}

		parts := strings.SplitN(h, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			abort(c, http.StatusUnauthorized, apperr.CodeUnauthorized, "invalid Authorization header")
			return
		}

		tokenStr := strings.TrimSpace(parts[1])
		if tokenStr == "" {
			abort(c, http.StatusUnauthorized, apperr.CodeUnauthorized, "empty token")
			return
		}

		// alg 固定（none攻撃とか回避）
		token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (any, error) {
			return secret, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
		if err != nil || token == nil || !token.Valid {
			abort(c, http.StatusUnauthorized, apperr.CodeUnauthorized, "invalid token")
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			abort(c, http.StatusUnauthorized, apperr.CodeUnauthorized, "invalid claims")
			return
		}

		sub, _ := claims["sub"].(string)
		memberID, err := strconv.ParseInt(sub, 10, 64)
		if err != nil || memberID <= 0 {
			abort(c, http.StatusUnauthorized, apperr.CodeUnauthorized, "invalid sub")
			return
		}

		roleStr, _ := claims["role"].(string)
		role, ok := ParseRole(roleStr)
		if !ok {
			abort(c, http.StatusUnauthorized, apperr.CodeUnauthorized, "invalid role")
			return
		}

		c.Set(CtxMemberIDKey, memberID)
		c.Set(CtxRoleKey, role)
		c.Next()
	}
}

// RequireRole: 例) admin のみ許可したい時に追加
func RequireRole(roles ...Role) gin.HandlerFunc {
	roleSet := make(map[Role]struct{}, len(roles))
	for _, r := range roles {
		roleSet[r] = struct{}{}
	}

	return func(c *gin.Context) {
		a, ok := ActorFrom(c)
		if !ok {
			abort(c, http.StatusForbidden, apperr.CodeUnauthorized, "missing role")
			return
		}
		if _, allowed := roleSet[a.Role]; !allowed {
			abort(c, http.StatusForbidden, apperr.CodeUnauthorized, "forbidden")
			return
		}
		c.Next()
	}
}

// ActorFrom returns the caller stored by RequireAuth.
func ActorFrom(c *gin.Context) (Actor, bool) {
	idAny, ok := c.Get(CtxMemberIDKey)
	if !ok {
		return Actor{}, false
	}
	roleAny, ok := c.Get(CtxRoleKey)
	if !ok {
		return Actor{}, false
	}
	id, ok1 := idAny.(int64)
	role, ok2 := roleAny.(Role)
	if !ok1 || !ok2 {
		return Actor{}, false
	}
	return Actor{MemberID: id, Role: role}, true
}
