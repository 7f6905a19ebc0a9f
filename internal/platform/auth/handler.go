package auth

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"library-backend/internal/platform/apperr"
	"library-backend/internal/platform/requestid"
)

type AuthHandler struct{ svc AuthService }

func RegisterRoutes(r gin.IRoutes, svc AuthService) {
	h := &AuthHandler{svc: svc}
	r.POST("/login", h.Login)
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	Token   string `json:"token"`
	Message string `json:"message"`
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, apperr.Body(apperr.CodeInvalidArgument, "invalid request"))
		return
	}

	token, err := h.svc.Login(c.Request.Context(), req.Email, req.Password)
	if errors.Is(err, ErrAuthFailed) {
		c.JSON(http.StatusUnauthorized, apperr.Body(apperr.CodeUnauthorized, "メールアドレスまたはパスワードが間違っています"))
		return
	}
	if err != nil {
		requestid.Logger(c.Request.Context()).Error("login failed", "err", err)
		c.JSON(http.StatusInternalServerError, apperr.BodyFrom(err))
		return
	}

	c.JSON(http.StatusOK, LoginResponse{Token: token, Message: "Login successful"})
}
