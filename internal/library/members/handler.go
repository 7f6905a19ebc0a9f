package members

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"library-backend/internal/platform/apperr"
	"library-backend/internal/platform/auth"
)

type Handler struct{ svc *Service }

// RegisterRoutes: 登録は未認証でも可、それ以外は authed 側に載せる
func RegisterRoutes(public, authed gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}

	// POST /members
	public.POST("/members", h.Register)

	// GET /members/:id, PATCH /members/:id (本人 or admin)
	authed.GET("/members/:id", h.Get)
	authed.PATCH("/members/:id", h.Update)
}

func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, apperr.Body(apperr.CodeInvalidArgument, "invalid json or missing required fields"))
		return
	}
	res, err := h.svc.Register(c.Request.Context(), req)
	if err != nil {
		apperr.Write(c, err)
		return
	}
	c.Header("Location", "/members/"+strconv.FormatInt(res.MemberID, 10))
	c.JSON(http.StatusCreated, res)
}

func (h *Handler) Get(c *gin.Context) {
	id, ok := apperr.ParseID(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, apperr.Body(apperr.CodeInvalidArgument, "invalid member id"))
		return
	}
	actor, _ := auth.ActorFrom(c)
	res, err := h.svc.GetMember(c.Request.Context(), actor, id)
	if err != nil {
		apperr.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) Update(c *gin.Context) {
	id, ok := apperr.ParseID(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, apperr.Body(apperr.CodeInvalidArgument, "invalid member id"))
		return
	}
	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, apperr.Body(apperr.CodeInvalidArgument, "invalid json"))
		return
	}
	actor, _ := auth.ActorFrom(c)
	res, err := h.svc.UpdateProfile(c.Request.Context(), actor, id, req)
	if err != nil {
		apperr.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
