package loans

import (
	"errors"
	"io"
	"net/http"
	"path"

	"github.com/gin-gonic/gin"

	"library-backend/internal/platform/apperr"
	"library-backend/internal/platform/auth"
)

type Handler struct{ svc *Coordinator }

func RegisterRoutes(r gin.IRoutes, svc *Coordinator) {
	h := &Handler{svc: svc}

	// POST /requests (会員からの貸出申請)
	r.POST("/requests", h.Create)
	r.GET("/requests/:id", h.Get)
	r.GET("/requests/by-ulid/:ulid", h.GetByULID)

	// 管理者操作。すべて request id 起点
	r.POST("/requests/:id/accept", h.Accept)
	r.POST("/requests/:id/decline", h.Decline)
	r.POST("/requests/:id/return", h.Return)
}

func (h *Handler) Create(c *gin.Context) {
	var req CreateRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, apperr.Body(apperr.CodeInvalidArgument, "invalid json or missing required fields"))
		return
	}
	actor, _ := auth.ActorFrom(c)
	if req.MemberID == 0 {
		req.MemberID = actor.MemberID
	}
	r, err := h.svc.CreateRequest(c.Request.Context(), actor, req.MemberID, req.BookID)
	if err != nil {
		apperr.Write(c, err)
		return
	}
	// POST したパス基準で返す (/api/v1/requests/by-ulid/<ulid>)
	c.Header("Location", path.Join(c.Request.URL.Path, "by-ulid", r.RequestULID))
	c.JSON(http.StatusCreated, toResponse(r))
}

func (h *Handler) Get(c *gin.Context) {
	id, ok := apperr.ParseID(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, apperr.Body(apperr.CodeInvalidArgument, "invalid request id"))
		return
	}
	actor, _ := auth.ActorFrom(c)
	r, err := h.svc.GetRequest(c.Request.Context(), actor, id)
	if err != nil {
		apperr.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, toResponse(r))
}

func (h *Handler) GetByULID(c *gin.Context) {
	actor, _ := auth.ActorFrom(c)
	r, err := h.svc.GetRequestByULID(c.Request.Context(), actor, c.Param("ulid"))
	if err != nil {
		apperr.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, toResponse(r))
}

func (h *Handler) Accept(c *gin.Context) {
	id, body, ok := bindTransition(c)
	if !ok {
		return
	}
	actor, _ := auth.ActorFrom(c)
	r, err := h.svc.AcceptRequest(c.Request.Context(), id, body.BookID, actor.Role)
	if err != nil {
		apperr.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, toResponse(r))
}

func (h *Handler) Decline(c *gin.Context) {
	id, _, ok := bindTransition(c)
	if !ok {
		return
	}
	actor, _ := auth.ActorFrom(c)
	r, err := h.svc.DeclineRequest(c.Request.Context(), id, actor.Role)
	if err != nil {
		apperr.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, toResponse(r))
}

func (h *Handler) Return(c *gin.Context) {
	id, body, ok := bindTransition(c)
	if !ok {
		return
	}
	actor, _ := auth.ActorFrom(c)
	r, err := h.svc.ReturnRequest(c.Request.Context(), id, body.BookID, actor.Role)
	if err != nil {
		apperr.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, toResponse(r))
}

// bindTransition reads :id and the optional body. An empty body is fine.
func bindTransition(c *gin.Context) (int64, TransitionRequest, bool) {
	var body TransitionRequest
	id, ok := apperr.ParseID(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, apperr.Body(apperr.CodeInvalidArgument, "invalid request id"))
		return 0, body, false
	}
	if err := c.ShouldBindJSON(&body); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, apperr.Body(apperr.CodeInvalidArgument, "invalid json"))
		return 0, body, false
	}
	return id, body, true
}
