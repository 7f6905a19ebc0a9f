package inventory

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"library-backend/internal/platform/apperr"
	"library-backend/internal/platform/auth"
)

type Handler struct{ svc *Service }

func RegisterRoutes(r gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}

	// POST /books (addStock: 既存 isbn+title なら冊数を加算)
	r.POST("/books", h.AddStock)
	r.GET("/books/:id", h.Get)
	r.PATCH("/books/:id", h.Update)
	// DELETE /books/:id (貸出中・申請中があれば BOOK_IN_USE)
	r.DELETE("/books/:id", h.Remove)
}

func (h *Handler) AddStock(c *gin.Context) {
	var req AddStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, apperr.Body(apperr.CodeInvalidArgument, "invalid json or missing required fields"))
		return
	}
	actor, _ := auth.ActorFrom(c)
	res, err := h.svc.AddStock(c.Request.Context(), actor.Role, req)
	if err != nil {
		apperr.Write(c, err)
		return
	}
	c.Header("Location", "/books/"+strconv.FormatInt(res.Book.BookID, 10))
	if res.Merged {
		c.JSON(http.StatusOK, res)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (h *Handler) Get(c *gin.Context) {
	id, ok := apperr.ParseID(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, apperr.Body(apperr.CodeInvalidArgument, "invalid book id"))
		return
	}
	b, err := h.svc.GetBook(c.Request.Context(), id)
	if err != nil {
		apperr.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, ToResponse(b))
}

func (h *Handler) Update(c *gin.Context) {
	id, ok := apperr.ParseID(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, apperr.Body(apperr.CodeInvalidArgument, "invalid book id"))
		return
	}
	var req UpdateBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, apperr.Body(apperr.CodeInvalidArgument, "invalid json"))
		return
	}
	actor, _ := auth.ActorFrom(c)
	res, err := h.svc.UpdateBook(c.Request.Context(), actor.Role, id, req)
	if err != nil {
		apperr.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) Remove(c *gin.Context) {
	id, ok := apperr.ParseID(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, apperr.Body(apperr.CodeInvalidArgument, "invalid book id"))
		return
	}
	actor, _ := auth.ActorFrom(c)
	if err := h.svc.RemoveBook(c.Request.Context(), actor.Role, id); err != nil {
		apperr.Write(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
