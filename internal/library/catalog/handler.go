package catalog

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"library-backend/internal/platform/apperr"
	"library-backend/internal/platform/auth"
)

type Handler struct{ svc *Service }

func RegisterRoutes(r gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}

	// GET /books?q=&genre=&available=true&page=
	r.GET("/books", h.ListBooks)
	r.GET("/books/genres", h.Genres)

	// GET /requests?q=&status=requested,success&from=&to=&book_id=&member_id=&page=
	// 管理者は全件、一般会員は自分の分のみ
	r.GET("/requests", h.ListRequests)
	r.GET("/me/requests", h.MyRequests)

	// GET /members?q=&page= (admin)
	r.GET("/members", h.ListMembers)
}

func (h *Handler) ListBooks(c *gin.Context) {
	f := BookFilter{
		Q:     c.Query("q"),
		Genre: c.Query("genre"),
		Page:  parseIntDefault(c.Query("page"), 1),
	}
	if v := c.Query("available"); v == "true" || v == "1" {
		f.AvailableOnly = true
	}
	res, err := h.svc.ListBooks(c.Request.Context(), f)
	if err != nil {
		apperr.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, mapPage(res, bookResponse))
}

func (h *Handler) Genres(c *gin.Context) {
	res, err := h.svc.Genres(c.Request.Context())
	if err != nil {
		apperr.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"genres": res})
}

func (h *Handler) ListRequests(c *gin.Context) {
	f, err := requestFilter(c)
	if err != nil {
		apperr.Write(c, err)
		return
	}
	h.listRequests(c, f)
}

func (h *Handler) MyRequests(c *gin.Context) {
	f, err := requestFilter(c)
	if err != nil {
		apperr.Write(c, err)
		return
	}
	actor, _ := auth.ActorFrom(c)
	f.MemberID = actor.MemberID
	h.listRequests(c, f)
}

func (h *Handler) listRequests(c *gin.Context, f RequestFilter) {
	actor, _ := auth.ActorFrom(c)
	res, err := h.svc.ListRequests(c.Request.Context(), actor, f)
	if err != nil {
		apperr.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, mapPage(res, requestResponse))
}

func (h *Handler) ListMembers(c *gin.Context) {
	actor, _ := auth.ActorFrom(c)
	res, err := h.svc.ListMembers(c.Request.Context(), actor.Role, MemberFilter{
		Q:    c.Query("q"),
		Page: parseIntDefault(c.Query("page"), 1),
	})
	if err != nil {
		apperr.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, mapPage(res, memberResponse))
}

func requestFilter(c *gin.Context) (RequestFilter, error) {
	statuses, err := ParseStatuses(c.Query("status"))
	if err != nil {
		return RequestFilter{}, err
	}
	f := RequestFilter{
		Q:        c.Query("q"),
		Statuses: statuses,
		Page:     parseIntDefault(c.Query("page"), 1),
		MemberID: int64(parseIntDefault(c.Query("member_id"), 0)),
		BookID:   int64(parseIntDefault(c.Query("book_id"), 0)),
	}
	if v := c.Query("from"); v != "" {
		t, err := parseDate(v, false)
		if err != nil {
			return f, err
		}
		f.From = &t
	}
	if v := c.Query("to"); v != "" {
		t, err := parseDate(v, true)
		if err != nil {
			return f, err
		}
		f.To = &t
	}
	return f, nil
}

// parseDate accepts RFC3339 or YYYY-MM-DD. A bare date used as an upper
// bound covers the whole day.
func parseDate(v string, endOfDay bool) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return time.Time{}, apperr.ErrInvalid("invalid date, expected RFC3339 or YYYY-MM-DD")
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return t, nil
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
